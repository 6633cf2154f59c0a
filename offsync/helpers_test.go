package offsync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-memory stand-in for the paperdb document endpoints. It
// records mutation arrival order and can be armed to report version
// conflicts.
type fakeAPI struct {
	mu       sync.Mutex
	docs     map[string]map[string]Document // collection -> id -> doc
	arrivals []string                       // "<op> <collection>/<id>" in arrival order
	requests int

	// conflictOn maps "<collection>/<id>" to the remote document returned
	// with a 409. A payload carrying the force-update marker bypasses it.
	conflictOn map[string]Document

	// mutationDelay slows down mutations to keep a cycle in flight.
	mutationDelay time.Duration

	// failStatus, when non-zero, is returned for every mutation request.
	failStatus int

	nextID int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		docs:       make(map[string]map[string]Document),
		conflictOn: make(map[string]Document),
	}
}

func (f *fakeAPI) seed(collection string, doc Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docs[collection] == nil {
		f.docs[collection] = make(map[string]Document)
	}
	id, _ := doc.ID()
	f.docs[collection][id] = doc
}

func (f *fakeAPI) arrivalLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.arrivals...)
}

func (f *fakeAPI) armConflict(collection, id string, remote Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conflictOn[collection+"/"+id] = remote
}

func (f *fakeAPI) setFailStatus(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStatus = code
}

func (f *fakeAPI) document(collection, id string) (Document, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[collection][id]
	return doc, ok
}

func (f *fakeAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests++
	f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[1] != "docs" {
		http.NotFound(w, r)
		return
	}
	collection := parts[0]
	var docID string
	if len(parts) == 3 {
		docID = parts[2]
	}

	if r.Method != http.MethodGet && f.mutationDelay > 0 {
		time.Sleep(f.mutationDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docs[collection] == nil {
		f.docs[collection] = make(map[string]Document)
	}
	if r.Method != http.MethodGet && f.failStatus != 0 {
		http.Error(w, "induced failure", f.failStatus)
		return
	}

	switch r.Method {
	case http.MethodGet:
		ids := make([]string, 0, len(f.docs[collection]))
		for id := range f.docs[collection] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out := make([]Document, 0, len(ids))
		for _, id := range ids {
			out = append(out, f.docs[collection][id])
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)

	case http.MethodPost:
		var doc Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.nextID++
		id := fmt.Sprintf("srv-%d", f.nextID)
		doc["id"] = id
		delete(doc, ForceUpdateKey)
		f.docs[collection][id] = doc
		f.arrivals = append(f.arrivals, "insert "+collection+"/"+id)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(doc)

	case http.MethodPatch:
		var doc Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		key := collection + "/" + docID
		forced, _ := doc[ForceUpdateKey].(bool)
		if remote, ok := f.conflictOn[key]; ok && !forced {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]any{"remote": remote})
			return
		}
		delete(f.conflictOn, key)
		delete(doc, ForceUpdateKey)
		doc["id"] = docID
		f.docs[collection][docID] = doc
		f.arrivals = append(f.arrivals, "update "+key)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)

	case http.MethodDelete:
		delete(f.docs[collection], docID)
		f.arrivals = append(f.arrivals, "delete "+collection+"/"+docID)
		w.WriteHeader(http.StatusOK)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// newTestClient wires an in-memory SQLite store and a client against api.
// The client is created but not initialized so tests control the lifecycle.
func newTestClient(t *testing.T, api *fakeAPI, monitor Monitor, mutate func(*Config)) (*Client, *httptest.Server) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig(srv.URL, "test-key", "notes")
	if mutate != nil {
		mutate(cfg)
	}
	client, err := NewClient(store, monitor, cfg)
	require.NoError(t, err)
	t.Cleanup(client.Destroy)

	return client, srv
}

func initTestClient(t *testing.T, client *Client) {
	t.Helper()
	require.NoError(t, client.Init(context.Background()))
}
