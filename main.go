// Copyright 2026 Moses Edem
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
)

func main() {
	fmt.Println("paperdb offsync - Offline-First Document Synchronization")
	fmt.Println("========================================================")
	fmt.Println()
	fmt.Println("offsync keeps paperdb client applications working without a network:")
	fmt.Println("local mutations are queued durably in SQLite, reconciled with the")
	fmt.Println("document API when connectivity returns, and version conflicts are")
	fmt.Println("resolved with pluggable strategies (last-write-wins, first-write-wins,")
	fmt.Println("merge, manual).")
	fmt.Println()

	fmt.Println("Available Examples:")
	fmt.Println()
	fmt.Println("1. Document Server Example (examples/docserver/)")
	fmt.Println("   The server side of the sync protocol: project-scoped document")
	fmt.Println("   collections over Postgres with optimistic concurrency and JWT auth")
	fmt.Println("   Run: cd examples/docserver && go run .")
	fmt.Println()

	fmt.Println("2. Todo CLI Example (examples/todoctl/)")
	fmt.Println("   Offline-first todo list on top of the sync engine")
	fmt.Println("   Features: durable queue, on-demand sync, manual conflict resolution")
	fmt.Println("   Run: cd examples/todoctl && go run . --help")
	fmt.Println()
}
