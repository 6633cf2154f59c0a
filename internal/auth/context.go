// Copyright 2026 Moses Edem
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
)

type contextKey string

const (
	projectIDKey contextKey = "project_id"
	tokenIDKey   contextKey = "token_id"
)

// SetProjectID sets the authenticated project ID in the context.
func SetProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, projectIDKey, projectID)
}

// GetProjectID retrieves the authenticated project ID from the context.
func GetProjectID(ctx context.Context) (string, bool) {
	projectID, ok := ctx.Value(projectIDKey).(string)
	return projectID, ok
}

// SetTokenID sets the API token identifier in the context.
func SetTokenID(ctx context.Context, tokenID string) context.Context {
	return context.WithValue(ctx, tokenIDKey, tokenID)
}

// GetTokenID retrieves the API token identifier from the context.
func GetTokenID(ctx context.Context) (string, bool) {
	tokenID, ok := ctx.Value(tokenIDKey).(string)
	return tokenID, ok
}
