// Package remote adapts the external document collection the local table is
// reconciled against. Any document-oriented backend can sit behind the Store
// interface; the shipped implementations are redis and an in-memory store.
package remote

import (
	"context"

	"github.com/talkincode/smartstock/internal/domain"
)

// ChangeFunc receives the full current document set, keyed by record id,
// whenever the remote collection changes.
type ChangeFunc func(docs map[string]domain.Document)

// Store is the sync engine's view of the remote collection.
type Store interface {
	// Put idempotently upserts one document. May fail transiently.
	Put(ctx context.Context, id string, doc domain.Document) error

	// Delete idempotently removes one document. Callers treat remote
	// deletion as best-effort.
	Delete(ctx context.Context, id string) error

	// FetchAll returns the full current document set.
	FetchAll(ctx context.Context) (map[string]domain.Document, error)

	// SubscribeChanges registers a push listener. The returned cancel func
	// tears the listener down; delivery errors are dropped, reconnection is
	// the caller's operational concern.
	SubscribeChanges(ctx context.Context, fn ChangeFunc) (cancel func(), err error)
}
