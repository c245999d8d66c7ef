// Package syncer reconciles the local product table with the remote document
// store in both directions. The merge policy is last-write-wins field
// replacement: whichever direction runs last for a given id wins, with no
// timestamp arbitration.
package syncer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/talkincode/smartstock/internal/domain"
	"github.com/talkincode/smartstock/internal/remote"
	"github.com/talkincode/smartstock/internal/store"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Engine drives push, pull and live merge. Each operation is independently
// triggerable; FullSync is the startup/manual-refresh cycle.
type Engine struct {
	store  *store.ProductStore
	remote remote.Store
}

func New(s *store.ProductStore, r remote.Store) *Engine {
	return &Engine{store: s, remote: r}
}

// PushOne writes a single record to the remote store and marks it synced on
// success. On failure the record keeps its unsynced flag and stays eligible
// for the next push cycle.
func (e *Engine) PushOne(ctx context.Context, p *domain.Product) error {
	if err := e.remote.Put(ctx, p.ID, p.ToDocument()); err != nil {
		return errors.Wrapf(err, "push product %s", p.ID)
	}
	if err := e.store.MarkSynced(ctx, p.ID); err != nil {
		return err
	}
	p.Synced = true
	return nil
}

// PushAll pushes every unsynced record. A failure on one record is logged and
// absorbed so the remaining records still get their chance; the aggregate
// error reports any partial failure.
func (e *Engine) PushAll(ctx context.Context) error {
	pending, err := e.store.Unsynced(ctx)
	if err != nil {
		return err
	}
	var errs error
	for i := range pending {
		if err := e.PushOne(ctx, &pending[i]); err != nil {
			zap.L().Warn("product push failed, retrying on next cycle",
				zap.String("id", pending[i].ID), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// PullAll fetches the full remote collection and merges every document into
// the local table. Per-document anomalies are recovered by deserialization
// defaults; only the fetch itself can fail the pull.
func (e *Engine) PullAll(ctx context.Context) error {
	docs, err := e.remote.FetchAll(ctx)
	if err != nil {
		return errors.Wrap(err, "pull remote products")
	}
	return e.store.MergeRemote(ctx, deserialize(docs))
}

// FullSync runs a pull followed by a push of the remaining unsynced records.
// Pulling first keeps the push from re-sending records the remote already
// holds; it is not conflict resolution.
func (e *Engine) FullSync(ctx context.Context) error {
	if err := e.PullAll(ctx); err != nil {
		return err
	}
	return e.PushAll(ctx)
}

// DeleteRemote removes a document best-effort. The caller owns the local
// deletion and may ignore the returned error; a failed remote delete can
// resurface the record on a later pull.
func (e *Engine) DeleteRemote(ctx context.Context, id string) error {
	if err := e.remote.Delete(ctx, id); err != nil {
		zap.L().Warn("remote delete failed",
			zap.String("id", id), zap.Error(err))
		return errors.Wrapf(err, "delete remote product %s", id)
	}
	return nil
}

// Listen merges every remote change notification into the local table until
// ctx is cancelled or the returned cancel func runs. Listener errors are
// dropped; resubscription is an operational concern outside the engine.
func (e *Engine) Listen(ctx context.Context) (func(), error) {
	return e.remote.SubscribeChanges(ctx, func(docs map[string]domain.Document) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := e.store.MergeRemote(ctx, deserialize(docs)); err != nil {
			zap.L().Warn("remote change merge failed", zap.Error(err))
		}
	})
}

func deserialize(docs map[string]domain.Document) []domain.Product {
	products := make([]domain.Product, 0, len(docs))
	for id, doc := range docs {
		products = append(products, domain.FromDocument(id, doc))
	}
	return products
}
