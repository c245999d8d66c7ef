package store

import (
	"context"
	"sync"

	"github.com/talkincode/smartstock/internal/domain"
	"go.uber.org/zap"
)

// Subscription is a live view over a store query. An initial snapshot is
// delivered on subscribe and a fresh one after every table change. Delivery
// is latest-wins: a slow consumer only ever misses intermediate states,
// never the newest one.
type Subscription struct {
	C <-chan []domain.Product

	ch     chan []domain.Product
	cancel func()
	once   sync.Once
}

// Cancel detaches the subscription from the store. Safe to call twice.
func (sub *Subscription) Cancel() {
	sub.once.Do(sub.cancel)
}

// offerLatest replaces any undelivered snapshot with the newest one.
func offerLatest(ch chan []domain.Product, rows []domain.Product) {
	for {
		select {
		case ch <- rows:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func (s *ProductStore) subscribe(ctx context.Context, query func(context.Context) ([]domain.Product, error)) *Subscription {
	ch := make(chan []domain.Product, 1)
	push := func() {
		rows, err := query(ctx)
		if err != nil {
			zap.L().Error("store subscription query failed", zap.Error(err))
			return
		}
		offerLatest(ch, rows)
	}
	if err := s.bus.Subscribe(topicChanged, push); err != nil {
		zap.L().Error("store subscription register failed", zap.Error(err))
	}
	// initial value, before any further mutation can race past it
	push()
	return &Subscription{
		C:  ch,
		ch: ch,
		cancel: func() {
			_ = s.bus.Unsubscribe(topicChanged, push)
		},
	}
}

// Watch streams the full table, newest first.
func (s *ProductStore) Watch(ctx context.Context) *Subscription {
	return s.subscribe(ctx, s.List)
}

// WatchSearch streams the rows matching a name substring query.
func (s *ProductStore) WatchSearch(ctx context.Context, query string) *Subscription {
	return s.subscribe(ctx, func(ctx context.Context) ([]domain.Product, error) {
		return s.SearchByName(ctx, query)
	})
}

// WatchCategory streams the rows of one category.
func (s *ProductStore) WatchCategory(ctx context.Context, category string) *Subscription {
	return s.subscribe(ctx, func(ctx context.Context) ([]domain.Product, error) {
		return s.ByCategory(ctx, category)
	})
}
