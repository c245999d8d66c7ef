package viewmodel

import (
	"context"
	"sync"
	"time"

	"github.com/talkincode/smartstock/internal/domain"
	"github.com/talkincode/smartstock/internal/store"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the search text must stay stable before the
// results subscription is switched.
const DefaultDebounce = 300 * time.Millisecond

// ProductStore is the view model's slice of the local store surface.
// *store.ProductStore satisfies it.
type ProductStore interface {
	Insert(ctx context.Context, p *domain.Product) (string, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, p *domain.Product) error
	Count(ctx context.Context) (int64, error)
	TotalValue(ctx context.Context) (float64, error)
	Watch(ctx context.Context) *store.Subscription
	WatchSearch(ctx context.Context, query string) *store.Subscription
}

// SyncEngine is the view model's slice of the sync engine surface.
// *syncer.Engine satisfies it.
type SyncEngine interface {
	PushOne(ctx context.Context, p *domain.Product) error
	FullSync(ctx context.Context) error
	DeleteRemote(ctx context.Context, id string) error
	Listen(ctx context.Context) (func(), error)
}

// ProductViewModel turns the live local table plus a debounced search term
// into UI-consumable streams, and mediates mutation intents through the
// store and the sync engine. All intents are non-blocking; their outcome is
// reported through the state machine value.
type ProductViewModel struct {
	store  ProductStore
	engine SyncEngine

	state   *Value[State]
	count   *Value[int64]
	total   *Value[float64]
	query   *Value[string]
	results *Value[[]domain.Product]

	debounce time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	closed        bool
	debounceTimer *time.Timer
	resultsSub    *store.Subscription
	resultsGen    int
	statsSub      *store.Subscription
	listenCancel  func()
}

// Option tweaks view model construction.
type Option func(*ProductViewModel)

// WithDebounce overrides the search debounce window.
func WithDebounce(d time.Duration) Option {
	return func(vm *ProductViewModel) { vm.debounce = d }
}

// New wires a view model and kicks off its three background activities:
// statistics load, a full sync cycle and the live remote merge. None of them
// block construction.
func New(s ProductStore, e SyncEngine, opts ...Option) *ProductViewModel {
	ctx, cancel := context.WithCancel(context.Background())
	vm := &ProductViewModel{
		store:    s,
		engine:   e,
		state:    NewValue(stateIdle()),
		count:    NewValue[int64](0),
		total:    NewValue[float64](0),
		query:    NewValue(""),
		results:  NewValue[[]domain.Product](nil),
		debounce: DefaultDebounce,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(vm)
	}

	vm.switchResults("")
	vm.watchStats()

	go func() {
		if err := vm.engine.FullSync(ctx); err != nil {
			zap.L().Warn("startup sync failed", zap.Error(err))
			vm.state.Set(stateError("synchronization failed"))
		}
	}()
	go func() {
		listenCancel, err := vm.engine.Listen(ctx)
		if err != nil {
			zap.L().Warn("remote change listener unavailable", zap.Error(err))
			return
		}
		vm.mu.Lock()
		if vm.closed {
			vm.mu.Unlock()
			listenCancel()
			return
		}
		vm.listenCancel = listenCancel
		vm.mu.Unlock()
	}()

	return vm
}

// Close ends the owning session: the live merge stops, no further store
// writes are issued, every subscription is torn down.
func (vm *ProductViewModel) Close() {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return
	}
	vm.closed = true
	if vm.debounceTimer != nil {
		vm.debounceTimer.Stop()
	}
	if vm.resultsSub != nil {
		vm.resultsSub.Cancel()
	}
	if vm.statsSub != nil {
		vm.statsSub.Cancel()
	}
	listenCancel := vm.listenCancel
	vm.mu.Unlock()

	if listenCancel != nil {
		listenCancel()
	}
	vm.cancel()
}

// State exposes the mutation/query state machine.
func (vm *ProductViewModel) State() *Value[State] { return vm.state }

// ProductCount exposes the live record count statistic.
func (vm *ProductViewModel) ProductCount() *Value[int64] { return vm.count }

// TotalStockValue exposes the live aggregate stock value statistic.
func (vm *ProductViewModel) TotalStockValue() *Value[float64] { return vm.total }

// SearchQuery exposes the current search text.
func (vm *ProductViewModel) SearchQuery() *Value[string] { return vm.query }

// SearchResults exposes the debounced, query-switched result stream.
func (vm *ProductViewModel) SearchResults() *Value[[]domain.Product] { return vm.results }

// ResetState returns the state machine to idle, used by the UI when a
// result or dialog is dismissed.
func (vm *ProductViewModel) ResetState() {
	vm.state.Set(stateIdle())
}

// AddProduct validates and inserts a new record, then pushes it remotely.
// Invalid input becomes an error state without touching the store.
func (vm *ProductViewModel) AddProduct(name, description string, price float64, quantity int, category string) {
	p := domain.Product{
		Name:        name,
		Description: description,
		Price:       price,
		Quantity:    quantity,
		Category:    category,
	}
	if !p.Valid() {
		vm.state.Set(stateError("invalid product data"))
		return
	}
	vm.state.Set(stateLoading())
	go func() {
		if _, err := vm.store.Insert(vm.ctx, &p); err != nil {
			zap.L().Error("add product failed", zap.Error(err))
			vm.state.Set(stateError("failed to add product"))
			return
		}
		if err := vm.engine.PushOne(vm.ctx, &p); err != nil {
			zap.L().Warn("product saved locally but push failed",
				zap.String("id", p.ID), zap.Error(err))
			vm.state.Set(stateError("synchronization failed"))
			return
		}
		vm.state.Set(stateSuccess())
	}()
}

// UpdateProduct replaces a record and pushes the new state remotely.
func (vm *ProductViewModel) UpdateProduct(p domain.Product) {
	if !p.Valid() {
		vm.state.Set(stateError("invalid product data"))
		return
	}
	vm.state.Set(stateLoading())
	go func() {
		if err := vm.store.Update(vm.ctx, &p); err != nil {
			zap.L().Error("update product failed", zap.String("id", p.ID), zap.Error(err))
			vm.state.Set(stateError("failed to update product"))
			return
		}
		if err := vm.engine.PushOne(vm.ctx, &p); err != nil {
			zap.L().Warn("product updated locally but push failed",
				zap.String("id", p.ID), zap.Error(err))
			vm.state.Set(stateError("synchronization failed"))
			return
		}
		vm.state.Set(stateSuccess())
	}()
}

// DeleteProduct removes a record locally; the remote deletion is best-effort
// and its failure deliberately ignored.
func (vm *ProductViewModel) DeleteProduct(p domain.Product) {
	vm.state.Set(stateLoading())
	go func() {
		if err := vm.store.Delete(vm.ctx, &p); err != nil {
			zap.L().Error("delete product failed", zap.String("id", p.ID), zap.Error(err))
			vm.state.Set(stateError("failed to delete product"))
			return
		}
		_ = vm.engine.DeleteRemote(vm.ctx, p.ID)
		vm.state.Set(stateSuccess())
	}()
}

// TriggerSync runs a manual full sync cycle.
func (vm *ProductViewModel) TriggerSync() {
	go func() {
		if err := vm.engine.FullSync(vm.ctx); err != nil {
			zap.L().Warn("manual sync failed", zap.Error(err))
			vm.state.Set(stateError("synchronization failed"))
		}
	}()
}

// SetSearchQuery records the new search text and restarts the debounce
// timer; the results subscription only switches once the text has been
// stable for the whole window.
func (vm *ProductViewModel) SetSearchQuery(q string) {
	vm.query.Set(q)
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return
	}
	if vm.debounceTimer != nil {
		vm.debounceTimer.Stop()
	}
	vm.debounceTimer = time.AfterFunc(vm.debounce, func() {
		vm.switchResults(q)
	})
}

// switchResults drops the current results subscription and attaches a new
// one for the query. A generation counter keeps a superseded forwarder from
// ever publishing stale results.
func (vm *ProductViewModel) switchResults(q string) {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return
	}
	if vm.resultsSub != nil {
		vm.resultsSub.Cancel()
	}
	var sub *store.Subscription
	if q == "" {
		sub = vm.store.Watch(vm.ctx)
	} else {
		sub = vm.store.WatchSearch(vm.ctx, q)
	}
	vm.resultsGen++
	gen := vm.resultsGen
	vm.resultsSub = sub
	vm.mu.Unlock()

	go func() {
		for {
			select {
			case <-vm.ctx.Done():
				return
			case rows, ok := <-sub.C:
				if !ok {
					return
				}
				vm.mu.Lock()
				current := vm.resultsGen == gen && !vm.closed
				vm.mu.Unlock()
				if !current {
					return
				}
				vm.results.Set(rows)
			}
		}
	}()
}

// watchStats keeps the derived statistics current: the initial table
// snapshot loads them, and every later table change — local mutation, pull
// cycle or live remote merge — recomputes them.
func (vm *ProductViewModel) watchStats() {
	vm.mu.Lock()
	sub := vm.store.Watch(vm.ctx)
	vm.statsSub = sub
	vm.mu.Unlock()

	go func() {
		for {
			select {
			case <-vm.ctx.Done():
				return
			case _, ok := <-sub.C:
				if !ok {
					return
				}
				vm.reloadStats()
			}
		}
	}()
}

// reloadStats recomputes the derived statistics.
func (vm *ProductViewModel) reloadStats() {
	count, err := vm.store.Count(vm.ctx)
	if err != nil {
		zap.L().Warn("count reload failed", zap.Error(err))
		return
	}
	total, err := vm.store.TotalValue(vm.ctx)
	if err != nil {
		zap.L().Warn("total value reload failed", zap.Error(err))
		return
	}
	vm.count.Set(count)
	vm.total.Set(total)
}
