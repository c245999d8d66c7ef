package viewmodel

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/smartstock/internal/domain"
	"github.com/talkincode/smartstock/internal/remote"
	"github.com/talkincode/smartstock/internal/store"
	"github.com/talkincode/smartstock/internal/syncer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// countingStore wraps the real store and records reactive query attachments,
// so debounce behavior is observable.
type countingStore struct {
	*store.ProductStore

	mu          sync.Mutex
	watchCalls  int
	searchCalls []string
}

func (c *countingStore) Watch(ctx context.Context) *store.Subscription {
	c.mu.Lock()
	c.watchCalls++
	c.mu.Unlock()
	return c.ProductStore.Watch(ctx)
}

func (c *countingStore) WatchSearch(ctx context.Context, query string) *store.Subscription {
	c.mu.Lock()
	c.searchCalls = append(c.searchCalls, query)
	c.mu.Unlock()
	return c.ProductStore.WatchSearch(ctx, query)
}

func (c *countingStore) searches() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.searchCalls...)
}

func newTestViewModel(t *testing.T, opts ...Option) (*ProductViewModel, *countingStore, *remote.MemoryStore) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "smartstock_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().AutoMigrate(domain.Tables...))

	cs := &countingStore{ProductStore: store.NewProductStore(db)}
	r := remote.NewMemoryStore()
	vm := New(cs, syncer.New(cs.ProductStore, r), opts...)
	t.Cleanup(vm.Close)
	return vm, cs, r
}

func waitForPhase(t *testing.T, vm *ProductViewModel, want Phase) State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st := vm.State().Get()
		if st.Phase == want {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never reached %q, last %+v", want, vm.State().Get())
	return State{}
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestAddProduct(t *testing.T) {
	vm, cs, r := newTestViewModel(t)

	vm.AddProduct("Widget", "a widget", 9.99, 5, "Tools")
	waitForPhase(t, vm, PhaseSuccess)

	rows, err := cs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotEmpty(t, rows[0].ID)
	assert.True(t, rows[0].Synced)
	assert.True(t, r.Has(rows[0].ID))

	waitUntil(t, func() bool { return vm.ProductCount().Get() == 1 }, "count never updated")
	waitUntil(t, func() bool {
		total := vm.TotalStockValue().Get()
		return total > 49.94 && total < 49.96
	}, "total value never updated")
}

func TestAddProductInvalid(t *testing.T) {
	vm, cs, _ := newTestViewModel(t)

	vm.AddProduct("", "no name", 9.99, 5, "Tools")
	st := vm.State().Get()
	assert.Equal(t, PhaseError, st.Phase)
	assert.NotEmpty(t, st.Message)

	count, err := cs.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	vm.AddProduct("Widget", "", -1, 5, "Tools")
	assert.Equal(t, PhaseError, vm.State().Get().Phase)
	count, err = cs.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestAddProductPushFailure(t *testing.T) {
	vm, cs, r := newTestViewModel(t)
	r.FailAllPuts = errors.New("network down")

	vm.AddProduct("Widget", "", 9.99, 5, "Tools")
	waitForPhase(t, vm, PhaseError)

	// the record stays local-only and eligible for the next push cycle
	rows, err := cs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Synced)

	pending, err := cs.Unsynced(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestUpdateProduct(t *testing.T) {
	vm, cs, r := newTestViewModel(t)

	p := domain.Product{ID: "p1", Name: "Widget", Price: 9.99, Quantity: 5, Category: "Tools"}
	_, err := cs.Insert(context.Background(), &p)
	require.NoError(t, err)

	p.Quantity = 7
	vm.UpdateProduct(p)
	waitForPhase(t, vm, PhaseSuccess)

	got, err := cs.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Quantity)
	assert.True(t, got.Synced)
	assert.Equal(t, 7, r.Docs()["p1"]["quantity"])
}

func TestUpdateProductInvalid(t *testing.T) {
	vm, cs, _ := newTestViewModel(t)

	p := domain.Product{ID: "p1", Name: "Widget", Price: 9.99, Quantity: 5, Category: "Tools"}
	_, err := cs.Insert(context.Background(), &p)
	require.NoError(t, err)

	bad := p
	bad.Price = 0
	vm.UpdateProduct(bad)
	assert.Equal(t, PhaseError, vm.State().Get().Phase)

	got, err := cs.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 9.99, got.Price)
}

func TestDeleteProductRemoteFailureSwallowed(t *testing.T) {
	vm, cs, r := newTestViewModel(t)

	p := domain.Product{ID: "p1", Name: "Widget", Price: 9.99, Quantity: 5, Category: "Tools"}
	_, err := cs.Insert(context.Background(), &p)
	require.NoError(t, err)
	r.FailDel["p1"] = errors.New("network down")

	vm.DeleteProduct(p)
	waitForPhase(t, vm, PhaseSuccess)

	_, err = cs.GetByID(context.Background(), "p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResetState(t *testing.T) {
	vm, _, _ := newTestViewModel(t)

	vm.AddProduct("", "", 0, 0, "")
	require.Equal(t, PhaseError, vm.State().Get().Phase)

	vm.ResetState()
	assert.Equal(t, PhaseIdle, vm.State().Get().Phase)
}

func TestSearchDebounceCoalesces(t *testing.T) {
	vm, cs, _ := newTestViewModel(t, WithDebounce(80*time.Millisecond))

	p := domain.Product{ID: "p1", Name: "abcd", Price: 9.99, Quantity: 5, Category: "Tools"}
	_, err := cs.Insert(context.Background(), &p)
	require.NoError(t, err)

	// three rapid edits inside the debounce window
	vm.SetSearchQuery("a")
	time.Sleep(10 * time.Millisecond)
	vm.SetSearchQuery("ab")
	time.Sleep(10 * time.Millisecond)
	vm.SetSearchQuery("abc")

	waitUntil(t, func() bool { return len(cs.searches()) > 0 }, "debounced query never ran")
	time.Sleep(150 * time.Millisecond)

	// exactly one query execution, for the final text
	assert.Equal(t, []string{"abc"}, cs.searches())
	assert.Equal(t, "abc", vm.SearchQuery().Get())

	waitUntil(t, func() bool {
		rows := vm.SearchResults().Get()
		return len(rows) == 1 && rows[0].ID == "p1"
	}, "search results never matched")
}

func TestSearchEmptyQueryStreamsFullList(t *testing.T) {
	vm, cs, _ := newTestViewModel(t, WithDebounce(20*time.Millisecond))

	for _, id := range []string{"p1", "p2"} {
		p := domain.Product{ID: id, Name: "Widget " + id, Price: 9.99, Quantity: 5, Category: "Tools"}
		_, err := cs.Insert(context.Background(), &p)
		require.NoError(t, err)
	}

	vm.SetSearchQuery("p1")
	waitUntil(t, func() bool { return len(vm.SearchResults().Get()) == 1 }, "filtered results never arrived")

	vm.SetSearchQuery("")
	waitUntil(t, func() bool { return len(vm.SearchResults().Get()) == 2 }, "full list never restored")
}

func TestSearchSwitchDropsSupersededSubscription(t *testing.T) {
	vm, cs, _ := newTestViewModel(t, WithDebounce(20*time.Millisecond))

	hammer := domain.Product{ID: "p1", Name: "Hammer", Price: 9.99, Quantity: 5, Category: "Tools"}
	_, err := cs.Insert(context.Background(), &hammer)
	require.NoError(t, err)

	vm.SetSearchQuery("hammer")
	waitUntil(t, func() bool { return len(vm.SearchResults().Get()) == 1 }, "first query never resolved")

	vm.SetSearchQuery("screw")
	waitUntil(t, func() bool { return len(vm.SearchResults().Get()) == 0 }, "superseded results kept streaming")

	// a write matching only the old query must not resurface through the
	// cancelled subscription
	mallet := domain.Product{ID: "p2", Name: "Hammer Mk2", Price: 1, Quantity: 1, Category: "Tools"}
	_, err = cs.Insert(context.Background(), &mallet)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, vm.SearchResults().Get())
}

func TestStatsFollowRemoteMerge(t *testing.T) {
	vm, _, r := newTestViewModel(t)

	// the live-merge listener attaches in the background; keep publishing
	// until the merge lands
	waitUntil(t, func() bool {
		_ = r.Put(context.Background(), "p1", domain.Document{
			"name": "Widget", "price": 9.99, "quantity": 5, "category": "Tools",
			"createdAt": int64(1700000000000), "updatedAt": int64(1700000001000),
		})
		return vm.ProductCount().Get() == 1
	}, "count never followed remote merge")
}

func TestCloseStopsBackgroundWork(t *testing.T) {
	vm, _, r := newTestViewModel(t)
	vm.Close()
	vm.Close() // idempotent

	// remote changes after close must not panic or write anywhere
	require.NoError(t, r.Put(context.Background(), "p9", domain.Document{"name": "late"}))
}
