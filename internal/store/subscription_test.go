package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/smartstock/internal/domain"
)

func recvSnapshot(t *testing.T, sub *Subscription) []domain.Product {
	t.Helper()
	select {
	case rows := <-sub.C:
		return rows
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestWatchEmitsInitialSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testProduct("p1", "Widget")
	_, err := s.Insert(ctx, &p)
	require.NoError(t, err)

	sub := s.Watch(ctx)
	defer sub.Cancel()

	rows := recvSnapshot(t, sub)
	require.Len(t, rows, 1)
	assert.Equal(t, "p1", rows[0].ID)
}

func TestWatchEmitsAfterEveryMutation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub := s.Watch(ctx)
	defer sub.Cancel()
	assert.Empty(t, recvSnapshot(t, sub))

	p := testProduct("p1", "Widget")
	_, err := s.Insert(ctx, &p)
	require.NoError(t, err)
	rows := recvSnapshot(t, sub)
	require.Len(t, rows, 1)

	p.Quantity = 9
	require.NoError(t, s.Update(ctx, &p))
	rows = recvSnapshot(t, sub)
	require.Len(t, rows, 1)
	assert.Equal(t, 9, rows[0].Quantity)

	require.NoError(t, s.Delete(ctx, &p))
	assert.Empty(t, recvSnapshot(t, sub))
}

func TestWatchLatestWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub := s.Watch(ctx)
	defer sub.Cancel()

	// no reads while several writes land; the subscriber must see the
	// newest state, intermediate snapshots may be dropped
	for _, id := range []string{"p1", "p2", "p3"} {
		p := testProduct(id, "Widget "+id)
		_, err := s.Insert(ctx, &p)
		require.NoError(t, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rows := recvSnapshot(t, sub)
		if len(rows) == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("never observed final snapshot, last len=%d", len(rows))
		}
	}
}

func TestWatchSearchFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for id, name := range map[string]string{"p1": "Hammer", "p2": "Screwdriver"} {
		p := testProduct(id, name)
		_, err := s.Insert(ctx, &p)
		require.NoError(t, err)
	}

	sub := s.WatchSearch(ctx, "ham")
	defer sub.Cancel()

	rows := recvSnapshot(t, sub)
	require.Len(t, rows, 1)
	assert.Equal(t, "p1", rows[0].ID)

	p := testProduct("p3", "Claw Hammer")
	_, err := s.Insert(ctx, &p)
	require.NoError(t, err)

	rows = recvSnapshot(t, sub)
	assert.Len(t, rows, 2)
}

func TestWatchCategoryFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1 := testProduct("p1", "Hammer")
	p2 := testProduct("p2", "Apple")
	p2.Category = "Food"
	for _, p := range []*domain.Product{&p1, &p2} {
		_, err := s.Insert(ctx, p)
		require.NoError(t, err)
	}

	sub := s.WatchCategory(ctx, "Food")
	defer sub.Cancel()

	rows := recvSnapshot(t, sub)
	require.Len(t, rows, 1)
	assert.Equal(t, "p2", rows[0].ID)
}

func TestCancelStopsDelivery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub := s.Watch(ctx)
	assert.Empty(t, recvSnapshot(t, sub))
	sub.Cancel()
	sub.Cancel() // idempotent

	p := testProduct("p1", "Widget")
	_, err := s.Insert(ctx, &p)
	require.NoError(t, err)

	select {
	case rows := <-sub.C:
		t.Fatalf("unexpected snapshot after cancel: %v", rows)
	case <-time.After(50 * time.Millisecond):
	}
}
