package sweeper

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"taskmanager/internal/model"
	"taskmanager/internal/pkg/metrics"
)

type mockStore struct {
	mu          sync.Mutex
	deleteCalls int
	cutoffs     []time.Time
	deleted     int64
	err         error
}

func (m *mockStore) Create(ctx context.Context, sess *model.Session) error { return nil }
func (m *mockStore) FindByPair(ctx context.Context, id, hash string) (*model.Session, error) {
	return nil, nil
}
func (m *mockStore) ExistsID(ctx context.Context, id string) (bool, error) { return false, nil }
func (m *mockStore) DeleteByID(ctx context.Context, id string) error       { return nil }
func (m *mockStore) DeleteByUser(ctx context.Context, userID uint) error   { return nil }

func (m *mockStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	m.cutoffs = append(m.cutoffs, cutoff)
	return m.deleted, m.err
}

func TestSweeper_DeletesExpiredOnTick(t *testing.T) {
	metrics.InitMetrics()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &mockStore{deleted: 3}

	s := New(store, time.Hour, 10*time.Millisecond, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.deleteCalls == 0 {
		t.Fatalf("expected at least one sweep")
	}
	// cutoff 应落在 now-ttl 附近
	want := time.Now().Add(-time.Hour)
	got := store.cutoffs[0]
	if got.Before(want.Add(-time.Minute)) || got.After(want.Add(time.Minute)) {
		t.Fatalf("cutoff %v too far from %v", got, want)
	}
}

func TestSweeper_DisabledWithoutTTL(t *testing.T) {
	metrics.InitMetrics()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &mockStore{}

	s := New(store, 0, time.Millisecond, logger)

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Run to return immediately when ttl is zero")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.deleteCalls != 0 {
		t.Fatalf("expected no sweeps, got %d", store.deleteCalls)
	}
}
