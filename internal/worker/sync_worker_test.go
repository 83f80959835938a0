package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"scontrino/internal/amqp"
	"scontrino/internal/core"
	"scontrino/internal/fx"
	"scontrino/internal/sheets/memory"
	"scontrino/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createReceipt(t *testing.T, repo *storage.SQLiteRepository) int64 {
	t.Helper()
	id, err := repo.CreateReceipt(context.Background(), core.Receipt{
		Date:     core.NewDate(2025, 3, 14),
		Merchant: "Maxi",
		Amount:   core.Money{Cents: 2550},
		Currency: "RSD",
		Category: "Groceries",
	})
	if err != nil {
		t.Fatalf("CreateReceipt() error = %v", err)
	}
	return id
}

func TestHandleSyncMessageExports(t *testing.T) {
	repo := newTestRepo(t)
	store := memory.New()
	w := NewSyncWorker(repo, store, store, 10)
	ctx := context.Background()

	id := createReceipt(t, repo)

	if err := w.HandleSyncMessage(ctx, amqp.NewReceiptSyncMessage(id, 1)); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}

	exported := store.Receipts()
	if len(exported) != 1 || exported[0].Merchant != "Maxi" {
		t.Errorf("exported = %+v, want the Maxi receipt", exported)
	}

	// synced receipts leave the pending set
	pending, err := repo.PendingSyncReceipts(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSyncReceipts() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after sync = %v, want empty", pending)
	}
}

func TestHandleSyncMessageUnknownReceipt(t *testing.T) {
	repo := newTestRepo(t)
	store := memory.New()
	w := NewSyncWorker(repo, store, store, 10)

	err := w.HandleSyncMessage(context.Background(), amqp.NewReceiptSyncMessage(404, 1))
	if err == nil {
		t.Fatal("HandleSyncMessage() expected error for unknown receipt")
	}
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want wrapped ErrNotFound", err)
	}
}

// failingWriter always rejects appends.
type failingWriter struct{}

func (failingWriter) Append(context.Context, core.Receipt) (string, error) {
	return "", errors.New("spreadsheet unavailable")
}

func TestExportFailureMarksSyncError(t *testing.T) {
	repo := newTestRepo(t)
	w := NewSyncWorker(repo, failingWriter{}, nil, 10)
	ctx := context.Background()

	id := createReceipt(t, repo)

	if err := w.HandleSyncMessage(ctx, amqp.NewReceiptSyncMessage(id, 1)); err == nil {
		t.Fatal("HandleSyncMessage() expected error")
	}

	// marked error, so no longer pending
	pending, err := repo.PendingSyncReceipts(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSyncReceipts() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after failure = %v, want empty (marked error)", pending)
	}
}

func TestStartupSyncCheckDrainsBacklog(t *testing.T) {
	repo := newTestRepo(t)
	store := memory.New()
	w := NewSyncWorker(repo, store, store, 2)
	ctx := context.Background()

	for range 3 {
		createReceipt(t, repo)
	}

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck() error = %v", err)
	}
	if got := len(store.Receipts()); got != 3 {
		t.Errorf("exported %d receipts, want 3", got)
	}
}

func TestHandleDeleteMessageWithoutRemover(t *testing.T) {
	repo := newTestRepo(t)
	w := NewSyncWorker(repo, memory.New(), nil, 10)

	// no remover configured is a skip, not a failure
	if err := w.HandleDeleteMessage(context.Background(), amqp.NewReceiptDeleteMessage(1)); err != nil {
		t.Errorf("HandleDeleteMessage() error = %v, want nil", err)
	}
}

func TestRateRefresherRefreshAll(t *testing.T) {
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"base":"EUR","rates":{"EUR":1,"USD":1.1}}`))
	}))
	defer srv.Close()

	rates := fx.NewProvider(srv.URL)
	refresher := NewRateRefresher(rates, []core.Currency{"EUR", "USD"})

	refresher.RefreshAll(context.Background())
	if got := fetches.Load(); got != 2 {
		t.Errorf("fetches = %d, want 2 (one per base)", got)
	}

	// the warmed cache serves reads on the same provider without a fetch
	rates.Rates(context.Background(), "EUR")
	if got := fetches.Load(); got != 2 {
		t.Errorf("fetches after cached read = %d, want 2", got)
	}

	// a second refresh bypasses the cache via invalidation
	refresher.RefreshAll(context.Background())
	if got := fetches.Load(); got != 4 {
		t.Errorf("fetches = %d, want 4 after second refresh", got)
	}
}
