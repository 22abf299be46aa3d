package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/event"
	"kakeibo/internal/store"
	"kakeibo/internal/store/memory"
	"kakeibo/internal/store/sqlite"
)

func TestLedgerService_AppendValidatesAndPublishes(t *testing.T) {
	st := memory.New()
	seedSettings(t, st, "u1")
	pub := &capturePublisher{}
	svc := NewLedgerService(st, pub)
	ctx := context.Background()

	id, err := svc.Append(ctx, "u1", core.Transaction{
		Type:        core.Expense,
		Date:        core.NewDate(2024, 3, 1),
		Description: "groceries",
		Amount:      core.Money{Cents: 4200},
		CategoryID:  "food",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id == "" {
		t.Fatal("expected assigned ID")
	}

	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.msgs))
	}
	if pub.msgs[0].Kind != event.KindLedgerChanged || pub.msgs[0].Ref != id {
		t.Errorf("unexpected message: %+v", pub.msgs[0])
	}

	got, err := svc.Get(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Description != "groceries" || got.Amount.Cents != 4200 {
		t.Errorf("stored transaction mismatch: %+v", got)
	}
}

func TestLedgerService_AppendRejections(t *testing.T) {
	st := memory.New()
	seedSettings(t, st, "u1")
	pub := &capturePublisher{}
	svc := NewLedgerService(st, pub)
	ctx := context.Background()

	tests := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{
			name: "unknown category",
			tx: core.Transaction{
				Type: core.Expense, Date: core.NewDate(2024, 3, 1),
				Description: "x", Amount: core.Money{Cents: 100}, CategoryID: "travel",
			},
			want: core.ErrUnknownCategory,
		},
		{
			name: "kind mismatch",
			tx: core.Transaction{
				Type: core.Income, Date: core.NewDate(2024, 3, 1),
				Description: "x", Amount: core.Money{Cents: 100}, CategoryID: "food",
			},
			want: core.ErrCategoryKindMismatch,
		},
		{
			name: "zero amount",
			tx: core.Transaction{
				Type: core.Expense, Date: core.NewDate(2024, 3, 1),
				Description: "x", CategoryID: "food",
			},
			want: core.ErrInvalidAmount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Append(ctx, "u1", tt.tx); !errors.Is(err, tt.want) {
				t.Errorf("Append error = %v, want %v", err, tt.want)
			}
		})
	}

	if len(pub.msgs) != 0 {
		t.Errorf("rejected writes must not publish, got %d messages", len(pub.msgs))
	}
}

func TestLedgerService_UpdateAndDelete(t *testing.T) {
	st := memory.New()
	seedSettings(t, st, "u1")
	pub := &capturePublisher{}
	svc := NewLedgerService(st, pub)
	ctx := context.Background()

	id, err := svc.Append(ctx, "u1", core.Transaction{
		Type: core.Expense, Date: core.NewDate(2024, 3, 1),
		Description: "rent", Amount: core.Money{Cents: 80000}, CategoryID: "rent",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	updated := core.Transaction{
		ID: id, Type: core.Expense, Date: core.NewDate(2024, 3, 2),
		Description: "rent march", Amount: core.Money{Cents: 81000}, CategoryID: "rent",
	}
	if err := svc.Update(ctx, "u1", updated); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := svc.Get(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Description != "rent march" || got.Amount.Cents != 81000 {
		t.Errorf("update not applied: %+v", got)
	}

	if err := svc.Delete(ctx, "u1", id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "u1", id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}

	// append + update + delete
	if len(pub.msgs) != 3 {
		t.Errorf("published %d messages, want 3", len(pub.msgs))
	}
}

func TestLedgerService_NilPublisher(t *testing.T) {
	st := memory.New()
	seedSettings(t, st, "u1")
	svc := NewLedgerService(st, nil)

	_, err := svc.Append(context.Background(), "u1", core.Transaction{
		Type: core.Expense, Date: core.NewDate(2024, 3, 1),
		Description: "coffee", Amount: core.Money{Cents: 350}, CategoryID: "food",
	})
	if err != nil {
		t.Fatalf("Append without publisher: %v", err)
	}
}

func TestLedgerService_WatchDeliversSnapshots(t *testing.T) {
	st := memory.New()
	seedSettings(t, st, "u1")
	svc := NewLedgerService(st, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, stop, err := svc.Watch(ctx, "u1")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	id, err := svc.Append(ctx, "u1", core.Transaction{
		Type: core.Expense, Date: core.NewDate(2024, 3, 10),
		Description: "groceries", Amount: core.Money{Cents: 4200}, CategoryID: "food",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	select {
	case snap := <-snapshots:
		if len(snap) != 1 || snap[0].ID != id {
			t.Errorf("snapshot = %+v, want the appended transaction", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered after the append")
	}
}

func TestLedgerService_WatchUnsupportedBackend(t *testing.T) {
	repo, err := sqlite.NewRepository(filepath.Join(t.TempDir(), "kakeibo.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	defer repo.Close()

	svc := NewLedgerService(repo, nil)
	if _, _, err := svc.Watch(context.Background(), "u1"); !errors.Is(err, store.ErrWatchUnsupported) {
		t.Errorf("error = %v, want ErrWatchUnsupported", err)
	}
}
