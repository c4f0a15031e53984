package mirror

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shawarma-timaro/storefront/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOrder(id string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:            id,
		Items:         []domain.OrderItem{{ProductID: "p1", Name: "Classic", Price: 90, Quantity: 1}},
		Total:         90,
		Address:       "Kyiv",
		PaymentMethod: domain.PaymentMethodCash,
		Status:        domain.OrderStatusAccepted,
		CreatedAt:     createdAt,
	}
}

func TestOrders_Upsert(t *testing.T) {
	t.Run("is idempotent per id", func(t *testing.T) {
		store := NewOrders(t.TempDir(), testLogger())

		order := testOrder("ORD-1", time.Now().UTC())
		if err := store.Upsert(order); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		order.Address = "Lviv"
		if err := store.Upsert(order); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		orders := store.ListAll()
		if len(orders) != 1 {
			t.Fatalf("expected 1 order, got %d", len(orders))
		}
		if orders[0].Address != "Lviv" {
			t.Errorf("expected second write to win, got address %q", orders[0].Address)
		}
	})

	t.Run("appends distinct ids", func(t *testing.T) {
		store := NewOrders(t.TempDir(), testLogger())

		if err := store.Upsert(testOrder("a", time.Now().UTC())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := store.Upsert(testOrder("b", time.Now().UTC())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := len(store.ListAll()); got != 2 {
			t.Errorf("expected 2 orders, got %d", got)
		}
	})
}

func TestOrders_ListAll(t *testing.T) {
	t.Run("returns newest first", func(t *testing.T) {
		store := NewOrders(t.TempDir(), testLogger())
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		for i, id := range []string{"old", "mid", "new"} {
			if err := store.Upsert(testOrder(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		orders := store.ListAll()
		if orders[0].ID != "new" || orders[2].ID != "old" {
			t.Errorf("unexpected ordering: %s, %s, %s", orders[0].ID, orders[1].ID, orders[2].ID)
		}
	})

	t.Run("missing file reads as empty", func(t *testing.T) {
		store := NewOrders(t.TempDir(), testLogger())
		if got := len(store.ListAll()); got != 0 {
			t.Errorf("expected empty collection, got %d orders", got)
		}
	})

	t.Run("corrupt file reads as empty", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, OrdersKey+".json")
		if err := os.WriteFile(path, []byte(`{not json]`), 0o644); err != nil {
			t.Fatalf("failed to write corrupt file: %v", err)
		}

		store := NewOrders(dir, testLogger())
		if got := len(store.ListAll()); got != 0 {
			t.Errorf("expected empty collection, got %d orders", got)
		}
	})
}

func TestOrders_ListForUser(t *testing.T) {
	store := NewOrders(t.TempDir(), testLogger())

	mine := testOrder("mine", time.Now().UTC())
	mine.UserID = "user-1"
	theirs := testOrder("theirs", time.Now().UTC())
	theirs.UserID = "user-2"
	guest := testOrder("guest", time.Now().UTC())

	for _, order := range []domain.Order{mine, theirs, guest} {
		if err := store.Upsert(order); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	orders := store.ListForUser("user-1")
	if len(orders) != 1 || orders[0].ID != "mine" {
		t.Errorf("expected only user-1's order, got %+v", orders)
	}
}

func TestOrders_FindByID(t *testing.T) {
	store := NewOrders(t.TempDir(), testLogger())

	if err := store.Upsert(testOrder("known", time.Now().UTC())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order := store.FindByID("known"); order == nil {
		t.Error("expected to find known order")
	}
	if order := store.FindByID("missing-id"); order != nil {
		t.Errorf("expected nil for missing id, got %+v", order)
	}
}

func TestOrders_SetStatus(t *testing.T) {
	t.Run("updates an existing order", func(t *testing.T) {
		store := NewOrders(t.TempDir(), testLogger())
		if err := store.Upsert(testOrder("o1", time.Now().UTC())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		order, err := store.SetStatus("o1", domain.OrderStatusPreparing)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order == nil || order.Status != domain.OrderStatusPreparing {
			t.Fatalf("expected status preparing, got %+v", order)
		}

		if stored := store.FindByID("o1"); stored.Status != domain.OrderStatusPreparing {
			t.Errorf("status update not persisted, got %s", stored.Status)
		}
	})

	t.Run("returns nil for a missing id", func(t *testing.T) {
		store := NewOrders(t.TempDir(), testLogger())

		order, err := store.SetStatus("missing-id", domain.OrderStatusPreparing)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order != nil {
			t.Errorf("expected nil for missing id, got %+v", order)
		}
	})
}

func TestOrders_Delete(t *testing.T) {
	store := NewOrders(t.TempDir(), testLogger())

	if err := store.Upsert(testOrder("keep", time.Now().UTC())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Upsert(testOrder("drop", time.Now().UTC())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Delete("drop"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	orders := store.ListAll()
	if len(orders) != 1 || orders[0].ID != "keep" {
		t.Errorf("expected only the kept order, got %+v", orders)
	}

	// Deleting an absent id is a no-op.
	if err := store.Delete("drop"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOrders_Create(t *testing.T) {
	store := NewOrders(t.TempDir(), testLogger())

	first, err := store.Create(testOrder("", time.Time{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != "ORD-32801" {
		t.Errorf("expected ORD-32801 for the first local order, got %s", first.ID)
	}
	if first.CreatedAt.IsZero() {
		t.Error("expected createdAt to be assigned")
	}

	second, err := store.Create(testOrder("", time.Time{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != "ORD-32802" {
		t.Errorf("expected sequential id ORD-32802, got %s", second.ID)
	}
}

func TestNewFallbackID(t *testing.T) {
	id := NewFallbackID()
	if !strings.HasPrefix(id, "LOCAL-") {
		t.Errorf("expected LOCAL- prefix, got %s", id)
	}
	if id == NewFallbackID() {
		t.Error("expected fallback ids to differ")
	}
}
