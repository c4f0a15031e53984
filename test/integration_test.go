//go:build integration

package test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shawarma-timaro/storefront/internal/auth"
	"github.com/shawarma-timaro/storefront/internal/domain"
	"github.com/shawarma-timaro/storefront/internal/mirror"
	"github.com/shawarma-timaro/storefront/internal/orders"
	"github.com/shawarma-timaro/storefront/internal/products"
	"github.com/shawarma-timaro/storefront/internal/users"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckoutFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	logger := discardLogger()

	repo := orders.NewRepository(db)
	ordersMirror := mirror.NewOrders(t.TempDir(), logger)
	service := orders.NewService(repo, ordersMirror, nil, nil, logger)

	change := 500.0
	created, source, err := service.Create(ctx, orders.CreateInput{
		UserID: "customer-1",
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Classic", Price: 90, Quantity: 2},
		},
		Total:         180,
		Address:       "Kyiv, Khreshchatyk 1",
		PaymentMethod: domain.PaymentMethodCash,
		ChangeAmount:  &change,
	})
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	if source != domain.SourceRemote {
		t.Fatalf("expected source remote, got %s", source)
	}
	if created.ID == "" {
		t.Fatal("expected an order id")
	}
	if created.Status != domain.OrderStatusAccepted {
		t.Fatalf("expected status %s, got %s", domain.OrderStatusAccepted, created.Status)
	}
	if created.ChangeAmount == nil || *created.ChangeAmount != 500 {
		t.Fatalf("expected change amount 500, got %v", created.ChangeAmount)
	}

	stored, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to fetch order from DB: %v", err)
	}
	if stored == nil {
		t.Fatal("order not found in database")
	}
	if stored.UserID != "customer-1" {
		t.Fatalf("expected user customer-1, got %q", stored.UserID)
	}
	if len(stored.Items) != 1 || stored.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", stored.Items)
	}

	// Every successful remote write lands in the mirror too.
	mirrored := ordersMirror.FindByID(created.ID)
	if mirrored == nil {
		t.Fatal("order missing from the mirror after a remote write")
	}
	if mirrored.Total != 180 {
		t.Fatalf("expected mirrored total 180, got %v", mirrored.Total)
	}
}

func TestOrderStatusFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	logger := discardLogger()

	repo := orders.NewRepository(db)
	ordersMirror := mirror.NewOrders(t.TempDir(), logger)
	service := orders.NewService(repo, ordersMirror, nil, nil, logger)

	created, _, err := service.Create(ctx, orders.CreateInput{
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Classic", Price: 90, Quantity: 1},
		},
		Total:         90,
		Address:       "Kyiv",
		PaymentMethod: domain.PaymentMethodCard,
	})
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	updated, source, err := service.SetStatus(ctx, created.ID, domain.OrderStatusPreparing)
	if err != nil {
		t.Fatalf("failed to set status: %v", err)
	}
	if source != domain.SourceRemote {
		t.Fatalf("expected source remote, got %s", source)
	}
	if updated.Status != domain.OrderStatusPreparing {
		t.Fatalf("expected status %s, got %s", domain.OrderStatusPreparing, updated.Status)
	}

	stored, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if stored.Status != domain.OrderStatusPreparing {
		t.Fatalf("DB status not updated: %s", stored.Status)
	}

	mirrored := ordersMirror.FindByID(created.ID)
	if mirrored == nil || mirrored.Status != domain.OrderStatusPreparing {
		t.Fatalf("mirror status not updated: %+v", mirrored)
	}

	missing, _, err := service.SetStatus(ctx, "no-such-order", domain.OrderStatusCompleted)
	if err != nil {
		t.Fatalf("unexpected error for a missing order: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for a missing order, got %+v", missing)
	}
}

func TestStartupReconciliation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	logger := discardLogger()

	repo := orders.NewRepository(db)
	ordersMirror := mirror.NewOrders(t.TempDir(), logger)

	// Orders captured while the remote database was unreachable.
	for i := 0; i < 3; i++ {
		order := domain.Order{
			ID: mirror.NewFallbackID(),
			Items: []domain.OrderItem{
				{ProductID: "p1", Name: "Classic", Price: 90, Quantity: 1},
			},
			Total:         90,
			Address:       "Kyiv",
			PaymentMethod: domain.PaymentMethodCard,
			Status:        domain.OrderStatusAccepted,
			CreatedAt:     time.Now().UTC(),
		}
		if err := ordersMirror.Upsert(order); err != nil {
			t.Fatalf("failed to seed the mirror: %v", err)
		}
	}

	service := orders.NewService(repo, ordersMirror, nil, nil, logger)
	if err := service.Initialize(ctx); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	count, err := repo.CountAll(ctx)
	if err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 reconciled orders, got %d", count)
	}

	// A second startup against the now-populated database uploads nothing.
	if err := service.Initialize(ctx); err != nil {
		t.Fatalf("second initialize failed: %v", err)
	}
	count, err = repo.CountAll(ctx)
	if err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected reconciliation to be idempotent, got %d orders", count)
	}
}

func TestProductCatalog(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	repo := products.NewRepository(db)

	seed := []domain.Product{
		{ID: "p1", Name: "Classic", Description: "The one that started it", Price: 90, Category: "shawarma"},
		{ID: "p2", Name: "Cheese", Price: 105, Category: "shawarma"},
	}
	if err := repo.Seed(ctx, seed); err != nil {
		t.Fatalf("failed to seed products: %v", err)
	}

	list, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("failed to list products: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 products, got %d", len(list))
	}

	// A partial update keeps the untouched columns.
	price := 95.0
	updated, err := repo.Update(ctx, "p1", products.Update{Price: &price})
	if err != nil {
		t.Fatalf("failed to update product: %v", err)
	}
	if updated.Price != 95 {
		t.Fatalf("expected price 95, got %v", updated.Price)
	}
	if updated.Name != "Classic" {
		t.Fatalf("expected name untouched, got %q", updated.Name)
	}

	if err := repo.Delete(ctx, "p2"); err != nil {
		t.Fatalf("failed to delete product: %v", err)
	}
	gone, err := repo.GetByID(ctx, "p2")
	if err != nil {
		t.Fatalf("failed to get product: %v", err)
	}
	if gone != nil {
		t.Fatalf("expected p2 deleted, got %+v", gone)
	}
}

func TestUserProfiles(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	repo := users.NewRepository(db)

	identity := auth.Identity{UID: "uid-1", Email: "customer@example.com", DisplayName: "Customer"}

	profile, err := repo.EnsureProfile(ctx, identity)
	if err != nil {
		t.Fatalf("failed to ensure profile: %v", err)
	}
	if profile.Email == nil || *profile.Email != "customer@example.com" {
		t.Fatalf("unexpected email %v", profile.Email)
	}
	firstLogin := profile.LastLoginAt

	phone := "+380501234567"
	address := "Kyiv"
	updated, err := repo.UpdateProfile(ctx, "uid-1", users.ProfileUpdate{Phone: &phone, Address: &address})
	if err != nil {
		t.Fatalf("failed to update profile: %v", err)
	}
	if updated.Phone == nil || *updated.Phone != phone {
		t.Fatalf("expected phone %s, got %v", phone, updated.Phone)
	}

	// An empty string clears the column, nil leaves it alone.
	empty := ""
	updated, err = repo.UpdateProfile(ctx, "uid-1", users.ProfileUpdate{Phone: &empty})
	if err != nil {
		t.Fatalf("failed to clear phone: %v", err)
	}
	if updated.Phone != nil {
		t.Fatalf("expected phone cleared, got %v", updated.Phone)
	}
	if updated.Address == nil || *updated.Address != "Kyiv" {
		t.Fatalf("expected address untouched, got %v", updated.Address)
	}

	time.Sleep(10 * time.Millisecond)
	refreshed, err := repo.EnsureProfile(ctx, identity)
	if err != nil {
		t.Fatalf("failed to refresh profile: %v", err)
	}
	if !refreshed.LastLoginAt.After(firstLogin) {
		t.Fatalf("expected last login refreshed, got %v <= %v", refreshed.LastLoginAt, firstLogin)
	}
}

func TestKafkaConnection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	if len(brokers) == 0 {
		t.Fatal("expected at least one broker")
	}

	t.Logf("kafka brokers: %v", brokers)
}
