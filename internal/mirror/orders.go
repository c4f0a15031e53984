package mirror

import (
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/shawarma-timaro/storefront/internal/domain"
)

// firstLocalOrderNumber seeds the ORD-<n> sequence when the mirror holds no
// numbered orders yet.
const firstLocalOrderNumber = 32801

var orderNumberPattern = regexp.MustCompile(`^ORD-(\d+)$`)

// Orders is the mirrored order collection. Every mutation deserializes the
// whole collection, transforms it and writes it back; callers are expected to
// run from a single goroutine per store.
type Orders struct {
	path   string
	logger *slog.Logger
}

func NewOrders(stateDir string, logger *slog.Logger) *Orders {
	return &Orders{
		path:   filepath.Join(stateDir, OrdersKey+".json"),
		logger: logger,
	}
}

func (s *Orders) load() []domain.Order {
	var orders []domain.Order
	readCollection(s.path, &orders, s.logger)
	return orders
}

// Upsert replaces the order with the same id, or appends it.
func (s *Orders) Upsert(order domain.Order) error {
	orders := s.load()

	replaced := false
	for i := range orders {
		if orders[i].ID == order.ID {
			orders[i] = order
			replaced = true
			break
		}
	}
	if !replaced {
		orders = append(orders, order)
	}

	return writeCollection(s.path, orders)
}

// ListAll returns every mirrored order, newest first.
func (s *Orders) ListAll() []domain.Order {
	orders := s.load()
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}

func (s *Orders) ListForUser(userID string) []domain.Order {
	all := s.ListAll()
	orders := make([]domain.Order, 0, len(all))
	for _, order := range all {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders
}

// FindByID returns nil when the id is not mirrored.
func (s *Orders) FindByID(id string) *domain.Order {
	for _, order := range s.load() {
		if order.ID == id {
			return &order
		}
	}
	return nil
}

// SetStatus updates the status of the mirrored order and returns the updated
// record, or nil when the id is not mirrored.
func (s *Orders) SetStatus(id string, status domain.OrderStatus) (*domain.Order, error) {
	orders := s.load()

	for i := range orders {
		if orders[i].ID == id {
			orders[i].Status = status
			if err := writeCollection(s.path, orders); err != nil {
				return nil, err
			}
			updated := orders[i]
			return &updated, nil
		}
	}

	return nil, nil
}

// Delete removes the order with the given id. Deleting an absent id is a
// no-op; there is no remote counterpart to this operation.
func (s *Orders) Delete(id string) error {
	orders := s.load()

	kept := orders[:0]
	for _, order := range orders {
		if order.ID != id {
			kept = append(kept, order)
		}
	}

	return writeCollection(s.path, kept)
}

// Create stores a new order under the next sequential ORD-<n> id. Used by the
// purely local service variant; the synchronizer's fallback path uses
// NewFallbackID instead.
func (s *Orders) Create(order domain.Order) (domain.Order, error) {
	orders := s.load()

	order.ID = fmt.Sprintf("ORD-%d", nextOrderNumber(orders))
	order.CreatedAt = time.Now().UTC()
	orders = append(orders, order)

	if err := writeCollection(s.path, orders); err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func nextOrderNumber(orders []domain.Order) int {
	next := firstLocalOrderNumber
	for _, order := range orders {
		m := orderNumberPattern.FindStringSubmatch(order.ID)
		if m == nil {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(m[1], "%d", &n); err == nil && n >= next {
			next = n + 1
		}
	}
	return next
}

// NewFallbackID generates an id for an order that could not be written
// remotely at all.
func NewFallbackID() string {
	return fmt.Sprintf("LOCAL-%d-%06x", time.Now().UnixMilli(), rand.Intn(1<<24))
}
