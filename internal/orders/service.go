package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/shawarma-timaro/storefront/internal/domain"
	"github.com/shawarma-timaro/storefront/internal/mirror"
)

// RemoteStore is the slice of Repository the synchronizer needs.
type RemoteStore interface {
	Create(ctx context.Context, order *domain.Order) error
	CreateWithID(ctx context.Context, order *domain.Order) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	SetStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Order, error)
	CountAll(ctx context.Context) (int, error)
}

// EventPublisher publishes order lifecycle events. Satisfied by
// messaging.Producer; may be nil when no broker is configured.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// OrderService is what the HTTP layer consumes. Every result carries the
// Source that served it, so callers can tell a remote read from a mirrored
// one.
type OrderService interface {
	Create(ctx context.Context, input CreateInput) (domain.Order, domain.Source, error)
	ListAll(ctx context.Context) ([]domain.Order, domain.Source, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Order, domain.Source, error)
	GetByID(ctx context.Context, id string) (*domain.Order, domain.Source, error)
	SetStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, domain.Source, error)
}

type CreateInput struct {
	UserID        string
	Items         []domain.OrderItem
	Total         float64
	Address       string
	PaymentMethod domain.PaymentMethod
	ChangeAmount  *float64
}

func (in CreateInput) newOrder() domain.Order {
	order := domain.Order{
		UserID:        in.UserID,
		Items:         in.Items,
		Total:         in.Total,
		Address:       in.Address,
		PaymentMethod: in.PaymentMethod,
		ChangeAmount:  in.ChangeAmount,
		Status:        domain.OrderStatusAccepted,
		CreatedAt:     time.Now().UTC(),
	}
	order.NormalizeChange()
	return order
}

// Service orchestrates the remote repository and the local mirror: remote
// first, mirror on failure, and write-through to the mirror after every
// successful remote write so the mirror stays as fresh as the last remote
// call.
type Service struct {
	remote   RemoteStore
	mirror   *mirror.Orders
	events   EventPublisher
	statuses EventPublisher
	logger   *slog.Logger
}

func NewService(remote RemoteStore, m *mirror.Orders, created, statusChanged EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		remote:   remote,
		mirror:   m,
		events:   created,
		statuses: statusChanged,
		logger:   logger,
	}
}

// Create persists a new order. The checkout flow never sees a failure here:
// if the remote write fails the order is kept in the mirror under a
// locally-generated id and returned as a mirrored result.
func (s *Service) Create(ctx context.Context, input CreateInput) (domain.Order, domain.Source, error) {
	order := input.newOrder()

	if err := s.remote.Create(ctx, &order); err != nil {
		s.logger.Warn("remote order create failed, keeping order locally", "error", err)

		order.ID = mirror.NewFallbackID()
		if err := s.mirror.Upsert(order); err != nil {
			s.logger.Error("failed to mirror fallback order", "error", err, "order_id", order.ID)
		}

		s.publishCreated(ctx, order, domain.SourceMirror)
		return order, domain.SourceMirror, nil
	}

	if err := s.mirror.Upsert(order); err != nil {
		s.logger.Error("failed to write order through to mirror", "error", err, "order_id", order.ID)
	}

	s.publishCreated(ctx, order, domain.SourceRemote)
	return order, domain.SourceRemote, nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Order, domain.Source, error) {
	orders, err := s.remote.ListAll(ctx)
	if err != nil {
		s.logger.Warn("remote order list failed, serving mirror", "error", err)
		return s.mirror.ListAll(), domain.SourceMirror, nil
	}
	return orders, domain.SourceRemote, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Order, domain.Source, error) {
	orders, err := s.remote.ListForUser(ctx, userID)
	if err != nil {
		s.logger.Warn("remote user order list failed, serving mirror", "error", err, "user_id", userID)
		return s.mirror.ListForUser(userID), domain.SourceMirror, nil
	}
	return orders, domain.SourceRemote, nil
}

// GetByID returns nil (not an error) when the order exists in neither store.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Order, domain.Source, error) {
	order, err := s.remote.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("remote order lookup failed, serving mirror", "error", err, "order_id", id)
		return s.mirror.FindByID(id), domain.SourceMirror, nil
	}
	return order, domain.SourceRemote, nil
}

// SetStatus merges the status remotely and writes the refreshed record
// through to the mirror. When the remote is unreachable the status is applied
// to the mirrored copy alone; a missing id yields nil in either store.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, domain.Source, error) {
	order, err := s.remote.SetStatus(ctx, id, status)
	if err != nil {
		s.logger.Warn("remote status update failed, updating mirror", "error", err, "order_id", id)

		order, err := s.mirror.SetStatus(id, status)
		if err != nil {
			return nil, domain.SourceMirror, err
		}
		if order != nil {
			s.publishStatus(ctx, *order)
		}
		return order, domain.SourceMirror, nil
	}

	if order == nil {
		return nil, domain.SourceRemote, nil
	}

	if err := s.mirror.Upsert(*order); err != nil {
		s.logger.Error("failed to write status through to mirror", "error", err, "order_id", id)
	}

	s.publishStatus(ctx, *order)
	return order, domain.SourceRemote, nil
}

// Initialize uploads mirrored orders into the remote database when the
// remote collection is empty. One-shot and best-effort: it runs at startup,
// keeps going past individual failures, and relies on id-preserving inserts
// to stay idempotent.
func (s *Service) Initialize(ctx context.Context) error {
	count, err := s.remote.CountAll(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	orders := s.mirror.ListAll()
	if len(orders) == 0 {
		return nil
	}

	uploaded := 0
	for _, order := range orders {
		inserted, err := s.remote.CreateWithID(ctx, &order)
		if err != nil {
			s.logger.Error("failed to upload mirrored order", "error", err, "order_id", order.ID)
			continue
		}
		if inserted {
			uploaded++
		}
	}

	s.logger.Info("mirrored orders reconciled into remote store", "mirrored", len(orders), "uploaded", uploaded)
	return nil
}

func (s *Service) publishCreated(ctx context.Context, order domain.Order, source domain.Source) {
	if s.events == nil {
		return
	}

	event := domain.OrderCreatedEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		Items:         order.Items,
		Total:         order.Total,
		Address:       order.Address,
		PaymentMethod: order.PaymentMethod,
		Source:        source,
		Timestamp:     order.CreatedAt,
	}
	if err := s.events.Publish(ctx, order.ID, event); err != nil {
		s.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
	}
}

func (s *Service) publishStatus(ctx context.Context, order domain.Order) {
	if s.statuses == nil {
		return
	}

	event := domain.OrderStatusChangedEvent{
		OrderID:   order.ID,
		Status:    order.Status,
		Timestamp: time.Now().UTC(),
	}
	if err := s.statuses.Publish(ctx, order.ID, event); err != nil {
		s.logger.Error("failed to publish status changed event", "error", err, "order_id", order.ID)
	}
}
