package orders

import (
	"context"

	"github.com/shawarma-timaro/storefront/internal/domain"
	"github.com/shawarma-timaro/storefront/internal/mirror"
)

// LocalService runs the order lifecycle against the mirror alone, with no
// remote database behind it. It assigns sequential ORD-<n> ids and supports
// deletion, which the remote-backed service does not.
type LocalService struct {
	mirror *mirror.Orders
}

func NewLocalService(m *mirror.Orders) *LocalService {
	return &LocalService{mirror: m}
}

func (s *LocalService) Create(_ context.Context, input CreateInput) (domain.Order, domain.Source, error) {
	order, err := s.mirror.Create(input.newOrder())
	if err != nil {
		return domain.Order{}, domain.SourceMirror, err
	}
	return order, domain.SourceMirror, nil
}

func (s *LocalService) ListAll(_ context.Context) ([]domain.Order, domain.Source, error) {
	return s.mirror.ListAll(), domain.SourceMirror, nil
}

func (s *LocalService) ListForUser(_ context.Context, userID string) ([]domain.Order, domain.Source, error) {
	return s.mirror.ListForUser(userID), domain.SourceMirror, nil
}

func (s *LocalService) GetByID(_ context.Context, id string) (*domain.Order, domain.Source, error) {
	return s.mirror.FindByID(id), domain.SourceMirror, nil
}

func (s *LocalService) SetStatus(_ context.Context, id string, status domain.OrderStatus) (*domain.Order, domain.Source, error) {
	order, err := s.mirror.SetStatus(id, status)
	return order, domain.SourceMirror, err
}

func (s *LocalService) Delete(_ context.Context, id string) error {
	return s.mirror.Delete(id)
}
