package products

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/shawarma-timaro/storefront/internal/blob"
	"github.com/shawarma-timaro/storefront/internal/domain"
	"github.com/shawarma-timaro/storefront/internal/mirror"
)

// CatalogStore is the slice of Repository the service needs.
type CatalogStore interface {
	ListAll(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, id string, update Update) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	CountAll(ctx context.Context) (int, error)
	Seed(ctx context.Context, products []domain.Product) error
}

// ImageUpload carries raw image bytes destined for blob storage.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// Service layers catalog reads with the same mirror-fallback pattern the
// order synchronizer uses, and routes image uploads through blob storage
// before the document write.
type Service struct {
	store  CatalogStore
	mirror *mirror.Products
	blobs  blob.Store
	logger *slog.Logger
}

func NewService(store CatalogStore, m *mirror.Products, blobs blob.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		mirror: m,
		blobs:  blobs,
		logger: logger,
	}
}

// ListAll serves the remote catalog, refreshing the mirror on success and
// falling back to it on failure.
func (s *Service) ListAll(ctx context.Context) ([]domain.Product, domain.Source, error) {
	products, err := s.store.ListAll(ctx)
	if err != nil {
		s.logger.Warn("remote catalog list failed, serving mirror", "error", err)
		return s.mirror.ListAll(), domain.SourceMirror, nil
	}

	if err := s.mirror.ReplaceAll(products); err != nil {
		s.logger.Error("failed to refresh product mirror", "error", err)
	}

	return products, domain.SourceRemote, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, p *domain.Product, image *ImageUpload) error {
	if image != nil {
		url, err := s.uploadImage(ctx, image)
		if err != nil {
			return err
		}
		p.ImageURL = url
	}

	return s.store.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, id string, update Update, image *ImageUpload) (*domain.Product, error) {
	if image != nil {
		url, err := s.uploadImage(ctx, image)
		if err != nil {
			return nil, err
		}
		update.ImageURL = &url
	}

	return s.store.Update(ctx, id, update)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// SeedIfEmpty loads the initial catalog once; a non-empty catalog is left
// alone.
func (s *Service) SeedIfEmpty(ctx context.Context, products []domain.Product) error {
	count, err := s.store.CountAll(ctx)
	if err != nil {
		return err
	}
	if count > 0 || len(products) == 0 {
		return nil
	}

	if err := s.store.Seed(ctx, products); err != nil {
		return err
	}

	s.logger.Info("catalog seeded", "products", len(products))
	return nil
}

func (s *Service) uploadImage(ctx context.Context, image *ImageUpload) (string, error) {
	name := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), path.Base(image.Filename))
	url, err := s.blobs.Put(ctx, "products/"+name, image.Data)
	if err != nil {
		return "", fmt.Errorf("upload product image: %w", err)
	}
	return url, nil
}
