package mirror

import (
	"log/slog"
	"path/filepath"

	"github.com/shawarma-timaro/storefront/internal/domain"
)

// Products caches the catalog for menu browsing while the remote database is
// unreachable. Unlike orders it is replaced wholesale on every successful
// remote read; nothing in checkout depends on it.
type Products struct {
	path   string
	logger *slog.Logger
}

func NewProducts(stateDir string, logger *slog.Logger) *Products {
	return &Products{
		path:   filepath.Join(stateDir, ProductsKey+".json"),
		logger: logger,
	}
}

func (s *Products) ListAll() []domain.Product {
	var products []domain.Product
	readCollection(s.path, &products, s.logger)
	return products
}

func (s *Products) ReplaceAll(products []domain.Product) error {
	return writeCollection(s.path, products)
}
