package services

import (
	"context"
	"time"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/progress"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/session"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/lookup"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
)

// ProductFetcher resolves a barcode against the external lookup.
// *lookup.Client satisfies it; tests substitute stubs.
type ProductFetcher interface {
	FetchProduct(ctx context.Context, barcode string) (*catalog.Product, error)
}

// CatalogService resolves barcodes into products through the per-session
// cache, touching the external lookup only on a miss. Cached products are
// never evicted; they persist with the user state.
type CatalogService struct {
	fetcher ProductFetcher
	logger  *logging.ChanneledLogger
}

// NewCatalogService creates a catalog service
func NewCatalogService(fetcher ProductFetcher, logger *logging.ChanneledLogger) *CatalogService {
	return &CatalogService{
		fetcher: fetcher,
		logger:  logger,
	}
}

// ResolveProduct returns the product for a barcode, serving from the
// session's cache when possible. The boolean reports a cache hit.
func (s *CatalogService) ResolveProduct(ctx context.Context, sc *session.Context, barcode string) (*catalog.Product, bool, error) {
	if err := lookup.ValidateBarcode(barcode); err != nil {
		return nil, false, err
	}

	var cached *catalog.Product
	var hit bool
	sc.ReadState(func(_ *progress.GamificationState, products *catalog.Cache) {
		cached, hit = products.Get(barcode)
	})
	if hit {
		s.logger.Catalog().Debug("Product cache hit", "barcode", barcode)
		return cached, true, nil
	}

	start := time.Now()
	product, err := s.fetcher.FetchProduct(ctx, barcode)
	if err != nil {
		return nil, false, err
	}

	sc.WithState(func(_ *progress.GamificationState, products *catalog.Cache) {
		products.Put(barcode, product)
	})

	s.logger.Catalog().Info("Product cached after lookup",
		"barcode", barcode,
		"product", product.DisplayName(),
		"duration", time.Since(start),
	)
	return product, false, nil
}
