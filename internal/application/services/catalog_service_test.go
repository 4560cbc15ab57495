package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/session"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/lookup"
)

// countingFetcher records lookups and serves canned products
type countingFetcher struct {
	calls   int
	product *catalog.Product
	err     error
}

func (f *countingFetcher) FetchProduct(ctx context.Context, barcode string) (*catalog.Product, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.product, nil
}

func newTestSession() *session.Context {
	return session.NewContext("tester", nil, nil, nil)
}

func TestResolveProductLooksUpOnMiss(t *testing.T) {
	fetcher := &countingFetcher{product: &catalog.Product{Barcode: "5449000000996", ProductName: "Zero Cola"}}
	svc := NewCatalogService(fetcher, testLogger(t))
	sc := newTestSession()

	product, hit, err := svc.ResolveProduct(context.Background(), sc, "5449000000996")
	if err != nil {
		t.Fatalf("ResolveProduct() error = %v", err)
	}
	if hit {
		t.Error("first resolve should be a miss")
	}
	if product.ProductName != "Zero Cola" {
		t.Errorf("product = %+v", product)
	}
	if fetcher.calls != 1 {
		t.Errorf("lookup calls = %d, want 1", fetcher.calls)
	}
}

func TestResolveProductServesCacheWithoutSecondLookup(t *testing.T) {
	fetcher := &countingFetcher{product: &catalog.Product{Barcode: "5449000000996"}}
	svc := NewCatalogService(fetcher, testLogger(t))
	sc := newTestSession()

	if _, _, err := svc.ResolveProduct(context.Background(), sc, "5449000000996"); err != nil {
		t.Fatalf("first resolve error = %v", err)
	}

	product, hit, err := svc.ResolveProduct(context.Background(), sc, "5449000000996")
	if err != nil {
		t.Fatalf("second resolve error = %v", err)
	}
	if !hit {
		t.Error("second resolve should be a cache hit")
	}
	if product == nil {
		t.Fatal("cached product is nil")
	}
	if fetcher.calls != 1 {
		t.Errorf("lookup calls = %d, want 1 (cache must absorb the second)", fetcher.calls)
	}
}

func TestResolveProductInvalidBarcode(t *testing.T) {
	fetcher := &countingFetcher{}
	svc := NewCatalogService(fetcher, testLogger(t))

	_, _, err := svc.ResolveProduct(context.Background(), newTestSession(), "abc")
	if !errors.Is(err, lookup.ErrInvalidBarcode) {
		t.Errorf("err = %v, want ErrInvalidBarcode", err)
	}
	if fetcher.calls != 0 {
		t.Error("invalid barcode must not reach the lookup")
	}
}

func TestResolveProductNotFoundIsNotCached(t *testing.T) {
	fetcher := &countingFetcher{err: lookup.ErrProductNotFound}
	svc := NewCatalogService(fetcher, testLogger(t))
	sc := newTestSession()

	if _, _, err := svc.ResolveProduct(context.Background(), sc, "12345678"); !errors.Is(err, lookup.ErrProductNotFound) {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}

	// A later scan of the same barcode retries the lookup
	fetcher.err = nil
	fetcher.product = &catalog.Product{Barcode: "12345678"}
	if _, hit, err := svc.ResolveProduct(context.Background(), sc, "12345678"); err != nil || hit {
		t.Fatalf("retry resolve = hit %v err %v, want fresh lookup", hit, err)
	}
	if fetcher.calls != 2 {
		t.Errorf("lookup calls = %d, want 2", fetcher.calls)
	}
}
