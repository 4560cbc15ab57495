// Package lookup provides the external product lookup client. Barcodes are
// resolved against the Open Food Facts API and normalized into catalog
// products before they reach the rest of the system.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/pkg/config"
)

var (
	// ErrInvalidBarcode means the barcode failed validation before any lookup
	ErrInvalidBarcode = errors.New("invalid barcode")
	// ErrProductNotFound means the upstream knows nothing about the barcode
	ErrProductNotFound = errors.New("product not found")
	// ErrLookupFailed means the upstream request itself failed
	ErrLookupFailed = errors.New("product lookup failed")
)

// fields kept small so responses stay cheap on mobile connections
const productFields = "code,product_name,brands,quantity,product_quantity,serving_quantity,image_front_small_url,nutriments"

// Client resolves barcodes against Open Food Facts
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.ChanneledLogger
}

// NewClient creates a lookup client from configuration
func NewClient(logger *logging.ChanneledLogger) *Client {
	return &Client{
		baseURL:    config.LookupBaseURL,
		httpClient: &http.Client{Timeout: config.LookupTimeout},
		logger:     logger,
	}
}

// NewClientWithBase creates a lookup client against a specific base URL,
// used by tests to point at a local stub server
func NewClientWithBase(baseURL string, timeout time.Duration, logger *logging.ChanneledLogger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ValidateBarcode checks the barcode shape before any network call. Any
// non-empty all-digit string passes; length is left to the upstream catalog.
func ValidateBarcode(barcode string) error {
	if barcode == "" {
		return ErrInvalidBarcode
	}
	for _, r := range barcode {
		if r < '0' || r > '9' {
			return ErrInvalidBarcode
		}
	}
	return nil
}

// lookupResponse is the upstream response envelope
type lookupResponse struct {
	Status  json.Number      `json:"status"`
	Product *catalog.Product `json:"product"`
}

// FetchProduct resolves a barcode to a normalized product
func (c *Client) FetchProduct(ctx context.Context, barcode string) (*catalog.Product, error) {
	if err := ValidateBarcode(barcode); err != nil {
		return nil, err
	}

	start := time.Now()
	endpoint := fmt.Sprintf("%s/product/%s?fields=%s", c.baseURL, url.PathEscape(barcode), url.QueryEscape(productFields))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	req.Header.Set("User-Agent", "SugarSwap/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Lookup().Error("Upstream lookup request failed", "barcode", barcode, "error", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Lookup().Debug("Product not found upstream", "barcode", barcode)
		return nil, ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Lookup().Error("Upstream lookup returned error status", "barcode", barcode, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: upstream status %d", ErrLookupFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	var envelope lookupResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.logger.Lookup().Error("Upstream lookup returned malformed body", "barcode", barcode, "error", err.Error())
		return nil, fmt.Errorf("%w: malformed response", ErrLookupFailed)
	}

	if status, _ := envelope.Status.Int64(); status != 1 || envelope.Product == nil {
		c.logger.Lookup().Debug("Product not found upstream", "barcode", barcode)
		return nil, ErrProductNotFound
	}

	product := envelope.Product
	if product.Barcode == "" {
		product.Barcode = barcode
	}
	normalizeServingSugar(product)

	c.logger.Lookup().Info("Product resolved",
		"barcode", barcode,
		"product", product.DisplayName(),
		"duration", time.Since(start),
	)
	return product, nil
}

// normalizeServingSugar backfills the per-serving sugar figure from the
// per-100ml figure and the package quantity when the upstream omits it
func normalizeServingSugar(p *catalog.Product) {
	if p.Nutriments.SugarsServing.Float() > 0 {
		return
	}
	quantity := p.ProductQuantity.Float()
	sugars := p.Nutriments.Sugars100g.Float()
	if quantity > 0 && sugars > 0 {
		p.Nutriments.SugarsServing = catalog.Number(quantity / 100.0 * sugars)
	}
}
