// Package catalog provides domain entities for scanned products and the
// per-user product cache.
package catalog

import (
	"bytes"
	"strconv"
	"time"
)

// Number decodes JSON values that arrive as a number, a numeric string, or
// null. Open Food Facts mixes all three for nutriment fields.
type Number float64

// UnmarshalJSON implements tolerant numeric decoding
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		s := string(data[1 : len(data)-1])
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*n = 0
			return nil // Unparseable strings read as absent, not as errors
		}
		*n = Number(v)
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// Float returns the plain float64 value
func (n Number) Float() float64 { return float64(n) }

// Nutriments holds the per-product nutrition facts we consume
type Nutriments struct {
	Sugars100g    Number `json:"sugars_100g"`
	SugarsServing Number `json:"sugars_serving"`
	EnergyKcal    Number `json:"energy-kcal_100g"`
}

// Product is a normalized product record from an external lookup
type Product struct {
	Barcode         string     `json:"code"`
	ProductName     string     `json:"product_name"`
	Brands          string     `json:"brands"`
	Quantity        string     `json:"quantity"` // Display quantity, e.g. "330 ml"
	ProductQuantity Number     `json:"product_quantity"`
	ServingQuantity Number     `json:"serving_quantity"`
	ImageURL        string     `json:"image_front_small_url"`
	Nutriments      Nutriments `json:"nutriments"`
}

// DisplayName returns the best human-readable name for the product
func (p *Product) DisplayName() string {
	if p.ProductName != "" {
		return p.ProductName
	}
	if p.Brands != "" {
		return p.Brands
	}
	return "Unknown Product"
}

// CachedProduct wraps a product with cache bookkeeping
type CachedProduct struct {
	Product  *Product  `json:"product"`
	CachedAt time.Time `json:"cached_at"`
}

// Cache is a per-user barcode-keyed product cache. It is not safe for
// concurrent use; the owning session context serializes access.
type Cache struct {
	Products map[string]*CachedProduct `json:"products"`
}

// NewCache creates an empty product cache
func NewCache() *Cache {
	return &Cache{Products: make(map[string]*CachedProduct)}
}

// Get returns the cached product for a barcode, if present
func (c *Cache) Get(barcode string) (*Product, bool) {
	if c.Products == nil {
		return nil, false
	}
	entry, ok := c.Products[barcode]
	if !ok || entry.Product == nil {
		return nil, false
	}
	return entry.Product, true
}

// Put stores a product under its barcode
func (c *Cache) Put(barcode string, product *Product) {
	if c.Products == nil {
		c.Products = make(map[string]*CachedProduct)
	}
	c.Products[barcode] = &CachedProduct{Product: product, CachedAt: time.Now()}
}

// Len returns the number of cached products
func (c *Cache) Len() int {
	return len(c.Products)
}
