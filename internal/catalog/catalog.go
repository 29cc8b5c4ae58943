// Package catalog supplies product data when the remote catalog cannot.
// A fixed snapshot of the storefront assortment ships with the client; the
// resolver serves it for known products and a placeholder for unknown ones.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/cart-sync/internal/pricing"
)

//go:embed products.json
var bundledJSON []byte

// Product is the canonical product shape used throughout the cart engine.
// Every construction path (remote JSON, bundled snapshot, placeholder) goes
// through New, so Price is always a canonical non-negative number and the
// fields are always complete by the time a Product lands on a cart line.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImageRef    string  `json:"image_ref,omitempty"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	InStock     bool    `json:"in_stock"`
}

// New builds a Product from any source shape. The price may arrive as a raw
// number or a formatted display string; both normalize to the same value.
func New(id int64, name string, price any, imageRef, description, category string, inStock bool) Product {
	return Product{
		ID:          id,
		Name:        name,
		Price:       pricing.Normalize(price),
		ImageRef:    FixImageRef(imageRef),
		Description: description,
		Category:    category,
		InStock:     inStock,
	}
}

// Placeholder stands in for a product the resolver knows nothing about.
func Placeholder(id int64) Product {
	return Product{
		ID:      id,
		Name:    fmt.Sprintf("Product %d", id),
		Price:   0,
		InStock: true,
	}
}

// bundledProduct is the wire shape of the embedded snapshot, which keeps the
// same field names the remote catalog uses.
type bundledProduct struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       any    `json:"price"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
	Category    string `json:"category"`
	InStock     bool   `json:"in_stock"`
}

// Resolver looks products up in the bundled snapshot.
type Resolver struct {
	products map[int64]Product
}

// NewResolver loads the snapshot shipped with the client.
func NewResolver() (*Resolver, error) {
	return NewResolverFromJSON(bundledJSON)
}

// NewResolverFromJSON builds a resolver from an explicit snapshot, used by
// tests and by deployments that bundle their own assortment.
func NewResolverFromJSON(data []byte) (*Resolver, error) {
	var raw []bundledProduct
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog snapshot: %w", err)
	}
	products := make(map[int64]Product, len(raw))
	for _, p := range raw {
		products[p.ID] = New(p.ID, p.Name, p.Price, p.ImageURL, p.Description, p.Category, p.InStock)
	}
	return &Resolver{products: products}, nil
}

// Resolve returns the bundled product for the given id, or a placeholder
// when the id is not in the snapshot. It never fails.
func (r *Resolver) Resolve(productID int64) Product {
	if p, ok := r.products[productID]; ok {
		return p
	}
	return Placeholder(productID)
}

// Len reports how many products the snapshot carries.
func (r *Resolver) Len() int {
	return len(r.products)
}

var categoryNames = map[string]string{
	"sofa":     "Диваны",
	"bed":      "Кровати",
	"wardrobe": "Шкафы",
}

// CategoryName maps a category code to its display name, falling back to the
// code itself for categories the client does not know.
func CategoryName(category string) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return category
}

// FixImageRef normalizes the relative image references the remote catalog
// emits. Absolute URLs and already-relative paths pass through unchanged.
func FixImageRef(ref string) string {
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	case strings.HasPrefix(ref, "./"):
		return ref
	case strings.HasPrefix(ref, "/"):
		return "." + ref
	default:
		return "./" + ref
	}
}
