// Package catalog defines the vendor catalog gateway boundary: the Variant
// model, the Gateway interface consumed by the orchestration core, an HTTP
// client for the vendor search API, and a YAML-seeded in-process simulator.
package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Vendors known to the default deployment. The set actually queried is
// configuration, not a fixed vocabulary.
var DefaultVendors = []string{"bigbasket", "blinkit", "swiggy_instamart", "zepto"}

// Variant is one vendor's concrete offering of a product. Variants are
// produced by a Gateway and are read-only to the orchestration core: they are
// never mutated, only replaced by fresh fetches.
type Variant struct {
	Vendor      string  `json:"vendor" yaml:"vendor"`
	ProductName string  `json:"product_name" yaml:"product_name"`
	Brand       string  `json:"brand" yaml:"brand"`
	Weight      float64 `json:"weight" yaml:"weight"`
	Unit        string  `json:"unit" yaml:"unit"`
	Price       float64 `json:"price" yaml:"price"`
	Category    string  `json:"category,omitempty" yaml:"category,omitempty"`
	InStock     bool    `json:"in_stock" yaml:"in_stock"`
}

// Validate checks structural soundness of a variant received from a vendor.
func (v Variant) Validate() error {
	if v.Vendor == "" {
		return fmt.Errorf("variant missing vendor")
	}
	if v.Brand == "" {
		return fmt.Errorf("variant missing brand")
	}
	if v.Price <= 0 {
		return fmt.Errorf("variant price must be positive, got %v", v.Price)
	}
	if v.Weight <= 0 {
		return fmt.Errorf("variant weight must be positive, got %v", v.Weight)
	}
	if v.Unit == "" {
		return fmt.Errorf("variant missing unit")
	}
	return nil
}

// String returns a compact human-readable description of the variant.
func (v Variant) String() string {
	return fmt.Sprintf("%s %v%s from %s @ ₹%.2f", v.Brand, v.Weight, v.Unit, strings.ToUpper(v.Vendor), v.Price)
}

// SearchResponse is the wire shape returned by the vendor search API.
type SearchResponse struct {
	ProductName      string    `json:"product_name"`
	Variants         []Variant `json:"variants"`
	APIVendor        string    `json:"api_vendor"`
	Status           string    `json:"status"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	SearchExecutedAt time.Time `json:"search_executed_at"`
}

// NormalizeName converts a free-form product name to its canonical key form:
// lowercase with underscores ("Basmati Rice" → "basmati_rice").
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// DisplayName converts a canonical key back to a human-readable form.
func DisplayName(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}
