package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cartloop/cartloop/internal/types"
)

//go:embed seed.yaml
var defaultSeed []byte

// seedFile is the YAML shape of a catalog seed: variants grouped by vendor,
// then by canonical product name.
type seedFile struct {
	Vendors map[string]map[string][]Variant `yaml:"vendors"`
}

// SimGateway is an in-process Gateway backed by a YAML product seed. It lets
// the CLI run end to end without the external vendor API, and gives tests a
// deterministic catalog with controllable failures.
type SimGateway struct {
	mu       sync.RWMutex
	products map[string]map[string][]Variant // vendor → product → variants
	failures map[string]error                // vendor → injected failure
}

// NewSimGateway builds a simulator from the embedded default seed.
func NewSimGateway() (*SimGateway, error) {
	return newSimFromBytes(defaultSeed)
}

// NewSimGatewayFromFile builds a simulator from a YAML seed file.
func NewSimGatewayFromFile(path string) (*SimGateway, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.CATALOG_SEARCH_FAILED, "reading catalog seed", err)
	}
	return newSimFromBytes(data)
}

func newSimFromBytes(data []byte) (*SimGateway, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, types.WrapError(types.CATALOG_INVALID_RESPONSE, "parsing catalog seed", err)
	}

	products := make(map[string]map[string][]Variant, len(seed.Vendors))
	for vendor, byProduct := range seed.Vendors {
		products[vendor] = make(map[string][]Variant, len(byProduct))
		for product, variants := range byProduct {
			key := NormalizeName(product)
			for i := range variants {
				variants[i].Vendor = vendor
				variants[i].ProductName = key
				if err := variants[i].Validate(); err != nil {
					return nil, types.WrapError(types.CATALOG_INVALID_RESPONSE,
						fmt.Sprintf("seed variant %s/%s", vendor, product), err)
				}
			}
			products[vendor][key] = variants
		}
	}

	return &SimGateway{
		products: products,
		failures: make(map[string]error),
	}, nil
}

// Search returns the seeded variants for vendor/productName. Unknown vendors
// fail permanently; a known vendor without the product returns no variants,
// mirroring the real API's "no_results" status.
func (g *SimGateway) Search(ctx context.Context, vendor, productName string) ([]Variant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if err, ok := g.failures[vendor]; ok {
		return nil, err
	}

	byProduct, ok := g.products[vendor]
	if !ok {
		return nil, types.NewError(types.CATALOG_SEARCH_FAILED, fmt.Sprintf("unknown vendor %q", vendor))
	}

	variants := byProduct[NormalizeName(productName)]
	out := make([]Variant, len(variants))
	copy(out, variants)
	return out, nil
}

// FailVendor injects a failure for a vendor; pass nil to clear it. Used by
// tests to exercise partial vendor outages.
func (g *SimGateway) FailVendor(vendor string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, vendor)
		return
	}
	g.failures[vendor] = err
}

// Vendors returns the vendor names present in the seed, for wiring the
// collector against the simulator without separate configuration.
func (g *SimGateway) Vendors() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.products))
	for vendor := range g.products {
		out = append(out, vendor)
	}
	return out
}
