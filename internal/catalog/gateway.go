package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cartloop/cartloop/internal/types"
)

// Gateway is the catalog capability consumed by the orchestration core: given
// a vendor and a product name, return that vendor's variants. Failures must be
// classifiable as transient or permanent via the CartloopError Retryable flag;
// the core never assumes every vendor stocks every product.
type Gateway interface {
	Search(ctx context.Context, vendor, productName string) ([]Variant, error)
}

// HTTPGateway implements Gateway against the vendor search REST API
// (GET {base}/api/{vendor}/search?product_name=...).
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// HTTPGatewayOption is a functional option for configuring the HTTPGateway.
type HTTPGatewayOption func(*HTTPGateway)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) HTTPGatewayOption {
	return func(g *HTTPGateway) {
		if c != nil {
			g.client = c
		}
	}
}

// WithGatewayLogger sets the logger for gateway operations.
func WithGatewayLogger(logger *slog.Logger) HTTPGatewayOption {
	return func(g *HTTPGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewHTTPGateway creates a catalog gateway for the vendor API at baseURL.
func NewHTTPGateway(baseURL string, options ...HTTPGatewayOption) *HTTPGateway {
	g := &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Search queries one vendor for a product's variants. Network failures,
// timeouts, and 5xx responses come back retryable; malformed responses and
// 4xx responses come back permanent.
func (g *HTTPGateway) Search(ctx context.Context, vendor, productName string) ([]Variant, error) {
	u := fmt.Sprintf("%s/api/%s/search?product_name=%s", g.baseURL, url.PathEscape(vendor), url.QueryEscape(productName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, types.WrapError(types.CATALOG_SEARCH_FAILED, "building search request", err)
	}

	g.logger.Debug("catalog search", "vendor", vendor, "product", productName)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(vendor, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, types.NewRetryableError(types.CATALOG_UNAVAILABLE,
			fmt.Sprintf("%s returned %d", vendor, resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, types.NewError(types.CATALOG_SEARCH_FAILED,
			fmt.Sprintf("%s rejected search with %d", vendor, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, types.WrapRetryableError(types.CATALOG_UNAVAILABLE, "reading search response", err)
	}

	var sr SearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, types.WrapError(types.CATALOG_INVALID_RESPONSE, "decoding search response", err)
	}

	return validateResponse(vendor, &sr)
}

// validateResponse applies the response-shape checks before variants are
// allowed into the core.
func validateResponse(vendor string, sr *SearchResponse) ([]Variant, error) {
	switch sr.Status {
	case "success", "no_results":
	case "error":
		// The vendor executed the search but reported a server-side problem.
		return nil, types.NewRetryableError(types.CATALOG_UNAVAILABLE,
			fmt.Sprintf("%s reported error: %s", vendor, sr.ErrorMessage))
	default:
		return nil, types.NewError(types.CATALOG_INVALID_RESPONSE,
			fmt.Sprintf("%s returned unknown status %q", vendor, sr.Status))
	}

	for _, v := range sr.Variants {
		if err := v.Validate(); err != nil {
			return nil, types.WrapError(types.CATALOG_INVALID_RESPONSE,
				fmt.Sprintf("invalid variant from %s", vendor), err)
		}
	}

	return sr.Variants, nil
}

// classifyTransportError maps transport-level failures onto the retry
// taxonomy. Context cancellation is surfaced as-is so callers can tell the
// difference from a vendor timeout.
func classifyTransportError(vendor string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.WrapRetryableError(types.CATALOG_TIMEOUT,
			fmt.Sprintf("%s search timed out", vendor), err)
	}

	// Connection refused, reset, DNS failures: all worth retrying.
	return types.WrapRetryableError(types.CATALOG_UNAVAILABLE,
		fmt.Sprintf("%s unreachable", vendor), err)
}
