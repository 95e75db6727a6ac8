package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultGateways is the ordered fallback list for content-addressed
// retrieval. The first entry is the preferred gateway.
var DefaultGateways = []string{
	"https://ipfs.io/ipfs/",
	"https://gateway.pinata.cloud/ipfs/",
	"https://cloudflare-ipfs.com/ipfs/",
	"https://gateway.ipfs.io/ipfs/",
}

// ErrNotFound is returned when every gateway failed to serve a document.
var ErrNotFound = errors.New("content not found on any gateway")

// Resolver normalizes content URIs and fetches JSON documents with
// gateway fallback.
type Resolver struct {
	client   *http.Client
	gateways []string
	logger   *zap.Logger
}

func New(gateways []string, timeout time.Duration, logger *zap.Logger) *Resolver {
	if len(gateways) == 0 {
		gateways = DefaultGateways
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		client:   &http.Client{Timeout: timeout},
		gateways: gateways,
		logger:   logger,
	}
}

// Resolve converts a content URI into a retrieval URL against the given
// gateway. Absolute http(s) URLs pass through unchanged; unrecognized
// forms are returned as-is.
func Resolve(uri, gateway string) string {
	switch {
	case uri == "":
		return ""
	case strings.HasPrefix(uri, "http"):
		return uri
	case strings.HasPrefix(uri, "ipfs://"):
		return gateway + strings.TrimPrefix(uri, "ipfs://")
	case strings.HasPrefix(uri, "ipfs/"):
		return gateway + strings.TrimPrefix(uri, "ipfs/")
	case strings.HasPrefix(uri, "Qm"):
		return gateway + uri
	default:
		return uri
	}
}

// Preferred resolves a URI against the resolver's first gateway.
func (r *Resolver) Preferred(uri string) string {
	return Resolve(uri, r.gateways[0])
}

// IsContentURI reports whether the URI is a recognized content-addressed
// form or already points at a known gateway.
func (r *Resolver) IsContentURI(uri string) bool {
	if strings.HasPrefix(uri, "ipfs://") || strings.HasPrefix(uri, "ipfs/") || strings.HasPrefix(uri, "Qm") {
		return true
	}
	for _, gateway := range r.gateways {
		if strings.HasPrefix(uri, gateway) {
			return true
		}
	}
	return false
}

// FetchJSON walks the gateway list once, decoding the first successful
// response into out. A non-2xx status or transport error moves on to the
// next gateway; only after all gateways fail does it return ErrNotFound.
func (r *Resolver) FetchJSON(ctx context.Context, uri string, out any) error {
	var lastErr error
	for _, gateway := range r.gateways {
		url := Resolve(uri, gateway)
		if err := r.fetchOne(ctx, url, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Debug("gateway fetch failed", zap.String("url", url), zap.Error(err))
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %s (last error: %v)", ErrNotFound, uri, lastErr)
	}
	return fmt.Errorf("%w: %s", ErrNotFound, uri)
}

func (r *Resolver) fetchOne(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
