package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// inscriptionMarker is the substring whose presence in an ord explorer
// /output page marks the output as holding an inscription. The explorer
// serves no structured format, so the body is matched as text.
const inscriptionMarker = "inscription"

// Classifier reports whether an unspent output currently holds an inscribed
// asset. Coin selection excludes outputs classified as inscriptions so the
// asset can never be spent as ordinary payment.
type Classifier interface {
	IsInscription(ctx context.Context, txid string, vout uint32) (bool, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// IsInscription queries the ord explorer for the output page. Any transport
// or HTTP error is returned to the caller and aborts the run: there is no
// local fallback that could safely decide an output is inscription-free.
func (c *Client) IsInscription(ctx context.Context, txid string, vout uint32) (bool, error) {
	url := fmt.Sprintf("%s/output/%s:%d", c.baseURL, txid, vout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to query ord explorer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("ord explorer returned status %d for %s:%d", resp.StatusCode, txid, vout)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read ord explorer response: %w", err)
	}

	return strings.Contains(string(body), inscriptionMarker), nil
}

// Cache memoizes classification results per outpoint. A coin-selection pass
// touches every candidate output, sometimes more than once; caching keeps the
// pass read-consistent and avoids repeat round-trips for the same outpoint.
type Cache struct {
	classifier Classifier
	results    map[string]bool
}

func NewCache(classifier Classifier) *Cache {
	return &Cache{
		classifier: classifier,
		results:    make(map[string]bool),
	}
}

func (c *Cache) IsInscription(ctx context.Context, txid string, vout uint32) (bool, error) {
	key := fmt.Sprintf("%s:%d", txid, vout)
	if cached, ok := c.results[key]; ok {
		return cached, nil
	}

	result, err := c.classifier.IsInscription(ctx, txid, vout)
	if err != nil {
		return false, err
	}
	c.results[key] = result
	return result, nil
}
