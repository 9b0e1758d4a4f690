// Package tilesclient is a thin HTTP client for the tiles server's
// "/{z}/{x}/{y}.mvt" endpoint, grounded on the teacher's generated Huma
// client SDK idiom (pkg/geoclient): a small struct wrapping an
// *http.Client and a base URL, with one method per route.
package tilesclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Client fetches rendered MVT tiles from a tiles server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a Client pointed at baseURL (e.g. "http://localhost:8080"),
// using http.DefaultClient if httpClient is nil.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: baseURL, HTTPClient: httpClient}
}

// GetTile fetches the MVT bytes for tile z/x/y. A server response of
// 204 No Content (an empty tile) returns a nil body, the response
// header, and a nil error.
func (c *Client) GetTile(ctx context.Context, z, x, y uint32) ([]byte, http.Header, error) {
	url := fmt.Sprintf("%s/%d/%d/%d.mvt", c.BaseURL, z, x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("tilesclient: build request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("tilesclient: request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, resp.Header, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("tilesclient: %s: unexpected status %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("tilesclient: read body %s: %w", url, err)
	}
	return body, resp.Header, nil
}
