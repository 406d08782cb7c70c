// SPDX-License-Identifier: MPL-2.0

// Package modrinth is a minimal client for the parts of the Modrinth
// API the exporter needs: the batch hash-to-version lookup.
package modrinth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the production Modrinth API endpoint.
const DefaultBaseURL = "https://api.modrinth.com/v2"

// DefaultAllowedHosts are the download hosts accepted when resolving
// tracked resources from local metadata. Only files hosted on one of
// these may be referenced from a pack index instead of embedded.
var DefaultAllowedHosts = []string{"cdn.modrinth.com", "cdn-raw.modrinth.com"}

// Client talks to the Modrinth API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a client for the given API base URL. An empty
// baseURL uses the production endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: "mrpack-cli",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// versionFilesRequest is the body of the batch lookup.
type versionFilesRequest struct {
	Hashes    []string `json:"hashes"`
	Algorithm string   `json:"algorithm"`
}

// VersionsByHashes performs a single batch lookup mapping content
// hashes to the project versions that carry them. Hashes unknown to
// Modrinth are simply absent from the result; any transport or decode
// failure is an error the caller must treat as fatal.
func (c *Client) VersionsByHashes(ctx context.Context, hashes []string, algorithm string) (map[string]Version, error) {
	body, err := json.Marshal(versionFilesRequest{Hashes: hashes, Algorithm: algorithm})
	if err != nil {
		return nil, fmt.Errorf("encode version_files request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/version_files", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create version_files request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query version_files: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read version_files response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	versions := make(map[string]Version)
	if err := json.Unmarshal(respBody, &versions); err != nil {
		return nil, fmt.Errorf("decode version_files response: %w", err)
	}
	return versions, nil
}

// HostAllowed reports whether rawURL points at one of the allowed
// download hosts. Unparsable URLs are never allowed.
func HostAllowed(rawURL string, allowed []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	for _, host := range allowed {
		if u.Host == host {
			return true
		}
	}
	return false
}
