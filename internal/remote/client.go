// Package remote implements the HTTP clients for Easel's collaborator
// services. Content services expose /capabilities, /can-handle,
// /variants and /generate; the layout service exposes /layouts. All
// bodies are JSON. Callers bound each call with a context deadline; the
// clients themselves carry no timeouts beyond the transport's.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dyluth/easel/pkg/deck"
)

// ContentClient talks to a single remote content service.
type ContentClient struct {
	id      string
	baseURL string
	http    *http.Client
}

// NewContentClient creates a client for one content service.
// The id is the configured service identifier; baseURL is the service's
// root URL without a trailing slash.
func NewContentClient(id, baseURL string) *ContentClient {
	return &ContentClient{
		id:      id,
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// ID returns the configured service identifier.
func (c *ContentClient) ID() string {
	return c.id
}

// FetchCapability queries the service's capability endpoint.
func (c *ContentClient) FetchCapability(ctx context.Context) (*deck.ServiceCapability, error) {
	var capability deck.ServiceCapability
	if err := c.getJSON(ctx, "/capabilities", &capability); err != nil {
		return nil, fmt.Errorf("capability fetch for %s failed: %w", c.id, err)
	}

	// The service reports its own vocabulary; the identity is ours.
	capability.ServiceID = c.id
	capability.FetchedAt = time.Now()

	if err := capability.Validate(); err != nil {
		return nil, fmt.Errorf("capability fetch for %s returned invalid data: %w", c.id, err)
	}

	return &capability, nil
}

// CanHandle asks the service whether it can render a slide in the given
// space.
func (c *ContentClient) CanHandle(ctx context.Context, req *deck.CanHandleRequest) (*deck.CanHandleResponse, error) {
	var resp deck.CanHandleResponse
	if err := c.postJSON(ctx, "/can-handle", req, &resp); err != nil {
		return nil, fmt.Errorf("can-handle query to %s failed: %w", c.id, err)
	}

	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("can-handle response from %s invalid: %w", c.id, err)
	}

	return &resp, nil
}

// RecommendVariants asks the service for a ranked list of variants that
// fit a known space.
func (c *ContentClient) RecommendVariants(ctx context.Context, req *deck.VariantRequest) ([]deck.VariantOption, error) {
	var resp struct {
		Variants []deck.VariantOption `json:"variants"`
	}
	if err := c.postJSON(ctx, "/variants", req, &resp); err != nil {
		return nil, fmt.Errorf("variant query to %s failed: %w", c.id, err)
	}

	for i := range resp.Variants {
		if err := resp.Variants[i].Validate(); err != nil {
			return nil, fmt.Errorf("variant option %d from %s invalid: %w", i, c.id, err)
		}
	}

	return resp.Variants, nil
}

// Generate dispatches one slide's generation call and returns the opaque
// content payload.
func (c *ContentClient) Generate(ctx context.Context, req *deck.GenerateRequest) (*deck.GeneratedContent, error) {
	var content deck.GeneratedContent
	if err := c.postJSON(ctx, "/generate", req, &content); err != nil {
		return nil, fmt.Errorf("generation call to %s failed: %w", c.id, err)
	}

	content.ServiceID = c.id
	return &content, nil
}

// LayoutClient talks to the layout collaborator.
type LayoutClient struct {
	baseURL string
	http    *http.Client
}

// NewLayoutClient creates a client for the layout service.
func NewLayoutClient(baseURL string) *LayoutClient {
	return &LayoutClient{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// RecommendLayouts asks the layout service for ranked layout candidates
// matching a content kind and variant. Ranking and geometry are the
// collaborator's responsibility; the response is returned as-is.
func (c *LayoutClient) RecommendLayouts(ctx context.Context, req *deck.LayoutRequest) ([]deck.RankedLayout, error) {
	var resp struct {
		Layouts []deck.RankedLayout `json:"layouts"`
	}
	if err := postJSON(ctx, c.http, c.baseURL+"/layouts", req, &resp); err != nil {
		return nil, fmt.Errorf("layout query failed: %w", err)
	}

	return resp.Layouts, nil
}

func (c *ContentClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	return do(c.http, req, out)
}

func (c *ContentClient) postJSON(ctx context.Context, path string, in, out any) error {
	return postJSON(ctx, c.http, c.baseURL+path, in, out)
}

func postJSON(ctx context.Context, client *http.Client, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return do(client, req, out)
}

func do(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a bounded slice of the body for the error message.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
