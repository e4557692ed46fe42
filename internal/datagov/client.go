// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package datagov fetches tabular resources from the data.gov.in open
// data portal, normalizes the portal's JSON, CSV and XML response formats
// into uniform records, and caches results per resource and filter set.
package datagov

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mrmallick07/project-samarth-backend/internal/httputil"
	"github.com/mrmallick07/project-samarth-backend/pkg/types"
)

// DefaultBaseURL is the portal resource endpoint. Declared as a var so
// tests can substitute an httptest server.
var DefaultBaseURL = "https://api.data.gov.in/resource"

const (
	defaultPageSize   = 100
	defaultMaxRecords = 5000
	defaultTimeout    = 20 * time.Second
	defaultUserAgent  = "samarth/0.1"
)

// Client retrieves datasets from the portal. All fields are fixed at
// construction; the cache is the only mutable state and is safe for
// concurrent use, so one Client serves concurrent queries.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	pageSize   int
	maxRecords int
	maxRetries int
	httpClient *http.Client
	registry   *Registry
	cache      *Cache
}

// NewClient builds a portal client from config. The cache is injected so
// tests can isolate it; a nil cache gets a fresh one with the configured
// TTL.
func NewClient(cfg types.PortalConfig, registry *Registry, cache *Cache) *Client {
	c := &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		userAgent:  cfg.UserAgent,
		pageSize:   cfg.PageSize,
		maxRecords: cfg.MaxRecords,
		maxRetries: cfg.MaxRetries,
		registry:   registry,
		cache:      cache,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	if c.maxRecords <= 0 {
		c.maxRecords = defaultMaxRecords
	}
	if c.registry == nil {
		c.registry = BuiltinRegistry()
	}
	if c.cache == nil {
		c.cache = NewCache(cfg.CacheTTL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.httpClient = &http.Client{Timeout: timeout}
	return c
}

// Registry returns the dataset registry the client resolves metadata from.
func (c *Client) Registry() *Registry { return c.registry }

// Fetch retrieves every record of a portal resource matching the filters,
// following pagination until the upstream signals the end of data or the
// record cap is hit. Identical calls within the cache TTL are served from
// the cache without any network request.
func (c *Client) Fetch(ctx context.Context, resourceID string, filters map[string]string) (*types.DatasetResult, error) {
	key := CacheKey(resourceID, filters)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	meta, _ := c.registry.ByResourceID(resourceID)

	result := &types.DatasetResult{
		ResourceID: resourceID,
		Title:      meta.Title,
		Ministry:   meta.Ministry,
		SourceURL:  meta.URL,
	}
	if result.SourceURL == "" {
		result.SourceURL = c.baseURL + "/" + resourceID
	}

	for offset := 0; ; {
		p, err := c.fetchPage(ctx, resourceID, filters, offset)
		if err != nil {
			return nil, err
		}

		if result.Title == "" && p.Title != "" {
			result.Title = p.Title
		}
		for _, fields := range p.Records {
			result.Records = append(result.Records, types.DatasetRecord{
				Fields:     fields,
				ResourceID: resourceID,
				Ministry:   result.Ministry,
			})
		}

		offset += len(p.Records)
		done := len(p.Records) < c.pageSize ||
			(p.Total > 0 && len(result.Records) >= p.Total)
		if len(result.Records) >= c.maxRecords {
			result.Records = result.Records[:c.maxRecords]
			done = true
		}
		if done {
			break
		}
	}

	c.cache.Put(key, result)
	return result, nil
}

// fetchPage retrieves and decodes one page of records.
func (c *Client) fetchPage(ctx context.Context, resourceID string, filters map[string]string, offset int) (page, error) {
	params := url.Values{
		"api-key": {c.apiKey},
		"format":  {"json"},
		"offset":  {fmt.Sprintf("%d", offset)},
		"limit":   {fmt.Sprintf("%d", c.pageSize)},
	}
	for k, v := range filters {
		params.Set("filters["+k+"]", v)
	}

	reqURL := c.baseURL + "/" + resourceID + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return page{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.maxRetries)
	if err != nil {
		return page{}, &UpstreamError{Kind: KindTimeout, ResourceID: resourceID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return page{}, &UpstreamError{
			Kind:       kindForStatus(resp.StatusCode),
			ResourceID: resourceID,
			Status:     resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return page{}, &UpstreamError{Kind: KindTimeout, ResourceID: resourceID, Err: err}
	}

	dec := detectDecoder(resp.Header.Get("Content-Type"), body)
	p, err := dec.decode(body)
	if err != nil {
		return page{}, &UpstreamError{Kind: KindMalformed, ResourceID: resourceID, Err: err}
	}
	return p, nil
}
