// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package datagov

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrmallick07/project-samarth-backend/internal/httputil"
	"github.com/mrmallick07/project-samarth-backend/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = 1 * time.Millisecond
}

const rainfallResource = "e9aafad3-6a08-4f66-b59d-38c65e7ae44f"

func testClient(baseURL string, pageSize, maxRecords int) *Client {
	return NewClient(types.PortalConfig{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		PageSize:   pageSize,
		MaxRecords: maxRecords,
	}, BuiltinRegistry(), NewCache(time.Minute))
}

// paginatedServer serves total records in pages honoring offset/limit and
// counts requests.
func paginatedServer(t *testing.T, total int, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		var records []map[string]any
		for i := offset; i < total && i < offset+limit; i++ {
			records = append(records, map[string]any{
				"state":  "Punjab",
				"year":   2020 + i,
				"annual": 600.0 + float64(i),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"title":   "Rainfall in India",
			"total":   total,
			"count":   len(records),
			"records": records,
		})
	}))
}

func TestFetchPaginatesToCompletion(t *testing.T) {
	var calls int32
	ts := paginatedServer(t, 5, &calls)
	defer ts.Close()

	c := testClient(ts.URL, 2, 0)
	res, err := c.Fetch(context.Background(), rainfallResource, nil)
	require.NoError(t, err)

	assert.Len(t, res.Records, 5)
	// Pages of 2: 2+2+1, the short page terminates the loop.
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	// Registry metadata wins over the page title.
	assert.Equal(t, "Rainfall in India", res.Title)
	assert.Equal(t, "India Meteorological Department (IMD)", res.Ministry)
	assert.Equal(t, rainfallResource, res.ResourceID)
}

func TestFetchCachedSecondCallNoNetwork(t *testing.T) {
	var calls int32
	ts := paginatedServer(t, 3, &calls)
	defer ts.Close()

	c := testClient(ts.URL, 10, 0)
	filters := map[string]string{"State": " Punjab "}

	first, err := c.Fetch(context.Background(), rainfallResource, filters)
	require.NoError(t, err)
	callsAfterFirst := atomic.LoadInt32(&calls)

	// Same filters modulo casing and whitespace hit the same cache entry.
	second, err := c.Fetch(context.Background(), rainfallResource, map[string]string{"state": "punjab"})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, callsAfterFirst, atomic.LoadInt32(&calls), "second call must not touch the network")
}

func TestFetchSendsAuthAndFilters(t *testing.T) {
	var gotKey, gotFilter, gotFormat string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("api-key")
		gotFilter = r.URL.Query().Get("filters[state]")
		gotFormat = r.URL.Query().Get("format")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total":0,"count":0,"records":[]}`)
	}))
	defer ts.Close()

	c := testClient(ts.URL, 10, 0)
	_, err := c.Fetch(context.Background(), rainfallResource, map[string]string{"state": "Punjab"})
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "Punjab", gotFilter)
	assert.Equal(t, "json", gotFormat)
}

func TestFetchAuthFailureNoRetry(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := testClient(ts.URL, 10, 0)
	_, err := c.Fetch(context.Background(), rainfallResource, nil)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, KindAuth, ue.Kind)
	assert.Equal(t, rainfallResource, ue.ResourceID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "auth failures must not be retried")
}

func TestFetchRateLimitRetriedOnce(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := testClient(ts.URL, 10, 0)
	_, err := c.Fetch(context.Background(), rainfallResource, nil)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, KindRateLimit, ue.Kind)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "one retry with backoff, then surface")
}

func TestFetchErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   ErrorKind
	}{
		{"not found", http.StatusNotFound, KindNotFound},
		{"forbidden", http.StatusForbidden, KindAuth},
		{"server error after retry", http.StatusInternalServerError, KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			c := testClient(ts.URL, 10, 0)
			_, err := c.Fetch(context.Background(), rainfallResource, nil)

			var ue *UpstreamError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tt.want, ue.Kind)
		})
	}
}

func TestFetchMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{broken`)
	}))
	defer ts.Close()

	c := testClient(ts.URL, 10, 0)
	_, err := c.Fetch(context.Background(), rainfallResource, nil)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, KindMalformed, ue.Kind)
}

func TestFetchTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	c := NewClient(types.PortalConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 20 * time.Millisecond},
		BaseURL:    ts.URL,
		APIKey:     "test-key",
	}, BuiltinRegistry(), NewCache(time.Minute))

	_, err := c.Fetch(context.Background(), rainfallResource, nil)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, KindTimeout, ue.Kind)
}

func TestFetchRecordCap(t *testing.T) {
	// Server lies about pagination: always a full page, absurd total.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		records := make([]map[string]any, limit)
		for i := range records {
			records[i] = map[string]any{"state": "Punjab"}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"total": 1000000, "records": records})
	}))
	defer ts.Close()

	c := testClient(ts.URL, 10, 25)
	res, err := c.Fetch(context.Background(), rainfallResource, nil)
	require.NoError(t, err)
	assert.Len(t, res.Records, 25, "record cap must bound pagination")
}

func TestFetchCSVResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, "state,annual\nPunjab,649.6\nHaryana,577.3\n")
	}))
	defer ts.Close()

	c := testClient(ts.URL, 10, 0)
	res, err := c.Fetch(context.Background(), rainfallResource, nil)
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	v, ok := res.Records[0].Field("state")
	require.True(t, ok)
	assert.Equal(t, "Punjab", v)
	v, ok = res.Records[1].Field("annual")
	require.True(t, ok)
	assert.Equal(t, 577.3, v)
}

func TestFetchXMLResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, `<result><total>1</total><records><item><state>Kerala</state><annual>3055.2</annual></item></records></result>`)
	}))
	defer ts.Close()

	c := testClient(ts.URL, 10, 0)
	res, err := c.Fetch(context.Background(), rainfallResource, nil)
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	v, _ := res.Records[0].Field("annual")
	assert.Equal(t, 3055.2, v)
}

func TestFetchUnknownResourceStillWorks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"title":"Some Portal Dataset","total":0,"count":0,"records":[]}`)
	}))
	defer ts.Close()

	c := testClient(ts.URL, 10, 0)
	res, err := c.Fetch(context.Background(), "unknown-resource", nil)
	require.NoError(t, err)

	// Metadata falls back to the page title and the request URL.
	assert.Equal(t, "Some Portal Dataset", res.Title)
	assert.Equal(t, ts.URL+"/unknown-resource", res.SourceURL)
}

func TestUpstreamErrorMessage(t *testing.T) {
	err := &UpstreamError{Kind: KindAuth, ResourceID: "abc", Status: 401}
	assert.Contains(t, err.Error(), "abc")
	assert.Contains(t, err.Error(), "auth")
	assert.Contains(t, err.Error(), "401")

	wrapped := &UpstreamError{Kind: KindTimeout, ResourceID: "abc", Err: errors.New("dial tcp: timeout")}
	assert.ErrorContains(t, wrapped, "dial tcp")
}
