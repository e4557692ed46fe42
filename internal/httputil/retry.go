// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across the pipeline.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// transient failures. Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

const defaultMaxRetries = 1

// Retryable reports whether a status code marks a transient failure worth
// retrying: 429 and all 5xx. Client errors, authentication failures in
// particular, are never retried.
func Retryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// DoWithRetry executes an HTTP request and retries transient failures
// (network errors, HTTP 429, HTTP 5xx) with exponential backoff starting
// at RetryBaseDelay. Non-retryable responses are returned immediately.
//
// When maxRetries is 0 the default (1) is used. Before each retry the
// previous response body, if any, is drained and closed. If the context
// is cancelled during a backoff wait the function returns ctx.Err().
// After exhausting retries the last response or error is returned so the
// caller can classify it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err == nil && !Retryable(resp.StatusCode) {
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, err
		}

		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
