// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package datagov

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies an upstream portal failure.
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rate_limit"
	KindNotFound  ErrorKind = "not_found"
	KindMalformed ErrorKind = "malformed"
	KindTimeout   ErrorKind = "timeout"
)

// UpstreamError describes a failed portal fetch. The coordinator converts
// it into a soft failure answer; it never reaches the HTTP caller raw.
type UpstreamError struct {
	Kind       ErrorKind
	ResourceID string
	Status     int
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("portal fetch for %s failed (%s)", e.ResourceID, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(": HTTP %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// kindForStatus maps a non-2xx portal status to an error kind.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusNotFound:
		return KindNotFound
	default:
		// 5xx and anything else unexpected: the portal spoke, but not in
		// a shape we can use.
		return KindMalformed
	}
}
