// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Error is a failed backend request, parsed once at the transport boundary.
// Message is always usable for display; Code and RequestID are present only
// when the backend sent its structured error envelope.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
	Hint       string
}

// Error returns the human-readable message derived from the backend's
// {"detail": ...} envelope, or a generic fallback mentioning the HTTP status
// and request id. It is never empty.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.RequestID != "" {
		return fmt.Sprintf("request failed with status %d (request id %s)", e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// fastapiValidationItem is one entry of FastAPI's list-form detail.
type fastapiValidationItem struct {
	Msg string `json:"msg"`
}

// structuredDetail is the backend's own error envelope.
type structuredDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Hint      string `json:"hint"`
}

// decodeError turns a non-2xx response into an *Error. The body is consumed
// here and nowhere else; downstream code never inspects raw detail shapes.
func decodeError(resp *http.Response, body []byte) *Error {
	apiErr := &Error{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-ID"),
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return apiErr
	}

	detail := envelope.Detail
	switch detail[0] {
	case '"':
		var s string
		if json.Unmarshal(detail, &s) == nil {
			apiErr.Message = s
		}
	case '[':
		var items []fastapiValidationItem
		if json.Unmarshal(detail, &items) == nil && len(items) > 0 {
			apiErr.Message = items[0].Msg
		}
	case '{':
		var sd structuredDetail
		if json.Unmarshal(detail, &sd) == nil {
			apiErr.Code = sd.Code
			apiErr.Message = sd.Message
			apiErr.Hint = sd.Hint
			if sd.RequestID != "" {
				apiErr.RequestID = sd.RequestID
			}
		}
	}
	return apiErr
}

// ExtractMessage derives display text from any failed request. It never
// panics and never returns an empty string.
func ExtractMessage(err error) string {
	if err == nil {
		return "request failed"
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}

// opError prefixes an operation name onto the extracted message while keeping
// the underlying error available to errors.Is/As classification.
type opError struct {
	prefix string
	err    error
}

func (e *opError) Error() string { return e.prefix + ExtractMessage(e.err) }
func (e *opError) Unwrap() error { return e.err }

func wrapOp(prefix string, err error) error {
	return &opError{prefix: prefix, err: err}
}

// statusOf returns the HTTP status carried by err, or 0.
func statusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsTimeout reports whether the failure looks like a timed-out request:
// a transport-level timeout signal or a "timeout" substring in the message.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
}

// IsRateLimited reports whether the backend answered 429.
func IsRateLimited(err error) bool { return statusOf(err) == http.StatusTooManyRequests }

// IsPayloadTooLarge reports whether the backend answered 413.
func IsPayloadTooLarge(err error) bool { return statusOf(err) == http.StatusRequestEntityTooLarge }

// IsLinkExpired reports whether a signed download link has lapsed (410).
func IsLinkExpired(err error) bool { return statusOf(err) == http.StatusGone }

// IsUnauthorized reports whether the backend rejected the service credential.
func IsUnauthorized(err error) bool { return statusOf(err) == http.StatusUnauthorized }
