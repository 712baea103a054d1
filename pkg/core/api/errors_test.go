// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func responseWith(status int, requestID string) *http.Response {
	resp := &http.Response{StatusCode: status, Header: http.Header{}}
	if requestID != "" {
		resp.Header.Set("X-Request-ID", requestID)
	}
	return resp
}

func TestDecodeError_StringDetail(t *testing.T) {
	err := decodeError(responseWith(400, ""), []byte(`{"detail":"Please upload a .pdf file"}`))
	if err.Message != "Please upload a .pdf file" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Error() != "Please upload a .pdf file" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestDecodeError_ValidationList(t *testing.T) {
	body := `{"detail":[{"loc":["query","summary_length"],"msg":"value is not a valid enumeration member","type":"type_error.enum"},{"loc":["x"],"msg":"second"}]}`
	err := decodeError(responseWith(422, ""), []byte(body))
	if err.Message != "value is not a valid enumeration member" {
		t.Errorf("Message = %q, want the first item's msg", err.Message)
	}
}

func TestDecodeError_StructuredEnvelope(t *testing.T) {
	body := `{"detail":{"code":"PDF_INVALID","message":"Invalid or corrupted PDF file","request_id":"abc123"}}`
	err := decodeError(responseWith(400, ""), []byte(body))
	if err.Code != "PDF_INVALID" {
		t.Errorf("Code = %q", err.Code)
	}
	if err.Message != "Invalid or corrupted PDF file" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.RequestID != "abc123" {
		t.Errorf("RequestID = %q", err.RequestID)
	}
}

func TestDecodeError_FallbackMentionsStatusAndRequestID(t *testing.T) {
	err := decodeError(responseWith(502, "rid-9"), []byte("upstream exploded"))
	msg := err.Error()
	if !strings.Contains(msg, "502") {
		t.Errorf("fallback %q should mention the status", msg)
	}
	if !strings.Contains(msg, "rid-9") {
		t.Errorf("fallback %q should mention the request id", msg)
	}
}

func TestDecodeError_EmptyBody(t *testing.T) {
	err := decodeError(responseWith(500, ""), nil)
	if err.Error() == "" {
		t.Error("Error() must never be empty")
	}
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "request failed"},
		{"api error", &Error{StatusCode: 400, Message: "bad input"}, "bad input"},
		{"wrapped api error", fmt.Errorf("outer: %w", &Error{StatusCode: 429, Message: "Too many requests. Please slow down."}), "Too many requests. Please slow down."},
		{"plain error", errors.New("connection refused"), "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractMessage(tt.err); got != tt.want {
				t.Errorf("ExtractMessage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpError_PrefixAndUnwrap(t *testing.T) {
	inner := &Error{StatusCode: 503, Message: "backend down"}
	err := wrapOp("Health check failed: ", inner)

	if got := err.Error(); got != "Health check failed: backend down" {
		t.Errorf("Error() = %q", got)
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 503 {
		t.Error("wrapped *Error should remain reachable via errors.As")
	}
}

func TestClassifiers(t *testing.T) {
	if !IsRateLimited(&Error{StatusCode: 429}) {
		t.Error("429 should classify as rate limited")
	}
	if !IsPayloadTooLarge(&Error{StatusCode: 413}) {
		t.Error("413 should classify as payload too large")
	}
	if !IsLinkExpired(&Error{StatusCode: 410}) {
		t.Error("410 should classify as link expired")
	}
	if !IsUnauthorized(&Error{StatusCode: 401}) {
		t.Error("401 should classify as unauthorized")
	}
	if IsRateLimited(&Error{StatusCode: 500}) {
		t.Error("500 should not classify as rate limited")
	}

	if !IsTimeout(context.DeadlineExceeded) {
		t.Error("deadline exceeded should classify as timeout")
	}
	if !IsTimeout(errors.New("Gemini API timeout while summarizing")) {
		t.Error("a 'timeout' substring should classify as timeout")
	}
	if IsTimeout(&Error{StatusCode: 500, Message: "boom"}) {
		t.Error("ordinary failure should not classify as timeout")
	}
}
