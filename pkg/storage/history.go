// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage defines the processing history kept by the gateway.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrEntryNotFound is returned when a history entry does not exist.
var ErrEntryNotFound = errors.New("history entry not found")

// Entry records one completed processing request.
type Entry struct {
	RequestID     string    `json:"request_id"`
	Filename      string    `json:"filename"`
	SizeBytes     int64     `json:"size_bytes"`
	Pages         int       `json:"pages"`
	SummaryLength string    `json:"summary_length"`
	Preset        string    `json:"preset,omitempty"`
	Warnings      []string  `json:"warnings,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// History is a persistent log of processing requests, newest first.
type History interface {
	Append(ctx context.Context, e *Entry) error
	Get(ctx context.Context, requestID string) (*Entry, error)
	List(ctx context.Context, limit int) ([]*Entry, error)
	Delete(ctx context.Context, requestID string) error
	Close() error
}
