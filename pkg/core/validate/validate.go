// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

// Package validate checks an upload before any network call is made.
// Validation is pure: no I/O, no panics, every outcome is a return value.
package validate

import (
	"errors"
	"fmt"

	"github.com/MerLin027/PaperSynth/pkg/core/schema"
)

// Sentinel errors for the three rejection rules. Use errors.Is to classify.
var (
	ErrWrongType = errors.New("only PDF files are supported")
	ErrTooLarge  = errors.New("file too large")
	ErrEmpty     = errors.New("file is empty")
)

// DefaultMaxSizeMB matches the backend's upload ceiling.
const DefaultMaxSizeMB = 10

// Upload validates the declared content type, size ceiling, and emptiness
// of an upload. Returns nil when the upload may be submitted.
func Upload(u schema.Upload, maxSizeMB int64) error {
	if u.ContentType != schema.PDFMimeType {
		return fmt.Errorf("%w (got %q)", ErrWrongType, u.ContentType)
	}
	if limit := maxSizeMB * 1024 * 1024; u.Size > limit {
		return fmt.Errorf("%w: file is %.2f MB, the limit is %d MB",
			ErrTooLarge, float64(u.Size)/(1024*1024), maxSizeMB)
	}
	if u.Size == 0 {
		return ErrEmpty
	}
	return nil
}
