// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/MerLin027/PaperSynth/pkg/core/schema"
)

func TestUpload_RejectsNonPDF(t *testing.T) {
	sizes := []int64{0, 1, 512, 10 * 1024 * 1024, 50 * 1024 * 1024}
	types := []string{"text/plain", "image/png", "application/msword", ""}

	for _, ct := range types {
		for _, size := range sizes {
			err := Upload(schema.Upload{Filename: "a.pdf", Size: size, ContentType: ct}, 10)
			if !errors.Is(err, ErrWrongType) {
				t.Errorf("type %q size %d: err = %v, want ErrWrongType", ct, size, err)
			}
		}
	}
}

func TestUpload_RejectsOversized(t *testing.T) {
	u := schema.Upload{
		Filename:    "big.pdf",
		Size:        12 * 1024 * 1024,
		ContentType: schema.PDFMimeType,
	}
	err := Upload(u, 10)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	if !strings.Contains(err.Error(), "12.00 MB") {
		t.Errorf("message %q should contain the actual size in MB", err.Error())
	}
	if !strings.Contains(err.Error(), "10 MB") {
		t.Errorf("message %q should contain the configured ceiling", err.Error())
	}
}

func TestUpload_SizeBoundary(t *testing.T) {
	exactly := schema.Upload{
		Filename:    "edge.pdf",
		Size:        10 * 1024 * 1024,
		ContentType: schema.PDFMimeType,
	}
	if err := Upload(exactly, 10); err != nil {
		t.Errorf("file at exactly the limit should pass, got %v", err)
	}

	over := exactly
	over.Size++
	if err := Upload(over, 10); !errors.Is(err, ErrTooLarge) {
		t.Errorf("one byte over the limit: err = %v, want ErrTooLarge", err)
	}
}

func TestUpload_RejectsEmpty(t *testing.T) {
	u := schema.Upload{Filename: "empty.pdf", Size: 0, ContentType: schema.PDFMimeType}
	if err := Upload(u, 10); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

func TestUpload_AcceptsValidPDF(t *testing.T) {
	u := schema.Upload{
		Filename:    "paper.pdf",
		Size:        2 * 1024 * 1024,
		ContentType: schema.PDFMimeType,
	}
	if err := Upload(u, 10); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
