// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "fmt"

// PDFMimeType is the only content type accepted for uploads.
const PDFMimeType = "application/pdf"

// SummaryLength selects how long the generated summary should be.
type SummaryLength string

const (
	SummaryShort  SummaryLength = "short"
	SummaryMedium SummaryLength = "medium"
	SummaryLong   SummaryLength = "long"
)

// Valid reports whether the value is one of the accepted lengths.
func (l SummaryLength) Valid() bool {
	switch l {
	case SummaryShort, SummaryMedium, SummaryLong:
		return true
	}
	return false
}

// ImagePreset selects the quality/speed trade-off for graphical abstract
// generation.
type ImagePreset string

const (
	PresetFast     ImagePreset = "fast"
	PresetBalanced ImagePreset = "balanced"
	PresetQuality  ImagePreset = "quality"
)

// Valid reports whether the value is one of the accepted presets.
func (p ImagePreset) Valid() bool {
	switch p {
	case PresetFast, PresetBalanced, PresetQuality:
		return true
	}
	return false
}

// Upload is the user-selected file plus its declared metadata. It exists
// only between file selection and submission; nothing retains it afterwards.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Content     []byte
}

// ProcessingRequest carries the upload and the optional generation settings
// for a single process-paper call. Zero-valued optional fields are omitted
// from the request body entirely, never sent as null.
type ProcessingRequest struct {
	Upload Upload

	SummaryLength  SummaryLength // "" = backend default
	GenerateVisual *bool         // nil = backend default
	GenerateAudio  *bool         // nil = backend default
	Preset         ImagePreset   // "" = backend default
}

// Validate checks the enumerated settings; the upload itself is checked by
// the validate package.
func (r *ProcessingRequest) Validate() error {
	if r.SummaryLength != "" && !r.SummaryLength.Valid() {
		return fmt.Errorf("invalid summary length %q", r.SummaryLength)
	}
	if r.Preset != "" && !r.Preset.Valid() {
		return fmt.Errorf("invalid image preset %q", r.Preset)
	}
	return nil
}
