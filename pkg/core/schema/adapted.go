// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "time"

// PaperMetadata is derived display metadata, populated only when the result
// carried speaker notes or warnings.
type PaperMetadata struct {
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
}

// AdaptedPaper is the display shape built from a ProcessResult and the
// original Upload. Name and Size come from the upload, not the backend.
//
// Null handling is deliberately asymmetric and must stay that way for
// compatibility with existing consumers: the primary assets (audio,
// presentation) default to "" when the backend sent null, while the
// secondary assets (summary PDF, graphical abstract) stay nil.
type AdaptedPaper struct {
	FileID               string         `json:"file_id"`
	Name                 string         `json:"name"`
	Size                 int64          `json:"size"`
	Pages                int            `json:"pages"`
	Summary              string         `json:"summary"`
	AudioURL             string         `json:"audio_url"`
	PresentationURL      string         `json:"presentation_url"`
	SummaryPDFURL        *string        `json:"summary_pdf_url,omitempty"`
	GraphicalAbstractURL *string        `json:"graphical_abstract_url,omitempty"`
	SpeakerNotes         *string        `json:"speaker_notes,omitempty"`
	Warnings             []string       `json:"warnings,omitempty"`
	Features             FeatureFlags   `json:"features"`
	UploadedAt           time.Time      `json:"uploaded_at"`
	Metadata             *PaperMetadata `json:"metadata,omitempty"`
}

// HasAudio reports whether narration is playable: a URL alone is not enough,
// the TTS flag must also be set.
func (p *AdaptedPaper) HasAudio() bool {
	return p.AudioURL != "" && p.Features.TTS
}

// HasPresentation reports whether a slide deck is available. The feature
// flag is not consulted: presentation generation is always attempted.
func (p *AdaptedPaper) HasPresentation() bool {
	return p.PresentationURL != ""
}

// HasGraphicalAbstract reports whether a graphical abstract is available:
// the URL must be present and the image-generation flag set. Presence alone
// is checked, not emptiness; the backend never sends an empty URL here.
func (p *AdaptedPaper) HasGraphicalAbstract() bool {
	return p.GraphicalAbstractURL != nil && p.Features.SDXL
}

// HasSummaryPDF reports whether a summary PDF is available. Unlike the
// graphical abstract this requires a non-empty URL and ignores flags.
func (p *AdaptedPaper) HasSummaryPDF() bool {
	return p.SummaryPDFURL != nil && *p.SummaryPDFURL != ""
}
