// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the wire types exchanged with the PaperSynth
// processing backend and the adapted display types the rest of the
// application works with. Backend shapes are received read-only; their raw
// field names never leave the adapter boundary.
package schema

// FeatureFlags mirrors the backend's features object. The flags describe
// what the backend attempted, not what succeeded: an asset URL may be null
// even when its flag is true (the failure shows up as a warning instead).
type FeatureFlags struct {
	SDXL            bool `json:"sdxl"`
	TTS             bool `json:"tts"`
	SignedDownloads bool `json:"signed_downloads"`
}

// ProcessResult is the backend's response to a process-paper call.
// Asset URLs are nullable: the backend omits an asset it could not produce.
// Pages is a pointer because older backend builds do not report it.
type ProcessResult struct {
	RequestID         string       `json:"request_id"`
	Summary           string       `json:"summary"`
	Pages             *int         `json:"pages"`
	SummaryPDF        *string      `json:"summary_pdf"`
	GraphicalAbstract *string      `json:"graphical_abstract"`
	Voiceover         *string      `json:"voiceover"`
	Presentation      *string      `json:"presentation"`
	Features          FeatureFlags `json:"features"`
	SpeakerNotes      *string      `json:"speaker_notes"`
	Warnings          []string     `json:"warnings"`
}

// StatusResult is the backend's per-request status response. It carries the
// four asset URLs and nothing else: the backend does not track incremental
// progress, so callers must not assume a server-side state machine.
type StatusResult struct {
	RequestID         string  `json:"request_id"`
	SummaryPDF        *string `json:"summary_pdf"`
	GraphicalAbstract *string `json:"graphical_abstract"`
	Voiceover         *string `json:"voiceover"`
	Presentation      *string `json:"presentation"`
}
