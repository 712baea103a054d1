// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "encoding/json"

// HealthFeatures mirrors the features object of the health endpoint. Note
// the key names differ from FeatureFlags; the backend is inconsistent here.
type HealthFeatures struct {
	SDXLEnabled     bool `json:"sdxl_enabled"`
	TTSEnabled      bool `json:"tts_enabled"`
	SignedDownloads bool `json:"signed_downloads"`
}

// HealthStatus is the backend's health response: overall status, operational
// limits, feature flags, and opaque diagnostics. Validation and Memory are
// kept as raw JSON; this layer only passes them through for display.
type HealthStatus struct {
	Status             string          `json:"status"`
	TempDir            string          `json:"temp_dir"`
	RateLimitPerMinute int             `json:"rate_limit_per_minute"`
	ConcurrencyLimit   int             `json:"concurrency_limit"`
	Features           HealthFeatures  `json:"features"`
	Validation         json.RawMessage `json:"validation,omitempty"`
	Memory             json.RawMessage `json:"memory,omitempty"`
}

// Healthy reports whether the backend considers itself fully operational.
func (h *HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}
