// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

// Package filestore caches downloaded backend artifacts so repeated asset
// requests do not hit the backend again. Backends self-register via init(),
// following the database/sql driver pattern: blank-import an implementation
// package to activate it, then call New(name, params).
package filestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrAssetNotFound is returned when an asset is not in the cache.
var ErrAssetNotFound = errors.New("asset not found")

// Asset kinds, matching the four artifacts the backend produces per request.
const (
	KindSummaryPDF        = "summary_pdf"
	KindGraphicalAbstract = "graphical_abstract"
	KindVoiceover         = "voiceover"
	KindPresentation      = "presentation"
)

// Filename returns the backend's canonical file name for an asset kind,
// or "" for an unknown kind.
func Filename(kind string) string {
	switch kind {
	case KindSummaryPDF:
		return "summary.pdf"
	case KindGraphicalAbstract:
		return "graphical_abstract.png"
	case KindVoiceover:
		return "voiceover.mp3"
	case KindPresentation:
		return "presentation.pptx"
	}
	return ""
}

// Asset is one cached artifact of a processing request.
type Asset struct {
	RequestID   string
	Kind        string
	Filename    string
	ContentType string
	Bytes       int64
	Content     []byte
	FetchedAt   time.Time
}

// Cache is the interface for pluggable asset cache backends.
type Cache interface {
	Put(ctx context.Context, asset *Asset) error
	Get(ctx context.Context, requestID, kind string) (*Asset, error)
	// Delete removes every cached asset of a request.
	Delete(ctx context.Context, requestID string) error
	Close(ctx context.Context) error
}

// Factory builds a cache backend from a string parameter map. Backends
// extract the keys they need and ignore the rest.
type Factory func(ctx context.Context, params map[string]string) (Cache, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds a named backend factory. Panics on duplicate registration;
// that is a programming error caught at startup.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("filestore: backend %q already registered", name))
	}
	factories[name] = f
}

// New creates a cache backend by name.
func New(ctx context.Context, name string, params map[string]string) (Cache, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown asset cache backend: %q (available: %v)", name, Available())
	}
	return f(ctx, params)
}

// Available returns the sorted list of registered backend names.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
