// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory provides an in-memory asset cache. Contents are lost on
// restart; intended for development and tests.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/MerLin027/PaperSynth/pkg/filestore"
)

func init() {
	filestore.Register("memory", func(ctx context.Context, params map[string]string) (filestore.Cache, error) {
		return New(), nil
	})
}

// Store holds assets in a map keyed by request id and kind.
type Store struct {
	mu     sync.RWMutex
	assets map[string]*filestore.Asset
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{assets: make(map[string]*filestore.Asset)}
}

func key(requestID, kind string) string {
	return requestID + "/" + kind
}

func (s *Store) Put(ctx context.Context, asset *filestore.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *asset
	stored.Content = make([]byte, len(asset.Content))
	copy(stored.Content, asset.Content)
	s.assets[key(asset.RequestID, asset.Kind)] = &stored
	return nil
}

func (s *Store) Get(ctx context.Context, requestID, kind string) (*filestore.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[key(requestID, kind)]
	if !ok {
		return nil, filestore.ErrAssetNotFound
	}
	out := *asset
	out.Content = make([]byte, len(asset.Content))
	copy(out.Content, asset.Content)
	return &out, nil
}

func (s *Store) Delete(ctx context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := requestID + "/"
	for k := range s.assets {
		if strings.HasPrefix(k, prefix) {
			delete(s.assets, k)
		}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets = make(map[string]*filestore.Asset)
	return nil
}
