// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

// Package filesystem provides an asset cache backed by a local directory.
// Each request gets its own subdirectory holding the asset content plus a
// small JSON metadata sidecar per asset. Writes go through a temp file and
// rename so readers never observe partial content.
package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/MerLin027/PaperSynth/pkg/filestore"
)

func init() {
	filestore.Register("filesystem", func(ctx context.Context, params map[string]string) (filestore.Cache, error) {
		root := params["root"]
		if root == "" {
			return nil, errors.New("filesystem cache requires a root directory")
		}
		return New(root)
	})
}

// Store caches assets under a root directory.
type Store struct {
	root string
}

// New creates the root directory if needed and returns a store over it.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache root: %w", err)
	}
	return &Store{root: root}, nil
}

type metadata struct {
	RequestID   string    `json:"request_id"`
	Kind        string    `json:"kind"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Bytes       int64     `json:"bytes"`
	FetchedAt   time.Time `json:"fetched_at"`
}

func (s *Store) contentPath(requestID, kind string) string {
	return filepath.Join(s.root, requestID, kind+".bin")
}

func (s *Store) metaPath(requestID, kind string) string {
	return filepath.Join(s.root, requestID, kind+".json")
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (s *Store) Put(ctx context.Context, asset *filestore.Asset) error {
	dir := filepath.Join(s.root, asset.RequestID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating request directory: %w", err)
	}
	if err := writeAtomic(s.contentPath(asset.RequestID, asset.Kind), asset.Content); err != nil {
		return fmt.Errorf("writing asset content: %w", err)
	}
	meta, err := json.Marshal(metadata{
		RequestID:   asset.RequestID,
		Kind:        asset.Kind,
		Filename:    asset.Filename,
		ContentType: asset.ContentType,
		Bytes:       asset.Bytes,
		FetchedAt:   asset.FetchedAt,
	})
	if err != nil {
		return fmt.Errorf("encoding asset metadata: %w", err)
	}
	if err := writeAtomic(s.metaPath(asset.RequestID, asset.Kind), meta); err != nil {
		return fmt.Errorf("writing asset metadata: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, requestID, kind string) (*filestore.Asset, error) {
	raw, err := os.ReadFile(s.metaPath(requestID, kind))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, filestore.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading asset metadata: %w", err)
	}
	var meta metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decoding asset metadata: %w", err)
	}
	content, err := os.ReadFile(s.contentPath(requestID, kind))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, filestore.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading asset content: %w", err)
	}
	return &filestore.Asset{
		RequestID:   meta.RequestID,
		Kind:        meta.Kind,
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		Bytes:       meta.Bytes,
		Content:     content,
		FetchedAt:   meta.FetchedAt,
	}, nil
}

func (s *Store) Delete(ctx context.Context, requestID string) error {
	if err := os.RemoveAll(filepath.Join(s.root, requestID)); err != nil {
		return fmt.Errorf("removing cached assets: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}
