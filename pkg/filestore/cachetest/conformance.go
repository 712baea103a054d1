// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

// Package cachetest provides a shared conformance test suite for
// filestore.Cache implementations. Each backend calls RunConformanceTests
// from its own _test.go file.
package cachetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MerLin027/PaperSynth/pkg/filestore"
)

// RunConformanceTests exercises a Cache implementation against the shared
// contract. The newCache function is called once per sub-test to provide an
// isolated cache instance.
func RunConformanceTests(t *testing.T, newCache func(t *testing.T) filestore.Cache) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		cache := newCache(t)
		defer cache.Close(context.Background())
		ctx := context.Background()

		a := &filestore.Asset{
			RequestID:   "req-abc123",
			Kind:        filestore.KindVoiceover,
			Filename:    "voiceover.mp3",
			ContentType: "audio/mpeg",
			Bytes:       5,
			Content:     []byte("hello"),
			FetchedAt:   time.Now().Truncate(time.Millisecond),
		}

		if err := cache.Put(ctx, a); err != nil {
			t.Fatalf("Put: %v", err)
		}

		got, err := cache.Get(ctx, a.RequestID, a.Kind)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}

		if got.RequestID != a.RequestID || got.Kind != a.Kind || got.Filename != a.Filename ||
			got.ContentType != a.ContentType || got.Bytes != a.Bytes {
			t.Errorf("Get returned unexpected metadata: %+v", got)
		}
		if string(got.Content) != string(a.Content) {
			t.Errorf("content mismatch: got %q, want %q", got.Content, a.Content)
		}
	})

	t.Run("KindsAreIndependent", func(t *testing.T) {
		cache := newCache(t)
		defer cache.Close(context.Background())
		ctx := context.Background()

		for _, kind := range []string{filestore.KindVoiceover, filestore.KindPresentation} {
			a := &filestore.Asset{
				RequestID:   "req-multi",
				Kind:        kind,
				Filename:    filestore.Filename(kind),
				ContentType: "application/octet-stream",
				Bytes:       int64(len(kind)),
				Content:     []byte(kind),
				FetchedAt:   time.Now().Truncate(time.Millisecond),
			}
			if err := cache.Put(ctx, a); err != nil {
				t.Fatalf("Put(%s): %v", kind, err)
			}
		}

		got, err := cache.Get(ctx, "req-multi", filestore.KindPresentation)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got.Content) != filestore.KindPresentation {
			t.Errorf("got content %q for presentation asset", got.Content)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		cache := newCache(t)
		defer cache.Close(context.Background())
		ctx := context.Background()

		a := &filestore.Asset{
			RequestID:   "req-over",
			Kind:        filestore.KindSummaryPDF,
			Filename:    "summary.pdf",
			ContentType: "application/pdf",
			Bytes:       3,
			Content:     []byte("old"),
			FetchedAt:   time.Now().Truncate(time.Millisecond),
		}
		if err := cache.Put(ctx, a); err != nil {
			t.Fatalf("first Put: %v", err)
		}
		a.Content = []byte("newer")
		a.Bytes = 5
		if err := cache.Put(ctx, a); err != nil {
			t.Fatalf("second Put: %v", err)
		}

		got, err := cache.Get(ctx, a.RequestID, a.Kind)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got.Content) != "newer" || got.Bytes != 5 {
			t.Errorf("expected overwritten asset, got %q (%d bytes)", got.Content, got.Bytes)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		cache := newCache(t)
		defer cache.Close(context.Background())
		ctx := context.Background()

		for _, kind := range []string{filestore.KindVoiceover, filestore.KindGraphicalAbstract} {
			a := &filestore.Asset{
				RequestID:   "req-del",
				Kind:        kind,
				Filename:    filestore.Filename(kind),
				ContentType: "application/octet-stream",
				Bytes:       1,
				Content:     []byte("x"),
				FetchedAt:   time.Now().Truncate(time.Millisecond),
			}
			if err := cache.Put(ctx, a); err != nil {
				t.Fatalf("Put(%s): %v", kind, err)
			}
		}

		if err := cache.Delete(ctx, "req-del"); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		for _, kind := range []string{filestore.KindVoiceover, filestore.KindGraphicalAbstract} {
			_, err := cache.Get(ctx, "req-del", kind)
			if !errors.Is(err, filestore.ErrAssetNotFound) {
				t.Errorf("expected ErrAssetNotFound for %s after delete, got: %v", kind, err)
			}
		}
	})

	t.Run("DeleteLeavesOtherRequests", func(t *testing.T) {
		cache := newCache(t)
		defer cache.Close(context.Background())
		ctx := context.Background()

		for _, id := range []string{"req-keep", "req-gone"} {
			a := &filestore.Asset{
				RequestID:   id,
				Kind:        filestore.KindVoiceover,
				Filename:    "voiceover.mp3",
				ContentType: "audio/mpeg",
				Bytes:       1,
				Content:     []byte("x"),
				FetchedAt:   time.Now().Truncate(time.Millisecond),
			}
			if err := cache.Put(ctx, a); err != nil {
				t.Fatalf("Put(%s): %v", id, err)
			}
		}

		if err := cache.Delete(ctx, "req-gone"); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		if _, err := cache.Get(ctx, "req-keep", filestore.KindVoiceover); err != nil {
			t.Errorf("unrelated request evicted: %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		cache := newCache(t)
		defer cache.Close(context.Background())
		ctx := context.Background()

		_, err := cache.Get(ctx, "req-nonexistent", filestore.KindVoiceover)
		if !errors.Is(err, filestore.ErrAssetNotFound) {
			t.Errorf("Get expected ErrAssetNotFound, got: %v", err)
		}

		// Deleting a request with no cached assets is not an error.
		if err := cache.Delete(ctx, "req-nonexistent"); err != nil {
			t.Errorf("Delete of absent request: %v", err)
		}
	})
}
