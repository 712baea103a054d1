// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

package filestore_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MerLin027/PaperSynth/pkg/filestore"
	_ "github.com/MerLin027/PaperSynth/pkg/filestore/filesystem"
	_ "github.com/MerLin027/PaperSynth/pkg/filestore/memory"
)

func TestNewSelectsRegisteredBackend(t *testing.T) {
	ctx := context.Background()

	cache, err := filestore.New(ctx, "memory", nil)
	if err != nil {
		t.Fatalf("New(memory): %v", err)
	}
	defer cache.Close(ctx)

	a := &filestore.Asset{
		RequestID:   "req-reg",
		Kind:        filestore.KindVoiceover,
		Filename:    "voiceover.mp3",
		ContentType: "audio/mpeg",
		Bytes:       5,
		Content:     []byte("audio"),
		FetchedAt:   time.Now(),
	}
	if err := cache.Put(ctx, a); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := cache.Get(ctx, "req-reg", filestore.KindVoiceover)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got.Content) != "audio" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestNewFilesystemTakesRootParam(t *testing.T) {
	ctx := context.Background()

	cache, err := filestore.New(ctx, "filesystem", map[string]string{"root": t.TempDir()})
	if err != nil {
		t.Fatalf("New(filesystem): %v", err)
	}
	cache.Close(ctx)

	// The filesystem backend must refuse to run without a root directory.
	if _, err := filestore.New(ctx, "filesystem", nil); err == nil {
		t.Error("expected error for filesystem backend without root")
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := filestore.New(context.Background(), "punchcards", nil)
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if !strings.Contains(err.Error(), "punchcards") {
		t.Errorf("error should name the unknown backend: %v", err)
	}
	for _, name := range []string{"memory", "filesystem"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should list available backend %q: %v", name, err)
		}
	}
}

func TestAvailableListsBackends(t *testing.T) {
	available := filestore.Available()
	for _, want := range []string{"filesystem", "memory"} {
		found := false
		for _, name := range available {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Available() = %v, missing %q", available, want)
		}
	}
}
