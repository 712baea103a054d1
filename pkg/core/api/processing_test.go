// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/MerLin027/PaperSynth/pkg/core/schema"
)

type staticToken string

func (s staticToken) Credential() (string, error) {
	if s == "" {
		return "", errors.New("no credential")
	}
	return string(s), nil
}

func pdfUploadRequest() *schema.ProcessingRequest {
	return &schema.ProcessingRequest{
		Upload: schema.Upload{
			Filename:    "paper.pdf",
			Size:        11,
			ContentType: schema.PDFMimeType,
			Content:     []byte("%PDF-1.4 xx"),
		},
	}
}

func TestProcessPaper_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/process-paper/" {
			t.Errorf("expected /process-paper/, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer service-secret" {
			t.Errorf("Authorization = %q, want the service bearer", auth)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "paper.pdf" {
			t.Errorf("filename = %q", header.Filename)
		}
		if got := r.FormValue("summary_length"); got != "long" {
			t.Errorf("summary_length = %q, want long", got)
		}
		if got := r.FormValue("generate_audio"); got != "false" {
			t.Errorf("generate_audio = %q, want false", got)
		}
		// Unset optional settings must be omitted, not sent as null/empty.
		if _, present := r.MultipartForm.Value["generate_visual"]; present {
			t.Error("generate_visual should be omitted when unset")
		}
		if _, present := r.MultipartForm.Value["sdxl_preset"]; present {
			t.Error("sdxl_preset should be omitted when unset")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(schema.ProcessResult{
			RequestID: "req-1",
			Summary:   "summary text",
			Features:  schema.FeatureFlags{TTS: true},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("service-secret"), Options{})

	req := pdfUploadRequest()
	req.SummaryLength = schema.SummaryLong
	genAudio := false
	req.GenerateAudio = &genAudio

	got, err := client.ProcessPaper(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RequestID != "req-1" {
		t.Errorf("RequestID = %q", got.RequestID)
	}
	if got.Summary != "summary text" {
		t.Errorf("Summary = %q", got.Summary)
	}
}

func TestProcessPaper_AllSettingsSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart: %v", err)
		}
		for field, want := range map[string]string{
			"summary_length":  "short",
			"generate_visual": "true",
			"generate_audio":  "true",
			"sdxl_preset":     "quality",
		} {
			if got := r.FormValue(field); got != want {
				t.Errorf("%s = %q, want %q", field, got, want)
			}
		}
		json.NewEncoder(w).Encode(schema.ProcessResult{RequestID: "req-2"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"), Options{})

	req := pdfUploadRequest()
	req.SummaryLength = schema.SummaryShort
	yes := true
	req.GenerateVisual = &yes
	req.GenerateAudio = &yes
	req.Preset = schema.PresetQuality

	if _, err := client.ProcessPaper(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProcessPaper_InvalidSettingsRejectedLocally(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"), Options{})
	req := pdfUploadRequest()
	req.SummaryLength = "enormous"

	if _, err := client.ProcessPaper(context.Background(), req); err == nil {
		t.Fatal("expected error for invalid summary length")
	}
	if called {
		t.Error("no network call should happen for invalid settings")
	}
}

func TestProcessPaper_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		fmt.Fprint(w, `{"detail":"File too large. Max 10 MB"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"), Options{})
	_, err := client.ProcessPaper(context.Background(), pdfUploadRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := ExtractMessage(err); got != "File too large. Max 10 MB" {
		t.Errorf("ExtractMessage = %q", got)
	}
	if !IsPayloadTooLarge(err) {
		t.Error("413 should classify as payload too large")
	}
}

func TestCheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{
			"status": "healthy",
			"temp_dir": "temp_files",
			"rate_limit_per_minute": 10,
			"concurrency_limit": 2,
			"features": {"sdxl_enabled": true, "tts_enabled": true, "signed_downloads": false},
			"validation": {"gemini": {"status": "ok"}},
			"memory": {"rss_mb": 512.0}
		}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"), Options{})
	got, err := client.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Healthy() {
		t.Error("Healthy() = false")
	}
	if got.RateLimitPerMinute != 10 || got.ConcurrencyLimit != 2 {
		t.Errorf("limits = %d/%d", got.RateLimitPerMinute, got.ConcurrencyLimit)
	}
	if !got.Features.SDXLEnabled || !got.Features.TTSEnabled {
		t.Errorf("features = %+v", got.Features)
	}
	if len(got.Validation) == 0 {
		t.Error("validation diagnostics should pass through as raw JSON")
	}
}

func TestCheckHealth_ErrorPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"detail":"Health check failed: boom"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"), Options{})
	_, err := client.CheckHealth(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got[:21] != "Health check failed: " {
		t.Errorf("error %q should carry the health prefix", got)
	}
}

func TestGetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status/req-7" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{
			"request_id": "req-7",
			"summary_pdf": "/static/req-7/summary.pdf",
			"graphical_abstract": null,
			"voiceover": "/static/req-7/voiceover.mp3",
			"presentation": null
		}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"), Options{})
	got, err := client.GetStatus(context.Background(), "req-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RequestID != "req-7" {
		t.Errorf("RequestID = %q", got.RequestID)
	}
	if got.SummaryPDF == nil || *got.SummaryPDF != "/static/req-7/summary.pdf" {
		t.Errorf("SummaryPDF = %v", got.SummaryPDF)
	}
	if got.GraphicalAbstract != nil || got.Presentation != nil {
		t.Error("null asset URLs should decode to nil")
	}
}

func TestGetStatus_NotFoundPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail":"request_id not found"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"), Options{})
	_, err := client.GetStatus(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "Status check failed: request_id not found"; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestFetchAsset_RelativeCarriesAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("relative fetch should carry auth, got %q", auth)
		}
		if r.URL.Path != "/static/req-1/voiceover.mp3" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"), Options{})
	content, contentType, err := client.FetchAsset(context.Background(), "/static/req-1/voiceover.mp3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(content) != "mp3-bytes" {
		t.Errorf("content = %q", content)
	}
	if contentType != "audio/mpeg" {
		t.Errorf("content type = %q", contentType)
	}
}

func TestFetchAsset_AbsoluteSkipsAuth(t *testing.T) {
	assetSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("absolute fetch must not leak the service credential, got %q", auth)
		}
		w.Write([]byte("pptx-bytes"))
	}))
	defer assetSrv.Close()

	client := NewClient("http://backend.invalid", staticToken("tok"), Options{})
	content, _, err := client.FetchAsset(context.Background(), assetSrv.URL+"/p.pptx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(content) != "pptx-bytes" {
		t.Errorf("content = %q", content)
	}
}

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("summary-pdf-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out", "summary.pdf")

	client := NewClient(srv.URL, staticToken("tok"), Options{})
	if err := client.DownloadFile(context.Background(), "/static/r/summary.pdf", dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read destination: %v", err)
	}
	if string(data) != "summary-pdf-bytes" {
		t.Errorf("content = %q", data)
	}
	if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be gone after a successful download")
	}
}

func TestDownloadFile_FailureLeavesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
		fmt.Fprint(w, `{"detail":"Link expired"}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "summary.pdf")

	client := NewClient(srv.URL, staticToken("tok"), Options{})
	err := client.DownloadFile(context.Background(), "/download?rid=r&file=summary.pdf", dest)
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "Download failed: Link expired"; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	if !IsLinkExpired(err) {
		t.Error("410 should classify as link expired")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("failed download must not leave a destination file")
	}
	if _, statErr := os.Stat(dest + ".tmp"); !os.IsNotExist(statErr) {
		t.Error("failed download must not leave a temp file")
	}
}

func TestUnauthorizedHookFires(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail":"Missing or invalid Authorization header"}`)
	}))
	defer srv.Close()

	fired := 0
	client := NewClient(srv.URL, staticToken("stale"), Options{
		OnUnauthorized: func() { fired++ },
	})

	_, err := client.CheckHealth(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsUnauthorized(err) {
		t.Error("401 should classify as unauthorized")
	}
	if fired != 1 {
		t.Errorf("OnUnauthorized fired %d times, want 1", fired)
	}
}

func TestNoCredentialSendsBareRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("expected no Authorization header, got %q", auth)
		}
		fmt.Fprint(w, `{"status":"healthy"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken(""), Options{})
	if _, err := client.CheckHealth(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
