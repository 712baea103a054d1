// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

// Command papersynth is the command-line client for the PaperSynth
// processing backend: submit a paper, check backend health, inspect a
// request's status, and download generated assets.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MerLin027/PaperSynth/pkg/auth"
	"github.com/MerLin027/PaperSynth/pkg/core/api"
	"github.com/MerLin027/PaperSynth/pkg/core/schema"
	"github.com/MerLin027/PaperSynth/pkg/core/validate"
	"github.com/MerLin027/PaperSynth/pkg/filestore"
	"github.com/MerLin027/PaperSynth/pkg/observability/logging"
	"github.com/MerLin027/PaperSynth/pkg/pdfinfo"
)

var (
	// Version is set via ldflags during build
	Version   = "dev"
	BuildTime = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `PaperSynth CLI

Usage:
  papersynth process <paper.pdf> [flags]
  papersynth health
  papersynth status <request-id>
  papersynth download <request-id-or-url> <asset> [flags]
  papersynth version

Environment:
  PAPERSYNTH_BACKEND_URL  backend base URL (default http://localhost:8000)
  PAPERSYNTH_API_TOKEN    service secret sent as a bearer credential

Assets: summary_pdf, graphical_abstract, voiceover, presentation
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	baseURL := os.Getenv("PAPERSYNTH_BACKEND_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	tokens := auth.NewServiceToken(os.Getenv("PAPERSYNTH_API_TOKEN"))
	logger := logging.New(logging.Config{Level: "warn", Format: "text", Output: os.Stderr})
	client := api.NewClient(baseURL, tokens, api.Options{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "process":
		err = runProcess(ctx, client, os.Args[2:])
	case "health":
		err = runHealth(ctx, client)
	case "status":
		err = runStatus(ctx, client, os.Args[2:])
	case "download":
		err = runDownload(ctx, client, os.Args[2:])
	case "version":
		fmt.Printf("PaperSynth CLI\nVersion: %s\nBuild Time: %s\n", Version, BuildTime)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runProcess(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	summaryLength := fs.String("summary", "", "summary length: short, medium, or long")
	preset := fs.String("preset", "", "image preset: fast, balanced, or quality")
	visual := fs.String("visual", "", "generate graphical abstract: true or false")
	audio := fs.String("audio", "", "generate voiceover: true or false")
	asJSON := fs.Bool("json", false, "print the raw adapted result as JSON")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("process needs exactly one PDF path")
	}
	path := fs.Arg(0)

	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	upload := schema.Upload{
		Filename:    filepath.Base(path),
		Size:        int64(len(content)),
		ContentType: schema.PDFMimeType,
		Content:     content,
	}
	if _, err := pdfinfo.Inspect(content); errors.Is(err, pdfinfo.ErrNotPDF) {
		return validate.ErrWrongType
	}
	if err := validate.Upload(upload, validate.DefaultMaxSizeMB); err != nil {
		return err
	}

	req := &schema.ProcessingRequest{
		Upload:        upload,
		SummaryLength: schema.SummaryLength(*summaryLength),
		Preset:        schema.ImagePreset(*preset),
	}
	req.GenerateVisual, err = parseOptionalBool(*visual, "visual")
	if err != nil {
		return err
	}
	req.GenerateAudio, err = parseOptionalBool(*audio, "audio")
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Processing %s (%.2f MB), this can take a few minutes...\n",
		upload.Filename, float64(upload.Size)/(1024*1024))

	start := time.Now()
	result, err := client.ProcessPaper(ctx, req)
	if err != nil {
		return err
	}
	paper := api.AdaptResult(result, upload)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(paper)
	}

	fmt.Printf("Request ID:  %s\n", paper.FileID)
	fmt.Printf("Pages:       %d\n", paper.Pages)
	fmt.Printf("Elapsed:     %s\n", time.Since(start).Round(time.Second))
	fmt.Printf("\nSummary:\n%s\n\n", paper.Summary)
	printAsset("Summary PDF", paper.HasSummaryPDF(), ptrValue(paper.SummaryPDFURL))
	printAsset("Graphical abstract", paper.HasGraphicalAbstract(), ptrValue(paper.GraphicalAbstractURL))
	printAsset("Voiceover", paper.HasAudio(), paper.AudioURL)
	printAsset("Presentation", paper.HasPresentation(), paper.PresentationURL)
	for _, warning := range paper.Warnings {
		fmt.Printf("Warning: %s\n", warning)
	}
	return nil
}

func parseOptionalBool(v, name string) (*bool, error) {
	switch v {
	case "":
		return nil, nil
	case "true":
		b := true
		return &b, nil
	case "false":
		b := false
		return &b, nil
	}
	return nil, fmt.Errorf("invalid %s value %q, expected true or false", name, v)
}

func printAsset(label string, available bool, url string) {
	if available {
		fmt.Printf("%-19s %s\n", label+":", url)
	} else {
		fmt.Printf("%-19s not generated\n", label+":")
	}
}

func ptrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func runHealth(ctx context.Context, client *api.Client) error {
	status, err := client.CheckHealth(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Status:           %s\n", status.Status)
	fmt.Printf("Rate limit:       %d/minute\n", status.RateLimitPerMinute)
	fmt.Printf("Concurrency:      %d\n", status.ConcurrencyLimit)
	fmt.Printf("SDXL enabled:     %t\n", status.Features.SDXLEnabled)
	fmt.Printf("TTS enabled:      %t\n", status.Features.TTSEnabled)
	fmt.Printf("Signed downloads: %t\n", status.Features.SignedDownloads)
	return nil
}

func runStatus(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("status needs exactly one request id")
	}
	status, err := client.GetStatus(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Request ID: %s\n", status.RequestID)
	printAsset("Summary PDF", status.SummaryPDF != nil, ptrValue(status.SummaryPDF))
	printAsset("Graphical abstract", status.GraphicalAbstract != nil, ptrValue(status.GraphicalAbstract))
	printAsset("Voiceover", status.Voiceover != nil, ptrValue(status.Voiceover))
	printAsset("Presentation", status.Presentation != nil, ptrValue(status.Presentation))
	return nil
}

func runDownload(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	out := fs.String("out", "", "destination path (default: the asset's canonical name)")
	fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("download needs a request id and an asset name")
	}
	requestID, kind := fs.Arg(0), fs.Arg(1)

	status, err := client.GetStatus(ctx, requestID)
	if err != nil {
		return err
	}

	var assetURL *string
	switch kind {
	case filestore.KindSummaryPDF:
		assetURL = status.SummaryPDF
	case filestore.KindGraphicalAbstract:
		assetURL = status.GraphicalAbstract
	case filestore.KindVoiceover:
		assetURL = status.Voiceover
	case filestore.KindPresentation:
		assetURL = status.Presentation
	default:
		return fmt.Errorf("unknown asset %q", kind)
	}
	if assetURL == nil {
		return fmt.Errorf("asset %s was not generated for request %s", kind, requestID)
	}

	dest := *out
	if dest == "" {
		dest = filestore.Filename(kind)
	}
	if err := client.DownloadFile(ctx, *assetURL, dest); err != nil {
		return err
	}
	fmt.Printf("Saved %s to %s\n", kind, dest)
	return nil
}
