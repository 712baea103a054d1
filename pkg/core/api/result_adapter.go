// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/MerLin027/PaperSynth/pkg/core/schema"
)

// Page estimation for backends that do not report a page count: a typical
// research paper weighs in around 70 KiB per page.
const (
	bytesPerPage = 71680
	minPages     = 1
	maxPages     = 1000
)

func estimatePages(sizeBytes int64) int {
	pages := int(math.Ceil(float64(sizeBytes) / bytesPerPage))
	if pages < minPages {
		return minPages
	}
	if pages > maxPages {
		return maxPages
	}
	return pages
}

// AdaptResult converts a backend ProcessResult into the display shape.
// Every field is renamed here exactly once; no raw backend field names leak
// past this function.
//
// The null-handling rules are load-bearing and must not be "cleaned up":
// primary assets (voiceover, presentation) map null to "", secondary assets
// (summary PDF, graphical abstract) map null to an absent pointer.
func AdaptResult(res *schema.ProcessResult, upload schema.Upload) *schema.AdaptedPaper {
	paper := &schema.AdaptedPaper{
		FileID:          res.RequestID,
		Name:            upload.Filename,
		Size:            upload.Size,
		Summary:         res.Summary,
		AudioURL:        stringOrEmpty(res.Voiceover),
		PresentationURL: stringOrEmpty(res.Presentation),
		Features:        res.Features,
		UploadedAt:      time.Now(),
	}

	if res.Pages != nil {
		paper.Pages = *res.Pages
	} else {
		paper.Pages = estimatePages(upload.Size)
	}

	paper.SummaryPDFURL = copyOptional(res.SummaryPDF)
	paper.GraphicalAbstractURL = copyOptional(res.GraphicalAbstract)
	paper.SpeakerNotes = copyOptional(res.SpeakerNotes)

	if len(res.Warnings) > 0 {
		paper.Warnings = append([]string(nil), res.Warnings...)
	}

	if paper.SpeakerNotes != nil || len(paper.Warnings) > 0 {
		paper.Metadata = &schema.PaperMetadata{
			Title:       strings.TrimSuffix(upload.Filename, ".pdf"),
			GeneratedAt: time.Now(),
		}
	}

	return paper
}

// AdaptResults adapts a batch. The two lists must correspond position by
// position; a length mismatch is an error before any output is produced.
func AdaptResults(results []*schema.ProcessResult, uploads []schema.Upload) ([]*schema.AdaptedPaper, error) {
	if len(results) != len(uploads) {
		return nil, fmt.Errorf("mismatched batch: %d results against %d uploads", len(results), len(uploads))
	}
	papers := make([]*schema.AdaptedPaper, 0, len(results))
	for i, res := range results {
		papers = append(papers, AdaptResult(res, uploads[i]))
	}
	return papers, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func copyOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
