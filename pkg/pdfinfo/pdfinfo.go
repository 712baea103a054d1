// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

// Package pdfinfo inspects an uploaded PDF locally before it is sent to the
// backend. The backend stays authoritative; preflight results are used for
// early feedback only, never as a hard gate.
package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ErrNotPDF is returned when the content does not start with the PDF magic.
var ErrNotPDF = errors.New("content is not a PDF")

var pdfMagic = []byte("%PDF-")

// Info is what local inspection could determine about an upload.
type Info struct {
	Pages int
	Bytes int64
}

// Inspect checks the PDF magic and counts pages. A file that carries the
// magic but cannot be parsed is reported as corrupt.
func Inspect(content []byte) (*Info, error) {
	if !bytes.HasPrefix(content, pdfMagic) {
		return nil, ErrNotPDF
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("corrupt PDF: %w", err)
	}

	return &Info{
		Pages: reader.NumPage(),
		Bytes: int64(len(content)),
	}, nil
}
