// Package extract turns uploaded binary and markup files into plain text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-dispatch/internal/adapters/driven/connectors"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ContentExtractor = (*Extractor)(nil)

// MIME types handled here.
const (
	MimePDF  = "application/pdf"
	MimeHTML = "text/html"
)

// DefaultMaxPages bounds the pages read from one PDF.
const DefaultMaxPages = 500

// Extractor extracts text from PDF and HTML uploads.
type Extractor struct {
	maxPages int
}

// New creates an extractor. maxPages <= 0 uses DefaultMaxPages.
func New(maxPages int) *Extractor {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Extractor{maxPages: maxPages}
}

// SupportedTypes returns supported MIME types
func (e *Extractor) SupportedTypes() []string {
	return []string{MimePDF, MimeHTML}
}

// Extract extracts text content from raw data
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	switch mimeType {
	case MimePDF:
		return e.pdfText(ctx, data)
	case MimeHTML:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("html is not valid UTF-8")
		}
		return connectors.HTMLToText(string(data)), nil
	}
	return "", fmt.Errorf("unsupported type %q", mimeType)
}

// pdfText joins the plain text of every page. The parser panics on some
// malformed files; those become errors.
func (e *Extractor) pdfText(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	pages := reader.NumPage()
	if pages > e.maxPages {
		pages = e.maxPages
	}

	var parts []string
	for n := 1; n <= pages; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if s := strings.TrimSpace(pageText); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
