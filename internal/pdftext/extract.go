// Package pdftext extracts per-page plain text from raw PDF bytes.
//
// The page is the unit of chunking: one page becomes one embedding chunk.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrTooManyPages is returned when a document exceeds the configured page
// limit. The limit is checked after parsing but before any extraction work
// is wasted on pages that will be discarded.
var ErrTooManyPages = errors.New("document exceeds page limit")

// Page is the extracted text of one PDF page.
type Page struct {
	Number int // 1-based
	Text   string
}

// Extractor parses PDFs and enforces the page limit.
// A maxPages of 0 disables the limit.
type Extractor struct {
	maxPages int
}

func NewExtractor(maxPages int) *Extractor {
	return &Extractor{maxPages: maxPages}
}

// ExtractPages parses the document and returns one entry per page, in page
// order. A failure on any page fails the whole extraction: a partially
// extracted document must never look ingestable.
func (e *Extractor) ExtractPages(data []byte) ([]Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	if e.maxPages > 0 && total > e.maxPages {
		return nil, fmt.Errorf("%w: %d pages, limit %d", ErrTooManyPages, total, e.maxPages)
	}

	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			return nil, fmt.Errorf("page %d: missing page object", i)
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: extract text: %w", i, err)
		}

		pages = append(pages, Page{
			Number: i,
			Text:   normalize(text),
		})
	}

	return pages, nil
}

// normalize collapses runs of whitespace the extractor leaves behind.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
