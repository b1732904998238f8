package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dslipak/pdf"
)

// PDFExtractor writes the plain text of each PDF page to its own file, the
// input format the text parser consumes.
type PDFExtractor struct {
	logger *slog.Logger
}

// NewPDFExtractor creates a new PDF page extractor.
func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	return &PDFExtractor{logger: logger}
}

// ExtractPages returns the plain text of every page, in page order. Pages
// without content come back as empty strings.
func (e *PDFExtractor) ExtractPages(path string) ([]string, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", i, path, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// ExtractToDir writes page_N.txt files for one PDF into outDir and returns
// the written paths. Page numbers continue from offset so several documents
// can share a directory.
func (e *PDFExtractor) ExtractToDir(pdfPath, outDir string, offset int) ([]string, error) {
	pages, err := e.ExtractPages(pdfPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	written := make([]string, 0, len(pages))
	for i, text := range pages {
		name := filepath.Join(outDir, fmt.Sprintf("page_%d.txt", offset+i+1))
		if err := os.WriteFile(name, []byte(text), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, name)
	}
	return written, nil
}

// ExtractAll extracts every PDF in pdfDir. A document that fails is logged
// and skipped; the returned count covers written pages only.
func (e *PDFExtractor) ExtractAll(ctx context.Context, pdfDir, outDir string) (int, error) {
	entries, err := os.ReadDir(pdfDir)
	if err != nil {
		return 0, fmt.Errorf("read pdf directory: %w", err)
	}

	var docs []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			docs = append(docs, entry.Name())
		}
	}
	sort.Slice(docs, func(i, j int) bool { return naturalLess(docs[i], docs[j]) })

	total := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		written, err := e.ExtractToDir(filepath.Join(pdfDir, doc), outDir, total)
		if err != nil {
			e.logger.Error("failed to extract pdf",
				slog.String("document", doc),
				slog.Any("error", err),
			)
			continue
		}
		total += len(written)
		e.logger.Info("extracted pdf pages",
			slog.String("document", doc),
			slog.Int("pages", len(written)),
		)
	}
	return total, nil
}
