package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFOptions configures manifest synthesis from a source PDF.
type PDFOptions struct {
	// Category and DocType stamped onto every synthesized row.
	Category string
	DocType  string
	// SequenceID overrides the thread identifier; defaults to the PDF stem.
	SequenceID string
	Logger     *slog.Logger
}

// FromPDF splits a multi-page PDF into single-page files under outDir and
// synthesizes one manifest row per page, threaded as a single sequence in
// page order. It lets a scanned multi-page document enter the pipeline
// without a hand-written manifest.
//
// Page files land at outDir/<stem>_<page>.pdf (pdfcpu's split naming) and
// rows reference them relative to outDir.
func FromPDF(ctx context.Context, pdfPath, outDir string, opts PDFOptions) ([]Row, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageCount, err := api.PageCountFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("page count %s: %w", pdfPath, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create split dir %s: %w", outDir, err)
	}
	if err := api.SplitFile(pdfPath, outDir, 1, nil); err != nil {
		return nil, fmt.Errorf("split %s: %w", pdfPath, err)
	}

	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	seqID := opts.SequenceID
	if seqID == "" {
		seqID = stem
	}

	rows := make([]Row, 0, pageCount)
	for page := 1; page <= pageCount; page++ {
		rows = append(rows, Row{
			FilePath:      fmt.Sprintf("%s_%d.pdf", stem, page),
			Category:      opts.Category,
			DocType:       opts.DocType,
			SequenceID:    seqID,
			SequenceOrder: strconv.Itoa(page),
		})
	}

	logger.Info("synthesized manifest from PDF",
		"pdf", pdfPath, "pages", pageCount, "sequence_id", seqID)
	return rows, nil
}
