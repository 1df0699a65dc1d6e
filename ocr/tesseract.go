package ocr

import (
	"context"
	"log/slog"

	"github.com/otiai10/gosseract/v2"

	"github.com/corvushq/scanweave/manifest"
)

// TesseractProvider runs OCR through a local tesseract installation. Each
// page gets its own client, so concurrent rows never share backend state.
type TesseractProvider struct {
	languages []string
	logger    *slog.Logger
	// clientFactory is swappable in tests.
	clientFactory func() *gosseract.Client
}

// NewTesseract creates the tesseract-backed provider.
func NewTesseract(cfg Config) *TesseractProvider {
	cfg.defaults()
	return &TesseractProvider{
		languages:     cfg.Languages,
		logger:        cfg.Logger,
		clientFactory: gosseract.NewClient,
	}
}

func (p *TesseractProvider) Engine() string { return EngineTesseract }

// RunPage recognizes the page and derives a confidence from the mean
// word-box confidence tesseract reports.
func (p *TesseractProvider) RunPage(ctx context.Context, imagePath string, meta manifest.Row) Record {
	if rec, missing := statMissing(imagePath, "tesseract"); missing {
		return rec
	}
	if err := ctx.Err(); err != nil {
		return errorRecord("canceled: "+err.Error(), "tesseract", EngineNone)
	}

	c := p.clientFactory()
	defer c.Close()

	if err := c.SetImage(imagePath); err != nil {
		return errorRecord("set image: "+err.Error(), "tesseract", EngineTesseract)
	}
	if len(p.languages) > 0 {
		if err := c.SetLanguage(p.languages...); err != nil {
			return errorRecord("set languages: "+err.Error(), "tesseract", EngineTesseract)
		}
	}

	text, err := c.Text()
	if err != nil {
		p.logger.Warn("tesseract recognition failed", "path", imagePath, "file", meta.FilePath, "error", err)
		return errorRecord("recognize: "+err.Error(), "tesseract", EngineTesseract)
	}

	return newRecord(text, "tesseract", EngineTesseract, meanConfidence(c))
}

// meanConfidence averages word-box confidences, scaled from tesseract's
// 0-100 range into [0,1]. Returns nil when no boxes are available.
func meanConfidence(c *gosseract.Client) *float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return ptr(sum / float64(len(boxes)))
}
