package ocr

import (
	"context"
	"path/filepath"

	"github.com/corvushq/scanweave/manifest"
	"github.com/corvushq/scanweave/textclean"
)

// StubProvider produces deterministic placeholder records so the pipeline
// stays fully runnable offline and in tests.
type StubProvider struct {
	model string
}

// NewStub creates the stand-in provider.
func NewStub(cfg Config) *StubProvider {
	cfg.defaults()
	return &StubProvider{model: cfg.Model}
}

func (p *StubProvider) Engine() string { return EngineStub }

// RunPage returns a fixed placeholder text derived from the image filename.
func (p *StubProvider) RunPage(_ context.Context, imagePath string, _ manifest.Row) Record {
	if rec, missing := statMissing(imagePath, p.model); missing {
		return rec
	}
	return p.record(imagePath, "")
}

// record builds the placeholder record; errMsg carries the reason when the
// stub stands in for a failed real backend call.
func (p *StubProvider) record(imagePath, errMsg string) Record {
	text := textclean.PlaceholderMarker + " Text for " + filepath.Base(imagePath)
	return Record{
		RawText:       text,
		CleanText:     text,
		OCRText:       text,
		OCRTextLength: len([]rune(text)),
		Confidence:    ptr(0.0),
		Error:         errMsg,
		Model:         p.model,
		Engine:        EngineStub,
	}
}
