// Package ocr defines the OCR provider contract and its backends.
//
// A Provider turns a page image into a Record. Providers never return an
// error: every failure mode, including a missing file or an unreachable
// backend, is encoded in the Record's error field so a batch run always
// completes. Backend selection happens once at construction, not per call.
//
// Engines:
//   - gemini    — Vertex AI vision model, inline image bytes
//   - tesseract — local tesseract via gosseract
//   - stub      — deterministic offline stand-in
//   - none      — no backend produced this record (hard failure marker)
package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corvushq/scanweave/manifest"
)

// Engine identifiers recorded on every Record.
const (
	EngineGemini    = "gemini"
	EngineTesseract = "tesseract"
	EngineStub      = "stub"
	EngineNone      = "none"
)

// Provider runs OCR on a single page image. Implementations must never
// panic or return control-flow errors; they always produce a fully
// populated Record.
type Provider interface {
	RunPage(ctx context.Context, imagePath string, meta manifest.Row) Record
	// Engine returns the backend identifier this provider writes on
	// successful records.
	Engine() string
}

// Config selects and configures the OCR backend.
type Config struct {
	// Engine is one of "gemini", "tesseract", "stub". Empty defaults to stub.
	Engine string `yaml:"engine"`
	// Model names the vision model for the gemini engine.
	Model string `yaml:"model"`
	// Project and Region locate the Vertex AI endpoint. An explicit APIKey
	// is not read here: credential resolution follows Application Default
	// Credentials, with Project/Region as the only required pipeline config.
	Project string `yaml:"project"`
	Region  string `yaml:"region"`
	// Languages are tesseract language hints (e.g. "eng", "fra").
	Languages []string `yaml:"languages"`
	// StubIfUnavailable keeps the pipeline runnable when the configured
	// backend cannot be constructed: the provider degrades to the stub
	// instead of failing. Defaults on via DefaultConfig.
	StubIfUnavailable bool `yaml:"stub_if_unavailable"`

	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the offline-safe defaults.
func DefaultConfig() Config {
	return Config{
		Engine:            EngineStub,
		Model:             "gemini-1.5-flash",
		Region:            "us-central1",
		StubIfUnavailable: true,
	}
}

func (c *Config) defaults() {
	if c.Engine == "" {
		c.Engine = EngineStub
	}
	if c.Model == "" {
		c.Model = "gemini-1.5-flash"
	}
	if c.Region == "" {
		c.Region = "us-central1"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New constructs the Provider named by cfg.Engine. When the real backend
// cannot be initialized and StubIfUnavailable is set, the stub provider is
// returned instead so the pipeline still produces deterministic output.
func New(ctx context.Context, cfg Config) (Provider, error) {
	cfg.defaults()
	switch cfg.Engine {
	case EngineStub:
		return NewStub(cfg), nil
	case EngineTesseract:
		return NewTesseract(cfg), nil
	case EngineGemini:
		p, err := NewGemini(ctx, cfg)
		if err != nil {
			if cfg.StubIfUnavailable {
				cfg.Logger.Warn("gemini OCR backend unavailable; using stub", "error", err)
				return NewStub(cfg), nil
			}
			return nil, fmt.Errorf("gemini ocr: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown ocr engine: %q", cfg.Engine)
	}
}
