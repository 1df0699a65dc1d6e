// Package enrich produces summaries, entities, and search text from OCR'd
// page text.
//
// Like the OCR layer, providers never surface errors: the gemini backend
// degrades to the deterministic heuristic on any failure, so enrichment can
// never abort a pipeline run.
package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corvushq/scanweave/manifest"
)

// Backend identifiers.
const (
	EngineGemini    = "gemini"
	EngineHeuristic = "heuristic"
)

// Entity is one extracted named entity.
type Entity struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// PageResult is the page-level enrichment output.
type PageResult struct {
	// Summary serializes as page_summary; the orchestrator aliases it to
	// summary on the merged record.
	Summary     string   `json:"page_summary"`
	Entities    []Entity `json:"entities"`
	NumEntities int      `json:"num_entities"`
	SearchText  string   `json:"search_text"`
}

// SequenceResult is the thread-level summarization output.
type SequenceResult struct {
	SequenceSummary    string `json:"sequence_summary"`
	SequenceSearchText string `json:"sequence_search_text"`
}

// Provider extracts insights from page text. Implementations always return
// a usable result, degrading internally rather than erroring.
type Provider interface {
	ExtractPage(ctx context.Context, cleanText string, meta manifest.Row) PageResult
	SummarizeSequence(ctx context.Context, texts []string) SequenceResult
	Engine() string
}

// Config selects and configures the enrichment backend.
type Config struct {
	// Engine is "gemini" or "heuristic". Empty defaults to heuristic.
	Engine  string `yaml:"engine"`
	Model   string `yaml:"model"`
	Project string `yaml:"project"`
	Region  string `yaml:"region"`
	// MaxSummaryChars caps summaries and derived search text.
	MaxSummaryChars int `yaml:"max_summary_chars"`
	// MaxInputChars caps the text sent to the model.
	MaxInputChars int `yaml:"max_input_chars"`
	// HeuristicIfUnavailable degrades construction failures to the
	// heuristic backend instead of erroring.
	HeuristicIfUnavailable bool `yaml:"heuristic_if_unavailable"`

	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the offline-safe defaults.
func DefaultConfig() Config {
	return Config{
		Engine:                 EngineHeuristic,
		Model:                  "gemini-1.5-pro",
		Region:                 "us-central1",
		MaxSummaryChars:        600,
		MaxInputChars:          8000,
		HeuristicIfUnavailable: true,
	}
}

func (c *Config) defaults() {
	if c.Engine == "" {
		c.Engine = EngineHeuristic
	}
	if c.Model == "" {
		c.Model = "gemini-1.5-pro"
	}
	if c.Region == "" {
		c.Region = "us-central1"
	}
	if c.MaxSummaryChars <= 0 {
		c.MaxSummaryChars = 600
	}
	if c.MaxInputChars <= 0 {
		c.MaxInputChars = 8000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New constructs the Provider named by cfg.Engine.
func New(ctx context.Context, cfg Config) (Provider, error) {
	cfg.defaults()
	switch cfg.Engine {
	case EngineHeuristic:
		return NewHeuristic(cfg), nil
	case EngineGemini:
		p, err := NewGemini(ctx, cfg)
		if err != nil {
			if cfg.HeuristicIfUnavailable {
				cfg.Logger.Warn("gemini enrichment unavailable; using heuristic", "error", err)
				return NewHeuristic(cfg), nil
			}
			return nil, fmt.Errorf("gemini enrichment: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown enrichment engine: %q", cfg.Engine)
	}
}
