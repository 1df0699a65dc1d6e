package enrich

import (
	"context"
	"strings"
	"unicode"

	"github.com/corvushq/scanweave/manifest"
	"github.com/corvushq/scanweave/textclean"
)

// summaryWordCap bounds the heuristic summary to the opening of the page.
const summaryWordCap = 80

// HeuristicProvider is the deterministic offline backend: a leading-words
// summary and capitalized-token entity detection. Crude, but stable, fast,
// and good enough to keep search text populated without a model.
type HeuristicProvider struct {
	maxSummaryChars int
}

// NewHeuristic creates the fallback provider.
func NewHeuristic(cfg Config) *HeuristicProvider {
	cfg.defaults()
	return &HeuristicProvider{maxSummaryChars: cfg.MaxSummaryChars}
}

func (p *HeuristicProvider) Engine() string { return EngineHeuristic }

// ExtractPage summarizes by truncation and treats title-cased tokens as
// entities.
func (p *HeuristicProvider) ExtractPage(_ context.Context, cleanText string, _ manifest.Row) PageResult {
	if strings.TrimSpace(cleanText) == "" {
		return PageResult{Entities: []Entity{}}
	}

	words := strings.Fields(cleanText)
	n := len(words)
	if n > summaryWordCap {
		n = summaryWordCap
	}
	summary := textclean.Truncate(strings.Join(words[:n], " "), p.maxSummaryChars)

	entities := make([]Entity, 0)
	for _, w := range words {
		if isTitleWord(w) {
			entities = append(entities, Entity{Type: "CAP_TOKEN", Text: w})
		}
	}

	return PageResult{
		Summary:     summary,
		Entities:    entities,
		NumEntities: len(entities),
		SearchText:  summary,
	}
}

// SummarizeSequence joins the member texts and truncates.
func (p *HeuristicProvider) SummarizeSequence(_ context.Context, texts []string) SequenceResult {
	joined := joinNonEmpty(texts)
	if joined == "" {
		return SequenceResult{}
	}
	summary := textclean.Truncate(joined, p.maxSummaryChars)
	return SequenceResult{SequenceSummary: summary, SequenceSearchText: summary}
}

// isTitleWord reports whether a token looks like a proper noun: an upper
// first letter followed by only lower-case letters.
func isTitleWord(w string) bool {
	runes := []rune(w)
	if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !unicode.IsLower(r) {
			return false
		}
	}
	return true
}

func joinNonEmpty(texts []string) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}
