package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/corvushq/scanweave/manifest"
	"github.com/corvushq/scanweave/textclean"
)

const extractSystemPrompt = "You are an information extraction engine. " +
	"You respond with a single valid JSON object and nothing else."

const extractPromptTemplate = `Given the following text, respond with a JSON object with keys:
  summary: short natural-language summary (<= 4 sentences)
  entities: list of objects {type, text}
  search_text: condensed keywords / phrases useful for search

Text:
%s`

const sequencePromptTemplate = `Summarize the following multi-page document as a single coherent thread. Return no more than 6 sentences.

%s`

// Model refusals must not leak into summaries; they read as content.
var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// GeminiProvider enriches pages through a Vertex AI model with JSON output
// forced for page extraction. Every failure path lands in the heuristic.
type GeminiProvider struct {
	client       *genai.Client
	extractModel *genai.GenerativeModel
	summaryModel *genai.GenerativeModel
	heuristic    *HeuristicProvider
	cfg          Config
	logger       *slog.Logger
}

// NewGemini constructs the Vertex-backed enrichment provider.
func NewGemini(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	cfg.defaults()
	if cfg.Project == "" {
		return nil, fmt.Errorf("gemini enrichment requires a project")
	}
	client, err := genai.NewClient(ctx, cfg.Project, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	extractModel := client.GenerativeModel(cfg.Model)
	extractModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(extractSystemPrompt)},
	}
	extractModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	summaryModel := client.GenerativeModel(cfg.Model)
	summaryModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.2),
	}

	return &GeminiProvider{
		client:       client,
		extractModel: extractModel,
		summaryModel: summaryModel,
		heuristic:    NewHeuristic(cfg),
		cfg:          cfg,
		logger:       cfg.Logger,
	}, nil
}

func (p *GeminiProvider) Engine() string { return EngineGemini }

// Close releases the underlying client.
func (p *GeminiProvider) Close() error { return p.client.Close() }

// ExtractPage asks the model for a JSON summary/entities/search_text object
// and parses it best-effort.
func (p *GeminiProvider) ExtractPage(ctx context.Context, cleanText string, meta manifest.Row) PageResult {
	if strings.TrimSpace(cleanText) == "" {
		return PageResult{Entities: []Entity{}}
	}

	prompt := fmt.Sprintf(extractPromptTemplate, capInput(cleanText, p.cfg.MaxInputChars))
	resp, err := p.extractModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		p.logger.Warn("gemini extraction failed; using heuristic",
			"file", meta.FilePath, "error", err)
		return p.heuristic.ExtractPage(ctx, cleanText, meta)
	}

	raw := candidateText(resp)
	if raw == "" || isRefusal(raw) {
		p.logger.Warn("gemini extraction unusable; using heuristic", "file", meta.FilePath)
		return p.heuristic.ExtractPage(ctx, cleanText, meta)
	}

	var parsed struct {
		Summary    string   `json:"summary"`
		Entities   []Entity `json:"entities"`
		SearchText string   `json:"search_text"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// Not JSON after all: treat the whole reply as the summary.
		parsed.Summary = raw
		parsed.SearchText = textclean.Truncate(cleanText, p.cfg.MaxSummaryChars)
	}
	if parsed.Entities == nil {
		parsed.Entities = []Entity{}
	}
	if parsed.SearchText == "" {
		parsed.SearchText = textclean.Truncate(cleanText, p.cfg.MaxSummaryChars)
	}

	return PageResult{
		Summary:     textclean.Truncate(parsed.Summary, p.cfg.MaxSummaryChars),
		Entities:    parsed.Entities,
		NumEntities: len(parsed.Entities),
		SearchText:  parsed.SearchText,
	}
}

// SummarizeSequence asks the model for a thread-level summary of the joined
// member texts.
func (p *GeminiProvider) SummarizeSequence(ctx context.Context, texts []string) SequenceResult {
	joined := joinNonEmpty(texts)
	if joined == "" {
		return SequenceResult{}
	}

	prompt := fmt.Sprintf(sequencePromptTemplate, capInput(joined, p.cfg.MaxInputChars))
	resp, err := p.summaryModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		p.logger.Warn("gemini sequence summary failed; using heuristic", "error", err)
		return p.heuristic.SummarizeSequence(ctx, texts)
	}

	summary := strings.TrimSpace(candidateText(resp))
	if summary == "" || isRefusal(summary) {
		return p.heuristic.SummarizeSequence(ctx, texts)
	}
	summary = textclean.Truncate(summary, p.cfg.MaxSummaryChars)
	return SequenceResult{SequenceSummary: summary, SequenceSearchText: summary}
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String())
}

func isRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func capInput(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
