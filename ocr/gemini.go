package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/corvushq/scanweave/manifest"
)

const geminiOCRPrompt = "You are an OCR engine. Return ONLY the visible text on this page. " +
	"Do not add commentary or explanations."

// GeminiProvider runs OCR through a Vertex AI vision model. Call failures
// degrade to the stub so a batch never aborts on backend trouble.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
	stub   *StubProvider
	logger *slog.Logger
}

// NewGemini constructs the Vertex-backed provider. Project is required;
// credentials resolve through Application Default Credentials.
func NewGemini(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	cfg.defaults()
	if cfg.Project == "" {
		return nil, fmt.Errorf("gemini ocr requires a project")
	}
	client, err := genai.NewClient(ctx, cfg.Project, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}
	return &GeminiProvider{
		client: client,
		model:  model,
		name:   cfg.Model,
		stub:   NewStub(cfg),
		logger: cfg.Logger,
	}, nil
}

func (p *GeminiProvider) Engine() string { return EngineGemini }

// Close releases the underlying client.
func (p *GeminiProvider) Close() error { return p.client.Close() }

// RunPage sends the image inline to the vision model and normalizes the
// text parts of the response into a Record.
func (p *GeminiProvider) RunPage(ctx context.Context, imagePath string, meta manifest.Row) Record {
	if rec, missing := statMissing(imagePath, p.name); missing {
		return rec
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		p.logger.Warn("read image failed; using stub record", "path", imagePath, "error", err)
		return p.stub.record(imagePath, fmt.Sprintf("read image: %v", err))
	}

	resp, err := p.model.GenerateContent(ctx,
		genai.Text(geminiOCRPrompt),
		genai.ImageData(imageFormat(imagePath), data),
	)
	if err != nil {
		p.logger.Warn("gemini OCR call failed; using stub record",
			"path", imagePath, "file", meta.FilePath, "error", err)
		return p.stub.record(imagePath, err.Error())
	}

	raw := strings.TrimSpace(responseText(resp))
	// Gemini exposes no scalar confidence for OCR output.
	return newRecord(raw, p.name, EngineGemini, nil)
}

// responseText concatenates all text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

// imageFormat maps a file extension to the genai inline-data format token.
// Defaults to jpeg, the overwhelmingly common scan format.
func imageFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".webp":
		return "webp"
	case ".tif", ".tiff":
		return "tiff"
	default:
		return "jpeg"
	}
}
