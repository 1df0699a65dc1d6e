package ocr

import (
	"os"
	"strings"

	"github.com/corvushq/scanweave/textclean"
)

// Record is the canonical per-page OCR result. It is immutable after
// creation and serializes to the flat JSON object stored in the cache and
// carried into enriched page records.
type Record struct {
	// RawText is the backend output verbatim.
	RawText string `json:"raw_text"`
	// CleanText is RawText after conservative cleanup.
	CleanText string `json:"clean_text"`
	// OCRText is the display alias of RawText.
	OCRText string `json:"ocr_text"`
	// OCRTextLength is the length of CleanText in runes.
	OCRTextLength int `json:"ocr_text_length"`
	// Confidence is a best-effort score in [0,1]; nil when the backend
	// exposes none.
	Confidence *float64 `json:"confidence"`
	// Error is empty on success, a human-readable message otherwise.
	Error string `json:"error,omitempty"`
	// Model identifies the backend model or binary.
	Model string `json:"model"`
	// Engine is one of the Engine* constants.
	Engine string `json:"engine"`
}

// HasText reports whether any text field carries non-whitespace content.
func (r Record) HasText() bool {
	for _, s := range []string{r.CleanText, r.RawText, r.OCRText} {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// Bad reports whether the record is unusable: it carries an error and no
// text at all. Bad records are never served from the cache.
func (r Record) Bad() bool {
	return r.Error != "" && !r.HasText()
}

// newRecord builds a Record from backend raw text, deriving the cleaned
// text and its length.
func newRecord(raw, model, engine string, confidence *float64) Record {
	clean := textclean.Cleanup(raw)
	return Record{
		RawText:       raw,
		CleanText:     clean,
		OCRText:       raw,
		OCRTextLength: len([]rune(clean)),
		Confidence:    confidence,
		Model:         model,
		Engine:        engine,
	}
}

// errorRecord builds the empty-text record carried by hard failures.
func errorRecord(msg, model, engine string) Record {
	return Record{Error: msg, Model: model, Engine: engine}
}

// statMissing returns a populated not-found Record when the image path does
// not exist, or ok=false when the file is present.
func statMissing(imagePath, model string) (Record, bool) {
	if _, err := os.Stat(imagePath); err != nil {
		return errorRecord("file not found: "+imagePath, model, EngineNone), true
	}
	return Record{}, false
}

func ptr(f float64) *float64 { return &f }
