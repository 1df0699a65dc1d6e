package pipeline

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/corvushq/scanweave/enrich"
	"github.com/corvushq/scanweave/manifest"
	"github.com/corvushq/scanweave/ocr"
)

// Page is one fully merged per-page record: manifest metadata, the OCR
// record, and page-level enrichment folded into a single flat object.
// Later stages win when fields overlap, and earlier stages backfill
// fields a later stage left empty.
type Page struct {
	FilePath      string `json:"file_path"`
	Category      string `json:"category"`
	DocType       string `json:"doc_type"`
	SequenceID    string `json:"sequence_id"`
	SequenceOrder string `json:"sequence_order,omitempty"`
	Notes         string `json:"notes,omitempty"`

	RawText       string   `json:"raw_text"`
	CleanText     string   `json:"clean_text"`
	OCRText       string   `json:"ocr_text"`
	OCRTextLength int      `json:"ocr_text_length"`
	Confidence    *float64 `json:"confidence,omitempty"`
	Error         string   `json:"error,omitempty"`
	Model         string   `json:"model,omitempty"`
	Engine        string   `json:"engine,omitempty"`

	Summary     string          `json:"summary"`
	Entities    []enrich.Entity `json:"entities"`
	NumEntities int             `json:"num_entities"`
	SearchText  string          `json:"search_text"`

	// Extra carries manifest columns outside the known set. They are
	// flattened to top-level keys on marshal.
	Extra map[string]string `json:"-"`
}

// pageAlias avoids recursing into Page's own MarshalJSON.
type pageAlias Page

// MarshalJSON flattens Extra into the top-level object. Known fields win
// over a colliding extra column.
func (p Page) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(pageAlias(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return base, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(base, &obj); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, taken := obj[k]; taken {
			continue
		}
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		obj[k] = enc
	}
	return json.Marshal(obj)
}

// UnmarshalJSON restores a flattened page, collecting unknown string
// keys back into Extra.
func (p *Page) UnmarshalJSON(data []byte) error {
	var alias pageAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	known := map[string]bool{
		"file_path": true, "category": true, "doc_type": true,
		"sequence_id": true, "sequence_order": true, "notes": true,
		"raw_text": true, "clean_text": true, "ocr_text": true,
		"ocr_text_length": true, "confidence": true, "error": true,
		"model": true, "engine": true,
		"summary": true, "entities": true, "num_entities": true,
		"search_text": true,
	}
	for k, raw := range obj {
		if known[k] {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if alias.Extra == nil {
			alias.Extra = map[string]string{}
		}
		alias.Extra[k] = s
	}
	*p = Page(alias)
	return nil
}

// buildPage merges one manifest row, its OCR record, and its page
// enrichment under the key the row was grouped by.
func buildPage(key string, row manifest.Row, rec ocr.Record, pr enrich.PageResult) Page {
	p := Page{
		FilePath:      row.FilePath,
		Category:      row.Category,
		DocType:       row.DocType,
		SequenceID:    key,
		SequenceOrder: row.SequenceOrder,
		Notes:         row.Notes,

		RawText:       rec.RawText,
		CleanText:     rec.CleanText,
		OCRText:       rec.OCRText,
		OCRTextLength: rec.OCRTextLength,
		Confidence:    rec.Confidence,
		Error:         rec.Error,
		Model:         rec.Model,
		Engine:        rec.Engine,

		Summary:     pr.Summary,
		Entities:    pr.Entities,
		NumEntities: pr.NumEntities,
	}
	if len(row.Extra) > 0 {
		p.Extra = make(map[string]string, len(row.Extra))
		for k, v := range row.Extra {
			p.Extra[k] = v
		}
	}
	if p.Entities == nil {
		p.Entities = []enrich.Entity{}
	}

	// Records from older cache files may carry raw text only; the display
	// text and its length backfill from the cleaned-or-raw resolution so
	// no downstream field is left empty while text exists.
	resolved := recordText(rec)
	if p.OCRText == "" {
		p.OCRText = resolved
	}
	if p.OCRTextLength == 0 {
		p.OCRTextLength = utf8.RuneCountInString(resolved)
	}

	text := p.OCRText
	if text == "" {
		text = p.CleanText
	}
	if text == "" {
		text = p.RawText
	}
	p.SearchText = joinNonEmpty("\n\n", pr.SearchText, row.Notes, text)
	return p
}

// recordText resolves the text an OCR record contributes downstream:
// cleaned text first, raw text as fallback.
func recordText(rec ocr.Record) string {
	if rec.CleanText != "" {
		return rec.CleanText
	}
	return rec.RawText
}

// SequenceSummary is one reconstructed sequence with its roll-up.
type SequenceSummary struct {
	SequenceID         string `json:"sequence_id"`
	NumPages           int    `json:"num_pages"`
	SequenceSummary    string `json:"sequence_summary"`
	Summary            string `json:"summary"`
	SequenceSearchText string `json:"sequence_search_text"`
}

func joinNonEmpty(sep string, parts ...string) string {
	out := ""
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}

// pageText is the text a page contributes to sequence-level work,
// preferring the cleaned field.
func pageText(p Page) string {
	if p.CleanText != "" {
		return p.CleanText
	}
	if p.OCRText != "" {
		return p.OCRText
	}
	return p.RawText
}
