package pipeline

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/corvushq/scanweave/enrich"
	"github.com/corvushq/scanweave/manifest"
	"github.com/corvushq/scanweave/ocr"
)

func TestBuildPagePrecedence(t *testing.T) {
	row := manifest.Row{
		FilePath: "a.jpg", Category: "letters", DocType: "page",
		SequenceID: "s1", SequenceOrder: "3", Notes: "margin note",
	}
	conf := 0.9
	rec := ocr.Record{
		RawText: "raw", CleanText: "clean", OCRText: "ocr text",
		OCRTextLength: 8, Confidence: &conf, Model: "m", Engine: "e",
	}
	pr := enrich.PageResult{
		Summary:     "the summary",
		Entities:    []enrich.Entity{{Type: "CAP_TOKEN", Text: "Alice"}},
		NumEntities: 1,
		SearchText:  "enriched search",
	}

	p := buildPage("s1", row, rec, pr)
	if p.Summary != "the summary" {
		t.Errorf("summary = %q", p.Summary)
	}
	if p.OCRText != "ocr text" || p.CleanText != "clean" || p.RawText != "raw" {
		t.Errorf("ocr fields lost: %+v", p)
	}
	want := "enriched search\n\nmargin note\n\nocr text"
	if p.SearchText != want {
		t.Errorf("search_text = %q, want %q", p.SearchText, want)
	}
	if p.Confidence == nil || *p.Confidence != 0.9 {
		t.Errorf("confidence = %v", p.Confidence)
	}
}

func TestBuildPageSearchTextFallbacks(t *testing.T) {
	// WHAT: search_text falls back through ocr_text, clean_text, raw_text
	// and skips empty components entirely.
	cases := []struct {
		name string
		rec  ocr.Record
		want string
	}{
		{"clean when no ocr", ocr.Record{RawText: "raw", CleanText: "clean"}, "clean"},
		{"raw when nothing else", ocr.Record{RawText: "raw"}, "raw"},
		{"empty record", ocr.Record{}, ""},
	}
	row := manifest.Row{FilePath: "a.jpg", Category: "c", DocType: "d"}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := buildPage("k", row, tc.rec, enrich.PageResult{})
			if p.SearchText != tc.want {
				t.Errorf("search_text = %q, want %q", p.SearchText, tc.want)
			}
		})
	}
}

func TestBuildPageLengthBackfill(t *testing.T) {
	// A zero OCR record (page skipped entirely) still gets a length
	// computed from whatever text resolves.
	row := manifest.Row{FilePath: "a.jpg", Category: "c", DocType: "d"}
	p := buildPage("k", row, ocr.Record{}, enrich.PageResult{})
	if p.OCRTextLength != 0 {
		t.Errorf("length = %d, want 0 for empty record", p.OCRTextLength)
	}

	rec := ocr.Record{RawText: "héllo", CleanText: "héllo", OCRText: "héllo", OCRTextLength: 5}
	p = buildPage("k", row, rec, enrich.PageResult{})
	if p.OCRTextLength != 5 {
		t.Errorf("length = %d, want rune count 5", p.OCRTextLength)
	}

	// A record carrying only raw text backfills both ocr_text and the
	// rune count from it.
	p = buildPage("k", row, ocr.Record{RawText: "héllo"}, enrich.PageResult{})
	if p.OCRText != "héllo" || p.OCRTextLength != 5 {
		t.Errorf("raw-only backfill = %q/%d, want héllo/5", p.OCRText, p.OCRTextLength)
	}
}

func TestBuildPageSearchTextTrimming(t *testing.T) {
	// WHAT: whitespace-only components are dropped and surviving pieces
	// are trimmed, so stray newlines never pad search_text.
	row := manifest.Row{FilePath: "a.jpg", Category: "c", DocType: "d", Notes: "   "}
	rec := ocr.Record{RawText: "hello\n", CleanText: "hello\n", OCRText: "hello\n"}
	p := buildPage("k", row, rec, enrich.PageResult{})
	if p.SearchText != "hello" {
		t.Errorf("search_text = %q, want %q", p.SearchText, "hello")
	}
}

func TestPageJSONFlattensExtra(t *testing.T) {
	p := Page{
		FilePath: "a.jpg", Category: "c", DocType: "d", SequenceID: "s1",
		Entities: []enrich.Entity{},
		Extra:    map[string]string{"source_box": "12", "file_path": "shadowed"},
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"source_box":"12"`) {
		t.Errorf("extra column not flattened: %s", s)
	}
	if strings.Contains(s, "shadowed") {
		t.Errorf("extra column shadowed a known field: %s", s)
	}
	if !strings.Contains(s, `"search_text":""`) {
		t.Errorf("search_text must serialize as empty string: %s", s)
	}
	if !strings.Contains(s, `"entities":[]`) {
		t.Errorf("entities must serialize as array: %s", s)
	}

	var back Page
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Extra["source_box"] != "12" {
		t.Errorf("extra column lost on round-trip: %+v", back.Extra)
	}
	if back.FilePath != "a.jpg" {
		t.Errorf("file_path = %q", back.FilePath)
	}
}
