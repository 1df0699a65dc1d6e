package ocr

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/corvushq/scanweave/manifest"
)

func writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("not-really-an-image"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// recordsEqual compares two records by value, dereferencing the
// confidence pointer so distinct allocations of the same number match.
func recordsEqual(a, b Record) bool {
	if (a.Confidence == nil) != (b.Confidence == nil) {
		return false
	}
	if a.Confidence != nil && *a.Confidence != *b.Confidence {
		return false
	}
	a.Confidence, b.Confidence = nil, nil
	return a == b
}

func TestStub_Deterministic(t *testing.T) {
	p := NewStub(DefaultConfig())
	path := writeImage(t, "page1.jpg")

	first := p.RunPage(context.Background(), path, manifest.Row{FilePath: "page1.jpg"})
	second := p.RunPage(context.Background(), path, manifest.Row{FilePath: "page1.jpg"})
	if !recordsEqual(first, second) {
		t.Errorf("stub output not deterministic: %+v vs %+v", first, second)
	}

	if !strings.Contains(first.RawText, "page1.jpg") {
		t.Errorf("raw text does not reference the file: %q", first.RawText)
	}
	if first.Engine != EngineStub {
		t.Errorf("engine: got %q, want %q", first.Engine, EngineStub)
	}
	if first.Confidence == nil || *first.Confidence != 0.0 {
		t.Errorf("confidence: got %v, want 0.0", first.Confidence)
	}
	if first.Error != "" {
		t.Errorf("error: got %q, want empty", first.Error)
	}
	if first.OCRText != first.RawText {
		t.Errorf("ocr_text alias broken: %q vs %q", first.OCRText, first.RawText)
	}
}

func TestStub_FileNotFound(t *testing.T) {
	p := NewStub(DefaultConfig())
	rec := p.RunPage(context.Background(), "/nonexistent/gone.jpg", manifest.Row{})
	if rec.Error == "" {
		t.Fatal("missing file produced no error")
	}
	if rec.Engine != EngineNone {
		t.Errorf("engine: got %q, want %q", rec.Engine, EngineNone)
	}
	if rec.HasText() {
		t.Errorf("missing file produced text: %+v", rec)
	}
	if !rec.Bad() {
		t.Error("not-found record should be bad (error, no text)")
	}
}

func TestNew_SelectsEngineAtConstruction(t *testing.T) {
	cfg := DefaultConfig()
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New(stub): %v", err)
	}
	if p.Engine() != EngineStub {
		t.Errorf("engine: got %q, want stub", p.Engine())
	}

	cfg.Engine = "no-such-engine"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("unknown engine accepted")
	}
}

func TestNew_GeminiWithoutProjectFallsBackToStub(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine = EngineGemini
	cfg.StubIfUnavailable = true
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Engine() != EngineStub {
		t.Errorf("engine: got %q, want stub fallback", p.Engine())
	}

	cfg.StubIfUnavailable = false
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("gemini without project and without fallback accepted")
	}
}

func TestRecordBad(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want bool
	}{
		{"error no text", Record{Error: "x"}, true},
		{"error with clean text", Record{Error: "x", CleanText: "t"}, false},
		{"error with raw text only", Record{Error: "x", RawText: "t"}, false},
		{"error with whitespace text", Record{Error: "x", CleanText: "   "}, true},
		{"no error no text", Record{}, false},
	}
	for _, tt := range tests {
		if got := tt.rec.Bad(); got != tt.want {
			t.Errorf("%s: Bad() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNewRecord_CleansText(t *testing.T) {
	rec := newRecord("two   words\nhere", "m", EngineGemini, nil)
	if rec.CleanText != "two words here" {
		t.Errorf("clean_text: got %q", rec.CleanText)
	}
	if rec.OCRTextLength != len([]rune(rec.CleanText)) {
		t.Errorf("ocr_text_length: got %d, want %d", rec.OCRTextLength, len(rec.CleanText))
	}
	if rec.RawText != "two   words\nhere" {
		t.Errorf("raw_text altered: %q", rec.RawText)
	}
}
