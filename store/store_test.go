package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/corvushq/scanweave/enrich"
	"github.com/corvushq/scanweave/pipeline"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fixturePages() []pipeline.Page {
	conf := 0.87
	return []pipeline.Page{
		{
			FilePath: "box/a.jpg", Category: "letters", DocType: "page",
			SequenceID: "s1", SequenceOrder: "2", Notes: "water damage",
			RawText: "raw a", CleanText: "clean a", OCRText: "the quick brown fox",
			OCRTextLength: 19, Confidence: &conf, Model: "m", Engine: "e",
			Summary: "fox letter page two", Entities: []enrich.Entity{{Type: "CAP_TOKEN", Text: "Fox"}},
			NumEntities: 1, SearchText: "the quick brown fox\n\nwater damage",
			Extra: map[string]string{"source_box": "12"},
		},
		{
			FilePath: "box/b.jpg", Category: "letters", DocType: "page",
			SequenceID: "s1", SequenceOrder: "1",
			OCRText: "lazy dog opening", OCRTextLength: 16,
			Summary: "letter opening page", Entities: []enrich.Entity{},
			SearchText: "lazy dog opening",
		},
		{
			FilePath: "memo.jpg", Category: "memos", DocType: "page",
			SequenceID: "singleton::memo.jpg",
			OCRText:    "quarterly budget memo", OCRTextLength: 21,
			Entities:   []enrich.Entity{},
			SearchText: "quarterly budget memo",
		},
	}
}

func fixtureSequences() []pipeline.SequenceSummary {
	return []pipeline.SequenceSummary{
		{SequenceID: "s1", NumPages: 2, SequenceSummary: "a letter about a fox", Summary: "a letter about a fox", SequenceSearchText: "fox letter"},
		{SequenceID: "singleton::memo.jpg", NumPages: 1},
	}
}

func loadFixtures(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.LoadPages(ctx, fixturePages()); err != nil {
		t.Fatalf("load pages: %v", err)
	}
	if err := s.LoadSequences(ctx, fixtureSequences()); err != nil {
		t.Fatalf("load sequences: %v", err)
	}
}

func TestSearch(t *testing.T) {
	// WHAT: FTS5 search over loaded pages.
	// WHY: Search is the primary consumer feature.
	s := openTest(t)
	loadFixtures(t, s)

	results, err := s.Search(context.Background(), "fox", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].FilePath != "box/a.jpg" || results[0].SequenceID != "s1" {
		t.Errorf("unexpected hit: %+v", results[0])
	}
	if !strings.Contains(results[0].Snippet, "[fox]") {
		t.Errorf("snippet missing highlight: %q", results[0].Snippet)
	}
}

func TestSearchMatchesNotes(t *testing.T) {
	s := openTest(t)
	loadFixtures(t, s)

	results, err := s.Search(context.Background(), "damage", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("notes column not indexed: got %d results", len(results))
	}
}

func TestSearchEmptyCorpus(t *testing.T) {
	s := openTest(t)
	results, err := s.Search(context.Background(), "anything", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from an empty corpus", len(results))
	}
}

func TestLoadPagesReplaces(t *testing.T) {
	// WHAT: a second load fully replaces the table and the FTS index.
	s := openTest(t)
	loadFixtures(t, s)

	replacement := []pipeline.Page{{
		FilePath: "new.jpg", Category: "c", DocType: "d",
		SequenceID: "singleton::new.jpg",
		OCRText:    "replacement corpus", SearchText: "replacement corpus",
		Entities: []enrich.Entity{},
	}}
	if err := s.LoadPages(context.Background(), replacement); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if hits, _ := s.Search(context.Background(), "fox", 10); len(hits) != 0 {
		t.Error("old pages still searchable after replacement load")
	}
	hits, err := s.Search(context.Background(), "replacement", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("new pages not searchable: got %d hits", len(hits))
	}
}

func TestGetSequence(t *testing.T) {
	s := openTest(t)
	loadFixtures(t, s)

	seq, err := s.GetSequence(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get sequence: %v", err)
	}
	if seq.NumPages != 2 || len(seq.Pages) != 2 {
		t.Fatalf("sequence = %+v", seq)
	}
	// Pages come back in sequence_order, not insertion order.
	if seq.Pages[0].FilePath != "box/b.jpg" || seq.Pages[1].FilePath != "box/a.jpg" {
		t.Errorf("pages out of order: %s, %s", seq.Pages[0].FilePath, seq.Pages[1].FilePath)
	}
	if seq.Pages[1].Confidence == nil || *seq.Pages[1].Confidence != 0.87 {
		t.Errorf("confidence lost: %v", seq.Pages[1].Confidence)
	}
	if seq.Pages[1].Extra["source_box"] != "12" {
		t.Errorf("extra columns lost: %v", seq.Pages[1].Extra)
	}
	if len(seq.Pages[1].Entities) != 1 || seq.Pages[1].Entities[0].Text != "Fox" {
		t.Errorf("entities lost: %v", seq.Pages[1].Entities)
	}
}

func TestGetSequenceNotFound(t *testing.T) {
	s := openTest(t)
	loadFixtures(t, s)

	_, err := s.GetSequence(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListSequences(t *testing.T) {
	s := openTest(t)
	loadFixtures(t, s)

	seqs, err := s.ListSequences(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(seqs) != 2 {
		t.Fatalf("got %d sequences, want 2", len(seqs))
	}
}

func TestLoadJSONLDir(t *testing.T) {
	// WHAT: loading a pipeline export directory round-trips through JSONL.
	dir := t.TempDir()
	if err := pipeline.WriteJSONL(filepath.Join(dir, "pages.jsonl"), fixturePages()); err != nil {
		t.Fatalf("write pages: %v", err)
	}
	if err := pipeline.WriteJSONL(filepath.Join(dir, "sequences.jsonl"), fixtureSequences()); err != nil {
		t.Fatalf("write sequences: %v", err)
	}

	s := openTest(t)
	if err := s.LoadJSONLDir(context.Background(), dir); err != nil {
		t.Fatalf("load dir: %v", err)
	}
	hits, err := s.Search(context.Background(), "memo", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("got %d hits after jsonl load, want 1", len(hits))
	}
}

func TestLoadJSONLDirMissingFiles(t *testing.T) {
	// An empty export dir loads an empty corpus rather than failing.
	s := openTest(t)
	if err := s.LoadJSONLDir(context.Background(), t.TempDir()); err != nil {
		t.Fatalf("load empty dir: %v", err)
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "corpus.db")
	s, err := Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

func TestHTTPSearch(t *testing.T) {
	s := openTest(t)
	loadFixtures(t, s)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/search?q=fox")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Count   int            `json:"count"`
		Results []SearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || len(body.Results) != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestHTTPSearchMissingQuery(t *testing.T) {
	s := openTest(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/search")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHTTPGetSequence(t *testing.T) {
	s := openTest(t)
	loadFixtures(t, s)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/sequences/s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var seq Sequence
	if err := json.NewDecoder(resp.Body).Decode(&seq); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if seq.SequenceID != "s1" || len(seq.Pages) != 2 {
		t.Errorf("sequence = %+v", seq)
	}

	resp2, err := http.Get(srv.URL + "/api/v1/sequences/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp2.StatusCode)
	}
}

func TestHTTPHealth(t *testing.T) {
	s := openTest(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
