package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/corvushq/scanweave/enrich"
	"github.com/corvushq/scanweave/pipeline"
	"github.com/corvushq/scanweave/thread"
)

// ErrNotFound reports a missing sequence.
var ErrNotFound = errors.New("not found")

// SearchResult is one full-text hit.
type SearchResult struct {
	FilePath   string  `json:"file_path"`
	SequenceID string  `json:"sequence_id"`
	Category   string  `json:"category"`
	DocType    string  `json:"doc_type"`
	Summary    string  `json:"summary"`
	Snippet    string  `json:"snippet"`
	Rank       float64 `json:"rank"`
}

// Search runs an FTS5 match over page search text, summaries, and notes,
// best hits first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT p.file_path, p.sequence_id, p.category, p.doc_type, p.summary,
			snippet(pages_fts, 0, '[', ']', '…', 12), rank
		FROM pages_fts f
		JOIN pages p ON p.rowid = f.rowid
		WHERE pages_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.FilePath, &r.SequenceID, &r.Category, &r.DocType,
			&r.Summary, &r.Snippet, &r.Rank); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Sequence is one stored sequence with its member pages in reading order.
type Sequence struct {
	pipeline.SequenceSummary
	Pages []pipeline.Page `json:"pages"`
}

// GetSequence returns a sequence and its pages, ordered by sequence_order.
// Returns ErrNotFound for an unknown id.
func (s *Store) GetSequence(ctx context.Context, id string) (*Sequence, error) {
	var seq Sequence
	err := s.DB.QueryRowContext(ctx,
		`SELECT sequence_id, num_pages, sequence_summary, summary, sequence_search_text
		FROM sequences WHERE sequence_id = ?`, id).
		Scan(&seq.SequenceID, &seq.NumPages, &seq.SequenceSummary.SequenceSummary,
			&seq.Summary, &seq.SequenceSearchText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sequence %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get sequence %s: %w", id, err)
	}

	pages, err := s.sequencePages(ctx, id)
	if err != nil {
		return nil, err
	}
	seq.Pages = pages
	return &seq, nil
}

// ListSequences returns all stored sequence summaries.
func (s *Store) ListSequences(ctx context.Context) ([]pipeline.SequenceSummary, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT sequence_id, num_pages, sequence_summary, summary, sequence_search_text
		FROM sequences ORDER BY sequence_id`)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	var out []pipeline.SequenceSummary
	for rows.Next() {
		var q pipeline.SequenceSummary
		if err := rows.Scan(&q.SequenceID, &q.NumPages, &q.SequenceSummary,
			&q.Summary, &q.SequenceSearchText); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) sequencePages(ctx context.Context, id string) ([]pipeline.Page, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT file_path, category, doc_type, sequence_id, sequence_order, notes,
			raw_text, clean_text, ocr_text, ocr_text_length, confidence,
			error, model, engine, summary, entities_json, num_entities,
			search_text, extra_json
		FROM pages WHERE sequence_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("sequence pages %s: %w", id, err)
	}
	defer rows.Close()

	var pages []pipeline.Page
	for rows.Next() {
		var p pipeline.Page
		var conf sql.NullFloat64
		var entities, extra string
		if err := rows.Scan(&p.FilePath, &p.Category, &p.DocType, &p.SequenceID,
			&p.SequenceOrder, &p.Notes, &p.RawText, &p.CleanText, &p.OCRText,
			&p.OCRTextLength, &conf, &p.Error, &p.Model, &p.Engine, &p.Summary,
			&entities, &p.NumEntities, &p.SearchText, &extra); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		if conf.Valid {
			v := conf.Float64
			p.Confidence = &v
		}
		if err := json.Unmarshal([]byte(entities), &p.Entities); err != nil {
			p.Entities = []enrich.Entity{}
		}
		var ex map[string]string
		if err := json.Unmarshal([]byte(extra), &ex); err == nil && len(ex) > 0 {
			p.Extra = ex
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(pages, func(i, j int) bool {
		return thread.OrderLess(pages[i].SequenceOrder, pages[j].SequenceOrder)
	})
	return pages, nil
}
