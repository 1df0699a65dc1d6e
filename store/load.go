package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/corvushq/scanweave/pipeline"
)

// LoadPages replaces the pages table with the given run output. The swap
// runs in one transaction so readers never observe a half-loaded corpus.
func (s *Store) LoadPages(ctx context.Context, pages []pipeline.Page) error {
	return s.replace(ctx, "pages", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO pages (
			file_path, category, doc_type, sequence_id, sequence_order, notes,
			raw_text, clean_text, ocr_text, ocr_text_length, confidence,
			error, model, engine, summary, entities_json, num_entities,
			search_text, extra_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range pages {
			entities, err := json.Marshal(p.Entities)
			if err != nil {
				return fmt.Errorf("marshal entities for %s: %w", p.FilePath, err)
			}
			extra := []byte("{}")
			if len(p.Extra) > 0 {
				if extra, err = json.Marshal(p.Extra); err != nil {
					return fmt.Errorf("marshal extra for %s: %w", p.FilePath, err)
				}
			}
			var conf any
			if p.Confidence != nil {
				conf = *p.Confidence
			}
			if _, err := stmt.ExecContext(ctx,
				p.FilePath, p.Category, p.DocType, p.SequenceID, p.SequenceOrder, p.Notes,
				p.RawText, p.CleanText, p.OCRText, p.OCRTextLength, conf,
				p.Error, p.Model, p.Engine, p.Summary, string(entities), p.NumEntities,
				p.SearchText, string(extra),
			); err != nil {
				return fmt.Errorf("insert page %s: %w", p.FilePath, err)
			}
		}
		return nil
	})
}

// LoadSequences replaces the sequences table with the given run output.
func (s *Store) LoadSequences(ctx context.Context, seqs []pipeline.SequenceSummary) error {
	return s.replace(ctx, "sequences", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO sequences (
			sequence_id, num_pages, sequence_summary, summary, sequence_search_text
		) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, q := range seqs {
			if _, err := stmt.ExecContext(ctx,
				q.SequenceID, q.NumPages, q.SequenceSummary, q.Summary, q.SequenceSearchText,
			); err != nil {
				return fmt.Errorf("insert sequence %s: %w", q.SequenceID, err)
			}
		}
		return nil
	})
}

// LoadJSONLDir loads pages.jsonl and sequences.jsonl from an export
// directory, as written by a pipeline run.
func (s *Store) LoadJSONLDir(ctx context.Context, dir string) error {
	pages, err := pipeline.ReadJSONL[pipeline.Page](filepath.Join(dir, "pages.jsonl"), s.logger)
	if err != nil {
		return fmt.Errorf("read pages.jsonl: %w", err)
	}
	seqs, err := pipeline.ReadJSONL[pipeline.SequenceSummary](filepath.Join(dir, "sequences.jsonl"), s.logger)
	if err != nil {
		return fmt.Errorf("read sequences.jsonl: %w", err)
	}
	if err := s.LoadPages(ctx, pages); err != nil {
		return err
	}
	if err := s.LoadSequences(ctx, seqs); err != nil {
		return err
	}
	s.logger.Info("loaded jsonl export", "dir", dir, "pages", len(pages), "sequences", len(seqs))
	return nil
}

func (s *Store) replace(ctx context.Context, table string, insert func(*sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}
