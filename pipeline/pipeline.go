// Package pipeline orchestrates the full document run: per-page OCR with
// cache-first lookup, sequence reconstruction, page and sequence
// enrichment, merge into the flat output schema, and JSONL export.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/corvushq/scanweave/enrich"
	"github.com/corvushq/scanweave/manifest"
	"github.com/corvushq/scanweave/ocr"
	"github.com/corvushq/scanweave/thread"
)

// Pipeline wires the stages together. Providers are fixed at construction
// so a run never silently switches engines midway.
type Pipeline struct {
	cfg     Config
	threads *thread.Agent
	ocr     ocr.Provider
	enrich  enrich.Provider
	cache   *ocr.Cache
}

// New builds a Pipeline from configuration, constructing the OCR and
// enrichment providers (with their configured fallbacks).
func New(ctx context.Context, cfg Config) (*Pipeline, error) {
	cfg.defaults()
	op, err := ocr.New(ctx, cfg.OCR)
	if err != nil {
		return nil, fmt.Errorf("ocr provider: %w", err)
	}
	ep, err := enrich.New(ctx, cfg.Enrich)
	if err != nil {
		return nil, fmt.Errorf("enrich provider: %w", err)
	}
	return NewWithProviders(cfg, op, ep), nil
}

// NewWithProviders builds a Pipeline around pre-built providers.
func NewWithProviders(cfg Config, op ocr.Provider, ep enrich.Provider) *Pipeline {
	cfg.defaults()
	p := &Pipeline{
		cfg:     cfg,
		threads: thread.New(cfg.Thread),
		ocr:     op,
		enrich:  ep,
	}
	if cfg.CacheDir != "" {
		p.cache = ocr.NewCache(cfg.CacheDir, cfg.Logger)
	}
	return p
}

// Run processes manifest rows end to end and returns the merged pages and
// sequence summaries. An empty manifest returns empty results without
// touching any provider.
func (p *Pipeline) Run(ctx context.Context, rows []manifest.Row) ([]Page, []SequenceSummary, error) {
	logger := p.cfg.Logger.With("run", uuid.NewString()[:8])

	if len(rows) == 0 {
		logger.Warn("manifest has no rows; nothing to do")
		return []Page{}, []SequenceSummary{}, nil
	}
	if err := manifest.Validate(rows); err != nil {
		return nil, nil, fmt.Errorf("manifest: %w", err)
	}
	if _, err := os.Stat(p.cfg.ImageRoot); err != nil {
		logger.Warn("image root not accessible; pages will record file errors",
			"image_root", p.cfg.ImageRoot, "err", err)
	}

	records, fromCache, err := p.runOCR(ctx, rows)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("ocr phase complete",
		"pages", len(rows), "from_cache", fromCache, "fresh", len(rows)-fromCache)

	groups := p.threads.GroupSequences(rows)

	pages := make([]Page, 0, len(rows))
	pagesByKey := make(map[string][]Page, len(groups))
	for idx, row := range rows {
		key := p.threads.KeyFor(idx, row)
		pr := p.enrich.ExtractPage(ctx, recordText(records[idx]), row)
		page := buildPage(key, row, records[idx], pr)
		pages = append(pages, page)
		pagesByKey[key] = append(pagesByKey[key], page)
	}

	summaries := p.summarizeSequences(ctx, rows, groups, pagesByKey)
	logger.Info("run complete", "pages", len(pages), "sequences", len(summaries))

	if p.cfg.ExportJSONL && p.cfg.ExportDir != "" {
		if err := p.export(pages, summaries); err != nil {
			return nil, nil, err
		}
		logger.Info("exported jsonl", "dir", p.cfg.ExportDir)
	}
	return pages, summaries, nil
}

// runOCR produces one record per row, serving cached records first. The
// record slice is index-aligned with rows.
func (p *Pipeline) runOCR(ctx context.Context, rows []manifest.Row) ([]ocr.Record, int, error) {
	records := make([]ocr.Record, len(rows))
	cached := make([]bool, len(rows))

	if p.cfg.Workers <= 1 {
		for idx, row := range rows {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
			records[idx], cached[idx] = p.pageRecord(ctx, row)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.Workers)
		for idx, row := range rows {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				records[idx], cached[idx] = p.pageRecord(gctx, row)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, 0, err
		}
	}

	fromCache := 0
	for _, c := range cached {
		if c {
			fromCache++
		}
	}
	return records, fromCache, nil
}

// pageRecord resolves one row's OCR record: cache hit when permitted,
// otherwise a fresh provider call, persisted when saving is on.
func (p *Pipeline) pageRecord(ctx context.Context, row manifest.Row) (ocr.Record, bool) {
	if p.cache != nil && p.cfg.UseCache {
		if rec, ok := p.cache.Load(row.FilePath); ok {
			return rec, true
		}
	}
	rec := p.ocr.RunPage(ctx, filepath.Join(p.cfg.ImageRoot, row.FilePath), row)
	if p.cache != nil && p.cfg.SaveCache {
		p.cache.Save(row.FilePath, rec)
	}
	return rec, false
}

// summarizeSequences rolls each sequence up, walking sequences in
// first-seen manifest order. num_pages counts every member row, including
// pages that produced no text; a sequence with no text at all gets an
// empty summary without a provider call.
func (p *Pipeline) summarizeSequences(ctx context.Context, rows []manifest.Row, groups map[string][]manifest.Row, pagesByKey map[string][]Page) []SequenceSummary {
	summaries := make([]SequenceSummary, 0, len(groups))
	seen := make(map[string]bool, len(groups))
	for idx, row := range rows {
		key := p.threads.KeyFor(idx, row)
		if seen[key] {
			continue
		}
		seen[key] = true

		members := groups[key]
		ordered := append([]Page(nil), pagesByKey[key]...)
		sort.SliceStable(ordered, func(i, j int) bool {
			return thread.OrderLess(ordered[i].SequenceOrder, ordered[j].SequenceOrder)
		})
		texts := make([]string, 0, len(ordered))
		for _, page := range ordered {
			if t := pageText(page); t != "" {
				texts = append(texts, t)
			}
		}
		sum := SequenceSummary{
			SequenceID: key,
			NumPages:   len(members),
		}
		if len(texts) > 0 {
			sr := p.enrich.SummarizeSequence(ctx, texts)
			sum.SequenceSummary = sr.SequenceSummary
			sum.SequenceSearchText = sr.SequenceSearchText
		}
		sum.Summary = sum.SequenceSummary
		summaries = append(summaries, sum)
	}
	return summaries
}

func (p *Pipeline) export(pages []Page, summaries []SequenceSummary) error {
	if err := WriteJSONL(filepath.Join(p.cfg.ExportDir, "pages.jsonl"), pages); err != nil {
		return fmt.Errorf("export pages: %w", err)
	}
	if err := WriteJSONL(filepath.Join(p.cfg.ExportDir, "sequences.jsonl"), summaries); err != nil {
		return fmt.Errorf("export sequences: %w", err)
	}
	return nil
}
