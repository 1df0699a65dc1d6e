package pipeline

import (
	"log/slog"

	"github.com/corvushq/scanweave/enrich"
	"github.com/corvushq/scanweave/ocr"
	"github.com/corvushq/scanweave/thread"
)

// Config configures a pipeline run.
type Config struct {
	// ImageRoot is the directory manifest file_path values resolve against.
	ImageRoot string `yaml:"image_root"`

	// CacheDir holds per-page OCR records. Empty disables caching entirely.
	CacheDir string `yaml:"cache_dir"`
	// UseCache reads existing records from CacheDir before calling OCR.
	UseCache bool `yaml:"use_cache"`
	// SaveCache persists freshly produced records into CacheDir.
	SaveCache bool `yaml:"save_cache"`

	// ExportDir receives pages.jsonl and sequences.jsonl when ExportJSONL
	// is set. Empty disables export.
	ExportDir   string `yaml:"export_dir"`
	ExportJSONL bool   `yaml:"export_jsonl"`

	// Workers bounds OCR-phase parallelism. 1 (the default) runs the
	// reference sequential mode; higher values fan rows out since no row
	// depends on another.
	Workers int `yaml:"workers"`

	Thread thread.Config `yaml:"thread"`
	OCR    ocr.Config    `yaml:"ocr"`
	Enrich enrich.Config `yaml:"enrich"`

	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns an offline-safe configuration with caching and
// export enabled and threading on.
func DefaultConfig() Config {
	return Config{
		ImageRoot:   "data/images",
		CacheDir:    "data/ocr_cache",
		UseCache:    true,
		SaveCache:   true,
		ExportDir:   "data/outputs",
		ExportJSONL: true,
		Workers:     1,
		Thread:      thread.DefaultConfig(),
		OCR:         ocr.DefaultConfig(),
		Enrich:      enrich.DefaultConfig(),
	}
}

func (c *Config) defaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Thread.Logger == nil {
		c.Thread.Logger = c.Logger
	}
	if c.OCR.Logger == nil {
		c.OCR.Logger = c.Logger
	}
	if c.Enrich.Logger == nil {
		c.Enrich.Logger = c.Logger
	}
}
