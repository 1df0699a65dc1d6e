package ocr

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Cache persists one Record per page as a flat JSON file. Keys are derived
// from the page's relative path, so distinct pages own disjoint files and
// concurrent writers never contend on shared state.
//
// The cache favors availability over freshness: an imperfect cached record
// is served as-is, and only records that are outright bad (error set, no
// text) force a fresh OCR call. All cache I/O failures degrade to a miss
// or a no-op; the pipeline never fails because caching failed.
type Cache struct {
	dir    string
	logger *slog.Logger
}

// NewCache creates a cache rooted at dir.
func NewCache(dir string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{dir: dir, logger: logger}
}

// CacheKey flattens a relative page path into a filesystem-safe file name:
// "A/B.jpg" → "A__B.jpg.json".
func CacheKey(relPath string) string {
	return strings.ReplaceAll(relPath, "/", "__") + ".json"
}

// Load returns the cached record for relPath. ok is false on a miss, on
// unreadable or unparsable files, and for bad records.
func (c *Cache) Load(relPath string) (Record, bool) {
	path := filepath.Join(c.dir, CacheKey(relPath))
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("ocr cache read failed", "file", relPath, "error", err)
		}
		return Record{}, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		c.logger.Warn("ocr cache parse failed", "file", relPath, "error", err)
		return Record{}, false
	}
	if rec.Bad() {
		c.logger.Info("ignoring cached OCR with error and no text", "file", relPath)
		return Record{}, false
	}
	return rec, true
}

// Save persists a record for relPath. Failures are logged and swallowed.
func (c *Cache) Save(relPath string, rec Record) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Warn("ocr cache mkdir failed", "dir", c.dir, "error", err)
		return
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		c.logger.Warn("ocr cache marshal failed", "file", relPath, "error", err)
		return
	}
	path := filepath.Join(c.dir, CacheKey(relPath))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.logger.Warn("ocr cache write failed", "file", relPath, "error", err)
	}
}
