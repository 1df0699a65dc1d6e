// Package thread groups flat manifest rows into named, internally-ordered
// sequences. A sequence is a logical multi-page document reconstructed from
// the manifest's sequence_id/sequence_order columns; rows without usable
// thread metadata become singleton sequences so every page flows through
// the pipeline the same way.
package thread

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/corvushq/scanweave/manifest"
)

// orderSentinel pushes rows with missing or unparsable sequence_order past
// every legitimately ordered row.
const orderSentinel = 1e9

// Config configures the reconstructor.
type Config struct {
	// EnableThreads toggles grouping. When false every row is its own
	// sequence keyed by file_path.
	EnableThreads bool `yaml:"enable_threads"`

	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the default (threading enabled) configuration.
func DefaultConfig() Config {
	return Config{EnableThreads: true}
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Agent reconstructs sequences from manifest rows.
type Agent struct {
	cfg Config
}

// New creates an Agent.
func New(cfg Config) *Agent {
	cfg.defaults()
	return &Agent{cfg: cfg}
}

// SingletonID returns the synthetic sequence id for a row without usable
// thread metadata.
func SingletonID(filePath string) string {
	return "singleton::" + filePath
}

// idMissing reports whether a sequence_id value is unusable: blank,
// whitespace-only, or the NaN-like literal a float-typed tabular column
// leaves behind.
func idMissing(id string) bool {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return true
	}
	return strings.EqualFold(trimmed, "nan")
}

// SequenceKey returns the effective sequence id a row lands under when
// threading is enabled. The orchestrator uses it to iterate sequences in
// first-seen manifest order.
func SequenceKey(row manifest.Row) string {
	if idMissing(row.SequenceID) {
		return SingletonID(row.FilePath)
	}
	return strings.TrimSpace(row.SequenceID)
}

// OrderLess compares two sequence_order values. Each parses as a float;
// missing or non-numeric values sort after every parsed one, so a stable
// sort keeps their original relative order at the end.
func OrderLess(a, b string) bool {
	return orderValue(a) < orderValue(b)
}

func orderValue(order string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(order), 64)
	if err != nil {
		return orderSentinel
	}
	return v
}

// KeyFor returns the sequence key row idx lands under in this agent's mode.
// The orchestrator uses it to walk sequences in first-seen manifest order.
func (a *Agent) KeyFor(idx int, row manifest.Row) string {
	if !a.cfg.EnableThreads {
		if row.FilePath == "" {
			return fmt.Sprintf("seq_%d", idx)
		}
		return row.FilePath
	}
	return SequenceKey(row)
}

// GroupSequences partitions rows into ordered sequences.
//
// Threading enabled: rows group by SequenceKey and sort ascending by parsed
// sequence_order; the sort is stable, so unparsable-order rows keep their
// original relative order at the end. Threading disabled: every row is a
// singleton keyed by file_path (or a positional seq_<idx> key when even the
// path is blank). Malformed rows never raise; best-effort defaults apply.
func (a *Agent) GroupSequences(rows []manifest.Row) map[string][]manifest.Row {
	if len(rows) == 0 {
		a.cfg.Logger.Info("thread grouping called with 0 rows")
		return map[string][]manifest.Row{}
	}

	if !a.cfg.EnableThreads {
		a.cfg.Logger.Info("threading disabled; treating each row as its own sequence")
		grouped := make(map[string][]manifest.Row, len(rows))
		for idx, row := range rows {
			grouped[a.KeyFor(idx, row)] = []manifest.Row{row}
		}
		return grouped
	}

	grouped := make(map[string][]manifest.Row)
	for _, row := range rows {
		key := SequenceKey(row)
		grouped[key] = append(grouped[key], row)
	}

	for _, members := range grouped {
		sort.SliceStable(members, func(i, j int) bool {
			return OrderLess(members[i].SequenceOrder, members[j].SequenceOrder)
		})
	}

	a.cfg.Logger.Info("grouped manifest rows into sequences",
		"rows", len(rows), "sequences", len(grouped))
	return grouped
}
