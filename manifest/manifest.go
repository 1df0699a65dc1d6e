// Package manifest defines the input schema for the pipeline: one Row per
// scanned page image, read once from a CSV or JSONL manifest file and
// immutable afterwards.
//
// Known columns map onto Row fields; anything else passes through opaquely
// in Extra so downstream records keep arbitrary curation metadata.
package manifest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Required manifest columns. A manifest lacking any of these is rejected
// before the pipeline runs.
var Required = []string{"file_path", "category", "doc_type"}

// Row is one manifest entry describing a single page image.
type Row struct {
	// FilePath is the page image path relative to the image root. Unique key.
	FilePath string
	// Category and DocType classify the page (curation metadata).
	Category string
	DocType  string
	// SequenceID is the optional thread identifier. May be blank or a
	// NaN-like literal when the upstream table had no value.
	SequenceID string
	// SequenceOrder is the raw ordering value within the thread. Parsed as a
	// float where needed; kept raw here so malformed values survive intact.
	SequenceOrder string
	// Notes is free-form curator text, folded into search text downstream.
	Notes string
	// Extra holds all unrecognized columns, passed through untouched.
	Extra map[string]string
}

// Field returns a named field value, checking known columns before Extra.
func (r Row) Field(name string) string {
	switch name {
	case "file_path":
		return r.FilePath
	case "category":
		return r.Category
	case "doc_type":
		return r.DocType
	case "sequence_id":
		return r.SequenceID
	case "sequence_order":
		return r.SequenceOrder
	case "notes":
		return r.Notes
	}
	return r.Extra[name]
}

func rowFromFields(fields map[string]string) Row {
	row := Row{
		FilePath:      fields["file_path"],
		Category:      fields["category"],
		DocType:       fields["doc_type"],
		SequenceID:    fields["sequence_id"],
		SequenceOrder: fields["sequence_order"],
		Notes:         fields["notes"],
	}
	for k, v := range fields {
		switch k {
		case "file_path", "category", "doc_type", "sequence_id", "sequence_order", "notes":
		default:
			if row.Extra == nil {
				row.Extra = make(map[string]string)
			}
			row.Extra[k] = v
		}
	}
	return row
}

// Load reads a manifest file, dispatching on extension (.csv, .jsonl/.ndjson).
func Load(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".jsonl", ".ndjson":
		return ReadJSONL(f)
	default:
		return nil, fmt.Errorf("unsupported manifest format: %q", filepath.Ext(path))
	}
}

// ReadCSV parses a headered CSV manifest. Header names are trimmed and
// lower-cased before matching.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read manifest line %d: %w", line, err)
		}
		fields := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				fields[h] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, rowFromFields(fields))
	}
	return rows, nil
}

// ReadJSONL parses a JSON-lines manifest, one object per line. Blank lines
// are skipped; a malformed line is an error (the manifest is authoritative
// input, unlike pipeline exports which tolerate damage).
func ReadJSONL(r io.Reader) ([]Row, error) {
	dec := json.NewDecoder(r)
	var rows []Row
	for line := 1; ; line++ {
		var obj map[string]any
		if err := dec.Decode(&obj); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("parse manifest object %d: %w", line, err)
		}
		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			fields[strings.ToLower(k)] = stringify(v)
		}
		rows = append(rows, rowFromFields(fields))
	}
	return rows, nil
}

// WriteCSV writes rows as a headered CSV manifest. Known columns come
// first in canonical order; extra columns follow sorted by name so the
// output is stable across runs.
func WriteCSV(path string, rows []Row) error {
	known := []string{"file_path", "category", "doc_type", "sequence_id", "sequence_order", "notes"}
	extraSet := make(map[string]bool)
	for _, row := range rows {
		for k := range row.Extra {
			extraSet[k] = true
		}
	}
	extras := make([]string, 0, len(extraSet))
	for k := range extraSet {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	header := append(append([]string{}, known...), extras...)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write manifest header: %w", err)
	}
	for _, row := range rows {
		rec := make([]string, 0, len(header))
		for _, col := range header {
			rec = append(rec, row.Field(col))
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write manifest row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush manifest: %w", err)
	}
	return f.Close()
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		// Integral floats render without the trailing ".0" pandas leaves.
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

// Validate checks that the required columns are populated somewhere in the
// row set. A required column counts as missing when no row carries a value
// for it, mirroring a tabular manifest that simply lacks the column. An
// empty row set is valid; the pipeline short-circuits on it separately.
func Validate(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	var missing []string
	for _, col := range Required {
		found := false
		for _, row := range rows {
			if strings.TrimSpace(row.Field(col)) != "" {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("manifest is missing required columns: %s (expected at least: %s)",
			strings.Join(missing, ", "), strings.Join(Required, ", "))
	}
	return nil
}
