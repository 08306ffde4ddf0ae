// Package tabular parses delimited text files into in-memory tables.
//
// A cell value is one of: string, int64, float64, time.Time, or nil for
// missing. Missing is distinct from a present empty string: blank and
// whitespace-only cells normalize to nil, which the document store persists
// as its native null.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/covidlab/covidload/pkg/covidload"
)

// Record is one row: a mapping from column name to cell value.
type Record map[string]any

// Table is a fully parsed source file. Columns preserves header order;
// every Record carries an entry for every column.
type Table struct {
	Columns []string
	Rows    []Record
}

// New returns an empty table with the given column order.
func New(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Rename renames columns in place according to the given old→new mapping.
// Unknown names are ignored.
func (t *Table) Rename(mapping map[string]string) {
	for i, c := range t.Columns {
		if newName, ok := mapping[c]; ok {
			t.Columns[i] = newName
		}
	}
	for _, row := range t.Rows {
		for old, newName := range mapping {
			if v, ok := row[old]; ok {
				delete(row, old)
				row[newName] = v
			}
		}
	}
}

// Filter returns a new table keeping only rows for which keep returns true.
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := New(t.Columns)
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Documents converts rows to store documents. Missing stays nil so the
// store persists its native null.
func (t *Table) Documents() []covidload.Document {
	docs := make([]covidload.Document, len(t.Rows))
	for i, row := range t.Rows {
		doc := make(covidload.Document, len(row))
		for k, v := range row {
			doc[k] = v
		}
		docs[i] = doc
	}
	return docs
}

// WriteCSV writes the table with its header row. Timestamps render in the
// same canonical form ReadFile parses, so a written table re-reads to the
// identical values.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	row := make([]string, len(t.Columns))
	for _, rec := range t.Rows {
		for i, col := range t.Columns {
			row[i] = formatCell(rec[col])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// IsTemporalColumn reports whether a column name suggests temporal data.
func IsTemporalColumn(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "date") || strings.Contains(lower, "time")
}

// timestampLayouts are tried in order. Date-only and year-only values
// parse to midnight UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// ParseTimestamp parses a cell value as a timestamp. Returns false when no
// accepted layout matches.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	// Bare four-digit years appear in OECD TIME_PERIOD exports.
	if len(s) == 4 {
		if year, err := strconv.Atoi(s); err == nil && year >= 1000 {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parseCell normalizes one raw cell: blank/whitespace → nil, then number,
// then plain string.
func parseCell(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return raw
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Location() == time.UTC {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
