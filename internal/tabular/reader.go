package tabular

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"

	"github.com/covidlab/covidload/pkg/covidload"
)

// ReadFile parses the delimited file at path into a Table using the given
// delimiter. The whole file is read into memory; there is no streaming.
//
// Returned alongside the table is the number of date/time cells that could
// not be parsed and were downgraded to missing.
//
// A missing or unreadable file returns an error wrapping
// covidload.ErrFileAccess; the caller skips the file and the run continues.
func ReadFile(path string, delim rune, logger *slog.Logger) (*Table, int, error) {
	f, err := openReadable(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delim
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("parsing %s: missing header row", path)
	}

	header := rows[0]
	table := New(header)

	temporal := make([]bool, len(header))
	for i, col := range header {
		temporal[i] = IsTemporalColumn(col)
	}

	coerced := 0
	for _, raw := range rows[1:] {
		rec := make(Record, len(header))
		for i, col := range header {
			// Ragged rows: absent trailing cells are missing.
			if i >= len(raw) {
				rec[col] = nil
				continue
			}
			value := parseCell(raw[i])
			if value != nil && temporal[i] {
				str := raw[i]
				if ts, ok := ParseTimestamp(str); ok {
					rec[col] = ts
				} else {
					rec[col] = nil
					coerced++
				}
				continue
			}
			rec[col] = value
		}
		table.Rows = append(table.Rows, rec)
	}

	if coerced > 0 {
		logger.Warn("unparseable date/time cells downgraded to missing",
			"file", path, "count", coerced)
	}
	logger.Info("loaded records", "file", path, "count", table.Len())

	return table, coerced, nil
}

func openReadable(path string) (*os.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, wrapAccess(err))
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: is a directory: %w", path, wrapAccess(nil))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, wrapAccess(err))
	}
	return f, nil
}

func wrapAccess(err error) error {
	if err == nil {
		return covidload.ErrFileAccess
	}
	return fmt.Errorf("%w: %w", covidload.ErrFileAccess, err)
}
