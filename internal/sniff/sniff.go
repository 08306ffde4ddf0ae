// Package sniff infers the field delimiter of a delimited text file from a
// leading sample. Detection never fails its caller: any problem falls back
// to comma with a warning.
package sniff

import (
	"log/slog"
	"os"
	"strings"

	"github.com/covidlab/covidload/pkg/covidload"
)

// candidates are tried in priority order; on a tie the earlier one wins.
var candidates = []rune{',', ';', '\t', '|'}

// Detect reads up to covidload.DelimiterSampleSize bytes of the file at
// path and returns the inferred single-character field delimiter.
// On an unreadable file or an ambiguous sample it returns ',' and logs a
// warning.
func Detect(path string, logger *slog.Logger) rune {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("could not read sample for delimiter detection, defaulting to comma",
			"file", path, "error", err)
		return ','
	}
	defer f.Close()

	sample := make([]byte, covidload.DelimiterSampleSize)
	n, err := f.Read(sample)
	if n == 0 {
		logger.Warn("empty sample, defaulting to comma", "file", path, "error", err)
		return ','
	}

	delim, ok := fromSample(string(sample[:n]))
	if !ok {
		logger.Warn("ambiguous sample, defaulting to comma", "file", path)
		return ','
	}

	logger.Info("detected delimiter", "file", path, "delimiter", string(delim))
	return delim
}

// fromSample picks the candidate that appears the same nonzero number of
// times on every complete sample line. Reports false when no candidate
// qualifies.
func fromSample(sample string) (rune, bool) {
	lines := strings.Split(sample, "\n")
	if len(lines) > 1 {
		// The final line is usually truncated mid-record; ignore it.
		lines = lines[:len(lines)-1]
	}

	complete := lines[:0]
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line != "" {
			complete = append(complete, line)
		}
	}
	if len(complete) == 0 {
		return 0, false
	}

	for _, cand := range candidates {
		count := strings.Count(complete[0], string(cand))
		if count == 0 {
			continue
		}
		consistent := true
		for _, line := range complete[1:] {
			if strings.Count(line, string(cand)) != count {
				consistent = false
				break
			}
		}
		if consistent {
			return cand, true
		}
	}
	return 0, false
}
