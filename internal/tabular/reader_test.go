package tabular

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/covidlab/covidload/pkg/covidload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadFile_MissingFile(t *testing.T) {
	_, _, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"), ',', discard())
	require.Error(t, err)
	assert.True(t, errors.Is(err, covidload.ErrFileAccess))
}

func TestReadFile_BlankAndWhitespaceCellsAreMissing(t *testing.T) {
	path := writeTemp(t, "Entity,Value\nFrance,1\nSpain,\nItaly,   \nNorway,0\n")

	table, coerced, err := ReadFile(path, ',', discard())
	require.NoError(t, err)
	assert.Zero(t, coerced)
	require.Equal(t, 4, table.Len())

	assert.Equal(t, int64(1), table.Rows[0]["Value"])
	assert.Nil(t, table.Rows[1]["Value"], "blank cell normalizes to missing")
	assert.Nil(t, table.Rows[2]["Value"], "whitespace-only cell normalizes to missing")
	assert.Equal(t, int64(0), table.Rows[3]["Value"], `"0" must not normalize to missing`)
}

func TestReadFile_TemporalColumnsCoerced(t *testing.T) {
	path := writeTemp(t, "Entity,report_date\nFrance,2021-03-15\nSpain,not-a-date\nItaly,\n")

	table, coerced, err := ReadFile(path, ',', discard())
	require.NoError(t, err)
	assert.Equal(t, 1, coerced, "only the unparseable cell counts as a coercion")

	want := time.Date(2021, time.March, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, table.Rows[0]["report_date"])
	assert.Nil(t, table.Rows[1]["report_date"], "unparseable date becomes missing, not an error")
	assert.Nil(t, table.Rows[2]["report_date"])
}

func TestReadFile_TemporalDetectionIsCaseInsensitive(t *testing.T) {
	path := writeTemp(t, "TIME_PERIOD,OBS_VALUE\n2015,9.1\n")

	table, _, err := ReadFile(path, ',', discard())
	require.NoError(t, err)

	want := time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, table.Rows[0]["TIME_PERIOD"])
	assert.Equal(t, 9.1, table.Rows[0]["OBS_VALUE"])
}

func TestReadFile_NumbersAndStrings(t *testing.T) {
	path := writeTemp(t, "Entity,Doses,Rate\nFrance,1000,1.25\nSpain,x,y\n")

	table, _, err := ReadFile(path, ',', discard())
	require.NoError(t, err)

	assert.Equal(t, int64(1000), table.Rows[0]["Doses"])
	assert.Equal(t, 1.25, table.Rows[0]["Rate"])
	assert.Equal(t, "x", table.Rows[1]["Doses"])
}

func TestReadFile_SemicolonDelimiter(t *testing.T) {
	path := writeTemp(t, "Entity;Value\nFrance;3\n")

	table, _, err := ReadFile(path, ';', discard())
	require.NoError(t, err)
	assert.Equal(t, int64(3), table.Rows[0]["Value"])
}

func TestReadFile_RaggedRowsPadWithMissing(t *testing.T) {
	path := writeTemp(t, "A,B,C\n1,2\n")

	table, _, err := ReadFile(path, ',', discard())
	require.NoError(t, err)
	assert.Equal(t, int64(1), table.Rows[0]["A"])
	assert.Nil(t, table.Rows[0]["C"])
}

// Re-reading a table's own CSV output must reproduce the same timestamps.
func TestReadFile_DateCoercionIdempotent(t *testing.T) {
	path := writeTemp(t, "Entity,report_date\nFrance,2021-03-15\nSpain,bad-date\n")

	first, _, err := ReadFile(path, ',', discard())
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "normalized.csv")
	f, err := os.Create(out)
	require.NoError(t, err)
	require.NoError(t, first.WriteCSV(f))
	require.NoError(t, f.Close())

	second, coerced, err := ReadFile(out, ',', discard())
	require.NoError(t, err)
	assert.Zero(t, coerced, "already-normalized output has no coercions left")
	assert.Equal(t, first.Rows, second.Rows)
}
