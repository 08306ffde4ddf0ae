package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covidlab/covidload/internal/tabular"
	"github.com/covidlab/covidload/pkg/covidload"
)

func deathVaccFixture() *tabular.Table {
	t := tabular.New([]string{"Entity", "Code", "Day", ColYear, ColDailyDeaths, ColDosesPerHundred, ColWorldRegion})
	t.Rows = []tabular.Record{
		{"Entity": "Germany", "Code": "DEU", "Day": day("2021-06-01"), ColYear: int64(2021),
			ColDailyDeaths: 1.5, ColDosesPerHundred: 50.2, ColWorldRegion: "Europe"},
		{"Entity": "Chile", "Code": "CHL", "Day": day("2021-06-01"), ColYear: int64(2021),
			ColDailyDeaths: 2.1, ColDosesPerHundred: 60.0, ColWorldRegion: "South America"},
		// Aggregates resolve to synthetic codes longer than three letters
		// and are dropped.
		{"Entity": "World", "Code": "OWID_WRL", "Day": day("2021-06-01"), ColYear: int64(2021),
			ColDailyDeaths: 1.8, ColDosesPerHundred: 45.0, ColWorldRegion: nil},
	}
	return t
}

func dosesFixture() *tabular.Table {
	t := tabular.New([]string{"Entity", "Code", "Day", ColManufacturer, ColDosesCumulative})
	t.Rows = []tabular.Record{
		{"Entity": "Germany", "Code": "DEU", "Day": day("2021-06-01"),
			ColManufacturer: "Pfizer/BioNTech", ColDosesCumulative: int64(1000)},
		{"Entity": "Germany", "Code": "DEU", "Day": day("2021-06-01"),
			ColManufacturer: "Moderna", ColDosesCumulative: int64(400)},
	}
	return t
}

func oecdFixture() *tabular.Table {
	t := tabular.New([]string{ColCountryCode, ColCountry, ColYear, ColHealthExp})
	t.Rows = []tabular.Record{
		{ColCountryCode: "DEU", ColCountry: "Germany", ColYear: int64(2021), ColHealthExp: 12.8},
	}
	return t
}

func usRatesFixture() *tabular.Table {
	t := tabular.New([]string{"Entity", "Day", ColRateUnvaccinated, ColRateVaccinated, ColRateBivalent})
	t.Rows = []tabular.Record{
		{"Entity": "United States", "Day": day("2021-03-01"),
			ColRateUnvaccinated: 10.0, ColRateVaccinated: 2.0, ColRateBivalent: int64(0)},
		{"Entity": "United States", "Day": day("2021-09-01"),
			ColRateUnvaccinated: 14.0, ColRateVaccinated: 4.0, ColRateBivalent: int64(0)},
	}
	return t
}

func TestMerge(t *testing.T) {
	merged, err := Merge(deathVaccFixture(), dosesFixture(), oecdFixture(), usRatesFixture(), testLogger())
	require.NoError(t, err)

	// Chile has no OECD match and World is an aggregate; Germany expands
	// to one row per manufacturer.
	require.Equal(t, 2, merged.Len())

	manufacturers := map[any]bool{}
	for _, row := range merged.Rows {
		assert.Equal(t, "Germany", row["Entity"])
		assert.Equal(t, "DEU", row[ColCountryCode])
		assert.Equal(t, int64(2021), row[ColYear])
		assert.Equal(t, 12.8, row[ColHealthExp])

		// Yearly mean of the two US samples.
		assert.Equal(t, 12.0, row[ColRateUnvaccinated])
		assert.Equal(t, 3.0, row[ColRateVaccinated])

		manufacturers[row[ColManufacturer]] = true
	}
	assert.True(t, manufacturers["Pfizer/BioNTech"])
	assert.True(t, manufacturers["Moderna"])
}

func TestMerge_NoDosesMatchKeepsRow(t *testing.T) {
	doses := tabular.New([]string{"Entity", "Code", "Day", ColManufacturer, ColDosesCumulative})

	merged, err := Merge(deathVaccFixture(), doses, oecdFixture(), usRatesFixture(), testLogger())
	require.NoError(t, err)

	// Left join: Germany survives with missing manufacturer fields.
	require.Equal(t, 1, merged.Len())
	assert.Nil(t, merged.Rows[0][ColManufacturer])
	assert.Nil(t, merged.Rows[0][ColDosesCumulative])
}

func TestMerge_NoCommonCountryCodes(t *testing.T) {
	oecd := tabular.New([]string{ColCountryCode, ColCountry, ColYear, ColHealthExp})
	oecd.Rows = []tabular.Record{
		{ColCountryCode: "JPN", ColCountry: "Japan", ColYear: int64(2021), ColHealthExp: 11.0},
	}

	_, err := Merge(deathVaccFixture(), dosesFixture(), oecd, usRatesFixture(), testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, covidload.ErrExecutionFailed)
}

func TestMerge_YearWithoutUSRates(t *testing.T) {
	usRates := tabular.New([]string{"Entity", "Day", ColRateUnvaccinated, ColRateVaccinated, ColRateBivalent})
	usRates.Rows = []tabular.Record{
		{"Entity": "United States", "Day": day("2019-01-01"),
			ColRateUnvaccinated: 1.0, ColRateVaccinated: 1.0, ColRateBivalent: 1.0},
	}

	merged, err := Merge(deathVaccFixture(), dosesFixture(), oecdFixture(), usRates, testLogger())
	require.NoError(t, err)
	require.NotZero(t, merged.Len())
	assert.Nil(t, merged.Rows[0][ColRateUnvaccinated])
}

func TestFillHealthExpenditure_Mean(t *testing.T) {
	tbl := tabular.New([]string{ColHealthExp})
	tbl.Rows = []tabular.Record{
		{ColHealthExp: 10.0},
		{ColHealthExp: 14.0},
		{ColHealthExp: nil},
	}

	out := fillHealthExpenditure(tbl, testLogger())

	assert.Equal(t, 12.0, out.Rows[2][ColHealthExp])
}

func TestFillHealthExpenditure_AllMissingDropsRows(t *testing.T) {
	tbl := tabular.New([]string{ColHealthExp})
	tbl.Rows = []tabular.Record{
		{ColHealthExp: nil},
		{ColHealthExp: nil},
	}

	out := fillHealthExpenditure(tbl, testLogger())

	assert.Zero(t, out.Len())
}

func TestMedianOf(t *testing.T) {
	v, ok := medianOf([]float64{3, 1, 2})
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	v, ok = medianOf([]float64{4, 1, 2, 3})
	require.True(t, ok)
	assert.Equal(t, 2.5, v)

	_, ok = medianOf(nil)
	assert.False(t, ok)
}
