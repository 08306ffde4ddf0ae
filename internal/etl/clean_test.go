package etl

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covidlab/covidload/internal/logging"
	"github.com/covidlab/covidload/internal/tabular"
	"github.com/covidlab/covidload/pkg/covidload"
)

func testLogger() *slog.Logger {
	return logging.NewNull()
}

func day(s string) time.Time {
	ts, ok := tabular.ParseTimestamp(s)
	if !ok {
		panic("bad test timestamp: " + s)
	}
	return ts
}

func TestCountryCode(t *testing.T) {
	tests := []struct {
		entity   string
		want     string
		resolved bool
	}{
		{"Germany", "DEU", true},
		{"Chile", "CHL", true},
		{"Kosovo", "XKX", true},
		{"Russia", "RUS", true},
		{"Cote d'Ivoire", "CIV", true},
		{"Africa", "AFR", true},
		{"World", "WORLD", true},
		{"European Union (27)", "EU27", true},
		{"Not A Country", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.entity, func(t *testing.T) {
			code, ok := CountryCode(tt.entity)
			assert.Equal(t, tt.resolved, ok)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestCleanDeathVacc(t *testing.T) {
	in := tabular.New([]string{"Entity", "Code", "Day", "year", colDeathsRaw, colDosesRaw, colRegionRaw})
	in.Rows = []tabular.Record{
		{"Entity": "Germany", "Code": "DEU", "Day": "2021-06-01", "year": int64(2021),
			colDeathsRaw: 1.5, colDosesRaw: 50.2, colRegionRaw: "Europe"},
		{"Entity": "Germany", "Code": "DEU", "Day": "2021-06-02", "year": int64(2021),
			colDeathsRaw: nil, colDosesRaw: 51.0, colRegionRaw: "Europe"},
		{"Entity": "Germany", "Code": "DEU", "Day": "2021-06-03", "year": int64(2021),
			colDeathsRaw: 1.4, colDosesRaw: nil, colRegionRaw: "Europe"},
	}

	out := CleanDeathVacc(in)

	// Rows missing either key measure are dropped.
	require.Equal(t, 1, out.Len())

	row := out.Rows[0]
	assert.Equal(t, day("2021-06-01"), row["Day"])
	assert.Equal(t, 1.5, row[ColDailyDeaths])
	assert.Equal(t, 50.2, row[ColDosesPerHundred])
	assert.Equal(t, "Europe", row[ColWorldRegion])
	assert.Equal(t, int64(2021), row[ColYear])
	assert.True(t, out.HasColumn(ColDailyDeaths))
	assert.False(t, out.HasColumn(colDeathsRaw))
}

func TestCleanDosesManufacturer_Melts(t *testing.T) {
	pfizer := manufacturerPrefix + "Pfizer/BioNTech"
	moderna := manufacturerPrefix + "Moderna"

	in := tabular.New([]string{"Entity", "Code", "Day", pfizer, moderna})
	in.Rows = []tabular.Record{
		{"Entity": "Germany", "Code": "DEU", "Day": "2021-06-01",
			pfizer: int64(1000), moderna: nil},
	}

	out := CleanDosesManufacturer(in)

	// One output row per manufacturer column.
	require.Equal(t, 2, out.Len())
	assert.Equal(t, []string{"Entity", "Code", "Day", ColManufacturer, ColDosesCumulative}, out.Columns)

	assert.Equal(t, "Pfizer/BioNTech", out.Rows[0][ColManufacturer])
	assert.Equal(t, int64(1000), out.Rows[0][ColDosesCumulative])

	// Missing doses mean zero.
	assert.Equal(t, "Moderna", out.Rows[1][ColManufacturer])
	assert.Equal(t, int64(0), out.Rows[1][ColDosesCumulative])

	assert.Equal(t, day("2021-06-01"), out.Rows[0]["Day"])
}

func TestCleanOECDHealth(t *testing.T) {
	in := tabular.New([]string{"MEASURE", "UNIT_MEASURE", "REF_AREA", "TIME_PERIOD", "OBS_VALUE", "Reference area"})
	in.Rows = []tabular.Record{
		{"MEASURE": "EXP_HEALTH", "UNIT_MEASURE": "PT_B1GQ", "REF_AREA": "DEU",
			"TIME_PERIOD": day("2021-01-01"), "OBS_VALUE": 12.8, "Reference area": "Germany"},
		{"MEASURE": "EXP_HEALTH", "UNIT_MEASURE": "USD_CAP", "REF_AREA": "DEU",
			"TIME_PERIOD": day("2021-01-01"), "OBS_VALUE": 6000.0, "Reference area": "Germany"},
		{"MEASURE": "EXP_PHARMA", "UNIT_MEASURE": "PT_B1GQ", "REF_AREA": "DEU",
			"TIME_PERIOD": day("2021-01-01"), "OBS_VALUE": 1.9, "Reference area": "Germany"},
		{"MEASURE": "EXP_HEALTH", "UNIT_MEASURE": "PT_B1GQ", "REF_AREA": "CHL",
			"TIME_PERIOD": nil, "OBS_VALUE": 9.1, "Reference area": "Chile"},
	}

	out, err := CleanOECDHealth(in, testLogger())
	require.NoError(t, err)

	// Only the % of GDP measure with a usable year survives.
	require.Equal(t, 1, out.Len())
	row := out.Rows[0]
	assert.Equal(t, "DEU", row[ColCountryCode])
	assert.Equal(t, "Germany", row[ColCountry])
	assert.Equal(t, int64(2021), row[ColYear])
	assert.Equal(t, 12.8, row[ColHealthExp])
}

func TestCleanOECDHealth_IntegerTimePeriod(t *testing.T) {
	in := tabular.New([]string{"MEASURE", "UNIT_MEASURE", "REF_AREA", "TIME_PERIOD", "OBS_VALUE", "Reference area"})
	in.Rows = []tabular.Record{
		{"MEASURE": "EXP_HEALTH", "UNIT_MEASURE": "PT_B1GQ", "REF_AREA": "AUS",
			"TIME_PERIOD": int64(2020), "OBS_VALUE": 10.6, "Reference area": "Australia"},
	}

	out, err := CleanOECDHealth(in, testLogger())
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, int64(2020), out.Rows[0][ColYear])
}

func TestCleanOECDHealth_MissingColumns(t *testing.T) {
	in := tabular.New([]string{"MEASURE", "REF_AREA"})

	_, err := CleanOECDHealth(in, testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, covidload.ErrExecutionFailed)
	assert.Contains(t, err.Error(), "UNIT_MEASURE")
}

func TestCleanOECDHealth_NothingMatches(t *testing.T) {
	in := tabular.New([]string{"MEASURE", "UNIT_MEASURE", "REF_AREA", "TIME_PERIOD", "OBS_VALUE", "Reference area"})
	in.Rows = []tabular.Record{
		{"MEASURE": "EXP_PHARMA", "UNIT_MEASURE": "PT_B1GQ", "REF_AREA": "DEU",
			"TIME_PERIOD": int64(2021), "OBS_VALUE": 1.9, "Reference area": "Germany"},
	}

	_, err := CleanOECDHealth(in, testLogger())
	assert.ErrorIs(t, err, covidload.ErrExecutionFailed)
}

func TestCleanUSDeathRates(t *testing.T) {
	in := tabular.New([]string{"Entity", "Day", colUnvaccinatedRaw, colVaccinatedRaw, colBivalentRaw})
	in.Rows = []tabular.Record{
		{"Entity": "United States", "Day": "2021-10-01",
			colUnvaccinatedRaw: 10.5, colVaccinatedRaw: 1.2, colBivalentRaw: nil},
	}

	out := CleanUSDeathRates(in)

	row := out.Rows[0]
	assert.Equal(t, day("2021-10-01"), row["Day"])
	assert.Equal(t, 10.5, row[ColRateUnvaccinated])
	assert.Equal(t, 1.2, row[ColRateVaccinated])
	assert.Equal(t, int64(0), row[ColRateBivalent])
	assert.True(t, out.HasColumn(ColRateUnvaccinated))
}
