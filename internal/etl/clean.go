package etl

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/covidlab/covidload/internal/tabular"
	"github.com/covidlab/covidload/pkg/covidload"
)

// Source column names as they appear in the raw exports.
const (
	colDeathsRaw = "Daily new confirmed deaths due to COVID-19 per million people (rolling 7-day average, right-aligned)"
	colDosesRaw  = "COVID-19 doses (cumulative, per hundred)"
	colRegionRaw = "World regions according to OWID"

	colUnvaccinatedRaw = "Death rate (weekly) of unvaccinated people - United States, by age"
	colVaccinatedRaw   = "Death rate (weekly) of fully vaccinated people (without bivalent booster) - United States, by age"
	colBivalentRaw     = "Death rate (weekly) of fully vaccinated people (with bivalent booster) - United States, by age"

	manufacturerPrefix = "COVID-19 doses (cumulative) - Manufacturer "
)

// Cleaned column names shared across the merge.
const (
	ColDailyDeaths     = "Daily_Deaths_per_Million"
	ColDosesPerHundred = "COVID_Doses_per_Hundred"
	ColWorldRegion     = "World_Region"
	ColCountryCode     = "Country_Code"
	ColCountry         = "Country"
	ColYear            = "Year"
	ColHealthExp       = "Health_Expenditure_Percentage_GDP"
	ColManufacturer    = "Manufacturer"
	ColDosesCumulative = "COVID_Doses_Cumulative"

	ColRateUnvaccinated = "Death_Rate_Unvaccinated"
	ColRateVaccinated   = "Death_Rate_Fully_Vaccinated"
	ColRateBivalent     = "Death_Rate_Fully_Vaccinated_Bivalent"
)

// coerceDay parses the Day column to timestamps in place. Values that do
// not parse become missing.
func coerceDay(t *tabular.Table) {
	if !t.HasColumn("Day") {
		return
	}
	for _, row := range t.Rows {
		switch v := row["Day"].(type) {
		case time.Time:
		case string:
			if ts, ok := tabular.ParseTimestamp(v); ok {
				row["Day"] = ts
			} else {
				row["Day"] = nil
			}
		case nil:
		default:
			row["Day"] = nil
		}
	}
}

// CleanDeathVacc prepares the deaths-vs-vaccinations dataset: Day becomes
// a timestamp, rows missing either key measure are dropped, and the long
// export headers get workable names.
func CleanDeathVacc(t *tabular.Table) *tabular.Table {
	coerceDay(t)
	out := t.Filter(func(r tabular.Record) bool {
		return r[colDeathsRaw] != nil && r[colDosesRaw] != nil
	})
	out.Rename(map[string]string{
		"year":       ColYear,
		colDeathsRaw: ColDailyDeaths,
		colDosesRaw:  ColDosesPerHundred,
		colRegionRaw: ColWorldRegion,
	})
	return out
}

// CleanDosesManufacturer prepares the doses-by-manufacturer dataset and
// melts the per-manufacturer columns into one row per Entity, Code, Day
// and Manufacturer. Missing dose counts mean zero doses.
func CleanDosesManufacturer(t *tabular.Table) *tabular.Table {
	coerceDay(t)

	var manufacturers []string
	for _, c := range t.Columns {
		if strings.Contains(c, "COVID-19 doses (cumulative) - Manufacturer") {
			manufacturers = append(manufacturers, c)
		}
	}

	out := tabular.New([]string{"Entity", "Code", "Day", ColManufacturer, ColDosesCumulative})
	for _, row := range t.Rows {
		for _, mcol := range manufacturers {
			doses := row[mcol]
			if doses == nil {
				doses = int64(0)
			}
			out.Rows = append(out.Rows, tabular.Record{
				"Entity":           row["Entity"],
				"Code":             row["Code"],
				"Day":              row["Day"],
				ColManufacturer:    strings.TrimPrefix(mcol, manufacturerPrefix),
				ColDosesCumulative: doses,
			})
		}
	}
	return out
}

// CleanOECDHealth narrows the OECD export to health expenditure as a
// percentage of GDP, one row per country and year.
func CleanOECDHealth(t *tabular.Table, logger *slog.Logger) (*tabular.Table, error) {
	required := []string{"MEASURE", "UNIT_MEASURE", "REF_AREA", "TIME_PERIOD", "OBS_VALUE", "Reference area"}
	var missing []string
	for _, c := range required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("OECD dataset is missing columns %v: %w", missing, covidload.ErrExecutionFailed)
	}

	out := tabular.New([]string{ColCountryCode, ColCountry, ColYear, ColHealthExp})
	for _, row := range t.Rows {
		if row["MEASURE"] != "EXP_HEALTH" || row["UNIT_MEASURE"] != "PT_B1GQ" {
			continue
		}
		year, ok := yearOf(row["TIME_PERIOD"])
		if !ok {
			continue
		}
		value, ok := asFloat(row["OBS_VALUE"])
		if !ok {
			continue
		}
		out.Rows = append(out.Rows, tabular.Record{
			ColCountryCode: row["REF_AREA"],
			ColCountry:     row["Reference area"],
			ColYear:        year,
			ColHealthExp:   value,
		})
	}

	if out.Len() == 0 {
		return nil, fmt.Errorf("no OECD rows match health expenditure as %% of GDP: %w", covidload.ErrExecutionFailed)
	}

	logger.Info("OECD health expenditure cleaned", "rows", out.Len())
	return out, nil
}

// CleanUSDeathRates prepares the US death-rates-by-vaccination-status
// dataset. Missing rates mean zero deaths.
func CleanUSDeathRates(t *tabular.Table) *tabular.Table {
	coerceDay(t)
	t.Rename(map[string]string{
		colUnvaccinatedRaw: ColRateUnvaccinated,
		colVaccinatedRaw:   ColRateVaccinated,
		colBivalentRaw:     ColRateBivalent,
	})
	for _, row := range t.Rows {
		for _, c := range []string{ColRateUnvaccinated, ColRateVaccinated, ColRateBivalent} {
			if row[c] == nil {
				row[c] = int64(0)
			}
		}
	}
	return t
}

// yearOf extracts a calendar year from a timestamp or numeric cell.
func yearOf(v any) (int64, bool) {
	switch val := v.(type) {
	case time.Time:
		return int64(val.Year()), true
	case int64:
		if val >= 1000 && val <= 9999 {
			return val, true
		}
	}
	return 0, false
}

// asFloat widens a numeric cell to float64.
func asFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int64:
		return float64(val), true
	}
	return 0, false
}
