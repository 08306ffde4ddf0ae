package etl

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/covidlab/covidload/internal/tabular"
	"github.com/covidlab/covidload/pkg/covidload"
)

// Merge combines the four cleaned datasets into one country-level table:
// deaths-vs-vaccinations left-joined with manufacturer doses on Entity,
// Code and Day, inner-joined with OECD health expenditure on country code
// and year, then left-joined with yearly mean US death rates on year.
func Merge(deathVacc, doses, oecd, usRates *tabular.Table, logger *slog.Logger) (*tabular.Table, error) {
	countries := mapCountryCodes(deathVacc, logger)

	commonCodes := 0
	oecdCodes := make(map[string]bool)
	for _, row := range oecd.Rows {
		if code, ok := row[ColCountryCode].(string); ok {
			oecdCodes[code] = true
		}
	}
	covidCodes := make(map[string]bool)
	for _, row := range countries.Rows {
		code := row[ColCountryCode].(string)
		if !covidCodes[code] && oecdCodes[code] {
			commonCodes++
		}
		covidCodes[code] = true
	}
	logger.Info("country code overlap",
		"covid_codes", len(covidCodes),
		"oecd_codes", len(oecdCodes),
		"common", commonCodes)
	if commonCodes == 0 {
		return nil, fmt.Errorf("no common country codes between COVID and OECD data: %w", covidload.ErrExecutionFailed)
	}

	merged := joinDoses(countries, doses)
	logger.Info("joined manufacturer doses", "rows", merged.Len())

	merged = joinOECD(merged, oecd)
	logger.Info("joined OECD health expenditure", "rows", merged.Len())

	merged = joinUSRates(merged, usRates)
	logger.Info("joined US death rates", "rows", merged.Len())

	merged = fillHealthExpenditure(merged, logger)

	return merged, nil
}

// mapCountryCodes assigns each row a Country_Code and keeps only rows
// that resolve to a three-letter code, dropping aggregates like income
// groups and the world total.
func mapCountryCodes(t *tabular.Table, logger *slog.Logger) *tabular.Table {
	mapping := make(map[string]string)
	var unmapped []string
	for _, row := range t.Rows {
		entity, ok := row["Entity"].(string)
		if !ok {
			continue
		}
		if _, seen := mapping[entity]; seen {
			continue
		}
		code, found := CountryCode(entity)
		if !found {
			logger.Warn("no country code for entity", "entity", entity)
			unmapped = append(unmapped, entity)
		}
		mapping[entity] = code
	}
	if len(unmapped) > 0 {
		logger.Info("entities without country codes", "count", len(unmapped))
	}

	out := tabular.New(append(append([]string(nil), t.Columns...), ColCountryCode))
	for _, row := range t.Rows {
		entity, _ := row["Entity"].(string)
		code := mapping[entity]
		if len(code) != 3 {
			continue
		}
		row[ColCountryCode] = code
		out.Rows = append(out.Rows, row)
	}
	return out
}

func dayKey(v any) string {
	if ts, ok := v.(time.Time); ok {
		return ts.Format("2006-01-02T15:04:05")
	}
	return fmt.Sprintf("%v", v)
}

// joinDoses left-joins the melted manufacturer doses. A left row with N
// matching manufacturer rows expands to N output rows; a row with no
// match keeps missing manufacturer fields.
func joinDoses(left, doses *tabular.Table) *tabular.Table {
	index := make(map[string][]tabular.Record)
	for _, row := range doses.Rows {
		key := fmt.Sprintf("%v|%v|%s", row["Entity"], row["Code"], dayKey(row["Day"]))
		index[key] = append(index[key], row)
	}

	out := tabular.New(append(append([]string(nil), left.Columns...), ColManufacturer, ColDosesCumulative))
	for _, row := range left.Rows {
		key := fmt.Sprintf("%v|%v|%s", row["Entity"], row["Code"], dayKey(row["Day"]))
		matches := index[key]
		if len(matches) == 0 {
			merged := cloneRecord(row)
			merged[ColManufacturer] = nil
			merged[ColDosesCumulative] = nil
			out.Rows = append(out.Rows, merged)
			continue
		}
		for _, m := range matches {
			merged := cloneRecord(row)
			merged[ColManufacturer] = m[ColManufacturer]
			merged[ColDosesCumulative] = m[ColDosesCumulative]
			out.Rows = append(out.Rows, merged)
		}
	}
	return out
}

// joinOECD inner-joins health expenditure on country code and year. Rows
// without a matching OECD record are dropped.
func joinOECD(left, oecd *tabular.Table) *tabular.Table {
	index := make(map[string]tabular.Record)
	for _, row := range oecd.Rows {
		key := fmt.Sprintf("%v|%v", row[ColCountryCode], row[ColYear])
		index[key] = row
	}

	out := tabular.New(append(append([]string(nil), left.Columns...), ColCountry, ColHealthExp))
	for _, row := range left.Rows {
		year, ok := yearOf(normalizeYear(row[ColYear]))
		if !ok {
			continue
		}
		key := fmt.Sprintf("%v|%v", row[ColCountryCode], year)
		match, found := index[key]
		if !found {
			continue
		}
		merged := cloneRecord(row)
		merged[ColYear] = year
		merged[ColCountry] = match[ColCountry]
		merged[ColHealthExp] = match[ColHealthExp]
		out.Rows = append(out.Rows, merged)
	}
	return out
}

// joinUSRates left-joins the yearly mean of the three US death rate
// series on year.
func joinUSRates(left, usRates *tabular.Table) *tabular.Table {
	type acc struct {
		sums   [3]float64
		counts [3]int
	}
	rateCols := [3]string{ColRateUnvaccinated, ColRateVaccinated, ColRateBivalent}

	byYear := make(map[int64]*acc)
	for _, row := range usRates.Rows {
		day, ok := row["Day"].(time.Time)
		if !ok {
			continue
		}
		year := int64(day.Year())
		a := byYear[year]
		if a == nil {
			a = &acc{}
			byYear[year] = a
		}
		for i, c := range rateCols {
			if v, ok := asFloat(row[c]); ok {
				a.sums[i] += v
				a.counts[i]++
			}
		}
	}

	out := tabular.New(append(append([]string(nil), left.Columns...), rateCols[0], rateCols[1], rateCols[2]))
	for _, row := range left.Rows {
		merged := cloneRecord(row)
		year, _ := row[ColYear].(int64)
		if a, ok := byYear[year]; ok {
			for i, c := range rateCols {
				if a.counts[i] > 0 {
					merged[c] = a.sums[i] / float64(a.counts[i])
				} else {
					merged[c] = nil
				}
			}
		} else {
			for _, c := range rateCols {
				merged[c] = nil
			}
		}
		out.Rows = append(out.Rows, merged)
	}
	return out
}

// fillHealthExpenditure fills missing health expenditure with the column
// mean, falling back to the median, dropping the rows when neither
// exists.
func fillHealthExpenditure(t *tabular.Table, logger *slog.Logger) *tabular.Table {
	var present []float64
	missing := 0
	for _, row := range t.Rows {
		if v, ok := asFloat(row[ColHealthExp]); ok {
			present = append(present, v)
		} else {
			missing++
		}
	}
	if missing == 0 {
		return t
	}

	if fill, ok := meanOf(present); ok {
		for _, row := range t.Rows {
			if _, has := asFloat(row[ColHealthExp]); !has {
				row[ColHealthExp] = fill
			}
		}
		logger.Info("filled missing health expenditure with mean",
			"filled", missing, "mean", fill)
		return t
	}
	if fill, ok := medianOf(present); ok {
		for _, row := range t.Rows {
			if _, has := asFloat(row[ColHealthExp]); !has {
				row[ColHealthExp] = fill
			}
		}
		logger.Info("filled missing health expenditure with median",
			"filled", missing, "median", fill)
		return t
	}

	logger.Warn("dropping rows with missing health expenditure", "dropped", missing)
	return t.Filter(func(r tabular.Record) bool {
		_, ok := asFloat(r[ColHealthExp])
		return ok
	})
}

func cloneRecord(r tabular.Record) tabular.Record {
	out := make(tabular.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// normalizeYear widens the year cell so both raw int years and parsed
// timestamps key the same way.
func normalizeYear(v any) any {
	if f, ok := v.(float64); ok {
		return int64(f)
	}
	return v
}

func meanOf(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

func medianOf(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2, true
	}
	return sorted[mid], true
}
