package etl

import "github.com/biter777/countries"

// regionCodes maps aggregate entities and alternative spellings that a
// plain ISO lookup cannot resolve. Aggregates get synthetic codes; only
// the three-letter ones survive the country filter.
var regionCodes = map[string]string{
	"Africa":                        "AFR",
	"Asia":                          "ASIA",
	"Europe":                        "EUR",
	"European Union (27)":           "EU27",
	"North America":                 "NAM",
	"Oceania":                       "OCE",
	"South America":                 "SAM",
	"World":                         "WORLD",
	"Low-income countries":          "LOW",
	"Lower-middle-income countries": "LMIC",
	"Upper-middle-income countries": "UMIC",
	"High-income countries":         "HIGH",

	"Bonaire Sint Eustatius and Saba": "BES",
	"Cote d'Ivoire":                   "CIV",
	"Cabo Verde":                      "CPV",
	"Cape Verde":                      "CPV",
	"Democratic Republic of Congo":    "COD",
	"East Timor":                      "TLS",
	"Curacao":                         "CUW",
	"Falkland Islands":                "FLK",
	"Kosovo":                          "XKX",
	"Palestine":                       "PSE",
	"Russia":                          "RUS",
	"Saint Helena":                    "SHN",
	"Turkey":                          "TUR",
	"Brunei":                          "BRN",
	"Brunei Darussalam":               "BRN",
}

// CountryCode resolves an entity name to an ISO alpha-3 code. Custom
// region mappings take precedence over the ISO lookup.
func CountryCode(entity string) (string, bool) {
	if code, ok := regionCodes[entity]; ok {
		return code, true
	}
	c := countries.ByName(entity)
	if c == countries.Unknown {
		return "", false
	}
	return c.Alpha3(), true
}
