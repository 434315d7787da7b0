package psgc

import "strings"

// zipTable is the static fallback for ZIP inference when the per-entity
// lookup carries no ZIP code. Keyed by the display name used on the form.
var zipTable = map[string]string{
	"Bacoor City":              "4102",
	"Imus City":                "4103",
	"Kawit":                    "4104",
	"Noveleta":                 "4105",
	"Rosario":                  "4106",
	"Cavite City":              "4100",
	"Tanza":                    "4108",
	"Trece Martires City":      "4109",
	"General Trias City":       "4107",
	"Dasmarinas City":          "4114",
	"Silang":                   "4118",
	"Tagaytay City":            "4120",
	"Amadeo":                   "4119",
	"Indang":                   "4122",
	"Naic":                     "4110",
	"Maragondon":               "4112",
	"Ternate":                  "4111",
	"Alfonso":                  "4123",
	"General Emilio Aguinaldo": "4124",
	"Magallanes":               "4113",
	"Mendez":                   "4121",
	"Manila":                   "1000",
	"Quezon City":              "1100",
	"Caloocan City":            "1400",
	"Makati City":              "1200",
	"Pasay City":               "1300",
	"Pasig City":               "1600",
	"Taguig City":              "1630",
	"Paranaque City":           "1700",
	"Las Pinas City":           "1740",
	"Muntinlupa City":          "1770",
	"Marikina City":            "1800",
	"Valenzuela City":          "1440",
	"Malabon City":             "1470",
	"Navotas City":             "1485",
	"Mandaluyong City":         "1550",
	"San Juan City":            "1500",
	"Pateros":                  "1620",
}

// LookupZip resolves a ZIP code from the static table. The name is tried
// verbatim and with the "City of X" form normalized to "X City", since PSGC
// canonical names and form display names disagree on the prefix.
func LookupZip(name string) (string, bool) {
	if zip, ok := zipTable[name]; ok {
		return zip, true
	}
	if zip, ok := zipTable[NormalizeCityName(name)]; ok {
		return zip, true
	}
	return "", false
}

// NormalizeCityName rewrites PSGC's "City of X" to the form's "X City".
func NormalizeCityName(name string) string {
	if rest, ok := strings.CutPrefix(name, "City of "); ok {
		return rest + " City"
	}
	return name
}
