package travel

import "strings"

// names maps lowercased country names and common aliases to ISO 3166-1 alpha-2.
var names = map[string]string{
	"germany":              "DE",
	"deutschland":          "DE",
	"canada":               "CA",
	"ireland":              "IE",
	"netherlands":          "NL",
	"the netherlands":      "NL",
	"australia":            "AU",
	"poland":               "PL",
	"france":               "FR",
	"italy":                "IT",
	"uk":                   "GB",
	"united kingdom":       "GB",
	"great britain":        "GB",
	"usa":                  "US",
	"united states":        "US",
	"india":                "IN",
	"pakistan":             "PK",
	"bangladesh":           "BD",
	"nigeria":              "NG",
	"kenya":                "KE",
	"ghana":                "GH",
	"egypt":                "EG",
	"china":                "CN",
	"japan":                "JP",
	"south korea":          "KR",
	"philippines":          "PH",
	"indonesia":            "ID",
	"vietnam":              "VN",
	"brazil":               "BR",
	"mexico":               "MX",
	"colombia":             "CO",
	"argentina":            "AR",
	"turkey":               "TR",
	"ukraine":              "UA",
	"russia":               "RU",
	"spain":                "ES",
	"portugal":             "PT",
	"austria":              "AT",
	"belgium":              "BE",
	"sweden":               "SE",
	"denmark":              "DK",
	"finland":              "FI",
	"greece":               "GR",
	"switzerland":          "CH",
	"norway":               "NO",
	"new zealand":          "NZ",
	"south africa":         "ZA",
	"united arab emirates": "AE",
	"uae":                  "AE",
}

// alpha3 maps ICAO/ISO alpha-3 codes, as printed in passport MRZs, to alpha-2.
var alpha3 = map[string]string{
	"DEU": "DE", "D": "DE", "CAN": "CA", "IRL": "IE", "NLD": "NL", "AUS": "AU",
	"POL": "PL", "FRA": "FR", "ITA": "IT", "GBR": "GB", "USA": "US", "IND": "IN",
	"PAK": "PK", "BGD": "BD", "NGA": "NG", "KEN": "KE", "GHA": "GH", "EGY": "EG",
	"CHN": "CN", "JPN": "JP", "KOR": "KR", "PHL": "PH", "IDN": "ID", "VNM": "VN",
	"BRA": "BR", "MEX": "MX", "COL": "CO", "ARG": "AR", "TUR": "TR", "UKR": "UA",
	"RUS": "RU", "ESP": "ES", "PRT": "PT", "AUT": "AT", "BEL": "BE", "SWE": "SE",
	"DNK": "DK", "FIN": "FI", "GRC": "GR", "CHE": "CH", "NOR": "NO", "NZL": "NZ",
	"ZAF": "ZA", "ARE": "AE",
}

// freeMovement lists EU, EEA and Swiss codes whose citizens need no visa to
// live and work in one another's countries.
var freeMovement = map[string]bool{
	"AT": true, "BE": true, "BG": true, "HR": true, "CY": true, "CZ": true,
	"DK": true, "EE": true, "FI": true, "FR": true, "DE": true, "GR": true,
	"HU": true, "IE": true, "IT": true, "LV": true, "LT": true, "LU": true,
	"MT": true, "NL": true, "PL": true, "PT": true, "RO": true, "SK": true,
	"SI": true, "ES": true, "SE": true, "IS": true, "LI": true, "NO": true,
	"CH": true,
}

var knownAlpha2 = func() map[string]bool {
	out := make(map[string]bool)
	for _, c := range names {
		out[c] = true
	}
	for c := range freeMovement {
		out[c] = true
	}
	return out
}()

// CountryCode resolves a country name, alpha-3 code or alpha-2 code to
// alpha-2. Matching ignores case and surrounding whitespace.
func CountryCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if code, ok := names[strings.ToLower(s)]; ok {
		return code, true
	}
	upper := strings.ToUpper(s)
	if code, ok := alpha3[upper]; ok {
		return code, true
	}
	if len(upper) == 2 && knownAlpha2[upper] {
		return upper, true
	}
	return "", false
}
