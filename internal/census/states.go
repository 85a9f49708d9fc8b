// Package census loads the Census Bureau gazetteer place lists that serve
// as one of the reconciliation authorities.
package census

// stateInfo carries the Census identifiers for one state.
type stateInfo struct {
	fips   string
	abbrev string
}

var states = map[string]stateInfo{
	"Alabama":        {"01", "AL"},
	"Alaska":         {"02", "AK"},
	"Arizona":        {"04", "AZ"},
	"Arkansas":       {"05", "AR"},
	"California":     {"06", "CA"},
	"Colorado":       {"08", "CO"},
	"Connecticut":    {"09", "CT"},
	"Delaware":       {"10", "DE"},
	"Florida":        {"12", "FL"},
	"Georgia":        {"13", "GA"},
	"Hawaii":         {"15", "HI"},
	"Idaho":          {"16", "ID"},
	"Illinois":       {"17", "IL"},
	"Indiana":        {"18", "IN"},
	"Iowa":           {"19", "IA"},
	"Kansas":         {"20", "KS"},
	"Kentucky":       {"21", "KY"},
	"Louisiana":      {"22", "LA"},
	"Maine":          {"23", "ME"},
	"Maryland":       {"24", "MD"},
	"Massachusetts":  {"25", "MA"},
	"Michigan":       {"26", "MI"},
	"Minnesota":      {"27", "MN"},
	"Mississippi":    {"28", "MS"},
	"Missouri":       {"29", "MO"},
	"Montana":        {"30", "MT"},
	"Nebraska":       {"31", "NE"},
	"Nevada":         {"32", "NV"},
	"New Hampshire":  {"33", "NH"},
	"New Jersey":     {"34", "NJ"},
	"New Mexico":     {"35", "NM"},
	"New York":       {"36", "NY"},
	"North Carolina": {"37", "NC"},
	"North Dakota":   {"38", "ND"},
	"Ohio":           {"39", "OH"},
	"Oklahoma":       {"40", "OK"},
	"Oregon":         {"41", "OR"},
	"Pennsylvania":   {"42", "PA"},
	"Rhode Island":   {"44", "RI"},
	"South Carolina": {"45", "SC"},
	"South Dakota":   {"46", "SD"},
	"Tennessee":      {"47", "TN"},
	"Texas":          {"48", "TX"},
	"Utah":           {"49", "UT"},
	"Vermont":        {"50", "VT"},
	"Virginia":       {"51", "VA"},
	"Washington":     {"53", "WA"},
	"West Virginia":  {"54", "WV"},
	"Wisconsin":      {"55", "WI"},
	"Wyoming":        {"56", "WY"},
}

// StateFIPS returns the two-digit FIPS code for a state name, or "".
func StateFIPS(name string) string {
	return states[name].fips
}

// StateAbbreviation returns the two-letter USPS abbreviation, or "".
func StateAbbreviation(name string) string {
	return states[name].abbrev
}
