package ingest

import (
	"regexp"
	"strings"
)

var trailingLocationRe = regexp.MustCompile(`\s+([A-Z]{2})\s*$`)

// usStates covers states, DC, and the territories that appear in card
// statement location fields.
var usStates = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {},
	"DE": {}, "FL": {}, "GA": {}, "HI": {}, "ID": {}, "IL": {}, "IN": {},
	"IA": {}, "KS": {}, "KY": {}, "LA": {}, "ME": {}, "MD": {}, "MA": {},
	"MI": {}, "MN": {}, "MS": {}, "MO": {}, "MT": {}, "NE": {}, "NV": {},
	"NH": {}, "NJ": {}, "NM": {}, "NY": {}, "NC": {}, "ND": {}, "OH": {},
	"OK": {}, "OR": {}, "PA": {}, "RI": {}, "SC": {}, "SD": {}, "TN": {},
	"TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {}, "WV": {}, "WI": {},
	"WY": {}, "DC": {}, "PR": {}, "VI": {}, "GU": {},
}

// ExtractLocation pulls a trailing two-letter state or country code from a
// description. Returns "" when the description does not end with one.
func ExtractLocation(description string) string {
	m := trailingLocationRe.FindStringSubmatch(description)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsTravelLocation reports whether a location code counts as travel. Only
// international codes qualify automatically; domestic out-of-state spending
// is marked travel through merchant rules instead, since a state code in a
// description says where the processor is, not where the cardholder was.
func IsTravelLocation(location string, homeLocations map[string]struct{}) bool {
	if location == "" {
		return false
	}
	location = strings.ToUpper(location)

	if _, domestic := usStates[location]; domestic {
		return false
	}
	_, home := homeLocations[location]
	return !home
}

// HomeLocations builds the home set from config values, upper-cased.
func HomeLocations(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return set
}
