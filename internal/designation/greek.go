package designation

import "sort"

// greekLetters maps the three-letter catalog abbreviations to the spelled-out
// letter names. It is never written after init.
var greekLetters = map[string]string{
	"alf": "Alpha",
	"bet": "Beta",
	"gam": "Gamma",
	"del": "Delta",
	"eps": "Epsilon",
	"zet": "Zeta",
	"eta": "Eta",
	"tet": "Theta",
	"iot": "Iota",
	"kap": "Kappa",
	"lam": "Lambda",
	"mu":  "Mu",
	"nu":  "Nu",
	"ksi": "Xi",
	"omi": "Omicron",
	"pi":  "Pi",
	"rho": "Rho",
	"sig": "Sigma",
	"tau": "Tau",
	"ups": "Upsilon",
	"phi": "Phi",
	"chi": "Chi",
	"psi": "Psi",
	"ome": "Omega",
}

// LookupGreek returns the full name for a catalog Greek abbreviation such as
// "alf" or "tet". The lookup is case-sensitive; callers lower-case first.
func LookupGreek(abbr string) (string, bool) {
	name, ok := greekLetters[abbr]
	return name, ok
}

// GreekAbbreviations returns all known abbreviations in sorted order.
func GreekAbbreviations() []string {
	out := make([]string, 0, len(greekLetters))
	for k := range greekLetters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
