package dashboard

import (
	"regexp"
	"strings"
)

// Series is a known documentation series, identified by its handle prefix.
type Series struct {
	Prefix string
	Name   string
}

// KnownSeries is the closed table of document series recognized in product
// slugs. Add a row here to teach the dashboards about a new series.
var KnownSeries = []Series{
	{Prefix: "sqr", Name: "SQuaRE Technical Note"},
	{Prefix: "dmtn", Name: "Data Management Technical Note"},
	{Prefix: "smtn", Name: "Simulations Technical Note"},
	{Prefix: "ldm", Name: "LSST Data Management"},
	{Prefix: "lse", Name: "LSST Systems Engineering"},
	{Prefix: "lpm", Name: "LSST Project Management"},
	{Prefix: "dmtr", Name: "Data Management Test Report"},
}

var docHandlePattern = buildDocHandlePattern(KnownSeries)

func buildDocHandlePattern(series []Series) *regexp.Regexp {
	prefixes := make([]string, 0, len(series))
	for _, s := range series {
		prefixes = append(prefixes, regexp.QuoteMeta(s.Prefix))
	}
	return regexp.MustCompile(`^(` + strings.Join(prefixes, "|") + `)-\d+$`)
}

// LookupSeries reports the series a product slug belongs to, if any.
func LookupSeries(slug string) (Series, bool) {
	m := docHandlePattern.FindStringSubmatch(slug)
	if m == nil {
		return Series{}, false
	}
	for _, s := range KnownSeries {
		if s.Prefix == m[1] {
			return s, true
		}
	}
	return Series{}, false
}
