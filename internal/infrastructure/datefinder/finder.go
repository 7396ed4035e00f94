// Package datefinder recognises English date mentions in plain text.
package datefinder

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

const months = `january|february|march|april|may|june|july|august|september|october|november|december|` +
	`jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

// Alternatives are tried left to right at each position, so the longer
// day-month-year forms win over the bare month-year and year forms.
var datePattern = regexp.MustCompile(`(?i)\b(?:` +
	`(?P<d1>\d{1,2})(?:st|nd|rd|th)?(?:\s+(?:by|in|of))?\s+(?P<m1>` + months + `)\.?,?\s+(?P<y1>\d{4})` +
	`|(?P<m2>` + months + `)\.?\s+(?P<d2>\d{1,2})(?:st|nd|rd|th)?,?\s+(?P<y2>\d{4})` +
	`|(?P<y3>\d{4})[-/](?P<m3>\d{1,2})[-/](?P<d3>\d{1,2})` +
	`|(?P<m4>` + months + `)\.?,?\s+(?P<y4>\d{4})` +
	`|(?P<y5>1[89]\d{2}|20\d{2})` +
	`)\b`)

var monthNames = [12][]string{
	{"january", "jan"},
	{"february", "feb"},
	{"march", "mar"},
	{"april", "apr"},
	{"may"},
	{"june", "jun"},
	{"july", "jul"},
	{"august", "aug"},
	{"september", "sept", "sep"},
	{"october", "oct"},
	{"november", "nov"},
	{"december", "dec"},
}

func monthNumber(name string) int {
	name = strings.ToLower(name)
	for i, names := range monthNames {
		if slices.Contains(names, name) {
			return i + 1
		}
	}
	return 0
}

// Finder is the built-in DateFinder.
type Finder struct{}

var _ ports.DateFinder = Finder{}

// New returns the built-in finder.
func New() Finder {
	return Finder{}
}

// FindDates returns every recognised mention in discovery order. Repeated
// literals are reported once per occurrence.
func (Finder) FindDates(_ context.Context, text string) ([]ports.DateMatch, error) {
	names := datePattern.SubexpNames()
	var found []ports.DateMatch

	for _, loc := range datePattern.FindAllStringSubmatchIndex(text, -1) {
		groups := make(map[string]string, len(names))
		for i, name := range names {
			if name == "" || loc[2*i] < 0 {
				continue
			}
			groups[name] = text[loc[2*i]:loc[2*i+1]]
		}

		date, ok := resolve(groups)
		if !ok {
			continue
		}
		if groups["y5"] != "" && !bareYearAllowed(text, loc[0]) {
			continue
		}
		if groups["m4"] == "may" {
			continue
		}
		found = append(found, ports.DateMatch{
			Date:   date,
			Text:   text[loc[0]:loc[1]],
			Offset: loc[0],
		})
	}
	return found, nil
}

func resolve(g map[string]string) (domain.PartialDate, bool) {
	var d domain.PartialDate
	switch {
	case g["y1"] != "":
		d = domain.PartialDate{Year: atoi(g["y1"]), Month: monthNumber(g["m1"]), Day: atoi(g["d1"])}
	case g["y2"] != "":
		d = domain.PartialDate{Year: atoi(g["y2"]), Month: monthNumber(g["m2"]), Day: atoi(g["d2"])}
	case g["y3"] != "":
		d = domain.PartialDate{Year: atoi(g["y3"]), Month: atoi(g["m3"]), Day: atoi(g["d3"])}
	case g["y4"] != "":
		d = domain.PartialDate{Year: atoi(g["y4"]), Month: monthNumber(g["m4"])}
	case g["y5"] != "":
		d = domain.PartialDate{Year: atoi(g["y5"])}
	default:
		return domain.PartialDate{}, false
	}

	if d.Month < 0 || d.Month > 12 || d.Day < 0 || d.Day > 31 {
		return domain.PartialDate{}, false
	}
	return d, true
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
