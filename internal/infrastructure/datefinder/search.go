package datefinder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
	dpdate "github.com/markusmobius/go-dateparser/date"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

// Searcher finds date mentions with go-dateparser's English search. Only
// mentions spelling out a four-digit year are reported, so relative
// expressions such as "last week" never become references.
type Searcher struct {
	cfg *dps.Configuration
}

var _ ports.DateFinder = (*Searcher)(nil)

// NewSearcher returns a finder restricted to English.
func NewSearcher() *Searcher {
	return &Searcher{cfg: &dps.Configuration{Languages: []string{"en"}}}
}

// FindDates returns mentions in the order they appear in text.
func (s *Searcher) FindDates(_ context.Context, text string) ([]ports.DateMatch, error) {
	_, results, err := dps.Search(s.cfg, text)
	if err != nil {
		return nil, fmt.Errorf("search dates: %w", err)
	}

	var (
		found  []ports.DateMatch
		cursor int
	)
	for _, result := range results {
		idx := strings.Index(text[cursor:], result.Text)
		if idx < 0 {
			continue
		}
		offset := cursor + idx
		cursor = offset + len(result.Text)

		date, ok := s.partialDate(text, offset, result)
		if !ok {
			continue
		}
		found = append(found, ports.DateMatch{Date: date, Text: result.Text, Offset: offset})
	}
	return found, nil
}

func (s *Searcher) partialDate(text string, offset int, result dps.SearchResult) (domain.PartialDate, bool) {
	loc := yearToken.FindStringIndex(result.Text)
	if loc == nil {
		return domain.PartialDate{}, false
	}
	year, _ := strconv.Atoi(result.Text[loc[0]:loc[1]])
	t := result.Date.Time
	if t.Year() != year {
		return domain.PartialDate{}, false
	}

	if isNumeric(result.Text) {
		if strings.ContainsAny(result.Text, currencySigns) || !bareYearAllowed(text, offset+loc[0]) {
			return domain.PartialDate{}, false
		}
	}

	if result.Date.Period != dpdate.Year && t.Month() == time.May && modalMay.MatchString(result.Text) {
		return domain.PartialDate{}, false
	}

	switch result.Date.Period {
	case dpdate.Year:
		return domain.PartialDate{Year: year}, true
	case dpdate.Month:
		return domain.PartialDate{Year: year, Month: int(t.Month())}, true
	default:
		return domain.PartialDate{Year: year, Month: int(t.Month()), Day: t.Day()}, true
	}
}
