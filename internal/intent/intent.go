// Package intent classifies chat text into what the user is asking for.
package intent

import (
	"slices"
	"strings"

	"github.com/Nazarious-ucu/weather-line-bot/internal/dates"
)

const separator = ":"

type Kind int

const (
	// Unrecognized covers anything malformed, including unsupported cities and bad dates.
	Unrecognized Kind = iota
	CitySelected
	CityDatePair
)

func (k Kind) String() string {
	switch k {
	case CitySelected:
		return "city_selected"
	case CityDatePair:
		return "city_date_pair"
	default:
		return "unrecognized"
	}
}

// Intent is the result of resolving one message. Date is set only for CityDatePair.
type Intent struct {
	Kind Kind
	City string
	Date dates.Date
}

type Resolver struct {
	cities []string
}

func NewResolver(cities []string) *Resolver {
	return &Resolver{cities: slices.Clone(cities)}
}

func (r *Resolver) Cities() []string {
	return slices.Clone(r.cities)
}

func (r *Resolver) IsSupported(city string) bool {
	return slices.Contains(r.cities, city)
}

// Resolve never fails: every malformed input collapses into Unrecognized.
func (r *Resolver) Resolve(text string) Intent {
	if r.IsSupported(text) {
		return Intent{Kind: CitySelected, City: text}
	}

	parts := strings.Split(text, separator)
	if len(parts) != 2 {
		return Intent{Kind: Unrecognized}
	}

	city, rawDate := parts[0], parts[1]
	if !r.IsSupported(city) {
		return Intent{Kind: Unrecognized}
	}

	date, err := dates.Parse(rawDate)
	if err != nil {
		return Intent{Kind: Unrecognized}
	}

	return Intent{Kind: CityDatePair, City: city, Date: date}
}
