// Package dates parses the date formats users type into the chat and
// normalises them to a civil calendar date.
package dates

import (
	"errors"
	"fmt"
	"time"
)

const canonicalLayout = "2006-01-02"

// ErrInvalidDateFormat is returned when text matches none of the accepted layouts.
var ErrInvalidDateFormat = errors.New("invalid date format")

// layouts are tried in order; month and day accept one or two digits.
var layouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006年1月2日",
}

// Date is a calendar date without time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Parse converts text in any accepted layout into a Date.
func Parse(text string) (Date, error) {
	for _, layout := range layouts {
		t, err := time.Parse(layout, text)
		if err != nil {
			continue
		}
		return FromTime(t), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, text)
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(text string) Date {
	d, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return d
}

// FromTime returns the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Tomorrow returns the calendar date following now.
func Tomorrow(now time.Time) Date {
	return FromTime(now).AddDays(1)
}

func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// String renders the canonical YYYY-MM-DD form.
func (d Date) String() string {
	return d.Time().Format(canonicalLayout)
}
