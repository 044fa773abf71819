package models

import (
	"errors"
	"strconv"
	"strings"
)

// ErrWeatherNotFound reports that a provider has no reading for the requested date.
var ErrWeatherNotFound = errors.New("weather data not found")

// WeatherReport is a single forecast or current-conditions reading for a city.
// WholeTemperature marks a provider reading that came as an integer literal.
type WeatherReport struct {
	City             string  `json:"city"`
	Date             string  `json:"date,omitempty"`
	Description      string  `json:"description"`
	Temperature      float64 `json:"temperature"`
	WholeTemperature bool    `json:"whole_temperature,omitempty"`
}

// TemperatureText renders Temperature the way it was reported: integer
// readings as is ("20"), decimal ones in shortest form with at least one
// fractional digit ("20.0", "15.23").
func (r WeatherReport) TemperatureText() string {
	if r.WholeTemperature {
		return strconv.FormatFloat(r.Temperature, 'f', 0, 64)
	}
	s := strconv.FormatFloat(r.Temperature, 'f', -1, 64)
	if strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}
