package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Nazarious-ucu/weather-line-bot/internal/models"
)

func TestWeatherReport_TemperatureText(t *testing.T) {
	tests := []struct {
		name   string
		report models.WeatherReport
		want   string
	}{
		{"integer literal", models.WeatherReport{Temperature: 20, WholeTemperature: true}, "20"},
		{"negative integer literal", models.WeatherReport{Temperature: -2, WholeTemperature: true}, "-2"},
		{"whole decimal", models.WeatherReport{Temperature: 20}, "20.0"},
		{"fraction", models.WeatherReport{Temperature: 15.23}, "15.23"},
		{"negative fraction", models.WeatherReport{Temperature: -0.5}, "-0.5"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.report.TemperatureText())
		})
	}
}
