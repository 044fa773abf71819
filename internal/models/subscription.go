package models

import "github.com/Nazarious-ucu/weather-line-bot/internal/dates"

// SupportedCities is the fixed set of cities users can pick from.
var SupportedCities = []string{"Tokyo", "Kyoto", "Sapporo", "Osaka", "Fukuoka"}

// Subscription asks for a weather push one day before Date.
// (SubscriberID, Date) identifies a record.
type Subscription struct {
	SubscriberID string
	Date         dates.Date
	City         string
}
