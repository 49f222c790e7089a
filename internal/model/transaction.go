// Package model defines the core domain models used throughout the application.
package model

import "time"

// Status is the derived fraud classification of a transaction. It is a view
// computed on demand, never stored on the record, so that threshold changes
// apply to already-ingested data.
type Status string

// Classification statuses.
const (
	StatusLegitimate Status = "LEGITIMATE"
	StatusAlert      Status = "ALERT"
	StatusFraud      Status = "FRAUD"
)

// Transaction is the canonical representation of one transaction, independent
// of the producer payload shape. Records are created once at ingestion and
// are immutable afterwards.
type Transaction struct {
	Timestamp   time.Time
	FraudSignal *float64 // upstream detector probability in [0,1], nil when absent
	ID          string   // unique within a feed; generated when the payload has none
	TransNum    string   // producer-assigned number, not unique across producers
	Merchant    string
	Category    string
	Location    Location
	Customer    Customer
	Amount      float64 // non-negative; invalid input coerces to 0
}

// Location is the optional place a transaction occurred.
type Location struct {
	City      string
	State     string
	Latitude  *float64
	Longitude *float64
}

// Customer is the optional cardholder information attached to a transaction.
type Customer struct {
	FirstName   string
	LastName    string
	Gender      string
	DateOfBirth time.Time // zero when unknown
}

// Name returns the customer's full name, or empty when unknown.
func (c Customer) Name() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.LastName
	}
}

// Age returns the customer's age in whole years as of now, or 0 when the
// date of birth is unknown. Callers averaging ages must treat 0 as "no data".
func (c Customer) Age(now time.Time) int {
	if c.DateOfBirth.IsZero() {
		return 0
	}
	years := now.Year() - c.DateOfBirth.Year()
	// Not yet had the birthday this year.
	if now.Month() < c.DateOfBirth.Month() ||
		(now.Month() == c.DateOfBirth.Month() && now.Day() < c.DateOfBirth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Place renders the location as "City, ST" for display, tolerating partial data.
func (l Location) Place() string {
	switch {
	case l.City != "" && l.State != "":
		return l.City + ", " + l.State
	case l.City != "":
		return l.City
	default:
		return l.State
	}
}
