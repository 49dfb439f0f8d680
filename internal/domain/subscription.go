/**
 * @description
 * This file defines the core domain model for the subscription-api.
 * It includes the Subscription struct that maps to the database table,
 * the closed enums for its lifecycle fields, and the normalization and
 * validation rules applied before every save.
 */
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Currency is the closed set of billing currencies.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyJPY Currency = "JPY"
	CurrencyEUR Currency = "EUR"
)

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyJPY, CurrencyEUR:
		return true
	}
	return false
}

// Frequency is the billing cycle of a subscription.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether f is one of the supported billing frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// RenewalDays returns the number of days one billing period spans.
// Used to derive the renewal date when the client does not provide one.
func (f Frequency) RenewalDays() int {
	switch f {
	case FrequencyDaily:
		return 1
	case FrequencyWeekly:
		return 7
	case FrequencyMonthly:
		return 30
	case FrequencyYearly:
		return 365
	}
	return 0
}

// Category is the closed set of subscription categories.
type Category string

const (
	CategorySports        Category = "sports"
	CategoryNews          Category = "news"
	CategoryEntertainment Category = "entertainment"
	CategoryLifestyle     Category = "lifestyle"
	CategoryTechnology    Category = "technology"
	CategoryFinance       Category = "finance"
	CategoryOther         Category = "other"
)

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySports, CategoryNews, CategoryEntertainment, CategoryLifestyle,
		CategoryTechnology, CategoryFinance, CategoryOther:
		return true
	}
	return false
}

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Valid reports whether s is one of the supported statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// ReminderOffsets lists the number of days before the renewal date at which
// a reminder email fires, in the order the workflow processes them.
var ReminderOffsets = []int{7, 5, 2, 1}

// Subscription represents a recurring payment a user has committed to.
type Subscription struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Currency      Currency  `json:"currency"`
	Frequency     Frequency `json:"frequency"`
	Category      Category  `json:"category"`
	PaymentMethod string    `json:"payment_method"`
	Status        Status    `json:"status"`
	StartDate     time.Time `json:"start_date"`
	RenewalDate   time.Time `json:"renewal_date"`
	UserID        string    `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ValidationError describes a subscription field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Normalize applies the pre-save derivation rules. It fills enum defaults,
// derives the renewal date from the start date and billing frequency when
// the client did not provide one, and forces the status to expired when the
// renewal date has already passed. It must run before every create or update.
func (s *Subscription) Normalize(now time.Time) {
	s.Name = strings.TrimSpace(s.Name)
	s.PaymentMethod = strings.TrimSpace(s.PaymentMethod)

	if s.Currency == "" {
		s.Currency = CurrencyUSD
	}
	if s.Status == "" {
		s.Status = StatusActive
	}

	if s.RenewalDate.IsZero() && !s.StartDate.IsZero() && s.Frequency.Valid() {
		s.RenewalDate = s.StartDate.AddDate(0, 0, s.Frequency.RenewalDays())
	}

	if !s.RenewalDate.IsZero() && s.RenewalDate.Before(now) {
		s.Status = StatusExpired
	}
}

// Validate checks the subscription fields against the schema rules and
// returns the first violation found. Normalize must run first so derived
// fields are populated.
func (s *Subscription) Validate(now time.Time) error {
	if len(s.Name) < 3 || len(s.Name) > 100 {
		return &ValidationError{Field: "name", Message: "must be between 3 and 100 characters"}
	}
	if s.Price < 0 {
		return &ValidationError{Field: "price", Message: "must not be negative"}
	}
	if !s.Currency.Valid() {
		return &ValidationError{Field: "currency", Message: "must be one of USD, JPY, EUR"}
	}
	if !s.Frequency.Valid() {
		return &ValidationError{Field: "frequency", Message: "must be one of daily, weekly, monthly, yearly"}
	}
	if !s.Category.Valid() {
		return &ValidationError{Field: "category", Message: "unknown category"}
	}
	if s.PaymentMethod == "" {
		return &ValidationError{Field: "payment_method", Message: "is required"}
	}
	if !s.Status.Valid() {
		return &ValidationError{Field: "status", Message: "must be one of active, cancelled, expired"}
	}
	if s.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Message: "is required"}
	}
	if s.StartDate.After(now) {
		return &ValidationError{Field: "start_date", Message: "must not be in the future"}
	}
	if s.RenewalDate.IsZero() {
		return &ValidationError{Field: "renewal_date", Message: "is required"}
	}
	if !s.RenewalDate.After(s.StartDate) {
		return &ValidationError{Field: "renewal_date", Message: "must be after the start date"}
	}
	if s.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "is required"}
	}
	return nil
}
