package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Single   Category = "Single"
	Double   Category = "Double"
	SUP      Category = "SUP"
	Unlisted Category = "Unlisted"
)

type (
	// Category is the equipment bucket a booking is tallied under.
	Category string

	CustomField struct {
		Value        string
		DisplayValue string
	}

	Customer struct {
		TypeLabel string
	}

	// Booking is one reservation event, normalized from whatever payload shape delivered it.
	Booking struct {
		PK           string
		ProductName  string
		StartAt      string // raw start date as delivered
		Note         string
		CustomFields []CustomField
		Customers    []Customer
	}

	// ReportRow is a pre-existing (month, category) row of the report grid.
	ReportRow struct {
		Row      int // 1-based sheet row
		Month    string
		Category string
		Count    int
	}

	RowKey struct {
		Month    string
		Category Category
	}
)

var (
	ErrItemNotTracked     = errors.New("item not tracked")
	ErrInvalidStartDate   = errors.New("invalid start date")
	ErrNoMatchingRow      = errors.New("no matching row")
	ErrSheetUnavailable   = errors.New("sheet unavailable")
	ErrDuplicateDelivery  = errors.New("duplicate delivery")
	ErrUnrecognisedShape  = errors.New("unrecognised payload shape")
	ErrMissingCredentials = errors.New("missing service account credentials")
)

// Categories returns every category in classification priority order.
func Categories() []Category {
	return []Category{Single, Double, SUP, Unlisted}
}

func (c Category) String() string {
	return string(c)
}

func (c Category) IsValid() bool {
	switch c {
	case Single, Double, SUP, Unlisted:
		return true
	default:
		return false
	}
}

// Key returns the index key for a report row, comparing trimmed cell values.
func (r ReportRow) Key() RowKey {
	return RowKey{Month: strings.TrimSpace(r.Month), Category: Category(strings.TrimSpace(r.Category))}
}

func (k RowKey) String() string {
	return k.Month + "/" + string(k.Category)
}

// TrackedItems is the allow-list of product names that are tallied.
// Matching is exact and case-sensitive.
type TrackedItems []string

// DefaultTrackedItems are the tours and rentals reported on by default.
func DefaultTrackedItems() TrackedItems {
	return TrackedItems{
		"Sunset Bat Tours",
		"Downtown to Barton Springs Tour",
		"Kayak and SUP Reservations",
	}
}

func (t TrackedItems) Contains(name string) bool {
	for _, item := range t {
		if item == name {
			return true
		}
	}
	return false
}

// MonthLabel formats t as the report's month column, e.g. "Oct 2025".
func MonthLabel(t time.Time) string {
	return t.Format("Jan 2006")
}
