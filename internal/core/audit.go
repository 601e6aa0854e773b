package core

import (
	"errors"
	"time"
)

// AuditHeader is the fixed header row of the audit sheet.
var AuditHeader = []string{
	"Timestamp",
	"Delivery ID",
	"Product",
	"Start Date",
	"Category",
	"Notes",
	"Custom Fields",
	"Logged",
	"Failure Reason",
}

// AuditRecord describes the outcome of one webhook delivery. Records are
// appended and never mutated.
type AuditRecord struct {
	Timestamp    time.Time
	DeliveryID   string
	ProductName  string
	StartDate    string
	Category     Category
	Notes        string
	CustomFields string // raw JSON as delivered
	Logged       bool
	Reason       string
}

// Values returns the record as one audit sheet row, in AuditHeader order.
func (a AuditRecord) Values() []any {
	logged := "No"
	if a.Logged {
		logged = "Yes"
	}
	return []any{
		a.Timestamp.UTC().Format(time.RFC3339),
		a.DeliveryID,
		a.ProductName,
		a.StartDate,
		string(a.Category),
		a.Notes,
		a.CustomFields,
		logged,
		a.Reason,
	}
}

// Rejection is a non-fatal ledger outcome: the delivery was acknowledged but
// did not increment any row.
type Rejection struct {
	Reason string
	Err    error
}

func (r *Rejection) Error() string {
	return r.Reason
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// Reject builds a Rejection wrapping one of the sentinel errors.
func Reject(err error, reason string) *Rejection {
	if reason == "" && err != nil {
		reason = err.Error()
	}
	return &Rejection{Reason: reason, Err: err}
}

// RejectionReason extracts the human-readable reason from err.
func RejectionReason(err error) string {
	if err == nil {
		return ""
	}
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return err.Error()
}
