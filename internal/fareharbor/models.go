// Package fareharbor decodes booking webhook deliveries.
//
// The delivery format changed across integration iterations. Each known
// layout is a Shape with its own adapter; a payload that matches none of them
// is reported as unrecognised instead of being read as empty strings.
package fareharbor

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Shape tags the payload layout a delivery arrived in.
type Shape string

const (
	// ShapeBooking is the current format: {"booking": {"availability": {...}, "note": ...}}.
	ShapeBooking Shape = "booking"
	// ShapeFlatAvailability carries the current booking fields at the top level.
	ShapeFlatAvailability Shape = "flat_availability"
	// ShapeLegacy is the first integration: {"product": {"name"}, "date", "notes", "custom_fields"}.
	ShapeLegacy Shape = "legacy"
	// ShapeNestedLegacy is the legacy field set wrapped in a "booking" key.
	ShapeNestedLegacy Shape = "nested_legacy"
	ShapeUnknown      Shape = "unknown"
)

func (s Shape) String() string {
	return string(s)
}

// flexString accepts a JSON string, number or bool and keeps its text.
// Anything else (objects, arrays, null) decodes to the empty string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*f = flexString(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err == nil {
			*f = flexString(strconv.FormatBool(b))
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*f = flexString(string(data))
	}
	return nil
}

type named struct {
	Name flexString `json:"name"`
}

type availability struct {
	StartAt flexString `json:"start_at"`
	Item    *named     `json:"item"`
}

// customFieldValue is one entry of a custom field list. FareHarbor sends
// objects; older deliveries sometimes sent bare strings.
type customFieldValue struct {
	Value        flexString `json:"value"`
	DisplayValue flexString `json:"display_value"`
	ok           bool
}

func (c *customFieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '{':
		var raw struct {
			Value        flexString `json:"value"`
			DisplayValue flexString `json:"display_value"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		c.Value, c.DisplayValue, c.ok = raw.Value, raw.DisplayValue, true
	case '"':
		var s flexString
		_ = s.UnmarshalJSON(data)
		c.Value, c.ok = s, true
	}
	return nil
}

type customerType struct {
	Singular flexString `json:"singular"`
}

type customer struct {
	CustomerType     json.RawMessage `json:"customer_type"`
	CustomerTypeRate *struct {
		CustomerType *customerType `json:"customer_type"`
	} `json:"customer_type_rate"`
}

// typeLabel returns the customer type label from either the rate object or a
// plain customer_type string.
func (c customer) typeLabel() string {
	if c.CustomerTypeRate != nil && c.CustomerTypeRate.CustomerType != nil {
		if s := string(c.CustomerTypeRate.CustomerType.Singular); s != "" {
			return s
		}
	}
	if len(c.CustomerType) == 0 {
		return ""
	}
	var ct customerType
	if err := json.Unmarshal(c.CustomerType, &ct); err == nil && ct.Singular != "" {
		return string(ct.Singular)
	}
	var s flexString
	_ = s.UnmarshalJSON(c.CustomerType)
	return string(s)
}

// bookingObject is the union of every field any shape has used. Adapters
// pick the ones their shape defines.
type bookingObject struct {
	PK        flexString `json:"pk"`
	BookingID flexString `json:"booking_id"`

	Availability *availability `json:"availability"`
	Note         flexString    `json:"note"`

	Product *named     `json:"product"`
	Date    flexString `json:"date"`
	Notes   flexString `json:"notes"`

	CustomFieldValues json.RawMessage `json:"custom_field_values"`
	CustomFields      json.RawMessage `json:"custom_fields"`
	Customers         json.RawMessage `json:"customers"`
}

type envelope struct {
	Booking   json.RawMessage `json:"booking"`
	BookingID flexString      `json:"booking_id"`
}
