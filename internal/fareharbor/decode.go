package fareharbor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"fhtally/internal/core"

	"github.com/google/uuid"
)

// ErrMalformedPayload is returned when the body is not a JSON object.
var ErrMalformedPayload = errors.New("malformed payload")

// Delivery is one decoded webhook call.
type Delivery struct {
	ID      string // booking pk when known, otherwise generated
	Shape   Shape
	Booking core.Booking
	// RawCustomFields is the custom field list exactly as delivered, for the audit log.
	RawCustomFields string
}

// adapter converts one booking object of a known shape.
type adapter func(b bookingObject) core.Booking

var adapters = map[Shape]adapter{
	ShapeBooking:          adaptAvailability,
	ShapeFlatAvailability: adaptAvailability,
	ShapeLegacy:           adaptLegacy,
	ShapeNestedLegacy:     adaptLegacy,
}

// Decode detects the payload shape and converts it into a Delivery.
// On error the returned Delivery still carries an ID and whatever raw data
// could be recovered, so the caller can audit the rejection.
func Decode(body []byte) (Delivery, error) {
	d := Delivery{Shape: ShapeUnknown}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		d.ID = newDeliveryID("")
		return d, fmt.Errorf("%w: expected a JSON object", ErrMalformedPayload)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil && !isTypeError(err) {
		d.ID = newDeliveryID("")
		return d, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	nested := len(env.Booking) > 0 && bytes.TrimSpace(env.Booking)[0] == '{'
	raw := trimmed
	if nested {
		raw = env.Booking
	}

	var obj bookingObject
	if err := json.Unmarshal(raw, &obj); err != nil && !isTypeError(err) {
		d.ID = newDeliveryID(string(env.BookingID))
		return d, fmt.Errorf("%w: booking: %v", ErrMalformedPayload, err)
	}

	d.Shape = detectShape(obj, nested)
	d.ID = deliveryID(obj, env)
	d.RawCustomFields = rawCustomFields(obj)

	adapt, ok := adapters[d.Shape]
	if !ok {
		return d, core.ErrUnrecognisedShape
	}
	d.Booking = adapt(obj)
	d.Booking.PK = string(obj.PK)
	return d, nil
}

func detectShape(obj bookingObject, nested bool) Shape {
	switch {
	case obj.Availability != nil && nested:
		return ShapeBooking
	case obj.Availability != nil:
		return ShapeFlatAvailability
	case obj.Product != nil && nested:
		return ShapeNestedLegacy
	case obj.Product != nil:
		return ShapeLegacy
	default:
		return ShapeUnknown
	}
}

func adaptAvailability(b bookingObject) core.Booking {
	out := core.Booking{
		StartAt: string(b.Availability.StartAt),
		Note:    string(b.Note),
	}
	if b.Availability.Item != nil {
		out.ProductName = string(b.Availability.Item.Name)
	}
	if out.Note == "" {
		out.Note = string(b.Notes)
	}
	out.CustomFields = decodeCustomFields(b.CustomFieldValues)
	if len(out.CustomFields) == 0 {
		out.CustomFields = decodeCustomFields(b.CustomFields)
	}
	out.Customers = decodeCustomers(b.Customers)
	return out
}

func adaptLegacy(b bookingObject) core.Booking {
	out := core.Booking{
		ProductName: string(b.Product.Name),
		StartAt:     string(b.Date),
		Note:        string(b.Notes),
	}
	if out.Note == "" {
		out.Note = string(b.Note)
	}
	out.CustomFields = decodeCustomFields(b.CustomFields)
	if len(out.CustomFields) == 0 {
		out.CustomFields = decodeCustomFields(b.CustomFieldValues)
	}
	out.Customers = decodeCustomers(b.Customers)
	return out
}

// decodeCustomFields skips entries that are neither objects nor strings.
func decodeCustomFields(raw json.RawMessage) []core.CustomField {
	if len(raw) == 0 {
		return nil
	}
	var entries []customFieldValue
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	out := make([]core.CustomField, 0, len(entries))
	for _, e := range entries {
		if !e.ok {
			continue
		}
		out = append(out, core.CustomField{Value: string(e.Value), DisplayValue: string(e.DisplayValue)})
	}
	return out
}

func decodeCustomers(raw json.RawMessage) []core.Customer {
	if len(raw) == 0 {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	out := make([]core.Customer, 0, len(entries))
	for _, e := range entries {
		var c customer
		if err := json.Unmarshal(e, &c); err != nil {
			continue
		}
		out = append(out, core.Customer{TypeLabel: c.typeLabel()})
	}
	return out
}

func rawCustomFields(b bookingObject) string {
	for _, raw := range []json.RawMessage{b.CustomFieldValues, b.CustomFields} {
		if s := string(bytes.TrimSpace(raw)); s != "" && s != "null" {
			return s
		}
	}
	return ""
}

func deliveryID(obj bookingObject, env envelope) string {
	if obj.PK != "" {
		return string(obj.PK)
	}
	if obj.BookingID != "" {
		return string(obj.BookingID)
	}
	return newDeliveryID(string(env.BookingID))
}

func newDeliveryID(known string) string {
	if known != "" {
		return known
	}
	return uuid.NewString()
}

func isTypeError(err error) bool {
	var te *json.UnmarshalTypeError
	return errors.As(err, &te)
}
