package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// BookingMessage carries one raw webhook body to the worker. The worker decodes
// it with the same adapters the HTTP handler uses.
type BookingMessage struct {
	DeliveryID string          `json:"delivery_id"`
	RequestID  string          `json:"request_id,omitempty"`
	Body       json.RawMessage `json:"body"`
	ReceivedAt time.Time       `json:"received_at"`
}

func NewBookingMessage(deliveryID, requestID string, body []byte) *BookingMessage {
	return &BookingMessage{
		DeliveryID: deliveryID,
		RequestID:  requestID,
		Body:       json.RawMessage(body),
		ReceivedAt: time.Now().UTC(),
	}
}

func (m *BookingMessage) ToJSON() ([]byte, error) {
	if !json.Valid(m.Body) {
		// keep undecodable bodies as a JSON string so they still reach the audit log
		quoted, err := json.Marshal(string(m.Body))
		if err != nil {
			return nil, err
		}
		cp := *m
		cp.Body = quoted
		return json.Marshal(cp)
	}
	return json.Marshal(m)
}

// BookingMessageFromJSON rejects messages without a body.
func BookingMessageFromJSON(data []byte) (*BookingMessage, error) {
	var msg BookingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode booking message: %w", err)
	}
	if len(msg.Body) == 0 {
		return nil, errors.New("decode booking message: empty body")
	}
	return &msg, nil
}

// RawBody returns the webhook body as delivered, unquoting bodies that were
// not valid JSON when published.
func (m *BookingMessage) RawBody() []byte {
	var s string
	if len(m.Body) > 0 && m.Body[0] == '"' && json.Unmarshal(m.Body, &s) == nil {
		return []byte(s)
	}
	return m.Body
}
