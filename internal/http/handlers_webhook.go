package http

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"fhtally/internal/amqp"
	"fhtally/internal/fareharbor"
	"fhtally/internal/log"
	"fhtally/internal/middleware/trace"

	"github.com/google/uuid"
)

// handleWebhook acknowledges every POST with {"status":"received"}; the ledger
// outcome only shows up in logs and the audit sheet.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, truncated, readErr := readBody(r.Body, s.maxBody)

	// the sender may hang up once acknowledged; the sheet write must still finish
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), processTimeout)
	defer cancel()

	s.wg.Add(1)
	defer s.wg.Done()

	switch {
	case readErr != nil:
		s.rejectRaw(ctx, fmt.Errorf("%w: %v", fareharbor.ErrMalformedPayload, readErr))
	case truncated:
		s.rejectRaw(ctx, fmt.Errorf("%w: body exceeds %d bytes", fareharbor.ErrMalformedPayload, s.maxBody))
	case s.publisher != nil && s.enqueue(ctx, body):
	default:
		s.process(ctx, body)
	}

	writeReceived(w)
}

// enqueue publishes body for the worker. It reports false when the caller
// must process the delivery itself.
func (s *Server) enqueue(ctx context.Context, body []byte) bool {
	d, _ := fareharbor.Decode(body)
	msg := amqp.NewBookingMessage(d.ID, trace.GetRequestID(ctx), body)
	if err := s.publisher.PublishBooking(ctx, msg); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Queue unavailable, processing delivery inline",
			log.FieldDeliveryID, d.ID, log.FieldError, err)
		return false
	}
	return true
}

// process decodes and records one delivery. A panic anywhere below is turned
// into an audit record so the sender still gets its acknowledgement.
func (s *Server) process(ctx context.Context, body []byte) {
	start := time.Now()
	d, err := fareharbor.Decode(body)

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "Panic while recording delivery",
				log.FieldDeliveryID, d.ID, "panic", rec, "stack", string(debug.Stack()))
			s.safeReject(ctx, d, fmt.Errorf("internal error: %v", rec))
		}
	}()

	if err != nil {
		s.ledger.Reject(ctx, d, err)
		return
	}
	out := s.ledger.Record(ctx, d)
	log.FromContext(ctx).WithComponent(log.ComponentWebhook).DebugContext(ctx, "Delivery processed",
		log.FieldDeliveryID, out.DeliveryID,
		log.FieldShape, string(d.Shape),
		"tallied", out.Tallied,
		log.FieldDuration, time.Since(start).Milliseconds())
}

func (s *Server) rejectRaw(ctx context.Context, err error) {
	s.safeReject(ctx, fareharbor.Delivery{ID: uuid.NewString(), Shape: fareharbor.ShapeUnknown}, err)
}

// safeReject audits a failure without letting a second panic escape.
func (s *Server) safeReject(ctx context.Context, d fareharbor.Delivery, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "Panic while auditing delivery", log.FieldDeliveryID, d.ID, "panic", rec)
		}
	}()
	s.ledger.Reject(ctx, d, err)
}
