package worker

import (
	"context"
	"log/slog"
	"time"

	"fhtally/internal/amqp"
	"fhtally/internal/fareharbor"
	"fhtally/internal/log"
	"fhtally/internal/services"
)

// Recorder is the part of the ledger service the worker drives.
type Recorder interface {
	Record(ctx context.Context, d fareharbor.Delivery) services.Outcome
	Reject(ctx context.Context, d fareharbor.Delivery, err error) services.Outcome
}

// TallyWorker applies queued webhook deliveries to the ledger.
type TallyWorker struct {
	ledger  Recorder
	sweeper *ClaimSweeper
}

func NewTallyWorker(ledger Recorder, claims StaleClaims, batchSize int) *TallyWorker {
	return &TallyWorker{ledger: ledger, sweeper: NewClaimSweeper(claims, batchSize)}
}

// HandleBooking decodes one queued body and records it. Ledger outcomes are
// final, so it only fails when ctx is done and the message should be requeued.
func (w *TallyWorker) HandleBooking(ctx context.Context, msg *amqp.BookingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.RequestID != "" {
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldRequestID, msg.RequestID))
	}

	d, err := fareharbor.Decode(msg.RawBody())
	if d.ID == "" {
		d.ID = msg.DeliveryID
	}
	var out services.Outcome
	if err != nil {
		out = w.ledger.Reject(ctx, d, err)
	} else {
		out = w.ledger.Record(ctx, d)
	}

	slog.DebugContext(ctx, "Processed queued booking",
		log.FieldDeliveryID, out.DeliveryID,
		"tallied", out.Tallied,
		log.FieldReason, out.Reason,
		"queued_for", time.Since(msg.ReceivedAt).Round(time.Millisecond))
	return nil
}

// ReleaseStaleClaims frees claims left pending by a process that died
// mid-delivery, so a redelivery of the same booking is counted.
func (w *TallyWorker) ReleaseStaleClaims(ctx context.Context, olderThan time.Duration) (int, error) {
	return w.sweeper.Release(ctx, olderThan)
}

// Run consumes the booking queue until ctx is done, sweeping stale claims
// every interval.
func (w *TallyWorker) Run(ctx context.Context, client *amqp.Client, sweepEvery, staleAfter time.Duration) error {
	go w.sweeper.Run(ctx, sweepEvery, staleAfter)
	return client.ConsumeBookings(ctx, w.HandleBooking)
}
