package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"fhtally/internal/core"
	"fhtally/internal/fareharbor"
	"fhtally/internal/log"
	"fhtally/internal/sheets"
	"fhtally/internal/storage"
)

// DeliveryClaimer records processed deliveries so redeliveries are not counted twice.
type DeliveryClaimer interface {
	ClaimDelivery(ctx context.Context, id, shape string) (bool, error)
	CompleteDelivery(ctx context.Context, id, outcome, reason string) error
	ReleaseDelivery(ctx context.Context, id string) error
}

var _ DeliveryClaimer = (*storage.DeliveryStore)(nil)

// bookkeepingTimeout bounds the audit append and claim settle, which run
// detached from the caller's deadline.
const bookkeepingTimeout = 10 * time.Second

// Outcome is what happened to one delivery. It is never surfaced to the sender.
type Outcome struct {
	DeliveryID string
	Tallied    bool
	Month      string
	Category   core.Category
	Row        int
	Count      int
	Reason     string
	Err        error
}

type LedgerOptions struct {
	TrackedItems core.TrackedItems
	// Location, when set, is the calendar the month label is derived in.
	Location   *time.Location
	IndexTTL   time.Duration
	Deliveries DeliveryClaimer
	Logger     *log.Logger
	Now        func() time.Time
}

// LedgerService counts tracked bookings into the monthly report and writes
// one audit record per delivery.
type LedgerService struct {
	ledger     sheets.Ledger
	index      *RowIndex
	tracked    core.TrackedItems
	loc        *time.Location
	deliveries DeliveryClaimer
	logger     *log.Logger
	events     *log.StructuredLogger
	now        func() time.Time
}

func NewLedgerService(ledger sheets.Ledger, opts LedgerOptions) *LedgerService {
	tracked := opts.TrackedItems
	if len(tracked) == 0 {
		tracked = core.DefaultTrackedItems()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentLedger)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &LedgerService{
		ledger:     ledger,
		index:      NewRowIndex(ledger, opts.IndexTTL),
		tracked:    tracked,
		loc:        opts.Location,
		deliveries: opts.Deliveries,
		logger:     logger,
		events:     log.NewStructuredLogger(logger),
		now:        now,
	}
}

// Index returns the row index, for cache sweeping.
func (s *LedgerService) Index() *RowIndex {
	return s.index
}

// Record runs one decoded delivery through the ledger. Every call appends
// exactly one audit record.
func (s *LedgerService) Record(ctx context.Context, d fareharbor.Delivery) Outcome {
	if s.deliveries != nil {
		claimed, err := s.deliveries.ClaimDelivery(ctx, d.ID, string(d.Shape))
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "Delivery ledger unavailable, processing without de-duplication",
				log.FieldDeliveryID, d.ID, log.FieldError, err)
		case !claimed:
			return s.finish(ctx, d, Outcome{}, core.Reject(core.ErrDuplicateDelivery, ""), false)
		}
	}

	out, err := s.tally(ctx, d)
	return s.finish(ctx, d, out, err, s.deliveries != nil)
}

// Reject audits a delivery that could not be decoded or processed at all.
func (s *LedgerService) Reject(ctx context.Context, d fareharbor.Delivery, err error) Outcome {
	var rej *core.Rejection
	if !errors.As(err, &rej) {
		rej = core.Reject(err, "")
	}
	return s.finish(ctx, d, Outcome{}, rej, false)
}

func (s *LedgerService) tally(ctx context.Context, d fareharbor.Delivery) (Outcome, error) {
	b := d.Booking
	var out Outcome

	if !s.tracked.Contains(b.ProductName) {
		return out, core.Reject(core.ErrItemNotTracked, "")
	}

	month, _, err := core.ReportMonth(b.StartAt, s.loc)
	if err != nil {
		return out, core.Reject(core.ErrInvalidStartDate, "")
	}
	out.Month = month
	out.Category = core.ClassifyBooking(b)

	key := core.RowKey{Month: month, Category: out.Category}
	row, found, err := s.index.Lookup(ctx, key)
	if err != nil {
		return out, sheetUnavailable(err)
	}
	if !found {
		return out, core.Reject(core.ErrNoMatchingRow,
			fmt.Sprintf("no matching row for %s in %s", out.Category, month))
	}
	out.Row = row

	mu := s.index.lock(key)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.ledger.ReadRow(ctx, row)
	if err != nil {
		return out, sheetUnavailable(err)
	}
	if current.Key() != key {
		// rows were inserted or sorted since the index was built
		s.logger.InfoContext(ctx, "Report row moved, rebuilding index",
			log.FieldDeliveryID, d.ID, log.FieldRow, row, "found", current.Key().String(), "want", key.String())
		row, found, err = s.index.Refresh(ctx, key)
		if err != nil {
			return out, sheetUnavailable(err)
		}
		if !found {
			out.Row = 0
			return out, core.Reject(core.ErrNoMatchingRow,
				fmt.Sprintf("no matching row for %s in %s", out.Category, month))
		}
		out.Row = row
		if current, err = s.ledger.ReadRow(ctx, row); err != nil {
			return out, sheetUnavailable(err)
		}
		if current.Key() != key {
			return out, sheetUnavailable(fmt.Errorf("row %d changed while updating %s", row, key))
		}
	}

	count := current.Count
	if err := s.ledger.WriteCount(ctx, row, count+1); err != nil {
		return out, sheetUnavailable(err)
	}
	out.Count = count + 1
	out.Tallied = true
	return out, nil
}

func sheetUnavailable(err error) *core.Rejection {
	return core.Reject(fmt.Errorf("%w: %w", core.ErrSheetUnavailable, err), "worksheet unavailable: "+err.Error())
}

// finish writes the audit record and settles the delivery claim.
func (s *LedgerService) finish(ctx context.Context, d fareharbor.Delivery, out Outcome, err error, settle bool) Outcome {
	out.DeliveryID = d.ID
	if err != nil {
		out.Tallied = false
		out.Err = err
		out.Reason = core.RejectionReason(err)
	}

	rec := core.AuditRecord{
		Timestamp:    s.now(),
		DeliveryID:   d.ID,
		ProductName:  d.Booking.ProductName,
		StartDate:    d.Booking.StartAt,
		Category:     out.Category,
		Notes:        d.Booking.Note,
		CustomFields: d.RawCustomFields,
		Logged:       out.Tallied,
		Reason:       out.Reason,
	}
	// the processing deadline may already have passed when the sheet was slow
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()

	if err := s.ledger.AppendAudit(wctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "Failed to append audit record",
			log.FieldDeliveryID, d.ID, log.FieldReason, out.Reason, log.FieldError, err)
	}
	s.afterAudit(wctx, d, out, settle)
	return out
}

// afterAudit logs the outcome and settles the claim. The audit record is
// already written, so a panic here must not reach callers that would audit
// the delivery a second time.
func (s *LedgerService) afterAudit(ctx context.Context, d fareharbor.Delivery, out Outcome, settle bool) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "Panic after delivery was audited",
				log.FieldDeliveryID, d.ID, "panic", rec, "stack", string(debug.Stack()))
		}
	}()

	if out.Tallied {
		s.events.LogTallied(ctx, d.ID, d.Booking.ProductName, out.Month, string(out.Category), out.Row, out.Count)
	} else {
		s.events.LogRejected(ctx, d.ID, d.Booking.ProductName, out.Reason, out.Err)
	}

	if settle {
		s.settle(ctx, d.ID, out)
	}
}

// settle completes the claim, or releases it when the sheet was unreachable
// so a redelivery gets another chance.
func (s *LedgerService) settle(ctx context.Context, id string, out Outcome) {
	var err error
	switch {
	case out.Tallied:
		err = s.deliveries.CompleteDelivery(ctx, id, storage.OutcomeTallied, "")
	case errors.Is(out.Err, core.ErrSheetUnavailable):
		err = s.deliveries.ReleaseDelivery(ctx, id)
	default:
		err = s.deliveries.CompleteDelivery(ctx, id, storage.OutcomeRejected, out.Reason)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to settle delivery claim", log.FieldDeliveryID, id, log.FieldError, err)
	}
}
