package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fhtally/internal/amqp"
	"fhtally/internal/core"
	"fhtally/internal/fareharbor"
	"fhtally/internal/services"
	"fhtally/internal/sheets/memory"
	"fhtally/internal/storage"
)

func newLedger() (*services.LedgerService, *memory.Store) {
	store := memory.New([]core.ReportRow{
		{Month: "Oct 2025", Category: "Single"},
		{Month: "Oct 2025", Category: "Double"},
		{Month: "Oct 2025", Category: "SUP"},
		{Month: "Oct 2025", Category: "Unlisted"},
	})
	return services.NewLedgerService(store, services.LedgerOptions{IndexTTL: time.Minute}), store
}

func TestHandleBookingTallies(t *testing.T) {
	ledger, store := newLedger()
	w := NewTallyWorker(ledger, nil, 0)

	body := `{"booking":{"pk":99,"availability":{"start_at":"2025-10-04T09:00:00-0500","item":{"name":"Kayak and SUP Reservations"}},"note":"Tandem please"}}`
	msg := amqp.NewBookingMessage("99", "req-1", []byte(body))
	if err := w.HandleBooking(context.Background(), msg); err != nil {
		t.Fatalf("HandleBooking: %v", err)
	}
	if got := store.Count("Oct 2025", core.Double); got != 1 {
		t.Fatalf("Double count = %d", got)
	}
	audit := store.Audit()
	if len(audit) != 1 || audit[0].DeliveryID != "99" || !audit[0].Logged {
		t.Fatalf("unexpected audit %+v", audit)
	}
}

func TestHandleBookingAuditsMalformedBodies(t *testing.T) {
	ledger, store := newLedger()
	w := NewTallyWorker(ledger, nil, 0)

	msg := amqp.NewBookingMessage("abc", "", []byte(`not json`))
	if err := w.HandleBooking(context.Background(), msg); err != nil {
		t.Fatalf("malformed bodies must not be requeued: %v", err)
	}
	audit := store.Audit()
	if len(audit) != 1 || audit[0].Logged || !strings.HasPrefix(audit[0].Reason, fareharbor.ErrMalformedPayload.Error()) {
		t.Fatalf("unexpected audit %+v", audit)
	}
}

func TestHandleBookingRequeuesOnCancel(t *testing.T) {
	ledger, store := newLedger()
	w := NewTallyWorker(ledger, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.HandleBooking(ctx, amqp.NewBookingMessage("1", "", []byte(`{}`))); err == nil {
		t.Fatalf("expected requeue error")
	}
	if len(store.Audit()) != 0 {
		t.Fatalf("nothing should be recorded")
	}
}

type fakeClaims struct {
	pending  []storage.DeliveryRecord
	released []string
	failID   string
}

func (f *fakeClaims) PendingDeliveries(context.Context, time.Duration, int) ([]storage.DeliveryRecord, error) {
	return f.pending, nil
}

func (f *fakeClaims) ReleaseDelivery(_ context.Context, id string) error {
	if id == f.failID {
		return errors.New("locked")
	}
	f.released = append(f.released, id)
	return nil
}

func TestReleaseStaleClaims(t *testing.T) {
	ledger, _ := newLedger()
	claims := &fakeClaims{
		pending: []storage.DeliveryRecord{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		failID:  "b",
	}
	w := NewTallyWorker(ledger, claims, 10)
	n, err := w.ReleaseStaleClaims(context.Background(), time.Minute)
	if err != nil || n != 2 {
		t.Fatalf("ReleaseStaleClaims = %d, %v", n, err)
	}
	if len(claims.released) != 2 || claims.released[0] != "a" || claims.released[1] != "c" {
		t.Fatalf("unexpected releases %+v", claims.released)
	}

	if n, err := NewTallyWorker(ledger, nil, 0).ReleaseStaleClaims(context.Background(), time.Minute); n != 0 || err != nil {
		t.Fatalf("no claim store should be a no-op")
	}
}
