package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fhtally/internal/core"
)

func TestMemoryStoreReadWriteAndAudit(t *testing.T) {
	ctx := context.Background()
	s := New([]core.ReportRow{
		{Month: "Oct 2025", Category: "Single", Count: 3},
		{Month: "Oct 2025", Category: "SUP"},
	})

	rows, err := s.ReportRows(ctx)
	if err != nil || len(rows) != 2 || rows[0].Row != 2 || rows[1].Row != 3 {
		t.Fatalf("unexpected rows: %+v err=%v", rows, err)
	}

	if r, err := s.ReadRow(ctx, 2); err != nil || r.Count != 3 || r.Month != "Oct 2025" || r.Category != "Single" {
		t.Fatalf("ReadRow = %+v, %v", r, err)
	}
	if err := s.WriteCount(ctx, 3, 9); err != nil {
		t.Fatalf("WriteCount: %v", err)
	}
	if got := s.Count("Oct 2025", core.SUP); got != 9 {
		t.Fatalf("Count = %d", got)
	}
	if _, err := s.ReadRow(ctx, 1); err == nil {
		t.Fatalf("header row should be out of range")
	}

	if err := s.AppendAudit(ctx, core.AuditRecord{Reason: "x"}); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	if len(s.Audit()) != 1 {
		t.Fatalf("expected one audit record")
	}

	s.FailReads = true
	if _, err := s.ReportRows(ctx); !errors.Is(err, core.ErrSheetUnavailable) {
		t.Fatalf("expected ErrSheetUnavailable, got %v", err)
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir, 2025)
	rows, _ := s.ReportRows(context.Background())
	if len(rows) != 12*len(core.Categories()) {
		t.Fatalf("expected default grid, got %d rows", len(rows))
	}
	if rows[0].Month != "Jan 2025" || rows[0].Category != "Single" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}

	content := "# month,category,count\nOct 2025,Single,4\n\nOct 2025, SUP ,x\nbad\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_report.csv"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir, 2025)
	rows, _ = s.ReportRows(context.Background())
	if len(rows) != 2 {
		t.Fatalf("expected 2 seeded rows, got %+v", rows)
	}
	if rows[0].Count != 4 || rows[1].Category != "SUP" || rows[1].Count != 0 {
		t.Fatalf("unexpected seeded rows: %+v", rows)
	}
}

func TestInsertRowShiftsRowsDown(t *testing.T) {
	ctx := context.Background()
	s := New([]core.ReportRow{
		{Month: "Oct 2025", Category: "Single", Count: 1},
		{Month: "Oct 2025", Category: "Double"},
	})
	s.InsertRow(2, "Sep 2025", core.Single, 40)

	r, err := s.ReadRow(ctx, 2)
	if err != nil || r.Month != "Sep 2025" || r.Count != 40 {
		t.Fatalf("row 2 = %+v, %v", r, err)
	}
	r, err = s.ReadRow(ctx, 3)
	if err != nil || r.Month != "Oct 2025" || r.Category != "Single" || r.Count != 1 {
		t.Fatalf("row 3 = %+v, %v", r, err)
	}
	rows, _ := s.ReportRows(ctx)
	if len(rows) != 3 || rows[2].Row != 4 || rows[2].Category != "Double" {
		t.Fatalf("unexpected rows after insert: %+v", rows)
	}
}
