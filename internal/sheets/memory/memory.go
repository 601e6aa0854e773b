package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"fhtally/internal/core"
)

// Store is an in-process report grid and audit log. Rows are numbered like
// sheet rows: row 1 is the header, data starts at row 2.
type Store struct {
	mu    sync.Mutex
	rows  []core.ReportRow
	audit []core.AuditRecord

	// FailReads makes ReportRows and ReadRow fail, to simulate an unreachable sheet.
	FailReads bool
	// FailAudit makes AppendAudit fail.
	FailAudit bool
}

// New builds a grid from (month, category, count) rows in order.
func New(rows []core.ReportRow) *Store {
	s := &Store{}
	for i, r := range rows {
		r.Row = i + 2
		s.rows = append(s.rows, r)
	}
	return s
}

// NewFromFiles seeds the grid from base/seed_report.csv ("month,category,count"
// per line). Without a seed file every category of the current year is created.
func NewFromFiles(base string, year int) *Store {
	rows := readSeed(filepath.Join(base, "seed_report.csv"))
	if len(rows) == 0 {
		rows = DefaultGrid(year)
	}
	return New(rows)
}

// DefaultGrid returns one zero row per month and category of year.
func DefaultGrid(year int) []core.ReportRow {
	months := []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	var rows []core.ReportRow
	for _, m := range months {
		for _, c := range core.Categories() {
			rows = append(rows, core.ReportRow{Month: fmt.Sprintf("%s %d", m, year), Category: string(c)})
		}
	}
	return rows
}

// ReportRows returns a copy of the grid.
func (s *Store) ReportRows(_ context.Context) ([]core.ReportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReads {
		return nil, fmt.Errorf("%w: memory store offline", core.ErrSheetUnavailable)
	}
	return append([]core.ReportRow(nil), s.rows...), nil
}

func (s *Store) ReadRow(_ context.Context, row int) (core.ReportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReads {
		return core.ReportRow{}, fmt.Errorf("%w: memory store offline", core.ErrSheetUnavailable)
	}
	r, err := s.rowLocked(row)
	if err != nil {
		return core.ReportRow{}, err
	}
	return *r, nil
}

func (s *Store) WriteCount(_ context.Context, row int, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.rowLocked(row)
	if err != nil {
		return err
	}
	r.Count = count
	return nil
}

func (s *Store) AppendAudit(_ context.Context, rec core.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAudit {
		return fmt.Errorf("%w: audit sheet offline", core.ErrSheetUnavailable)
	}
	s.audit = append(s.audit, rec)
	return nil
}

// AddRow appends a row to the grid, as if someone edited the sheet by hand.
func (s *Store) AddRow(month string, category core.Category, count int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := len(s.rows) + 2
	s.rows = append(s.rows, core.ReportRow{Row: row, Month: month, Category: string(category), Count: count})
	return row
}

// InsertRow inserts a row at sheet row `at`, shifting that row and everything
// below it down by one, as if someone inserted or sorted rows by hand.
func (s *Store) InsertRow(at int, month string, category core.Category, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := at - 2
	if idx < 0 {
		idx = 0
	}
	if idx > len(s.rows) {
		idx = len(s.rows)
	}
	s.rows = append(s.rows, core.ReportRow{})
	copy(s.rows[idx+1:], s.rows[idx:])
	s.rows[idx] = core.ReportRow{Month: month, Category: string(category), Count: count}
	for i := range s.rows {
		s.rows[i].Row = i + 2
	}
}

// Count returns the count of the first row matching (month, category), or -1.
func (s *Store) Count(month string, category core.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := core.RowKey{Month: month, Category: category}
	for _, r := range s.rows {
		if r.Key() == key {
			return r.Count
		}
	}
	return -1
}

// Audit returns a copy of the audit log.
func (s *Store) Audit() []core.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.AuditRecord(nil), s.audit...)
}

func (s *Store) rowLocked(row int) (*core.ReportRow, error) {
	idx := row - 2
	if idx < 0 || idx >= len(s.rows) {
		return nil, fmt.Errorf("row %d out of range", row)
	}
	return &s.rows[idx], nil
}

func readSeed(path string) []core.ReportRow {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.ReportRow
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		r := core.ReportRow{Month: strings.TrimSpace(parts[0]), Category: strings.TrimSpace(parts[1])}
		if len(parts) >= 3 {
			r.Count, _ = strconv.Atoi(strings.TrimSpace(parts[2]))
		}
		out = append(out, r)
	}
	return out
}
