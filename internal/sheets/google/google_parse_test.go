package google

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"fhtally/internal/core"
)

func TestParseReportRows(t *testing.T) {
	values := [][]interface{}{
		{"Month", "Category", "Notes", "Count"},
		{"Oct 2025", "Single", "", "4"},
		{" Oct 2025 ", " SUP "},
		{"Oct 2025"},
		{},
		{"Nov 2025", "Double", "x", "n/a"},
	}
	rows := parseReportRows(values, 4)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %+v", rows)
	}
	if rows[0].Row != 2 || rows[0].Count != 4 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Row != 3 || rows[1].Month != "Oct 2025" || rows[1].Category != "SUP" || rows[1].Count != 0 {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
	if rows[2].Row != 6 || rows[2].Count != 0 {
		t.Fatalf("row numbers must follow sheet rows: %+v", rows[2])
	}
}

func TestParseRow(t *testing.T) {
	r := parseRow([][]interface{}{{" Oct 2025 ", "Single", "", "5"}}, 7, 4)
	if r.Row != 7 || r.Month != "Oct 2025" || r.Category != "Single" || r.Count != 5 {
		t.Fatalf("unexpected row: %+v", r)
	}
	if r := parseRow(nil, 3, 4); r.Row != 3 || r.Month != "" || r.Count != 0 {
		t.Fatalf("blank row should be empty: %+v", r)
	}
	if r := parseRow([][]interface{}{{"Oct 2025", "SUP"}}, 2, 4); r.Count != 0 || r.Category != "SUP" {
		t.Fatalf("missing count cell should be zero: %+v", r)
	}
}

func TestParseCount(t *testing.T) {
	cases := map[string]int{
		"":     0,
		"  ":   0,
		"7":    7,
		" 12 ": 12,
		"3.0":  3,
		"3.5":  0,
		"-2":   0,
		"abc":  0,
	}
	for in, want := range cases {
		if got := parseCount(in); got != want {
			t.Errorf("parseCount(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestA1RangeAndColumnLetter(t *testing.T) {
	if got := a1Range("2025 Report", "A:D"); got != "'2025 Report'!A:D" {
		t.Fatalf("a1Range = %q", got)
	}
	if got := a1Range("Bob's Log", "A1"); got != "'Bob''s Log'!A1" {
		t.Fatalf("a1Range escaping = %q", got)
	}
	letters := map[int]string{1: "A", 4: "D", 26: "Z", 27: "AA", 52: "AZ", 53: "BA", 0: ""}
	for n, want := range letters {
		if got := columnLetter(n); got != want {
			t.Errorf("columnLetter(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestHeaderMatches(t *testing.T) {
	header := make([]interface{}, len(core.AuditHeader))
	for i, h := range core.AuditHeader {
		header[i] = h
	}
	if !headerMatches(header, core.AuditHeader) {
		t.Fatalf("identical header should match")
	}
	if headerMatches(header[:3], core.AuditHeader) {
		t.Fatalf("short header should not match")
	}
	if headerMatches(nil, core.AuditHeader) {
		t.Fatalf("missing header should not match")
	}
}

func TestDecodeCredentials(t *testing.T) {
	raw := `{"type":"service_account"}`
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawURLEncoding} {
		got, err := decodeCredentials(enc.EncodeToString([]byte(raw)))
		if err != nil || string(got) != raw {
			t.Fatalf("decodeCredentials: %q, %v", got, err)
		}
	}
	if _, err := decodeCredentials(""); !errors.Is(err, core.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials for empty input, got %v", err)
	}
	if _, err := decodeCredentials("%%%"); !errors.Is(err, core.ErrMissingCredentials) {
		t.Fatalf("expected error for invalid base64, got %v", err)
	}
	if _, err := decodeCredentials(base64.StdEncoding.EncodeToString([]byte("plain text"))); err == nil {
		t.Fatalf("expected error for non-JSON credentials")
	}
}

func TestClientWithoutServiceFails(t *testing.T) {
	c := &Client{reportSheet: "R", auditSheet: "A", countColumn: 4}
	if _, err := c.ReportRows(context.Background()); err == nil {
		t.Fatalf("expected error without service")
	}
	if err := c.AppendAudit(context.Background(), core.AuditRecord{}); err == nil {
		t.Fatalf("expected error without service")
	}
	if got := c.countCell(5); got != "'R'!D5" {
		t.Fatalf("countCell = %q", got)
	}
}
