package google

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fhtally/internal/core"
	ports "fhtally/internal/sheets"

	gdrive "google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportSheet   string
	auditSheet    string
	// 1-based column holding the running count (4 = D)
	countColumn int
}

// Ensure interface conformance
var (
	_ ports.ReportReader = (*Client)(nil)
	_ ports.CountWriter  = (*Client)(nil)
	_ ports.AuditWriter  = (*Client)(nil)
)

// Options configures a Sheets client.
type Options struct {
	// CredentialsB64 is the service-account JSON, base64 encoded.
	CredentialsB64 string
	// SpreadsheetID wins over SpreadsheetName when both are set.
	SpreadsheetID   string
	SpreadsheetName string
	ReportSheet     string
	AuditSheet      string
	CountColumn     int
}

// New decodes the service-account credentials, opens the Sheets API once and
// resolves the spreadsheet. The returned client is reused for every delivery.
func New(ctx context.Context, opts Options) (*Client, error) {
	credentialsJSON, err := decodeCredentials(opts.CredentialsB64)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.ReportSheet) == "" || strings.TrimSpace(opts.AuditSheet) == "" {
		return nil, errors.New("report and audit sheet names are required")
	}
	if opts.CountColumn < 3 {
		return nil, fmt.Errorf("invalid count column %d: must be after the month and category columns", opts.CountColumn)
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		spreadsheetID, err = resolveSpreadsheetID(ctx, credentialsJSON, opts.SpreadsheetName)
		if err != nil {
			return nil, err
		}
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully",
		"spreadsheet_id", spreadsheetID,
		"report_sheet", opts.ReportSheet,
		"audit_sheet", opts.AuditSheet)

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportSheet:   opts.ReportSheet,
		auditSheet:    opts.AuditSheet,
		countColumn:   opts.CountColumn,
	}, nil
}

// decodeCredentials accepts standard or URL-safe base64, padded or not.
func decodeCredentials(b64 string) ([]byte, error) {
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		return nil, core.ErrMissingCredentials
	}
	encodings := []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding}
	for _, enc := range encodings {
		if raw, err := enc.DecodeString(b64); err == nil {
			if !strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
				return nil, fmt.Errorf("%w: decoded credentials are not a JSON object", core.ErrMissingCredentials)
			}
			return raw, nil
		}
	}
	return nil, fmt.Errorf("%w: credentials are not valid base64", core.ErrMissingCredentials)
}

// resolveSpreadsheetID looks the spreadsheet up by its exact title, the way it
// is shared with the service account.
func resolveSpreadsheetID(ctx context.Context, credentialsJSON []byte, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("either a spreadsheet ID or a spreadsheet name is required")
	}
	drv, err := gdrive.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gdrive.DriveMetadataReadonlyScope))
	if err != nil {
		return "", fmt.Errorf("create drive service: %w", err)
	}
	resp, err := drv.Files.List().
		Q(spreadsheetQuery(name)).
		Fields("files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		PageSize(2).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("look up spreadsheet %q: %w", name, err)
	}
	if len(resp.Files) == 0 {
		return "", fmt.Errorf("spreadsheet %q not found or not shared with the service account", name)
	}
	if len(resp.Files) > 1 {
		slog.WarnContext(ctx, "Several spreadsheets share this name, using the first", "name", name, "spreadsheet_id", resp.Files[0].Id)
	}
	return resp.Files[0].Id, nil
}

// ReportRows reads month, category and count for every data row of the report sheet.
func (c *Client) ReportRows(ctx context.Context) ([]core.ReportRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := a1Range(c.reportSheet, "A:"+columnLetter(c.countColumn))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", rng, core.ErrSheetUnavailable, err)
	}
	return parseReportRows(resp.Values, c.countColumn), nil
}

// ReadRow reads month, category and count of a single row.
func (c *Client) ReadRow(ctx context.Context, row int) (core.ReportRow, error) {
	if c.svc == nil {
		return core.ReportRow{}, errors.New("sheets service not initialized")
	}
	rng := a1Range(c.reportSheet, fmt.Sprintf("A%d:%s%d", row, columnLetter(c.countColumn), row))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return core.ReportRow{}, fmt.Errorf("read %s: %w: %w", rng, core.ErrSheetUnavailable, err)
	}
	return parseRow(resp.Values, row, c.countColumn), nil
}

// WriteCount overwrites the count cell of a single row.
func (c *Client) WriteCount(ctx context.Context, row int, count int) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := c.countCell(row)
	vr := &gsheet.ValueRange{Values: [][]any{{count}}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w: %w", rng, core.ErrSheetUnavailable, err)
	}
	return nil
}

// AppendAudit appends one row below the last row of the audit sheet.
func (c *Client) AppendAudit(ctx context.Context, rec core.AuditRecord) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := a1Range(c.auditSheet, "A1")
	vr := &gsheet.ValueRange{Values: [][]any{rec.Values()}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w: %w", c.auditSheet, core.ErrSheetUnavailable, err)
	}
	return nil
}

// EnsureAuditSheet creates the audit tab when it is missing and rewrites its
// header row when it does not match core.AuditHeader.
func (c *Client) EnsureAuditSheet(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet metadata: %w: %w", core.ErrSheetUnavailable, err)
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	if !containsTitle(titles, c.reportSheet) {
		slog.WarnContext(ctx, "Report sheet not found", "sheet", c.reportSheet, "available", titles)
	}

	if !containsTitle(titles, c.auditSheet) {
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: c.auditSheet}},
		}}}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("create audit sheet %s: %w", c.auditSheet, err)
		}
		slog.InfoContext(ctx, "Created audit sheet", "sheet", c.auditSheet)
	}

	headerRange := a1Range(c.auditSheet, "1:1")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", headerRange, err)
	}
	var current []interface{}
	if len(resp.Values) > 0 {
		current = resp.Values[0]
	}
	if headerMatches(current, core.AuditHeader) {
		return nil
	}

	header := make([]any, len(core.AuditHeader))
	for i, h := range core.AuditHeader {
		header[i] = h
	}
	vr := &gsheet.ValueRange{Values: [][]any{header}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1Range(c.auditSheet, "A1"), vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write audit header: %w", err)
	}
	slog.InfoContext(ctx, "Rewrote audit sheet header", "sheet", c.auditSheet, "previous", toStrings(current))
	return nil
}

func (c *Client) countCell(row int) string {
	return a1Range(c.reportSheet, fmt.Sprintf("%s%d", columnLetter(c.countColumn), row))
}

func containsTitle(titles []string, want string) bool {
	for _, t := range titles {
		if t == want {
			return true
		}
	}
	return false
}
