package google

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"fhtally/internal/core"
)

func validOptions() Options {
	return Options{
		CredentialsB64:  base64.StdEncoding.EncodeToString([]byte(`{"type":"service_account"}`)),
		SpreadsheetName: "Monthly Rentals Equipment Report",
		ReportSheet:     "2025 Report",
		AuditSheet:      "Webhook Log",
		CountColumn:     4,
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	opts := validOptions()
	opts.CredentialsB64 = ""

	_, err := New(context.Background(), opts)
	if !errors.Is(err, core.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestNew_RejectsBadLayout(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr string
	}{
		{
			name:    "missing report sheet",
			mutate:  func(o *Options) { o.ReportSheet = " " },
			wantErr: "report and audit sheet names are required",
		},
		{
			name:    "missing audit sheet",
			mutate:  func(o *Options) { o.AuditSheet = "" },
			wantErr: "report and audit sheet names are required",
		},
		{
			name:    "count column overlaps category",
			mutate:  func(o *Options) { o.CountColumn = 2 },
			wantErr: "invalid count column 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(&opts)
			_, err := New(context.Background(), opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
