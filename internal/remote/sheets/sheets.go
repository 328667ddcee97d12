// Package sheets mirrors ledger documents into a Google Sheets tab, one row
// per document.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"dailyledger/internal/log"
	"dailyledger/internal/remote"
)

// Header is the column layout written by Put.
var Header = []any{"Timestamp", "User", "ID", "Type", "Amount", "Note", "Person"}

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string // service account JSON, inline
	CredentialsFile string // or a path to it
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger
}

var _ remote.DocumentWriter = (*Client)(nil)

// New creates a Sheets client authenticated as a service account. With no
// credentials configured it falls back to GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Transactions"
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets mirror ready", "sheet", sheet)
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheet: sheet, logger: logger}, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Put appends the document as a new row. Sheets has no keyed upsert, so a
// redelivered document shows up twice; the ID column identifies duplicates.
func (c *Client) Put(ctx context.Context, doc remote.Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	vr := &gsheet.ValueRange{Values: [][]any{documentRow(doc)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, appendRange(c.sheet), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheet, err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.DebugContext(ctx, "Document appended",
		log.FieldTransactionID, doc.ID,
		log.FieldUserID, doc.UserID,
		"range", ref)
	return nil
}

func appendRange(sheet string) string {
	return fmt.Sprintf("'%s'!A:G", strings.ReplaceAll(sheet, "'", "''"))
}

func documentRow(doc remote.Document) []any {
	return []any{
		time.UnixMilli(doc.Timestamp).UTC().Format(time.RFC3339),
		doc.UserID,
		doc.ID,
		doc.Type,
		doc.Amount.String(),
		doc.Note,
		doc.PersonName,
	}
}
