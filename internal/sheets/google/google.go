package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"scontrino/internal/core"
	ports "scontrino/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client exports receipts to a Google spreadsheet, one sheet per year.
// Row layout: Month | Day | Merchant | Amount | Currency | Category | ID.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base sheet name without year (e.g. "Receipts"); the year is prefixed.
	reportBase string
}

var (
	_ ports.ReceiptWriter  = (*Client)(nil)
	_ ports.ReceiptRemover = (*Client)(nil)
)

// New creates a Sheets client for the given spreadsheet and report sheet
// base name. Credentials come from the environment: GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, reportBase string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	reportBase = strings.TrimSpace(reportBase)
	if reportBase == "" {
		reportBase = "Receipts"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportBase:    reportBase,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// reportSheetName returns the per-year sheet, e.g. "2026 Receipts".
func (c *Client) reportSheetName(year int) string {
	return fmt.Sprintf("%d %s", year, c.reportBase)
}

func (c *Client) Append(ctx context.Context, r core.Receipt) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := c.reportSheetName(r.Date.Year())

	// Find the next empty row from the sheet's current extent.
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", sheet, err)
	}
	nextRow := len(resp.Values) + 1

	amount := float64(r.Amount.Cents) / 100.0
	dataRange := fmt.Sprintf("%s!A%d:G%d", sheet, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{{
		r.Date.Month(), r.Date.Day(), r.Merchant, amount, string(r.Currency), r.Category, r.ID,
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write row in sheet %s: %w", sheet, err)
	}

	return dataRange, nil
}

// Remove clears the row holding the receipt with the given ID. It scans the
// current and previous year's sheets; a receipt exported longer ago stays.
func (c *Client) Remove(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	year := time.Now().Year()
	for _, y := range []int{year, year - 1} {
		sheet := c.reportSheetName(y)
		row, err := c.findRowByID(ctx, sheet, id)
		if err != nil {
			// Sheet may not exist for that year.
			slog.WarnContext(ctx, "Could not scan report sheet", "sheet", sheet, "error", err)
			continue
		}
		if row == 0 {
			continue
		}
		clearRange := fmt.Sprintf("%s!A%d:G%d", sheet, row, row)
		_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("clear row %s: %w", clearRange, err)
		}
		return nil
	}

	slog.WarnContext(ctx, "Receipt not found in report sheets", "id", id)
	return nil
}

// findRowByID returns the 1-based row whose ID column matches, or 0.
func (c *Client) findRowByID(ctx context.Context, sheet string, id int64) (int, error) {
	rng := fmt.Sprintf("%s!G:G", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(row[0])), 10, 64)
		if err != nil {
			continue
		}
		if v == id {
			return i + 1, nil
		}
	}
	return 0, nil
}
