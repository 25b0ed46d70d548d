package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"scadenze/internal/core"
	ports "scadenze/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.SnapshotExporter = (*Client)(nil)

// New creates a Sheets client for the given spreadsheet and sheet.
// Credentials come from the environment, see newSheetsService.
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Scadenze"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
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

// ExportSnapshot replaces the sheet content with the snapshot rows.
func (c *Client) ExportSnapshot(ctx context.Context, winStart, winEnd core.Date, snap core.Snapshot) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:I", c.sheetName)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear sheet %s: %w", c.sheetName, err)
	}

	values := snapshotValues(winStart, winEnd, snap)
	writeRange := fmt.Sprintf("%s!A1:I%d", c.sheetName, len(values))
	vr := &gsheet.ValueRange{Values: values}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write sheet %s: %w", c.sheetName, err)
	}

	return nil
}

// snapshotValues lays out the export: a window line, a header, then one
// line per row in snapshot order.
func snapshotValues(winStart, winEnd core.Date, snap core.Snapshot) [][]any {
	values := [][]any{
		{"Finestra", winStart.String(), winEnd.String()},
		{"Scadenza", "Voce", "Tipo", "Categoria", "Descrizione", "Importo", "Pagata", "Pagata il", "Stato"},
	}
	for _, row := range snap.Rows {
		paid := ""
		paidOn := ""
		if row.IsPaid {
			paid = "sì"
			paidOn = row.PaidOn.String()
		}
		values = append(values, []any{
			row.EffectiveDate.String(),
			row.Source.OccurrenceID(),
			string(row.Type),
			row.Category,
			row.Description,
			row.Amount.Euros(),
			paid,
			paidOn,
			rowStatus(row),
		})
	}
	return values
}

func rowStatus(row core.Row) string {
	switch {
	case row.Overdue:
		return "scaduta"
	case row.DueToday:
		return "oggi"
	case row.IsPaid:
		return "pagata"
	default:
		return ""
	}
}
