package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"kakeibo/internal/core"
	ports "kakeibo/internal/export/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors ledger rows into one spreadsheet tab per year. Column A
// holds the transaction ID so rows can be found again on update and delete.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

var _ ports.Mirror = (*Client)(nil)

// New creates a Sheets client with service account credentials. Credentials
// come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetBase string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if sheetBase = strings.TrimSpace(sheetBase); sheetBase == "" {
		sheetBase = "Ledger"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetBase,
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

func (c *Client) sheetFor(year int) string {
	return fmt.Sprintf("%d %s", year, c.sheetBase)
}

// Upsert implements ports.Mirror.
func (c *Client) Upsert(ctx context.Context, tx core.Transaction, categoryName string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	sheet := c.sheetFor(tx.Date.Year())
	row, found, err := c.findRow(ctx, sheet, tx.ID)
	if err != nil {
		return err
	}
	if !found {
		next, err := c.nextRow(ctx, sheet)
		if err != nil {
			return err
		}
		row = next
	}

	units := float64(tx.Amount.Cents) / 100.0
	rng := fmt.Sprintf("%s!A%d:F%d", sheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{
		tx.ID, tx.Date.String(), string(tx.Type), tx.Description, units, categoryName,
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update row in sheet %s: %w", sheet, err)
	}
	return nil
}

// Remove implements ports.Mirror. The year of a deleted transaction is no
// longer known, so every year tab is searched.
func (c *Client) Remove(ctx context.Context, txID string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	sheetsList, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("list sheets: %w", err)
	}

	for _, sh := range sheetsList.Sheets {
		title := sh.Properties.Title
		if !strings.HasSuffix(title, c.sheetBase) {
			continue
		}
		row, found, err := c.findRow(ctx, title, txID)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		rng := fmt.Sprintf("%s!A%d:F%d", title, row, row)
		if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do(); err != nil {
			return fmt.Errorf("clear row in sheet %s: %w", title, err)
		}
		return nil
	}
	return nil
}

// findRow scans column A of sheet for txID and returns its 1-based row.
func (c *Client) findRow(ctx context.Context, sheet, txID string) (int, bool, error) {
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		// A missing year tab means the row does not exist yet.
		if strings.Contains(err.Error(), "Unable to parse range") {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == txID {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

func (c *Client) nextRow(ctx context.Context, sheet string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		if strings.Contains(err.Error(), "Unable to parse range") {
			if err := c.addSheet(ctx, sheet); err != nil {
				return 0, err
			}
			return 1, nil
		}
		return 0, fmt.Errorf("get sheet dimensions for %s: %w", sheet, err)
	}
	return len(resp.Values) + 1, nil
}

func (c *Client) addSheet(ctx context.Context, title string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	return nil
}
