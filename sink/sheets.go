package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/use-agent/profilescout/models"
)

const (
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	newWorksheetRows    = 1000
	newWorksheetCols    = 20
)

// sheetsClient is the slice of the Sheets and Drive APIs the sink needs.
type sheetsClient interface {
	// FindSpreadsheet returns the id of the spreadsheet titled name, or ""
	// when there is none.
	FindSpreadsheet(ctx context.Context, name string) (string, error)
	CreateSpreadsheet(ctx context.Context, name string) (string, error)
	// Worksheet returns the sheet id of title, creating it when absent.
	Worksheet(ctx context.Context, spreadsheetID, title string) (int64, error)
	// Replace clears title and writes rows from A1, growing the grid to fit.
	Replace(ctx context.Context, spreadsheetID, title string, sheetID int64, rows [][]string) error
	FormatHeader(ctx context.Context, spreadsheetID string, sheetID int64, cols int) error
}

// SheetsSink uploads the record table to a Google spreadsheet, creating the
// spreadsheet and worksheet on first use.
type SheetsSink struct {
	Spreadsheet string
	Worksheet   string

	client sheetsClient
}

// NewSheetsSink authenticates with the service-account file at credentials.
// A missing file fails with CREDENTIALS_MISSING before any network call.
func NewSheetsSink(ctx context.Context, credentials, spreadsheet, worksheet string) (*SheetsSink, error) {
	if _, err := os.Stat(credentials); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.NewScrapeError(models.ErrCodeCredentialsMissing,
				fmt.Sprintf("credentials file %s not found", credentials), err)
		}
		return nil, models.NewScrapeError(models.ErrCodeCredentialsMissing, "credentials file unreadable", err)
	}

	opts := []option.ClientOption{
		option.WithCredentialsFile(credentials),
		option.WithScopes(sheets.SpreadsheetsScope, drive.DriveScope),
	}
	client, err := newGoogleClient(ctx, opts...)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSink, "google api client", err)
	}
	return newSheetsSink(client, spreadsheet, worksheet), nil
}

func newSheetsSink(client sheetsClient, spreadsheet, worksheet string) *SheetsSink {
	if worksheet == "" {
		worksheet = "Startups"
	}
	return &SheetsSink{Spreadsheet: spreadsheet, Worksheet: worksheet, client: client}
}

func (s *SheetsSink) Name() string { return "sheets" }

// Write replaces the worksheet contents with the record table.
func (s *SheetsSink) Write(ctx context.Context, records []*models.Record) error {
	if len(records) == 0 {
		slog.Info("no data to upload", "spreadsheet", s.Spreadsheet)
		return nil
	}

	id, err := s.client.FindSpreadsheet(ctx, s.Spreadsheet)
	if err != nil {
		return fmt.Errorf("sheets: find spreadsheet %q: %w", s.Spreadsheet, err)
	}
	if id == "" {
		if id, err = s.client.CreateSpreadsheet(ctx, s.Spreadsheet); err != nil {
			return fmt.Errorf("sheets: create spreadsheet %q: %w", s.Spreadsheet, err)
		}
		slog.Info("created spreadsheet", "spreadsheet", s.Spreadsheet)
	}

	sheetID, err := s.client.Worksheet(ctx, id, s.Worksheet)
	if err != nil {
		return fmt.Errorf("sheets: worksheet %q: %w", s.Worksheet, err)
	}

	header, rows := Table(records)
	values := append([][]string{header}, rows...)
	if err := s.client.Replace(ctx, id, s.Worksheet, sheetID, values); err != nil {
		return fmt.Errorf("sheets: upload: %w", err)
	}
	if err := s.client.FormatHeader(ctx, id, sheetID, len(header)); err != nil {
		return fmt.Errorf("sheets: format header: %w", err)
	}

	slog.Info("uploaded records",
		"records", len(records),
		"spreadsheet", s.Spreadsheet,
		"worksheet", s.Worksheet,
		"url", SpreadsheetURL(id),
	)
	return nil
}

// SpreadsheetURL returns the browser URL of a spreadsheet.
func SpreadsheetURL(id string) string {
	return "https://docs.google.com/spreadsheets/d/" + id
}

// googleClient implements sheetsClient over the generated API services.
type googleClient struct {
	sheets *sheets.Service
	drive  *drive.Service
}

func newGoogleClient(ctx context.Context, opts ...option.ClientOption) (*googleClient, error) {
	ss, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	ds, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &googleClient{sheets: ss, drive: ds}, nil
}

func (c *googleClient) FindSpreadsheet(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(name, "'", `\'`), spreadsheetMimeType)
	list, err := c.drive.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func (c *googleClient) CreateSpreadsheet(ctx context.Context, name string) (string, error) {
	ss, err := c.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: name},
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return ss.SpreadsheetId, nil
}

func (c *googleClient) Worksheet(ctx context.Context, spreadsheetID, title string) (int64, error) {
	ss, err := c.sheets.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}

	resp, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						RowCount:    newWorksheetRows,
						ColumnCount: newWorksheetCols,
					},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, errors.New("add sheet: empty reply")
	}
	slog.Info("created worksheet", "worksheet", title)
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

func (c *googleClient) Replace(ctx context.Context, spreadsheetID, title string, sheetID int64, rows [][]string) error {
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	_, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: sheetID,
					GridProperties: &sheets.GridProperties{
						RowCount:    int64(max(len(rows), newWorksheetRows)),
						ColumnCount: int64(max(cols, newWorksheetCols)),
					},
					ForceSendFields: []string{"SheetId"},
				},
				Fields: "gridProperties(rowCount,columnCount)",
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("resize: %w", err)
	}

	rng := quoteSheet(title)
	if _, err := c.sheets.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = make([]interface{}, len(r))
		for j, v := range r {
			values[i][j] = v
		}
	}
	_, err = c.sheets.Spreadsheets.Values.Update(spreadsheetID, rng+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}

func (c *googleClient) FormatHeader(ctx context.Context, spreadsheetID string, sheetID int64, cols int) error {
	_, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(max(cols, 1)),
					ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		}},
	}).Context(ctx).Do()
	return err
}

// quoteSheet wraps a worksheet title for use in A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
