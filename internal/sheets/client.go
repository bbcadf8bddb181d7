// Package sheets wraps the Google Sheets API for appending the processing log.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/teemow/invoiceflow/internal/google"
)

const (
	headerRange = "A1:G1"
	appendRange = "A:G"
)

// HeaderColumns is the fixed column layout of the processing log. The header
// row is written once if absent and never overwritten.
var HeaderColumns = []string{
	"Timestamp",
	"Invoice/Bill Date",
	"Invoice/Bill Number",
	"Amount",
	"Vendor/Company Name",
	"Drive File URL",
	"File Type",
}

// Client wraps the Google Sheets API service for a single spreadsheet
type Client struct {
	service       *sheets.Service
	spreadsheetID string
}

// HasToken checks if a valid OAuth token exists
func HasToken() bool {
	return google.HasToken()
}

// NewClient creates a new Google Sheets client with OAuth2 authentication.
// Returns an error if no valid token exists - use HasToken() to check first
func NewClient(ctx context.Context, spreadsheetID string) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheetID is required")
	}

	client, err := google.GetHTTPClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found: %w", err)
	}

	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	return &Client{
		service:       sheetsService,
		spreadsheetID: spreadsheetID,
	}, nil
}

// EnsureHeader writes the fixed header row if the first row is empty.
// An existing header is left untouched.
func (c *Client) EnsureHeader(ctx context.Context) error {
	result, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read header row: %w", err)
	}

	if len(result.Values) > 0 {
		return nil
	}

	header := make([]interface{}, len(HeaderColumns))
	for i, col := range HeaderColumns {
		header[i] = col
	}

	_, err = c.service.Spreadsheets.Values.Update(c.spreadsheetID, headerRange, &sheets.ValueRange{
		Values: [][]interface{}{header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	return nil
}

// AppendRow appends a single row of raw values to the log.
func (c *Client) AppendRow(ctx context.Context, values []interface{}) error {
	if len(values) != len(HeaderColumns) {
		return fmt.Errorf("expected %d columns, got %d", len(HeaderColumns), len(values))
	}

	_, err := c.service.Spreadsheets.Values.Append(c.spreadsheetID, appendRange, &sheets.ValueRange{
		Values: [][]interface{}{values},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append log row: %w", err)
	}

	return nil
}
