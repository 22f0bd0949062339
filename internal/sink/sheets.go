package sink

import (
	"context"
	"net/http"

	"github.com/juju/errors"
	"github.com/temoto/pinpad/helpers"
	sink_config "github.com/temoto/pinpad/internal/sink/config"
	"github.com/temoto/pinpad/log2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	SheetsTimeFormat   = "2006-01-02 15:04:05"
	sheetsDefaultRange = "Sheet1!A:B"
)

// Sheets appends row [identifier, local time] to Google spreadsheet.
type Sheets struct {
	log           *log2.Log
	clock         helpers.Clock
	srv           *sheets.Service
	spreadsheetId string
	rangeA1       string
}

func NewSheets(ctx context.Context, log *log2.Log, config *sink_config.Config, clock helpers.Clock) (*Sheets, error) {
	c := config.Sheets
	if c.CredentialsFile == "" {
		return nil, errors.NotValidf("sink sheets credentials_file empty")
	}
	opts := []option.ClientOption{
		option.WithCredentialsFile(c.CredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	}
	return newSheets(ctx, log, config, clock, opts...)
}

// NewSheetsHTTP uses given client as is, without credentials.
func NewSheetsHTTP(ctx context.Context, log *log2.Log, config *sink_config.Config, clock helpers.Clock, client *http.Client) (*Sheets, error) {
	return newSheets(ctx, log, config, clock, option.WithHTTPClient(client))
}

func newSheets(ctx context.Context, log *log2.Log, config *sink_config.Config, clock helpers.Clock, opts ...option.ClientOption) (*Sheets, error) {
	c := config.Sheets
	if c.SpreadsheetId == "" {
		return nil, errors.NotValidf("sink sheets spreadsheet_id empty")
	}
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Annotate(err, "sink sheets")
	}
	rangeA1 := c.Range
	if rangeA1 == "" {
		rangeA1 = sheetsDefaultRange
	}
	return &Sheets{
		log:           log,
		clock:         clock,
		srv:           srv,
		spreadsheetId: c.SpreadsheetId,
		rangeA1:       rangeA1,
	}, nil
}

func (self *Sheets) Append(ctx context.Context, identifier string) error {
	ts := self.clock.Now().Local().Format(SheetsTimeFormat)
	vr := &sheets.ValueRange{
		Values: [][]interface{}{{identifier, ts}},
	}
	resp, err := self.srv.Spreadsheets.Values.Append(self.spreadsheetId, self.rangeA1, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return errors.Annotate(err, "sink sheets append")
	}
	if resp.Updates != nil {
		self.log.Debugf("sink sheets appended range=%s", resp.Updates.UpdatedRange)
	}
	return nil
}

func (self *Sheets) Close() error { return nil }
