// Package gsheets is the spreadsheet collaboration surface: it reads the
// Case Dispatcher workbook into tables and writes the reconciled tables
// back in a single atomic batch update.
package gsheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/util"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/sheet"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const maxTries = 4

type Config struct {
	// CredentialsFile is a service account key. Application default
	// credentials are used when empty.
	CredentialsFile string
	SpreadsheetID   string
	// ShareDomains get writer access to newly created relationship sheets.
	ShareDomains []string
	// NumericColumns are written as numbers instead of text.
	NumericColumns []string
}

type Client struct {
	sheets        *sheets.Service
	drive         *drive.Service
	spreadsheetID string
	shareDomains  []string
	numeric       map[string]struct{}
}

// NewClient authenticates against the Sheets and Drive APIs. Extra options
// are appended after the credentials.
func NewClient(ctx context.Context, cfg Config, extra ...option.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id is empty")
	}

	scopes := []string{sheets.SpreadsheetsScope, drive.DriveFileScope}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file %q: %w", cfg.CredentialsFile, err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("parse credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	} else {
		opts = append(opts, option.WithScopes(scopes...))
	}
	opts = append(opts, extra...)

	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	numeric := make(map[string]struct{}, len(cfg.NumericColumns))
	for _, col := range cfg.NumericColumns {
		numeric[col] = struct{}{}
	}
	return &Client{
		sheets:        sheetsSvc,
		drive:         driveSvc,
		spreadsheetID: cfg.SpreadsheetID,
		shareDomains:  cfg.ShareDomains,
		numeric:       numeric,
	}, nil
}

// retryable marks client errors other than rate limiting as permanent.
func retryable(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code != http.StatusTooManyRequests && gerr.Code < 500 {
		return util.Permanent(err)
	}
	return err
}

func call[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	return util.RetryWithContext(ctx, maxTries, util.DefaultBackoff, func(ctx context.Context) (T, error) {
		out, err := fn(ctx)
		if err != nil {
			return out, retryable(err)
		}
		return out, nil
	})
}

func (c *Client) properties(ctx context.Context, spreadsheetID string) ([]*sheets.SheetProperties, error) {
	ss, err := call(ctx, func(ctx context.Context) (*sheets.Spreadsheet, error) {
		return c.sheets.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet %s: %w", spreadsheetID, err)
	}
	out := make([]*sheets.SheetProperties, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			out = append(out, s.Properties)
		}
	}
	return out, nil
}

// ReadAll returns every sheet of the workbook keyed by title.
func (c *Client) ReadAll(ctx context.Context) (map[string]*sheet.Table, error) {
	props, err := c.properties(ctx, c.spreadsheetID)
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(props))
	ranges := make([]string, len(props))
	for i, p := range props {
		titles[i] = p.Title
		ranges[i] = quoteTitle(p.Title)
	}
	if len(ranges) == 0 {
		return map[string]*sheet.Table{}, nil
	}

	resp, err := call(ctx, func(ctx context.Context) (*sheets.BatchGetValuesResponse, error) {
		return c.sheets.Spreadsheets.Values.BatchGet(c.spreadsheetID).
			Ranges(ranges...).
			MajorDimension("ROWS").
			Context(ctx).
			Do()
	})
	if err != nil {
		return nil, fmt.Errorf("read sheets: %w", err)
	}

	out := make(map[string]*sheet.Table, len(titles))
	for i, vr := range resp.ValueRanges {
		if i >= len(titles) {
			break
		}
		out[titles[i]] = sheet.FromValues(stringGrid(vr.Values))
	}
	logger.Debug("[GSheets][ReadAll] Read workbook", "sheets", len(out))
	return out, nil
}

// ReadFirstSheet reads the first sheet of another spreadsheet, e.g. a
// suspect's relationship sheet.
func (c *Client) ReadFirstSheet(ctx context.Context, spreadsheetID string) (*sheet.Table, error) {
	props, err := c.properties(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return sheet.New(), nil
	}
	vr, err := call(ctx, func(ctx context.Context) (*sheets.ValueRange, error) {
		return c.sheets.Spreadsheets.Values.Get(spreadsheetID, quoteTitle(props[0].Title)).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", spreadsheetID, err)
	}
	return sheet.FromValues(stringGrid(vr.Values)), nil
}

// WriteAll replaces the content of the given sheets in one batch update.
// Either every sheet is replaced or, on error, none is.
func (c *Client) WriteAll(ctx context.Context, tables []sheet.Named) error {
	props, err := c.properties(ctx, c.spreadsheetID)
	if err != nil {
		return err
	}
	reqs := writeRequests(props, tables, c.numeric)
	if len(reqs) == 0 {
		return nil
	}
	_, err = call(ctx, func(ctx context.Context) (*sheets.BatchUpdateSpreadsheetResponse, error) {
		return c.sheets.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: reqs,
		}).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("write sheets: %w", err)
	}
	logger.Info("[GSheets][WriteAll] Wrote sheets", "sheets", len(tables), "requests", len(reqs))
	return nil
}

// CreateRelationshipSheet creates a new spreadsheet holding only header,
// shares it with the configured domains and returns its URL.
func (c *Client) CreateRelationshipSheet(ctx context.Context, title string, header []string) (string, error) {
	created, err := call(ctx, func(ctx context.Context) (*sheets.Spreadsheet, error) {
		return c.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{Title: title},
			Sheets: []*sheets.Sheet{{
				Properties: &sheets.SheetProperties{Title: "Relationships"},
				Data: []*sheets.GridData{{
					RowData: []*sheets.RowData{rowData(header, header, nil)},
				}},
			}},
		}).Context(ctx).Do()
	})
	if err != nil {
		return "", fmt.Errorf("create spreadsheet %q: %w", title, err)
	}

	for _, domain := range c.shareDomains {
		_, err := call(ctx, func(ctx context.Context) (*drive.Permission, error) {
			return c.drive.Permissions.Create(created.SpreadsheetId, &drive.Permission{
				Type:               "domain",
				Role:               "writer",
				Domain:             domain,
				AllowFileDiscovery: true,
			}).Fields("id").Context(ctx).Do()
		})
		if err != nil {
			return "", fmt.Errorf("share %s with %s: %w", created.SpreadsheetId, domain, err)
		}
	}

	url := SpreadsheetURL(created.SpreadsheetId)
	logger.Info("[GSheets][CreateRelationshipSheet] Created relationship sheet", "title", title, "url", url)
	return url, nil
}

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// SpreadsheetIDFromURL extracts the id from a spreadsheet URL. A bare id is
// returned unchanged.
func SpreadsheetIDFromURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if m := spreadsheetIDPattern.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if strings.ContainsAny(raw, "/: ") {
		return "", false
	}
	return raw, true
}

func SpreadsheetURL(id string) string {
	return "https://docs.google.com/spreadsheets/d/" + id
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func stringGrid(values [][]any) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			if v == nil {
				continue
			}
			out[i][j] = fmt.Sprint(v)
		}
	}
	return out
}
