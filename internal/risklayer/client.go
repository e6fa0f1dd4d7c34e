// Package risklayer reads the current reporting period from the public
// case-count spreadsheet through the Google Sheets v4 values API.
//
// One fetch issues parallel range reads (names, new cases, contributor
// markers, links and optionally the area column). Any HTTP, decoding or
// shape error fails the whole fetch so callers never persist half a period.
package risklayer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// ErrFetch wraps every failure of a fetch (network, status, JSON, shape).
var ErrFetch = errors.New("risklayer fetch failed")

// Defaults for the public sheet.
const (
	DefaultBaseURL       = "https://sheets.googleapis.com/"
	DefaultSpreadsheetID = "1wg-s4_Lz2Stil6spQEYFdZaBEp8nWW26gVyfHqvcl8s"
	DefaultSheet         = "Haupt"
	DefaultFirstRow      = 6
	DefaultRows          = 400
	DefaultTimeout       = 30 * time.Second
)

// Column letters of the sheet.
const (
	ColumnNames   = "A"
	ColumnLinks   = "R"
	ColumnMarkers = "S"
	ColumnCases   = "T"
)

// Config configures a Client. Zero values fall back to the defaults above.
type Config struct {
	BaseURL       string
	SpreadsheetID string
	APIKey        string
	Sheet         string
	FirstRow      int
	Rows          int
	AreaColumn    string // optional explicit area column, e.g. "B"
	Timeout       time.Duration

	// Options are appended to the Sheets service options.
	Options []option.ClientOption
}

// Client fetches raw rows from the spreadsheet. It is safe for concurrent use.
type Client struct {
	cfg    Config
	values *sheets.SpreadsheetsValuesService
}

// NewClient applies defaults and builds the Sheets service.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
	if cfg.SpreadsheetID == "" {
		cfg.SpreadsheetID = DefaultSpreadsheetID
	}
	if cfg.Sheet == "" {
		cfg.Sheet = DefaultSheet
	}
	if cfg.FirstRow <= 0 {
		cfg.FirstRow = DefaultFirstRow
	}
	if cfg.Rows <= 0 {
		cfg.Rows = DefaultRows
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	opts := append([]option.ClientOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithEndpoint(cfg.BaseURL),
	}, cfg.Options...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{cfg: cfg, values: svc.Spreadsheets.Values}, nil
}

// Rows is the fixed row window of the sheet.
func (c *Client) Rows() int { return c.cfg.Rows }

// FetchCurrentPeriod reads all columns in parallel and assembles them.
func (c *Client) FetchCurrentPeriod(ctx context.Context) (RawRows, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var names, cases, markers, links, areas [][]string
	g, gctx := errgroup.WithContext(ctx)
	read := func(col string, dst *[][]string) {
		g.Go(func() error {
			v, err := c.readColumn(gctx, col)
			if err != nil {
				return err
			}
			*dst = v
			return nil
		})
	}
	read(ColumnNames, &names)
	read(ColumnCases, &cases)
	read(ColumnMarkers, &markers)
	read(ColumnLinks, &links)
	if c.cfg.AreaColumn != "" {
		read(c.cfg.AreaColumn, &areas)
	}
	if err := g.Wait(); err != nil {
		return RawRows{}, err
	}
	if c.cfg.AreaColumn != "" && areas == nil {
		areas = [][]string{}
	}
	return Assemble(names, cases, markers, links, areas, c.cfg.Rows)
}

// rangeFor builds "Sheet!A6:A405" for a column.
func (c *Client) rangeFor(col string) string {
	last := c.cfg.FirstRow + c.cfg.Rows - 1
	return fmt.Sprintf("%s!%s%d:%s%d", c.cfg.Sheet, col, c.cfg.FirstRow, col, last)
}

func (c *Client) readColumn(ctx context.Context, col string) ([][]string, error) {
	rng := c.rangeFor(col)
	vr, err := c.values.Get(c.cfg.SpreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, fmt.Errorf("%w: %s returned status %d: %s", ErrFetch, rng, gerr.Code, truncate(gerr.Message, 200))
		}
		return nil, fmt.Errorf("%w: get %s: %v", ErrFetch, rng, err)
	}
	out := make([][]string, len(vr.Values))
	for i, row := range vr.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cellString(cell)
		}
		out[i] = cells
	}
	return out, nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
