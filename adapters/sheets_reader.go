package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"remo-humidifier/application"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"
)

const SheetsDefaultSheetName = "sensor"

// threshold cell positions, 0-indexed (row, column)
var (
	cellLow  = cellRef{row: 1, col: 3, name: "LOW"}
	cellHigh = cellRef{row: 2, col: 3, name: "HIGH"}
	cellMode = cellRef{row: 1, col: 4, name: "MODE", optional: true}
)

type cellRef struct {
	row, col int
	name     string
	// the API drops trailing blank cells, so a blank optional cell reads as ""
	optional bool
}

type SheetsReaderParams struct {
	SpreadsheetID string
	SheetName     string

	Service *sheets.Service

	Log zerolog.Logger
}

func (p *SheetsReaderParams) EnsureDefaults() {
	if p.SheetName == "" {
		p.SheetName = SheetsDefaultSheetName
	}
}

type SheetsReader struct {
	params SheetsReaderParams

	log zerolog.Logger
}

func NewSheetsReader(params SheetsReaderParams) (*SheetsReader, error) {
	if params.Service == nil {
		return nil, fmt.Errorf("sheets service is required")
	}
	params.EnsureDefaults()

	return &SheetsReader{params: params, log: params.Log}, nil
}

// Range is the A1 range read every cycle.
func (s *SheetsReader) Range() string {
	return s.params.SheetName + "!A:Z"
}

func (s *SheetsReader) ReadThresholds(ctx context.Context) (application.RawThresholds, error) {
	if isPlaceholder(s.params.SpreadsheetID, sheetsPlaceholderIDs) {
		return application.RawThresholds{}, fmt.Errorf("%w: spreadsheet id", application.ErrConfigMissing)
	}

	resp, err := s.params.Service.Spreadsheets.Values.Get(s.params.SpreadsheetID, s.Range()).Context(ctx).Do()
	if err != nil {
		s.logAPIError(err)
		return application.RawThresholds{}, fmt.Errorf("%w: get %s: %w", application.ErrReadFailure, s.Range(), err)
	}

	rows := resp.Values
	if len(rows) == 0 {
		return application.RawThresholds{}, fmt.Errorf("%w: %s is empty", application.ErrNoData, s.Range())
	}

	var raw application.RawThresholds
	for _, c := range []struct {
		ref cellRef
		dst *string
	}{
		{cellLow, &raw.Low},
		{cellHigh, &raw.High},
		{cellMode, &raw.Mode},
	} {
		v, ok := cellValue(rows, c.ref)
		if !ok && !c.ref.optional {
			return application.RawThresholds{}, fmt.Errorf("%w: %s cell (row %d, column %d) is missing",
				application.ErrNoData, c.ref.name, c.ref.row, c.ref.col)
		}
		*c.dst = v
	}

	return raw, nil
}

func (s *SheetsReader) logAPIError(err error) {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return
	}

	ev := s.log.Error().Int("status", gerr.Code).Str("body", gerr.Body)
	switch gerr.Code {
	case http.StatusForbidden:
		ev.Msg("permission denied: check the OAuth scope and that the spreadsheet is shared with this account")
	case http.StatusNotFound:
		ev.Msg("spreadsheet or sheet not found: check the spreadsheet id and sheet name")
	default:
		ev.Msg("spreadsheet request failed")
	}
}

func cellValue(rows [][]interface{}, ref cellRef) (string, bool) {
	if ref.row >= len(rows) || ref.col >= len(rows[ref.row]) {
		return "", false
	}
	v := rows[ref.row][ref.col]
	if v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}

var _ application.ThresholdReader = &SheetsReader{}
