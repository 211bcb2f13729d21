// Package sheet talks to the reservation workbook.  A small API interface
// hides the Google Sheets client so the gateway and everything above it can
// be exercised against an in-memory worksheet in tests.
package sheet

import (
	"context"
	"errors"
)

// ErrUnavailable wraps every transport failure from the spreadsheet service.
// Callers decide whether to surface it to the user (usually as a 503).
var ErrUnavailable = errors.New("sheet unavailable")

// CellUpdate addresses a single cell write inside a batch.  Row and Col are
// 1-based worksheet coordinates.
type CellUpdate struct {
	Row   int
	Col   int
	Value interface{}
}

// API is the minimal spreadsheet surface the gateway needs.  All writes use
// user-entered semantics so formula strings are evaluated by the workbook.
type API interface {
	// Values reads the full cell matrix of the named worksheet.
	Values(ctx context.Context, worksheet string) ([][]string, error)
	// ReadRow reads a single 1-based row.
	ReadRow(ctx context.Context, worksheet string, row int) ([]string, error)
	// Append appends one row after the last non-empty row.
	Append(ctx context.Context, worksheet string, row []interface{}) error
	// Update writes a single cell.
	Update(ctx context.Context, worksheet string, row, col int, value interface{}) error
	// BatchUpdate applies a set of cell writes in one request.
	BatchUpdate(ctx context.Context, worksheet string, updates []CellUpdate) error
}

// ColLetter converts a 1-based column index to its A1 letter form.
func ColLetter(col int) string {
	s := ""
	for col > 0 {
		col--
		s = string(rune('A'+col%26)) + s
		col /= 26
	}
	return s
}
