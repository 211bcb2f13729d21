// Package sheettest provides an in-memory sheet.API used by tests across the
// gateway, repository and handler packages.
package sheettest

import (
	"context"
	"fmt"
	"sync"

	"github.com/fengtai-hotel/shuttle-reservation/internal/sheet"
)

// Fake is an in-memory workbook.  Worksheets are matrices of strings; writes
// mirror the user-entered semantics of the real API closely enough for the
// layers above.  Setting Err makes every call fail with it, which lets tests
// drive the sheet_unavailable paths.
type Fake struct {
	mu     sync.Mutex
	sheets map[string][][]string

	Err     error
	Reads   int // full-matrix reads, for cache assertions
	RowRead int // single-row reads
}

func New() *Fake {
	return &Fake{sheets: map[string][][]string{}}
}

// Load replaces a worksheet's contents.
func (f *Fake) Load(worksheet string, rows [][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([][]string, len(rows))
	for i, r := range rows {
		cp[i] = append([]string(nil), r...)
	}
	f.sheets[worksheet] = cp
}

// Rows returns a copy of the worksheet's current contents.
func (f *Fake) Rows(worksheet string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.sheets[worksheet]
	cp := make([][]string, len(rows))
	for i, r := range rows {
		cp[i] = append([]string(nil), r...)
	}
	return cp
}

// Cell returns one cell by 1-based coordinates, or "" when out of range.
func (f *Fake) Cell(worksheet string, row, col int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.sheets[worksheet]
	if row < 1 || row > len(rows) || col < 1 || col > len(rows[row-1]) {
		return ""
	}
	return rows[row-1][col-1]
}

// SetCell writes one cell directly, growing the matrix as needed.  Tests use
// it to simulate workbook formula recomputation and human desk edits.
func (f *Fake) SetCell(worksheet string, row, col int, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set(worksheet, row, col, value)
}

func (f *Fake) set(worksheet string, row, col int, value string) {
	rows := f.sheets[worksheet]
	for len(rows) < row {
		rows = append(rows, []string{})
	}
	for len(rows[row-1]) < col {
		rows[row-1] = append(rows[row-1], "")
	}
	rows[row-1][col-1] = value
	f.sheets[worksheet] = rows
}

func (f *Fake) Values(ctx context.Context, worksheet string) ([][]string, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	f.Reads++
	f.mu.Unlock()
	return f.Rows(worksheet), nil
}

func (f *Fake) ReadRow(ctx context.Context, worksheet string, row int) ([]string, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	f.RowRead++
	rows := f.sheets[worksheet]
	f.mu.Unlock()
	if row < 1 || row > len(rows) {
		return nil, nil
	}
	return append([]string(nil), rows[row-1]...), nil
}

func (f *Fake) Append(ctx context.Context, worksheet string, row []interface{}) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cells := make([]string, len(row))
	for i, v := range row {
		cells[i] = fmt.Sprint(v)
	}
	f.sheets[worksheet] = append(f.sheets[worksheet], cells)
	return nil
}

func (f *Fake) Update(ctx context.Context, worksheet string, row, col int, value interface{}) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set(worksheet, row, col, fmt.Sprint(value))
	return nil
}

func (f *Fake) BatchUpdate(ctx context.Context, worksheet string, updates []sheet.CellUpdate) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range updates {
		f.set(worksheet, u.Row, u.Col, fmt.Sprint(u.Value))
	}
	return nil
}
