package sheet

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleAPI implements API over the Sheets v4 service.  Construction is done
// once at startup; the underlying HTTP client is safe for concurrent use.
type GoogleAPI struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewGoogleAPI builds the Sheets client.  With an empty credentials path the
// client falls back to application-default-credentials discovery.
func NewGoogleAPI(ctx context.Context, spreadsheetID, credentialsFile string) (*GoogleAPI, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &GoogleAPI{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (g *GoogleAPI) Values(ctx context.Context, worksheet string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, worksheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, worksheet, err)
	}
	return toStrings(resp.Values), nil
}

func (g *GoogleAPI) ReadRow(ctx context.Context, worksheet string, row int) ([]string, error) {
	rng := fmt.Sprintf("%s!%d:%d", worksheet, row, row)
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s row %d: %v", ErrUnavailable, worksheet, row, err)
	}
	values := toStrings(resp.Values)
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

func (g *GoogleAPI) Append(ctx context.Context, worksheet string, row []interface{}) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := g.svc.Spreadsheets.Values.
		Append(g.spreadsheetID, worksheet+"!A:A", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: append %s: %v", ErrUnavailable, worksheet, err)
	}
	return nil
}

func (g *GoogleAPI) Update(ctx context.Context, worksheet string, row, col int, value interface{}) error {
	rng := fmt.Sprintf("%s!%s%d", worksheet, ColLetter(col), row)
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := g.svc.Spreadsheets.Values.
		Update(g.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: update %s!%s%d: %v", ErrUnavailable, worksheet, ColLetter(col), row, err)
	}
	return nil
}

func (g *GoogleAPI) BatchUpdate(ctx context.Context, worksheet string, updates []CellUpdate) error {
	data := make([]*sheets.ValueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, &sheets.ValueRange{
			Range:  fmt.Sprintf("%s!%s%d", worksheet, ColLetter(u.Col), u.Row),
			Values: [][]interface{}{{u.Value}},
		})
	}
	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}
	if _, err := g.svc.Spreadsheets.Values.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: batch update %s: %v", ErrUnavailable, worksheet, err)
	}
	return nil
}

func toStrings(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = fmt.Sprint(cell)
		}
	}
	return out
}
