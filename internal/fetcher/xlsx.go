package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/caseworks/activity-cli/internal/model"
)

// Source spreadsheet header names. The input schema is fixed: these six
// columns must all exist (they may be empty for a given row).
const (
	ColPerson       = "Destinatario"
	ColOperator     = "Operatore"
	ColActivity     = "Attività"
	ColEvent        = "Evento"
	ColEndDate      = "Data Fine"
	ColProposedDate = "Data Proposta"
)

var requiredColumns = []string{
	ColPerson, ColOperator, ColActivity, ColEvent, ColEndDate, ColProposedDate,
}

// Options configures the XLSX reader.
type Options struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadRecords reads the source workbook and binds each data row to a
// Record. The first row is the header; a missing required column is a
// structural error and aborts the read. Rows with all six cells empty are
// skipped. Record.Row is the 1-based spreadsheet row (header is row 1).
func ReadRecords(path string, opts Options) ([]model.Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("fetcher: sheet %q is empty", sheet.Name)
	}

	cols, err := bindHeader(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var records []model.Record
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		rec := model.Record{
			Row:          i + 2, // 1-based, after the header row
			Person:       cell(cells, cols[ColPerson]),
			Operator:     cell(cells, cols[ColOperator]),
			Activity:     cell(cells, cols[ColActivity]),
			Event:        cell(cells, cols[ColEvent]),
			EndDate:      cell(cells, cols[ColEndDate]),
			ProposedDate: cell(cells, cols[ColProposedDate]),
		}
		if isEmpty(rec) {
			continue
		}
		records = append(records, rec)
	}

	zap.L().Info("fetcher: loaded records",
		zap.String("path", path),
		zap.String("sheet", sheet.Name),
		zap.Int("records", len(records)),
	)

	return records, nil
}

// bindHeader maps the required column names to their positions. Header
// cells are trimmed before matching.
func bindHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}

	cols := make(map[string]int, len(requiredColumns))
	var missing []string
	for _, name := range requiredColumns {
		i, ok := index[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[name] = i
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("fetcher: missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func getSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("fetcher: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("fetcher: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, c := range row.Cells {
		cells[j] = c.String()
	}
	return cells
}

func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func isEmpty(rec model.Record) bool {
	return rec.Person == "" && rec.Operator == "" && rec.Activity == "" &&
		rec.Event == "" && rec.EndDate == "" && rec.ProposedDate == ""
}
