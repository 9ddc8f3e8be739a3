// Package export renders pipeline output to a styled multi-sheet workbook.
// All formatting and rounding lives here; the aggregation layer hands over
// exact values.
package export

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/caseworks/activity-cli/internal/model"
	"github.com/caseworks/activity-cli/internal/pipeline"
)

const (
	sheetSummary       = "Summary"
	sheetCharts        = "Charts"
	sheetByPerson      = "By Person"
	sheetByPersonMonth = "By Person-Month"
	sheetTotalsType    = "Totals by Type"
	sheetTotalsMonth   = "Totals by Type-Month"
	sheetByOperator    = "By Operator"
	sheetByOpMonth     = "By Operator-Month"
	sheetRevenueMonth  = "Revenue by Month"
	sheetRejected      = "Rejected Rows"
)

const (
	headerColor    = "4472C4"
	currencyFormat = `#,##0.00 "€"`
	dateFormat     = "02/01/2006"
)

// Workbook renders one run's aggregates, summary and audit trail.
type Workbook struct {
	agg      *pipeline.Aggregator
	summary  model.RunSummary
	rejected []model.RejectedRecord
	topN     int
}

// New builds a Workbook for a completed run. topN controls the size of the
// top-persons block on the summary sheet.
func New(agg *pipeline.Aggregator, summary model.RunSummary, rejected []model.RejectedRecord, topN int) *Workbook {
	if topN <= 0 {
		topN = 10
	}
	return &Workbook{agg: agg, summary: summary, rejected: rejected, topN: topN}
}

// Write renders and saves the workbook to path.
func (w *Workbook) Write(path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := w.writeSummary(f, st); err != nil {
		return err
	}
	if err := w.writeCharts(f, st); err != nil {
		return err
	}

	tables := []struct {
		sheet string
		table *model.Table
	}{
		{sheetByPerson, w.agg.CountByPerson()},
		{sheetByPersonMonth, w.agg.CountByPersonMonth()},
		{sheetTotalsType, w.agg.TotalsByType()},
		{sheetTotalsMonth, w.agg.TotalsByTypeMonth()},
		{sheetByOperator, w.agg.CountByOperator()},
		{sheetByOpMonth, w.agg.CountByOperatorMonth()},
		{sheetRevenueMonth, w.agg.RevenueByMonth()},
	}
	for _, s := range tables {
		if _, err := f.NewSheet(s.sheet); err != nil {
			return eris.Wrapf(err, "export: create sheet %q", s.sheet)
		}
		if _, err := writeTable(f, st, s.sheet, s.table, 1); err != nil {
			return err
		}
		_ = f.SetColWidth(s.sheet, "A", "A", 36)
		_ = f.SetColWidth(s.sheet, "B", "B", 24)
	}

	if err := w.writeRejected(f, st); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}

	zap.L().Info("export: workbook written",
		zap.String("path", path),
		zap.String("run_id", w.summary.ID),
		zap.Int("rejected", len(w.rejected)),
	)
	return nil
}

type styles struct {
	title    int
	header   int
	cell     int
	number   int
	currency int
	bold     int
}

func newStyles(f *excelize.File) (styles, error) {
	thin := []excelize.Border{
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
	}
	var st styles
	var err error

	st.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return st, eris.Wrap(err, "export: title style")
	}
	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thin,
	})
	if err != nil {
		return st, eris.Wrap(err, "export: header style")
	}
	st.cell, err = f.NewStyle(&excelize.Style{Border: thin})
	if err != nil {
		return st, eris.Wrap(err, "export: cell style")
	}
	st.number, err = f.NewStyle(&excelize.Style{
		Border:    thin,
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return st, eris.Wrap(err, "export: number style")
	}
	numFmt := currencyFormat
	st.currency, err = f.NewStyle(&excelize.Style{Border: thin, CustomNumFmt: &numFmt})
	if err != nil {
		return st, eris.Wrap(err, "export: currency style")
	}
	st.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Border: thin})
	if err != nil {
		return st, eris.Wrap(err, "export: bold style")
	}
	return st, nil
}

// writeTable writes a table starting at startRow and returns the first free
// row after it. Decimal cells are written as numbers with the currency
// format; rows labelled TOTAL are bold.
func writeTable(f *excelize.File, st styles, sheet string, t *model.Table, startRow int) (int, error) {
	for c, name := range t.Columns {
		ref := cellRef(c+1, startRow)
		if err := f.SetCellValue(sheet, ref, name); err != nil {
			return 0, eris.Wrapf(err, "export: write header %s!%s", sheet, ref)
		}
		_ = f.SetCellStyle(sheet, ref, ref, st.header)
	}

	for r, row := range t.Rows {
		isTotal := len(row) > 0 && row[0] == pipeline.TotalLabel
		for c, v := range row {
			ref := cellRef(c+1, startRow+1+r)
			style := st.cell
			switch val := v.(type) {
			case nil:
				// blank, border only
			case decimal.Decimal:
				// Rounding is a presentation concern; the float conversion
				// here only affects display width, not the stored tables.
				if err := f.SetCellValue(sheet, ref, val.InexactFloat64()); err != nil {
					return 0, eris.Wrapf(err, "export: write cell %s!%s", sheet, ref)
				}
				style = st.currency
			case int:
				if err := f.SetCellValue(sheet, ref, val); err != nil {
					return 0, eris.Wrapf(err, "export: write cell %s!%s", sheet, ref)
				}
				style = st.number
			default:
				if err := f.SetCellValue(sheet, ref, val); err != nil {
					return 0, eris.Wrapf(err, "export: write cell %s!%s", sheet, ref)
				}
			}
			if isTotal && style != st.currency {
				style = st.bold
			}
			_ = f.SetCellStyle(sheet, ref, ref, style)
		}
	}

	return startRow + 1 + len(t.Rows), nil
}

func (w *Workbook) writeSummary(f *excelize.File, st styles) error {
	// The default sheet becomes the summary.
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return eris.Wrap(err, "export: rename summary sheet")
	}

	row := 1
	_ = f.SetCellValue(sheetSummary, cellRef(1, row), "ACTIVITY ANALYSIS SUMMARY")
	_ = f.SetCellStyle(sheetSummary, cellRef(1, row), cellRef(1, row), st.title)
	row += 2

	stats := []struct {
		label string
		value any
	}{
		{"Run ID:", w.summary.ID},
		{"Generated at:", w.summary.GeneratedAt.Format("02/01/2006 15:04")},
		{"Rows analyzed:", w.summary.Accepted},
		{"Unique persons:", w.summary.UniquePersons},
		{"Unique operators:", w.summary.UniqueOperators},
		{"Total revenue:", w.summary.TotalRevenue},
		{"Rejected rows:", w.summary.Rejected},
	}
	if !w.summary.PeriodStart.IsZero() {
		stats = append(stats,
			struct {
				label string
				value any
			}{"Period from:", w.summary.PeriodStart.Format(dateFormat)},
			struct {
				label string
				value any
			}{"Period to:", w.summary.PeriodEnd.Format(dateFormat)},
		)
	}
	for _, s := range stats {
		_ = f.SetCellValue(sheetSummary, cellRef(1, row), s.label)
		ref := cellRef(2, row)
		if d, ok := s.value.(decimal.Decimal); ok {
			_ = f.SetCellValue(sheetSummary, ref, d.InexactFloat64())
			_ = f.SetCellStyle(sheetSummary, ref, ref, st.currency)
		} else {
			_ = f.SetCellValue(sheetSummary, ref, s.value)
		}
		row++
	}
	row++

	blocks := []struct {
		heading string
		table   *model.Table
	}{
		{"TOTALS BY TYPE", w.agg.TotalsByType()},
		{"TOTALS BY TYPE AND MONTH", w.agg.TotalsByTypeMonth()},
		{"REVENUE SUMMARY", w.agg.RevenueSummary()},
		{"PERSONS PER OPERATOR", w.agg.PersonsPerOperator()},
		{fmt.Sprintf("TOP %d PERSONS BY ACTIONS", w.topN), w.agg.TopPersons(w.topN)},
	}
	for _, b := range blocks {
		_ = f.SetCellValue(sheetSummary, cellRef(1, row), b.heading)
		_ = f.SetCellStyle(sheetSummary, cellRef(1, row), cellRef(1, row), st.bold)
		row++
		next, err := writeTable(f, st, sheetSummary, b.table, row)
		if err != nil {
			return err
		}
		row = next + 1
	}

	_ = f.SetColWidth(sheetSummary, "A", "A", 40)
	_ = f.SetColWidth(sheetSummary, "B", "B", 25)
	_ = f.SetColWidth(sheetSummary, "C", "O", 12)
	return nil
}

func (w *Workbook) writeCharts(f *excelize.File, st styles) error {
	if _, err := f.NewSheet(sheetCharts); err != nil {
		return eris.Wrap(err, "export: create charts sheet")
	}

	// Monthly trend → line chart.
	trend := w.agg.MonthlyTrend()
	_ = f.SetCellValue(sheetCharts, cellRef(1, 1), "MONTHLY TREND")
	_ = f.SetCellStyle(sheetCharts, cellRef(1, 1), cellRef(1, 1), st.bold)
	end, err := writeTable(f, st, sheetCharts, trend, 2)
	if err != nil {
		return err
	}
	if trend.Len() > 0 {
		if err := addLineChart(f, trend, 2, "Monthly Action Trend"); err != nil {
			return err
		}
	}

	// Revenue per code → horizontal bar chart.
	revStart := end + 2
	rev := w.agg.RevenueByCode()
	_ = f.SetCellValue(sheetCharts, cellRef(1, revStart-1), "REVENUE BY CODE")
	_ = f.SetCellStyle(sheetCharts, cellRef(1, revStart-1), cellRef(1, revStart-1), st.bold)
	end, err = writeTable(f, st, sheetCharts, rev, revStart)
	if err != nil {
		return err
	}
	if rev.Len() > 0 {
		if err := addBarChart(f, rev, revStart, "Revenue by Action Code"); err != nil {
			return err
		}
	}

	// Persons per operator → pie chart, grand-total row excluded.
	pieStart := end + 2
	pie := w.agg.PersonsPerOperator()
	if pie.Len() > 0 && pie.Rows[pie.Len()-1][0] == pipeline.TotalLabel {
		pie = &model.Table{Columns: pie.Columns, Rows: pie.Rows[:pie.Len()-1]}
	}
	_ = f.SetCellValue(sheetCharts, cellRef(1, pieStart-1), "PERSONS PER OPERATOR")
	_ = f.SetCellStyle(sheetCharts, cellRef(1, pieStart-1), cellRef(1, pieStart-1), st.bold)
	if _, err := writeTable(f, st, sheetCharts, pie, pieStart); err != nil {
		return err
	}
	if pie.Len() > 0 {
		if err := addPieChart(f, pie, pieStart, "Persons per Operator"); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(sheetCharts, "A", "A", 25)
	_ = f.SetColWidth(sheetCharts, "B", "F", 14)
	return nil
}

// addLineChart charts every series column of the trend table (all but the
// first) over the month categories.
func addLineChart(f *excelize.File, t *model.Table, headerRow int, title string) error {
	first, last := headerRow+1, headerRow+t.Len()
	cats := fmt.Sprintf("%s!$A$%d:$A$%d", sheetCharts, first, last)

	var series []excelize.ChartSeries
	for c := 2; c <= len(t.Columns); c++ {
		col, _ := excelize.ColumnNumberToName(c)
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$%d", sheetCharts, col, headerRow),
			Categories: cats,
			Values:     fmt.Sprintf("%s!$%s$%d:$%s$%d", sheetCharts, col, first, col, last),
			Marker:     excelize.ChartMarker{Symbol: "circle", Size: 7},
		})
	}

	err := f.AddChart(sheetCharts, "H2", &excelize.Chart{
		Type:      excelize.Line,
		Series:    series,
		Title:     []excelize.RichTextRun{{Text: title}},
		Dimension: excelize.ChartDimension{Width: 640, Height: 360},
		XAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Month"}}},
		YAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Count"}}},
	})
	return eris.Wrap(err, "export: add line chart")
}

// addBarChart charts the revenue column of the revenue-by-code table as
// horizontal bars.
func addBarChart(f *excelize.File, t *model.Table, headerRow int, title string) error {
	first, last := headerRow+1, headerRow+t.Len()
	valueCol, _ := excelize.ColumnNumberToName(t.Col("Revenue (EUR)") + 1)

	err := f.AddChart(sheetCharts, cellRef(8, headerRow), &excelize.Chart{
		Type: excelize.Bar,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$%s$%d", sheetCharts, valueCol, headerRow),
			Categories: fmt.Sprintf("%s!$A$%d:$A$%d", sheetCharts, first, last),
			Values:     fmt.Sprintf("%s!$%s$%d:$%s$%d", sheetCharts, valueCol, first, valueCol, last),
		}},
		Title:     []excelize.RichTextRun{{Text: title}},
		Dimension: excelize.ChartDimension{Width: 640, Height: 360},
		PlotArea:  excelize.ChartPlotArea{ShowVal: true},
	})
	return eris.Wrap(err, "export: add bar chart")
}

// addPieChart charts the persons column per operator.
func addPieChart(f *excelize.File, t *model.Table, headerRow int, title string) error {
	first, last := headerRow+1, headerRow+t.Len()

	err := f.AddChart(sheetCharts, cellRef(8, headerRow), &excelize.Chart{
		Type: excelize.Pie,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$%d", sheetCharts, headerRow),
			Categories: fmt.Sprintf("%s!$A$%d:$A$%d", sheetCharts, first, last),
			Values:     fmt.Sprintf("%s!$B$%d:$B$%d", sheetCharts, first, last),
		}},
		Title:     []excelize.RichTextRun{{Text: title}},
		Dimension: excelize.ChartDimension{Width: 480, Height: 360},
		PlotArea:  excelize.ChartPlotArea{ShowVal: true, ShowPercent: true},
	})
	return eris.Wrap(err, "export: add pie chart")
}

func (w *Workbook) writeRejected(f *excelize.File, st styles) error {
	if _, err := f.NewSheet(sheetRejected); err != nil {
		return eris.Wrap(err, "export: create rejected sheet")
	}

	if len(w.rejected) == 0 {
		_ = f.SetCellValue(sheetRejected, "A1", "No rejected rows")
		return nil
	}

	t := RejectedTable(w.rejected)
	if _, err := writeTable(f, st, sheetRejected, t, 1); err != nil {
		return err
	}
	_ = f.SetColWidth(sheetRejected, "A", "A", 12)
	_ = f.SetColWidth(sheetRejected, "B", "B", 35)
	_ = f.SetColWidth(sheetRejected, "C", "C", 25)
	_ = f.SetColWidth(sheetRejected, "D", "D", 30)
	_ = f.SetColWidth(sheetRejected, "E", "E", 25)
	_ = f.SetColWidth(sheetRejected, "F", "F", 35)
	return nil
}

// RejectedTable shapes the audit set for display: original spreadsheet row,
// identifying fields and the human-readable reason.
func RejectedTable(rejected []model.RejectedRecord) *model.Table {
	t := model.NewTable("Row", "Person", "Operator", "Activity", "Event", "Reason")
	for _, r := range rejected {
		t.AddRow(r.Row, r.Person, r.Operator, r.Activity, r.Event, r.ReasonLabel())
	}
	return t
}

func cellRef(col, row int) string {
	ref, _ := excelize.CoordinatesToCellName(col, row)
	return ref
}
