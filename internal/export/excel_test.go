package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/caseworks/activity-cli/internal/model"
	"github.com/caseworks/activity-cli/internal/pipeline"
	"github.com/caseworks/activity-cli/internal/policy"
)

func fixtureWorkbook(t *testing.T, rejected []model.RejectedRecord) *Workbook {
	t.Helper()
	rates, err := policy.NewRateTable(map[string]decimal.Decimal{
		"A03": decimal.RequireFromString("37.14"),
		"C06": decimal.RequireFromString("499.88"),
	})
	require.NoError(t, err)

	day := func(s string) time.Time {
		d, err := time.Parse("02/01/2006", s)
		require.NoError(t, err)
		return d
	}
	accepted := []model.ClassifiedRecord{
		{
			Record: model.Record{Row: 2, Person: "Bianchi Anna", Operator: "Op1"},
			Code:   "A03", Type: "A",
			ReferenceDate: day("10/01/2024"), YearMonth: model.YearMonth{Year: 2024, Month: 1},
		},
		{
			Record: model.Record{Row: 4, Person: "Rossi Marco", Operator: "Op2"},
			Code:   "C06", Type: "C",
			ReferenceDate: day("01/02/2024"), YearMonth: model.YearMonth{Year: 2024, Month: 2},
		},
	}
	agg := pipeline.NewAggregator(accepted, rates)
	summary := pipeline.Summarize(pipeline.Result{Accepted: accepted, Rejected: rejected}, agg)
	return New(agg, summary, rejected, 10)
}

func TestWrite_AllSheets(t *testing.T) {
	rejected := []model.RejectedRecord{
		{
			Record: model.Record{Row: 3, Person: "Verdi Luca", Operator: "Op1", Activity: "A03 x", Event: "Proposta"},
			Code:   "A03",
			Reason: model.ReasonExcludedEvent,
			Detail: "Proposta",
		},
	}
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, fixtureWorkbook(t, rejected).Write(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	for _, want := range []string{
		sheetSummary, sheetCharts, sheetByPerson, sheetByPersonMonth,
		sheetTotalsType, sheetTotalsMonth, sheetByOperator, sheetByOpMonth,
		sheetRevenueMonth, sheetRejected,
	} {
		assert.Contains(t, sheets, want)
	}

	title, err := f.GetCellValue(sheetSummary, "A1")
	require.NoError(t, err)
	assert.Equal(t, "ACTIVITY ANALYSIS SUMMARY", title)

	// Rejected sheet carries the audit columns and the reason text.
	header, err := f.GetCellValue(sheetRejected, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Row", header)
	reason, err := f.GetCellValue(sheetRejected, "F2")
	require.NoError(t, err)
	assert.Equal(t, "Excluded event: Proposta", reason)

	// By Person sheet: header then data.
	person, err := f.GetCellValue(sheetByPerson, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Bianchi Anna", person)
}

func TestWrite_NoRejectedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, fixtureWorkbook(t, nil).Write(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	note, err := f.GetCellValue(sheetRejected, "A1")
	require.NoError(t, err)
	assert.Equal(t, "No rejected rows", note)
}

func TestRejectedTable(t *testing.T) {
	tab := RejectedTable([]model.RejectedRecord{
		{Record: model.Record{Row: 7, Person: "P"}, Reason: model.ReasonCodeNotExtracted},
	})
	require.Equal(t, 1, tab.Len())
	assert.Equal(t, 7, tab.Rows[0][0])
	assert.Equal(t, "Code not recognized", tab.Rows[0][5])
}
