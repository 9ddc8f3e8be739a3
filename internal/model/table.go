package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Table is an ordered collection of rows with named columns. It is the only
// shape the aggregator hands to renderers; cells are strings, ints, or
// decimal.Decimal, with nil for blanks.
type Table struct {
	Columns []string
	Rows    [][]any
}

// NewTable creates a table with the given column headers.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

// AddRow appends one row. The caller is responsible for matching the column
// count; renderers write cells positionally.
func (t *Table) AddRow(cells ...any) {
	t.Rows = append(t.Rows, cells)
}

// Col returns the index of the named column, or -1 if absent.
func (t *Table) Col(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// RunSummary holds the headline statistics of one pipeline run.
type RunSummary struct {
	ID              string               `json:"id"`
	GeneratedAt     time.Time            `json:"generated_at"`
	TotalRows       int                  `json:"total_rows"`
	Accepted        int                  `json:"accepted"`
	Rejected        int                  `json:"rejected"`
	UniquePersons   int                  `json:"unique_persons"`
	UniqueOperators int                  `json:"unique_operators"`
	Types           []string             `json:"types"`
	Codes           []string             `json:"codes"`
	PeriodStart     time.Time            `json:"period_start"`
	PeriodEnd       time.Time            `json:"period_end"`
	TotalRevenue    decimal.Decimal      `json:"total_revenue"`
	ReasonCounts    map[RejectReason]int `json:"reason_counts"`
}

// NewRunSummary stamps a fresh summary with a run ID and generation time.
func NewRunSummary() RunSummary {
	return RunSummary{
		ID:           uuid.NewString(),
		GeneratedAt:  time.Now(),
		ReasonCounts: make(map[RejectReason]int),
	}
}
