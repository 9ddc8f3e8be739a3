package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caseworks/activity-cli/internal/model"
	"github.com/caseworks/activity-cli/internal/policy"
)

// TotalLabel marks the grand-total row appended to several tables.
const TotalLabel = "TOTAL"

// Aggregator computes the family of grouped counts and revenue figures over
// the accepted set. Every query is a pure read over the same records, so
// any per-person or per-operator breakdown sums to the matching totals-only
// figure, and monthly buckets sum to the non-monthly total.
type Aggregator struct {
	accepted []model.ClassifiedRecord
	rates    *policy.RateTable
}

// NewAggregator wraps an accepted set and the rate snapshot it was filtered
// against.
func NewAggregator(accepted []model.ClassifiedRecord, rates *policy.RateTable) *Aggregator {
	return &Aggregator{accepted: accepted, rates: rates}
}

// Len returns the size of the accepted set.
func (a *Aggregator) Len() int {
	return len(a.accepted)
}

// Types returns the record types present, sorted.
func (a *Aggregator) Types() []string {
	return a.sortedKeys(func(cr model.ClassifiedRecord) string { return cr.Type })
}

// CodesPresent returns the codes present in the accepted set, sorted.
func (a *Aggregator) CodesPresent() []string {
	return a.sortedKeys(func(cr model.ClassifiedRecord) string { return cr.Code })
}

// Months returns the month buckets present, sorted chronologically.
func (a *Aggregator) Months() []string {
	return a.sortedKeys(func(cr model.ClassifiedRecord) string { return cr.YearMonth.String() })
}

// Persons returns the persons present, sorted by name.
func (a *Aggregator) Persons() []string {
	return a.sortedKeys(func(cr model.ClassifiedRecord) string { return cr.Person })
}

// Operators returns the operators present, sorted by name.
func (a *Aggregator) Operators() []string {
	return a.sortedKeys(func(cr model.ClassifiedRecord) string { return cr.Operator })
}

// Period returns the earliest and latest reference dates in the accepted
// set, and false when the set is empty.
func (a *Aggregator) Period() (time.Time, time.Time, bool) {
	if len(a.accepted) == 0 {
		return time.Time{}, time.Time{}, false
	}
	min, max := a.accepted[0].ReferenceDate, a.accepted[0].ReferenceDate
	for _, cr := range a.accepted[1:] {
		if cr.ReferenceDate.Before(min) {
			min = cr.ReferenceDate
		}
		if cr.ReferenceDate.After(max) {
			max = cr.ReferenceDate
		}
	}
	return min, max, true
}

// OperatorByPerson attributes one operator to each person: the operator of
// the person's accepted record with the latest reference date, ties broken
// by the latest original row.
func (a *Aggregator) OperatorByPerson() map[string]string {
	type pick struct {
		date time.Time
		row  int
		op   string
	}
	best := make(map[string]pick)
	for _, cr := range a.accepted {
		b, ok := best[cr.Person]
		if !ok || cr.ReferenceDate.After(b.date) ||
			(cr.ReferenceDate.Equal(b.date) && cr.Row > b.row) {
			best[cr.Person] = pick{date: cr.ReferenceDate, row: cr.Row, op: cr.Operator}
		}
	}
	out := make(map[string]string, len(best))
	for person, b := range best {
		out[person] = b.op
	}
	return out
}

// countColumns is the column layout shared by the per-person tables: each
// type present, followed by the configured codes of that type.
func (a *Aggregator) countColumns() []string {
	var cols []string
	for _, typ := range a.Types() {
		cols = append(cols, typ)
		for _, code := range a.rates.Codes() {
			if strings.HasPrefix(code, typ) {
				cols = append(cols, code)
			}
		}
	}
	return cols
}

func (a *Aggregator) personRow(person string, operator string) []any {
	byType := make(map[string]int)
	byCode := make(map[string]int)
	total := 0
	for _, cr := range a.accepted {
		if cr.Person != person {
			continue
		}
		byType[cr.Type]++
		byCode[cr.Code]++
		total++
	}

	row := []any{person, operator}
	for _, col := range a.countColumns() {
		if len(col) == 1 {
			row = append(row, byType[col])
		} else {
			row = append(row, byCode[col])
		}
	}
	return append(row, total)
}

// CountByPerson counts accepted records per person, broken down by type and
// code, with the attributed operator and a total column. Rows sorted by
// person.
func (a *Aggregator) CountByPerson() *model.Table {
	cols := append([]string{"Person", "Operator"}, a.countColumns()...)
	t := model.NewTable(append(cols, "Total")...)

	ops := a.OperatorByPerson()
	for _, person := range a.Persons() {
		t.AddRow(a.personRow(person, ops[person])...)
	}
	return t
}

// CountByPersonMonth counts accepted records per person and per
// (type, month) bucket. Only buckets present in the data become columns.
func (a *Aggregator) CountByPersonMonth() *model.Table {
	bucketOf := func(cr model.ClassifiedRecord) string {
		return fmt.Sprintf("%s_%s", cr.Type, cr.YearMonth)
	}
	buckets := a.sortedKeys(bucketOf)

	t := model.NewTable(append([]string{"Person", "Operator"}, buckets...)...)

	counts := make(map[string]map[string]int) // person → bucket → n
	for _, cr := range a.accepted {
		if counts[cr.Person] == nil {
			counts[cr.Person] = make(map[string]int)
		}
		counts[cr.Person][bucketOf(cr)]++
	}

	ops := a.OperatorByPerson()
	for _, person := range a.Persons() {
		row := []any{person, ops[person]}
		for _, b := range buckets {
			row = append(row, counts[person][b])
		}
		t.AddRow(row...)
	}
	return t
}

// TotalsByType counts the accepted set per type and per code in a single
// two-column table, types and codes interleaved in label order, with a
// grand-total row.
func (a *Aggregator) TotalsByType() *model.Table {
	counts := make(map[string]int)
	for _, cr := range a.accepted {
		counts[cr.Type]++
		counts[cr.Code]++
	}

	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	t := model.NewTable("Type", "Count")
	for _, l := range labels {
		t.AddRow(l, counts[l])
	}
	t.AddRow(TotalLabel, len(a.accepted))
	return t
}

// TotalsByTypeMonth counts the accepted set per type and month, one column
// per month present, with a grand-total row.
func (a *Aggregator) TotalsByTypeMonth() *model.Table {
	months := a.Months()
	t := model.NewTable(append([]string{"Type"}, months...)...)

	counts := make(map[string]map[string]int) // type → month → n
	for _, cr := range a.accepted {
		if counts[cr.Type] == nil {
			counts[cr.Type] = make(map[string]int)
		}
		counts[cr.Type][cr.YearMonth.String()]++
	}

	colTotals := make(map[string]int)
	for _, typ := range a.Types() {
		row := []any{typ}
		for _, m := range months {
			n := counts[typ][m]
			colTotals[m] += n
			row = append(row, n)
		}
		t.AddRow(row...)
	}

	totalRow := []any{TotalLabel}
	for _, m := range months {
		totalRow = append(totalRow, colTotals[m])
	}
	t.AddRow(totalRow...)
	return t
}

// CountByOperator counts accepted records per operator and configured code,
// with a total column. Rows sorted by operator.
func (a *Aggregator) CountByOperator() *model.Table {
	codes := a.rates.Codes()
	t := model.NewTable(append(append([]string{"Operator"}, codes...), "Total")...)

	counts := make(map[string]map[string]int) // operator → code → n
	for _, cr := range a.accepted {
		if counts[cr.Operator] == nil {
			counts[cr.Operator] = make(map[string]int)
		}
		counts[cr.Operator][cr.Code]++
	}

	for _, op := range a.Operators() {
		row := []any{op}
		total := 0
		for _, code := range codes {
			n := counts[op][code]
			total += n
			row = append(row, n)
		}
		t.AddRow(append(row, total)...)
	}
	return t
}

// CountByOperatorMonth counts accepted records per (operator, month) and
// configured code, with a total column. Rows sorted by operator then month.
func (a *Aggregator) CountByOperatorMonth() *model.Table {
	codes := a.rates.Codes()
	t := model.NewTable(append(append([]string{"Operator", "Month"}, codes...), "Total")...)

	type key struct{ op, month string }
	counts := make(map[key]map[string]int)
	for _, cr := range a.accepted {
		k := key{op: cr.Operator, month: cr.YearMonth.String()}
		if counts[k] == nil {
			counts[k] = make(map[string]int)
		}
		counts[k][cr.Code]++
	}

	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].op != keys[j].op {
			return keys[i].op < keys[j].op
		}
		return keys[i].month < keys[j].month
	})

	for _, k := range keys {
		row := []any{k.op, k.month}
		total := 0
		for _, code := range codes {
			n := counts[k][code]
			total += n
			row = append(row, n)
		}
		t.AddRow(append(row, total)...)
	}
	return t
}

// RevenueByMonth counts accepted records per month and configured code and
// derives per-code revenue columns, plus count and revenue totals per row.
// Revenue is count times rate, exact decimal, no rounding.
func (a *Aggregator) RevenueByMonth() *model.Table {
	codes := a.rates.Codes()
	cols := append([]string{"Month"}, codes...)
	for _, code := range codes {
		cols = append(cols, code+" Revenue (EUR)")
	}
	cols = append(cols, "Total Count", "Total Revenue (EUR)")
	t := model.NewTable(cols...)

	counts := make(map[string]map[string]int) // month → code → n
	for _, cr := range a.accepted {
		m := cr.YearMonth.String()
		if counts[m] == nil {
			counts[m] = make(map[string]int)
		}
		counts[m][cr.Code]++
	}

	for _, m := range a.Months() {
		row := []any{m}
		totalCount := 0
		totalRevenue := decimal.Zero
		for _, code := range codes {
			n := counts[m][code]
			totalCount += n
			row = append(row, n)
		}
		for _, code := range codes {
			rate, _ := a.rates.Rate(code)
			rev := rate.Mul(decimal.NewFromInt(int64(counts[m][code])))
			totalRevenue = totalRevenue.Add(rev)
			row = append(row, rev)
		}
		t.AddRow(append(row, totalCount, totalRevenue)...)
	}
	return t
}

// RevenueSummary lists count, rate and revenue per code present, with a
// grand-total row (rate cell blank).
func (a *Aggregator) RevenueSummary() *model.Table {
	t := model.NewTable("Code", "Rate (EUR)", "Count", "Revenue (EUR)")

	counts := a.countByCode()
	totalCount := 0
	totalRevenue := decimal.Zero
	for _, code := range a.CodesPresent() {
		rate, _ := a.rates.Rate(code)
		rev := rate.Mul(decimal.NewFromInt(int64(counts[code])))
		totalCount += counts[code]
		totalRevenue = totalRevenue.Add(rev)
		t.AddRow(code, rate, counts[code], rev)
	}
	t.AddRow(TotalLabel, nil, totalCount, totalRevenue)
	return t
}

// TotalRevenue sums count times rate across every accepted code.
func (a *Aggregator) TotalRevenue() decimal.Decimal {
	total := decimal.Zero
	for code, n := range a.countByCode() {
		rate, _ := a.rates.Rate(code)
		total = total.Add(rate.Mul(decimal.NewFromInt(int64(n))))
	}
	return total
}

// TopPersons returns the n persons with the most accepted records, in the
// CountByPerson column layout. The sort is stable: ties keep the order of
// first appearance in the input.
func (a *Aggregator) TopPersons(n int) *model.Table {
	cols := append([]string{"Person", "Operator"}, a.countColumns()...)
	t := model.NewTable(append(cols, "Total")...)

	var order []string
	totals := make(map[string]int)
	for _, cr := range a.accepted {
		if _, seen := totals[cr.Person]; !seen {
			order = append(order, cr.Person)
		}
		totals[cr.Person]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return totals[order[i]] > totals[order[j]]
	})
	if n < len(order) {
		order = order[:n]
	}

	ops := a.OperatorByPerson()
	for _, person := range order {
		t.AddRow(a.personRow(person, ops[person])...)
	}
	return t
}

// PersonsPerOperator counts the distinct persons attributed to each
// operator, sorted by count descending then operator name, with a
// grand-total row holding the overall distinct-person count.
func (a *Aggregator) PersonsPerOperator() *model.Table {
	counts := make(map[string]int)
	for _, op := range a.OperatorByPerson() {
		counts[op]++
	}

	ops := make([]string, 0, len(counts))
	for op := range counts {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		if counts[ops[i]] != counts[ops[j]] {
			return counts[ops[i]] > counts[ops[j]]
		}
		return ops[i] < ops[j]
	})

	t := model.NewTable("Operator", "Persons")
	for _, op := range ops {
		t.AddRow(op, counts[op])
	}
	t.AddRow(TotalLabel, len(a.Persons()))
	return t
}

// MonthlyTrend counts accepted records per month and type, with a total
// column. Feeds the trend line chart.
func (a *Aggregator) MonthlyTrend() *model.Table {
	types := a.Types()
	t := model.NewTable(append(append([]string{"Month"}, types...), "Total")...)

	counts := make(map[string]map[string]int) // month → type → n
	for _, cr := range a.accepted {
		m := cr.YearMonth.String()
		if counts[m] == nil {
			counts[m] = make(map[string]int)
		}
		counts[m][cr.Type]++
	}

	for _, m := range a.Months() {
		row := []any{m}
		total := 0
		for _, typ := range types {
			n := counts[m][typ]
			total += n
			row = append(row, n)
		}
		t.AddRow(append(row, total)...)
	}
	return t
}

// RevenueByCode lists revenue per code present, sorted by revenue
// ascending (ties by code) for the horizontal bar chart.
func (a *Aggregator) RevenueByCode() *model.Table {
	counts := a.countByCode()

	type entry struct {
		code    string
		count   int
		revenue decimal.Decimal
	}
	entries := make([]entry, 0, len(counts))
	for code, n := range counts {
		rate, _ := a.rates.Rate(code)
		entries = append(entries, entry{
			code:    code,
			count:   n,
			revenue: rate.Mul(decimal.NewFromInt(int64(n))),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].revenue.Cmp(entries[j].revenue); c != 0 {
			return c < 0
		}
		return entries[i].code < entries[j].code
	})

	t := model.NewTable("Code", "Count", "Revenue (EUR)")
	for _, e := range entries {
		t.AddRow(e.code, e.count, e.revenue)
	}
	return t
}

func (a *Aggregator) countByCode() map[string]int {
	counts := make(map[string]int)
	for _, cr := range a.accepted {
		counts[cr.Code]++
	}
	return counts
}

func (a *Aggregator) sortedKeys(keyOf func(model.ClassifiedRecord) string) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, cr := range a.accepted {
		k := keyOf(cr)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
