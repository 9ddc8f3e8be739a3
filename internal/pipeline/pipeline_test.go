package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseworks/activity-cli/internal/model"
	"github.com/caseworks/activity-cli/internal/policy"
)

func testRates(t *testing.T, rates map[string]string) *policy.RateTable {
	t.Helper()
	m := make(map[string]decimal.Decimal, len(rates))
	for code, r := range rates {
		m[code] = decimal.RequireFromString(r)
	}
	table, err := policy.NewRateTable(m)
	require.NoError(t, err)
	return table
}

func testExclusions(labels ...string) policy.ExclusionPolicy {
	return policy.NewExclusionPolicy(labels, "")
}

func TestRun_PartitionTotality(t *testing.T) {
	records := []model.Record{
		{Row: 2, Person: "P1", Activity: "A03 - ok", Event: "Realizzazione", EndDate: "10/01/2024"},
		{Row: 3, Person: "P2", Activity: "senza codice", Event: "Realizzazione", EndDate: "10/01/2024"},
		{Row: 4, Person: "P3", Activity: "A03 - data rotta", Event: "Realizzazione", EndDate: "nope"},
		{Row: 5, Person: "P4", Activity: "A03 - escluso", Event: "Proposta", EndDate: "10/01/2024"},
		{Row: 6, Person: "P5", Activity: "Z99 - ignoto", Event: "Realizzazione", EndDate: "10/01/2024"},
	}
	rates := testRates(t, map[string]string{"A03": "37.14"})

	res := Run(records, rates, testExclusions("Proposta"))

	assert.Equal(t, len(records), len(res.Accepted)+len(res.Rejected))

	seen := make(map[int]int)
	for _, cr := range res.Accepted {
		seen[cr.Row]++
	}
	for _, rej := range res.Rejected {
		seen[rej.Row]++
	}
	for row, n := range seen {
		assert.Equal(t, 1, n, "row %d appears %d times", row, n)
	}
}

func TestRun_ReasonsAndOrder(t *testing.T) {
	records := []model.Record{
		{Row: 2, Activity: "senza codice", Event: "Proposta", EndDate: "10/01/2024"},
		{Row: 3, Activity: "A03 x", Event: "Realizzazione", EndDate: "bad"},
		{Row: 4, Activity: "A03 x", Event: "Proposta", EndDate: "10/01/2024"},
		{Row: 5, Activity: "Z99 x", Event: "Realizzazione", EndDate: "10/01/2024"},
	}
	rates := testRates(t, map[string]string{"A03": "37.14"})

	res := Run(records, rates, testExclusions("Proposta"))

	require.Len(t, res.Rejected, 4)
	// Original row order preserved, first matching reason wins. Row 2 has
	// an excluded event too, but classification failure takes precedence.
	assert.Equal(t, model.ReasonCodeNotExtracted, res.Rejected[0].Reason)
	assert.Equal(t, model.ReasonInvalidDate, res.Rejected[1].Reason)
	assert.Equal(t, model.ReasonExcludedEvent, res.Rejected[2].Reason)
	assert.Equal(t, model.ReasonUnconfiguredCode, res.Rejected[3].Reason)
	for i, row := range []int{2, 3, 4, 5} {
		assert.Equal(t, row, res.Rejected[i].Row)
	}
}

func TestRun_ReasonDeterminism(t *testing.T) {
	records := []model.Record{
		{Row: 2, Activity: "senza codice", Event: "Proposta", EndDate: "10/01/2024"},
		{Row: 3, Activity: "A03 x", Event: "Proposta", EndDate: "10/01/2024"},
		{Row: 4, Activity: "Z99 x", Event: "Realizzazione", EndDate: "10/01/2024"},
	}
	rates := testRates(t, map[string]string{"A03": "37.14"})
	excl := testExclusions("Proposta")

	full := Run(records, rates, excl)
	require.Len(t, full.Rejected, 3)

	// Re-running each row in isolation yields the same reason.
	for i, rec := range records {
		solo := Run([]model.Record{rec}, rates, excl)
		require.Len(t, solo.Rejected, 1)
		assert.Equal(t, full.Rejected[i].Reason, solo.Rejected[0].Reason)
	}
}

func TestRun_ProposalExceptionForC06(t *testing.T) {
	records := []model.Record{
		{Row: 2, Activity: "C06 - Politica", Event: "Proposta", EndDate: "10/01/2024", ProposedDate: "01/02/2024"},
		{Row: 3, Activity: "A03 - Colloquio", Event: "Proposta", EndDate: "10/01/2024"},
	}
	rates := testRates(t, map[string]string{"A03": "37.14", "C06": "499.88"})

	res := Run(records, rates, testExclusions("Proposta"))

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "C06", res.Accepted[0].Code)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, model.ReasonExcludedEvent, res.Rejected[0].Reason)
	assert.Equal(t, "A03", res.Rejected[0].Code)
}

func TestRun_EmptyPolicies(t *testing.T) {
	records := []model.Record{
		{Row: 2, Activity: "A03 x", Event: "Proposta", EndDate: "10/01/2024"},
	}

	// Empty exclusion set: nothing event-excluded.
	rates := testRates(t, map[string]string{"A03": "37.14"})
	res := Run(records, rates, testExclusions())
	assert.Len(t, res.Accepted, 1)

	// Empty rate table: everything unconfigured.
	empty := testRates(t, nil)
	res = Run(records, empty, testExclusions())
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, model.ReasonUnconfiguredCode, res.Rejected[0].Reason)
}

// End-to-end scenario: A03 accepted, A03 proposal rejected, C06 proposal
// kept by the exception; revenue 37.14 + 499.88.
func TestRun_EndToEnd(t *testing.T) {
	records := []model.Record{
		{Row: 2, Person: "P1", Activity: "A03 - Colloquio", Event: "Realizzazione", EndDate: "10/01/2024"},
		{Row: 3, Person: "P2", Activity: "A03 - Colloquio", Event: "Proposta", EndDate: "05/01/2024"},
		{Row: 4, Person: "P3", Activity: "C06 - Politica", Event: "Proposta", ProposedDate: "01/02/2024"},
	}
	rates := testRates(t, map[string]string{"A03": "37.14", "C06": "499.88"})

	res := Run(records, rates, testExclusions("Proposta"))

	require.Len(t, res.Accepted, 2)
	assert.Equal(t, 2, res.Accepted[0].Row)
	assert.Equal(t, 4, res.Accepted[1].Row)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 3, res.Rejected[0].Row)
	assert.Equal(t, model.ReasonExcludedEvent, res.Rejected[0].Reason)

	agg := NewAggregator(res.Accepted, rates)
	assert.True(t, agg.TotalRevenue().Equal(decimal.RequireFromString("537.02")),
		"total revenue = %s", agg.TotalRevenue())
}
