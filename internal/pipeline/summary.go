package pipeline

import (
	"github.com/caseworks/activity-cli/internal/model"
)

// Summarize builds the headline statistics for a completed run.
func Summarize(res Result, agg *Aggregator) model.RunSummary {
	s := model.NewRunSummary()
	s.TotalRows = len(res.Accepted) + len(res.Rejected)
	s.Accepted = len(res.Accepted)
	s.Rejected = len(res.Rejected)
	s.UniquePersons = len(agg.Persons())
	s.UniqueOperators = len(agg.Operators())
	s.Types = agg.Types()
	s.Codes = agg.CodesPresent()
	s.TotalRevenue = agg.TotalRevenue()
	s.ReasonCounts = res.ReasonCounts()
	if start, end, ok := agg.Period(); ok {
		s.PeriodStart, s.PeriodEnd = start, end
	}
	return s
}
