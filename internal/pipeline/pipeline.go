package pipeline

import (
	"go.uber.org/zap"

	"github.com/caseworks/activity-cli/internal/model"
	"github.com/caseworks/activity-cli/internal/policy"
)

// Result is the partition of one run: every input record lands in exactly
// one of the two slices, both in original row order.
type Result struct {
	Accepted []model.ClassifiedRecord
	Rejected []model.RejectedRecord
}

// Run classifies and filters the full dataset against immutable policy
// snapshots. Per-record evaluation order, first match wins:
//
//  1. code extraction fails            → ReasonCodeNotExtracted
//  2. reference date unparseable       → ReasonInvalidDate
//  3. event label in the effective set → ReasonExcludedEvent
//  4. code not in the rate table       → ReasonUnconfiguredCode
//
// Classification runs before event filtering because the proposal
// exception cannot be evaluated without a code. Rejections are data, not
// errors: Run never fails and never mutates its inputs.
func Run(records []model.Record, rates *policy.RateTable, excl policy.ExclusionPolicy) Result {
	var res Result

	for _, rec := range records {
		cr, reason := Classify(rec)
		if reason != "" {
			detail := ""
			if reason == model.ReasonInvalidDate {
				detail = rec.EndDate
				if code, _ := ExtractCode(rec.Activity); code == model.ProposalDrivenCode {
					detail = rec.ProposedDate
				}
			}
			res.Rejected = append(res.Rejected, model.RejectedRecord{
				Record: rec,
				Reason: reason,
				Detail: detail,
			})
			continue
		}

		if excl.Excludes(cr.Code, cr.Event) {
			res.Rejected = append(res.Rejected, model.RejectedRecord{
				Record: rec,
				Code:   cr.Code,
				Reason: model.ReasonExcludedEvent,
				Detail: cr.Event,
			})
			continue
		}

		if !rates.Has(cr.Code) {
			res.Rejected = append(res.Rejected, model.RejectedRecord{
				Record: rec,
				Code:   cr.Code,
				Reason: model.ReasonUnconfiguredCode,
				Detail: cr.Code,
			})
			continue
		}

		res.Accepted = append(res.Accepted, cr)
	}

	zap.L().Info("pipeline: run complete",
		zap.Int("total", len(records)),
		zap.Int("accepted", len(res.Accepted)),
		zap.Int("rejected", len(res.Rejected)),
	)

	return res
}

// ReasonCounts tallies rejections by reason.
func (r Result) ReasonCounts() map[model.RejectReason]int {
	counts := make(map[model.RejectReason]int)
	for _, rej := range r.Rejected {
		counts[rej.Reason]++
	}
	return counts
}
