package pipeline

import (
	"regexp"
	"strings"
	"time"

	"github.com/caseworks/activity-cli/internal/model"
)

// codePattern extracts the action code anchored at the start of the
// activity label: one upper-case letter followed by digits (A03, B04, C06).
var codePattern = regexp.MustCompile(`^[A-Z][0-9]+`)

// dateLayout is the day-first format used by the source spreadsheet.
const dateLayout = "02/01/2006"

// ExtractCode pulls the action code from an activity label.
// Returns ("", false) when the label does not start with a code.
func ExtractCode(activity string) (string, bool) {
	code := codePattern.FindString(strings.TrimSpace(activity))
	if code == "" {
		return "", false
	}
	return code, true
}

// Classify derives the code, type, reference date and month bucket for one
// record. Pure function of the record: the reference date comes from the
// proposed date for the proposal-driven code and from the end date for
// every other code. On failure the zero ClassifiedRecord is returned with
// the rejection reason.
func Classify(rec model.Record) (model.ClassifiedRecord, model.RejectReason) {
	code, ok := ExtractCode(rec.Activity)
	if !ok {
		return model.ClassifiedRecord{}, model.ReasonCodeNotExtracted
	}

	raw := rec.EndDate
	if code == model.ProposalDrivenCode {
		raw = rec.ProposedDate
	}
	ref, err := parseDate(raw)
	if err != nil {
		return model.ClassifiedRecord{}, model.ReasonInvalidDate
	}

	return model.ClassifiedRecord{
		Record:        rec,
		Code:          code,
		Type:          code[:1],
		ReferenceDate: ref,
		YearMonth:     model.YearMonthOf(ref),
	}, ""
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(raw))
}
