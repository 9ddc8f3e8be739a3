package model

import (
	"fmt"
	"time"
)

// ProposalDrivenCode is the one action code whose reference date comes from
// the proposed date instead of the end date, and which keeps proposal-stage
// rows during event filtering.
const ProposalDrivenCode = "C06"

// Record is one raw input row, exactly as read from the source spreadsheet.
// Row is the 1-based spreadsheet row the record came from (header is row 1).
type Record struct {
	Row          int    `json:"row"`
	Person       string `json:"person"`
	Operator     string `json:"operator"`
	Activity     string `json:"activity"`
	Event        string `json:"event"`
	EndDate      string `json:"end_date"`
	ProposedDate string `json:"proposed_date"`
}

// ClassifiedRecord is a Record with the derived classification fields.
type ClassifiedRecord struct {
	Record

	Code          string    `json:"code"`
	Type          string    `json:"type"`
	ReferenceDate time.Time `json:"reference_date"`
	YearMonth     YearMonth `json:"year_month"`
}

// RejectReason identifies why a row was excluded from the aggregates.
type RejectReason string

const (
	ReasonCodeNotExtracted RejectReason = "code_not_extracted"
	ReasonInvalidDate      RejectReason = "invalid_date"
	ReasonExcludedEvent    RejectReason = "excluded_event"
	ReasonUnconfiguredCode RejectReason = "unconfigured_code"
)

// RejectedRecord is a row routed to the audit set instead of the aggregates.
// Code may be empty when extraction failed; Detail carries the offending
// value (event label, code, or raw date) for display.
type RejectedRecord struct {
	Record

	Code   string       `json:"code,omitempty"`
	Reason RejectReason `json:"reason"`
	Detail string       `json:"detail,omitempty"`
}

// ReasonLabel renders the rejection reason for reports.
func (r RejectedRecord) ReasonLabel() string {
	switch r.Reason {
	case ReasonCodeNotExtracted:
		return "Code not recognized"
	case ReasonInvalidDate:
		return fmt.Sprintf("Invalid reference date: %s", r.Detail)
	case ReasonExcludedEvent:
		return fmt.Sprintf("Excluded event: %s", r.Detail)
	case ReasonUnconfiguredCode:
		return fmt.Sprintf("Code not in rate table: %s", r.Detail)
	}
	return string(r.Reason)
}

// YearMonth is the calendar bucket for monthly aggregates.
type YearMonth struct {
	Year  int
	Month time.Month
}

// YearMonthOf buckets a time into its calendar month.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// String formats as "YYYY-MM"; the zero padding makes lexical order equal
// chronological order.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}
