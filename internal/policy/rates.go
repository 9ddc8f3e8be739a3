package policy

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// RateTable maps action codes to their monetary rates. A table is an
// immutable snapshot: edits produce a new table, so a running pipeline never
// observes a mid-run change.
type RateTable struct {
	rates map[string]decimal.Decimal
	codes []string
}

// NewRateTable builds a table from code→rate pairs. Codes are normalized to
// upper case; a duplicate after normalization or a negative rate is a
// configuration error.
func NewRateTable(rates map[string]decimal.Decimal) (*RateTable, error) {
	t := &RateTable{rates: make(map[string]decimal.Decimal, len(rates))}
	for code, rate := range rates {
		norm := NormalizeCode(code)
		if norm == "" {
			return nil, eris.Errorf("rates: empty code")
		}
		if _, ok := t.rates[norm]; ok {
			return nil, eris.Errorf("rates: duplicate code %q", norm)
		}
		if rate.IsNegative() {
			return nil, eris.Errorf("rates: negative rate for %q: %s", norm, rate)
		}
		t.rates[norm] = rate
	}
	t.codes = sortedCodes(t.rates)
	return t, nil
}

// NormalizeCode canonicalizes a code for lookup and storage.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Rate returns the rate for a code and whether it is configured.
func (t *RateTable) Rate(code string) (decimal.Decimal, bool) {
	r, ok := t.rates[NormalizeCode(code)]
	return r, ok
}

// Has reports whether the code is configured.
func (t *RateTable) Has(code string) bool {
	_, ok := t.rates[NormalizeCode(code)]
	return ok
}

// Codes returns the configured codes in sorted order.
func (t *RateTable) Codes() []string {
	out := make([]string, len(t.codes))
	copy(out, t.codes)
	return out
}

// Len returns the number of configured codes.
func (t *RateTable) Len() int {
	return len(t.rates)
}

// WithRate returns a new table with the code added or updated.
func (t *RateTable) WithRate(code string, rate decimal.Decimal) (*RateTable, error) {
	norm := NormalizeCode(code)
	if norm == "" {
		return nil, eris.Errorf("rates: empty code")
	}
	if rate.IsNegative() {
		return nil, eris.Errorf("rates: negative rate for %q: %s", norm, rate)
	}
	next := t.clone()
	next.rates[norm] = rate
	next.codes = sortedCodes(next.rates)
	return next, nil
}

// WithoutCode returns a new table with the code removed. Removing an
// unconfigured code is reported so callers can surface it.
func (t *RateTable) WithoutCode(code string) (*RateTable, bool) {
	norm := NormalizeCode(code)
	if _, ok := t.rates[norm]; !ok {
		return t, false
	}
	next := t.clone()
	delete(next.rates, norm)
	next.codes = sortedCodes(next.rates)
	return next, true
}

// Map returns a copy of the code→rate mapping, for persistence.
func (t *RateTable) Map() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(t.rates))
	for c, r := range t.rates {
		out[c] = r
	}
	return out
}

func (t *RateTable) clone() *RateTable {
	next := &RateTable{rates: make(map[string]decimal.Decimal, len(t.rates))}
	for c, r := range t.rates {
		next.rates[c] = r
	}
	return next
}

func sortedCodes(rates map[string]decimal.Decimal) []string {
	codes := make([]string, 0, len(rates))
	for c := range rates {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
