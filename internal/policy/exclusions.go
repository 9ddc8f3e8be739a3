package policy

import (
	"sort"

	"github.com/caseworks/activity-cli/internal/model"
)

// DefaultProposalLabel is the event label marking a proposal-stage row.
const DefaultProposalLabel = "Proposta"

// ExclusionPolicy holds the set of event labels to drop. It carries one
// fixed exception: the proposal label survives filtering for the
// proposal-driven code, whose reference date lives on proposal-stage rows.
// Like RateTable, a policy is an immutable snapshot.
type ExclusionPolicy struct {
	labels        map[string]struct{}
	proposalLabel string
}

// NewExclusionPolicy builds a policy from the configured labels. An empty
// proposalLabel falls back to DefaultProposalLabel.
func NewExclusionPolicy(labels []string, proposalLabel string) ExclusionPolicy {
	if proposalLabel == "" {
		proposalLabel = DefaultProposalLabel
	}
	p := ExclusionPolicy{
		labels:        make(map[string]struct{}, len(labels)),
		proposalLabel: proposalLabel,
	}
	for _, l := range labels {
		if l == "" {
			continue
		}
		p.labels[l] = struct{}{}
	}
	return p
}

// Excludes reports whether a record with the given code and event label
// should be dropped. The proposal label never excludes the proposal-driven
// code, whether or not it is in the configured set.
func (p ExclusionPolicy) Excludes(code, event string) bool {
	if _, ok := p.labels[event]; !ok {
		return false
	}
	if event == p.proposalLabel && NormalizeCode(code) == model.ProposalDrivenCode {
		return false
	}
	return true
}

// ProposalLabel returns the label denoting the proposal state.
func (p ExclusionPolicy) ProposalLabel() string {
	return p.proposalLabel
}

// Labels returns the configured exclusion labels in sorted order.
func (p ExclusionPolicy) Labels() []string {
	out := make([]string, 0, len(p.labels))
	for l := range p.labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// WithLabel returns a new policy with the label added.
func (p ExclusionPolicy) WithLabel(label string) ExclusionPolicy {
	labels := append(p.Labels(), label)
	return NewExclusionPolicy(labels, p.proposalLabel)
}

// WithoutLabel returns a new policy with the label removed.
func (p ExclusionPolicy) WithoutLabel(label string) (ExclusionPolicy, bool) {
	if _, ok := p.labels[label]; !ok {
		return p, false
	}
	var labels []string
	for l := range p.labels {
		if l != label {
			labels = append(labels, l)
		}
	}
	return NewExclusionPolicy(labels, p.proposalLabel), true
}
