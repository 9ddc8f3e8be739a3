package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExclusionPolicy_Excludes(t *testing.T) {
	p := NewExclusionPolicy([]string{"Proposta", "Annullamento (prima dell'inizio)"}, "")

	assert.True(t, p.Excludes("A03", "Proposta"))
	assert.True(t, p.Excludes("A03", "Annullamento (prima dell'inizio)"))
	assert.False(t, p.Excludes("A03", "Realizzazione"))

	// The proposal label never excludes the proposal-driven code.
	assert.False(t, p.Excludes("C06", "Proposta"))
	assert.True(t, p.Excludes("C06", "Annullamento (prima dell'inizio)"))
	// Normalized code still triggers the exception.
	assert.False(t, p.Excludes("c06", "Proposta"))
}

func TestExclusionPolicy_CustomProposalLabel(t *testing.T) {
	p := NewExclusionPolicy([]string{"Draft"}, "Draft")

	assert.True(t, p.Excludes("A03", "Draft"))
	assert.False(t, p.Excludes("C06", "Draft"))
	assert.Equal(t, "Draft", p.ProposalLabel())
}

func TestExclusionPolicy_EmptySet(t *testing.T) {
	p := NewExclusionPolicy(nil, "")
	assert.False(t, p.Excludes("A03", "Proposta"))
	assert.Empty(t, p.Labels())
}

func TestExclusionPolicy_Edits(t *testing.T) {
	p := NewExclusionPolicy([]string{"Proposta"}, "")

	added := p.WithLabel("Rinuncia")
	assert.Equal(t, []string{"Proposta", "Rinuncia"}, added.Labels())
	assert.Equal(t, []string{"Proposta"}, p.Labels())

	removed, ok := added.WithoutLabel("Proposta")
	assert.True(t, ok)
	assert.Equal(t, []string{"Rinuncia"}, removed.Labels())

	_, ok = p.WithoutLabel("missing")
	assert.False(t, ok)
}
