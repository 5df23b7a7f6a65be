package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

func findCandidate(cands []driven.EntityCandidate, t domain.EntityType, value string) *driven.EntityCandidate {
	for i := range cands {
		if cands[i].Type == t && cands[i].Value == value {
			return &cands[i]
		}
	}
	return nil
}

func TestRules_DiagnosisCue(t *testing.T) {
	r := NewRules()

	cands := r.Extract("Patient dx: hypermobile EDS, confirmed by Dr. LiCause on 2018-02-14.")
	require.Len(t, cands, 2)

	cond := findCandidate(cands, domain.EntityCondition, "hypermobile Ehlers-Danlos Syndrome")
	require.NotNil(t, cond)
	assert.InDelta(t, 0.85, cond.Confidence, 1e-9)
	assert.Equal(t, "diagnosis", cond.Attributes["context"])
	assert.Equal(t, "hypermobile EDS", cond.Text)

	prov := findCandidate(cands, domain.EntityProvider, "Dr. LiCause")
	require.NotNil(t, prov)
	assert.InDelta(t, 0.8, prov.Confidence, 1e-9)
}

func TestRules_LongestOverlapWins(t *testing.T) {
	r := NewRules()

	cands := r.Extract("History reviewed. hypermobile EDS noted.")
	require.Len(t, cands, 1)
	assert.Equal(t, "hypermobile Ehlers-Danlos Syndrome", cands[0].Value)
}

func TestRules_AbbreviationsAreCaseSensitive(t *testing.T) {
	r := NewRules()

	assert.Empty(t, r.Extract("the pots and pans were washed"))

	cands := r.Extract("Suspected POTS after standing.")
	require.Len(t, cands, 1)
	assert.Equal(t, "Postural Orthostatic Tachycardia Syndrome", cands[0].Value)
	assert.InDelta(t, 0.5, cands[0].Confidence, 1e-9)
}

func TestRules_Negation(t *testing.T) {
	r := NewRules()

	cands := r.Extract("Patient denies chest pain.")
	require.Len(t, cands, 1)
	assert.Equal(t, "chest pain", cands[0].Value)
	assert.Equal(t, "true", cands[0].Attributes["negated"])
	assert.InDelta(t, 0.65*0.4, cands[0].Confidence, 1e-9)
}

func TestRules_MedicationDose(t *testing.T) {
	r := NewRules()

	cands := r.Extract("Started metformin 500 mg twice daily.")
	med := findCandidate(cands, domain.EntityMedication, "Metformin")
	require.NotNil(t, med)
	assert.Equal(t, "500", med.Attributes["dose"])
	assert.Equal(t, "mg", med.Attributes["unit"])
	assert.Equal(t, "twice daily", med.Attributes["frequency"])
	assert.InDelta(t, 0.85, med.Confidence, 1e-9)
}

func TestRules_LabRequiresValue(t *testing.T) {
	r := NewRules()

	assert.Nil(t, findCandidate(r.Extract("Ferritin ordered."), domain.EntityLabResult, "Ferritin"))

	lab := findCandidate(r.Extract("Ferritin: 12 ng/mL"), domain.EntityLabResult, "Ferritin")
	require.NotNil(t, lab)
	assert.Equal(t, "12", lab.Attributes["value"])
	assert.Equal(t, "ng/mL", lab.Attributes["unit"])
}

func TestRules_ProviderTitleAnyCase(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		value string
	}{
		{"mixed case", "Seen by Dr. LiCause.", "Dr. LiCause"},
		{"upper case", "SEEN BY DR. LICAUSE.", "Dr. LICAUSE"},
		{"lower case", "seen by dr licause.", "Dr. licause"},
	}

	r := NewRules()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prov := findCandidate(r.Extract(tt.text), domain.EntityProvider, tt.value)
			require.NotNil(t, prov)
			assert.Equal(t, "dr. licause", domain.NormalizeValue(prov.Value), "every spelling dedups to one key")
		})
	}
}

func TestRules_LowercaseTitleNeedsAName(t *testing.T) {
	r := NewRules()

	for _, text := range []string{"called the dr today", "dr visit scheduled", "back to dr on monday"} {
		for _, c := range r.Extract(text) {
			assert.NotEqual(t, domain.EntityProvider, c.Type, text)
		}
	}
}

func TestRules_CredentialedProvider(t *testing.T) {
	r := NewRules()

	prov := findCandidate(r.Extract("Seen by Jane Smith, MD for follow-up."), domain.EntityProvider, "Jane Smith, MD")
	require.NotNil(t, prov)
	assert.Equal(t, "MD", prov.Attributes["credential"])
	assert.InDelta(t, 0.85, prov.Confidence, 1e-9)
}

func TestRules_OrderOfAppearance(t *testing.T) {
	r := NewRules()

	cands := r.Extract("fatigue and nausea, later dizziness")
	require.Len(t, cands, 3)
	assert.Equal(t, "fatigue", cands[0].Value)
	assert.Equal(t, "nausea", cands[1].Value)
	assert.Equal(t, "dizziness", cands[2].Value)
}

func TestRules_EmptyText(t *testing.T) {
	assert.Empty(t, NewRules().Extract(""))
}
