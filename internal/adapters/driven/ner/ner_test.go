package ner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

func TestParse(t *testing.T) {
	raw := "```json\n" + `{"entities":[
		{"type":"Condition","value":"Hypermobile Ehlers-Danlos Syndrome","text":"hEDS","confidence":0.93},
		{"type":"medication","value":"Metformin","confidence":1.7,"attributes":{"dose":"500"}},
		{"type":"allergy","value":"peanuts","confidence":0.9},
		{"type":"symptom","value":"  ","confidence":0.9}
	]}` + "\n```"

	cands, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, cands, 2)

	assert.Equal(t, domain.EntityCondition, cands[0].Type)
	assert.Equal(t, "hEDS", cands[0].Text)
	assert.InDelta(t, 0.93, cands[0].Confidence, 1e-9)

	assert.Equal(t, "Metformin", cands[1].Text)
	assert.Equal(t, 1.0, cands[1].Confidence)
	assert.Equal(t, "500", cands[1].Attributes["dose"])
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("not json")
	assert.Error(t, err)
}

func TestUserPrompt_Truncates(t *testing.T) {
	p := UserPrompt(strings.Repeat("a", MaxInputChars+100))
	assert.Equal(t, len("Text:\n")+MaxInputChars, len(p))
}
