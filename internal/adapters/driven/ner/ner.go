// Package ner holds the prompt and response handling shared by the
// model-backed entity recognisers.
package ner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

// SystemPrompt instructs the model to return entities as JSON.
const SystemPrompt = `You extract medical entities from clinical text.
Return only a JSON object of the form {"entities":[...]}.
Each entity has "type", "value", "text", "confidence" and optional "attributes".
"type" is one of: condition, medication, symptom, provider, lab_result, procedure.
"value" is the canonical name, "text" the exact words from the input.
"confidence" is a number between 0 and 1.
For medications add dose, unit and frequency attributes when stated.
For lab results add value and unit attributes.
Set attribute "negated" to "true" when the text denies the finding.`

// MaxInputChars bounds the text sent in one request.
const MaxInputChars = 12000

type response struct {
	Entities []struct {
		Type       string            `json:"type"`
		Value      string            `json:"value"`
		Text       string            `json:"text"`
		Confidence float64           `json:"confidence"`
		Attributes map[string]string `json:"attributes"`
	} `json:"entities"`
}

// UserPrompt wraps section text for the model.
func UserPrompt(text string) string {
	if len(text) > MaxInputChars {
		text = text[:MaxInputChars]
	}
	return "Text:\n" + text
}

// Parse decodes a model reply. Code fences are tolerated. Entries with an
// unknown type or empty value are dropped and confidences are clamped.
func Parse(raw string) ([]driven.EntityCandidate, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var resp response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}

	out := make([]driven.EntityCandidate, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		t := domain.EntityType(strings.ToLower(strings.TrimSpace(e.Type)))
		if !t.IsValid() || strings.TrimSpace(e.Value) == "" {
			continue
		}
		conf := e.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		text := e.Text
		if text == "" {
			text = e.Value
		}
		out = append(out, driven.EntityCandidate{
			Type:       t,
			Value:      strings.TrimSpace(e.Value),
			Text:       text,
			Attributes: e.Attributes,
			Confidence: conf,
		})
	}
	return out, nil
}
