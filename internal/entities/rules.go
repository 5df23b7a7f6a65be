package entities

import (
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

// contextWindow is how many bytes before a match are scanned for
// diagnosis and negation cues.
const contextWindow = 60

const labValueSuffix = `(?:\s+(?:level|result|count))?\s*(?:was|is|of|at|:|=)?\s*` +
	`(\d+(?:\.\d+)?(?:/\d+)?)\s*` +
	`(mg/dL|ng/mL|mmol/L|g/dL|%|mIU/L|uIU/mL|µIU/mL|pg/mL|mm/hr|mg/L|K/uL|bpm|mmHg|U/L|IU/L)?`

var (
	abbreviationRe = regexp.MustCompile(`^[a-z]?[A-Z0-9/]+$`)

	doseRe = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*(mg|mcg|µg|g|mL|units?|IU)\b`)
	freqRe = regexp.MustCompile(`(?i)^[\s,]*(?:\d+(?:\.\d+)?\s*(?:mg|mcg|µg|g|mL|units?|IU)\b)?[\s,]*` +
		`(once daily|twice daily|daily|nightly|at bedtime|BID|TID|QID|QHS|PRN|as needed|weekly)\b`)

	drTitleRe = regexp.MustCompile(`\b(?i:dr)\.?\s+([A-Za-z][A-Za-z'\-]+(?:\s+[A-Z][A-Za-z'\-]+)?)`)
	credRe    = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z]\.)?\s+[A-Z][A-Za-z'\-]+),\s*(MD|DO|NP|PA-C|PA|DPT|RN)\b`)

	diagnosisCueRe = regexp.MustCompile(`(?i)(?:\bdx\b|diagnos\w*|assessment|impression|history of|\bhx\b|\bpmh\b|known)[^.\n]{0,40}$`)
	negationCueRe  = regexp.MustCompile(`(?i)(?:\bno\b|\bdenies\b|negative for|ruled out|without|\brule out\b)[^.\n]{0,25}$`)
)

// matcher is a compiled dictionary entry.
type matcher struct {
	entityType   domain.EntityType
	canonical    string
	re           *regexp.Regexp
	abbreviation bool
	lab          bool
}

// Rules is the deterministic rule-based extractor. It is safe for
// concurrent use and always returns a result.
type Rules struct {
	matchers []matcher
}

// NewRules compiles the built-in dictionaries.
func NewRules() *Rules {
	r := &Rules{}
	r.add(domain.EntityCondition, conditionTerms, false)
	r.add(domain.EntityMedication, medicationTerms, false)
	r.add(domain.EntitySymptom, symptomTerms, false)
	r.add(domain.EntityProcedure, procedureTerms, false)
	r.add(domain.EntityLabResult, labTerms, true)
	return r
}

func (r *Rules) add(t domain.EntityType, terms []term, lab bool) {
	for _, tm := range terms {
		for _, p := range tm.patterns {
			abbr := abbreviationRe.MatchString(p)
			expr := `\b` + p + `\b`
			if lab {
				expr = `\b` + p + labValueSuffix
			}
			if !abbr {
				expr = `(?i)` + expr
			}
			r.matchers = append(r.matchers, matcher{
				entityType:   t,
				canonical:    tm.canonical,
				re:           regexp.MustCompile(expr),
				abbreviation: abbr,
				lab:          lab,
			})
		}
	}
}

type span struct {
	start, end int
	cand       driven.EntityCandidate
}

// Extract returns candidates found in text, in order of appearance.
// Overlapping dictionary matches of the same type keep the longest.
func (r *Rules) Extract(text string) []driven.EntityCandidate {
	var spans []span
	for _, m := range r.matchers {
		for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
			if m.lab && loc[2] < 0 {
				continue
			}
			spans = append(spans, span{start: loc[0], end: loc[1], cand: r.candidate(m, text, loc)})
		}
	}
	spans = append(spans, providerSpans(text)...)

	sort.SliceStable(spans, func(i, j int) bool {
		li, lj := spans[i].end-spans[i].start, spans[j].end-spans[j].start
		if li != lj {
			return li > lj
		}
		return spans[i].start < spans[j].start
	})
	var kept []span
	for _, s := range spans {
		overlaps := false
		for _, k := range kept {
			if k.cand.Type == s.cand.Type && s.start < k.end && k.start < s.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, s)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].start < kept[j].start })

	out := make([]driven.EntityCandidate, 0, len(kept))
	for _, s := range kept {
		out = append(out, s.cand)
	}
	return out
}

func (r *Rules) candidate(m matcher, text string, loc []int) driven.EntityCandidate {
	surface := text[loc[0]:loc[1]]
	c := driven.EntityCandidate{
		Type:       m.entityType,
		Value:      m.canonical,
		Text:       strings.TrimSpace(surface),
		Attributes: map[string]string{},
		Confidence: baseConfidence[m.entityType],
	}
	if m.abbreviation {
		c.Confidence -= 0.1
	}

	before := text[max(0, loc[0]-contextWindow):loc[0]]
	switch m.entityType {
	case domain.EntityCondition:
		if diagnosisCueRe.MatchString(before) {
			c.Confidence += 0.25
			c.Attributes["context"] = "diagnosis"
		}
	case domain.EntityMedication:
		after := text[loc[1]:]
		if d := doseRe.FindStringSubmatch(after); d != nil {
			c.Attributes["dose"] = d[1]
			c.Attributes["unit"] = strings.ToLower(d[2])
			c.Confidence += 0.1
		}
		if f := freqRe.FindStringSubmatch(after); f != nil {
			c.Attributes["frequency"] = strings.ToLower(f[1])
		}
	case domain.EntityLabResult:
		c.Attributes["value"] = text[loc[2]:loc[3]]
		if loc[4] >= 0 {
			c.Attributes["unit"] = text[loc[4]:loc[5]]
		}
	}
	if m.entityType != domain.EntityLabResult && negationCueRe.MatchString(before) {
		c.Attributes["negated"] = "true"
		c.Confidence *= 0.4
	}
	if len(c.Attributes) == 0 {
		c.Attributes = nil
	}
	c.Confidence = clamp(c.Confidence)
	return c
}

// notProviderNames are words that follow a lowercase "dr" without naming anyone.
var notProviderNames = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "at": true, "on": true, "in": true,
	"and": true, "or": true, "of": true, "for": true, "is": true, "was": true,
	"visit": true, "appointment": true, "office": true, "note": true, "notes": true,
	"today": true, "yesterday": true, "tomorrow": true,
}

func providerSpans(text string) []span {
	var spans []span
	for _, loc := range drTitleRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[loc[2]:loc[3]]
		if first, _, _ := strings.Cut(name, " "); notProviderNames[strings.ToLower(first)] {
			continue
		}
		spans = append(spans, span{start: loc[0], end: loc[1], cand: driven.EntityCandidate{
			Type:       domain.EntityProvider,
			Value:      "Dr. " + name,
			Text:       text[loc[0]:loc[1]],
			Attributes: map[string]string{"title": "Dr."},
			Confidence: baseConfidence[domain.EntityProvider],
		}})
	}
	for _, loc := range credRe.FindAllStringSubmatchIndex(text, -1) {
		name, cred := text[loc[2]:loc[3]], text[loc[4]:loc[5]]
		spans = append(spans, span{start: loc[0], end: loc[1], cand: driven.EntityCandidate{
			Type:       domain.EntityProvider,
			Value:      name + ", " + cred,
			Text:       text[loc[0]:loc[1]],
			Attributes: map[string]string{"credential": cred},
			Confidence: clamp(baseConfidence[domain.EntityProvider] + 0.05),
		}})
	}
	return spans
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
