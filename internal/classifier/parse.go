package classifier

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mikey/llm-fraud-checker/internal/core"
)

const (
	defaultRisk       = 0.2
	defaultConfidence = 0.4
)

// flexFloat accepts JSON numbers and numeric strings
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// flexStrings accepts a list of strings or a single string
type flexStrings []string

func (l *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s = strings.TrimSpace(s); s != "" {
		*l = []string{s}
	}
	return nil
}

// verdictRecord is the fixed-shape record the classifier is asked to emit
type verdictRecord struct {
	Label       string      `json:"label"`
	Risk        *flexFloat  `json:"risk_score_llm"`
	Confidence  *flexFloat  `json:"confidence_llm"`
	RedFlags    flexStrings `json:"red_flags"`
	Explanation string      `json:"explanation"`
	Actions     flexStrings `json:"actions"`
}

// DefaultVerdict is the conservative verdict used when no classifier answer is available
func DefaultVerdict(explanation string) core.ClassifierResult {
	return core.ClassifierResult{
		Label:       core.LabelOK,
		Risk:        defaultRisk,
		Confidence:  defaultConfidence,
		RedFlags:    []string{},
		Explanation: explanation,
		Actions:     []string{},
		Degraded:    true,
	}
}

// ParseVerdict decodes a classifier response. The whole text is tried first,
// then the span between the first '{' and the last '}'. ok is false when
// neither decodes and the default verdict was returned.
func ParseVerdict(raw string) (result core.ClassifierResult, ok bool) {
	raw = strings.TrimSpace(raw)

	var rec verdictRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return DefaultVerdict("Classifier response was not JSON; assuming ok."), false
		}
		rec = verdictRecord{}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &rec); err != nil {
			return DefaultVerdict("Classifier response was not JSON; assuming ok."), false
		}
	}

	result = core.ClassifierResult{
		Label:       NormalizeLabel(rec.Label),
		Risk:        defaultRisk,
		Confidence:  defaultConfidence,
		RedFlags:    nonEmpty(rec.RedFlags),
		Explanation: strings.TrimSpace(rec.Explanation),
		Actions:     nonEmpty(rec.Actions),
	}
	if rec.Risk != nil {
		result.Risk = clamp(float64(*rec.Risk))
	}
	if rec.Confidence != nil {
		result.Confidence = clamp(float64(*rec.Confidence))
	}
	return result, true
}

// NormalizeLabel maps classifier labels onto ok/suspicious/fraud; anything
// unrecognised becomes ok
func NormalizeLabel(label string) core.Label {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "fraud", "fraude":
		return core.LabelFraud
	case "suspicious", "suspeito", "suspect":
		return core.LabelSuspicious
	default:
		return core.LabelOK
	}
}

func nonEmpty(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
