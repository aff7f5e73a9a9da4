package heuristics

import (
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"go.uber.org/zap"
)

// Engine is the deterministic weighted rule engine. It holds no mutable
// state and never calls external services.
type Engine struct {
	rules  []rule
	benign []benign
	logger *zap.Logger
}

// NewEngine creates a new heuristic engine with the standard rule table
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		rules:  redFlagRules,
		benign: benignSignals,
		logger: logger,
	}
}

// Score sums the matched red-flag weights, subtracts the benign offsets and
// clamps the result to [0, 1]
func (e *Engine) Score(text string, meta *core.Metadata) core.HeuristicResult {
	if meta == nil {
		meta = &core.Metadata{}
	}
	s := &signals{raw: text, folded: utils.Fold(text), meta: meta}

	result := core.HeuristicResult{
		RedFlags:    []string{},
		BenignNotes: []string{},
	}

	var raw float64
	var matched []string
	for _, r := range e.rules {
		if !r.match(s) {
			continue
		}
		raw += r.weight
		matched = append(matched, r.name)
		flag := r.flag
		if r.evidence != nil {
			flag = r.evidence(s)
		}
		result.RedFlags = append(result.RedFlags, flag)
	}

	var offset float64
	for _, b := range e.benign {
		if b.match(s) {
			offset += b.weight
			result.BenignNotes = append(result.BenignNotes, b.note)
		}
	}

	result.Score = clamp(raw - offset)

	e.logger.Debug("Heuristic score computed",
		zap.Float64("raw", raw),
		zap.Float64("benign", offset),
		zap.Float64("score", result.Score),
		zap.Strings("rules", matched))

	return result
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
