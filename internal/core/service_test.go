package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mikey/llm-fraud-checker/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNormalizer struct {
	text string
	meta *Metadata
	err  error
}

func (f *fakeNormalizer) Normalize(context.Context, AnalysisInput) (string, *Metadata, error) {
	if f.meta == nil {
		return f.text, nil, f.err
	}
	m := *f.meta
	return f.text, &m, f.err
}

type fakeWhitelist struct{ hit bool }

func (f fakeWhitelist) Apply(_ string, meta *Metadata) {
	meta.DomainWhitelisted = f.hit
}

type fakeBrands struct{ verdict BrandImpersonationVerdict }

func (f fakeBrands) Check(*Metadata, string) BrandImpersonationVerdict { return f.verdict }

type fakeHeuristics struct{ calls int }

func (f *fakeHeuristics) Score(string, *Metadata) HeuristicResult {
	f.calls++
	return HeuristicResult{Score: 0.5, RedFlags: []string{"urgency"}}
}

type fakeClassifier struct{ calls int }

func (f *fakeClassifier) Classify(context.Context, string, *Metadata) ClassifierResult {
	f.calls++
	return ClassifierResult{Label: LabelSuspicious, Risk: 0.5, Confidence: 0.6}
}

type fakeFuser struct {
	seen *Metadata
}

func (f *fakeFuser) Override(meta *Metadata, _ string) (*FusedVerdict, bool) {
	if meta.CriticalImpersonation {
		return &FusedVerdict{Label: LabelFraud, RiskPct: 95, ConfidencePct: 90, Override: "critical_impersonation"}, true
	}
	return nil, false
}

func (f *fakeFuser) Fuse(h HeuristicResult, c ClassifierResult, meta *Metadata, _ SourceType, _ string) *FusedVerdict {
	f.seen = meta
	return &FusedVerdict{Label: c.Label, RiskPct: 50, ConfidencePct: 60, RedFlags: h.RedFlags}
}

type pipeline struct {
	service    *AnalyzerService
	heuristics *fakeHeuristics
	classifier *fakeClassifier
	fuser      *fakeFuser
}

func newPipeline(n Normalizer, brand BrandImpersonationVerdict) pipeline {
	logger := zap.NewNop()
	p := pipeline{
		heuristics: &fakeHeuristics{},
		classifier: &fakeClassifier{},
		fuser:      &fakeFuser{},
	}
	p.service = NewAnalyzerService(n, fakeWhitelist{hit: true}, fakeBrands{verdict: brand},
		p.heuristics, p.classifier, p.fuser, utils.NewTextProcessor(logger), logger)
	return p
}

func TestAnalyzeBlendPath(t *testing.T) {
	text := strings.Repeat("a", 1500)
	p := newPipeline(&fakeNormalizer{text: text, meta: &Metadata{From: "x@y.com"}}, BrandImpersonationVerdict{})

	v, err := p.service.Analyze(context.Background(), TextInput(text))
	require.NoError(t, err)

	assert.Equal(t, LabelSuspicious, v.Label)
	assert.Equal(t, SourceText, v.SourceType)
	assert.NotEmpty(t, v.AnalysisID)
	assert.Equal(t, 1, p.heuristics.calls)
	assert.Equal(t, 1, p.classifier.calls)
	assert.True(t, strings.HasSuffix(v.Snippet, "…"))
	assert.Equal(t, snippetRunes+1, len([]rune(v.Snippet)))

	require.NotNil(t, p.fuser.seen)
	assert.True(t, p.fuser.seen.DomainWhitelisted)
	assert.Equal(t, SourceText, p.fuser.seen.SourceType)
}

func TestAnalyzeOverrideSkipsDetectors(t *testing.T) {
	brand := BrandImpersonationVerdict{Detected: true, CriticalImpersonation: true, BrandKey: "itau", Reason: "mismatch"}
	p := newPipeline(&fakeNormalizer{text: "Itaú: atualize seus dados", meta: &Metadata{}}, brand)

	v, err := p.service.Analyze(context.Background(), EmailInput([]byte("raw"), "m.eml"))
	require.NoError(t, err)

	assert.Equal(t, LabelFraud, v.Label)
	assert.Equal(t, "critical_impersonation", v.Override)
	assert.Zero(t, p.heuristics.calls)
	assert.Zero(t, p.classifier.calls)
	assert.True(t, v.Metadata.CriticalImpersonation)
	assert.Equal(t, "mismatch", v.Metadata.BrandImpersonationReason)
}

func TestAnalyzeEmptyContent(t *testing.T) {
	p := newPipeline(&fakeNormalizer{text: "  "}, BrandImpersonationVerdict{})

	_, err := p.service.Analyze(context.Background(), URLInput("https://example.com"))
	require.Error(t, err)
	assert.True(t, IsInputError(err))
	assert.True(t, errors.Is(err, ErrNoContent))
}

func TestAnalyzeEmptyImageContinues(t *testing.T) {
	p := newPipeline(&fakeNormalizer{text: ""}, BrandImpersonationVerdict{})

	v, err := p.service.Analyze(context.Background(), ImageInput([]byte{0x89, 'P', 'N', 'G'}, "x.png"))
	require.NoError(t, err)
	assert.Contains(t, v.Explanation, lowOCRAdvice)
	assert.Equal(t, SourceImage, v.SourceType)
	assert.Equal(t, 1, p.classifier.calls)
}

func TestAnalyzeErrors(t *testing.T) {
	p := newPipeline(&fakeNormalizer{text: "x"}, BrandImpersonationVerdict{})
	_, err := p.service.Analyze(context.Background(), TextInput(""))
	assert.ErrorIs(t, err, ErrEmptyInput)

	boom := errors.New("boom")
	p = newPipeline(&fakeNormalizer{err: boom}, BrandImpersonationVerdict{})
	_, err = p.service.Analyze(context.Background(), TextInput("hello"))
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsInputError(err))
}
