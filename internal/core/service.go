package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/llm-fraud-checker/internal/metrics"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"go.uber.org/zap"
)

const (
	snippetRunes = 1000
	lowOCRAdvice = "No readable text was found in the image; try uploading a sharper or larger image."
)

// AnalyzerService is the core service running the risk-scoring pipeline
type AnalyzerService struct {
	normalizer Normalizer
	whitelist  WhitelistMatcher
	brands     BrandGuard
	heuristics HeuristicEngine
	classifier Classifier
	fuser      Fuser
	text       *utils.TextProcessor
	logger     *zap.Logger
	now        func() time.Time
}

// NewAnalyzerService creates a new analyzer service. whitelist may be nil.
func NewAnalyzerService(
	normalizer Normalizer,
	whitelist WhitelistMatcher,
	brands BrandGuard,
	heuristics HeuristicEngine,
	classifier Classifier,
	fuser Fuser,
	text *utils.TextProcessor,
	logger *zap.Logger,
) *AnalyzerService {
	return &AnalyzerService{
		normalizer: normalizer,
		whitelist:  whitelist,
		brands:     brands,
		heuristics: heuristics,
		classifier: classifier,
		fuser:      fuser,
		text:       text,
		logger:     logger,
		now:        time.Now,
	}
}

// Analyze runs one input through the whole pipeline. Only input errors and
// unexpected internal failures are returned; collaborator failures degrade.
func (s *AnalyzerService) Analyze(ctx context.Context, in AnalysisInput) (*FusedVerdict, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	started := s.now()

	text, meta, err := s.normalizer.Normalize(ctx, in)
	observe("normalize", started)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = &Metadata{}
	}
	meta.SourceType = in.Kind

	// An unreadable image is evidence in itself, every other empty source is an input error
	if strings.TrimSpace(text) == "" && in.Kind != SourceImage {
		return nil, NewInputError("Could not extract any text to analyse from the provided content.", ErrNoContent)
	}

	if s.whitelist != nil {
		s.whitelist.Apply(text, meta)
	}

	brand := s.brands.Check(meta, text)
	meta.BrandImpersonationDetected = brand.Detected
	meta.CriticalImpersonation = brand.CriticalImpersonation
	meta.BrandImpersonationReason = brand.Reason

	verdict, overridden := s.fuser.Override(meta, text)
	if overridden {
		metrics.Overrides.WithLabelValues(verdict.Override).Inc()
		s.logger.Info("Verdict decided by override rule",
			zap.String("rule", verdict.Override),
			zap.String("source", string(in.Kind)),
			zap.String("brand", brand.BrandKey))
	} else {
		stage := s.now()
		h := s.heuristics.Score(text, meta)
		observe("heuristics", stage)

		stage = s.now()
		c := s.classifier.Classify(ctx, text, meta)
		observe("classifier", stage)

		verdict = s.fuser.Fuse(h, c, meta, in.Kind, text)
	}

	if in.Kind == SourceImage && strings.TrimSpace(text) == "" {
		if verdict.Explanation == "" {
			verdict.Explanation = lowOCRAdvice
		} else {
			verdict.Explanation += " " + lowOCRAdvice
		}
	}

	verdict.AnalysisID = uuid.NewString()
	verdict.SourceType = in.Kind
	verdict.Snippet = s.text.TruncateRunes(text, snippetRunes, "…")
	verdict.Metadata = meta
	verdict.AnalyzedAt = s.now()

	metrics.Analyses.WithLabelValues(string(in.Kind), string(verdict.Label)).Inc()
	observe("total", started)

	s.logger.Info("Analysis completed",
		zap.String("analysis_id", verdict.AnalysisID),
		zap.String("source", string(in.Kind)),
		zap.String("label", string(verdict.Label)),
		zap.Float64("risk_pct", verdict.RiskPct),
		zap.Float64("confidence_pct", verdict.ConfidencePct),
		zap.Int("red_flags", len(verdict.RedFlags)),
		zap.Duration("elapsed", time.Since(started)))

	return verdict, nil
}

func observe(stage string, since time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(since).Seconds())
}
