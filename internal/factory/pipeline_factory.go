package factory

import (
	"fmt"

	"github.com/mikey/llm-fraud-checker/internal/adapters/fetch"
	"github.com/mikey/llm-fraud-checker/internal/adapters/mailparse"
	"github.com/mikey/llm-fraud-checker/internal/brandguard"
	"github.com/mikey/llm-fraud-checker/internal/classifier"
	"github.com/mikey/llm-fraud-checker/internal/config"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/fusion"
	"github.com/mikey/llm-fraud-checker/internal/heuristics"
	"github.com/mikey/llm-fraud-checker/internal/normalizer"
	"github.com/mikey/llm-fraud-checker/internal/ocr"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"github.com/mikey/llm-fraud-checker/internal/whitelist"
	"go.uber.org/zap"
)

// PipelineFactory builds the analysis stages from configuration
type PipelineFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewPipelineFactory creates a new pipeline factory
func NewPipelineFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *PipelineFactory {
	return &PipelineFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// OCRConfig maps the ocr.* keys onto the engine settings
func (f *PipelineFactory) OCRConfig() ocr.Config {
	c := f.cfg.GetOCR()
	return ocr.Config{
		EarlyConfidence: c.EarlyConfidence,
		EarlyMinChars:   c.EarlyMinChars,
		Upscale:         c.Upscale,
		Language:        c.Language,
		CharWhitelist:   c.CharWhitelist,
		WhitelistBonus:  c.WhitelistBonus,
		DebugDir:        c.DebugDir,
	}
}

// CreateOCREngine creates the OCR engine on top of a recognition backend
func (f *PipelineFactory) CreateOCREngine(backend ocr.Backend) *ocr.Engine {
	return ocr.NewEngine(backend, f.OCRConfig(), f.logger)
}

// CreateFetcher creates the URL fetcher
func (f *PipelineFactory) CreateFetcher() *fetch.Fetcher {
	c := f.cfg.GetFetch()
	fc := fetch.DefaultConfig()
	fc.Timeout = c.Timeout
	if c.MaxBodyBytes > 0 {
		fc.MaxBodyBytes = c.MaxBodyBytes
	}
	if c.MaxRedirects > 0 {
		fc.MaxRedirects = c.MaxRedirects
	}
	if c.UserAgent != "" {
		fc.UserAgent = c.UserAgent
	}
	return fetch.NewFetcher(fc, f.textProcessor, f.logger)
}

// CreateEmailParser creates the email parser
func (f *PipelineFactory) CreateEmailParser() *mailparse.Parser {
	return mailparse.NewParser(mailparse.DefaultConfig(), f.textProcessor, f.logger)
}

// CreateNormalizer creates the content normalizer
func (f *PipelineFactory) CreateNormalizer(fetcher core.Fetcher, engine core.OCREngine, parser core.EmailParser, results *core.ResultCache) *normalizer.Normalizer {
	o := f.cfg.GetOCR()
	c := f.cfg.GetCache()

	nc := normalizer.DefaultConfig()
	nc.OCRMode = o.Mode
	nc.OCRBudget = o.TimeBudget
	nc.URLTTL = c.URLTTL
	nc.ImageTTL = c.ImageTTL
	nc.EmailTTL = c.EmailTTL
	return normalizer.NewNormalizer(fetcher, engine, parser, results, f.textProcessor, nc, f.logger)
}

// CreateWhitelist loads the whitelist store seeded with the server's
// whitelisted domains
func (f *PipelineFactory) CreateWhitelist() (*whitelist.Store, error) {
	store, err := whitelist.NewStore(f.cfg.GetStores().WhitelistPath, f.cfg.GetServer().WhitelistedDomains, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load whitelist: %w", err)
	}
	return store, nil
}

// CreateBrandGuard loads the brand allowlist and creates the guard
func (f *PipelineFactory) CreateBrandGuard() *brandguard.Guard {
	allowlist := brandguard.LoadAllowlist(f.cfg.GetStores().AllowlistPath, f.logger)
	return brandguard.NewGuard(allowlist, f.logger)
}

// CreateHeuristics creates the heuristic engine
func (f *PipelineFactory) CreateHeuristics() *heuristics.Engine {
	return heuristics.NewEngine(f.logger)
}

// ClassifierConfig maps the llm.*, cache.* and classifier.* keys onto the adapter settings
func (f *PipelineFactory) ClassifierConfig() classifier.Config {
	cc := classifier.DefaultConfig()
	cc.Timeout = f.cfg.GetLLM().Timeout
	cc.CacheTTL = f.cfg.GetCache().ClassifierTTL

	c := f.cfg.GetClassifier()
	if c.DampeningFactor > 0 {
		cc.DampeningFactor = c.DampeningFactor
	}
	if c.ExcerptChars > 0 {
		cc.ExcerptRunes = c.ExcerptChars
	}
	return cc
}

// CreateClassifier creates the classifier adapter. A nil client is the
// disabled configuration.
func (f *PipelineFactory) CreateClassifier(client core.LLMClient, results *core.ResultCache) *classifier.Adapter {
	return classifier.NewAdapter(client, results, f.textProcessor, f.ClassifierConfig(), f.logger)
}

// FusionConfig maps the fusion.* keys onto the fuser settings
func (f *PipelineFactory) FusionConfig() fusion.Config {
	c := f.cfg.GetFusion()
	fc := fusion.DefaultConfig()
	fc.HeuristicWeight = c.HeuristicWeight
	fc.ClassifierWeight = c.ClassifierWeight
	fc.SeverityBoost = c.SeverityBoost
	fc.BrandBoost = c.BrandBoost
	fc.FraudThreshold = c.FraudThreshold
	fc.SuspiciousThreshold = c.SuspiciousThreshold
	if c.MaxRedFlags > 0 {
		fc.MaxRedFlags = c.MaxRedFlags
	}
	if c.MaxActions > 0 {
		fc.MaxActions = c.MaxActions
	}
	return fc
}

// CreateFuser creates the score fuser
func (f *PipelineFactory) CreateFuser() *fusion.Fuser {
	return fusion.NewFuser(f.FusionConfig(), f.logger)
}
