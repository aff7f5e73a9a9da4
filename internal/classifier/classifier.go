package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/metrics"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"go.uber.org/zap"
)

const systemPrompt = `You are an extremely cautious fraud analyst.
Label "suspicious" ONLY when there are at least 2 consistent risk signals.
Label "fraud" when there are at least 3 signals or critical technical evidence,
such as brand impersonation (the message claims to come from a well-known brand but the sender domain is not official).
Relevant signals: urgency, requests for sensitive actions, WhatsApp links (wa.me), tracking/ESP domains, a divergent reply-to,
brand impersonation, links to non-official domains.
Benign signals (whitelisted domain, https 2xx without odd redirects, no sensitive request) reduce risk.
Reply STRICTLY in JSON:
{ "label": "ok|suspicious|fraud", "risk_score_llm": 0..1, "confidence_llm": 0..1, "red_flags": ["..."], "explanation": "...", "actions": ["..."] }`

const userPromptPrefix = "Analyse the content and the signals below and classify the risk:\n\n"

// sensitive-request vocabulary that blocks dampening, matched on folded text
var dampenBlockers = regexp.MustCompile(`(senha|token|codigo|pix|documento|selfie)`)

// Config holds the classifier adapter settings
type Config struct {
	Timeout         time.Duration
	CacheTTL        time.Duration
	ExcerptRunes    int
	MaxLinkDomains  int
	CacheTextRunes  int
	DampeningFactor float64
	// SoftenBelow is the dampened risk under which a non-fraud label becomes ok
	SoftenBelow float64
}

// DefaultConfig returns the standard adapter settings
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		CacheTTL:        12 * time.Hour,
		ExcerptRunes:    1200,
		MaxLinkDomains:  80,
		CacheTextRunes:  20000,
		DampeningFactor: 0.7,
		SoftenBelow:     0.4,
	}
}

// Adapter is the external classifier adapter. A nil LLM client is the
// disabled configuration and always yields the default verdict.
type Adapter struct {
	client core.LLMClient
	cache  *core.ResultCache
	text   *utils.TextProcessor
	cfg    Config
	logger *zap.Logger
}

// NewAdapter creates a new classifier adapter
func NewAdapter(client core.LLMClient, cache *core.ResultCache, text *utils.TextProcessor, cfg Config, logger *zap.Logger) *Adapter {
	return &Adapter{
		client: client,
		cache:  cache,
		text:   text,
		cfg:    cfg,
		logger: logger,
	}
}

// Classify asks the external classifier for a verdict on the signal summary.
// It never fails: transport errors, timeouts and malformed answers all
// resolve to a valid ClassifierResult.
func (a *Adapter) Classify(ctx context.Context, text string, meta *core.Metadata) core.ClassifierResult {
	if a.client == nil {
		metrics.ClassifierDegraded.WithLabelValues("disabled").Inc()
		return DefaultVerdict("Classifier disabled.")
	}

	summary := BuildSignalSummary(text, meta, a.text, a.cfg.ExcerptRunes, a.cfg.MaxLinkDomains)
	payload, err := json.Marshal(summary)
	if err != nil {
		a.logger.Error("Failed to encode signal summary", zap.Error(err))
		metrics.ClassifierDegraded.WithLabelValues("encode").Inc()
		return DefaultVerdict("Classifier unavailable.")
	}

	key := a.cacheKey(text, summary.SourceType, payload)

	var result core.ClassifierResult
	if !a.cache.Load(ctx, "classifier", key, &result) {
		result = a.ask(ctx, payload)
		if result.Degraded {
			return result
		}
		a.cache.Store(ctx, "classifier", key, result, a.cfg.CacheTTL)
	}

	return a.dampen(result, summary)
}

// ask performs the transport call
func (a *Adapter) ask(ctx context.Context, payload []byte) core.ClassifierResult {
	callCtx := ctx
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	raw, err := a.client.Complete(callCtx, core.Prompt{
		System: systemPrompt,
		User:   userPromptPrefix + string(payload),
	})
	if err != nil {
		reason := "error"
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		a.logger.Warn("Classifier call failed, using default verdict",
			zap.String("model", a.client.Name()),
			zap.String("reason", reason),
			zap.Error(err))
		metrics.ClassifierDegraded.WithLabelValues(reason).Inc()
		return DefaultVerdict("Classifier unavailable; using the default verdict.")
	}

	result, ok := ParseVerdict(raw)
	if !ok {
		a.logger.Warn("Classifier answer was not JSON", zap.String("model", a.client.Name()))
		metrics.ClassifierDegraded.WithLabelValues("parse").Inc()
	}
	result.ModelUsed = a.client.Name()
	return result
}

// dampen lowers the risk for trusted, cleanly served content without any
// sensitive request in the excerpt
func (a *Adapter) dampen(result core.ClassifierResult, s SignalSummary) core.ClassifierResult {
	if !s.DomainWhitelisted || !s.HTTPS2xxNoChain || dampenBlockers.MatchString(utils.Fold(s.ContentExcerpt)) {
		return result
	}

	result.Risk = clamp(result.Risk * a.cfg.DampeningFactor)
	if result.Risk < a.cfg.SoftenBelow && result.Label != core.LabelFraud {
		result.Label = core.LabelOK
	}
	return result
}

func (a *Adapter) cacheKey(text string, source core.SourceType, summary []byte) string {
	material := string(source) + "|" + a.text.TruncateRunes(text, a.cfg.CacheTextRunes, "") + "|" + string(summary)
	return core.Fingerprint("llm:", []byte(material))
}
