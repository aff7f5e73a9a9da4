package fusion

import (
	"math"

	"github.com/mikey/llm-fraud-checker/internal/brandguard"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/heuristics"
	"go.uber.org/zap"
)

// Override rule names reported on the verdict
const (
	RuleCriticalImpersonation = "critical_impersonation"
	RuleImagePrizeBrand       = "image_prize_brand"
)

var (
	fraudActions = []string{
		"Do not click any links or open attachments.",
		"Do not reply to the sender.",
		"Report it to your provider's security/abuse team.",
		"If you shared any data, change your passwords and monitor your accounts.",
	}
	suspiciousActions = []string{
		"Be wary: verify on the official website or app.",
		"Avoid clicking until legitimacy is confirmed.",
		"Check the sender, the domain and the spelling.",
	}
	criticalActions = []string{
		"Do not click any link.",
		"Do not reply to the email.",
		"Report it to your provider's security/abuse team.",
		"If you shared any data, change your passwords and contact the official support.",
	}
	imagePrizeActions = []string{
		"Do not open links or QR codes from this material.",
		"Check campaigns on the brand's official website or app.",
		"Report this content to your security team.",
	}
)

const (
	criticalFallbackFlag = "Brand impersonation detected."
	imageBrandFallback   = "Brand mentioned in the artwork."
)

// Config holds the fusion weights. The values are tuning constants, not
// derived quantities.
type Config struct {
	HeuristicWeight      float64
	ClassifierWeight     float64
	SeverityBoost        float64
	BrandBoost           float64
	FraudThreshold       float64
	SuspiciousThreshold  float64
	ClassifierConfWeight float64
	AgreementWeight      float64
	MaxRedFlags          int
	MaxActions           int

	CriticalRiskPct       float64
	CriticalConfidencePct float64
	ImageRiskPct          float64
	ImageConfidencePct    float64
}

// DefaultConfig returns the standard fusion settings
func DefaultConfig() Config {
	return Config{
		HeuristicWeight:       0.55,
		ClassifierWeight:      0.45,
		SeverityBoost:         0.08,
		BrandBoost:            0.06,
		FraudThreshold:        0.60,
		SuspiciousThreshold:   0.35,
		ClassifierConfWeight:  0.6,
		AgreementWeight:       0.4,
		MaxRedFlags:           12,
		MaxActions:            10,
		CriticalRiskPct:       95,
		CriticalConfidencePct: 90,
		ImageRiskPct:          92,
		ImageConfidencePct:    82,
	}
}

// Fuser combines heuristic and classifier outputs into the final verdict
type Fuser struct {
	cfg    Config
	logger *zap.Logger
}

// NewFuser creates a new score fuser
func NewFuser(cfg Config, logger *zap.Logger) *Fuser {
	return &Fuser{cfg: cfg, logger: logger}
}

// Override evaluates the absolute rules that decide the verdict without
// blending. They run before any detector score is consulted.
func (f *Fuser) Override(meta *core.Metadata, text string) (*core.FusedVerdict, bool) {
	if meta == nil {
		return nil, false
	}

	if meta.CriticalImpersonation {
		flag := meta.BrandImpersonationReason
		if flag == "" {
			flag = criticalFallbackFlag
		}
		return &core.FusedVerdict{
			Label:         core.LabelFraud,
			RiskPct:       f.cfg.CriticalRiskPct,
			ConfidencePct: f.cfg.CriticalConfidencePct,
			RedFlags:      []string{flag},
			BenignNotes:   []string{},
			Actions:       clone(criticalActions),
			Explanation:   "Fraud confirmed by brand impersonation (critical rule).",
			Override:      RuleCriticalImpersonation,
		}, true
	}

	if meta.SourceType == core.SourceImage && heuristics.HasPrizeCall(text) &&
		(meta.BrandImpersonationDetected || len(brandguard.Mentions(text)) > 0) {
		reason := meta.BrandImpersonationReason
		if reason == "" {
			reason = imageBrandFallback
		}
		return &core.FusedVerdict{
			Label:         core.LabelFraud,
			RiskPct:       f.cfg.ImageRiskPct,
			ConfidencePct: f.cfg.ImageConfidencePct,
			RedFlags: []string{
				reason,
				"Image contains prize/raffle/call-to-action triggers.",
				"Visual phishing without proof of an official domain.",
			},
			BenignNotes: []string{},
			Actions:     clone(imagePrizeActions),
			Explanation: "Fraud by visual phishing (brand plus prize/raffle/call-to-action detected).",
			Override:    RuleImagePrizeBrand,
		}, true
	}

	return nil, false
}

// Fuse blends the heuristic and classifier results. Override rules are
// honoured first, so callers may skip calling Override themselves.
func (f *Fuser) Fuse(h core.HeuristicResult, c core.ClassifierResult, meta *core.Metadata, source core.SourceType, text string) *core.FusedVerdict {
	if meta == nil {
		meta = &core.Metadata{SourceType: source}
	}
	if v, ok := f.Override(meta, text); ok {
		return v
	}

	highSeverity := heuristics.HasHighSeverityToken(text)

	risk := f.cfg.HeuristicWeight*h.Score + f.cfg.ClassifierWeight*c.Risk
	if highSeverity {
		risk += f.cfg.SeverityBoost
	}
	if meta.BrandImpersonationDetected {
		risk += f.cfg.BrandBoost
	}
	risk = clamp(risk)

	confidence := clamp(f.cfg.ClassifierConfWeight*c.Confidence +
		f.cfg.AgreementWeight*(1-math.Abs(h.Score-c.Risk)))

	var label core.Label
	switch {
	case risk >= f.cfg.FraudThreshold:
		label = core.LabelFraud
	case risk >= f.cfg.SuspiciousThreshold || highSeverity:
		label = core.LabelSuspicious
	default:
		label = core.LabelOK
	}

	// a whitelisted domain served cleanly with no sensitive request is never fraud
	if label == core.LabelFraud && f.trustedClean(meta, text) {
		label = core.LabelSuspicious
		risk = math.Min(risk, f.cfg.FraudThreshold-0.01)
		f.logger.Debug("Fraud label capped for trusted clean source")
	}

	actions := append(template(label), c.Actions...)

	verdict := &core.FusedVerdict{
		Label:         label,
		RiskPct:       pct(risk),
		ConfidencePct: pct(confidence),
		RedFlags:      dedupe(f.cfg.MaxRedFlags, h.RedFlags, c.RedFlags),
		BenignNotes:   dedupe(0, h.BenignNotes),
		Actions:       dedupe(f.cfg.MaxActions, actions),
		Explanation:   c.Explanation,
	}

	f.logger.Debug("Scores fused",
		zap.Float64("heuristic", h.Score),
		zap.Float64("classifier", c.Risk),
		zap.Float64("risk", risk),
		zap.Float64("confidence", confidence),
		zap.Bool("high_severity", highSeverity),
		zap.String("label", string(label)))

	return verdict
}

func (f *Fuser) trustedClean(meta *core.Metadata, text string) bool {
	return meta.DomainWhitelisted && meta.CleanSuccess() && !heuristics.HasSensitiveRequest(text)
}

func template(label core.Label) []string {
	switch label {
	case core.LabelFraud:
		return clone(fraudActions)
	case core.LabelSuspicious:
		return clone(suspiciousActions)
	default:
		return []string{}
	}
}

// dedupe concatenates the lists, drops blanks and repeats keeping the first
// occurrence, and caps the result when limit > 0
func dedupe(limit int, lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, list := range lists {
		for _, s := range list {
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
			if limit > 0 && len(out) == limit {
				return out
			}
		}
	}
	return out
}

func pct(v float64) float64 {
	return math.Round(clamp(v)*1000) / 10
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clone(list []string) []string {
	return append([]string(nil), list...)
}
