package heuristics

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/domainutil"
	"github.com/mikey/llm-fraud-checker/internal/utils"
)

// Patterns run against accent-folded lowercase text
var (
	urgencyPattern   = regexp.MustCompile(`(urgente|bloquead[oa]|suspens[ao]|24h|2 horas|imediatamente|encerrada permanentemente|alerta severo)`)
	sensitivePattern = regexp.MustCompile(`(clique|confirm(e|ar)|atualiz(e|ar)|senha|token|codigo|pix|documento|foto|selfie|whatsapp|wa\.me)`)
	prizePattern     = regexp.MustCompile(`(sorteio|premio|ganhador|ganhe|parabens|clique\s+e\s+participe|resgate|promocao|vencedor)`)
	prizeCallPattern = regexp.MustCompile(`(sorteio|premio|ganhador|ganhe|parabens|participe|resgate|receba agora|promocao|vencedor)`)
)

var (
	shortenerDomains = []string{"bit.ly", "tinyurl.com", "t.co", "is.gd", "cutt.ly", "ow.ly", "buff.ly", "goo.gl"}
	trackingDomains  = []string{"p-email.net", "pontaltech.com.br", "sendgrid.net", "mailchimpapp.com", "mandrillapp.com", "click.email", "emltrk.com"}
	safeDomains      = []string{"bb.com.br", "bancobrasil.com.br", "itau.com.br", "gmail.com", "outlook.com", "gov.br", "nubank.com.br", "bradesco.com.br"}
	formalMarkers    = []string{"atenciosamente", "att.", "assinado digitalmente", "confidencialidade:", "assinatura eletronica"}
)

// highSeverityTokens is the lottery/prize/urgent-account vocabulary, folded
var highSeverityTokens = []string{
	"sorteio", "premio", "ganhador", "ganhe", "parabens",
	"clique e participe", "clique para participar", "resgatar premio", "resgate",
	"receba agora", "promocao", "vencedor",
	"confirme sua senha", "token", "pix", "atualize sua conta", "bloqueado", "suspenso",
}

const (
	lowOCRChars       = 20
	longTextRunes     = 80
	brandFlagFallback = "Brand impersonation."
)

// HasHighSeverityToken reports whether text contains any high-severity token
func HasHighSeverityToken(text string) bool {
	return countHighSeverity(utils.Fold(text)) > 0
}

// HasSensitiveRequest reports whether text asks for a sensitive action
func HasSensitiveRequest(text string) bool {
	return sensitivePattern.MatchString(utils.Fold(text))
}

// HasPrizeCall reports prize, raffle or call-to-participate wording
func HasPrizeCall(text string) bool {
	return prizeCallPattern.MatchString(utils.Fold(text))
}

func countHighSeverity(folded string) int {
	n := 0
	for _, tok := range highSeverityTokens {
		if strings.Contains(folded, tok) {
			n++
		}
	}
	return n
}

// signals is the per-call view the rules evaluate
type signals struct {
	raw    string
	folded string
	meta   *core.Metadata
}

func (s *signals) image() bool {
	return s.meta.SourceType == core.SourceImage
}

func (s *signals) anyLinkDomain(set []string) bool {
	for _, d := range s.meta.LinkDomains {
		d = domainutil.Normalize(d)
		for _, candidate := range set {
			if d == candidate {
				return true
			}
		}
	}
	return false
}

// rule is one weighted red-flag predicate. evidence, when set, overrides flag.
type rule struct {
	name     string
	weight   float64
	flag     string
	match    func(s *signals) bool
	evidence func(s *signals) string
}

// benign is one weighted offset signal
type benign struct {
	name   string
	weight float64
	note   string
	match  func(s *signals) bool
}

// redFlagRules are evaluated and reported in table order
var redFlagRules = []rule{
	{
		name: "urgency", weight: 0.22, flag: "Urgent or threatening tone.",
		match: func(s *signals) bool { return urgencyPattern.MatchString(s.folded) },
	},
	{
		name: "sensitive_action", weight: 0.25, flag: "Request for a sensitive action or external contact.",
		match: func(s *signals) bool { return sensitivePattern.MatchString(s.folded) },
	},
	{
		name: "shortener", weight: 0.18, flag: "Uses a link shortener.",
		match: func(s *signals) bool { return s.anyLinkDomain(shortenerDomains) },
	},
	{
		name: "unreachable", weight: 0.12, flag: "Link is unreachable.",
		match: func(s *signals) bool {
			accessible, known := s.meta.Accessible()
			return known && !accessible
		},
	},
	{
		name: "suspicious_tld", weight: 0.15, flag: "Sender domain uses an unusual TLD.",
		match: func(s *signals) bool { return s.meta.FromDomainSuspect },
	},
	{
		name: "tracking", weight: 0.06, flag: "Tracking/ESP links.",
		match: func(s *signals) bool { return s.anyLinkDomain(trackingDomains) },
	},
	{
		name: "low_ocr_text", weight: 0.05, flag: "Low OCR text: little or no text recognised in the image.",
		match: func(s *signals) bool { return s.image() && s.meta.OCRTextLen < lowOCRChars },
	},
	{
		name: "prize_bait", weight: 0.22, flag: "Prize/raffle/call-to-action bait.",
		match: func(s *signals) bool { return prizePattern.MatchString(s.folded) },
	},
	{
		name: "brand_impersonation", weight: 0.30, flag: brandFlagFallback,
		match: func(s *signals) bool { return s.meta.BrandImpersonationDetected },
		evidence: func(s *signals) string {
			if s.meta.BrandImpersonationReason != "" {
				return s.meta.BrandImpersonationReason
			}
			return brandFlagFallback
		},
	},
	{
		name: "image_prize_bait", weight: 0.18, flag: "Suspicious promotional image (visual phishing).",
		match: func(s *signals) bool { return s.image() && prizePattern.MatchString(s.folded) },
	},
}

// benignSignals are subtracted from the raw score, reported in table order
var benignSignals = []benign{
	{
		name: "stable_https", weight: 0.15, note: "Stable HTTPS link (2xx).",
		match: func(s *signals) bool {
			return s.meta.CleanSuccess() && strings.HasPrefix(strings.ToLower(s.meta.TargetURL()), "https://")
		},
	},
	{
		name: "safe_domain", weight: 0.20, note: "Known/expected domain.",
		match: func(s *signals) bool {
			host := domainutil.HostOf(s.meta.TargetURL())
			return host != "" && domainutil.BelongsToAny(host, safeDomains)
		},
	},
	{
		name: "domain_whitelisted", weight: 0.30, note: "Domain is whitelisted.",
		match: func(s *signals) bool { return s.meta.DomainWhitelisted },
	},
	{
		name: "phrase_whitelisted", weight: 0.20, note: "Phrase is whitelisted.",
		match: func(s *signals) bool { return s.meta.PhraseWhitelisted },
	},
	{
		name: "formal_language", weight: 0.05, note: "Formal language / corporate signature.",
		match: func(s *signals) bool {
			for _, m := range formalMarkers {
				if strings.Contains(s.folded, m) {
					return true
				}
			}
			return false
		},
	},
	{
		name: "no_sensitive_action", weight: 0.10, note: "No sensitive action requested.",
		match: func(s *signals) bool { return !sensitivePattern.MatchString(s.folded) },
	},
	{
		name: "no_links", weight: 0.10, note: "No links in the body text.",
		match: func(s *signals) bool {
			return utf8.RuneCountInString(s.raw) > longTextRunes && !strings.Contains(s.folded, "http")
		},
	},
}
