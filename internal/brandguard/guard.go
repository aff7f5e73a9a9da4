package brandguard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/domainutil"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"go.uber.org/zap"
)

// brandPattern maps a canonical brand key to its mention pattern. Patterns
// run against accent-folded lowercase text.
type brandPattern struct {
	key     string
	display string
	re      *regexp.Regexp
}

func word(alternatives string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[^\p{L}\p{N}])(` + alternatives + `)([^\p{L}\p{N}]|$)`)
}

// patterns are evaluated in this order, which fixes which brand is reported
// when several are mentioned
var patterns = []brandPattern{
	{"tim", "TIM", word(`tim`)},
	{"claro", "CLARO", word(`claro`)},
	{"vivo", "VIVO", word(`vivo`)},
	{"oi", "OI", word(`oi`)},
	{"paypal", "PAYPAL", word(`paypal`)},
	{"itau", "ITAU", word(`itau`)},
	{"bradesco", "BRADESCO", word(`bradesco`)},
	{"santander", "SANTANDER", word(`santander`)},
	{"banco_do_brasil", "BANCO DO BRASIL", word(`banco do brasil|bancodobrasil|bb`)},
	{"caixa", "CAIXA", word(`caixa`)},
	{"nubank", "NUBANK", word(`nubank`)},
	{"picpay", "PICPAY", word(`picpay`)},
	{"mercado_pago", "MERCADO PAGO", word(`mercado ?pago`)},
	{"mercado_livre", "MERCADO LIVRE", word(`mercado ?livre`)},
	{"serasa", "SERASA", word(`serasa`)},
	{"c6bank", "C6 BANK", word(`c6 ?bank`)},
}

// Guard detects brand impersonation by comparing brand mentions with the
// sender's registered domains
type Guard struct {
	allowlist *Allowlist
	logger    *zap.Logger
}

// NewGuard creates a new brand guard
func NewGuard(allowlist *Allowlist, logger *zap.Logger) *Guard {
	if allowlist == nil {
		allowlist = DefaultAllowlist()
	}
	return &Guard{
		allowlist: allowlist,
		logger:    logger,
	}
}

// Mentions returns the brand keys mentioned in text, in pattern order
func Mentions(text string) []string {
	folded := utils.Fold(text)
	var found []string
	for _, p := range patterns {
		if p.re.MatchString(folded) {
			found = append(found, p.key)
		}
	}
	return found
}

// Check scans sender, subject and body for brand mentions and verifies the
// sender and reply-to registered domains against the official ones
func (g *Guard) Check(meta *core.Metadata, text string) core.BrandImpersonationVerdict {
	if meta == nil {
		meta = &core.Metadata{}
	}

	scan := strings.Join([]string{meta.From, meta.Subject, text}, " ")
	mentioned := Mentions(scan)
	if len(mentioned) == 0 {
		return core.BrandImpersonationVerdict{}
	}

	fromReg := registered(meta.FromRegisteredDomain, meta.FromDomain)
	replyReg := registered(meta.ReplyToRegisteredDomain, meta.ReplyToDomain)

	confirmed := fromReg != ""
	for _, key := range mentioned {
		official := g.allowlist.Official(key)
		if len(official) == 0 {
			confirmed = false
			continue
		}

		if fromReg != "" && !domainutil.BelongsToAny(fromReg, official) {
			return g.critical(key, fromReg, official,
				fmt.Sprintf("Brand impersonation: '%s' mentioned, but the sender is '%s', outside the official domains %s.",
					display(key), fromReg, formatDomains(official)))
		}
		if replyReg != "" && !domainutil.BelongsToAny(replyReg, official) {
			return g.critical(key, replyReg, official,
				fmt.Sprintf("Brand impersonation: reply-to '%s' does not belong to the official domains %s of '%s'.",
					replyReg, formatDomains(official), display(key)))
		}
	}

	first := mentioned[0]
	verdict := core.BrandImpersonationVerdict{
		Detected:        true,
		BrandKey:        first,
		ClaimedDomain:   fromReg,
		OfficialDomains: g.allowlist.Official(first),
	}

	// every mentioned brand is backed by its official sending domain
	if confirmed {
		g.logger.Debug("Brand mention sent from official domain",
			zap.Strings("brands", mentioned),
			zap.String("from_domain", fromReg))
		verdict.Reason = fmt.Sprintf("Brand '%s' mentioned by its official domain '%s'.", display(first), fromReg)
		return verdict
	}

	verdict.Reason = fmt.Sprintf("Brand '%s' mentioned without proof of an official sender domain.", display(first))
	return verdict
}

func (g *Guard) critical(key, claimed string, official []string, reason string) core.BrandImpersonationVerdict {
	g.logger.Info("Critical brand impersonation detected",
		zap.String("brand", key),
		zap.String("claimed_domain", claimed),
		zap.Strings("official_domains", official))

	return core.BrandImpersonationVerdict{
		Detected:              true,
		BrandKey:              key,
		CriticalImpersonation: true,
		ClaimedDomain:         claimed,
		OfficialDomains:       official,
		Reason:                reason,
	}
}

func registered(reg, domain string) string {
	if reg != "" {
		return domainutil.Normalize(reg)
	}
	return domainutil.RegisteredDomain(domain)
}

func display(key string) string {
	for _, p := range patterns {
		if p.key == key {
			return p.display
		}
	}
	return strings.ToUpper(strings.ReplaceAll(key, "_", " "))
}

func formatDomains(domains []string) string {
	return "[" + strings.Join(domains, ", ") + "]"
}
