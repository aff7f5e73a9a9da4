package classifier

import (
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/domainutil"
	"github.com/mikey/llm-fraud-checker/internal/utils"
)

var (
	messagingDomains = []string{"wa.me", "whatsapp.com", "t.me", "telegram.me"}
	trackingDomains  = []string{"p-email.net", "pontaltech.com.br", "sendgrid.net", "mailchimpapp.com", "mandrillapp.com"}
)

// SignalSummary is the compact structured extract sent to the classifier in
// place of the raw content
type SignalSummary struct {
	SourceType              core.SourceType `json:"source_type"`
	Subject                 string          `json:"subject"`
	From                    string          `json:"from"`
	FromRegisteredDomain    string          `json:"from_registered_domain"`
	ReplyTo                 string          `json:"reply_to"`
	ReplyToRegisteredDomain string          `json:"reply_to_registered_domain"`
	LinkDomains             []string        `json:"link_domains"`
	HasMessagingLink        bool            `json:"has_whatsapp_link"`
	HasTrackingDomains      bool            `json:"has_tracking_domains"`
	DomainWhitelisted       bool            `json:"domain_whitelisted"`
	PhraseWhitelisted       bool            `json:"phrase_whitelisted"`
	URLAccessible           *bool           `json:"url_accessible"`
	HTTPS2xxNoChain         bool            `json:"https_2xx_no_chain"`
	FinalURL                string          `json:"final_url"`
	OCRTextLen              int             `json:"ocr_text_len"`
	BrandImpersonation      bool            `json:"brand_impersonation_detected"`
	BrandImpersonationNote  string          `json:"brand_impersonation_reason"`
	ContentExcerpt          string          `json:"content_excerpt"`
}

// BuildSignalSummary extracts the classifier signals from text and metadata.
// Link domains keep their first-seen order and are capped at maxDomains.
func BuildSignalSummary(text string, meta *core.Metadata, tp *utils.TextProcessor, excerptRunes, maxDomains int) SignalSummary {
	if meta == nil {
		meta = &core.Metadata{}
	}

	domains := utils.AppendUnique(make([]string, 0, len(meta.LinkDomains)), maxDomains, meta.LinkDomains...)

	s := SignalSummary{
		SourceType:              meta.SourceType,
		Subject:                 meta.Subject,
		From:                    meta.From,
		FromRegisteredDomain:    meta.FromRegisteredDomain,
		ReplyTo:                 meta.ReplyTo,
		ReplyToRegisteredDomain: meta.ReplyToRegisteredDomain,
		LinkDomains:             domains,
		DomainWhitelisted:       meta.DomainWhitelisted,
		PhraseWhitelisted:       meta.PhraseWhitelisted,
		URLAccessible:           meta.URLAccessible,
		HTTPS2xxNoChain:         meta.CleanSuccess(),
		FinalURL:                meta.TargetURL(),
		OCRTextLen:              meta.OCRTextLen,
		BrandImpersonation:      meta.BrandImpersonationDetected,
		BrandImpersonationNote:  meta.BrandImpersonationReason,
		ContentExcerpt:          tp.TruncateRunes(text, excerptRunes, ""),
	}

	for _, d := range meta.LinkDomains {
		if domainutil.BelongsToAny(d, messagingDomains) {
			s.HasMessagingLink = true
		}
		if domainutil.BelongsToAny(d, trackingDomains) {
			s.HasTrackingDomains = true
		}
	}
	return s
}
