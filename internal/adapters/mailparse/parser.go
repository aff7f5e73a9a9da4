package mailparse

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/domainutil"
	"github.com/mikey/llm-fraud-checker/internal/htmltext"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"go.uber.org/zap"
)

// Config holds the parser limits
type Config struct {
	MaxTextRunes int
	MaxLinks     int
	MaxDomains   int
	// MaxPartBytes bounds how much of a single MIME part is read
	MaxPartBytes int64
}

// DefaultConfig returns the standard parser limits
func DefaultConfig() Config {
	return Config{
		MaxTextRunes: 20000,
		MaxLinks:     300,
		MaxDomains:   80,
		MaxPartBytes: 4 << 20,
	}
}

// Parser extracts text, sender information and links from RFC 5322 messages
type Parser struct {
	cfg    Config
	text   *utils.TextProcessor
	logger *zap.Logger
}

// NewParser creates a new email parser
func NewParser(cfg Config, text *utils.TextProcessor, logger *zap.Logger) *Parser {
	return &Parser{cfg: cfg, text: text, logger: logger}
}

// Parse reads a raw message. Plain-text parts come first, followed by the
// text of the HTML parts; attachments are skipped.
func (p *Parser) Parse(raw []byte) (string, *core.Metadata, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return "", nil, core.NewInputError("Could not read the email file.", fmt.Errorf("%w: %v", core.ErrUnsupportedInput, err))
	}
	defer mr.Close()

	meta := &core.Metadata{SourceType: core.SourceEmail}
	p.readHeaders(mr.Header, meta)

	var plain, htmlTexts []string
	links := htmltext.NewLinks(p.cfg.MaxLinks, p.cfg.MaxDomains)

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && (part == nil || !message.IsUnknownCharset(err)) {
			p.logger.Warn("Error reading MIME part", zap.Error(err))
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ctype, _, _ := h.ContentType()

		data, err := io.ReadAll(io.LimitReader(part.Body, p.cfg.MaxPartBytes))
		if err != nil {
			p.logger.Warn("Failed to read MIME part", zap.String("content_type", ctype), zap.Error(err))
			continue
		}

		switch {
		case ctype == "text/html":
			// go-message has already converted known charsets to UTF-8
			doc, err := htmltext.Parse(data, "text/html; charset=utf-8")
			if err != nil {
				p.logger.Warn("Failed to parse HTML part", zap.Error(err))
				continue
			}
			htmlTexts = append(htmlTexts, doc.Text)
			links.Add(doc.Links...)
		case ctype == "" || strings.HasPrefix(ctype, "text/"):
			plain = append(plain, p.text.SanitizeUTF8(string(data)))
		}
	}

	body := strings.Join(plain, "\n")
	links.Add(htmltext.URLsInText(body)...)
	if len(htmlTexts) > 0 {
		body = strings.TrimSpace(body + "\n\n" + strings.Join(htmlTexts, "\n\n"))
	}

	meta.Links = links.URLs
	meta.LinkDomains = links.Domains

	p.logger.Debug("Parsed email",
		zap.String("from_domain", meta.FromDomain),
		zap.Bool("from_domain_suspect", meta.FromDomainSuspect),
		zap.Int("plain_parts", len(plain)),
		zap.Int("html_parts", len(htmlTexts)),
		zap.Int("links", len(meta.Links)))

	return p.text.TruncateRunes(body, p.cfg.MaxTextRunes, ""), meta, nil
}

func (p *Parser) readHeaders(h mail.Header, meta *core.Metadata) {
	meta.Subject = decoded(h, "Subject")
	meta.From = decoded(h, "From")
	meta.ReplyTo = decoded(h, "Reply-To")
	meta.ListUnsubscribe = h.Get("List-Unsubscribe")
	if meta.ListUnsubscribe == "" {
		meta.ListUnsubscribe = h.Get("List-Unsubscribe-Post")
	}

	if _, domain := domainutil.Address(meta.From); domain != "" {
		meta.FromDomain = domain
		meta.FromRegisteredDomain = domainutil.RegisteredDomain(domain)
		meta.FromDomainSuspect = domainutil.SuspiciousTLD(domain)
	}
	if _, domain := domainutil.Address(meta.ReplyTo); domain != "" {
		meta.ReplyToDomain = domain
		meta.ReplyToRegisteredDomain = domainutil.RegisteredDomain(domain)
	}
}

// decoded returns the RFC 2047 decoded header, or the raw value when the
// encoding is unknown
func decoded(h mail.Header, key string) string {
	v, err := h.Text(key)
	if err != nil {
		return strings.TrimSpace(h.Get(key))
	}
	return strings.TrimSpace(v)
}
