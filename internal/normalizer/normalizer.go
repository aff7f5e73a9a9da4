package normalizer

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"go.uber.org/zap"
)

// Config holds the normalizer settings
type Config struct {
	OCRMode      core.OCRMode
	OCRBudget    time.Duration
	URLTTL       time.Duration
	ImageTTL     time.Duration
	EmailTTL     time.Duration
	MaxTextRunes int
}

// DefaultConfig returns the standard normalizer settings
func DefaultConfig() Config {
	return Config{
		OCRMode:      core.OCRModeFast,
		OCRBudget:    12 * time.Second,
		URLTTL:       6 * time.Hour,
		ImageTTL:     24 * time.Hour,
		EmailTTL:     24 * time.Hour,
		MaxTextRunes: 20000,
	}
}

// extraction is what gets cached per fingerprint
type extraction struct {
	Content string         `json:"content"`
	Meta    *core.Metadata `json:"meta"`
}

// Normalizer turns any supported input into text plus metadata, consulting
// the result cache before fetching, running OCR or parsing email
type Normalizer struct {
	fetcher core.Fetcher
	ocr     core.OCREngine
	parser  core.EmailParser
	cache   *core.ResultCache
	text    *utils.TextProcessor
	cfg     Config
	logger  *zap.Logger
}

// NewNormalizer creates a new content normalizer
func NewNormalizer(
	fetcher core.Fetcher,
	ocr core.OCREngine,
	parser core.EmailParser,
	cache *core.ResultCache,
	text *utils.TextProcessor,
	cfg Config,
	logger *zap.Logger,
) *Normalizer {
	return &Normalizer{
		fetcher: fetcher,
		ocr:     ocr,
		parser:  parser,
		cache:   cache,
		text:    text,
		cfg:     cfg,
		logger:  logger,
	}
}

// Normalize extracts the analysable text and metadata from in. The returned
// metadata is always a fresh copy the caller may modify.
func (n *Normalizer) Normalize(ctx context.Context, in core.AnalysisInput) (string, *core.Metadata, error) {
	if err := in.Validate(); err != nil {
		return "", nil, err
	}

	var (
		text string
		meta *core.Metadata
		err  error
	)
	switch in.Kind {
	case core.SourceText:
		text, meta = n.fromText(in.Text)
	case core.SourceURL:
		text, meta, err = n.fromURL(ctx, in.URL)
	case core.SourceImage:
		text, meta, err = n.fromImage(ctx, in.Data)
	case core.SourceEmail:
		text, meta, err = n.fromEmail(ctx, in.Data)
	default:
		return "", nil, core.NewInputError("Unsupported input type.", core.ErrUnsupportedInput)
	}
	if err != nil {
		return "", nil, err
	}

	meta = meta.Clone()
	meta.SourceType = in.Kind
	return n.text.TruncateRunes(strings.TrimSpace(text), n.cfg.MaxTextRunes, ""), meta, nil
}

func (n *Normalizer) fromText(text string) (string, *core.Metadata) {
	return n.text.SanitizeUTF8(text), &core.Metadata{SourceType: core.SourceText}
}

func (n *Normalizer) fromURL(ctx context.Context, rawURL string) (string, *core.Metadata, error) {
	rawURL = strings.TrimSpace(rawURL)
	key := core.Fingerprint("url:", []byte(rawURL))

	var cached extraction
	if n.cache.Load(ctx, "url", key, &cached) {
		return cached.Content, cached.Meta, nil
	}

	text, meta, err := n.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", nil, err
	}
	n.cache.Store(ctx, "url", key, extraction{Content: text, Meta: meta}, n.cfg.URLTTL)
	return text, meta, nil
}

func (n *Normalizer) fromImage(ctx context.Context, data []byte) (string, *core.Metadata, error) {
	key := core.Fingerprint("img:", data)

	var cached extraction
	if !n.cache.Load(ctx, "image", key, &cached) {
		text, diag, err := n.ocr.Extract(ctx, data, n.cfg.OCRBudget, n.cfg.OCRMode)
		if err != nil {
			if core.IsInputError(err) {
				return "", nil, err
			}
			// backend failure degrades to "no text", which is itself evidence
			n.logger.Warn("OCR failed, continuing without text", zap.Error(err))
			text = ""
		}
		cached = extraction{Content: text, Meta: &core.Metadata{SourceType: core.SourceImage, OCR: &diag}}
		if err == nil {
			n.cache.Store(ctx, "image", key, cached, n.cfg.ImageTTL)
		}
	}

	meta := cached.Meta
	if meta == nil {
		meta = &core.Metadata{}
	}
	meta.OCRTextLen = utf8.RuneCountInString(cached.Content)
	return cached.Content, meta, nil
}

func (n *Normalizer) fromEmail(ctx context.Context, data []byte) (string, *core.Metadata, error) {
	key := core.Fingerprint("eml:", data)

	var cached extraction
	if n.cache.Load(ctx, "email", key, &cached) {
		return cached.Content, cached.Meta, nil
	}

	text, meta, err := n.parser.Parse(data)
	if err != nil {
		return "", nil, err
	}
	n.cache.Store(ctx, "email", key, extraction{Content: text, Meta: meta}, n.cfg.EmailTTL)
	return text, meta, nil
}
