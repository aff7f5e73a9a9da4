package normalizer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mikey/llm-fraud-checker/internal/adapters/cache"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	calls int
	text  string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (string, *core.Metadata, error) {
	f.calls++
	if f.err != nil {
		return "", nil, f.err
	}
	return f.text, &core.Metadata{SourceType: core.SourceURL, URL: rawURL, StatusCode: 200, URLAccessible: core.Bool(true)}, nil
}

type fakeOCR struct {
	calls  int
	text   string
	err    error
	budget time.Duration
	mode   core.OCRMode
}

func (f *fakeOCR) Extract(_ context.Context, _ []byte, budget time.Duration, mode core.OCRMode) (string, core.OCRDiagnostics, error) {
	f.calls++
	f.budget, f.mode = budget, mode
	return f.text, core.OCRDiagnostics{Variant: "v_clahe_otsu", Confidence: 81, Attempts: 1}, f.err
}

type fakeParser struct {
	calls int
}

func (f *fakeParser) Parse(raw []byte) (string, *core.Metadata, error) {
	f.calls++
	if len(raw) == 0 {
		return "", nil, core.NewInputError("Could not read the email file.", core.ErrUnsupportedInput)
	}
	return "corpo do email", &core.Metadata{SourceType: core.SourceEmail, From: "a@b.com", FromRegisteredDomain: "b.com"}, nil
}

type fixture struct {
	fetcher *fakeFetcher
	ocr     *fakeOCR
	parser  *fakeParser
	n       *Normalizer
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	logger := zap.NewNop()
	f := &fixture{
		fetcher: &fakeFetcher{text: "Página oficial"},
		ocr:     &fakeOCR{text: "Texto reconhecido"},
		parser:  &fakeParser{},
	}
	rc := core.NewResultCache(cache.NewMemoryCache(logger), true, logger)
	f.n = NewNormalizer(f.fetcher, f.ocr, f.parser, rc, utils.NewTextProcessor(logger), cfg, logger)
	return f
}

func TestNormalize_Text(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	text, meta, err := f.n.Normalize(context.Background(), core.TextInput("  Olá mundo \n"))
	require.NoError(t, err)
	assert.Equal(t, "Olá mundo", text)
	assert.Equal(t, core.SourceText, meta.SourceType)
	assert.Nil(t, meta.URLAccessible, "reachability is unknown for text")
}

func TestNormalize_TextCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTextRunes = 5
	f := newFixture(t, cfg)

	text, _, err := f.n.Normalize(context.Background(), core.TextInput("çççççççç"))
	require.NoError(t, err)
	assert.Equal(t, "ççççç", text)
}

func TestNormalize_InvalidInput(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	_, _, err := f.n.Normalize(context.Background(), core.AnalysisInput{})
	assert.True(t, core.IsInputError(err))

	_, _, err = f.n.Normalize(context.Background(), core.EmailInput(nil, "x.eml"))
	assert.True(t, core.IsInputError(err))
}

func TestNormalize_URLIsCached(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	text, meta, err := f.n.Normalize(ctx, core.URLInput("https://example.com"))
	require.NoError(t, err)
	assert.Equal(t, "Página oficial", text)
	assert.True(t, meta.CleanSuccess())

	// callers may mutate the metadata without touching the cached copy
	meta.DomainWhitelisted = true

	text2, meta2, err := f.n.Normalize(ctx, core.URLInput("https://example.com"))
	require.NoError(t, err)
	assert.Equal(t, text, text2)
	assert.False(t, meta2.DomainWhitelisted)
	assert.Equal(t, 1, f.fetcher.calls)
}

func TestNormalize_URLInputErrorPropagates(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.fetcher.err = core.NewInputError("Invalid URL", core.ErrUnsupportedInput)

	_, _, err := f.n.Normalize(context.Background(), core.URLInput("ftp://x"))
	assert.True(t, core.IsInputError(err))
}

func TestNormalize_Image(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OCRMode = core.OCRModeAggressive
	cfg.OCRBudget = 3 * time.Second
	f := newFixture(t, cfg)
	ctx := context.Background()
	img := []byte("fake image bytes")

	text, meta, err := f.n.Normalize(ctx, core.ImageInput(img, "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "Texto reconhecido", text)
	assert.Equal(t, 17, meta.OCRTextLen)
	require.NotNil(t, meta.OCR)
	assert.Equal(t, "v_clahe_otsu", meta.OCR.Variant)
	assert.Equal(t, core.OCRModeAggressive, f.ocr.mode)
	assert.Equal(t, 3*time.Second, f.ocr.budget)

	text2, meta2, err := f.n.Normalize(ctx, core.ImageInput(img, "b.png"))
	require.NoError(t, err)
	assert.Equal(t, text, text2)
	assert.Equal(t, meta.OCRTextLen, meta2.OCRTextLen)
	assert.Equal(t, 1, f.ocr.calls, "identical bytes hit the cache")
}

func TestNormalize_ImageBackendFailureDegrades(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.ocr.text = ""
	f.ocr.err = errors.New("tesseract crashed")

	text, meta, err := f.n.Normalize(context.Background(), core.ImageInput([]byte{1, 2, 3}, "a.png"))
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, 0, meta.OCRTextLen)

	// failures are not cached
	f.n.Normalize(context.Background(), core.ImageInput([]byte{1, 2, 3}, "a.png"))
	assert.Equal(t, 2, f.ocr.calls)
}

func TestNormalize_ImageDecodeErrorIsInputError(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.ocr.err = core.NewInputError("Unsupported image.", core.ErrUnsupportedInput)

	_, _, err := f.n.Normalize(context.Background(), core.ImageInput([]byte("nope"), "a.png"))
	assert.True(t, core.IsInputError(err))
}

func TestNormalize_EmailIsCached(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	raw := []byte(strings.Repeat("x", 10))

	for i := 0; i < 2; i++ {
		text, meta, err := f.n.Normalize(context.Background(), core.EmailInput(raw, "m.eml"))
		require.NoError(t, err)
		assert.Equal(t, "corpo do email", text)
		assert.Equal(t, "b.com", meta.FromRegisteredDomain)
		assert.Equal(t, core.SourceEmail, meta.SourceType)
	}
	assert.Equal(t, 1, f.parser.calls)
}
