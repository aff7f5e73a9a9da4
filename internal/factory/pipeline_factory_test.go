package factory

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/llm-fraud-checker/internal/adapters/cache"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/ocr"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const corporatePage = "Bem-vindo ao portal institucional da Acme. Conheça nossos produtos e serviços para empresas de todos os portes."

const itauPhishing = "From: \"Itau Atendimento\" <suporte@itau-seguro.net>\r\n" +
	"To: cliente@example.com\r\n" +
	"Subject: Itau: sua conta sera bloqueada\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Prezado cliente, sua conta Itau sera bloqueada em 24h. Clique no link e confirme seus dados.\r\n"

type stubBackend struct {
	text string
}

func (b stubBackend) Recognize(context.Context, image.Image, ocr.PassOptions) (ocr.Recognition, error) {
	return ocr.Recognition{Text: b.text, WordConfidences: []float64{96, 94, 95}}, nil
}

type countingOCR struct {
	engine core.OCREngine
	calls  int
}

func (c *countingOCR) Extract(ctx context.Context, data []byte, budget time.Duration, mode core.OCRMode) (string, core.OCRDiagnostics, error) {
	c.calls++
	return c.engine.Extract(ctx, data, budget, mode)
}

type countingParser struct {
	parser core.EmailParser
	calls  int
}

func (c *countingParser) Parse(raw []byte) (string, *core.Metadata, error) {
	c.calls++
	return c.parser.Parse(raw)
}

type stubFetcher struct {
	calls int
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (string, *core.Metadata, error) {
	f.calls++
	return corporatePage, &core.Metadata{
		SourceType:    core.SourceURL,
		URL:           rawURL,
		FinalURL:      rawURL,
		StatusCode:    200,
		URLAccessible: core.Bool(true),
	}, nil
}

type assembled struct {
	service *core.AnalyzerService
	ocr     *countingOCR
	parser  *countingParser
	fetcher *stubFetcher
}

// assemble wires the real stages the way the container does, with the
// network and Tesseract replaced by stubs and the classifier disabled
func assemble(t *testing.T, ocrText string) *assembled {
	t.Helper()
	logger := zap.NewNop()
	tp := utils.NewTextProcessor(logger)
	cfg := testConfig(map[string]interface{}{
		"whitelist.path":             filepath.Join(t.TempDir(), "safebook.json"),
		"server.whitelisted_domains": []string{"acme-corp.com.br"},
	})
	f := NewPipelineFactory(cfg, logger, tp)

	results := core.NewResultCache(cache.NewMemoryCache(logger), true, logger)
	a := &assembled{
		ocr:     &countingOCR{engine: f.CreateOCREngine(stubBackend{text: ocrText})},
		parser:  &countingParser{parser: f.CreateEmailParser()},
		fetcher: &stubFetcher{},
	}

	store, err := f.CreateWhitelist()
	require.NoError(t, err)

	a.service = core.NewAnalyzerService(
		f.CreateNormalizer(a.fetcher, a.ocr, a.parser, results),
		store,
		f.CreateBrandGuard(),
		f.CreateHeuristics(),
		f.CreateClassifier(nil, results),
		f.CreateFuser(),
		tp,
		logger,
	)
	return a
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 12), B: 180, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPipeline_Scenarios(t *testing.T) {
	tests := []struct {
		name  string
		input core.AnalysisInput
		check func(t *testing.T, v *core.FusedVerdict)
	}{
		{
			name:  "prize text",
			input: core.TextInput("Parabéns! Você ganhou um prêmio, clique aqui para resgatar"),
			check: func(t *testing.T, v *core.FusedVerdict) {
				assert.Contains(t, []core.Label{core.LabelSuspicious, core.LabelFraud}, v.Label)
				assert.Contains(t, v.RedFlags, "Prize/raffle/call-to-action bait.")
			},
		},
		{
			name:  "bank email from lookalike domain",
			input: core.EmailInput([]byte(itauPhishing), "aviso.eml"),
			check: func(t *testing.T, v *core.FusedVerdict) {
				assert.Equal(t, core.LabelFraud, v.Label)
				assert.GreaterOrEqual(t, v.RiskPct, 90.0)
				assert.Equal(t, "critical_impersonation", v.Override)
				require.NotNil(t, v.Metadata)
				assert.True(t, v.Metadata.CriticalImpersonation)
				assert.Equal(t, "itau-seguro.net", v.Metadata.FromRegisteredDomain)
			},
		},
		{
			name:  "whitelisted corporate url",
			input: core.URLInput("https://portal.acme-corp.com.br/"),
			check: func(t *testing.T, v *core.FusedVerdict) {
				assert.Equal(t, core.LabelOK, v.Label)
				assert.Less(t, v.RiskPct, 35.0)
				require.NotNil(t, v.Metadata)
				assert.True(t, v.Metadata.DomainWhitelisted)
				assert.Contains(t, v.BenignNotes, "Domain is whitelisted.")
			},
		},
		{
			name:  "promotional image mentioning a bank",
			input: core.ImageInput(pngImage(t), "promo.png"),
			check: func(t *testing.T, v *core.FusedVerdict) {
				assert.Equal(t, core.LabelFraud, v.Label)
				assert.Equal(t, "image_prize_brand", v.Override)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := assemble(t, "Parabens! Sorteio Itau: resgate seu premio agora")
			v, err := a.service.Analyze(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.input.Kind, v.SourceType)
			tt.check(t, v)
		})
	}
}

func TestPipeline_RepeatedInputIsStable(t *testing.T) {
	tests := []struct {
		name  string
		input func(t *testing.T) core.AnalysisInput
		calls func(a *assembled) int
	}{
		{
			name:  "email",
			input: func(*testing.T) core.AnalysisInput { return core.EmailInput([]byte(itauPhishing), "aviso.eml") },
			calls: func(a *assembled) int { return a.parser.calls },
		},
		{
			name:  "image",
			input: func(t *testing.T) core.AnalysisInput { return core.ImageInput(pngImage(t), "promo.png") },
			calls: func(a *assembled) int { return a.ocr.calls },
		},
		{
			name:  "url",
			input: func(*testing.T) core.AnalysisInput { return core.URLInput("https://portal.acme-corp.com.br/") },
			calls: func(a *assembled) int { return a.fetcher.calls },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := assemble(t, "Parabens! Sorteio Itau: resgate seu premio agora")
			ctx := context.Background()

			first, err := a.service.Analyze(ctx, tt.input(t))
			require.NoError(t, err)
			second, err := a.service.Analyze(ctx, tt.input(t))
			require.NoError(t, err)

			assert.Equal(t, 1, tt.calls(a), "second analysis must be served from the result cache")
			assert.Equal(t, first.Label, second.Label)
			assert.Equal(t, first.RiskPct, second.RiskPct)
			assert.Equal(t, first.RedFlags, second.RedFlags)
			assert.Equal(t, first.Override, second.Override)
			assert.NotEqual(t, first.AnalysisID, second.AnalysisID)
		})
	}
}
