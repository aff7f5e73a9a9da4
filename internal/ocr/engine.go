package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/metrics"
	"github.com/mikey/llm-fraud-checker/internal/ocr/preprocess"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"go.uber.org/zap"

	_ "image/gif"

	// extra decoders for uploaded images
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// PassOptions configures one recognition call
type PassOptions struct {
	PageSegMode   int
	Language      string
	CharWhitelist string
}

// Recognition is the raw output of one recognition call
type Recognition struct {
	Text string
	// WordConfidences are per-token confidences on a 0..100 scale; negative values are invalid
	WordConfidences []float64
}

// Backend runs a single OCR pass. Implementations need not be safe for
// concurrent use; the engine calls them sequentially.
type Backend interface {
	Recognize(ctx context.Context, img image.Image, opts PassOptions) (Recognition, error)
}

// Config holds the OCR engine settings
type Config struct {
	EarlyConfidence float64
	EarlyMinChars   int
	Upscale         float64
	Language        string
	CharWhitelist   string
	WhitelistBonus  float64
	DebugDir        string
}

// DefaultConfig returns the standard engine settings
func DefaultConfig() Config {
	return Config{
		EarlyConfidence: 70.0,
		EarlyMinChars:   10,
		Upscale:         2.0,
		Language:        "por+eng",
		WhitelistBonus:  2.0,
	}
}

// Engine searches preprocessing variants and page segmentation modes for the
// most confident recognition within a time budget
type Engine struct {
	backend Backend
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngine creates a new OCR engine
func NewEngine(backend Backend, cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		backend: backend,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

type candidate struct {
	text       string
	confidence float64
	variant    string
	psm        int
}

// search carries the state of one Extract call
type search struct {
	e       *Engine
	ctx     context.Context
	src     image.Image
	started time.Time
	budget  time.Duration
	best    candidate
	diag    core.OCRDiagnostics
	stopped bool
}

// Extract returns the best text found in the image. A budget <= 0 allows a
// single pass. Backend failures skip the pass; only an undecodable image is
// reported as an error.
func (e *Engine) Extract(ctx context.Context, data []byte, budget time.Duration, mode core.OCRMode) (string, core.OCRDiagnostics, error) {
	s := &search{
		e:       e,
		ctx:     ctx,
		started: e.now(),
		budget:  budget,
		best:    candidate{confidence: -1},
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", s.diag, core.NewInputError("The uploaded file is not a supported image.",
			fmt.Errorf("failed to decode image: %w: %w", core.ErrUnsupportedInput, err))
	}
	src = preprocess.Upscale(src, e.cfg.Upscale)
	s.src = src

	plain, constrained := pageSegModes(mode)
	var debugStamp string
	if e.cfg.DebugDir != "" {
		debugStamp = fmt.Sprintf("%d", s.started.UnixNano())
	}

	for i, v := range buildVariants(src, mode) {
		img := v.build()
		if debugStamp != "" {
			s.saveDebug(img, debugStamp, i, v.name)
		}

		for _, psm := range plain {
			if s.pass(img, v.name, psm, "", 0) {
				return s.finish()
			}
		}
		if e.cfg.CharWhitelist != "" {
			for _, psm := range constrained {
				if s.pass(img, v.name, psm, e.cfg.CharWhitelist, e.cfg.WhitelistBonus) {
					return s.finish()
				}
			}
		}
	}

	return s.finish()
}

// pass runs one recognition and reports whether the search must stop
func (s *search) pass(img image.Image, name string, psm int, whitelist string, bonus float64) bool {
	s.diag.Attempts++
	rec, err := s.e.backend.Recognize(s.ctx, img, PassOptions{
		PageSegMode:   psm,
		Language:      s.e.cfg.Language,
		CharWhitelist: whitelist,
	})
	if err != nil {
		s.e.logger.Debug("OCR pass failed",
			zap.String("variant", name),
			zap.Int("psm", psm),
			zap.Error(err))
	} else if text := utils.CleanWhitespace(rec.Text); text != "" {
		s.diag.Passes++
		conf := MeanConfidence(rec.WordConfidences) + bonus
		if conf > s.best.confidence {
			s.best = candidate{text: text, confidence: conf, variant: name, psm: psm}
		}
		if conf >= s.e.cfg.EarlyConfidence && utf8.RuneCountInString(text) >= s.e.cfg.EarlyMinChars {
			s.best = candidate{text: text, confidence: conf, variant: name, psm: psm}
			s.diag.EarlyExit = true
			return true
		}
	}

	if s.ctx.Err() != nil {
		s.stopped = true
		return true
	}
	if s.budget <= 0 || s.e.now().Sub(s.started) >= s.budget {
		s.diag.BudgetExceeded = true
		return true
	}
	return false
}

func (s *search) finish() (string, core.OCRDiagnostics, error) {
	// nothing recognised after every variant: one plain grayscale attempt
	if s.best.text == "" && !s.stopped && !s.diag.BudgetExceeded && s.ctx.Err() == nil {
		s.diag.Fallback = true
		s.diag.Attempts++
		rec, err := s.e.backend.Recognize(s.ctx, fallbackImage(s.src), PassOptions{
			PageSegMode: fallbackPageSeg,
			Language:    s.e.cfg.Language,
		})
		if err != nil {
			s.e.logger.Debug("OCR fallback pass failed", zap.Error(err))
		} else if text := utils.CleanWhitespace(rec.Text); text != "" {
			s.diag.Passes++
			s.best = candidate{
				text:       text,
				confidence: MeanConfidence(rec.WordConfidences),
				variant:    "fallback_gray",
				psm:        fallbackPageSeg,
			}
		}
	}

	s.diag.Variant = s.best.variant
	s.diag.PageSegMode = s.best.psm
	s.diag.Confidence = s.best.confidence
	s.diag.Elapsed = s.e.now().Sub(s.started)
	metrics.OCRPasses.Observe(float64(s.diag.Attempts))

	s.e.logger.Debug("OCR finished",
		zap.String("variant", s.diag.Variant),
		zap.Float64("confidence", s.diag.Confidence),
		zap.Int("attempts", s.diag.Attempts),
		zap.Bool("early_exit", s.diag.EarlyExit),
		zap.Bool("budget_exceeded", s.diag.BudgetExceeded),
		zap.Duration("elapsed", s.diag.Elapsed))

	return s.best.text, s.diag, nil
}

func (s *search) saveDebug(img image.Image, stamp string, idx int, name string) {
	if err := os.MkdirAll(s.e.cfg.DebugDir, 0o755); err != nil {
		s.e.logger.Warn("Failed to create OCR debug directory", zap.Error(err))
		return
	}
	path := filepath.Join(s.e.cfg.DebugDir, fmt.Sprintf("%s_%02d_%s.png", stamp, idx, name))
	if err := imaging.Save(img, path); err != nil {
		s.e.logger.Warn("Failed to save OCR debug image", zap.String("path", path), zap.Error(err))
		return
	}
	s.diag.DebugImages = append(s.diag.DebugImages, path)
}

// MeanConfidence averages the non-negative confidences; -1 when none are valid
func MeanConfidence(confs []float64) float64 {
	var sum float64
	n := 0
	for _, c := range confs {
		if c < 0 {
			continue
		}
		sum += c
		n++
	}
	if n == 0 {
		return -1
	}
	return sum / float64(n)
}
