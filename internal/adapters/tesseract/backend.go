package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/mikey/llm-fraud-checker/internal/ocr"
	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// tesseractClient is the subset of *gosseract.Client the backend drives
type tesseractClient interface {
	SetLanguage(langs ...string) error
	SetPageSegMode(mode gosseract.PageSegMode) error
	SetWhitelist(whitelist string) error
	SetImageFromBytes(data []byte) error
	Text() (string, error)
	GetBoundingBoxes(level gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error)
	Close() error
}

// Backend implements ocr.Backend on top of a gosseract client. The client is
// reused across passes and guarded by a mutex since Tesseract handles are not
// safe for concurrent use. Language and whitelist changes force gosseract to
// re-initialise the handle, so they are only applied when they differ from
// the previous pass.
type Backend struct {
	mu     sync.Mutex
	client tesseractClient
	logger *zap.Logger

	configured bool
	language   string
	whitelist  string
}

// NewBackend creates a new Tesseract OCR backend
func NewBackend(logger *zap.Logger) *Backend {
	return newBackend(gosseract.NewClient(), logger)
}

func newBackend(client tesseractClient, logger *zap.Logger) *Backend {
	return &Backend{
		client: client,
		logger: logger,
	}
}

// Recognize runs one Tesseract pass over img
func (b *Backend) Recognize(ctx context.Context, img image.Image, opts ocr.PassOptions) (ocr.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Recognition{}, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return ocr.Recognition{}, fmt.Errorf("failed to encode OCR input: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.configure(opts); err != nil {
		return ocr.Recognition{}, err
	}
	if err := b.client.SetPageSegMode(gosseract.PageSegMode(opts.PageSegMode)); err != nil {
		return ocr.Recognition{}, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := b.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return ocr.Recognition{}, fmt.Errorf("failed to load OCR image: %w", err)
	}

	text, err := b.client.Text()
	if err != nil {
		return ocr.Recognition{}, fmt.Errorf("failed to recognize text: %w", err)
	}

	boxes, err := b.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		b.logger.Debug("Failed to read word confidences", zap.Error(err))
		return ocr.Recognition{Text: text}, nil
	}

	confs := make([]float64, 0, len(boxes))
	for _, box := range boxes {
		confs = append(confs, box.Confidence)
	}
	return ocr.Recognition{Text: text, WordConfidences: confs}, nil
}

// configure applies the language and character whitelist when they changed.
// Callers hold b.mu.
func (b *Backend) configure(opts ocr.PassOptions) error {
	if opts.Language != "" && (!b.configured || opts.Language != b.language) {
		if err := b.client.SetLanguage(strings.Split(opts.Language, "+")...); err != nil {
			return fmt.Errorf("failed to set OCR language: %w", err)
		}
		b.language = opts.Language
	}
	if !b.configured || opts.CharWhitelist != b.whitelist {
		if err := b.client.SetWhitelist(opts.CharWhitelist); err != nil {
			return fmt.Errorf("failed to set character whitelist: %w", err)
		}
		b.whitelist = opts.CharWhitelist
	}
	b.configured = true
	return nil
}

// Close releases the Tesseract handle
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client.Close()
}
