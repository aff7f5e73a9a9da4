package tesseract

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/mikey/llm-fraud-checker/internal/ocr"
	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClient struct {
	languages  [][]string
	whitelists []string
	psms       []gosseract.PageSegMode
	images     int
	langErr    error
}

func (f *fakeClient) SetLanguage(langs ...string) error {
	if f.langErr != nil {
		return f.langErr
	}
	f.languages = append(f.languages, langs)
	return nil
}

func (f *fakeClient) SetPageSegMode(mode gosseract.PageSegMode) error {
	f.psms = append(f.psms, mode)
	return nil
}

func (f *fakeClient) SetWhitelist(whitelist string) error {
	f.whitelists = append(f.whitelists, whitelist)
	return nil
}

func (f *fakeClient) SetImageFromBytes([]byte) error {
	f.images++
	return nil
}

func (f *fakeClient) Text() (string, error) { return "Parabéns", nil }

func (f *fakeClient) GetBoundingBoxes(gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error) {
	return []gosseract.BoundingBox{{Word: "Parabéns", Confidence: 91}}, nil
}

func (f *fakeClient) Close() error { return nil }

func testImage() image.Image {
	return image.NewGray(image.Rect(0, 0, 4, 4))
}

func TestRecognize_AppliesSettingsOnlyWhenChanged(t *testing.T) {
	client := &fakeClient{}
	backend := newBackend(client, zap.NewNop())
	ctx := context.Background()

	passes := []ocr.PassOptions{
		{PageSegMode: 6, Language: "por+eng"},
		{PageSegMode: 11, Language: "por+eng"},
		{PageSegMode: 6, Language: "por+eng", CharWhitelist: "0123456789"},
		{PageSegMode: 7, Language: "por+eng", CharWhitelist: "0123456789"},
		{PageSegMode: 6, Language: "por+eng"},
	}
	for _, opts := range passes {
		rec, err := backend.Recognize(ctx, testImage(), opts)
		require.NoError(t, err)
		assert.Equal(t, "Parabéns", rec.Text)
		assert.Equal(t, []float64{91}, rec.WordConfidences)
	}

	assert.Equal(t, [][]string{{"por", "eng"}}, client.languages)
	assert.Equal(t, []string{"", "0123456789", ""}, client.whitelists)
	assert.Len(t, client.psms, len(passes))
	assert.Equal(t, len(passes), client.images)
}

func TestRecognize_LanguageErrorIsRetried(t *testing.T) {
	client := &fakeClient{langErr: errors.New("missing traineddata")}
	backend := newBackend(client, zap.NewNop())

	_, err := backend.Recognize(context.Background(), testImage(), ocr.PassOptions{Language: "xyz"})
	require.Error(t, err)

	client.langErr = nil
	_, err = backend.Recognize(context.Background(), testImage(), ocr.PassOptions{Language: "xyz"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"xyz"}}, client.languages)
}

func TestRecognize_CancelledContext(t *testing.T) {
	client := &fakeClient{}
	backend := newBackend(client, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := backend.Recognize(ctx, testImage(), ocr.PassOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, client.images)
}
