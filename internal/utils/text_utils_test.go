package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncateRunes(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "ação", tp.TruncateRunes("ação", 4, "…"))
	assert.Equal(t, "aç…", tp.TruncateRunes("ação", 2, "…"))
	assert.Equal(t, "ação", tp.TruncateRunes("ação", 0, "…"))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(nil)

	assert.Equal(t, "ok", tp.SanitizeUTF8("o\xffk"))
	assert.Equal(t, "é", tp.ProcessText("é\xfe", 10))
}

func TestCleanWhitespace(t *testing.T) {
	assert.Equal(t, "a b\n\nc", CleanWhitespace("  a \t b\r\n\n\n\nc  "))
}

func TestAppendUnique(t *testing.T) {
	list := AppendUnique([]string{"a"}, 3, "b", "a", " ", "c", "d")
	assert.Equal(t, []string{"a", "b", "c"}, list)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "itau promocao", Fold("Itaú Promoção"))
}
