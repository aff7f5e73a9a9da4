package whitelist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeWhitelist(t *testing.T, doc document) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "safebook.json")
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestStore_Apply(t *testing.T) {
	path := writeWhitelist(t, document{
		Domains: []string{"Empresa.com.br", " www.gov.br "},
		Phrases: []string{"Código de Conduta"},
	})
	s, err := NewStore(path, nil, zap.NewNop())
	require.NoError(t, err)

	tests := []struct {
		name   string
		text   string
		meta   *core.Metadata
		domain bool
		phrase bool
	}{
		{
			name:   "final URL subdomain",
			meta:   &core.Metadata{URL: "http://x.co/r", FinalURL: "https://portal.empresa.com.br/a"},
			domain: true,
		},
		{
			name:   "requested URL",
			meta:   &core.Metadata{URL: "https://www.gov.br/saude"},
			domain: true,
		},
		{
			name:   "sender registered domain",
			meta:   &core.Metadata{FromRegisteredDomain: "empresa.com.br"},
			domain: true,
		},
		{
			name: "lookalike domain",
			meta: &core.Metadata{URL: "https://fakeempresa.com.br/"},
		},
		{
			name:   "phrase is case-insensitive",
			text:   "Leia o CÓDIGO DE CONDUTA anexo",
			meta:   &core.Metadata{},
			phrase: true,
		},
		{
			name: "no match",
			text: "Olá",
			meta: &core.Metadata{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.Apply(tt.text, tt.meta)
			assert.Equal(t, tt.domain, tt.meta.DomainWhitelisted)
			assert.Equal(t, tt.phrase, tt.meta.PhraseWhitelisted)
		})
	}
}

func TestStore_MissingFileStartsEmpty(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "none.json"), []string{"seed.com"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"seed.com"}, s.Domains())
	assert.Empty(t, s.Phrases())
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o644))

	_, err := NewStore(path, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestStore_AddPersistsAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "safebook.json")
	s, err := NewStore(path, nil, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Add(KindDomain, "https://www.Example.com/path"))
	require.NoError(t, s.Add(KindDomain, "example.com"))
	require.NoError(t, s.Add(KindPhrase, "  Atenciosamente, Equipe "))

	assert.Equal(t, []string{"example.com"}, s.Domains())
	assert.Equal(t, []string{"atenciosamente, equipe"}, s.Phrases())

	reloaded, err := NewStore(path, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, s.Domains(), reloaded.Domains())
	assert.Equal(t, s.Phrases(), reloaded.Phrases())
}

func TestStore_AddRejectsBadInput(t *testing.T) {
	s, err := NewStore("", nil, zap.NewNop())
	require.NoError(t, err)

	err = s.Add("ip", "10.0.0.1")
	require.Error(t, err)
	assert.True(t, core.IsInputError(err))
	assert.ErrorIs(t, err, core.ErrUnsupportedInput)

	err = s.Add(KindPhrase, "   ")
	assert.ErrorIs(t, err, core.ErrEmptyInput)
}

func TestStore_IsSenderWhitelisted(t *testing.T) {
	s, err := NewStore("", []string{"empresa.com.br"}, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, s.IsSenderWhitelisted(`"RH" <rh@mail.empresa.com.br>`))
	assert.False(t, s.IsSenderWhitelisted("rh@empresa.com.br.evil.net"))
	assert.False(t, s.IsSenderWhitelisted("not an address"))
}
