package htmltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	page := `<html><head><title> Banco </title><style>p{}</style></head>
<body><script>var x = 1;</script>
<p>Acesse&nbsp;sua conta</p><div>hoje</div>
<a href="https://Banco.com.br/login">entrar</a>
<a href="/relative">rel</a>
<a href="mailto:x@y.com">mail</a>
</body></html>`

	doc, err := Parse([]byte(page), "text/html; charset=utf-8")
	require.NoError(t, err)

	assert.Equal(t, "Banco", doc.Title)
	assert.Contains(t, doc.Text, "sua conta hoje")
	assert.NotContains(t, doc.Text, "var x")
	assert.Equal(t, []string{"https://Banco.com.br/login"}, doc.Links)
}

func TestParseLatin1(t *testing.T) {
	page := []byte("<html><body><p>Promo\xe7\xe3o</p></body></html>")

	doc, err := Parse(page, "text/html; charset=iso-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "Promoção", doc.Text)
}

func TestURLsInText(t *testing.T) {
	urls := URLsInText("veja https://bit.ly/abc) e (http://wa.me/5511 agora")
	assert.Equal(t, []string{"https://bit.ly/abc", "http://wa.me/5511"}, urls)
}

func TestLinksCaps(t *testing.T) {
	l := NewLinks(2, 10)
	l.Add("https://a.com/1", "https://a.com/1", "https://b.com/x", "https://c.com/y")

	assert.Equal(t, []string{"https://a.com/1", "https://b.com/x"}, l.URLs)
	assert.Equal(t, []string{"a.com", "b.com", "c.com"}, l.Domains)
}
