package fetch

import (
	"compress/gzip"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const page = `<html><head><title> Portal  Oficial </title><script>var x = "hidden";</script></head>
<body><p>Bem-vindo ao portal.</p><a href="https://bit.ly/abc">promo</a>
<a href="/relative">rel</a><a href="https://www.example.com/x?a=1&amp;b=2">site</a>
<p>Veja https://t.me/golpe agora</p></body></html>`

func newTestFetcher(cfg Config) *Fetcher {
	return NewFetcher(cfg, utils.NewTextProcessor(nil), zap.NewNop())
}

func TestFetcher_Page(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "llm-fraud-checker/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	text, meta, err := newTestFetcher(DefaultConfig()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Contains(t, text, "Bem-vindo ao portal.")
	assert.NotContains(t, text, "hidden")
	assert.Equal(t, "Portal  Oficial", meta.Title)
	assert.Equal(t, 200, meta.StatusCode)
	require.NotNil(t, meta.URLAccessible)
	assert.True(t, *meta.URLAccessible)
	assert.False(t, meta.RedirectChain)
	assert.True(t, meta.CleanSuccess())
	assert.Equal(t, []string{"https://bit.ly/abc", "https://www.example.com/x?a=1&b=2", "https://t.me/golpe"}, meta.Links)
	assert.Equal(t, []string{"bit.ly", "example.com", "t.me"}, meta.LinkDomains)
}

func TestFetcher_RedirectChain(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/b", http.StatusFound) })
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/c", http.StatusFound) })
	mux.HandleFunc("/c", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "<p>fim</p>") })
	mux.HandleFunc("/single", func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/c", http.StatusMovedPermanently) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher(DefaultConfig())

	_, meta, err := f.Fetch(context.Background(), srv.URL+"/a")
	require.NoError(t, err)
	assert.True(t, meta.RedirectChain)
	assert.Equal(t, srv.URL+"/c", meta.FinalURL)
	assert.False(t, meta.CleanSuccess())

	_, meta, err = f.Fetch(context.Background(), srv.URL+"/single")
	require.NoError(t, err)
	assert.False(t, meta.RedirectChain, "a single hop is not a chain")
}

func TestFetcher_NotFoundIsInaccessible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "<p>Página não encontrada</p>")
	}))
	defer srv.Close()

	text, meta, err := newTestFetcher(DefaultConfig()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Página não encontrada", text)
	assert.Equal(t, 404, meta.StatusCode)
	assert.False(t, *meta.URLAccessible)
}

func TestFetcher_Gzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		fmt.Fprint(gz, "<p>comprimido</p>")
		gz.Close()
	}))
	defer srv.Close()

	text, _, err := newTestFetcher(DefaultConfig()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "comprimido", text)
}

func TestFetcher_Latin1Charset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<p>Promo\xe7\xe3o</p>"))
	}))
	defer srv.Close()

	text, _, err := newTestFetcher(DefaultConfig()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Promoção", text)
}

func TestFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	text, meta, err := newTestFetcher(cfg).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "(Failed to access the URL: connection timed out.)", text)
	assert.False(t, *meta.URLAccessible)
	assert.Equal(t, "connection timed out.", meta.URLError)
}

func TestFetcher_InvalidURL(t *testing.T) {
	f := newTestFetcher(DefaultConfig())
	for _, raw := range []string{"", "ftp://example.com", "not a url", "https://"} {
		_, _, err := f.Fetch(context.Background(), raw)
		assert.True(t, core.IsInputError(err), raw)
	}
}

func TestHumanizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"dns", &url.Error{Op: "Get", URL: "http://x.invalid", Err: &net.OpError{Op: "dial", Err: &net.DNSError{Err: "no such host", Name: "x.invalid"}}}, "could not resolve the domain (DNS)."},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), "connection timed out."},
		{"tls", &url.Error{Op: "Get", URL: "https://x", Err: x509.UnknownAuthorityError{}}, "SSL/TLS failure."},
		{"hostname", x509.HostnameError{Host: "x"}, "SSL/TLS failure."},
		{"other", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}, "connection refused"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HumanizeError(tt.err))
		})
	}
}
