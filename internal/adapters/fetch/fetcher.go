package fetch

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/htmltext"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"go.uber.org/zap"
)

// Config holds the fetcher settings
type Config struct {
	Timeout      time.Duration
	DialTimeout  time.Duration
	MaxBodyBytes int64
	MaxRedirects int
	UserAgent    string
	MaxTextRunes int
	MaxLinks     int
	MaxDomains   int
}

// DefaultConfig returns the standard fetcher settings
func DefaultConfig() Config {
	return Config{
		Timeout:      8 * time.Second,
		DialTimeout:  5 * time.Second,
		MaxBodyBytes: 2 << 20,
		MaxRedirects: 10,
		UserAgent:    "llm-fraud-checker/1.0",
		MaxTextRunes: 20000,
		MaxLinks:     200,
		MaxDomains:   50,
	}
}

type hopsKey struct{}

// Fetcher retrieves a URL and extracts its text and link metadata. Network
// failures are reported in the metadata, never returned as errors.
type Fetcher struct {
	client *http.Client
	cfg    Config
	text   *utils.TextProcessor
	logger *zap.Logger
}

// NewFetcher creates a new URL fetcher
func NewFetcher(cfg Config, text *utils.TextProcessor, logger *zap.Logger) *Fetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	f := &Fetcher{cfg: cfg, text: text, logger: logger}
	f.client = &http.Client{
		Transport:     transport,
		Timeout:       cfg.Timeout,
		CheckRedirect: f.checkRedirect,
	}
	return f
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if hops, ok := req.Context().Value(hopsKey{}).(*int); ok {
		*hops = len(via)
	}
	if len(via) >= f.cfg.MaxRedirects {
		return fmt.Errorf("stopped after %d redirects", len(via))
	}
	return nil
}

// Fetch downloads rawURL. Only a malformed URL is an error; everything the
// network does wrong ends up in Metadata.URLError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, *core.Metadata, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", nil, core.NewInputError("Invalid URL: use a full http:// or https:// address.", core.ErrUnsupportedInput)
	}

	meta := &core.Metadata{SourceType: core.SourceURL, URL: rawURL}

	hops := 0
	req, err := http.NewRequestWithContext(context.WithValue(ctx, hopsKey{}, &hops), http.MethodGet, u.String(), nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return f.failed(meta, err), meta, nil
	}
	defer resp.Body.Close()

	meta.StatusCode = resp.StatusCode
	meta.FinalURL = resp.Request.URL.String()
	meta.URLAccessible = core.Bool(resp.StatusCode >= 200 && resp.StatusCode < 300)
	meta.RedirectChain = hops > 1

	var body io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return f.failed(meta, err), meta, nil
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(io.LimitReader(body, f.cfg.MaxBodyBytes))
	if err != nil {
		return f.failed(meta, err), meta, nil
	}

	doc, err := htmltext.Parse(data, resp.Header.Get("Content-Type"))
	if err != nil {
		f.logger.Warn("Failed to parse page", zap.String("url", rawURL), zap.Error(err))
		return "", meta, nil
	}
	meta.Title = doc.Title

	links := htmltext.NewLinks(f.cfg.MaxLinks, f.cfg.MaxDomains)
	links.Add(doc.Links...)
	links.Add(htmltext.URLsInText(doc.Text)...)
	meta.Links = links.URLs
	meta.LinkDomains = links.Domains

	f.logger.Debug("Fetched URL",
		zap.String("url", rawURL),
		zap.String("final_url", meta.FinalURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("redirects", hops),
		zap.Int("links", len(meta.Links)))

	return f.text.TruncateRunes(doc.Text, f.cfg.MaxTextRunes, ""), meta, nil
}

func (f *Fetcher) failed(meta *core.Metadata, err error) string {
	meta.URLAccessible = core.Bool(false)
	meta.URLError = HumanizeError(err)
	f.logger.Warn("Failed to fetch URL", zap.String("url", meta.URL), zap.Error(err))
	return "(Failed to access the URL: " + meta.URLError + ")"
}

// HumanizeError turns a transport error into a short explanation,
// distinguishing DNS, timeout and TLS failures
func HumanizeError(err error) string {
	if err == nil {
		return ""
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "connection timed out."
		}
		return "could not resolve the domain (DNS)."
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "connection timed out."
	}

	var (
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		alertErr    tls.AlertError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)
	if errors.As(err, &verifyErr) || errors.As(err, &recordErr) || errors.As(err, &alertErr) ||
		errors.As(err, &unknownAuth) || errors.As(err, &hostErr) || errors.As(err, &invalidCert) {
		return "SSL/TLS failure."
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "network error."
}
