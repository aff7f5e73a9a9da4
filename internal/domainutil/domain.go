// Package domainutil holds the registered-domain helpers shared by the
// normalizer, the brand guard and the whitelist.
package domainutil

import (
	"net/mail"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var trustedTLDs = map[string]struct{}{
	"br": {}, "com": {}, "net": {}, "gov": {}, "org": {}, "edu": {},
}

// Normalize lowercases a host and strips the trailing dot, port and "www."
func Normalize(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	if h, _, ok := strings.Cut(host, ":"); ok && !strings.Contains(host, "]") {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}

// RegisteredDomain returns the eTLD+1 of host ("mail.itau.com.br" -> "itau.com.br").
// Hosts the public suffix list cannot split are returned normalized as-is.
func RegisteredDomain(host string) string {
	host = Normalize(host)
	if host == "" {
		return ""
	}
	reg, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return reg
}

// HostOf extracts the normalized host of a URL, accepting scheme-less input
func HostOf(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return Normalize(u.Hostname())
}

// Address splits a header value like `"Bank" <a@b.com>` into the bare
// lowercase address and its domain
func Address(header string) (addr, domain string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ""
	}
	if parsed, err := mail.ParseAddress(header); err == nil {
		addr = parsed.Address
	} else {
		addr = strings.Trim(header, "<> ")
		if i := strings.LastIndex(addr, "<"); i >= 0 {
			addr = strings.Trim(addr[i:], "<> ")
		}
	}
	addr = strings.ToLower(addr)
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		domain = Normalize(addr[i+1:])
	}
	return addr, domain
}

// BelongsTo reports whether domain equals official or is a subdomain of it.
// The dot boundary keeps "fakeitau.com.br" from matching "itau.com.br".
func BelongsTo(domain, official string) bool {
	domain = Normalize(domain)
	official = Normalize(official)
	if domain == "" || official == "" {
		return false
	}
	return domain == official || strings.HasSuffix(domain, "."+official)
}

// BelongsToAny reports whether domain belongs to one of the official domains
func BelongsToAny(domain string, officials []string) bool {
	for _, o := range officials {
		if BelongsTo(domain, o) {
			return true
		}
	}
	return false
}

// SuspiciousTLD reports whether the last label of the domain's public suffix
// falls outside the common trusted set. Unknown (empty) domains are not suspicious.
func SuspiciousTLD(domain string) bool {
	domain = Normalize(domain)
	if domain == "" {
		return false
	}
	suffix, _ := publicsuffix.PublicSuffix(domain)
	if i := strings.LastIndex(suffix, "."); i >= 0 {
		suffix = suffix[i+1:]
	}
	_, ok := trustedTLDs[suffix]
	return !ok
}
