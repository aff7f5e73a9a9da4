package domainutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisteredDomain(t *testing.T) {
	tests := []struct {
		host     string
		expected string
	}{
		{"mail.itau.com.br", "itau.com.br"},
		{"WWW.Example.COM.", "example.com"},
		{"itau-seguro.net", "itau-seguro.net"},
		{"a.b.caixa.gov.br", "caixa.gov.br"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, RegisteredDomain(tt.host))
		})
	}
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "bit.ly", HostOf("https://bit.ly/abc"))
	assert.Equal(t, "example.com", HostOf("www.example.com/path"))
	assert.Equal(t, "example.com", HostOf("http://example.com:8080/x"))
	assert.Equal(t, "", HostOf(""))
}

func TestAddress(t *testing.T) {
	addr, domain := Address(`"Itaú" <Suporte@Itau-Seguro.net>`)
	assert.Equal(t, "suporte@itau-seguro.net", addr)
	assert.Equal(t, "itau-seguro.net", domain)

	addr, domain = Address("broken <x@y.com")
	assert.Equal(t, "x@y.com", addr)
	assert.Equal(t, "y.com", domain)

	addr, domain = Address("")
	assert.Empty(t, addr)
	assert.Empty(t, domain)
}

func TestBelongsTo(t *testing.T) {
	assert.True(t, BelongsTo("itau.com.br", "itau.com.br"))
	assert.True(t, BelongsTo("mail.itau.com.br", "itau.com.br"))
	assert.False(t, BelongsTo("fakeitau.com.br", "itau.com.br"))
	assert.False(t, BelongsTo("itau-seguro.net", "itau.com.br"))
	assert.False(t, BelongsTo("", "itau.com.br"))
	assert.True(t, BelongsToAny("bb.com.br", []string{"bancobrasil.com.br", "bb.com.br"}))
}

func TestSuspiciousTLD(t *testing.T) {
	assert.False(t, SuspiciousTLD("itau.com.br"))
	assert.False(t, SuspiciousTLD("example.org"))
	assert.True(t, SuspiciousTLD("promo-premio.xyz"))
	assert.True(t, SuspiciousTLD("login.top"))
	assert.False(t, SuspiciousTLD(""))
}
