package brandguard

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// defaultAllowlist maps category -> brand key -> official registered domains
var defaultAllowlist = map[string]map[string][]string{
	"telecom": {
		"tim":   {"tim.com.br", "tim.com"},
		"claro": {"claro.com.br"},
		"vivo":  {"vivo.com.br"},
		"oi":    {"oi.com.br"},
	},
	"banks": {
		"itau":            {"itau.com.br"},
		"bradesco":        {"bradesco.com.br"},
		"santander":       {"santander.com.br"},
		"banco_do_brasil": {"bb.com.br"},
		"caixa":           {"caixa.gov.br"},
		"nubank":          {"nubank.com.br"},
		"btg_pactual":     {"btgpactual.com"},
		"original":        {"original.com.br"},
		"inter":           {"bancointer.com.br"},
	},
	"cards_and_payments": {
		"c6bank":       {"c6bank.com.br"},
		"pagseguro":    {"pagseguro.com.br"},
		"mercado_pago": {"mercadopago.com", "mercadopago.com.br"},
		"paypal":       {"paypal.com", "paypal.com.br"},
		"picpay":       {"picpay.com"},
	},
	"credit": {
		"serasa": {"serasa.com.br"},
		"bmg":    {"bancobmg.com.br"},
		"safra":  {"safra.com.br"},
	},
	"health": {
		"amil":           {"amil.com.br"},
		"unimed":         {"unimed.coop.br"},
		"hapvida":        {"hapvida.com.br"},
		"bradesco_saude": {"bradescoseguros.com.br"},
		"sulamerica":     {"sulamericaseguros.com.br"},
	},
	"retail": {
		"mercado_livre": {"mercadolivre.com.br"},
		"magalu":        {"magazineluiza.com.br"},
		"americanas":    {"americanas.com.br"},
		"submarino":     {"submarino.com.br"},
		"shopee":        {"shopee.com.br"},
		"amazon":        {"amazon.com", "amazon.com.br"},
	},
}

// Allowlist is the in-memory brand -> official domains table. It is
// immutable after construction.
type Allowlist struct {
	brands map[string][]string
}

// DefaultAllowlist returns the built-in table
func DefaultAllowlist() *Allowlist {
	return newAllowlist(defaultAllowlist)
}

// LoadAllowlist reads the allowlist from a JSON file. Both the categorized
// form {"category": {"brand": [...]}} and the flat form {"brand": [...]} are
// accepted. A missing or corrupt file yields the built-in table.
func LoadAllowlist(path string, logger *zap.Logger) *Allowlist {
	if path == "" {
		return DefaultAllowlist()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read brand allowlist, using built-in table",
				zap.String("path", path), zap.Error(err))
		}
		return DefaultAllowlist()
	}

	list, err := parseAllowlist(data)
	if err != nil {
		logger.Warn("Corrupt brand allowlist, using built-in table",
			zap.String("path", path), zap.Error(err))
		return DefaultAllowlist()
	}

	logger.Info("Loaded brand allowlist", zap.String("path", path), zap.Int("brands", len(list.brands)))
	return list
}

func parseAllowlist(data []byte) (*Allowlist, error) {
	var categorized map[string]map[string][]string
	if err := json.Unmarshal(data, &categorized); err == nil && len(categorized) > 0 {
		return newAllowlist(categorized), nil
	}

	var flat map[string][]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("failed to parse allowlist: %w", err)
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("failed to parse allowlist: no brands defined")
	}
	return newAllowlist(map[string]map[string][]string{"": flat}), nil
}

func newAllowlist(categories map[string]map[string][]string) *Allowlist {
	brands := make(map[string][]string)
	for _, byBrand := range categories {
		for brand, domains := range byBrand {
			key := strings.ToLower(strings.TrimSpace(brand))
			for _, d := range domains {
				d = strings.ToLower(strings.TrimSpace(d))
				if d != "" {
					brands[key] = append(brands[key], d)
				}
			}
		}
	}
	return &Allowlist{brands: brands}
}

// Official returns the official domains of a brand, nil when unknown
func (a *Allowlist) Official(brand string) []string {
	domains := a.brands[strings.ToLower(brand)]
	if len(domains) == 0 {
		return nil
	}
	return append([]string(nil), domains...)
}

// Brands lists the known brand keys in sorted order
func (a *Allowlist) Brands() []string {
	keys := make([]string, 0, len(a.brands))
	for k := range a.brands {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
