package whitelist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/domainutil"
	"go.uber.org/zap"
)

// Entry kinds accepted by Add
const (
	KindDomain = "domain"
	KindPhrase = "phrase"
)

type document struct {
	Domains []string `json:"domains"`
	Phrases []string `json:"phrases"`
}

// Store holds the whitelisted domains and phrases. It is read before scoring
// and appended to, then persisted, on explicit user action.
type Store struct {
	mu      sync.RWMutex
	path    string
	domains []string
	phrases []string
	logger  *zap.Logger
}

// NewStore loads the whitelist from path. A missing file starts an empty
// whitelist; seed domains from configuration are merged in memory.
func NewStore(path string, seedDomains []string, logger *zap.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Info("Whitelist file not found, starting empty", zap.String("path", path))
		case err != nil:
			return nil, fmt.Errorf("failed to read whitelist: %w", err)
		default:
			var doc document
			if err := json.Unmarshal(data, &doc); err != nil {
				return nil, fmt.Errorf("failed to parse whitelist %s: %w", path, err)
			}
			s.domains = appendNew(s.domains, normalizeDomains(doc.Domains)...)
			s.phrases = appendNew(s.phrases, normalizePhrases(doc.Phrases)...)
		}
	}
	s.domains = appendNew(s.domains, normalizeDomains(seedDomains)...)

	if len(s.domains) > 0 || len(s.phrases) > 0 {
		logger.Info("Initialized whitelist",
			zap.Int("domains", len(s.domains)),
			zap.Int("phrases", len(s.phrases)))
	}
	return s, nil
}

// Apply sets the whitelist flags on meta. Domains match the final URL host
// and the sender registered domain by suffix; phrases match by
// case-insensitive containment.
func (s *Store) Apply(text string, meta *core.Metadata) {
	if meta == nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := []string{domainutil.HostOf(meta.TargetURL()), meta.FromRegisteredDomain}
	for _, host := range candidates {
		if host != "" && domainutil.BelongsToAny(host, s.domains) {
			meta.DomainWhitelisted = true
			s.logger.Debug("Domain is whitelisted", zap.String("domain", host))
			break
		}
	}

	lower := strings.ToLower(text)
	for _, p := range s.phrases {
		if strings.Contains(lower, p) {
			meta.PhraseWhitelisted = true
			s.logger.Debug("Phrase is whitelisted", zap.String("phrase", p))
			break
		}
	}
}

// IsSenderWhitelisted checks if the sender's domain is whitelisted
func (s *Store) IsSenderWhitelisted(from string) bool {
	_, domain := domainutil.Address(from)
	if domain == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return domainutil.BelongsToAny(domain, s.domains)
}

// Add appends a domain or phrase and persists the whitelist. Adding an
// existing value is a no-op.
func (s *Store) Add(kind, value string) error {
	var normalized string
	switch kind {
	case KindDomain:
		normalized = domainutil.Normalize(domainutil.HostOf(value))
	case KindPhrase:
		normalized = strings.ToLower(strings.TrimSpace(value))
	default:
		return core.NewInputError(fmt.Sprintf("Unknown whitelist type %q.", kind), core.ErrUnsupportedInput)
	}
	if normalized == "" {
		return core.NewInputError("Whitelist value is empty.", core.ErrEmptyInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := &s.domains
	if kind == KindPhrase {
		list = &s.phrases
	}
	for _, existing := range *list {
		if existing == normalized {
			return nil
		}
	}
	*list = append(*list, normalized)

	if err := s.save(); err != nil {
		*list = (*list)[:len(*list)-1]
		return err
	}
	s.logger.Info("Whitelist updated", zap.String("type", kind), zap.String("value", normalized))
	return nil
}

// Domains returns a copy of the whitelisted domains
func (s *Store) Domains() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.domains...)
}

// Phrases returns a copy of the whitelisted phrases
func (s *Store) Phrases() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.phrases...)
}

// save writes the whitelist atomically; callers hold the write lock
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(document{Domains: s.domains, Phrases: s.phrases}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode whitelist: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create whitelist directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write whitelist: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace whitelist: %w", err)
	}
	return nil
}

func normalizeDomains(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		if d = domainutil.Normalize(strings.TrimSpace(d)); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func normalizePhrases(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendNew(list []string, items ...string) []string {
	for _, item := range items {
		dup := false
		for _, existing := range list {
			if existing == item {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, item)
		}
	}
	return list
}
