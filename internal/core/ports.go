package core

import (
	"context"
	"time"
)

// OCRMode selects how many preprocessing variants the OCR engine tries
type OCRMode string

const (
	OCRModeFast       OCRMode = "fast"
	OCRModeAggressive OCRMode = "aggressive"
)

// Prompt is a single request to an LLM transport
type Prompt struct {
	System string
	User   string
}

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Complete sends the prompt and returns the raw model output
	Complete(ctx context.Context, prompt Prompt) (string, error)

	// Name identifies the provider and model, e.g. "openai:gpt-4o-mini"
	Name() string
}

// CacheRepository defines the interface for the result cache backends.
// Get returns ErrCacheMiss for absent and expired entries.
type CacheRepository interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
}

// OCREngine extracts text from an image under a wall-clock budget
type OCREngine interface {
	Extract(ctx context.Context, image []byte, budget time.Duration, mode OCRMode) (string, OCRDiagnostics, error)
}

// Fetcher retrieves a URL and extracts its visible text. Network failures are
// reported inside the metadata, the error is reserved for unusable URLs.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, *Metadata, error)
}

// EmailParser extracts text and sender metadata from a raw message
type EmailParser interface {
	Parse(raw []byte) (string, *Metadata, error)
}

// Normalizer turns any AnalysisInput into plain text plus metadata
type Normalizer interface {
	Normalize(ctx context.Context, in AnalysisInput) (string, *Metadata, error)
}

// WhitelistMatcher sets the whitelist flags on the metadata
type WhitelistMatcher interface {
	Apply(text string, meta *Metadata)
}

// BrandGuard detects brand impersonation
type BrandGuard interface {
	Check(meta *Metadata, text string) BrandImpersonationVerdict
}

// HeuristicEngine computes the deterministic rule score
type HeuristicEngine interface {
	Score(text string, meta *Metadata) HeuristicResult
}

// Classifier produces the second-opinion verdict. It never fails; an
// unavailable backend yields the degraded default verdict.
type Classifier interface {
	Classify(ctx context.Context, text string, meta *Metadata) ClassifierResult
}

// Fuser combines detector outputs into the final verdict
type Fuser interface {
	// Override evaluates the absolute override rules only
	Override(meta *Metadata, text string) (*FusedVerdict, bool)

	// Fuse blends heuristic and classifier results, honouring overrides first
	Fuse(h HeuristicResult, c ClassifierResult, meta *Metadata, source SourceType, text string) *FusedVerdict
}
