package ports

import (
	"context"

	"github.com/mikey/llm-fraud-checker/internal/core"
)

// Analyzer runs one input through the risk-scoring pipeline
type Analyzer interface {
	Analyze(ctx context.Context, in core.AnalysisInput) (*core.FusedVerdict, error)
}

// WhitelistEditor appends entries to the whitelist store
type WhitelistEditor interface {
	Add(kind, value string) error
}

// SenderWhitelist reports whether a sender address is trusted outright
type SenderWhitelist interface {
	IsSenderWhitelisted(from string) bool
}

// CacheCleaner is implemented by cache backends that purge expired entries
// on demand. Backends with native expiry do not implement it.
type CacheCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// Frontend is a long-running surface in front of the analyzer
type Frontend interface {
	// Start starts serving in the background
	Start() error

	// Stop stops serving
	Stop() error
}
