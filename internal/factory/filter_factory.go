package factory

import (
	"fmt"
	"io"
	"strings"

	"github.com/mikey/llm-fraud-checker/internal/adapters/api"
	"github.com/mikey/llm-fraud-checker/internal/adapters/filter"
	"github.com/mikey/llm-fraud-checker/internal/config"
	"github.com/mikey/llm-fraud-checker/internal/ports"
	"github.com/mikey/llm-fraud-checker/internal/whitelist"
	"go.uber.org/zap"
)

// FilterFactory creates the front-ends based on configuration
type FilterFactory struct {
	cfg       *config.Config
	logger    *zap.Logger
	analyzer  ports.Analyzer
	whitelist *whitelist.Store
	cleaner   ports.CacheCleaner
}

// NewFilterFactory creates a new filter factory. cleaner may be nil.
func NewFilterFactory(
	cfg *config.Config,
	logger *zap.Logger,
	analyzer ports.Analyzer,
	store *whitelist.Store,
	cleaner ports.CacheCleaner,
) *FilterFactory {
	return &FilterFactory{
		cfg:       cfg,
		logger:    logger,
		analyzer:  analyzer,
		whitelist: store,
		cleaner:   cleaner,
	}
}

// CreateFrontends creates every front-end listed in server.filter_type,
// a comma separated list of postfix and api
func (f *FilterFactory) CreateFrontends() ([]ports.Frontend, error) {
	var frontends []ports.Frontend
	for _, kind := range strings.Split(f.cfg.GetServer().FilterType, ",") {
		kind = strings.TrimSpace(kind)
		if kind == "" {
			continue
		}
		fe, err := f.CreateFrontend(kind)
		if err != nil {
			return nil, err
		}
		frontends = append(frontends, fe)
	}
	if len(frontends) == 0 {
		return nil, fmt.Errorf("no front-end configured in server.filter_type")
	}
	return frontends, nil
}

// CreateFrontend creates one long-running front-end
func (f *FilterFactory) CreateFrontend(kind string) (ports.Frontend, error) {
	var (
		senders ports.SenderWhitelist
		editor  ports.WhitelistEditor
	)
	if f.whitelist != nil {
		senders, editor = f.whitelist, f.whitelist
	}

	switch kind {
	case "postfix":
		return filter.NewPostfixFilter(
			f.analyzer,
			senders,
			f.logger,
			f.cfg.GetServer(),
			f.cfg.GetLLM().Timeout+f.cfg.GetOCR().TimeBudget,
		), nil
	case "api":
		return api.NewServer(
			f.analyzer,
			editor,
			f.cleaner,
			f.cfg.GetAPI(),
			f.cfg.GetLogging().Level,
			f.logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", kind)
	}
}

// CreateCliFilter creates the one-shot CLI front-end
func (f *FilterFactory) CreateCliFilter(out io.Writer, verbose, jsonOutput bool) *filter.CliFilter {
	return filter.NewCliFilter(f.analyzer, f.logger, out, verbose, jsonOutput)
}
