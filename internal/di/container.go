package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-fraud-checker/internal/adapters/tesseract"
	"github.com/mikey/llm-fraud-checker/internal/brandguard"
	"github.com/mikey/llm-fraud-checker/internal/classifier"
	"github.com/mikey/llm-fraud-checker/internal/config"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/factory"
	"github.com/mikey/llm-fraud-checker/internal/fusion"
	"github.com/mikey/llm-fraud-checker/internal/heuristics"
	"github.com/mikey/llm-fraud-checker/internal/logging"
	"github.com/mikey/llm-fraud-checker/internal/normalizer"
	"github.com/mikey/llm-fraud-checker/internal/ports"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"github.com/mikey/llm-fraud-checker/internal/whitelist"
)

// BuildContainer creates and configures a dependency injection container
// for the long-running daemon
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Register cache repository
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory, repo core.CacheRepository) ports.CacheCleaner {
		return f.Cleaner(repo)
	}); err != nil {
		return nil, err
	}

	// Register front-ends
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FilterFactory) ([]ports.Frontend, error) {
		return f.CreateFrontends()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// providePipeline registers every analysis stage. The caller registers the
// config, the logger and the cache repository.
func providePipeline(container *dig.Container) error {
	providers := []interface{}{
		utils.NewTextProcessor,
		factory.NewLLMFactory,
		factory.NewCacheFactory,
		factory.NewPipelineFactory,

		// LLM client, nil when the classifier is disabled
		func(f *factory.LLMFactory) (core.LLMClient, error) {
			return f.CreateLLMClient()
		},
		func(f *factory.CacheFactory, repo core.CacheRepository) *core.ResultCache {
			return f.CreateResultCache(repo)
		},

		// OCR
		tesseract.NewBackend,
		func(f *factory.PipelineFactory, backend *tesseract.Backend) core.OCREngine {
			return f.CreateOCREngine(backend)
		},

		// Normalizer
		func(f *factory.PipelineFactory, engine core.OCREngine, results *core.ResultCache) *normalizer.Normalizer {
			return f.CreateNormalizer(f.CreateFetcher(), engine, f.CreateEmailParser(), results)
		},

		// Detectors
		func(f *factory.PipelineFactory) (*whitelist.Store, error) { return f.CreateWhitelist() },
		func(f *factory.PipelineFactory) *brandguard.Guard { return f.CreateBrandGuard() },
		func(f *factory.PipelineFactory) *heuristics.Engine { return f.CreateHeuristics() },
		func(f *factory.PipelineFactory, client core.LLMClient, results *core.ResultCache) *classifier.Adapter {
			return f.CreateClassifier(client, results)
		},
		func(f *factory.PipelineFactory) *fusion.Fuser { return f.CreateFuser() },

		// Analyzer service
		func(
			n *normalizer.Normalizer,
			store *whitelist.Store,
			guard *brandguard.Guard,
			rules *heuristics.Engine,
			adapter *classifier.Adapter,
			fuser *fusion.Fuser,
			text *utils.TextProcessor,
			logger *zap.Logger,
		) *core.AnalyzerService {
			return core.NewAnalyzerService(n, store, guard, rules, adapter, fuser, text, logger)
		},
		func(s *core.AnalyzerService) ports.Analyzer { return s },
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}
