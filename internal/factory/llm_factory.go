package factory

import (
	"fmt"
	"strings"

	"github.com/mikey/llm-fraud-checker/internal/adapters/bedrock"
	"github.com/mikey/llm-fraud-checker/internal/adapters/gemini"
	"github.com/mikey/llm-fraud-checker/internal/adapters/openai"
	"github.com/mikey/llm-fraud-checker/internal/config"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/utils"
	"go.uber.org/zap"
)

// ProviderDisabled turns the classifier into the default-verdict stand-in
const ProviderDisabled = "disabled"

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration. The
// disabled provider yields a nil client.
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	provider := strings.ToLower(strings.TrimSpace(f.cfg.GetLLM().Provider))

	var (
		client core.LLMClient
		err    error
	)
	switch provider {
	case "", ProviderDisabled:
		f.logger.Info("Classifier disabled, using the default verdict")
		return nil, nil
	case "bedrock":
		client, err = bedrock.NewFactory(f.cfg.GetBedrock(), f.logger, f.textProcessor).CreateLLMClient()
	case "gemini":
		client, err = gemini.NewFactory(f.cfg.GetGemini(), f.logger, f.textProcessor).CreateLLMClient()
	case "openai":
		client, err = openai.NewFactory(f.cfg.GetOpenAI(), f.logger, f.textProcessor).CreateLLMClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
	}

	f.logger.Info("Classifier enabled", zap.String("model", client.Name()))
	return client, nil
}
