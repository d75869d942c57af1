package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/adapters/bedrock"
	"github.com/mikey/llm-mail-router/internal/adapters/gemini"
	"github.com/mikey/llm-mail-router/internal/adapters/openai"
	"github.com/mikey/llm-mail-router/internal/config"
	"github.com/mikey/llm-mail-router/internal/core"
	"github.com/mikey/llm-mail-router/internal/utils"
)

// OracleFactory creates classification oracle clients
type OracleFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOracleFactory creates a new oracle factory
func NewOracleFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *OracleFactory {
	return &OracleFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateOracle creates a new classification oracle based on the configuration.
// Provider "none" yields a nil oracle and the pipeline falls back to keyword
// classification for every message.
func (f *OracleFactory) CreateOracle() (core.ClassificationOracle, error) {
	oracleConfig := f.cfg.GetOracle()

	switch oracleConfig.Provider {
	case "bedrock":
		factory := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateClient()
	case "gemini":
		factory := gemini.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateClient()
	case "openai":
		factory := openai.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateClient()
	case "none":
		f.logger.Warn("Classification oracle disabled, keyword fallback only")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", oracleConfig.Provider)
	}
}
