package di

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/adapters/ingress"
	"github.com/mikey/llm-mail-router/internal/classify"
	"github.com/mikey/llm-mail-router/internal/config"
	"github.com/mikey/llm-mail-router/internal/core"
	"github.com/mikey/llm-mail-router/internal/dispatch"
	"github.com/mikey/llm-mail-router/internal/factory"
	"github.com/mikey/llm-mail-router/internal/logging"
	"github.com/mikey/llm-mail-router/internal/pipeline"
	"github.com/mikey/llm-mail-router/internal/route"
	"github.com/mikey/llm-mail-router/internal/sla"
	"github.com/mikey/llm-mail-router/internal/tenant"
	"github.com/mikey/llm-mail-router/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
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

	// Register factories
	if err := container.Provide(factory.NewOracleFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewDecisionLogFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTransportFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register classification oracle
	if err := container.Provide(func(f *factory.OracleFactory) (core.ClassificationOracle, error) {
		return f.CreateOracle()
	}); err != nil {
		return nil, err
	}

	// Register decision log
	if err := container.Provide(func(f *factory.DecisionLogFactory) (core.DecisionLog, error) {
		return f.CreateDecisionLog()
	}); err != nil {
		return nil, err
	}

	// Register mail transport
	if err := container.Provide(func(f *factory.TransportFactory) (core.MailTransport, error) {
		return f.CreateTransport()
	}); err != nil {
		return nil, err
	}

	// Register tenant directory
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*tenant.Directory, error) {
		snap, err := tenant.LoadDir(cfg.GetString("tenants.dir"), tenant.DefaultTenant(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load tenant directory: %w", err)
		}
		return tenant.NewDirectory(snap, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register classification resolver and routing engine
	if err := container.Provide(classify.NewResolver); err != nil {
		return nil, err
	}
	if err := container.Provide(route.NewEngine); err != nil {
		return nil, err
	}

	// Register dispatch gateway
	if err := container.Provide(func(
		cfg *config.Config,
		oracle core.ClassificationOracle,
		transport core.MailTransport,
		logger *zap.Logger,
	) (*dispatch.Gateway, error) {
		timeout, err := cfg.GetDuration("oracle.timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid oracle timeout: %w", err)
		}
		return dispatch.NewGateway(oracle, transport, timeout, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register SLA scheduler, sinking escalation events into the gateway
	if err := container.Provide(func(gateway *dispatch.Gateway, logger *zap.Logger) *sla.Scheduler {
		return sla.NewScheduler(gateway, logger)
	}); err != nil {
		return nil, err
	}

	// Register pipeline service
	if err := container.Provide(pipeline.NewService); err != nil {
		return nil, err
	}

	// Register SMTP ingress
	if err := container.Provide(func(
		cfg *config.Config,
		service *pipeline.Service,
		logger *zap.Logger,
	) (*ingress.SMTPIngress, error) {
		readTimeout, err := cfg.GetDuration("ingress.read_timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid ingress read timeout: %w", err)
		}
		writeTimeout, err := cfg.GetDuration("ingress.write_timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid ingress write timeout: %w", err)
		}
		return ingress.NewSMTPIngress(
			service,
			logger,
			cfg.GetString("ingress.listen_address"),
			cfg.GetString("ingress.domain"),
			int64(cfg.GetInt("ingress.max_message_bytes")),
			readTimeout,
			writeTimeout,
		), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
