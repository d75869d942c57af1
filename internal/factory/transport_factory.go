package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/adapters/smtpout"
	"github.com/mikey/llm-mail-router/internal/config"
	"github.com/mikey/llm-mail-router/internal/core"
)

// TransportFactory creates outbound mail transports
type TransportFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTransportFactory creates a new transport factory
func NewTransportFactory(cfg *config.Config, logger *zap.Logger) *TransportFactory {
	return &TransportFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTransport creates a mail transport based on the configuration
func (f *TransportFactory) CreateTransport() (core.MailTransport, error) {
	transportType := f.cfg.GetString("transport.type")
	timeout, err := f.cfg.GetDuration("transport.timeout")
	if err != nil {
		return nil, fmt.Errorf("invalid transport timeout: %w", err)
	}

	switch transportType {
	case "smtp":
		relayAddr := f.cfg.GetString("transport.smtp_address")
		from := f.cfg.GetString("transport.from")
		return smtpout.NewSender(relayAddr, from, timeout, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", transportType)
	}
}
