// Package ingress is the inbound transport collaborator: a thin SMTP
// server that parses each delivery into a core.Message and hands it to
// the pipeline. The engine itself never touches MIME.
package ingress

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/core"
	"github.com/mikey/llm-mail-router/internal/pipeline"
)

// SMTPIngress accepts inbound mail and feeds the routing pipeline.
type SMTPIngress struct {
	service         *pipeline.Service
	logger          *zap.Logger
	listenAddr      string
	domain          string
	maxMessageBytes int64
	readTimeout     time.Duration
	writeTimeout    time.Duration
	server          *smtp.Server
}

// NewSMTPIngress creates an SMTP ingress.
func NewSMTPIngress(
	service *pipeline.Service,
	logger *zap.Logger,
	listenAddr string,
	domain string,
	maxMessageBytes int64,
	readTimeout time.Duration,
	writeTimeout time.Duration,
) *SMTPIngress {
	return &SMTPIngress{
		service:         service,
		logger:          logger,
		listenAddr:      listenAddr,
		domain:          domain,
		maxMessageBytes: maxMessageBytes,
		readTimeout:     readTimeout,
		writeTimeout:    writeTimeout,
	}
}

// Start starts the ingress server
func (g *SMTPIngress) Start() error {
	g.server = smtp.NewServer(&smtpBackend{ingress: g})

	g.server.Addr = g.listenAddr
	g.server.Domain = g.domain
	g.server.ReadTimeout = g.readTimeout
	g.server.WriteTimeout = g.writeTimeout
	g.server.MaxMessageBytes = g.maxMessageBytes
	g.server.MaxRecipients = 50
	g.server.AllowInsecureAuth = true

	g.logger.Info("SMTP ingress starting", zap.String("address", g.listenAddr))

	go func() {
		if err := g.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				g.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the ingress server
func (g *SMTPIngress) Stop() error {
	if g.server != nil {
		return g.server.Close()
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	ingress *SMTPIngress
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		ingress:    b.ingress,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	ingress    *SMTPIngress
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// Logout is called when the session ends
func (s *smtpSession) Logout() error {
	return nil
}

// AuthPlain handles PLAIN authentication (not needed for ingress)
func (s *smtpSession) AuthPlain(_, _ string) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data handles the message data: parse, build a core.Message per
// recipient, and run each through the pipeline.
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.ingress.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.ingress.logger.Error("Failed to parse email message", zap.Error(err))
		return err
	}

	textContent, err := extractTextFromMessage(msg)
	if err != nil {
		s.ingress.logger.Error("Failed to extract text content", zap.Error(err))
		return err
	}

	subject := msg.Header.Get("Subject")
	receivedAt := time.Now()
	if date, err := msg.Header.Date(); err == nil {
		receivedAt = date
	}

	for _, recipient := range s.recipients {
		id := messageID(msg, recipient)
		if len(s.recipients) > 1 {
			// One engine message per recipient; ids must not collide or
			// the later recipient's escalation chain replaces the
			// earlier one.
			id = fmt.Sprintf("%s/%s", id, recipient)
		}
		inbound := &core.Message{
			ID:         id,
			Sender:     s.sender,
			Recipient:  recipient,
			Subject:    subject,
			Body:       textContent,
			ReceivedAt: receivedAt,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		decision, err := s.ingress.service.Route(ctx, inbound)
		cancel()
		if err != nil {
			s.ingress.logger.Error("Failed to route message",
				zap.Error(err),
				zap.String("message_id", inbound.ID),
				zap.String("sender", inbound.Sender))
			continue
		}

		s.ingress.logger.Info("Message routed",
			zap.String("message_id", decision.MessageID),
			zap.String("tenant", decision.TenantID),
			zap.String("recipient", decision.Recipient),
			zap.String("reason", string(decision.Reason)))
	}

	return nil
}

// messageID derives a stable id from the Message-ID header, falling
// back to a timestamped synthetic one.
func messageID(msg *mail.Message, recipient string) string {
	if id := strings.Trim(msg.Header.Get("Message-ID"), "<> "); id != "" {
		return id
	}
	return fmt.Sprintf("%s-%d", recipient, time.Now().UnixNano())
}
