// Package smtpout delivers the engine's outbound notifications over
// SMTP. One attempt per send; the engine owns no transport retries.
package smtpout

import (
	"context"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/core"
)

// Sender implements core.MailTransport over a relay SMTP server.
type Sender struct {
	relayAddr string
	from      string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewSender creates an SMTP sender targeting the given relay.
func NewSender(relayAddr, from string, timeout time.Duration, logger *zap.Logger) *Sender {
	return &Sender{
		relayAddr: relayAddr,
		from:      from,
		timeout:   timeout,
		logger:    logger,
	}
}

// Send renders the templated message and attempts one SMTP delivery.
func (s *Sender) Send(ctx context.Context, req *core.SendRequest) (*core.SendResult, error) {
	body := renderTemplate(req)

	if err := s.deliver(req.To, body); err != nil {
		return &core.SendResult{Status: core.SendStatusFailed}, err
	}

	s.logger.Debug("Message delivered",
		zap.String("to", req.To),
		zap.String("template", req.BodyRef))
	return &core.SendResult{
		Status:            core.SendStatusSent,
		ProviderMessageID: fmt.Sprintf("%s-%d", req.BodyRef, time.Now().UnixNano()),
	}, nil
}

// deliver speaks the SMTP client dialogue against the relay.
func (s *Sender) deliver(to string, data []byte) error {
	// Get hostname for EHLO
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	// Connect to the relay with a timeout
	conn, err := net.DialTimeout("tcp", s.relayAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	// Set a deadline for the connection
	if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	// Create a client
	c := smtp.NewClient(conn)
	defer c.Close()

	// Send EHLO
	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	// Set the sender
	if err := c.Mail(s.from, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	// Set the recipient
	if err := c.Rcpt(to, nil); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	// Send the message data
	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	// Quit the connection
	if err := c.Quit(); err != nil {
		s.logger.Warn("QUIT command failed", zap.Error(err))
		// Not returning an error here as the message has already been sent
	}

	return nil
}

// renderTemplate builds a minimal RFC 5322 message from the template
// ref and variables. The engine decides who and by when; the wording
// lives here.
func renderTemplate(req *core.SendRequest) []byte {
	keys := make([]string, 0, len(req.Variables))
	for k := range req.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", req.To)
	fmt.Fprintf(&b, "Subject: [%s] %s\r\n", req.SubjectRef, req.Variables["subject"])
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Notification: %s\r\n\r\n", req.BodyRef)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, req.Variables[k])
	}
	return []byte(b.String())
}
