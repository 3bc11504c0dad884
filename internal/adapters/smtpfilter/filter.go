// Package smtpfilter implements a Postfix content filter: it accepts mail on
// a local SMTP port, scores it, stamps the verdict headers and reinjects the
// message into Postfix. Phishing verdicts are optionally rejected instead.
package smtpfilter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/phishshield/internal/core"
	"github.com/mikey/phishshield/internal/utils"
	"github.com/mikey/phishshield/internal/whitelist"
	"go.uber.org/zap"
)

// Filter is a Postfix content filter backed by the analyzer service.
type Filter struct {
	service       *core.AnalyzerService
	trusted       *whitelist.Checker
	logger        *zap.Logger
	listenAddr    string
	relayAddr     string
	blockPhishing bool
	scoreHeader   string
	verdictHeader string
	reasonHeader  string
	server        *smtp.Server
}

// Config carries the SMTP filter settings.
type Config struct {
	ListenAddr    string
	RelayAddr     string
	BlockPhishing bool
	ScoreHeader   string
	VerdictHeader string
	ReasonHeader  string
}

// NewFilter creates a new Postfix content filter.
func NewFilter(service *core.AnalyzerService, trusted *whitelist.Checker, cfg Config, logger *zap.Logger) *Filter {
	return &Filter{
		service:       service,
		trusted:       trusted,
		logger:        logger,
		listenAddr:    cfg.ListenAddr,
		relayAddr:     cfg.RelayAddr,
		blockPhishing: cfg.BlockPhishing,
		scoreHeader:   cfg.ScoreHeader,
		verdictHeader: cfg.VerdictHeader,
		reasonHeader:  cfg.ReasonHeader,
	}
}

// Start starts the SMTP listener.
func (f *Filter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})
	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("SMTP filter starting", zap.String("address", f.listenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && err != smtp.ErrServerClosed {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the SMTP listener.
func (f *Filter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// relay reinjects the processed message into Postfix.
func (f *Filter) relay(sender string, recipients []string, emailData []byte) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", f.relayAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
		} else {
			recipientOK = true
		}
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *Filter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		filter:     b.filter,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *Filter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// AuthPlain handles PLAIN authentication (not needed for the filter)
func (s *smtpSession) AuthPlain(_ []byte) error {
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

// Data scores the message, stamps the verdict headers and relays it. A
// Phishing verdict is rejected with a 550 when blocking is enabled; trusted
// sender domains skip analysis entirely.
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.filter.logger.Error("Failed to parse email message", zap.Error(err))
		return err
	}

	if s.filter.trusted.IsTrusted(s.sender) {
		s.filter.logger.Info("Relaying mail from trusted domain", zap.String("sender", s.sender))
		return s.filter.relay(s.sender, s.recipients, rawData)
	}

	textContent, err := extractTextFromMessage(msg)
	if err != nil {
		s.filter.logger.Error("Failed to extract text content", zap.Error(err))
		return err
	}

	email := &core.EmailRecord{
		Sender:  s.sender,
		Subject: msg.Header.Get("Subject"),
		Body:    textContent,
		Links:   utils.ExtractLinks(textContent),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	result := s.filter.service.Analyze(ctx, email)

	if result.Verdict == core.VerdictPhishing && s.filter.blockPhishing {
		s.filter.logger.Info("Rejecting phishing email",
			zap.String("from", s.sender),
			zap.Float64("score", result.FinalScore))
		return fmt.Errorf("550 Rejected as phishing (score: %.2f)", result.FinalScore)
	}

	stamped := s.stampHeaders(rawData, result)

	if err := s.filter.relay(s.sender, s.recipients, stamped); err != nil {
		s.filter.logger.Error("Failed to relay email",
			zap.Error(err),
			zap.String("sender", s.sender))
		return err
	}

	s.filter.logger.Info("Processed email",
		zap.String("from", s.sender),
		zap.Float64("score", result.FinalScore),
		zap.String("verdict", string(result.Verdict)))

	return nil
}

// stampHeaders prepends the verdict headers to the raw message, preserving
// the original headers and MIME body untouched.
func (s *smtpSession) stampHeaders(rawData []byte, result *core.AnalysisResult) []byte {
	var stamped bytes.Buffer

	fmt.Fprintf(&stamped, "%s: %.2f\r\n", s.filter.scoreHeader, result.FinalScore)
	fmt.Fprintf(&stamped, "%s: %s\r\n", s.filter.verdictHeader, result.Verdict)
	fmt.Fprintf(&stamped, "%s: %s\r\n", s.filter.reasonHeader, headerReason(result))

	stamped.Write(rawData)
	return stamped.Bytes()
}

// headerReason condenses the analysis reasons into one header-safe line.
func headerReason(result *core.AnalysisResult) string {
	var reasons []string
	reasons = append(reasons, result.HeaderReasons...)
	reasons = append(reasons, result.DomainAnalysis.Reasons...)
	reasons = append(reasons, result.LinkReasons...)
	if len(reasons) == 0 {
		reasons = append(reasons, "No suspicious indicators")
	}
	line := strings.Join(reasons, "; ")
	line = strings.ReplaceAll(line, "\r", " ")
	line = strings.ReplaceAll(line, "\n", " ")
	if len(line) > 500 {
		line = line[:500]
	}
	return line
}

// Logout handles SMTP logout (not needed for the filter)
func (s *smtpSession) Logout() error {
	return nil
}
