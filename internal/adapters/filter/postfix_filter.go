package filter

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/emersion/go-smtp"
	"github.com/mikey/llm-fraud-checker/internal/config"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/metrics"
	"github.com/mikey/llm-fraud-checker/internal/ports"
	"go.uber.org/zap"
)

const (
	statusError       = "error"
	statusWhitelisted = "whitelisted"
	maxReasonRunes    = 200
)

// PostfixFilter implements a Postfix content filter. Relayed mail is
// analysed, annotated with X-Fraud-* headers and re-injected.
type PostfixFilter struct {
	service        ports.Analyzer
	senders        ports.SenderWhitelist
	logger         *zap.Logger
	cfg            config.ServerConfig
	server         *smtp.Server
	analyzeTimeout time.Duration
}

// NewPostfixFilter creates a new Postfix content filter. senders may be nil.
func NewPostfixFilter(
	service ports.Analyzer,
	senders ports.SenderWhitelist,
	logger *zap.Logger,
	cfg config.ServerConfig,
	analyzeTimeout time.Duration,
) *PostfixFilter {
	if analyzeTimeout <= 0 {
		analyzeTimeout = time.Minute
	}
	return &PostfixFilter{
		service:        service,
		senders:        senders,
		logger:         logger,
		cfg:            cfg,
		analyzeTimeout: analyzeTimeout,
	}
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	ln, err := net.Listen("tcp", f.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.cfg.ListenAddress, err)
	}
	return f.Serve(ln)
}

// Serve starts the SMTP server on an existing listener
func (f *PostfixFilter) Serve(ln net.Listener) error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("Postfix filter starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := f.server.Serve(ln); err != nil && err != smtp.ErrServerClosed {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// Verdict analyses a raw message. A nil verdict with a nil error means the
// envelope sender is whitelisted and analysis was skipped.
func (f *PostfixFilter) Verdict(ctx context.Context, sender string, raw []byte) (*core.FusedVerdict, error) {
	if f.senders != nil && f.senders.IsSenderWhitelisted(sender) {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.analyzeTimeout)
	defer cancel()
	return f.service.Analyze(ctx, core.EmailInput(raw, ""))
}

// Annotate rewrites the message header with the verdict and keeps the body
// untouched. A fraud verdict prefixes the subject when a prefix is set.
func (f *PostfixFilter) Annotate(raw []byte, verdict *core.FusedVerdict, analysisErr error) ([]byte, error) {
	br := bufio.NewReader(bytes.NewReader(raw))
	th, err := textproto.ReadHeader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read message header: %w", err)
	}
	h := mail.Header{Header: message.Header{Header: th}}

	status, risk, reason := statusWhitelisted, "0.0", "Sender is whitelisted."
	switch {
	case analysisErr != nil:
		status, reason = statusError, core.UserMessage(analysisErr)
	case verdict != nil:
		status = string(verdict.Label)
		risk = fmt.Sprintf("%.1f", verdict.RiskPct)
		reason = verdictReason(verdict)
	}

	h.Set(f.cfg.StatusHeader, status)
	h.Set(f.cfg.RiskHeader, risk)
	h.Set(f.cfg.ReasonHeader, headerValue(reason))

	if verdict != nil && verdict.Label == core.LabelFraud && f.cfg.SubjectPrefix != "" {
		subject, err := h.Subject()
		if err != nil {
			subject = h.Get("Subject")
		}
		if !strings.HasPrefix(subject, f.cfg.SubjectPrefix) {
			h.SetSubject(f.cfg.SubjectPrefix + subject)
		}
	}

	var out bytes.Buffer
	if err := textproto.WriteHeader(&out, h.Header.Header); err != nil {
		return nil, fmt.Errorf("failed to write message header: %w", err)
	}
	if _, err := io.Copy(&out, br); err != nil {
		return nil, fmt.Errorf("failed to copy message body: %w", err)
	}
	return out.Bytes(), nil
}

// verdictReason picks the most telling line of a verdict for a header
func verdictReason(v *core.FusedVerdict) string {
	switch {
	case len(v.RedFlags) > 0:
		return v.RedFlags[0]
	case v.Explanation != "":
		return v.Explanation
	case len(v.BenignNotes) > 0:
		return v.BenignNotes[0]
	}
	return "No risk signals."
}

// headerValue folds a reason onto one line and encodes non-ASCII text
func headerValue(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxReasonRunes {
		s = string(r[:maxReasonRunes]) + "..."
	}
	return mime.QEncoding.Encode("utf-8", s)
}

// forwardAddress is the re-injection target
func (f *PostfixFilter) forwardAddress() string {
	return net.JoinHostPort(f.cfg.PostfixAddress, fmt.Sprint(f.cfg.PostfixPort))
}

// sendToPostfix sends the processed email back to Postfix on the configured port using go-smtp
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", f.forwardAddress(), 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
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
			continue
		}
		recipientOK = true
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
		// already delivered
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
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

// Data analyses, annotates and forwards one message
func (s *smtpSession) Data(r io.Reader) error {
	f := s.filter

	raw, err := io.ReadAll(r)
	if err != nil {
		f.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	verdict, analysisErr := f.Verdict(context.Background(), s.sender, raw)
	if analysisErr != nil {
		// mail keeps flowing when analysis fails
		f.logger.Error("Failed to analyze email",
			zap.Error(analysisErr),
			zap.String("sender", s.sender))
	}

	if verdict != nil && verdict.Label == core.LabelFraud && f.cfg.BlockFraud {
		f.logger.Info("Rejecting fraudulent email",
			zap.String("from", s.sender),
			zap.String("analysis_id", verdict.AnalysisID),
			zap.Float64("risk_pct", verdict.RiskPct))
		metrics.MailFiltered.WithLabelValues("rejected").Inc()
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as fraud (risk: %.1f%%)", verdict.RiskPct),
		}
	}

	annotated, err := f.Annotate(raw, verdict, analysisErr)
	if err != nil {
		f.logger.Warn("Failed to annotate email, forwarding it unchanged", zap.Error(err))
		annotated = raw
	}

	if f.cfg.PostfixEnabled {
		if err := f.sendToPostfix(s.sender, s.recipients, annotated); err != nil {
			f.logger.Error("Failed to send email back to Postfix",
				zap.Error(err),
				zap.String("sender", s.sender))
			return err
		}
	} else {
		f.logger.Warn("Postfix forwarding disabled, this is likely a misconfiguration")
	}

	outcome := statusWhitelisted
	switch {
	case analysisErr != nil:
		outcome = statusError
	case verdict != nil:
		outcome = string(verdict.Label)
	}
	metrics.MailFiltered.WithLabelValues(outcome).Inc()

	f.logger.Info("Processed email",
		zap.String("from", s.sender),
		zap.Int("recipients", len(s.recipients)),
		zap.String("outcome", outcome))
	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
