package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/askarbek/auth-service/internal/config"
	"github.com/askarbek/auth-service/internal/platform/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SMTPSender delivers verification and password reset mail over SMTP.
type SMTPSender struct {
	cfg    config.SMTPConfig
	dialer *gomail.Dialer
	logger *logger.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, log *logger.Logger) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.SenderEmail == "" {
		return nil, fmt.Errorf("SMTP host, port, and sender email must be configured")
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	serverName := cfg.ServerName
	if serverName == "" {
		serverName = cfg.Host
	}
	switch strings.ToLower(cfg.Encryption) {
	case "ssl":
		dialer.SSL = true
		dialer.TLSConfig = &tls.Config{ServerName: serverName, MinVersion: tls.VersionTLS12}
	case "tls", "starttls":
		dialer.TLSConfig = &tls.Config{ServerName: serverName, MinVersion: tls.VersionTLS12}
	}

	return &SMTPSender{
		cfg:    cfg,
		dialer: dialer,
		logger: log.Named("SMTPSender"),
	}, nil
}

// SendVerificationEmail mails the one-time verification link to a new account.
func (s *SMTPSender) SendVerificationEmail(ctx context.Context, toEmail, toName, link string) error {
	subject := "Verify your email"
	html := fmt.Sprintf(`<p>Hello %s,</p>
        <p>Please click on the following link to verify your email address:</p>
        <p><a href="%s">%s</a></p>
        <p>If you did not create an account, please ignore this email.</p>`, toName, link, link)
	text := fmt.Sprintf("Hello %s,\n\nPlease click on the following link to verify your email address: %s\n\nIf you did not create an account, please ignore this email.", toName, link)

	return s.send(ctx, toEmail, subject, html, text)
}

// SendPasswordResetEmail mails the time-boxed reset link.
func (s *SMTPSender) SendPasswordResetEmail(ctx context.Context, toEmail, toName, link string) error {
	subject := "Reset your password"
	html := fmt.Sprintf(`<p>Hello %s,</p>
        <p>A password reset was requested for your account. Click the link below to choose a new password:</p>
        <p><a href="%s">%s</a></p>
        <p>This link expires in 10 minutes. If you did not request a reset, please ignore this email.</p>`, toName, link, link)
	text := fmt.Sprintf("Hello %s,\n\nA password reset was requested for your account. Follow this link to choose a new password: %s\n\nThis link expires in 10 minutes. If you did not request a reset, please ignore this email.", toName, link)

	return s.send(ctx, toEmail, subject, html, text)
}

func (s *SMTPSender) send(ctx context.Context, to, subject, bodyHTML, bodyText string) error {
	m := gomail.NewMessage()
	if s.cfg.SenderName != "" {
		m.SetHeader("From", m.FormatAddress(s.cfg.SenderEmail, s.cfg.SenderName))
	} else {
		m.SetHeader("From", s.cfg.SenderEmail)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", bodyHTML)
	m.AddAlternative("text/plain", bodyText)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		s.logger.Warn("Email sending cancelled or timed out by context",
			zap.String("to", to), zap.String("subject", subject), zap.Error(ctx.Err()))
		return fmt.Errorf("email sending cancelled or timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			s.logger.Error("Failed to send email",
				zap.String("to", to), zap.String("subject", subject), zap.Error(err))
			return fmt.Errorf("failed to send email: %w", err)
		}
	}

	s.logger.Info("Email sent successfully", zap.String("to", to), zap.String("subject", subject))
	return nil
}
