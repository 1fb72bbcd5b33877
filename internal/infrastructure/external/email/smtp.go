package email

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/garyjia/expense-batchpay/internal/application/port"
)

// SMTPConfig holds SMTP connection settings
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// dialer is the part of gomail.Dialer the sender uses
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender implements port.EmailSender over gomail
type SMTPSender struct {
	config SMTPConfig
	dialer dialer
	logger *zap.Logger
}

// NewSMTPSender creates an SMTP sender. The connection is opened per message.
func NewSMTPSender(config SMTPConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		logger: logger,
	}
}

// Send delivers one message. gomail has no context support, so ctx is only
// checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg port.EmailMessage) error {
	if msg.To == "" {
		return fmt.Errorf("recipient cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("email not sent: %w", err)
	}

	if err := s.dialer.DialAndSend(s.build(msg)); err != nil {
		s.logger.Error("Failed to send email",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("Email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (s *SMTPSender) build(msg port.EmailMessage) *gomail.Message {
	m := gomail.NewMessage()
	if s.config.FromName != "" {
		m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	} else {
		m.SetHeader("From", s.config.FromAddress)
	}
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}
	return m
}

// Verify interface compliance
var _ port.EmailSender = (*SMTPSender)(nil)
