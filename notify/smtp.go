package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP transport settings.
type SMTPConfig struct {
	Host     string        `json:"host" yaml:"host" mapstructure:"host"`
	Port     int           `json:"port" yaml:"port" mapstructure:"port"`
	Username string        `json:"username" yaml:"username" mapstructure:"username"`
	Password string        `json:"-" yaml:"password" mapstructure:"password"`
	From     string        `json:"from" yaml:"from" mapstructure:"from"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// SMTPMailer sends mail through an SMTP relay. STARTTLS is used when the
// server offers it.
type SMTPMailer struct {
	config SMTPConfig
}

// NewSMTPMailer validates cfg and returns a mailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("notify: smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("notify: smtp from address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{config: cfg}, nil
}

// Send dials the server, delivers msg and disconnects.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	em := mail.NewMsg()
	if err := em.From(m.config.From); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := em.To(msg.To); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	em.Subject(msg.Subject)
	em.SetBodyString(mail.TypeTextPlain, msg.Body)

	opts := []mail.Option{
		mail.WithPort(m.config.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.config.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.config.Timeout))
	}
	if m.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.config.Username),
			mail.WithPassword(m.config.Password),
		)
	}

	client, err := mail.NewClient(m.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, em)
}
