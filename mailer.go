package identity

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	mail "github.com/go-mail/mail"
)

// SMTPConfig carries the SMTP delivery settings
type SMTPConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	From     string `json:"from" yaml:"from"`
	SSL      bool   `json:"ssl" yaml:"ssl"`
}

// SMTPSender delivers notifications over SMTP
type SMTPSender struct {
	cfg    SMTPConfig
	dialer *mail.Dialer
	logger Logger
}

// SMTPSenderOption configures an SMTPSender
type SMTPSenderOption func(*SMTPSender)

func WithSenderLogger(logger Logger) SMTPSenderOption {
	return func(s *SMTPSender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSMTPSender creates a NotificationSender backed by go-mail
func NewSMTPSender(cfg SMTPConfig, opts ...SMTPSenderOption) *SMTPSender {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL

	s := &SMTPSender{
		cfg:    cfg,
		dialer: d,
		logger: &defLogger{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Send delivers a message with both HTML and plain text bodies
func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	if htmlBody != "" {
		m.AddAlternative("text/html", htmlBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "smtp delivery failed").
			WithTextCode(TextCodeNotificationFailed).
			WithMetadata(map[string]any{
				"to":      to,
				"subject": subject,
			})
	}

	s.logger.Debug("sent %q to %s", subject, to)

	return nil
}

var _ NotificationSender = (*SMTPSender)(nil)

// VerificationPinEmail renders the email carrying an account
// verification PIN
func VerificationPinEmail(firstName, pin string) (subject, htmlBody, textBody string) {
	subject = "Verify your email address"
	greeting := greet(firstName)
	textBody = fmt.Sprintf(
		"%s\n\nYour verification PIN is %s. It expires in 15 minutes.\n\nIf you did not create this account you can ignore this message.\n",
		greeting, pin,
	)
	htmlBody = fmt.Sprintf(
		"<p>%s</p><p>Your verification PIN is <strong>%s</strong>. It expires in 15 minutes.</p><p>If you did not create this account you can ignore this message.</p>",
		greeting, pin,
	)
	return subject, htmlBody, textBody
}

// PasswordResetEmail renders the email carrying a password reset PIN
func PasswordResetEmail(firstName, pin string) (subject, htmlBody, textBody string) {
	subject = "Reset your password"
	greeting := greet(firstName)
	textBody = fmt.Sprintf(
		"%s\n\nYour password reset PIN is %s. It expires in 15 minutes.\n\nIf you did not request a reset you can ignore this message.\n",
		greeting, pin,
	)
	htmlBody = fmt.Sprintf(
		"<p>%s</p><p>Your password reset PIN is <strong>%s</strong>. It expires in 15 minutes.</p><p>If you did not request a reset you can ignore this message.</p>",
		greeting, pin,
	)
	return subject, htmlBody, textBody
}

func greet(firstName string) string {
	if firstName == "" {
		return "Hello,"
	}
	return fmt.Sprintf("Hello %s,", firstName)
}
