package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Dan9191/bank-insights/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// SMTPConfig holds the mail relay settings
type SMTPConfig struct {
	Host        string
	Port        string
	Username    string
	Password    string
	SenderEmail string
}

// EmailNotifier mails a digest of new nudges to the user
type EmailNotifier struct {
	cfg    SMTPConfig
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg SMTPConfig, logger *logrus.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (s *EmailNotifier) Name() string { return "email" }

// Notify sends one message listing every nudge
func (s *EmailNotifier) Notify(_ context.Context, user models.User, nudges []models.Nudge) error {
	if len(nudges) == 0 || user.Email == "" {
		return nil
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{user.Email}
	e.Subject = subject(nudges)
	e.Text = []byte(digestBody(user, nudges))

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send nudge digest to %s: %v", user.Email, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", user.Email, e.Subject)
	return nil
}

func subject(nudges []models.Nudge) string {
	for _, n := range nudges {
		if n.Kind == models.NudgeCriticalBalance {
			return "Action needed: your balance is running low"
		}
	}
	if len(nudges) == 1 {
		return "You have a new insight about your spending"
	}
	return fmt.Sprintf("You have %d new insights about your spending", len(nudges))
}

func digestBody(user models.User, nudges []models.Nudge) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", user.Username)
	for _, n := range nudges {
		fmt.Fprintf(&b, "- %s\n", n.Message)
	}
	b.WriteString("\nBest regards,\nBank Insights")
	return b.String()
}
