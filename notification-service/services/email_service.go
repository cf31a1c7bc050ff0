package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"portal-backend/notification-service/config"
	"portal-backend/shared/clients"
	"portal-backend/shared/logger"
)

var ErrUnknownTemplate = errors.New("unknown template")

// MailDialer delivers composed messages. *gomail.Dialer satisfies it.
type MailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService renders templates and delivers them over SMTP.
type EmailService struct {
	dialer    MailDialer
	templates *TemplateService
	from      string
	fromName  string
	email     config.EmailConfig
}

// NewEmailService dials the SMTP server configured by SMTP_*.
func NewEmailService(cfg *config.NotificationConfig) *EmailService {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPortNumber(), cfg.SMTPUsername, cfg.SMTPPassword)
	dialer.SSL = cfg.SMTPPortNumber() == 465 || cfg.SMTPUseTLS
	return NewEmailServiceWithDialer(dialer, NewTemplateService(), cfg.EmailFrom, cfg.EmailFromName, cfg.Email)
}

func NewEmailServiceWithDialer(dialer MailDialer, templates *TemplateService, from, fromName string, email config.EmailConfig) *EmailService {
	if email.RetryAttempts < 1 {
		email.RetryAttempts = 1
	}
	return &EmailService{
		dialer:    dialer,
		templates: templates,
		from:      from,
		fromName:  fromName,
		email:     email,
	}
}

// Send renders req.Template and mails it to req.Recipient, retrying transient
// SMTP failures.
func (es *EmailService) Send(ctx context.Context, req clients.SendEmailRequest) (*clients.EmailResponse, error) {
	log := logger.WithContext(ctx).With(
		zap.String("template", string(req.Template)),
		zap.String("recipient", logger.MaskEmail(req.Recipient)),
	)

	if !es.templates.Known(req.Template) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, req.Template)
	}
	mail, err := es.templates.Render(req.Template, req.Vars)
	if err != nil {
		return nil, err
	}

	sentAt := time.Now().UTC()
	if !es.email.Enabled {
		log.Info("email delivery disabled, mail not sent", zap.String("subject", mail.Subject))
		return &clients.EmailResponse{Success: true, Message: "Email delivery disabled", SentAt: sentAt.Format(time.RFC3339)}, nil
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", es.from, es.fromName)
	msg.SetHeader("To", req.Recipient)
	msg.SetHeader("Subject", mail.Subject)
	msg.SetBody("text/html", mail.Body)

	for attempt := 1; ; attempt++ {
		err = es.dialer.DialAndSend(msg)
		if err == nil {
			break
		}
		if attempt >= es.email.RetryAttempts {
			log.Error("email delivery failed", zap.Int("attempts", attempt), zap.Error(err))
			return nil, fmt.Errorf("failed to send email: %w", err)
		}
		log.Warn("email delivery failed, retrying", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(es.email.RetryDelay):
		}
	}

	log.Info("email sent")
	return &clients.EmailResponse{
		Success: true,
		Message: "Email sent successfully",
		SentAt:  sentAt.Format(time.RFC3339),
	}, nil
}
