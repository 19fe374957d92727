package notify

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const defaultSenderName = "Marketplace"

// MailClient описывает часть клиента SendGrid, которой пользуется SendGridSender.
type MailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender отправляет письма через SendGrid.
type SendGridSender struct {
	client  MailClient
	from    *mail.Email
	breaker *breaker
	logger  *log.Entry
}

// NewSendGridSender создаёт отправителя с реальным клиентом SendGrid.
func NewSendGridSender(apiKey, fromAddress string, settings BreakerSettings, logger *log.Entry) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is empty")
	}
	return NewSendGridSenderWithClient(sendgrid.NewSendClient(apiKey), fromAddress, settings, logger)
}

// NewSendGridSenderWithClient создаёт отправителя поверх произвольного MailClient.
func NewSendGridSenderWithClient(client MailClient, fromAddress string, settings BreakerSettings, logger *log.Entry) (*SendGridSender, error) {
	if fromAddress == "" {
		return nil, errors.New("from address is empty")
	}
	if logger == nil {
		logger = log.WithField("component", "sendgrid")
	}
	return &SendGridSender{
		client:  client,
		from:    mail.NewEmail(defaultSenderName, fromAddress),
		breaker: newBreaker("sendgrid", settings, logger),
		logger:  logger,
	}, nil
}

// SendEmail отправляет текстовое письмо с простой HTML-версией.
func (s *SendGridSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return errors.New("to address is empty")
	}
	message := mail.NewSingleEmail(
		s.from,
		subject,
		mail.NewEmail("", to),
		body,
		fmt.Sprintf("<pre>%s</pre>", html.EscapeString(body)),
	)

	return s.breaker.run(func() error {
		resp, err := s.client.SendWithContext(ctx, message)
		if err != nil {
			return fmt.Errorf("sendgrid send: %w", err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("sendgrid send failed: status=%d body=%s", resp.StatusCode, resp.Body)
		}
		s.logger.WithFields(log.Fields{"status": resp.StatusCode, "subject": subject}).Debug("mail sent")
		return nil
	})
}

var _ domain.EmailSender = (*SendGridSender)(nil)
