package notify

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// MessageAPI описывает часть API Twilio, которой пользуется TwilioSender.
type MessageAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioSender отправляет SMS через Twilio.
type TwilioSender struct {
	api     MessageAPI
	from    string
	breaker *breaker
	logger  *log.Entry
}

// NewTwilioSender создаёт отправителя с REST-клиентом Twilio.
func NewTwilioSender(accountSID, authToken, from string, settings BreakerSettings, logger *log.Entry) (*TwilioSender, error) {
	if accountSID == "" || authToken == "" {
		return nil, errors.New("twilio credentials are empty")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewTwilioSenderWithAPI(client.Api, from, settings, logger)
}

// NewTwilioSenderWithAPI создаёт отправителя поверх произвольного MessageAPI.
func NewTwilioSenderWithAPI(api MessageAPI, from string, settings BreakerSettings, logger *log.Entry) (*TwilioSender, error) {
	if from == "" {
		return nil, errors.New("twilio from number is empty")
	}
	if logger == nil {
		logger = log.WithField("component", "twilio")
	}
	return &TwilioSender{
		api:     api,
		from:    from,
		breaker: newBreaker("twilio", settings, logger),
		logger:  logger,
	}, nil
}

// SendSMS отправляет сообщение. Клиент Twilio не принимает контекст,
// поэтому отменённый ctx проверяется до вызова.
func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	return s.breaker.run(func() error {
		msg, err := s.api.CreateMessage(params)
		if err != nil {
			return fmt.Errorf("twilio create message: %w", err)
		}
		entry := s.logger.WithField("to", to)
		if msg != nil && msg.Sid != nil {
			entry = entry.WithField("sid", *msg.Sid)
		}
		entry.Debug("sms sent")
		return nil
	})
}

var _ domain.SMSSender = (*TwilioSender)(nil)
