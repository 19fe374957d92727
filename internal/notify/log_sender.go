package notify

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// LogSender пишет сообщения в лог вместо отправки. Используется, когда провайдер не настроен.
type LogSender struct {
	logger *log.Entry
}

// NewLogSender создаёт LogSender.
func NewLogSender(logger *log.Entry) *LogSender {
	if logger == nil {
		logger = log.WithField("component", "notify")
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.logger.WithFields(log.Fields{"to": to, "subject": subject, "body": body}).Info("email not sent: provider disabled")
	return nil
}

func (s *LogSender) SendSMS(_ context.Context, to, body string) error {
	s.logger.WithFields(log.Fields{"to": to, "body": body}).Info("sms not sent: provider disabled")
	return nil
}

var (
	_ domain.EmailSender = (*LogSender)(nil)
	_ domain.SMSSender   = (*LogSender)(nil)
)
