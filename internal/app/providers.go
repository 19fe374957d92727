package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/cache"
	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/notify"
)

const redisPingTimeout = 2 * time.Second

// initNotifiers выбирает провайдеров писем и SMS. Без ключей сообщения пишутся в лог.
func initNotifiers(cfg Config, logger *log.Entry) (domain.EmailSender, domain.SMSSender) {
	fallback := notify.NewLogSender(logger.WithField("component", "notify"))
	settings := notify.DefaultBreakerSettings()

	var email domain.EmailSender = fallback
	if cfg.SendGridAPIKey != "" {
		sender, err := notify.NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFrom, settings, logger.WithField("component", "sendgrid"))
		if err != nil {
			logger.WithError(err).Warn("sendgrid disabled, emails go to log")
		} else {
			email = sender
			logger.Info("sendgrid email sender enabled")
		}
	}

	var sms domain.SMSSender = fallback
	if cfg.TwilioAccountSID != "" {
		sender, err := notify.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, settings, logger.WithField("component", "twilio"))
		if err != nil {
			logger.WithError(err).Warn("twilio disabled, sms go to log")
		} else {
			sms = sender
			logger.Info("twilio sms sender enabled")
		}
	}

	return email, sms
}

// initCache подключает Redis-кеш каталога. При недоступном Redis кеш отключается.
func initCache(ctx context.Context, cfg Config, logger *log.Entry) (*cache.RedisCache, func() error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	redisCache := cache.NewRedisCache(client, cache.WithTTL(cfg.CacheTTL))

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := redisCache.Ping(pingCtx); err != nil {
		logger.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis unavailable, catalog cache disabled")
		_ = client.Close()
		return nil, nil
	}

	logger.WithField("addr", cfg.RedisAddr).Info("catalog cache enabled")
	return redisCache, client.Close
}
