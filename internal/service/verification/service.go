// Package verification выдаёт и проверяет одноразовые коды для e-mail, телефона и входа по OTP.
package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/auth"
)

// CodeTTL — время жизни кода.
const CodeTTL = 10 * time.Minute

const emailSubject = "Verify Your Email - Marketplace"

// SessionStarter выдаёт токен пользователю, прошедшему вход по OTP.
type SessionStarter interface {
	StartSession(ctx context.Context, user domain.User) (auth.Session, error)
}

// Service управляет кодами подтверждения.
type Service struct {
	users    domain.UserRepository
	email    domain.EmailSender
	sms      domain.SMSSender
	sessions SessionStarter
	logger   *log.Entry
	now      func() time.Time
	newCode  func() (string, error)
}

// NewService создаёт сервис подтверждений.
func NewService(users domain.UserRepository, email domain.EmailSender, sms domain.SMSSender, sessions SessionStarter, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "verification")
	}
	return &Service{
		users:    users,
		email:    email,
		sms:      sms,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
		newCode:  GenerateCode,
	}
}

// GenerateCode возвращает случайный шестизначный код.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// SendEmailCode отправляет код подтверждения e-mail.
func (s *Service) SendEmailCode(ctx context.Context, userID string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return domain.ErrEmailAlreadyVerified
	}
	return s.mailCode(ctx, user)
}

// VerifyEmail проверяет код и отмечает e-mail подтверждённым.
func (s *Service) VerifyEmail(ctx context.Context, userID, code string) error {
	if strings.TrimSpace(code) == "" {
		return domain.ErrCodeRequired
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	if err := user.EmailCode.Check(code, now); err != nil {
		return err
	}
	user.IsEmailVerified = true
	user.EmailCode = domain.VerificationCode{}
	user.UpdatedAt = now
	return s.users.Update(ctx, user)
}

// SendPhoneCode сохраняет номер и отправляет на него код.
func (s *Service) SendPhoneCode(ctx context.Context, userID, phoneNumber string) error {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return domain.ErrPhoneRequired
	}
	if err := domain.ValidatePhone(phoneNumber); err != nil {
		return err
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsPhoneVerified {
		return domain.ErrPhoneAlreadyVerified
	}
	user.PhoneNumber = phoneNumber
	return s.textCode(ctx, user)
}

// ResendPhoneCode повторно отправляет код на сохранённый номер.
func (s *Service) ResendPhoneCode(ctx context.Context, userID string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsPhoneVerified {
		return domain.ErrPhoneAlreadyVerified
	}
	if user.PhoneNumber == "" {
		return domain.ErrPhoneNumberMissing
	}
	return s.textCode(ctx, user)
}

// VerifyPhone проверяет код из SMS.
func (s *Service) VerifyPhone(ctx context.Context, userID, code string) error {
	if strings.TrimSpace(code) == "" {
		return domain.ErrCodeRequired
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	if err := user.PhoneCode.Check(code, now); err != nil {
		return err
	}
	user.IsPhoneVerified = true
	user.PhoneCode = domain.VerificationCode{}
	user.UpdatedAt = now
	return s.users.Update(ctx, user)
}

// SendLoginOTP отправляет одноразовый код для входа без пароля.
func (s *Service) SendLoginOTP(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.mailCode(ctx, user)
}

// VerifyLoginOTP проверяет код и открывает сессию; e-mail считается подтверждённым.
func (s *Service) VerifyLoginOTP(ctx context.Context, email, otp string) (auth.Session, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(otp) == "" {
		return auth.Session{}, domain.ErrCodeRequired
	}
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return auth.Session{}, err
	}
	now := s.now().UTC()
	if err := user.EmailCode.Check(otp, now); err != nil {
		return auth.Session{}, err
	}
	user.IsEmailVerified = true
	user.EmailCode = domain.VerificationCode{}
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return auth.Session{}, err
	}
	return s.sessions.StartSession(ctx, user)
}

func (s *Service) userByEmail(ctx context.Context, email string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.User{}, domain.ErrEmailRequired
	}
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, domain.ErrAccountNotFound
	}
	return user, err
}

func (s *Service) issueCode(now time.Time) (domain.VerificationCode, error) {
	code, err := s.newCode()
	if err != nil {
		return domain.VerificationCode{}, err
	}
	return domain.VerificationCode{Code: code, ExpiresAt: now.Add(CodeTTL)}, nil
}

func (s *Service) mailCode(ctx context.Context, user domain.User) error {
	now := s.now().UTC()
	code, err := s.issueCode(now)
	if err != nil {
		return err
	}
	user.EmailCode = code
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	body := fmt.Sprintf("Your verification code is: %s. This code expires in %d minutes.", code.Code, int(CodeTTL.Minutes()))
	if err := s.email.SendEmail(ctx, user.Email, emailSubject, body); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("send verification email failed")
		return notificationError(err)
	}
	return nil
}

func (s *Service) textCode(ctx context.Context, user domain.User) error {
	now := s.now().UTC()
	code, err := s.issueCode(now)
	if err != nil {
		return err
	}
	user.PhoneCode = code
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	body := fmt.Sprintf("Your Marketplace verification code is: %s. This code expires in %d minutes.", code.Code, int(CodeTTL.Minutes()))
	if err := s.sms.SendSMS(ctx, user.PhoneNumber, body); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("send verification sms failed")
		return notificationError(err)
	}
	return nil
}

func notificationError(err error) error {
	if errors.Is(err, domain.ErrNotificationSuspended) {
		return domain.ErrNotificationSuspended
	}
	return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
}
