// Package auth содержит учётные записи, токены доступа и хеширование паролей.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// RegisterInput — данные регистрации.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	UserType string
}

// ProfileInput — изменяемые поля профиля; пустое значение поле не меняет.
type ProfileInput struct {
	Name  string
	Phone string
}

// Session связывает пользователя с выданным ему токеном.
type Session struct {
	User  domain.User
	Token string
}

// Service регистрирует и аутентифицирует пользователей.
type Service struct {
	users  domain.UserRepository
	hasher domain.PasswordHasher
	tokens domain.TokenIssuer
	logger *log.Entry
	now    func() time.Time
}

// NewService создаёт сервис учётных записей.
func NewService(users domain.UserRepository, hasher domain.PasswordHasher, tokens domain.TokenIssuer, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "auth")
	}
	return &Service{users: users, hasher: hasher, tokens: tokens, logger: logger, now: time.Now}
}

// Register создаёт учётную запись и сразу выдаёт токен.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	email, err := domain.NormalizeEmail(in.Email)
	if err != nil {
		return Session{}, err
	}
	if err := domain.ValidatePassword(in.Password); err != nil {
		return Session{}, err
	}
	if err := domain.ValidateName(in.Name); err != nil {
		return Session{}, err
	}
	if err := domain.ValidatePhone(in.Phone); err != nil {
		return Session{}, err
	}
	userType, err := domain.ParseRegistrationType(in.UserType)
	if err != nil {
		return Session{}, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return Session{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, err
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Type:         userType,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return Session{}, err
	}

	s.logger.WithFields(log.Fields{"user_id": user.ID, "user_type": user.Type}).Info("user registered")
	return s.issue(user)
}

// Login проверяет пароль и обновляет время последнего входа.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return Session{}, domain.ErrAccountDeactivated
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return Session{}, err
	}

	return s.startSession(ctx, user)
}

// StartSession отмечает вход пользователя, уже подтвердившего личность другим способом.
func (s *Service) StartSession(ctx context.Context, user domain.User) (Session, error) {
	if !user.IsActive {
		return Session{}, domain.ErrAccountDeactivated
	}
	return s.startSession(ctx, user)
}

func (s *Service) startSession(ctx context.Context, user domain.User) (Session, error) {
	now := s.now().UTC()
	user.LastLogin = now
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return Session{}, fmt.Errorf("update last login: %w", err)
	}
	return s.issue(user)
}

// Authenticate возвращает активного пользователя по токену.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.User{}, domain.ErrTokenMissing
	}
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return domain.User{}, domain.ErrTokenInvalid
	}
	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, domain.ErrTokenInvalid
	}
	if err != nil {
		return domain.User{}, err
	}
	if !user.IsActive {
		return domain.User{}, domain.ErrAccountDeactivated
	}
	return user, nil
}

// UpdateProfile меняет имя и телефон.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (domain.User, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)
	if err := domain.ValidateName(name); err != nil {
		return domain.User{}, err
	}
	if err := domain.ValidatePhone(phone); err != nil {
		return domain.User{}, err
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if name != "" {
		user.Name = name
	}
	if phone != "" {
		user.Phone = phone
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Delete удаляет учётную запись.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.WithField("user_id", userID).Info("user deleted")
	return nil
}

func (s *Service) issue(user domain.User) (Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token}, nil
}
