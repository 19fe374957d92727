package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// UserType — роль пользователя.
type UserType string

const (
	UserTypeConsumer UserType = "consumer"
	UserTypeVendor   UserType = "vendor"
	UserTypeSeller   UserType = "seller"
	UserTypeAdmin    UserType = "admin"
)

const minPasswordLength = 6

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
)

// ParseRegistrationType разбирает тип пользователя из запроса регистрации.
func ParseRegistrationType(raw string) (UserType, error) {
	switch t := UserType(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return UserTypeConsumer, nil
	case UserTypeConsumer, UserTypeVendor, UserTypeAdmin:
		return t, nil
	default:
		return "", ErrUserTypeInvalid
	}
}

// VerificationCode хранит одноразовый код и время его истечения.
type VerificationCode struct {
	Code      string
	ExpiresAt time.Time
}

// Empty сообщает, что код не выдавался.
func (c VerificationCode) Empty() bool {
	return c.Code == ""
}

// Check сверяет код пользователя с выданным.
func (c VerificationCode) Check(code string, now time.Time) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrCodeRequired
	}
	if c.Empty() {
		return ErrCodeMissing
	}
	if now.After(c.ExpiresAt) {
		return ErrCodeExpired
	}
	if c.Code != code {
		return ErrCodeInvalid
	}
	return nil
}

// User — учётная запись покупателя или продавца.
type User struct {
	ID              string
	Email           string
	PasswordHash    string
	Name            string
	Phone           string
	Type            UserType
	IsActive        bool
	IsEmailVerified bool
	EmailCode       VerificationCode
	IsPhoneVerified bool
	PhoneNumber     string
	PhoneCode       VerificationCode
	LastLogin       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsSeller сообщает, может ли пользователь продавать.
func (u *User) IsSeller() bool {
	switch u.Type {
	case UserTypeVendor, UserTypeSeller, UserTypeAdmin:
		return true
	default:
		return false
	}
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool {
	return u.Type == UserTypeAdmin
}

// NormalizeEmail приводит e-mail к нижнему регистру и проверяет формат.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", ErrEmailInvalid
	}
	return email, nil
}

// ValidatePassword проверяет минимальную длину пароля.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// ValidateName проверяет имя, если оно задано.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n == 0 {
		return nil
	}
	if n < 2 || n > 50 {
		return ErrNameInvalid
	}
	return nil
}

// ValidatePhone проверяет телефон, если он задан.
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil
	}
	if !phonePattern.MatchString(phone) {
		return ErrPhoneInvalid
	}
	return nil
}
