package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const userColumns = `
	id, email, password_hash, name, phone, user_type, is_active,
	is_email_verified, email_code, email_code_expires_at,
	is_phone_verified, phone_number, phone_code, phone_code_expires_at,
	last_login, created_at, updated_at`

type userRepository struct {
	store *Store
}

// NewUserRepository создаёт PostgreSQL-реализацию UserRepository.
func NewUserRepository(store *Store) domain.UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) Create(ctx context.Context, user domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.store.conn(ctx).ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, userArgs(user)...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id string) (domain.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *userRepository) Update(ctx context.Context, user domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.store.conn(ctx).ExecContext(ctx, `
		UPDATE users
		SET email = $2,
		    password_hash = $3,
		    name = $4,
		    phone = $5,
		    user_type = $6,
		    is_active = $7,
		    is_email_verified = $8,
		    email_code = $9,
		    email_code_expires_at = $10,
		    is_phone_verified = $11,
		    phone_number = $12,
		    phone_code = $13,
		    phone_code_expires_at = $14,
		    last_login = $15,
		    updated_at = $16
		WHERE id = $1
	`, append(userArgs(user)[:15], user.UpdatedAt.UTC())...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	return expectAffected(res, domain.ErrUserNotFound)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.store.conn(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectAffected(res, domain.ErrUserNotFound)
}

func (r *userRepository) getBy(ctx context.Context, column, value string) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		user        domain.User
		userType    string
		emailExpiry sql.NullTime
		phoneExpiry sql.NullTime
		lastLogin   sql.NullTime
	)
	err := r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value,
	).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Phone, &userType, &user.IsActive,
		&user.IsEmailVerified, &user.EmailCode.Code, &emailExpiry,
		&user.IsPhoneVerified, &user.PhoneNumber, &user.PhoneCode.Code, &phoneExpiry,
		&lastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user by %s: %w", column, err)
	}

	user.Type = domain.UserType(userType)
	user.EmailCode.ExpiresAt = timeOrZero(emailExpiry)
	user.PhoneCode.ExpiresAt = timeOrZero(phoneExpiry)
	user.LastLogin = timeOrZero(lastLogin)
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

func userArgs(u domain.User) []any {
	return []any{
		u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, string(u.Type), u.IsActive,
		u.IsEmailVerified, u.EmailCode.Code, nullTime(u.EmailCode.ExpiresAt),
		u.IsPhoneVerified, u.PhoneNumber, u.PhoneCode.Code, nullTime(u.PhoneCode.ExpiresAt),
		nullTime(u.LastLogin), u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	}
}

// expectAffected возвращает notFound, если запрос не затронул ни одной строки.
func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

var _ domain.UserRepository = (*userRepository)(nil)
