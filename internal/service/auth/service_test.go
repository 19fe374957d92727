package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/auth"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

func newService(t *testing.T) (*auth.Service, domain.UserRepository, *auth.JWTIssuer) {
	t.Helper()
	issuer, err := auth.NewJWTIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	users := memory.NewUserRepository()
	return auth.NewService(users, auth.NewBcryptHasher(bcrypt.MinCost), issuer, nil), users, issuer
}

func TestRegisterAndLogin(t *testing.T) {
	svc, users, _ := newService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, auth.RegisterInput{Email: " Alice@Example.com ", Password: "secret1", Name: "Alice"})
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	require.Equal(t, "alice@example.com", session.User.Email)
	require.Equal(t, domain.UserTypeConsumer, session.User.Type)
	require.True(t, session.User.IsActive)
	require.NotEqual(t, "secret1", session.User.PasswordHash)

	_, err = svc.Register(ctx, auth.RegisterInput{Email: "alice@example.com", Password: "secret1"})
	require.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = svc.Login(ctx, "alice@example.com", "wrong-pass")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "bob@example.com", "secret1")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	logged, err := svc.Login(ctx, "ALICE@example.com", "secret1")
	require.NoError(t, err)
	stored, err := users.Get(ctx, logged.User.ID)
	require.NoError(t, err)
	require.False(t, stored.LastLogin.IsZero())

	user, err := svc.Authenticate(ctx, logged.Token)
	require.NoError(t, err)
	require.Equal(t, session.User.ID, user.ID)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newService(t)

	tests := []struct {
		name    string
		in      auth.RegisterInput
		wantErr error
	}{
		{name: "bad email", in: auth.RegisterInput{Email: "nope", Password: "secret1"}, wantErr: domain.ErrEmailInvalid},
		{name: "short password", in: auth.RegisterInput{Email: "a@b.co", Password: "123"}, wantErr: domain.ErrPasswordTooShort},
		{name: "short name", in: auth.RegisterInput{Email: "a@b.co", Password: "secret1", Name: "A"}, wantErr: domain.ErrNameInvalid},
		{name: "bad phone", in: auth.RegisterInput{Email: "a@b.co", Password: "secret1", Phone: "+0123"}, wantErr: domain.ErrPhoneInvalid},
		{name: "bad type", in: auth.RegisterInput{Email: "a@b.co", Password: "secret1", UserType: "seller"}, wantErr: domain.ErrUserTypeInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.in)
			require.ErrorIs(t, err, tc.wantErr)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestDeactivatedAccount(t *testing.T) {
	svc, users, _ := newService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, auth.RegisterInput{Email: "v@example.com", Password: "secret1", UserType: "vendor"})
	require.NoError(t, err)
	user := session.User
	user.IsActive = false
	require.NoError(t, users.Update(ctx, user))

	_, err = svc.Login(ctx, "v@example.com", "secret1")
	require.ErrorIs(t, err, domain.ErrAccountDeactivated)
	_, err = svc.Authenticate(ctx, session.Token)
	require.ErrorIs(t, err, domain.ErrAccountDeactivated)
}

func TestAuthenticate_Tokens(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "")
	require.ErrorIs(t, err, domain.ErrTokenMissing)
	_, err = svc.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, domain.ErrTokenInvalid)

	other, err := auth.NewJWTIssuer("other-secret", time.Hour)
	require.NoError(t, err)
	foreign, err := other.Issue("u1")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, foreign)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	issuer, err := auth.NewJWTIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	ghost, err := issuer.Issue("deleted-user")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, ghost)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestUpdateProfileAndDelete(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, auth.RegisterInput{Email: "p@example.com", Password: "secret1", Name: "Pat"})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, session.User.ID, auth.ProfileInput{Phone: "+15551234567"})
	require.NoError(t, err)
	require.Equal(t, "Pat", updated.Name)
	require.Equal(t, "+15551234567", updated.Phone)

	_, err = svc.UpdateProfile(ctx, session.User.ID, auth.ProfileInput{Name: "X"})
	require.ErrorIs(t, err, domain.ErrNameInvalid)

	require.NoError(t, svc.Delete(ctx, session.User.ID))
	require.ErrorIs(t, svc.Delete(ctx, session.User.ID), domain.ErrUserNotFound)
	_, err = svc.Login(ctx, "p@example.com", "secret1")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
