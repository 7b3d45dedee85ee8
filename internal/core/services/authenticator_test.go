package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"arenahub/internal/core/domain"
	"arenahub/internal/core/ports"
	"arenahub/internal/infrastructure/monitoring"
	"arenahub/internal/infrastructure/repositories/memory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	auth   *Authenticator
	gate   *InitTokenGate
	users  ports.UserRepository
	admins ports.AdminRepository
	codec  *TokenCodec
}

func newAuthFixture(t *testing.T, users ports.UserRepository) *authFixture {
	t.Helper()
	if users == nil {
		users = memory.NewMemoryUserRepository()
	}
	admins := memory.NewMemoryAdminRepository()
	logger := zaptest.NewLogger(t).Sugar()
	metrics := monitoring.NewPrometheusCollector(prometheus.NewRegistry())

	gate := NewInitTokenGate(memory.NewMemoryInitTokenRepository(), testGateConfig(), metrics, logger)
	codec, err := NewTokenCodec(testCodecConfig())
	require.NoError(t, err)

	auth := NewAuthenticator(users, admins, gate, NewPasswordHasher(bcrypt.MinCost), codec,
		AuthenticatorConfig{ReferralReward: 100, StoreTimeout: time.Second}, metrics, logger)

	return &authFixture{auth: auth, gate: gate, users: users, admins: admins, codec: codec}
}

func (f *authFixture) initToken(t *testing.T) string {
	t.Helper()
	token, err := f.gate.Issue(context.Background(), "device", "127.0.0.1")
	require.NoError(t, err)
	return token.Token
}

func (f *authFixture) register(t *testing.T, email, phone, referral string) *UserSession {
	t.Helper()
	session, err := f.auth.Register(context.Background(), RegisterInput{
		Email:        email,
		PhoneNumber:  phone,
		FullName:     "Test Player",
		InGameName:   "tester",
		PrimaryGame:  "BGMI",
		Password:     "password123",
		ReferralCode: referral,
		InitToken:    f.initToken(t),
	})
	require.NoError(t, err)
	return session
}

func TestAuthenticator_Register(t *testing.T) {
	f := newAuthFixture(t, nil)
	session := f.register(t, "Player@Example.com", "+919876543210", "")

	user := session.User
	assert.Equal(t, "player@example.com", user.Email)
	assert.Equal(t, DeriveReferralCode("player@example.com+919876543210"), user.ReferralCode)
	assert.Equal(t, domain.StatusActive, user.Status)
	assert.Zero(t, user.CoinsBalance)
	assert.Zero(t, user.CashBalance)
	assert.Nil(t, user.ReferredByID)

	claims, err := f.codec.Verify(session.Tokens.AccessToken, domain.AudienceUser)
	require.NoError(t, err)
	assert.Equal(t, string(user.ID), claims.Subject)
	_, err = f.codec.VerifyRefresh(session.Tokens.RefreshToken, domain.AudienceUser)
	assert.NoError(t, err)
}

func TestAuthenticator_RegisterConsumesInitToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	token := f.initToken(t)
	in := RegisterInput{Email: "a@x.io", PhoneNumber: "+910000000001", Password: "password123", PrimaryGame: "BGMI", InitToken: token}

	_, err := f.auth.Register(context.Background(), in)
	require.NoError(t, err)

	in.Email, in.PhoneNumber = "b@x.io", "+910000000002"
	_, err = f.auth.Register(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidInitToken)
}

func TestAuthenticator_RegisterDuplicate(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.register(t, "a@x.io", "+910000000001", "")

	_, err := f.auth.Register(context.Background(), RegisterInput{
		Email: "A@X.io", PhoneNumber: "+910000000009", Password: "password123", InitToken: f.initToken(t),
	})
	assert.ErrorIs(t, err, domain.ErrUserExists)

	_, err = f.auth.Register(context.Background(), RegisterInput{
		Email: "new@x.io", PhoneNumber: "+910000000001", Password: "password123", InitToken: f.initToken(t),
	})
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestAuthenticator_RegisterWithReferral(t *testing.T) {
	f := newAuthFixture(t, nil)
	referrer := f.register(t, "ref@x.io", "+910000000001", "").User

	referred := f.register(t, "new@x.io", "+910000000002", "  "+strings.ToLower(referrer.ReferralCode)).User
	require.NotNil(t, referred.ReferredByID)
	assert.Equal(t, referrer.ID, *referred.ReferredByID)

	stored, err := f.users.GetByID(context.Background(), referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stored.CoinsBalance)
}

func TestAuthenticator_RegisterInvalidReferral(t *testing.T) {
	f := newAuthFixture(t, nil)
	_, err := f.auth.Register(context.Background(), RegisterInput{
		Email: "a@x.io", PhoneNumber: "+910000000001", Password: "password123",
		ReferralCode: "NOPE1234", InitToken: f.initToken(t),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidReferral)

	exists, err := f.users.ExistsByEmailOrPhone(context.Background(), "a@x.io", "+910000000001")
	require.NoError(t, err)
	assert.False(t, exists)
}

// racingUserRepository reports no existing user but loses the insert race.
type racingUserRepository struct {
	ports.UserRepository
}

func (r racingUserRepository) ExistsByEmailOrPhone(context.Context, string, string) (bool, error) {
	return false, nil
}

func (r racingUserRepository) Create(context.Context, *domain.User) error {
	return domain.ErrUserExists
}

func TestAuthenticator_RegisterInsertRace(t *testing.T) {
	f := newAuthFixture(t, racingUserRepository{memory.NewMemoryUserRepository()})
	_, err := f.auth.Register(context.Background(), RegisterInput{
		Email: "a@x.io", PhoneNumber: "+910000000001", Password: "password123", InitToken: f.initToken(t),
	})
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

// brokenCreditRepository fails only the referral credit.
type brokenCreditRepository struct {
	ports.UserRepository
}

func (r brokenCreditRepository) AddCoins(context.Context, domain.UserID, int64) error {
	return errors.New("deadlock detected")
}

func TestAuthenticator_ReferralCreditFailureIsSwallowed(t *testing.T) {
	f := newAuthFixture(t, brokenCreditRepository{memory.NewMemoryUserRepository()})
	referrer := f.register(t, "ref@x.io", "+910000000001", "")

	session := f.register(t, "new@x.io", "+910000000002", referrer.User.ReferralCode)
	assert.NotEmpty(t, session.Tokens.AccessToken)
}

func TestAuthenticator_Login(t *testing.T) {
	f := newAuthFixture(t, nil)
	registered := f.register(t, "a@x.io", "+910000000001", "")

	for _, identifier := range []string{"a@x.io", "A@X.IO", "+910000000001"} {
		session, err := f.auth.Login(context.Background(), LoginInput{
			Identifier: identifier, Password: "password123", InitToken: f.initToken(t),
		})
		require.NoError(t, err, identifier)
		assert.Equal(t, registered.User.ID, session.User.ID)
		assert.NotNil(t, session.User.LastLogin)
	}
}

func TestAuthenticator_LoginFailures(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.register(t, "a@x.io", "+910000000001", "")
	ctx := context.Background()

	_, err := f.auth.Login(ctx, LoginInput{Identifier: "a@x.io", Password: "wrong-password", InitToken: f.initToken(t)})
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)

	_, err = f.auth.Login(ctx, LoginInput{Identifier: "ghost@x.io", Password: "password123", InitToken: f.initToken(t)})
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)

	_, err = f.auth.Login(ctx, LoginInput{Identifier: "a@x.io", Password: "password123", InitToken: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidInitToken)
}

func TestAuthenticator_FailedLoginKeepsInitToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.register(t, "a@x.io", "+910000000001", "")
	token := f.initToken(t)
	ctx := context.Background()

	_, err := f.auth.Login(ctx, LoginInput{Identifier: "a@x.io", Password: "wrong-password", InitToken: token})
	require.ErrorIs(t, err, domain.ErrInvalidCredential)
	_, err = f.auth.Login(ctx, LoginInput{Identifier: "ghost@x.io", Password: "password123", InitToken: token})
	require.ErrorIs(t, err, domain.ErrInvalidCredential)

	session, err := f.auth.Login(ctx, LoginInput{Identifier: "a@x.io", Password: "password123", InitToken: token})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Tokens.AccessToken)

	_, err = f.auth.Login(ctx, LoginInput{Identifier: "a@x.io", Password: "password123", InitToken: token})
	assert.ErrorIs(t, err, domain.ErrInvalidInitToken)
}

func TestAuthenticator_FailedRegisterKeepsInitToken(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.register(t, "a@x.io", "+910000000001", "")
	token := f.initToken(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, RegisterInput{
		Email: "a@x.io", PhoneNumber: "+910000000002", Password: "password123", InitToken: token,
	})
	require.ErrorIs(t, err, domain.ErrUserExists)
	_, err = f.auth.Register(ctx, RegisterInput{
		Email: "b@x.io", PhoneNumber: "+910000000002", Password: "password123",
		ReferralCode: "NOPE1234", InitToken: token,
	})
	require.ErrorIs(t, err, domain.ErrInvalidReferral)

	_, err = f.auth.Register(ctx, RegisterInput{
		Email: "b@x.io", PhoneNumber: "+910000000002", Password: "password123", InitToken: token,
	})
	assert.NoError(t, err)
}

func TestAuthenticator_RefusedLoginLogsMaskedIP(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.register(t, "a@x.io", "+910000000001", "")
	core, logs := observer.New(zapcore.DebugLevel)
	f.auth.logger = zap.New(core).Sugar()

	_, err := f.auth.Login(context.Background(), LoginInput{
		Identifier: "a@x.io", Password: "wrong-password", InitToken: f.initToken(t), IP: "203.0.113.42",
	})
	require.ErrorIs(t, err, domain.ErrInvalidCredential)

	entries := logs.FilterMessage("login refused").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "********3.42", fields["ip"])
	assert.Equal(t, "wrong password", fields["reason"])
}

func TestAuthenticator_LoginSuspendedRegardlessOfPassword(t *testing.T) {
	users := memory.NewMemoryUserRepository()
	f := newAuthFixture(t, users)
	digest, err := NewPasswordHasher(bcrypt.MinCost).Hash("password123")
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), &domain.User{
		ID: "banned-1", Email: "b@x.io", PhoneNumber: "+910000000005",
		PasswordHash: digest, Status: domain.StatusBanned, CreatedAt: time.Now(),
	}))

	for _, password := range []string{"password123", "wrong-password"} {
		_, err := f.auth.Login(context.Background(), LoginInput{Identifier: "b@x.io", Password: password, InitToken: f.initToken(t)})
		assert.ErrorIs(t, err, domain.ErrAccountSuspended, password)
	}
}

func TestAuthenticator_Refresh(t *testing.T) {
	f := newAuthFixture(t, nil)
	session := f.register(t, "a@x.io", "+910000000001", "")

	access, err := f.auth.Refresh(context.Background(), session.Tokens.RefreshToken)
	require.NoError(t, err)
	claims, err := f.codec.Verify(access, domain.AudienceUser)
	require.NoError(t, err)
	assert.Equal(t, string(session.User.ID), claims.Subject)

	_, err = f.auth.Refresh(context.Background(), session.Tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthenticator_RefreshUnknownUser(t *testing.T) {
	f := newAuthFixture(t, nil)
	refresh, err := f.codec.SignRefresh("deleted-user", domain.AudienceUser)
	require.NoError(t, err)

	_, err = f.auth.Refresh(context.Background(), refresh)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAuthenticator_AdminFlow(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	admin, err := f.auth.CreateAdmin(ctx, "Root@Arena.gg", "admin-password", domain.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, "root@arena.gg", admin.Email)

	_, err = f.auth.AdminLogin(ctx, "root@arena.gg", "nope-nope")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
	_, err = f.auth.AdminLogin(ctx, "ghost@arena.gg", "admin-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)

	session, err := f.auth.AdminLogin(ctx, "root@arena.gg", "admin-password")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, session.Admin.Role)

	resolved, err := f.auth.AuthenticateAdmin(ctx, session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, resolved.ID)

	_, err = f.auth.AuthenticateUser(ctx, session.Tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	access, err := f.auth.AdminRefresh(ctx, session.Tokens.RefreshToken)
	require.NoError(t, err)
	_, err = f.codec.Verify(access, domain.AudienceAdmin)
	assert.NoError(t, err)

	_, err = f.auth.CreateAdmin(ctx, "x@arena.gg", "admin-password", domain.Role("owner"))
	assert.Error(t, err)
}

func TestAuthenticator_AuthenticateUser(t *testing.T) {
	f := newAuthFixture(t, nil)
	session := f.register(t, "a@x.io", "+910000000001", "")

	user, err := f.auth.AuthenticateUser(context.Background(), session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, user.ID)

	_, err = f.auth.AuthenticateUser(context.Background(), "garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	orphan, err := f.codec.Sign("missing", domain.AudienceUser)
	require.NoError(t, err)
	_, err = f.auth.AuthenticateUser(context.Background(), orphan)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
