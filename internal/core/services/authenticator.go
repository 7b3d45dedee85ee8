package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"arenahub/internal/core/domain"
	"arenahub/internal/core/ports"
	"arenahub/pkg/tracing"
	"arenahub/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeError   = "error"
)

// timingPassword is hashed once and verified against when no principal
// matched, so lookups that miss cost as much as wrong passwords.
const timingPassword = "arenahub-timing-equalizer"

type RegisterInput struct {
	Email          string
	PhoneNumber    string
	FullName       string
	InGameName     string
	PrimaryGame    string
	Password       string
	ProfilePicture string
	ReferralCode   string
	InitToken      string
}

type LoginInput struct {
	Identifier string
	Password   string
	InitToken  string
	IP         string
}

type UserSession struct {
	User   *domain.User
	Tokens domain.TokenPair
}

type AdminSession struct {
	Admin  *domain.Admin
	Tokens domain.TokenPair
}

type AuthenticatorConfig struct {
	ReferralReward int64
	StoreTimeout   time.Duration
}

type Authenticator struct {
	users   ports.UserRepository
	admins  ports.AdminRepository
	gate    ports.InitTokenGate
	hasher  PasswordHasher
	codec   *TokenCodec
	metrics ports.AuthMetrics
	logger  *zap.SugaredLogger

	referralReward int64
	storeTimeout   time.Duration
	now            func() time.Time

	timingOnce   sync.Once
	timingDigest string
}

func NewAuthenticator(
	users ports.UserRepository,
	admins ports.AdminRepository,
	gate ports.InitTokenGate,
	hasher PasswordHasher,
	codec *TokenCodec,
	cfg AuthenticatorConfig,
	metrics ports.AuthMetrics,
	logger *zap.SugaredLogger,
) *Authenticator {
	return &Authenticator{
		users:          users,
		admins:         admins,
		gate:           gate,
		hasher:         hasher,
		codec:          codec,
		metrics:        metrics,
		logger:         logger,
		referralReward: cfg.ReferralReward,
		storeTimeout:   cfg.StoreTimeout,
		now:            time.Now,
	}
}

// Login checks the init token up front and consumes it only once the
// credentials are accepted, so a failed attempt leaves it usable.
func (a *Authenticator) Login(ctx context.Context, in LoginInput) (session *UserSession, err error) {
	ctx, span := tracing.TraceAuthOperation(ctx, "login", string(domain.AudienceUser))
	defer span.End()
	defer a.observe(ctx, "login", domain.AudienceUser, &err)

	if err := a.gate.Validate(ctx, in.InitToken); err != nil {
		return nil, err
	}

	user, err := a.findUser(ctx, utils.NormalizeIdentifier(in.Identifier))
	if errors.Is(err, domain.ErrUserNotFound) {
		a.hasher.Verify(in.Password, a.dummyDigest())
		a.refuseLogin(in, "unknown identifier")
		return nil, domain.ErrInvalidCredential
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.Status.IsActive() {
		a.hasher.Verify(in.Password, a.dummyDigest())
		a.refuseLogin(in, "inactive account", "status", user.Status)
		return nil, domain.ErrAccountSuspended
	}
	if !a.hasher.Verify(in.Password, user.PasswordHash) {
		a.refuseLogin(in, "wrong password")
		return nil, domain.ErrInvalidCredential
	}

	if err := a.gate.ValidateAndConsume(ctx, in.InitToken); err != nil {
		return nil, err
	}

	a.touchUser(ctx, user)

	tokens, err := a.codec.IssuePair(string(user.ID), domain.AudienceUser)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &UserSession{User: user, Tokens: tokens}, nil
}

// Register creates an active user with zero balances and credits the
// referrer, if any. The referral credit is best effort.
func (a *Authenticator) Register(ctx context.Context, in RegisterInput) (session *UserSession, err error) {
	ctx, span := tracing.TraceAuthOperation(ctx, "register", string(domain.AudienceUser))
	defer span.End()
	defer a.observe(ctx, "register", domain.AudienceUser, &err)

	if err := a.gate.Validate(ctx, in.InitToken); err != nil {
		return nil, err
	}

	email := utils.NormalizeEmail(in.Email)
	phone := strings.TrimSpace(in.PhoneNumber)

	exists, err := a.userExists(ctx, email, phone)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return nil, domain.ErrUserExists
	}

	var referrer *domain.User
	if code := strings.ToUpper(strings.TrimSpace(in.ReferralCode)); code != "" {
		referrer, err = a.findReferrer(ctx, code)
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidReferral
		}
		if err != nil {
			return nil, fmt.Errorf("lookup referrer: %w", err)
		}
	}

	digest, err := a.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:             domain.UserID(uuid.NewString()),
		Email:          email,
		PhoneNumber:    phone,
		FullName:       strings.TrimSpace(in.FullName),
		InGameName:     strings.TrimSpace(in.InGameName),
		PrimaryGame:    in.PrimaryGame,
		PasswordHash:   digest,
		ProfilePicture: in.ProfilePicture,
		ReferralCode:   DeriveReferralCode(email + phone),
		Status:         domain.StatusActive,
		CreatedAt:      a.now().UTC(),
	}
	if referrer != nil {
		user.ReferredByID = &referrer.ID
	}

	if err := a.gate.ValidateAndConsume(ctx, in.InitToken); err != nil {
		return nil, err
	}
	if err := a.createUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if referrer != nil {
		a.creditReferrer(ctx, referrer.ID)
	}

	tokens, err := a.codec.IssuePair(string(user.ID), domain.AudienceUser)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &UserSession{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a user refresh token for a new access token.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (token string, err error) {
	ctx, span := tracing.TraceAuthOperation(ctx, "refresh", string(domain.AudienceUser))
	defer span.End()
	defer a.observe(ctx, "refresh", domain.AudienceUser, &err)

	claims, err := a.codec.VerifyRefresh(refreshToken, domain.AudienceUser)
	if err != nil {
		return "", err
	}
	user, err := a.loadUser(ctx, domain.UserID(claims.Subject))
	if err != nil {
		return "", err
	}
	if !user.Status.IsActive() {
		return "", domain.ErrAccountSuspended
	}
	return a.codec.Sign(string(user.ID), domain.AudienceUser)
}

func (a *Authenticator) AdminLogin(ctx context.Context, email, password string) (session *AdminSession, err error) {
	ctx, span := tracing.TraceAuthOperation(ctx, "login", string(domain.AudienceAdmin))
	defer span.End()
	defer a.observe(ctx, "login", domain.AudienceAdmin, &err)

	admin, err := a.findAdmin(ctx, utils.NormalizeEmail(email))
	if errors.Is(err, domain.ErrAdminNotFound) {
		a.hasher.Verify(password, a.dummyDigest())
		return nil, domain.ErrInvalidCredential
	}
	if err != nil {
		return nil, fmt.Errorf("lookup admin: %w", err)
	}

	if !admin.Status.IsActive() {
		a.hasher.Verify(password, a.dummyDigest())
		return nil, domain.ErrAccountSuspended
	}
	if !a.hasher.Verify(password, admin.PasswordHash) {
		return nil, domain.ErrInvalidCredential
	}

	a.touchAdmin(ctx, admin)

	tokens, err := a.codec.IssuePair(string(admin.ID), domain.AudienceAdmin)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &AdminSession{Admin: admin, Tokens: tokens}, nil
}

func (a *Authenticator) AdminRefresh(ctx context.Context, refreshToken string) (token string, err error) {
	ctx, span := tracing.TraceAuthOperation(ctx, "refresh", string(domain.AudienceAdmin))
	defer span.End()
	defer a.observe(ctx, "refresh", domain.AudienceAdmin, &err)

	claims, err := a.codec.VerifyRefresh(refreshToken, domain.AudienceAdmin)
	if err != nil {
		return "", err
	}
	admin, err := a.loadAdmin(ctx, domain.AdminID(claims.Subject))
	if err != nil {
		return "", err
	}
	if !admin.Status.IsActive() {
		return "", domain.ErrAccountSuspended
	}
	return a.codec.Sign(string(admin.ID), domain.AudienceAdmin)
}

// AuthenticateUser resolves a bearer access token to an active user.
func (a *Authenticator) AuthenticateUser(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := a.codec.Verify(accessToken, domain.AudienceUser)
	if err != nil {
		return nil, err
	}
	user, err := a.loadUser(ctx, domain.UserID(claims.Subject))
	if err != nil {
		return nil, err
	}
	if !user.Status.IsActive() {
		return nil, domain.ErrAccountSuspended
	}
	return user, nil
}

// AuthenticateAdmin resolves a bearer access token to an active admin.
func (a *Authenticator) AuthenticateAdmin(ctx context.Context, accessToken string) (*domain.Admin, error) {
	claims, err := a.codec.Verify(accessToken, domain.AudienceAdmin)
	if err != nil {
		return nil, err
	}
	admin, err := a.loadAdmin(ctx, domain.AdminID(claims.Subject))
	if err != nil {
		return nil, err
	}
	if !admin.Status.IsActive() {
		return nil, domain.ErrAccountSuspended
	}
	return admin, nil
}

// CreateAdmin seeds an admin account.
func (a *Authenticator) CreateAdmin(ctx context.Context, email, password string, role domain.Role) (*domain.Admin, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	digest, err := a.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &domain.Admin{
		ID:           domain.AdminID(uuid.NewString()),
		Email:        utils.NormalizeEmail(email),
		PasswordHash: digest,
		Role:         role,
		Permissions:  []string{},
		Status:       domain.StatusActive,
		CreatedAt:    a.now().UTC(),
	}

	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()
	if err := a.admins.Create(storeCtx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func (a *Authenticator) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.storeTimeout)
}

func (a *Authenticator) findUser(ctx context.Context, identifier string) (*domain.User, error) {
	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()
	return a.users.GetByEmailOrPhone(storeCtx, identifier)
}

func (a *Authenticator) findReferrer(ctx context.Context, code string) (*domain.User, error) {
	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()
	return a.users.GetByReferralCode(storeCtx, code)
}

func (a *Authenticator) userExists(ctx context.Context, email, phone string) (bool, error) {
	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()
	return a.users.ExistsByEmailOrPhone(storeCtx, email, phone)
}

func (a *Authenticator) createUser(ctx context.Context, user *domain.User) error {
	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()
	return a.users.Create(storeCtx, user)
}

func (a *Authenticator) loadUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()
	return a.users.GetByID(storeCtx, id)
}

func (a *Authenticator) findAdmin(ctx context.Context, email string) (*domain.Admin, error) {
	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()
	return a.admins.GetByEmail(storeCtx, email)
}

func (a *Authenticator) loadAdmin(ctx context.Context, id domain.AdminID) (*domain.Admin, error) {
	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()
	return a.admins.GetByID(storeCtx, id)
}

func (a *Authenticator) refuseLogin(in LoginInput, reason string, extra ...interface{}) {
	fields := append([]interface{}{
		"identifier", utils.MaskIdentifier(in.Identifier, 4),
		"ip", utils.MaskIdentifier(in.IP, 4),
		"reason", reason,
	}, extra...)
	a.logger.Debugw("login refused", fields...)
}

func (a *Authenticator) touchUser(ctx context.Context, user *domain.User) {
	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()

	now := a.now().UTC()
	if err := a.users.UpdateLastLogin(storeCtx, user.ID, now); err != nil {
		a.logger.Warnw("failed to record user last login", "user_id", user.ID, "error", err)
		return
	}
	user.LastLogin = &now
}

func (a *Authenticator) touchAdmin(ctx context.Context, admin *domain.Admin) {
	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()

	now := a.now().UTC()
	if err := a.admins.UpdateLastLogin(storeCtx, admin.ID, now); err != nil {
		a.logger.Warnw("failed to record admin last login", "admin_id", admin.ID, "error", err)
		return
	}
	admin.LastLogin = &now
}

func (a *Authenticator) creditReferrer(ctx context.Context, referrerID domain.UserID) {
	if a.referralReward <= 0 {
		return
	}
	storeCtx, cancel := a.storeContext(ctx)
	defer cancel()

	if err := a.users.AddCoins(storeCtx, referrerID, a.referralReward); err != nil {
		a.logger.Errorw("failed to credit referral bonus",
			"referrer_id", referrerID,
			"amount", a.referralReward,
			"error", err,
		)
	}
}

func (a *Authenticator) dummyDigest() string {
	a.timingOnce.Do(func() {
		digest, err := a.hasher.Hash(timingPassword)
		if err != nil {
			a.logger.Errorw("failed to prepare timing digest", "error", err)
			return
		}
		a.timingDigest = digest
	})
	return a.timingDigest
}

func (a *Authenticator) observe(ctx context.Context, operation string, audience domain.Audience, errp *error) {
	outcome := outcomeSuccess
	switch err := *errp; {
	case err == nil:
	case isClientFailure(err):
		outcome = outcomeFailure
	default:
		outcome = outcomeError
		tracing.RecordError(ctx, err)
		a.logger.Errorw("authentication operation failed",
			"operation", operation,
			"audience", audience,
			"error", err,
		)
	}
	tracing.AddSpanAttributes(ctx, tracing.OutcomeKey.String(outcome))
	a.metrics.AuthAttempt(operation, audience, outcome)
}

func isClientFailure(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidInitToken,
		domain.ErrInvalidCredential,
		domain.ErrAccountSuspended,
		domain.ErrUserExists,
		domain.ErrInvalidReferral,
		domain.ErrInvalidToken,
		domain.ErrUserNotFound,
		domain.ErrAdminNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
