package services

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"arenahub/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("token codec: signing secret is empty")
	ErrSharedSecret  = errors.New("token codec: user and admin secrets must differ")
)

// Claims is the JWT body. The audience lives in RegisteredClaims.Audience.
type Claims struct {
	Type domain.TokenType `json:"type"`
	jwt.RegisteredClaims
}

type TokenCodecConfig struct {
	UserSecret     string
	AdminSecret    string
	UserAccessTTL  time.Duration
	AdminAccessTTL time.Duration
	RefreshTTL     time.Duration
}

// TokenCodec signs and verifies access and refresh tokens. Access tokens
// use one secret per audience; refresh tokens for both audiences use the
// user secret and carry the audience they may refresh.
type TokenCodec struct {
	userSecret     []byte
	adminSecret    []byte
	userAccessTTL  time.Duration
	adminAccessTTL time.Duration
	refreshTTL     time.Duration
	now            func() time.Time
}

type TokenCodecOption func(*TokenCodec)

func WithCodecClock(now func() time.Time) TokenCodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

func NewTokenCodec(cfg TokenCodecConfig, opts ...TokenCodecOption) (*TokenCodec, error) {
	if cfg.UserSecret == "" || cfg.AdminSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.UserSecret == cfg.AdminSecret {
		return nil, ErrSharedSecret
	}

	c := &TokenCodec{
		userSecret:     []byte(cfg.UserSecret),
		adminSecret:    []byte(cfg.AdminSecret),
		userAccessTTL:  cfg.UserAccessTTL,
		adminAccessTTL: cfg.AdminAccessTTL,
		refreshTTL:     cfg.RefreshTTL,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Sign issues an access token for subject in audience.
func (c *TokenCodec) Sign(subject string, audience domain.Audience) (string, error) {
	secret, ttl, err := c.accessParams(audience)
	if err != nil {
		return "", err
	}
	return c.sign(subject, audience, domain.TokenTypeAccess, ttl, secret)
}

// SignRefresh issues a refresh token for subject in audience.
func (c *TokenCodec) SignRefresh(subject string, audience domain.Audience) (string, error) {
	if _, _, err := c.accessParams(audience); err != nil {
		return "", err
	}
	return c.sign(subject, audience, domain.TokenTypeRefresh, c.refreshTTL, c.userSecret)
}

// IssuePair signs an access and a refresh token for the same subject.
func (c *TokenCodec) IssuePair(subject string, audience domain.Audience) (domain.TokenPair, error) {
	access, err := c.Sign(subject, audience)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := c.SignRefresh(subject, audience)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify accepts only access tokens of the given audience.
func (c *TokenCodec) Verify(token string, audience domain.Audience) (*domain.TokenClaims, error) {
	secret, _, err := c.accessParams(audience)
	if err != nil {
		return nil, err
	}
	return c.verify(token, audience, domain.TokenTypeAccess, secret)
}

// VerifyRefresh accepts only refresh tokens of the given audience.
func (c *TokenCodec) VerifyRefresh(token string, audience domain.Audience) (*domain.TokenClaims, error) {
	if _, _, err := c.accessParams(audience); err != nil {
		return nil, err
	}
	return c.verify(token, audience, domain.TokenTypeRefresh, c.userSecret)
}

// AccessTTL reports the access token lifetime for audience.
func (c *TokenCodec) AccessTTL(audience domain.Audience) time.Duration {
	_, ttl, _ := c.accessParams(audience)
	return ttl
}

func (c *TokenCodec) accessParams(audience domain.Audience) ([]byte, time.Duration, error) {
	switch audience {
	case domain.AudienceUser:
		return c.userSecret, c.userAccessTTL, nil
	case domain.AudienceAdmin:
		return c.adminSecret, c.adminAccessTTL, nil
	default:
		return nil, 0, fmt.Errorf("token codec: unknown audience %q", audience)
	}
}

func (c *TokenCodec) sign(subject string, audience domain.Audience, typ domain.TokenType, ttl time.Duration, secret []byte) (string, error) {
	now := c.now()
	claims := &Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{string(audience)},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (c *TokenCodec) verify(tokenString string, audience domain.Audience, typ domain.TokenType, secret []byte) (*domain.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(string(audience)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" || claims.Type != typ {
		return nil, domain.ErrInvalidToken
	}

	out := &domain.TokenClaims{
		Subject:  claims.Subject,
		Audience: audience,
		Type:     claims.Type,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// DeriveReferralCode returns the first 8 hex characters of md5(seed),
// upper-cased. Existing codes were issued this way, so it must not change.
func DeriveReferralCode(seed string) string {
	sum := md5.Sum([]byte(seed))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}

// GenerateInitToken returns 64 lowercase hex characters.
func GenerateInitToken() (string, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("read random seed: %w", err)
	}
	var salt [8]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return "", fmt.Errorf("read random salt: %w", err)
	}

	inner := sha256.Sum256(seed)
	material := hex.EncodeToString(inner[:]) +
		strconv.FormatInt(time.Now().UnixMilli(), 10) +
		strconv.FormatUint(binary.BigEndian.Uint64(salt[:]), 10)

	outer := sha256.Sum256([]byte(material))
	return hex.EncodeToString(outer[:]), nil
}
