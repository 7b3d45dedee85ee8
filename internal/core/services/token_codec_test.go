package services

import (
	"strings"
	"testing"
	"time"

	"arenahub/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func testCodecConfig() TokenCodecConfig {
	return TokenCodecConfig{
		UserSecret:     "user-secret-for-tests",
		AdminSecret:    "admin-secret-for-tests",
		UserAccessTTL:  30 * time.Minute,
		AdminAccessTTL: 60 * time.Minute,
		RefreshTTL:     7 * 24 * time.Hour,
	}
}

func newTestCodec(t *testing.T, clock *testClock) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(testCodecConfig(), WithCodecClock(clock.Now))
	require.NoError(t, err)
	return codec
}

func TestNewTokenCodec_RejectsBadSecrets(t *testing.T) {
	cfg := testCodecConfig()
	cfg.AdminSecret = ""
	_, err := NewTokenCodec(cfg)
	assert.ErrorIs(t, err, ErrMissingSecret)

	cfg = testCodecConfig()
	cfg.AdminSecret = cfg.UserSecret
	_, err = NewTokenCodec(cfg)
	assert.ErrorIs(t, err, ErrSharedSecret)
}

func TestTokenCodec_SignVerifyRoundTrip(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(t, clock)

	for _, aud := range []domain.Audience{domain.AudienceUser, domain.AudienceAdmin} {
		token, err := codec.Sign("subject-1", aud)
		require.NoError(t, err)

		claims, err := codec.Verify(token, aud)
		require.NoError(t, err)
		assert.Equal(t, "subject-1", claims.Subject)
		assert.Equal(t, aud, claims.Audience)
		assert.Equal(t, domain.TokenTypeAccess, claims.Type)
		assert.Equal(t, clock.now.Add(codec.AccessTTL(aud)), claims.ExpiresAt)
	}
}

func TestTokenCodec_CrossAudienceFails(t *testing.T) {
	codec := newTestCodec(t, newTestClock())

	userToken, err := codec.Sign("u-1", domain.AudienceUser)
	require.NoError(t, err)
	adminToken, err := codec.Sign("a-1", domain.AudienceAdmin)
	require.NoError(t, err)

	_, err = codec.Verify(userToken, domain.AudienceAdmin)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	_, err = codec.Verify(adminToken, domain.AudienceUser)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenCodec_Expiry(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(t, clock)

	userToken, err := codec.Sign("u-1", domain.AudienceUser)
	require.NoError(t, err)
	adminToken, err := codec.Sign("a-1", domain.AudienceAdmin)
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	_, err = codec.Verify(userToken, domain.AudienceUser)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	_, err = codec.Verify(adminToken, domain.AudienceAdmin)
	assert.NoError(t, err)

	clock.Advance(30 * time.Minute)
	_, err = codec.Verify(adminToken, domain.AudienceAdmin)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenCodec_RefreshIsNotAccess(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(t, clock)

	pair, err := codec.IssuePair("u-1", domain.AudienceUser)
	require.NoError(t, err)

	_, err = codec.Verify(pair.RefreshToken, domain.AudienceUser)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	_, err = codec.VerifyRefresh(pair.AccessToken, domain.AudienceUser)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	claims, err := codec.VerifyRefresh(pair.RefreshToken, domain.AudienceUser)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenTypeRefresh, claims.Type)

	clock.Advance(6 * 24 * time.Hour)
	_, err = codec.VerifyRefresh(pair.RefreshToken, domain.AudienceUser)
	assert.NoError(t, err)
	clock.Advance(2 * 24 * time.Hour)
	_, err = codec.VerifyRefresh(pair.RefreshToken, domain.AudienceUser)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenCodec_AdminRefreshBoundToAudience(t *testing.T) {
	codec := newTestCodec(t, newTestClock())

	refresh, err := codec.SignRefresh("a-1", domain.AudienceAdmin)
	require.NoError(t, err)

	_, err = codec.VerifyRefresh(refresh, domain.AudienceUser)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	_, err = codec.VerifyRefresh(refresh, domain.AudienceAdmin)
	assert.NoError(t, err)
}

func TestTokenCodec_RejectsTamperedAndForeignTokens(t *testing.T) {
	clock := newTestClock()
	codec := newTestCodec(t, clock)

	token, err := codec.Sign("u-1", domain.AudienceUser)
	require.NoError(t, err)

	other, err := codec.Sign("u-2", domain.AudienceUser)
	require.NoError(t, err)
	parts := strings.Split(token, ".")
	otherParts := strings.Split(other, ".")
	tampered := parts[0] + "." + otherParts[1] + "." + parts[2]
	_, err = codec.Verify(tampered, domain.AudienceUser)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Type: domain.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			Audience:  jwt.ClaimStrings{"user"},
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)
	_, err = codec.Verify(signed, domain.AudienceUser)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Type:             domain.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", Audience: jwt.ClaimStrings{"user"}},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Verify(unsigned, domain.AudienceUser)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = codec.Verify("", domain.AudienceUser)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenCodec_UnknownAudience(t *testing.T) {
	codec := newTestCodec(t, newTestClock())
	_, err := codec.Sign("x", domain.Audience("partner"))
	assert.Error(t, err)
}

func TestDeriveReferralCode(t *testing.T) {
	code := DeriveReferralCode("test@example.com+919876543210")
	assert.Len(t, code, 8)
	assert.Equal(t, strings.ToUpper(code), code)
	assert.Equal(t, code, DeriveReferralCode("test@example.com+919876543210"))
	assert.NotEqual(t, code, DeriveReferralCode("other@example.com+919876543210"))

	// md5("") = d41d8cd98f00b204e9800998ecf8427e
	assert.Equal(t, "D41D8CD9", DeriveReferralCode(""))
}

func TestGenerateInitToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateInitToken()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9a-f]{64}$`, token)
		assert.False(t, seen[token])
		seen[token] = true
	}
}
