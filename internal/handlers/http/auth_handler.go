package http

import (
	"context"
	"net/http"
	"strings"

	"arenahub/internal/core/domain"
	"arenahub/internal/core/ports"
	"arenahub/internal/core/services"
	"arenahub/internal/infrastructure/middleware"
	"arenahub/pkg/errors"
	"arenahub/pkg/utils"
	"arenahub/pkg/validation"

	"github.com/gin-gonic/gin"
)

const DeviceFingerprintHeader = "X-Device-Fingerprint"

// UserAuthService is the part of services.Authenticator the user routes need.
type UserAuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.UserSession, error)
	Login(ctx context.Context, in services.LoginInput) (*services.UserSession, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	ports.UserAuthenticator
}

type AuthHandler struct {
	auth       UserAuthService
	gate       ports.InitTokenGate
	authConfig middleware.AuthConfig
	accessTTL  int
}

func NewAuthHandler(auth UserAuthService, gate ports.InitTokenGate, authConfig middleware.AuthConfig, accessTTLSeconds int) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		gate:       gate,
		authConfig: authConfig,
		accessTTL:  accessTTLSeconds,
	}
}

func (h *AuthHandler) SetupRoutes(router gin.IRouter, limiter gin.HandlerFunc) {
	api := router.Group("/auth", limiter)
	{
		api.POST("/init", h.Init)
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.POST("/refresh", h.RefreshToken)
		api.POST("/social-login", h.SocialLogin)
		api.POST("/forgot-password", h.ForgotPassword)
		api.POST("/logout", middleware.UserAuth(h.auth, h.authConfig), h.Logout)
	}
}

type RegisterRequest struct {
	Email          string `json:"email"`
	PhoneNumber    string `json:"phone_number"`
	FullName       string `json:"full_name"`
	InGameName     string `json:"in_game_name"`
	PrimaryGame    string `json:"primary_game"`
	Password       string `json:"password"`
	ProfilePicture string `json:"profile_picture"`
	ReferralCode   string `json:"referral_code"`
	InitToken      string `json:"init_token"`
}

func (r *RegisterRequest) validate() error {
	return validation.First(
		validation.ValidateEmail(r.Email),
		validation.ValidatePhone(r.PhoneNumber),
		validation.ValidateStringLength(r.FullName, 2, 255, "full_name"),
		validation.ValidateStringLength(r.InGameName, 2, 100, "in_game_name"),
		validation.ValidateGame(r.PrimaryGame),
		validation.ValidatePassword(r.Password),
		validation.ValidateURL(r.ProfilePicture, "profile_picture"),
		validation.ValidateReferralCode(r.ReferralCode),
		validation.ValidateInitToken(r.InitToken),
	)
}

type LoginRequest struct {
	EmailOrPhone string `json:"email_or_phone"`
	Password     string `json:"password"`
	InitToken    string `json:"init_token"`
}

func (r *LoginRequest) validate() error {
	return validation.First(
		validation.ValidateNonEmptyString(r.EmailOrPhone, "email_or_phone"),
		validation.ValidateNonEmptyString(r.Password, "password"),
		validation.ValidateInitToken(r.InitToken),
	)
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required,max=2048"`
}

type InitResponse struct {
	InitToken string `json:"init_token"`
	ExpiresIn int    `json:"expires_in"`
	Message   string `json:"message"`
}

type UserSessionResponse struct {
	UserID         domain.UserID `json:"userId"`
	Email          string        `json:"email"`
	PhoneNumber    string        `json:"phoneNumber"`
	InGameName     string        `json:"inGameName"`
	PrimaryGame    string        `json:"primaryGame"`
	ProfilePicture *string       `json:"profilePicture,omitempty"`
	CoinsBalance   int64         `json:"coinsBalance"`
	Token          string        `json:"token"`
	RefreshToken   string        `json:"refreshToken"`
}

type RefreshResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

func newUserSessionResponse(s *services.UserSession, withPicture bool) UserSessionResponse {
	resp := UserSessionResponse{
		UserID:       s.User.ID,
		Email:        s.User.Email,
		PhoneNumber:  s.User.PhoneNumber,
		InGameName:   s.User.InGameName,
		PrimaryGame:  s.User.PrimaryGame,
		CoinsBalance: s.User.CoinsBalance,
		Token:        s.Tokens.AccessToken,
		RefreshToken: s.Tokens.RefreshToken,
	}
	if withPicture {
		picture := s.User.ProfilePicture
		resp.ProfilePicture = &picture
	}
	return resp
}

// Init issues an init token. Issuance never fails on store errors; the gate
// degrades to its in-process fallback.
func (h *AuthHandler) Init(c *gin.Context) {
	fingerprint := strings.TrimSpace(c.GetHeader(DeviceFingerprintHeader))
	if len(fingerprint) > 255 {
		fingerprint = fingerprint[:255]
	}

	token, err := h.gate.Issue(c.Request.Context(), fingerprint, middleware.ClientIP(c.Request))
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, "", InitResponse{
		InitToken: token.Token,
		ExpiresIn: int(token.ExpiresAt.Sub(token.IssuedAt).Seconds()),
		Message:   "Initialization token generated successfully",
	})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Email = utils.NormalizeEmail(req.Email)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.ReferralCode = strings.ToUpper(strings.TrimSpace(req.ReferralCode))

	if err := req.validate(); err != nil {
		invalid(c, err)
		return
	}

	session, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Email:          req.Email,
		PhoneNumber:    req.PhoneNumber,
		FullName:       req.FullName,
		InGameName:     req.InGameName,
		PrimaryGame:    req.PrimaryGame,
		Password:       req.Password,
		ProfilePicture: req.ProfilePicture,
		ReferralCode:   req.ReferralCode,
		InitToken:      req.InitToken,
	})
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusCreated, "Registration successful", newUserSessionResponse(session, false))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.validate(); err != nil {
		invalid(c, err)
		return
	}

	session, err := h.auth.Login(c.Request.Context(), services.LoginInput{
		Identifier: req.EmailOrPhone,
		Password:   req.Password,
		InitToken:  req.InitToken,
		IP:         middleware.ClientIP(c.Request),
	})
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, "", newUserSessionResponse(session, true))
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, "", RefreshResponse{Token: token, ExpiresIn: h.accessTTL})
}

// Logout is a no-op: tokens stay valid until they expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	respond(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) SocialLogin(c *gin.Context) {
	_ = c.Error(errors.NewNotImplementedError("Social login not yet implemented"))
	c.Abort()
}

// ForgotPassword reports success for any input. No reset link is sent.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	respond(c, http.StatusOK, "Password reset link sent to email/phone", nil)
}
