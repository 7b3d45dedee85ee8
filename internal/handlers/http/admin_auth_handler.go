package http

import (
	"context"
	"net/http"
	"strings"

	"arenahub/internal/core/domain"
	"arenahub/internal/core/ports"
	"arenahub/internal/core/services"
	"arenahub/internal/infrastructure/middleware"
	"arenahub/pkg/validation"

	"github.com/gin-gonic/gin"
)

// AdminAuthService is the part of services.Authenticator the admin routes need.
type AdminAuthService interface {
	AdminLogin(ctx context.Context, email, password string) (*services.AdminSession, error)
	AdminRefresh(ctx context.Context, refreshToken string) (string, error)
	ports.AdminAuthenticator
}

type AdminAuthHandler struct {
	auth       AdminAuthService
	authConfig middleware.AuthConfig
	accessTTL  int
}

func NewAdminAuthHandler(auth AdminAuthService, authConfig middleware.AuthConfig, accessTTLSeconds int) *AdminAuthHandler {
	return &AdminAuthHandler{
		auth:       auth,
		authConfig: authConfig,
		accessTTL:  accessTTLSeconds,
	}
}

func (h *AdminAuthHandler) SetupRoutes(router gin.IRouter, limiter gin.HandlerFunc) {
	api := router.Group("/admin/auth", limiter)
	{
		api.POST("/login", h.Login)
		api.POST("/refresh", h.RefreshToken)
		api.POST("/logout", middleware.AdminAuth(h.auth, h.authConfig), h.Logout)
		api.GET("/profile", middleware.AdminAuth(h.auth, h.authConfig), h.Profile)
	}
}

type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminSessionResponse struct {
	AdminID      domain.AdminID `json:"adminId"`
	Email        string         `json:"email"`
	Role         domain.Role    `json:"role"`
	Permissions  []string       `json:"permissions"`
	Token        string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
}

type AdminProfileResponse struct {
	ID          domain.AdminID `json:"id"`
	Email       string         `json:"email"`
	Role        domain.Role    `json:"role"`
	Permissions []string       `json:"permissions"`
}

func permissionsOf(a *domain.Admin) []string {
	if a.Permissions == nil {
		return []string{}
	}
	return a.Permissions
}

func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req AdminLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.First(
		validation.ValidateEmail(req.Email),
		validation.ValidateNonEmptyString(req.Password, "password"),
	); err != nil {
		invalid(c, err)
		return
	}

	session, err := h.auth.AdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, "", AdminSessionResponse{
		AdminID:      session.Admin.ID,
		Email:        session.Admin.Email,
		Role:         session.Admin.Role,
		Permissions:  permissionsOf(session.Admin),
		Token:        session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	})
}

func (h *AdminAuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.auth.AdminRefresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, "", RefreshResponse{Token: token, ExpiresIn: h.accessTTL})
}

func (h *AdminAuthHandler) Logout(c *gin.Context) {
	respond(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *AdminAuthHandler) Profile(c *gin.Context) {
	admin, ok := middleware.CurrentAdmin(c)
	if !ok {
		fail(c, domain.ErrAdminNotFound)
		return
	}

	respond(c, http.StatusOK, "", AdminProfileResponse{
		ID:          admin.ID,
		Email:       admin.Email,
		Role:        admin.Role,
		Permissions: permissionsOf(admin),
	})
}
