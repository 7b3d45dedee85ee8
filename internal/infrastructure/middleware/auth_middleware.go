package middleware

import (
	"context"
	"strings"
	"time"

	"arenahub/internal/core/domain"
	"arenahub/internal/core/ports"
	"arenahub/pkg/errors"
	"arenahub/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	userContextKey  = "auth.user"
	adminContextKey = "auth.admin"
)

// AuthConfig bounds principal lookups made by the chain.
type AuthConfig struct {
	StoreTimeout time.Duration
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserAuth resolves the bearer token to an active user. The user is attached
// to the context only once every check has passed.
func UserAuth(auth ports.UserAuthenticator, cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, errors.NewNoTokenError())
			return
		}

		ctx, cancel := lookupContext(c.Request.Context(), cfg.StoreTimeout)
		user, err := auth.AuthenticateUser(ctx, token)
		cancel()
		if err != nil {
			abort(c, ToAppError(err))
			return
		}

		c.Set(userContextKey, user)
		c.Request = c.Request.WithContext(logger.WithSubject(c.Request.Context(), string(user.ID)))
		c.Next()
	}
}

// AdminAuth resolves the bearer token to an active admin and, when caps are
// given, requires the admin's role to hold every one of them.
func AdminAuth(auth ports.AdminAuthenticator, cfg AuthConfig, caps ...domain.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, errors.NewNoTokenError())
			return
		}

		ctx, cancel := lookupContext(c.Request.Context(), cfg.StoreTimeout)
		admin, err := auth.AuthenticateAdmin(ctx, token)
		cancel()
		if err != nil {
			abort(c, adminAppError(err))
			return
		}

		for _, capability := range caps {
			if err := RequireCapability(admin.Role, capability); err != nil {
				abort(c, err)
				return
			}
		}

		c.Set(adminContextKey, admin)
		c.Request = c.Request.WithContext(logger.WithSubject(c.Request.Context(), string(admin.ID)))
		c.Next()
	}
}

// RequireCapability returns INSUFFICIENT_PERMISSIONS listing the roles that
// hold capability when role does not.
func RequireCapability(role domain.Role, capability domain.Capability) *errors.AppError {
	if role.Can(capability) {
		return nil
	}
	allowed := domain.RolesWith(capability)
	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = string(r)
	}
	return errors.NewInsufficientPermissionsError(names)
}

// CurrentUser returns the user attached by UserAuth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}

// CurrentAdmin returns the admin attached by AdminAuth.
func CurrentAdmin(c *gin.Context) (*domain.Admin, bool) {
	v, ok := c.Get(adminContextKey)
	if !ok {
		return nil, false
	}
	admin, ok := v.(*domain.Admin)
	return admin, ok
}

// adminAppError reports a missing principal on admin routes as
// ADMIN_NOT_FOUND.
func adminAppError(err error) *errors.AppError {
	appErr := ToAppError(err)
	if appErr.Code == errors.ErrCodeUserNotFound {
		return errors.NewAdminNotFoundError()
	}
	return appErr
}

func lookupContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
