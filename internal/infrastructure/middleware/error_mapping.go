package middleware

import (
	stderrors "errors"

	"arenahub/internal/core/domain"
	"arenahub/pkg/errors"
)

// ToAppError maps domain sentinels to their wire codes. Anything unknown
// becomes INTERNAL_ERROR with the cause kept for logs only.
func ToAppError(err error) *errors.AppError {
	if appErr := errors.GetAppError(err); appErr != nil {
		return appErr
	}

	switch {
	case stderrors.Is(err, domain.ErrInvalidInitToken):
		return errors.NewInvalidInitTokenError()
	case stderrors.Is(err, domain.ErrUserExists), stderrors.Is(err, domain.ErrAdminExists):
		return errors.NewUserExistsError()
	case stderrors.Is(err, domain.ErrInvalidReferral):
		return errors.NewInvalidReferralError()
	case stderrors.Is(err, domain.ErrInvalidCredential):
		return errors.NewInvalidCredentialsError()
	case stderrors.Is(err, domain.ErrInvalidToken):
		return errors.NewInvalidTokenError()
	case stderrors.Is(err, domain.ErrUserNotFound):
		return errors.NewUserNotFoundError()
	case stderrors.Is(err, domain.ErrAdminNotFound):
		return errors.NewAdminNotFoundError()
	case stderrors.Is(err, domain.ErrAccountSuspended):
		return errors.NewAccountSuspendedError()
	default:
		return errors.NewInternalError(err)
	}
}
