package domain

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrAdminNotFound     = errors.New("admin not found")
	ErrUserExists        = errors.New("email or phone already registered")
	ErrAdminExists       = errors.New("admin already exists")
	ErrInvalidReferral   = errors.New("invalid referral code")
	ErrInitTokenNotFound = errors.New("init token not found")
	ErrInvalidInitToken  = errors.New("invalid or expired init token")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrAccountSuspended  = errors.New("account suspended")
	ErrInvalidToken      = errors.New("invalid token")
	ErrChannelNotFound   = errors.New("channel not found")
	ErrInvalidPayload    = errors.New("payload must be valid JSON")
	ErrRelayUnavailable  = errors.New("presence relay unavailable")
)
