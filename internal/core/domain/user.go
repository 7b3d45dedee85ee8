package domain

import "time"

type UserID string

// Status applies to both players and admins.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusBanned    Status = "banned"
)

func (s Status) IsActive() bool {
	return s == StatusActive
}

// User is a player account. Cash amounts are in paise.
type User struct {
	ID                 UserID
	Email              string
	PhoneNumber        string
	FullName           string
	InGameName         string
	PrimaryGame        string
	PasswordHash       string
	ProfilePicture     string
	ReferralCode       string
	ReferredByID       *UserID
	CoinsBalance       int64
	CashBalance        int64
	PendingWithdrawals int64
	Status             Status
	LastLogin          *time.Time
	CreatedAt          time.Time
}
