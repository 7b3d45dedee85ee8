package domain

import "time"

// InitToken is a single-use device handshake token. Only Used ever changes
// after issue.
type InitToken struct {
	Token             string
	DeviceFingerprint string
	IPAddress         string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	Used              bool
}

// ValidAt reports whether the token may still be consumed at now.
func (t *InitToken) ValidAt(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
