package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// EmailRegex validates email format
	EmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// PhoneRegex accepts Indian mobile numbers in E.164 form
	PhoneRegex = regexp.MustCompile(`^\+91\d{10}$`)

	// ReferralCodeRegex validates referral codes as typed by users
	ReferralCodeRegex = regexp.MustCompile(`^[A-Z0-9]{8,20}$`)

	// InitTokenRegex validates the 64 hex character init token
	InitTokenRegex = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// SupportedGames is the closed set accepted as primary_game.
var SupportedGames = []string{"BGMI", "Valorant", "Free Fire", "COD Mobile"}

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores bytes past 72
)

// ValidateEmail validates email address
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 254 {
		return fmt.Errorf("email is too long (max 254 characters)")
	}
	if !EmailRegex.MatchString(email) {
		return fmt.Errorf("email must be a valid email")
	}
	return nil
}

// ValidatePhone validates phone_number
func ValidatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("phone_number is required")
	}
	if !PhoneRegex.MatchString(phone) {
		return fmt.Errorf("phone_number must be a valid Indian mobile number (+91XXXXXXXXXX)")
	}
	return nil
}

// ValidatePassword validates password
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password is too long (max %d characters)", MaxPasswordLength)
	}
	return nil
}

// ValidateInitToken checks the shape of an init token, not its validity.
func ValidateInitToken(token string) error {
	if token == "" {
		return fmt.Errorf("init_token is required")
	}
	if !InitTokenRegex.MatchString(token) {
		return fmt.Errorf("init_token must be 64 hex characters")
	}
	return nil
}

// ValidateReferralCode validates an optional referral code. Callers
// upper-case the input first.
func ValidateReferralCode(code string) error {
	if code == "" {
		return nil
	}
	if !ReferralCodeRegex.MatchString(code) {
		return fmt.Errorf("referral_code must be 8-20 letters or digits")
	}
	return nil
}

// ValidateGame validates primary_game against SupportedGames
func ValidateGame(game string) error {
	for _, g := range SupportedGames {
		if g == game {
			return nil
		}
	}
	return fmt.Errorf("primary_game must be one of: %s", strings.Join(SupportedGames, ", "))
}

// ValidateURL validates an optional absolute URL
func ValidateURL(urlStr, fieldName string) error {
	if urlStr == "" {
		return nil
	}
	u, err := url.Parse(urlStr)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be a valid uri", fieldName)
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length in runes
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(strings.TrimSpace(s))
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}

// First returns the first non-nil error, so request validation reports one
// problem at a time.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
