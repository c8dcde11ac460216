package auth

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpIssuer = "certledger"
)

// GenerateTOTP generates a new TOTP key for the admin account
func GenerateTOTP(account string) (*otp.Key, error) {
	if account == "" {
		account = "admin"
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: account,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	return key, nil
}

// ValidateTOTP validates a TOTP code against a secret
func ValidateTOTP(secret, code string) bool {
	return ValidateTOTPAt(secret, code, time.Now())
}

// ValidateTOTPAt validates a code at t, allowing one period of clock skew
func ValidateTOTPAt(secret, code string, t time.Time) bool {
	if code == "" {
		return false
	}

	valid, err := totp.ValidateCustom(code, secret, t, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}
