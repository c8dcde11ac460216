package auth

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLogin(t *testing.T) {
	g := NewGate("s3cret", "", time.Hour)

	token, err := g.Login("s3cret", "")
	require.NoError(t, err)
	assert.NoError(t, g.ValidateSession(token))

	_, err = g.Login("wrong", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = g.Login("", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_NotConfigured(t *testing.T) {
	g := NewGate("", "", time.Hour)

	_, err := g.Login("", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, g.CheckPassword(""))
}

func TestSessionExpiry(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	g := NewGate("s3cret", "", time.Hour).WithClock(fixedClock(start))

	token, err := g.IssueSession()
	require.NoError(t, err)

	g.WithClock(fixedClock(start.Add(59 * time.Minute)))
	assert.NoError(t, g.ValidateSession(token))

	g.WithClock(fixedClock(start.Add(61 * time.Minute)))
	assert.ErrorIs(t, g.ValidateSession(token), ErrInvalidSession)
}

func TestSessionRejectsForgery(t *testing.T) {
	g := NewGate("s3cret", "", time.Hour)
	other := NewGate("different", "", time.Hour)

	token, err := other.IssueSession()
	require.NoError(t, err)

	assert.ErrorIs(t, g.ValidateSession(token), ErrInvalidSession)
	assert.ErrorIs(t, g.ValidateSession("true"), ErrInvalidSession)
	assert.ErrorIs(t, g.ValidateSession(""), ErrInvalidSession)
}

func TestLogin_TOTP(t *testing.T) {
	key, err := GenerateTOTP("")
	require.NoError(t, err)
	assert.Contains(t, key.URL(), "issuer=certledger")

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	g := NewGate("s3cret", key.Secret(), time.Hour).WithClock(fixedClock(now))
	require.True(t, g.TOTPEnabled())

	code, err := totp.GenerateCode(key.Secret(), now)
	require.NoError(t, err)

	_, err = g.Login("s3cret", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = g.Login("s3cret", "000000x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, err := g.Login("s3cret", code)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestValidateTOTPAt_Skew(t *testing.T) {
	key, err := GenerateTOTP("ops")
	require.NoError(t, err)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	code, err := totp.GenerateCode(key.Secret(), now)
	require.NoError(t, err)

	assert.True(t, ValidateTOTPAt(key.Secret(), code, now.Add(30*time.Second)))
	assert.False(t, ValidateTOTPAt(key.Secret(), code, now.Add(5*time.Minute)))
}
