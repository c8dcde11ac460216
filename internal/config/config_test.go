package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"ADMIN_PASSWORD", "PINATA_JWT", "PINATA_API_KEY", "PINATA_SECRET_API_KEY",
		"CERTLEDGER_DB_PATH", "CERTLEDGER_RPC_URL", "CERTLEDGER_CONTRACT_ADDRESS",
		"CERTLEDGER_PRIVATE_KEY_PATH", "CERTLEDGER_LISTEN_ADDR", "CERTLEDGER_PUBLIC_URL", "CERTLEDGER_TRUSTED_PROXIES", "NODE_ENV",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_DefaultsFillMissingFields(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
chain:
  contract_address: "`+testContract+`"
admin:
  password: "s3cret"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, HashModeURL, cfg.Certificates.HashMode)
	assert.Equal(t, "admin-authenticated", cfg.Admin.CookieName)
	assert.Equal(t, time.Hour, cfg.SessionTTL())
	assert.Equal(t, time.Second, cfg.ScanInterval())
	assert.Equal(t, 2*time.Minute, cfg.TxTimeout())
	assert.Equal(t, 0, cfg.Pinning.RetryMax)
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing password",
			body: "chain:\n  contract_address: \"" + testContract + "\"\n",
			want: "admin.password is required",
		},
		{
			name: "bad contract address",
			body: "chain:\n  contract_address: \"nope\"\nadmin:\n  password: x\n",
			want: "chain.contract_address must be a hex address",
		},
		{
			name: "unknown hash mode",
			body: "chain:\n  contract_address: \"" + testContract + "\"\nadmin:\n  password: x\ncertificates:\n  hash_mode: sha256\n",
			want: "certificates.hash_mode",
		},
		{
			name: "bad trusted proxy",
			body: "chain:\n  contract_address: \"" + testContract + "\"\nadmin:\n  password: x\nserver:\n  trusted_proxies: [\"10.0.0.0/99\"]\n",
			want: "server.trusted_proxies",
		},
		{
			name: "bad log format",
			body: "chain:\n  contract_address: \"" + testContract + "\"\nadmin:\n  password: x\nlogging:\n  format: xml\n",
			want: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
chain:
  contract_address: "`+testContract+`"
`)

	t.Setenv("ADMIN_PASSWORD", "from-env")
	t.Setenv("PINATA_JWT", "jwt-token")
	t.Setenv("CERTLEDGER_PUBLIC_URL", "https://certs.example.org/")
	t.Setenv("CERTLEDGER_TRUSTED_PROXIES", "10.0.0.1, 172.16.0.0/12")
	t.Setenv("NODE_ENV", "production")

	cfg, err := LoadWithEnv(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, cfg.Server.TrustedProxies)

	assert.Equal(t, "from-env", cfg.Admin.Password)
	assert.Equal(t, "jwt-token", cfg.Pinning.JWT)
	assert.True(t, cfg.Admin.SecureCookie)
	assert.Equal(t, "https://certs.example.org/verify?hash=0xabc", cfg.VerifyURL("0xabc"))
}

func TestParseDuration_Days(t *testing.T) {
	d, err := parseDuration("2d")
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, d)

	_, err = parseDuration("xd")
	assert.Error(t, err)
}
