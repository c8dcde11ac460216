package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Hash derivation modes
const (
	HashModeURL          = "url"
	HashModeURLTimestamp = "url_timestamp"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Wallet       WalletConfig       `yaml:"wallet"`
	Chain        ChainConfig        `yaml:"chain"`
	Pinning      PinningConfig      `yaml:"pinning"`
	Certificates CertificatesConfig `yaml:"certificates"`
	Admin        AdminConfig        `yaml:"admin"`
	Logging      LoggingConfig      `yaml:"logging"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// PublicURL is the externally visible base URL used in verification links.
	PublicURL string `yaml:"public_url"`
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For
	// header is believed. Empty trusts none.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// WalletConfig contains the signing key location
type WalletConfig struct {
	PrivateKeyPath string `yaml:"private_key_path"`
	AddressPath    string `yaml:"address_path"`
}

// ChainConfig contains the RPC endpoint and contract location
type ChainConfig struct {
	RPCURL          string `yaml:"rpc_url"`
	ChainID         int64  `yaml:"chain_id"`
	ContractAddress string `yaml:"contract_address"`
	ABIPath         string `yaml:"abi_path"`
	TxTimeout       string `yaml:"tx_timeout"`
}

// PinningConfig contains the pinning service settings
type PinningConfig struct {
	APIURL       string `yaml:"api_url"`
	GatewayURL   string `yaml:"gateway_url"`
	JWT          string `yaml:"jwt"`
	APIKey       string `yaml:"api_key"`
	SecretAPIKey string `yaml:"secret_api_key"`
	RetryMax     int    `yaml:"retry_max"`
	Timeout      string `yaml:"timeout"`
}

// CertificatesConfig contains issuance and verification settings
type CertificatesConfig struct {
	HashMode           string `yaml:"hash_mode"`
	MaxFileSize        int64  `yaml:"max_file_size"`
	MinDeposit         string `yaml:"min_deposit"`
	QRSize             int    `yaml:"qr_size"`
	ScanInterval       string `yaml:"scan_interval"`
	MaxConcurrentReads int    `yaml:"max_concurrent_reads"`

	// PinMetadata additionally pins a JSON description of each issuance.
	PinMetadata bool `yaml:"pin_metadata"`
}

// AdminConfig contains admin gate configuration
type AdminConfig struct {
	Password     string `yaml:"password"`
	TOTPSecret   string `yaml:"totp_secret"`
	CookieName   string `yaml:"cookie_name"`
	SessionTTL   string `yaml:"session_ttl"`
	SecureCookie bool   `yaml:"secure_cookie"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// Default returns a configuration with every optional field filled in.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			PublicURL:  "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Path: "certledger.db",
		},
		Wallet: WalletConfig{
			PrivateKeyPath: "wallet.key",
			AddressPath:    "wallet.address",
		},
		Chain: ChainConfig{
			RPCURL:    "http://127.0.0.1:8545",
			TxTimeout: "2m",
		},
		Pinning: PinningConfig{
			APIURL:     "https://api.pinata.cloud",
			GatewayURL: "https://gateway.pinata.cloud",
			Timeout:    "60s",
		},
		Certificates: CertificatesConfig{
			HashMode:           HashModeURL,
			MaxFileSize:        10 << 20,
			MinDeposit:         "0.01",
			QRSize:             180,
			ScanInterval:       "1s",
			MaxConcurrentReads: 8,
		},
		Admin: AdminConfig{
			CookieName: "admin-authenticated",
			SessionTTL: "1h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			Burst:             10,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Server.PublicURL == "" {
		return fmt.Errorf("server.public_url is required")
	}
	for _, p := range c.Server.TrustedProxies {
		if !validProxy(p) {
			return fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR", p)
		}
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Wallet.PrivateKeyPath == "" {
		return fmt.Errorf("wallet.private_key_path is required")
	}

	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	if !common.IsHexAddress(c.Chain.ContractAddress) {
		return fmt.Errorf("chain.contract_address must be a hex address")
	}
	if c.Chain.ChainID < 0 {
		return fmt.Errorf("chain.chain_id must not be negative")
	}
	if _, err := parseDuration(c.Chain.TxTimeout); err != nil {
		return fmt.Errorf("chain.tx_timeout is invalid: %w", err)
	}

	if c.Pinning.APIURL == "" {
		return fmt.Errorf("pinning.api_url is required")
	}
	if c.Pinning.GatewayURL == "" {
		return fmt.Errorf("pinning.gateway_url is required")
	}
	if c.Pinning.RetryMax < 0 {
		return fmt.Errorf("pinning.retry_max must not be negative")
	}
	if _, err := parseDuration(c.Pinning.Timeout); err != nil {
		return fmt.Errorf("pinning.timeout is invalid: %w", err)
	}

	if c.Certificates.HashMode != HashModeURL && c.Certificates.HashMode != HashModeURLTimestamp {
		return fmt.Errorf("certificates.hash_mode must be '%s' or '%s'", HashModeURL, HashModeURLTimestamp)
	}
	if c.Certificates.MaxFileSize <= 0 {
		return fmt.Errorf("certificates.max_file_size must be positive")
	}
	if c.Certificates.MinDeposit == "" {
		return fmt.Errorf("certificates.min_deposit is required")
	}
	if c.Certificates.QRSize < 21 {
		return fmt.Errorf("certificates.qr_size must be at least 21")
	}
	if d, err := parseDuration(c.Certificates.ScanInterval); err != nil || d <= 0 {
		return fmt.Errorf("certificates.scan_interval must be a positive duration")
	}
	if c.Certificates.MaxConcurrentReads <= 0 {
		return fmt.Errorf("certificates.max_concurrent_reads must be positive")
	}

	if c.Admin.Password == "" {
		return fmt.Errorf("admin.password is required")
	}
	if c.Admin.Password == "change-me" {
		fmt.Fprintf(os.Stderr, "WARNING: Using default admin password. Please change it in production!\n")
	}
	if c.Admin.CookieName == "" {
		return fmt.Errorf("admin.cookie_name is required")
	}
	if d, err := parseDuration(c.Admin.SessionTTL); err != nil || d <= 0 {
		return fmt.Errorf("admin.session_ttl must be a positive duration")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be 'json' or 'text'")
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must be positive when enabled")
	}

	return nil
}

func validProxy(p string) bool {
	if strings.Contains(p, "/") {
		_, _, err := net.ParseCIDR(p)
		return err == nil
	}
	return net.ParseIP(p) != nil
}

// TxTimeout returns the transaction wait timeout
func (c *Config) TxTimeout() time.Duration {
	d, _ := parseDuration(c.Chain.TxTimeout)
	return d
}

// PinningTimeout returns the per-request pinning timeout
func (c *Config) PinningTimeout() time.Duration {
	d, _ := parseDuration(c.Pinning.Timeout)
	return d
}

// ScanInterval returns the QR polling interval
func (c *Config) ScanInterval() time.Duration {
	d, _ := parseDuration(c.Certificates.ScanInterval)
	return d
}

// SessionTTL returns the admin cookie lifetime
func (c *Config) SessionTTL() time.Duration {
	d, _ := parseDuration(c.Admin.SessionTTL)
	return d
}

// VerifyURL builds the public verification link for a certificate hash.
func (c *Config) VerifyURL(hash string) string {
	return strings.TrimRight(c.Server.PublicURL, "/") + "/verify?hash=" + hash
}

// parseDuration parses duration with support for days (e.g., "90d")
func parseDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		days := s[:len(s)-1]
		var d int
		if _, err := fmt.Sscanf(days, "%d", &d); err != nil {
			return 0, err
		}
		return time.Duration(d) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
