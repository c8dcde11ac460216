package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file on top of the defaults
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithEnv loads configuration from a file and applies environment variable overrides
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration after env overrides: %w", err)
	}

	return cfg, nil
}

func read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	// ADMIN_PASSWORD and the PINATA_* names match the variables the web
	// front end was deployed with.
	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		c.Admin.Password = password
	}

	if jwt := os.Getenv("PINATA_JWT"); jwt != "" {
		c.Pinning.JWT = jwt
	}

	if apiKey := os.Getenv("PINATA_API_KEY"); apiKey != "" {
		c.Pinning.APIKey = apiKey
	}

	if secret := os.Getenv("PINATA_SECRET_API_KEY"); secret != "" {
		c.Pinning.SecretAPIKey = secret
	}

	if dbPath := os.Getenv("CERTLEDGER_DB_PATH"); dbPath != "" {
		c.Database.Path = dbPath
	}

	if rpcURL := os.Getenv("CERTLEDGER_RPC_URL"); rpcURL != "" {
		c.Chain.RPCURL = rpcURL
	}

	if addr := os.Getenv("CERTLEDGER_CONTRACT_ADDRESS"); addr != "" {
		c.Chain.ContractAddress = addr
	}

	if keyPath := os.Getenv("CERTLEDGER_PRIVATE_KEY_PATH"); keyPath != "" {
		c.Wallet.PrivateKeyPath = keyPath
	}

	if listenAddr := os.Getenv("CERTLEDGER_LISTEN_ADDR"); listenAddr != "" {
		c.Server.ListenAddr = listenAddr
	}

	if publicURL := os.Getenv("CERTLEDGER_PUBLIC_URL"); publicURL != "" {
		c.Server.PublicURL = publicURL
	}

	if proxies := os.Getenv("CERTLEDGER_TRUSTED_PROXIES"); proxies != "" {
		c.Server.TrustedProxies = nil
		for _, p := range strings.Split(proxies, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Server.TrustedProxies = append(c.Server.TrustedProxies, p)
			}
		}
	}

	if os.Getenv("NODE_ENV") == "production" {
		c.Admin.SecureCookie = true
	}
}
