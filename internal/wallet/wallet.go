package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet holds the key that signs registry transactions
type Wallet struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// LoadOrGenerate loads an existing key or generates a new one.
// A generated key is written hex-encoded to privatePath and its address to addressPath.
func LoadOrGenerate(privatePath, addressPath string) (*Wallet, error) {
	if _, err := os.Stat(privatePath); err == nil {
		return Load(privatePath)
	}

	return generate(privatePath, addressPath)
}

// Load loads a hex-encoded secp256k1 key from file
func Load(privatePath string) (*Wallet, error) {
	data, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	return FromHex(string(data))
}

// FromHex parses a hex-encoded secp256k1 key, with or without 0x
func FromHex(s string) (*Wallet, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")

	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Wallet{
		PrivateKey: key,
		Address:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func generate(privatePath, addressPath string) (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	w := &Wallet{
		PrivateKey: key,
		Address:    crypto.PubkeyToAddress(key.PublicKey),
	}

	if err := w.save(privatePath, addressPath); err != nil {
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}

	return w, nil
}

func (w *Wallet) save(privatePath, addressPath string) error {
	if err := os.MkdirAll(filepath.Dir(privatePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for private key: %w", err)
	}

	// SaveECDSA writes with 0600
	if err := crypto.SaveECDSA(privatePath, w.PrivateKey); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}

	if addressPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(addressPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for address: %w", err)
	}
	if err := os.WriteFile(addressPath, []byte(w.Address.Hex()+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write address: %w", err)
	}

	return nil
}

// Transactor returns signing options for the given chain
func (w *Wallet) Transactor(chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(w.PrivateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	return opts, nil
}
