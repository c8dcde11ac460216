package wallet

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known development key (first hardhat/anvil account)
const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestFromHex(t *testing.T) {
	w, err := FromHex(devKey + "\n")
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", w.Address.Hex())

	_, err = FromHex("zz")
	assert.Error(t, err)
}

func TestLoadOrGenerate(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "keys", "wallet.key")
	addrPath := filepath.Join(dir, "keys", "wallet.address")

	first, err := LoadOrGenerate(keyPath, addrPath)
	require.NoError(t, err)

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	addr, err := os.ReadFile(addrPath)
	require.NoError(t, err)
	assert.Equal(t, first.Address.Hex(), strings.TrimSpace(string(addr)))

	second, err := LoadOrGenerate(keyPath, addrPath)
	require.NoError(t, err)
	assert.Equal(t, first.Address, second.Address)
}

func TestTransactor(t *testing.T) {
	w, err := FromHex(devKey)
	require.NoError(t, err)

	opts, err := w.Transactor(big.NewInt(31337))
	require.NoError(t, err)
	assert.Equal(t, w.Address, opts.From)
}
