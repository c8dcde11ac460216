package ethutil

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/params"
)

const etherDecimals = 18

// ParseHash decodes a 32-byte hex value, with or without the 0x prefix.
// Unlike common.HexToHash it rejects anything that is not exactly 32 bytes.
func ParseHash(s string) (common.Hash, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}

	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid hash length: got %d bytes, want %d", len(b), common.HashLength)
	}

	return common.BytesToHash(b), nil
}

// ParseAddress decodes a hex account address
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// ParseEther converts a decimal ether amount ("0.01") into wei.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty ether amount")
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > etherDecimals {
		return nil, fmt.Errorf("too many decimals in %q", s)
	}

	wei, ok := new(big.Int).SetString(whole+frac+strings.Repeat("0", etherDecimals-len(frac)), 10)
	if !ok || wei.Sign() < 0 {
		return nil, fmt.Errorf("invalid ether amount %q", s)
	}
	return wei, nil
}

// FormatEther renders a wei amount as a decimal ether string.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	q, r := new(big.Int).QuoRem(wei, big.NewInt(params.Ether), new(big.Int))
	if r.Sign() == 0 {
		return q.String()
	}

	digits := new(big.Int).Abs(r).String()
	frac := strings.Repeat("0", etherDecimals-len(digits)) + digits
	return q.String() + "." + strings.TrimRight(frac, "0")
}
