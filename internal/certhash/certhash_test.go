package certhash

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamscao/certledger/internal/config"
)

const gatewayURL = "https://gateway.pinata.cloud/ipfs/QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func TestFromURL_MatchesKeccakOfUTF8(t *testing.T) {
	assert.Equal(t, crypto.Keccak256Hash([]byte(gatewayURL)), FromURL(gatewayURL))
	assert.Equal(t,
		"0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		FromURL("").Hex(),
	)
}

func TestDerive_URLModeIsStable(t *testing.T) {
	d, err := NewDeriver(config.HashModeURL)
	require.NoError(t, err)

	first := d.Derive(gatewayURL)
	second := d.Derive(gatewayURL)

	assert.Equal(t, first.Hash, second.Hash)
	assert.Empty(t, first.Salt)
	assert.Equal(t, FromURL(gatewayURL), first.Hash)
}

func TestDerive_DifferentSaltsGiveDifferentHashes(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	d, err := NewDeriver(config.HashModeURLTimestamp)
	require.NoError(t, err)
	d.WithClock(func() time.Time {
		ts = ts.Add(time.Millisecond)
		return ts
	})

	first := d.Derive(gatewayURL)
	second := d.Derive(gatewayURL)

	assert.NotEqual(t, first.Hash, second.Hash)
	assert.Equal(t, "1700000000001", first.Salt)
	assert.Equal(t, FromURLWithSalt(gatewayURL, first.Salt), first.Hash)
	assert.NotEqual(t, FromURL(gatewayURL), first.Hash)
}

func TestNewDeriver_UnknownMode(t *testing.T) {
	_, err := NewDeriver("sha256")
	assert.Error(t, err)
}
