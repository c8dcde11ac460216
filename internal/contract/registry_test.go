package contract

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	issuerAddr   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

// callBackend answers eth_call with pre-packed outputs keyed by method name.
// Only the read path is implemented; the embedded nil Backend panics on anything else.
type callBackend struct {
	Backend
	abi     abi.ABI
	outputs map[string][]byte
	calls   []string
}

func (b *callBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	method, err := b.abi.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	b.calls = append(b.calls, method.Name)
	out, ok := b.outputs[method.Name]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (b *callBackend) CodeAt(ctx context.Context, account common.Address, block *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func newTestRegistry(t *testing.T, outputs map[string][]interface{}) (*EthRegistry, *callBackend) {
	t.Helper()
	parsed, err := LoadABI("")
	require.NoError(t, err)

	packed := make(map[string][]byte, len(outputs))
	for name, values := range outputs {
		data, err := parsed.Methods[name].Outputs.Pack(values...)
		require.NoError(t, err, name)
		packed[name] = data
	}

	backend := &callBackend{abi: parsed, outputs: packed}
	return NewEthRegistry(contractAddr, parsed, backend, nil, 0, zap.NewNop()), backend
}

func TestLoadABI(t *testing.T) {
	parsed, err := LoadABI("")
	require.NoError(t, err)
	assert.True(t, parsed.Methods["registerIssuer"].IsPayable())
	assert.True(t, parsed.Methods["verifyCertificate"].IsConstant())

	path := filepath.Join(t.TempDir(), "abi.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"type":"function","name":"verifyCertificate","inputs":[{"name":"h","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"}]`), 0o600))
	_, err = LoadABI(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing method")
}

func TestEthRegistry_VerifyCertificate(t *testing.T) {
	reg, backend := newTestRegistry(t, map[string][]interface{}{
		"verifyCertificate": {true},
	})

	ok, err := reg.VerifyCertificate(context.Background(), common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"verifyCertificate"}, backend.calls)
}

func TestEthRegistry_Certificate(t *testing.T) {
	reg, _ := newTestRegistry(t, map[string][]interface{}{
		"certificates": {"Ada Lovelace", "Analytical Engines", big.NewInt(1700000000), true, "https://gateway.pinata.cloud/ipfs/QmA", issuerAddr},
	})

	hash := common.HexToHash("0xabc")
	cert, err := reg.Certificate(context.Background(), hash)
	require.NoError(t, err)

	assert.Equal(t, hash, cert.Hash)
	assert.Equal(t, "Ada Lovelace", cert.RecipientName)
	assert.Equal(t, "Analytical Engines", cert.CourseName)
	assert.Equal(t, int64(1700000000), cert.IssueDate.Unix())
	assert.True(t, cert.IsValid)
	assert.Equal(t, issuerAddr, cert.Issuer)
	assert.True(t, cert.Exists())
}

func TestEthRegistry_RegisteredIssuers(t *testing.T) {
	type tuple struct {
		Wallet      common.Address
		Name        string
		Institution string
		IsApproved  bool
		Deposit     *big.Int
	}
	reg, _ := newTestRegistry(t, map[string][]interface{}{
		"getRegisteredIssuers": {[]tuple{
			{Wallet: issuerAddr, Name: "Grace", Institution: "Navy", IsApproved: true, Deposit: big.NewInt(10)},
			{Wallet: contractAddr, Name: "Alan", Institution: "NPL", IsApproved: false, Deposit: big.NewInt(0)},
		}},
	})

	issuers, err := reg.RegisteredIssuers(context.Background())
	require.NoError(t, err)
	require.Len(t, issuers, 2)
	assert.Equal(t, "Grace", issuers[0].Name)
	assert.True(t, issuers[0].IsApproved)
	assert.Equal(t, int64(10), issuers[0].Deposit.Int64())
	assert.Equal(t, "NPL", issuers[1].Institution)
}

func TestEthRegistry_CertificatesByIssuer(t *testing.T) {
	h1, h2 := common.HexToHash("0x01"), common.HexToHash("0x02")
	reg, _ := newTestRegistry(t, map[string][]interface{}{
		"getCertificatesByIssuer": {[][32]byte{h1, h2}},
	})

	hashes, err := reg.CertificatesByIssuer(context.Background(), issuerAddr)
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{h1, h2}, hashes)
}

func TestEthRegistry_CallError(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)

	_, err := reg.IsIssuerApproved(context.Background(), issuerAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "isIssuerApproved")
}

func TestEthRegistry_WritesNeedSigner(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)

	_, err := reg.WithdrawDeposit(context.Background())
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.Equal(t, common.Address{}, reg.Sender())
}
