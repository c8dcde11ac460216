package contract

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// RegistryABI is the calling convention of the certificate registry contract.
const RegistryABI = `[
  {"type":"function","name":"registerIssuer","stateMutability":"payable",
   "inputs":[{"name":"name","type":"string"},{"name":"institution","type":"string"}],"outputs":[]},
  {"type":"function","name":"approveIssuer","stateMutability":"nonpayable",
   "inputs":[{"name":"issuer","type":"address"}],"outputs":[]},
  {"type":"function","name":"removeIssuer","stateMutability":"nonpayable",
   "inputs":[{"name":"issuer","type":"address"}],"outputs":[]},
  {"type":"function","name":"getRegisteredIssuers","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"tuple[]","components":[
     {"name":"wallet","type":"address"},
     {"name":"name","type":"string"},
     {"name":"institution","type":"string"},
     {"name":"isApproved","type":"bool"},
     {"name":"deposit","type":"uint256"}]}]},
  {"type":"function","name":"isIssuerApproved","stateMutability":"view",
   "inputs":[{"name":"issuer","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"issueCertificate","stateMutability":"nonpayable",
   "inputs":[{"name":"recipientName","type":"string"},{"name":"courseName","type":"string"},{"name":"certHash","type":"bytes32"}],
   "outputs":[]},
  {"type":"function","name":"revokeCertificate","stateMutability":"nonpayable",
   "inputs":[{"name":"certHash","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"verifyCertificate","stateMutability":"view",
   "inputs":[{"name":"certHash","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"certificates","stateMutability":"view",
   "inputs":[{"name":"","type":"bytes32"}],
   "outputs":[
     {"name":"recipientName","type":"string"},
     {"name":"courseName","type":"string"},
     {"name":"issueDate","type":"uint256"},
     {"name":"isValid","type":"bool"},
     {"name":"ipfsUrl","type":"string"},
     {"name":"issuer","type":"address"}]},
  {"type":"function","name":"getCertificatesByIssuer","stateMutability":"view",
   "inputs":[{"name":"issuer","type":"address"}],"outputs":[{"name":"","type":"bytes32[]"}]},
  {"type":"function","name":"withdrawDeposit","stateMutability":"nonpayable","inputs":[],"outputs":[]}
]`

// Method names the client depends on
var requiredMethods = []string{
	"registerIssuer",
	"approveIssuer",
	"removeIssuer",
	"getRegisteredIssuers",
	"isIssuerApproved",
	"issueCertificate",
	"revokeCertificate",
	"verifyCertificate",
	"certificates",
	"getCertificatesByIssuer",
	"withdrawDeposit",
}

// LoadABI parses the ABI at path, or the embedded RegistryABI when path is empty.
func LoadABI(path string) (abi.ABI, error) {
	var r io.Reader = strings.NewReader(RegistryABI)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return abi.ABI{}, fmt.Errorf("failed to open ABI file: %w", err)
		}
		defer f.Close()
		r = f
	}

	parsed, err := abi.JSON(r)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI: %w", err)
	}

	for _, name := range requiredMethods {
		if _, ok := parsed.Methods[name]; !ok {
			return abi.ABI{}, fmt.Errorf("ABI is missing method %s", name)
		}
	}

	return parsed, nil
}
