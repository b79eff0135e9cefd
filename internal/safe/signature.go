package safe

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signature type tags carried in the last byte of a Safe signature.
const (
	SignatureApprovedHash = 1
	SignatureTypedDataLow = 27
	SignatureTypedDataHi  = 28
	SignatureEthSignLow   = 31
	SignatureEthSignHi    = 32
)

const signatureLength = 65

// Signature is an owner confirmation with its recovered signer.
type Signature struct {
	Signer common.Address
	Data   []byte
}

// Hex returns the 0x-encoded signature bytes.
func (s Signature) Hex() string {
	return hexutil.Encode(s.Data)
}

// ParseSignature recovers the signer of a 65 byte Safe signature over safeTxHash.
func ParseSignature(safeTxHash common.Hash, raw []byte) (Signature, error) {
	if len(raw) != signatureLength {
		return Signature{}, fmt.Errorf("unsupported signature length %d", len(raw))
	}
	data := make([]byte, signatureLength)
	copy(data, raw)

	switch v := data[64]; v {
	case SignatureApprovedHash:
		return Signature{Signer: common.BytesToAddress(data[12:32]), Data: data}, nil
	case SignatureTypedDataLow, SignatureTypedDataHi:
		signer, err := recoverSigner(safeTxHash.Bytes(), data, v)
		if err != nil {
			return Signature{}, err
		}
		return Signature{Signer: signer, Data: data}, nil
	case SignatureEthSignLow, SignatureEthSignHi:
		signer, err := recoverSigner(accounts.TextHash(safeTxHash.Bytes()), data, v-4)
		if err != nil {
			return Signature{}, err
		}
		return Signature{Signer: signer, Data: data}, nil
	default:
		return Signature{}, fmt.Errorf("unsupported signature type %d", v)
	}
}

// ParseSignatureHex is ParseSignature for a 0x-encoded signature.
func ParseSignatureHex(safeTxHash common.Hash, signature string) (Signature, error) {
	raw, err := hexutil.Decode(signature)
	if err != nil {
		return Signature{}, fmt.Errorf("invalid signature %q: %w", signature, err)
	}
	return ParseSignature(safeTxHash, raw)
}

// ApprovedHashSignature is the pre-validated signature an owner can use when it
// submits the transaction itself.
func ApprovedHashSignature(owner common.Address) Signature {
	data := make([]byte, signatureLength)
	copy(data[12:32], owner.Bytes())
	data[64] = SignatureApprovedHash
	return Signature{Signer: owner, Data: data}
}

// EncodeSignatures concatenates signatures sorted by signer address, as the
// Safe contract requires.
func EncodeSignatures(signatures []Signature) []byte {
	sorted := make([]Signature, len(signatures))
	copy(sorted, signatures)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Signer.Bytes(), sorted[j].Signer.Bytes()) < 0
	})

	out := make([]byte, 0, len(sorted)*signatureLength)
	for _, sig := range sorted {
		out = append(out, sig.Data...)
	}
	return out
}

func recoverSigner(hash []byte, sig []byte, v byte) (common.Address, error) {
	normalized := make([]byte, signatureLength)
	copy(normalized, sig)
	normalized[64] = v - 27

	pub, err := crypto.SigToPub(hash, normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
