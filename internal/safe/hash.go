package safe

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"safeTasks/internal/model"
)

var safeTxType = []apitypes.Type{
	{Name: "to", Type: "address"},
	{Name: "value", Type: "uint256"},
	{Name: "data", Type: "bytes"},
	{Name: "operation", Type: "uint8"},
	{Name: "safeTxGas", Type: "uint256"},
	{Name: "baseGas", Type: "uint256"},
	{Name: "gasPrice", Type: "uint256"},
	{Name: "gasToken", Type: "address"},
	{Name: "refundReceiver", Type: "address"},
	{Name: "nonce", Type: "uint256"},
}

// TxHash computes the safeTxHash used by Safe v1.3.0 and later, whose domain
// separator includes the chain id.
func TxHash(safe common.Address, chainID *big.Int, tx model.SafeTx) (common.Hash, error) {
	if chainID == nil {
		return common.Hash{}, fmt.Errorf("chain id is required")
	}
	domainType := []apitypes.Type{
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	}
	domain := apitypes.TypedDataDomain{
		ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
		VerifyingContract: safe.Hex(),
	}
	return hashTypedSafeTx(domainType, domain, tx)
}

// LegacyTxHash computes the safeTxHash of Safe versions before v1.3.0, whose
// domain separator only commits to the Safe address.
func LegacyTxHash(safe common.Address, tx model.SafeTx) (common.Hash, error) {
	domainType := []apitypes.Type{
		{Name: "verifyingContract", Type: "address"},
	}
	domain := apitypes.TypedDataDomain{
		VerifyingContract: safe.Hex(),
	}
	return hashTypedSafeTx(domainType, domain, tx)
}

func hashTypedSafeTx(domainType []apitypes.Type, domain apitypes.TypedDataDomain, tx model.SafeTx) (common.Hash, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainType,
			"SafeTx":       safeTxType,
		},
		PrimaryType: "SafeTx",
		Domain:      domain,
		Message:     safeTxMessage(tx),
	}
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash safe tx: %w", err)
	}
	return common.BytesToHash(hash), nil
}

func safeTxMessage(tx model.SafeTx) apitypes.TypedDataMessage {
	data := []byte(tx.Data)
	if data == nil {
		data = []byte{}
	}
	return apitypes.TypedDataMessage{
		"to":             tx.To.Hex(),
		"value":          decimalOrZero(tx.Value),
		"data":           data,
		"operation":      new(big.Int).SetUint64(uint64(tx.Operation)),
		"safeTxGas":      decimalOrZero(tx.SafeTxGas),
		"baseGas":        decimalOrZero(tx.BaseGas),
		"gasPrice":       decimalOrZero(tx.GasPrice),
		"gasToken":       tx.GasToken.Hex(),
		"refundReceiver": tx.RefundReceiver.Hex(),
		"nonce":          new(big.Int).SetUint64(tx.Nonce),
	}
}

func decimalOrZero(value string) string {
	if value == "" {
		return "0"
	}
	return value
}
