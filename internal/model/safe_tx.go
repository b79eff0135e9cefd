package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Safe operations.
const (
	OperationCall         uint8 = 0
	OperationDelegateCall uint8 = 1
)

// SafeTxBody holds the Safe transaction parameters except the nonce.
// Numeric fields are base-10 strings.
type SafeTxBody struct {
	To             common.Address `json:"to"`
	Value          string         `json:"value"`
	Data           hexutil.Bytes  `json:"data"`
	Operation      uint8          `json:"operation"`
	SafeTxGas      string         `json:"safe_tx_gas"`
	BaseGas        string         `json:"base_gas"`
	GasPrice       string         `json:"gas_price"`
	GasToken       common.Address `json:"gas_token"`
	RefundReceiver common.Address `json:"refund_receiver"`
}

// SafeTx is a complete Safe transaction as hashed by EIP-712.
type SafeTx struct {
	SafeTxBody
	Nonce uint64 `json:"nonce"`
}

// NewSafeTx builds a call with zeroed gas refund parameters.
func NewSafeTx(to common.Address, value string, data []byte, operation uint8, nonce uint64) SafeTx {
	if value == "" {
		value = "0"
	}
	if data == nil {
		data = []byte{}
	}
	return SafeTx{
		SafeTxBody: SafeTxBody{
			To:        to,
			Value:     value,
			Data:      data,
			Operation: operation,
			SafeTxGas: "0",
			BaseGas:   "0",
			GasPrice:  "0",
		},
		Nonce: nonce,
	}
}

// Proposal is a pending Safe transaction cached by its hash.
type Proposal struct {
	Safe       common.Address `json:"safe"`
	ChainID    uint64         `json:"chain_id"`
	SafeTxHash common.Hash    `json:"safe_tx_hash"`
	Tx         SafeTx         `json:"tx"`
}

// Signatures maps a checksummed signer address to its 0x-encoded signature.
type Signatures map[string]string
