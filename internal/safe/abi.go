package safe

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Subset of the Safe L2 singleton ABI (v1.3.0) used by the tasks.
const safeABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "bytes32", "name": "txHash", "type": "bytes32"},
      {"indexed": false, "internalType": "uint256", "name": "payment", "type": "uint256"}
    ],
    "name": "ExecutionSuccess",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "bytes32", "name": "txHash", "type": "bytes32"},
      {"indexed": false, "internalType": "uint256", "name": "payment", "type": "uint256"}
    ],
    "name": "ExecutionFailure",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "module", "type": "address"}
    ],
    "name": "ExecutionFromModuleSuccess",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "module", "type": "address"}
    ],
    "name": "ExecutionFromModuleFailure",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"},
      {"indexed": false, "internalType": "bytes", "name": "data", "type": "bytes"},
      {"indexed": false, "internalType": "enum Enum.Operation", "name": "operation", "type": "uint8"},
      {"indexed": false, "internalType": "uint256", "name": "safeTxGas", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "baseGas", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "gasPrice", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "gasToken", "type": "address"},
      {"indexed": false, "internalType": "address payable", "name": "refundReceiver", "type": "address"},
      {"indexed": false, "internalType": "bytes", "name": "signatures", "type": "bytes"},
      {"indexed": false, "internalType": "bytes", "name": "additionalInfo", "type": "bytes"}
    ],
    "name": "SafeMultiSigTransaction",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "module", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"},
      {"indexed": false, "internalType": "bytes", "name": "data", "type": "bytes"},
      {"indexed": false, "internalType": "enum Enum.Operation", "name": "operation", "type": "uint8"}
    ],
    "name": "SafeModuleTransaction",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
    ],
    "name": "SafeReceived",
    "type": "event"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "to", "type": "address"},
      {"internalType": "uint256", "name": "value", "type": "uint256"},
      {"internalType": "bytes", "name": "data", "type": "bytes"},
      {"internalType": "enum Enum.Operation", "name": "operation", "type": "uint8"},
      {"internalType": "uint256", "name": "safeTxGas", "type": "uint256"},
      {"internalType": "uint256", "name": "baseGas", "type": "uint256"},
      {"internalType": "uint256", "name": "gasPrice", "type": "uint256"},
      {"internalType": "address", "name": "gasToken", "type": "address"},
      {"internalType": "address payable", "name": "refundReceiver", "type": "address"},
      {"internalType": "bytes", "name": "signatures", "type": "bytes"}
    ],
    "name": "execTransaction",
    "outputs": [{"internalType": "bool", "name": "success", "type": "bool"}],
    "stateMutability": "payable",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "nonce",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getOwners",
    "outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getThreshold",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "VERSION",
    "outputs": [{"internalType": "string", "name": "", "type": "string"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "start", "type": "address"},
      {"internalType": "uint256", "name": "pageSize", "type": "uint256"}
    ],
    "name": "getModulesPaginated",
    "outputs": [
      {"internalType": "address[]", "name": "array", "type": "address[]"},
      {"internalType": "address", "name": "next", "type": "address"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

// The three Transfer layouts share one topic; only the indexed flags differ.
const (
	erc20TransferABIJSON = `[{"anonymous": false, "inputs": [
      {"indexed": true, "name": "from", "type": "address"},
      {"indexed": true, "name": "to", "type": "address"},
      {"indexed": false, "name": "amount", "type": "uint256"}
    ], "name": "Transfer", "type": "event"}]`
	erc20LegacyTransferABIJSON = `[{"anonymous": false, "inputs": [
      {"indexed": true, "name": "from", "type": "address"},
      {"indexed": false, "name": "to", "type": "address"},
      {"indexed": false, "name": "amount", "type": "uint256"}
    ], "name": "Transfer", "type": "event"}]`
	erc721TransferABIJSON = `[{"anonymous": false, "inputs": [
      {"indexed": true, "name": "from", "type": "address"},
      {"indexed": true, "name": "to", "type": "address"},
      {"indexed": true, "name": "tokenId", "type": "uint256"}
    ], "name": "Transfer", "type": "event"}]`
)

// Event topics.
var (
	ExecutionSuccessTopic           = crypto.Keccak256Hash([]byte("ExecutionSuccess(bytes32,uint256)"))
	ExecutionFailureTopic           = crypto.Keccak256Hash([]byte("ExecutionFailure(bytes32,uint256)"))
	ExecutionFromModuleSuccessTopic = crypto.Keccak256Hash([]byte("ExecutionFromModuleSuccess(address)"))
	ExecutionFromModuleFailureTopic = crypto.Keccak256Hash([]byte("ExecutionFromModuleFailure(address)"))
	SafeMultiSigTransactionTopic    = crypto.Keccak256Hash([]byte("SafeMultiSigTransaction(address,uint256,bytes,uint8,uint256,uint256,uint256,address,address,bytes,bytes)"))
	SafeModuleTransactionTopic      = crypto.Keccak256Hash([]byte("SafeModuleTransaction(address,address,uint256,bytes,uint8)"))
	SafeReceivedTopic               = crypto.Keccak256Hash([]byte("SafeReceived(address,uint256)"))
	TransferTopic                   = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

var (
	safeABI     abi.ABI
	safeABIOnce sync.Once
	safeABIErr  error

	transferABIs     transferEvents
	transferABIsOnce sync.Once
	transferABIsErr  error
)

type transferEvents struct {
	erc20       abi.Event
	erc20Legacy abi.Event
	erc721      abi.Event
}

// ABI returns the parsed Safe ABI.
func ABI() (abi.ABI, error) {
	safeABIOnce.Do(func() {
		safeABI, safeABIErr = abi.JSON(strings.NewReader(safeABIJSON))
	})
	return safeABI, safeABIErr
}

func transferEventABIs() (transferEvents, error) {
	transferABIsOnce.Do(func() {
		var parsed [3]abi.ABI
		for i, def := range []string{erc20TransferABIJSON, erc20LegacyTransferABIJSON, erc721TransferABIJSON} {
			parsed[i], transferABIsErr = abi.JSON(strings.NewReader(def))
			if transferABIsErr != nil {
				return
			}
		}
		transferABIs = transferEvents{
			erc20:       parsed[0].Events["Transfer"],
			erc20Legacy: parsed[1].Events["Transfer"],
			erc721:      parsed[2].Events["Transfer"],
		}
	})
	return transferABIs, transferABIsErr
}

// IsOutcomeTopic reports whether topic marks the end of a Safe or module execution.
func IsOutcomeTopic(topic common.Hash) bool {
	switch topic {
	case ExecutionSuccessTopic, ExecutionFailureTopic, ExecutionFromModuleSuccessTopic, ExecutionFromModuleFailureTopic:
		return true
	}
	return false
}

// IsDetailsTopic reports whether topic is an L2 details event emitted before execution.
func IsDetailsTopic(topic common.Hash) bool {
	return topic == SafeMultiSigTransactionTopic || topic == SafeModuleTransactionTopic
}
