package safe

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// FallbackHandlerSlot is the storage slot holding the fallback handler address.
var FallbackHandlerSlot = common.HexToHash("0x6c9a6c4a39284e37ed1cf53d337577d14212a4870fb976a4366c693b939918d5")

// SentinelModules is the start marker of the module linked list.
var SentinelModules = common.HexToAddress("0x0000000000000000000000000000000000000001")

// ContractCaller executes read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// StorageReader reads raw contract storage.
type StorageReader interface {
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
}

// Nonce returns the current Safe nonce.
func Nonce(ctx context.Context, caller ContractCaller, safe common.Address) (uint64, error) {
	values, err := call(ctx, caller, safe, "nonce")
	if err != nil {
		return 0, err
	}
	nonce, err := asBigInt(values[0])
	if err != nil {
		return 0, fmt.Errorf("nonce: %w", err)
	}
	if !nonce.IsUint64() {
		return 0, fmt.Errorf("nonce does not fit in uint64: %s", nonce)
	}
	return nonce.Uint64(), nil
}

// Threshold returns the number of required confirmations.
func Threshold(ctx context.Context, caller ContractCaller, safe common.Address) (uint64, error) {
	values, err := call(ctx, caller, safe, "getThreshold")
	if err != nil {
		return 0, err
	}
	threshold, err := asBigInt(values[0])
	if err != nil {
		return 0, fmt.Errorf("threshold: %w", err)
	}
	return threshold.Uint64(), nil
}

// Owners returns the Safe owners.
func Owners(ctx context.Context, caller ContractCaller, safe common.Address) ([]common.Address, error) {
	values, err := call(ctx, caller, safe, "getOwners")
	if err != nil {
		return nil, err
	}
	owners, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unsupported owners type %T", values[0])
	}
	return owners, nil
}

// Version returns the VERSION string of the Safe singleton.
func Version(ctx context.Context, caller ContractCaller, safe common.Address) (string, error) {
	values, err := call(ctx, caller, safe, "VERSION")
	if err != nil {
		return "", err
	}
	version, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("unsupported version type %T", values[0])
	}
	return version, nil
}

// Modules returns up to pageSize enabled modules.
func Modules(ctx context.Context, caller ContractCaller, safe common.Address, pageSize int64) ([]common.Address, error) {
	values, err := call(ctx, caller, safe, "getModulesPaginated", SentinelModules, big.NewInt(pageSize))
	if err != nil {
		return nil, err
	}
	modules, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unsupported modules type %T", values[0])
	}
	return modules, nil
}

// Singleton returns the master copy address stored in slot 0 of the proxy.
func Singleton(ctx context.Context, reader StorageReader, safe common.Address) (common.Address, error) {
	return addressAtSlot(ctx, reader, safe, common.Hash{})
}

// FallbackHandler returns the configured fallback handler.
func FallbackHandler(ctx context.Context, reader StorageReader, safe common.Address) (common.Address, error) {
	return addressAtSlot(ctx, reader, safe, FallbackHandlerSlot)
}

// IsOwner reports whether account is in owners.
func IsOwner(owners []common.Address, account common.Address) bool {
	for _, owner := range owners {
		if owner == account {
			return true
		}
	}
	return false
}

func addressAtSlot(ctx context.Context, reader StorageReader, safe common.Address, slot common.Hash) (common.Address, error) {
	value, err := reader.StorageAt(ctx, safe, slot, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("read slot %s: %w", slot.Hex(), err)
	}
	return common.BytesToAddress(value), nil
}

func call(ctx context.Context, caller ContractCaller, safe common.Address, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, fmt.Errorf("parse safe abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &safe, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}
