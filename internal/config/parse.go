package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseAddress converts a hex address. Empty input yields the zero address
// and ok=false.
func ParseAddress(input string) (addr common.Address, ok bool, err error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, false, nil
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, false, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), true, nil
}

// ParseHash converts a 32 byte hex hash.
func ParseHash(input string) (hash common.Hash, ok bool, err error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Hash{}, false, nil
	}
	data, err := hexutil.Decode(input)
	if err != nil {
		return common.Hash{}, false, fmt.Errorf("invalid hash: %s", input)
	}
	if len(data) != 32 {
		return common.Hash{}, false, fmt.Errorf("invalid hash length: %s", input)
	}
	return common.BytesToHash(data), true, nil
}

// ParseData converts 0x-prefixed calldata. "" and "0x" are empty.
func ParseData(input string) ([]byte, error) {
	input = strings.TrimSpace(input)
	if input == "" || input == "0x" {
		return []byte{}, nil
	}
	data, err := hexutil.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %s", input)
	}
	return data, nil
}
