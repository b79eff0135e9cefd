package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer is the signing oracle used by the proposal pipeline.
type Signer interface {
	// SignHash signs a 32 byte digest. The recovery id is returned as 27/28.
	SignHash(hash common.Hash) ([]byte, error)
	// SignMessage signs data with the eth_sign prefix. The recovery id is returned as 27/28.
	SignMessage(data []byte) ([]byte, error)
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	Address() common.Address
}

type keySigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// New creates a signer backed by an in-memory private key.
func New(privateKey *ecdsa.PrivateKey) (Signer, error) {
	pub, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("cannot assign public key to ECDSA")
	}
	return &keySigner{privateKey: privateKey, address: crypto.PubkeyToAddress(*pub)}, nil
}

// FromHex parses a hex private key, with or without 0x prefix.
func FromHex(key string) (Signer, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "0x")
	if key == "" {
		return nil, errors.New("private key is required")
	}
	privateKey, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return New(privateKey)
}

func (s *keySigner) Address() common.Address {
	return s.address
}

func (s *keySigner) SignHash(hash common.Hash) ([]byte, error) {
	signature, err := crypto.Sign(hash.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign hash: %w", err)
	}
	signature[64] += 27
	return signature, nil
}

func (s *keySigner) SignMessage(data []byte) ([]byte, error) {
	signature, err := crypto.Sign(accounts.TextHash(data), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign message: %w", err)
	}
	signature[64] += 27
	return signature, nil
}

func (s *keySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(s.privateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("create keyed transactor: %w", err)
	}
	signed, err := auth.Signer(s.address, tx)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}
