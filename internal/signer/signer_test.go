package signer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"safeTasks/internal/safe"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestFromHexAddress(t *testing.T) {
	s, err := FromHex(testKey)
	if err != nil {
		t.Fatalf("from hex: %v", err)
	}
	key, _ := crypto.HexToECDSA(testKey[2:])
	if s.Address() != crypto.PubkeyToAddress(key.PublicKey) {
		t.Fatalf("unexpected address %s", s.Address().Hex())
	}

	if _, err := FromHex(""); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := FromHex("0xzz"); err == nil {
		t.Fatalf("expected error for invalid key")
	}
}

func TestSignHashIsSafeTypedSignature(t *testing.T) {
	s, err := FromHex(testKey)
	if err != nil {
		t.Fatalf("from hex: %v", err)
	}
	hash := common.HexToHash("0x8f1b0c4a5a0e1b5b6d3d2a0e4c1b2a3948576a6b7c8d9e0f1a2b3c4d5e6f7081")

	sig, err := s.SignHash(hash)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if sig[64] != 27 && sig[64] != 28 {
		t.Fatalf("unexpected v %d", sig[64])
	}
	parsed, err := safe.ParseSignature(hash, sig)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Signer != s.Address() {
		t.Fatalf("recovered %s, want %s", parsed.Signer.Hex(), s.Address().Hex())
	}
}

func TestSignMessageIsSafeEthSignSignature(t *testing.T) {
	s, err := FromHex(testKey)
	if err != nil {
		t.Fatalf("from hex: %v", err)
	}
	hash := common.HexToHash("0x01")

	sig, err := s.SignMessage(hash.Bytes())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig[64] += 4
	parsed, err := safe.ParseSignature(hash, sig)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Signer != s.Address() {
		t.Fatalf("recovered %s, want %s", parsed.Signer.Hex(), s.Address().Hex())
	}
}

func TestSignTx(t *testing.T) {
	s, err := FromHex(testKey)
	if err != nil {
		t.Fatalf("from hex: %v", err)
	}
	chainID := big.NewInt(5)
	to := common.HexToAddress("0x3000000000000000000000000000000000000003")
	tx := types.NewTx(&types.DynamicFeeTx{ChainID: chainID, Nonce: 1, To: &to, Gas: 21000, GasFeeCap: big.NewInt(1), GasTipCap: big.NewInt(1)})

	signed, err := s.SignTx(tx, chainID)
	if err != nil {
		t.Fatalf("sign tx: %v", err)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil {
		t.Fatalf("sender: %v", err)
	}
	if sender != s.Address() {
		t.Fatalf("sender %s, want %s", sender.Hex(), s.Address().Hex())
	}
}
