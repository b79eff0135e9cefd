package model

import (
	"github.com/ethereum/go-ethereum/common"
)

// EventType discriminates EventTx variants.
type EventType string

const (
	EventTypeMultisig        EventType = "Multisig"
	EventTypeMultisigUnknown EventType = "MultisigUnknown"
	EventTypeModule          EventType = "Module"
	EventTypeTransfer        EventType = "Transfer"
)

// Direction of a transfer relative to the queried account.
type Direction string

const (
	DirectionIncoming Direction = "INCOMING"
	DirectionOutgoing Direction = "OUTGOING"
)

// TransferKind identifies the asset moved by a transfer.
type TransferKind string

const (
	TransferEther  TransferKind = "ETHER"
	TransferERC20  TransferKind = "ERC20"
	TransferERC721 TransferKind = "ERC721"
)

// EventTx is one entry of a reconstructed history.
type EventTx interface {
	EventID() string
	EventType() EventType
	EventTimestamp() uint64
	eventTx()
}

// MultisigTx is a Safe transaction executed with owner signatures.
type MultisigTx struct {
	Type       EventType `json:"type"`
	ID         string    `json:"id"`
	Timestamp  uint64    `json:"timestamp"`
	TxHash     string    `json:"tx_hash"`
	SafeTxHash string    `json:"safe_tx_hash"`
	Success    bool      `json:"success"`
	SafeTxBody
	Signatures string `json:"signatures"`
	// Nonce is -1 when it could not be recovered.
	Nonce int64      `json:"nonce"`
	Logs  []LogEntry `json:"logs"`
}

// MultisigUnknownTx is an executed Safe transaction whose parameters could not be decoded.
type MultisigUnknownTx struct {
	Type       EventType  `json:"type"`
	ID         string     `json:"id"`
	Timestamp  uint64     `json:"timestamp"`
	TxHash     string     `json:"tx_hash"`
	SafeTxHash string     `json:"safe_tx_hash"`
	Success    bool       `json:"success"`
	Logs       []LogEntry `json:"logs"`
}

// ModuleTx is a Safe transaction triggered by an enabled module.
type ModuleTx struct {
	Type      EventType      `json:"type"`
	ID        string         `json:"id"`
	Timestamp uint64         `json:"timestamp"`
	TxHash    string         `json:"tx_hash"`
	Module    common.Address `json:"module"`
	Success   bool           `json:"success"`
	Logs      []LogEntry     `json:"logs"`
}

// TransferTx is an asset movement into or out of the account.
type TransferTx struct {
	Type      EventType       `json:"type"`
	ID        string          `json:"id"`
	Timestamp uint64          `json:"timestamp"`
	TxHash    string          `json:"tx_hash"`
	Sender    common.Address  `json:"sender"`
	Recipient common.Address  `json:"recipient"`
	Direction Direction       `json:"direction"`
	Details   TransferDetails `json:"details"`
}

// TransferDetails describes the moved asset. TokenAddress is unset for ETHER,
// TokenID is only set for ERC721.
type TransferDetails struct {
	Type         TransferKind    `json:"type"`
	TokenAddress *common.Address `json:"token_address,omitempty"`
	Value        string          `json:"value,omitempty"`
	TokenID      string          `json:"token_id,omitempty"`
}

func (t *MultisigTx) EventID() string        { return t.ID }
func (t *MultisigTx) EventType() EventType   { return t.Type }
func (t *MultisigTx) EventTimestamp() uint64 { return t.Timestamp }
func (t *MultisigTx) eventTx()               {}

func (t *MultisigUnknownTx) EventID() string        { return t.ID }
func (t *MultisigUnknownTx) EventType() EventType   { return t.Type }
func (t *MultisigUnknownTx) EventTimestamp() uint64 { return t.Timestamp }
func (t *MultisigUnknownTx) eventTx()               {}

func (t *ModuleTx) EventID() string        { return t.ID }
func (t *ModuleTx) EventType() EventType   { return t.Type }
func (t *ModuleTx) EventTimestamp() uint64 { return t.Timestamp }
func (t *ModuleTx) eventTx()               {}

func (t *TransferTx) EventID() string        { return t.ID }
func (t *TransferTx) EventType() EventType   { return t.Type }
func (t *TransferTx) EventTimestamp() uint64 { return t.Timestamp }
func (t *TransferTx) eventTx()               {}
