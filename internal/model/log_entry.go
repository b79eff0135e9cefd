package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogEntry is an immutable copy of one emitted event.
type LogEntry struct {
	BlockNumber uint64         `json:"block_number"`
	BlockHash   common.Hash    `json:"block_hash"`
	TxHash      common.Hash    `json:"tx_hash"`
	TxIndex     uint64         `json:"tx_index"`
	LogIndex    uint64         `json:"log_index"`
	Address     common.Address `json:"address"`
	Topics      []common.Hash  `json:"topics"`
	Data        hexutil.Bytes  `json:"data"`
}

// LogEntryFromLog converts a go-ethereum log into a LogEntry.
func LogEntryFromLog(log types.Log) LogEntry {
	topics := make([]common.Hash, len(log.Topics))
	copy(topics, log.Topics)
	data := make([]byte, len(log.Data))
	copy(data, log.Data)

	return LogEntry{
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Address:     log.Address,
		Topics:      topics,
		Data:        data,
	}
}

// Topic0 returns the event signature topic, or the zero hash for anonymous logs.
func (l LogEntry) Topic0() common.Hash {
	if len(l.Topics) == 0 {
		return common.Hash{}
	}
	return l.Topics[0]
}

// Before reports whether l is strictly older than other by (block, tx index, log index).
func (l LogEntry) Before(other LogEntry) bool {
	if l.BlockNumber != other.BlockNumber {
		return l.BlockNumber < other.BlockNumber
	}
	if l.TxIndex != other.TxIndex {
		return l.TxIndex < other.TxIndex
	}
	return l.LogIndex < other.LogIndex
}

// GroupID identifies the transaction slot the entry was emitted in.
func (l LogEntry) GroupID() string {
	return fmt.Sprintf("%d_%d", l.BlockNumber, l.TxIndex)
}

// PositionID is a stable identifier derived from the ordering key.
func (l LogEntry) PositionID(prefix string) string {
	return fmt.Sprintf("%s_%d_%d_%d", prefix, l.BlockNumber, l.TxIndex, l.LogIndex)
}

// GroupedLogs is a causal cluster of entries around one parent event.
type GroupedLogs struct {
	Parent   LogEntry
	Details  *LogEntry
	Children []LogEntry
}
