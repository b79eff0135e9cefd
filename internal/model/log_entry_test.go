package model

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestLogEntryFromLog(t *testing.T) {
	log := types.Log{
		Address:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Topics:      []common.Hash{common.HexToHash("0xaaa"), common.HexToHash("0xbbb")},
		Data:        []byte{0xde, 0xad, 0xbe, 0xef},
		BlockNumber: 36000000,
		TxHash:      common.HexToHash("0xdef456"),
		TxIndex:     7,
		BlockHash:   common.HexToHash("0xabc123"),
		Index:       12,
	}

	entry := LogEntryFromLog(log)
	log.Topics[0] = common.Hash{}
	log.Data[0] = 0

	if entry.Topic0() != common.HexToHash("0xaaa") || entry.Data[0] != 0xde {
		t.Fatalf("entry must not share memory with the source log")
	}
	if entry.TxIndex != 7 || entry.LogIndex != 12 || entry.BlockNumber != 36000000 {
		t.Fatalf("unexpected position %+v", entry)
	}
	if entry.GroupID() != "36000000_7" || entry.PositionID("transfer") != "transfer_36000000_7_12" {
		t.Fatalf("unexpected ids %s %s", entry.GroupID(), entry.PositionID("transfer"))
	}

	b, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded LogEntry
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(entry, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", entry, decoded)
	}
}

func TestLogEntryBefore(t *testing.T) {
	at := func(block, tx, log uint64) LogEntry {
		return LogEntry{BlockNumber: block, TxIndex: tx, LogIndex: log}
	}
	cases := []struct {
		a, b LogEntry
		want bool
	}{
		{at(1, 9, 9), at(2, 0, 0), true},
		{at(2, 0, 0), at(1, 9, 9), false},
		{at(2, 1, 9), at(2, 2, 0), true},
		{at(2, 2, 3), at(2, 2, 4), true},
		{at(2, 2, 4), at(2, 2, 4), false},
	}
	for _, tc := range cases {
		if got := tc.a.Before(tc.b); got != tc.want {
			t.Fatalf("%+v before %+v = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
	if (LogEntry{}).Topic0() != (common.Hash{}) {
		t.Fatalf("anonymous log must have zero topic0")
	}
}
