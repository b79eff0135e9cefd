package safe

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"safeTasks/internal/model"
)

// ErrUndecodable marks data that does not match the expected ABI layout.
var ErrUndecodable = errors.New("undecodable")

// MultisigCall is a decoded Safe transaction, with the nonce when the source carried one.
type MultisigCall struct {
	Body       model.SafeTxBody
	Signatures []byte
	Nonce      uint64
	HasNonce   bool
}

// ModuleCall is the payload of a SafeModuleTransaction event.
type ModuleCall struct {
	Module    common.Address
	To        common.Address
	Value     string
	Data      []byte
	Operation uint8
}

// Transfer is a decoded token or ether transfer.
type Transfer struct {
	Kind    model.TransferKind
	Token   common.Address
	From    common.Address
	To      common.Address
	Value   *big.Int
	TokenID *big.Int
}

// DecodeExecutionOutcome returns the safeTxHash of an ExecutionSuccess or ExecutionFailure log.
func DecodeExecutionOutcome(log model.LogEntry) (common.Hash, error) {
	parsed, err := ABI()
	if err != nil {
		return common.Hash{}, err
	}
	name := "ExecutionSuccess"
	if log.Topic0() == ExecutionFailureTopic {
		name = "ExecutionFailure"
	}
	values, err := parsed.Events[name].Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: unpack %s: %v", ErrUndecodable, name, err)
	}
	if len(values) != 2 {
		return common.Hash{}, fmt.Errorf("%w: unexpected %s values: %d", ErrUndecodable, name, len(values))
	}
	hash, ok := values[0].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: unsupported tx hash type %T", ErrUndecodable, values[0])
	}
	return common.Hash(hash), nil
}

// DecodeModuleOutcome returns the module address of an ExecutionFromModule* log.
func DecodeModuleOutcome(log model.LogEntry) (common.Address, error) {
	if len(log.Topics) != 2 {
		return common.Address{}, fmt.Errorf("%w: expected 2 topics, got %d", ErrUndecodable, len(log.Topics))
	}
	return common.BytesToAddress(log.Topics[1].Bytes()), nil
}

// DecodeMultisigDetails decodes a SafeMultiSigTransaction log. The nonce is the
// first word of additionalInfo.
func DecodeMultisigDetails(log model.LogEntry) (MultisigCall, error) {
	parsed, err := ABI()
	if err != nil {
		return MultisigCall{}, err
	}
	values, err := parsed.Events["SafeMultiSigTransaction"].Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return MultisigCall{}, fmt.Errorf("%w: unpack SafeMultiSigTransaction: %v", ErrUndecodable, err)
	}
	if len(values) != 11 {
		return MultisigCall{}, fmt.Errorf("%w: unexpected details values: %d", ErrUndecodable, len(values))
	}

	call, err := multisigCallFromValues(values[:10])
	if err != nil {
		return MultisigCall{}, err
	}

	additionalInfo, err := asBytes(values[10])
	if err != nil {
		return MultisigCall{}, fmt.Errorf("%w: additional info: %v", ErrUndecodable, err)
	}
	if len(additionalInfo) >= 32 {
		nonce := new(big.Int).SetBytes(additionalInfo[:32])
		if nonce.IsUint64() {
			call.Nonce = nonce.Uint64()
			call.HasNonce = true
		}
	}
	return call, nil
}

// DecodeExecTransaction decodes execTransaction calldata.
func DecodeExecTransaction(data []byte) (MultisigCall, error) {
	parsed, err := ABI()
	if err != nil {
		return MultisigCall{}, err
	}
	method := parsed.Methods["execTransaction"]
	if len(data) < 4 || !bytes.Equal(data[:4], method.ID) {
		return MultisigCall{}, fmt.Errorf("%w: unknown function selector", ErrUndecodable)
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return MultisigCall{}, fmt.Errorf("%w: unpack execTransaction: %v", ErrUndecodable, err)
	}
	if len(values) != 10 {
		return MultisigCall{}, fmt.Errorf("%w: unexpected execTransaction values: %d", ErrUndecodable, len(values))
	}
	return multisigCallFromValues(values)
}

// EncodeExecTransaction packs execTransaction calldata for tx with the given signatures.
func EncodeExecTransaction(tx model.SafeTx, signatures []byte) ([]byte, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, err
	}
	value, err := parseUint256(tx.Value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	safeTxGas, err := parseUint256(tx.SafeTxGas)
	if err != nil {
		return nil, fmt.Errorf("safe tx gas: %w", err)
	}
	baseGas, err := parseUint256(tx.BaseGas)
	if err != nil {
		return nil, fmt.Errorf("base gas: %w", err)
	}
	gasPrice, err := parseUint256(tx.GasPrice)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	data := []byte(tx.Data)
	if data == nil {
		data = []byte{}
	}
	return parsed.Pack("execTransaction",
		tx.To, value, data, tx.Operation, safeTxGas, baseGas, gasPrice, tx.GasToken, tx.RefundReceiver, signatures)
}

// DecodeModuleDetails decodes a SafeModuleTransaction log.
func DecodeModuleDetails(log model.LogEntry) (ModuleCall, error) {
	parsed, err := ABI()
	if err != nil {
		return ModuleCall{}, err
	}
	values, err := parsed.Events["SafeModuleTransaction"].Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return ModuleCall{}, fmt.Errorf("%w: unpack SafeModuleTransaction: %v", ErrUndecodable, err)
	}
	if len(values) != 5 {
		return ModuleCall{}, fmt.Errorf("%w: unexpected module details values: %d", ErrUndecodable, len(values))
	}
	module, err := asAddress(values[0])
	if err != nil {
		return ModuleCall{}, fmt.Errorf("%w: module: %v", ErrUndecodable, err)
	}
	to, err := asAddress(values[1])
	if err != nil {
		return ModuleCall{}, fmt.Errorf("%w: to: %v", ErrUndecodable, err)
	}
	value, err := asBigInt(values[2])
	if err != nil {
		return ModuleCall{}, fmt.Errorf("%w: value: %v", ErrUndecodable, err)
	}
	data, err := asBytes(values[3])
	if err != nil {
		return ModuleCall{}, fmt.Errorf("%w: data: %v", ErrUndecodable, err)
	}
	operation, err := asUint8(values[4])
	if err != nil {
		return ModuleCall{}, fmt.Errorf("%w: operation: %v", ErrUndecodable, err)
	}
	return ModuleCall{Module: module, To: to, Value: value.String(), Data: data, Operation: operation}, nil
}

// DecodeSafeReceived returns sender and value of a SafeReceived log.
func DecodeSafeReceived(log model.LogEntry) (common.Address, *big.Int, error) {
	parsed, err := ABI()
	if err != nil {
		return common.Address{}, nil, err
	}
	if len(log.Topics) != 2 {
		return common.Address{}, nil, fmt.Errorf("%w: expected 2 topics, got %d", ErrUndecodable, len(log.Topics))
	}
	values, err := parsed.Events["SafeReceived"].Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: unpack SafeReceived: %v", ErrUndecodable, err)
	}
	if len(values) != 1 {
		return common.Address{}, nil, fmt.Errorf("%w: unexpected SafeReceived values: %d", ErrUndecodable, len(values))
	}
	value, err := asBigInt(values[0])
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: value: %v", ErrUndecodable, err)
	}
	return common.BytesToAddress(log.Topics[1].Bytes()), value, nil
}

// DecodeTransfer decodes a Transfer log. The topic count selects the layout:
// 4 is ERC721, 3 is ERC20 and 2 is the legacy ERC20 event with a non-indexed recipient.
func DecodeTransfer(log model.LogEntry) (Transfer, error) {
	events, err := transferEventABIs()
	if err != nil {
		return Transfer{}, err
	}

	out := Transfer{Token: log.Address}
	switch len(log.Topics) {
	case 4:
		var indexed struct {
			From    common.Address
			To      common.Address
			TokenId *big.Int
		}
		if err := abi.ParseTopics(&indexed, indexedArguments(events.erc721.Inputs), log.Topics[1:]); err != nil {
			return Transfer{}, fmt.Errorf("%w: parse topics: %v", ErrUndecodable, err)
		}
		out.Kind = model.TransferERC721
		out.From, out.To, out.TokenID = indexed.From, indexed.To, indexed.TokenId
	case 3:
		var indexed struct {
			From common.Address
			To   common.Address
		}
		if err := abi.ParseTopics(&indexed, indexedArguments(events.erc20.Inputs), log.Topics[1:]); err != nil {
			return Transfer{}, fmt.Errorf("%w: parse topics: %v", ErrUndecodable, err)
		}
		values, err := events.erc20.Inputs.NonIndexed().Unpack(log.Data)
		if err != nil || len(values) != 1 {
			return Transfer{}, fmt.Errorf("%w: unpack erc20 transfer: %v", ErrUndecodable, err)
		}
		amount, err := asBigInt(values[0])
		if err != nil {
			return Transfer{}, fmt.Errorf("%w: amount: %v", ErrUndecodable, err)
		}
		out.Kind = model.TransferERC20
		out.From, out.To, out.Value = indexed.From, indexed.To, amount
	case 2:
		values, err := events.erc20Legacy.Inputs.NonIndexed().Unpack(log.Data)
		if err != nil || len(values) != 2 {
			return Transfer{}, fmt.Errorf("%w: unpack legacy erc20 transfer: %v", ErrUndecodable, err)
		}
		to, err := asAddress(values[0])
		if err != nil {
			return Transfer{}, fmt.Errorf("%w: to: %v", ErrUndecodable, err)
		}
		amount, err := asBigInt(values[1])
		if err != nil {
			return Transfer{}, fmt.Errorf("%w: amount: %v", ErrUndecodable, err)
		}
		out.Kind = model.TransferERC20
		out.From, out.To, out.Value = common.BytesToAddress(log.Topics[1].Bytes()), to, amount
	default:
		return Transfer{}, fmt.Errorf("%w: unsupported transfer topic count %d", ErrUndecodable, len(log.Topics))
	}
	return out, nil
}

func multisigCallFromValues(values []interface{}) (MultisigCall, error) {
	to, err := asAddress(values[0])
	if err != nil {
		return MultisigCall{}, fmt.Errorf("%w: to: %v", ErrUndecodable, err)
	}
	value, err := asBigInt(values[1])
	if err != nil {
		return MultisigCall{}, fmt.Errorf("%w: value: %v", ErrUndecodable, err)
	}
	data, err := asBytes(values[2])
	if err != nil {
		return MultisigCall{}, fmt.Errorf("%w: data: %v", ErrUndecodable, err)
	}
	operation, err := asUint8(values[3])
	if err != nil {
		return MultisigCall{}, fmt.Errorf("%w: operation: %v", ErrUndecodable, err)
	}
	var gas [3]*big.Int
	for i := range gas {
		gas[i], err = asBigInt(values[4+i])
		if err != nil {
			return MultisigCall{}, fmt.Errorf("%w: gas parameter %d: %v", ErrUndecodable, i, err)
		}
	}
	gasToken, err := asAddress(values[7])
	if err != nil {
		return MultisigCall{}, fmt.Errorf("%w: gas token: %v", ErrUndecodable, err)
	}
	refundReceiver, err := asAddress(values[8])
	if err != nil {
		return MultisigCall{}, fmt.Errorf("%w: refund receiver: %v", ErrUndecodable, err)
	}
	signatures, err := asBytes(values[9])
	if err != nil {
		return MultisigCall{}, fmt.Errorf("%w: signatures: %v", ErrUndecodable, err)
	}

	return MultisigCall{
		Body: model.SafeTxBody{
			To:             to,
			Value:          value.String(),
			Data:           data,
			Operation:      operation,
			SafeTxGas:      gas[0].String(),
			BaseGas:        gas[1].String(),
			GasPrice:       gas[2].String(),
			GasToken:       gasToken,
			RefundReceiver: refundReceiver,
		},
		Signatures: signatures,
	}, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func parseUint256(value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	out, ok := new(big.Int).SetString(value, 10)
	if !ok || out.Sign() < 0 {
		return nil, fmt.Errorf("invalid uint256: %q", value)
	}
	return out, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("uint8 overflow: %s", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func asBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported bytes type %T", value)
	}
}
