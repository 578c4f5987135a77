package tx

import (
	"encoding/binary"

	"github.com/Klingon-tech/noobchain/pkg/crypto"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// Output is a quantity of value assigned to one owner.
// Outputs are never mutated after creation.
type Output struct {
	ID         types.Hash   `json:"id"`
	Owner      types.PubKey `json:"owner"`
	Value      uint64       `json:"value"`
	OriginTxID types.Hash   `json:"origin_tx_id"`
}

// NewOutput creates an output and derives its content id.
func NewOutput(owner types.PubKey, value uint64, origin types.Hash) *Output {
	o := &Output{Owner: owner, Value: value, OriginTxID: origin}
	o.ID = o.ComputeID()
	return o
}

// ComputeID returns Hash(owner | value | origin).
func (o *Output) ComputeID() types.Hash {
	buf := make([]byte, 0, types.PubKeySize+8+types.HashSize)
	buf = append(buf, o.Owner[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, o.Value)
	buf = append(buf, o.OriginTxID[:]...)
	return crypto.Hash(buf)
}

// IsOwnedBy reports whether the output belongs to owner.
func (o *Output) IsOwnedBy(owner types.PubKey) bool {
	return o.Owner == owner
}

// Input references a previously produced output by id.
// Resolved is filled in during processing and is nil until then.
type Input struct {
	OutputID types.Hash `json:"output_id"`
	Resolved *Output    `json:"resolved,omitempty"`
}

// NewInput creates an unresolved input for the given output id.
func NewInput(outputID types.Hash) Input {
	return Input{OutputID: outputID}
}

// Value returns the resolved output's value, or zero when unresolved.
func (in *Input) Value() uint64 {
	if in.Resolved == nil {
		return 0
	}
	return in.Resolved.Value
}
