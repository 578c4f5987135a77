// Package tx defines the transaction model, its signing contract and the
// state transition that applies a transaction to the unspent-output set.
package tx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/noobchain/pkg/crypto"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// GenesisID is the sentinel id of the genesis transaction.
var GenesisID = types.Hash{}

// Signing errors.
var (
	ErrAlreadySigned  = errors.New("transaction already signed")
	ErrSignerMismatch = errors.New("signing key does not belong to sender")
	ErrBadGenesis     = errors.New("malformed genesis transaction")
)

// Transaction is a signed request to move value from sender to recipient.
//
// Outputs are produced by Process: index 0 pays the recipient, index 1
// returns change to the sender.
type Transaction struct {
	ID        types.Hash   `json:"id"`
	Sender    types.PubKey `json:"sender"`
	Recipient types.PubKey `json:"recipient"`
	Value     uint64       `json:"value"`
	Signature []byte       `json:"signature"`
	Inputs    []Input      `json:"inputs"`
	Outputs   []*Output    `json:"outputs"`
	Genesis   bool         `json:"genesis,omitempty"`
}

// New creates an unsigned transaction spending the given output ids.
func New(sender, recipient types.PubKey, value uint64, outputIDs []types.Hash) *Transaction {
	inputs := make([]Input, 0, len(outputIDs))
	for _, id := range outputIDs {
		inputs = append(inputs, NewInput(id))
	}
	return &Transaction{
		Sender:    sender,
		Recipient: recipient,
		Value:     value,
		Inputs:    inputs,
	}
}

// NewGenesis creates the distinguished genesis transaction: issuer grants
// value to recipient out of nothing. Its single output is created up front.
func NewGenesis(issuer, recipient types.PubKey, value uint64) *Transaction {
	t := &Transaction{
		Sender:    issuer,
		Recipient: recipient,
		Value:     value,
	}
	// MarkGenesis cannot fail on a transaction without inputs or outputs.
	_ = t.MarkGenesis()
	return t
}

// MarkGenesis turns t into the genesis transaction: its id is forced to the
// sentinel and, when absent, its sole output (recipient, value) is created.
func (t *Transaction) MarkGenesis() error {
	if len(t.Inputs) != 0 {
		return fmt.Errorf("%w: genesis must not spend inputs", ErrBadGenesis)
	}
	switch len(t.Outputs) {
	case 0:
		t.Outputs = []*Output{NewOutput(t.Recipient, t.Value, GenesisID)}
	case 1:
		if t.Outputs[0] == nil || t.Outputs[0].OriginTxID != GenesisID {
			return fmt.Errorf("%w: output must originate from the genesis id", ErrBadGenesis)
		}
	default:
		return fmt.Errorf("%w: %d outputs, want 1", ErrBadGenesis, len(t.Outputs))
	}
	t.ID = GenesisID
	t.Genesis = true
	return nil
}

// SigningBytes returns the message covered by the signature.
// Format: sender(33) | recipient(33) | value(8)
func (t *Transaction) SigningBytes() []byte {
	buf := make([]byte, 0, 2*types.PubKeySize+8)
	buf = append(buf, t.Sender[:]...)
	buf = append(buf, t.Recipient[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, t.Value)
	return buf
}

// SigningHash is the 32-byte digest that is actually signed.
func (t *Transaction) SigningHash() types.Hash {
	return crypto.Hash(t.SigningBytes())
}

// Sign signs the transaction with the sender's private key.
// A transaction can be signed exactly once.
func (t *Transaction) Sign(key *crypto.PrivateKey) error {
	if t.Signature != nil {
		return ErrAlreadySigned
	}
	if key == nil {
		return crypto.ErrInvalidKey
	}
	hash := t.SigningHash()
	sig, err := key.Sign(hash[:])
	if err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	if key.PublicKey() != t.Sender {
		return ErrSignerMismatch
	}
	t.Signature = sig
	return nil
}

// VerifySignature checks the stored signature against the sender's key.
func (t *Transaction) VerifySignature() bool {
	if len(t.Signature) == 0 {
		return false
	}
	hash := t.SigningHash()
	return crypto.VerifySignature(hash[:], t.Signature, t.Sender)
}

// InputSum returns the sum of the resolved input values.
// Unresolved inputs contribute zero. The sum wraps on overflow; use
// CheckedSums when the values are untrusted.
func (t *Transaction) InputSum() uint64 {
	var total uint64
	for i := range t.Inputs {
		total += t.Inputs[i].Value()
	}
	return total
}

// OutputSum returns the sum of all output values.
func (t *Transaction) OutputSum() uint64 {
	var total uint64
	for _, out := range t.Outputs {
		total += out.Value
	}
	return total
}

// CheckedSums returns the resolved input sum and the output sum, failing
// with ErrInputOverflow or ErrOutputOverflow when either exceeds uint64.
func (t *Transaction) CheckedSums() (in, out uint64, err error) {
	for i := range t.Inputs {
		v := t.Inputs[i].Value()
		if v > math.MaxUint64-in {
			return 0, 0, ErrInputOverflow
		}
		in += v
	}
	for _, o := range t.Outputs {
		if o.Value > math.MaxUint64-out {
			return 0, 0, ErrOutputOverflow
		}
		out += o.Value
	}
	return in, out, nil
}

// Bytes returns the canonical serialization used by block hashing.
// Every field of the transaction is committed to, so any mutation of a
// mined transaction changes the enclosing block's hash.
//
// Format: id(32) | sender(33) | recipient(33) | value(8) | genesis(1) |
// sig_len(4) | sig | input_count(4) | [output_id(32) | resolved(1) | value(8)]... |
// output_count(4) | [id(32) | owner(33) | value(8) | origin(32)]...
func (t *Transaction) Bytes() []byte {
	buf := make([]byte, 0, 128+len(t.Signature)+41*len(t.Inputs)+105*len(t.Outputs))
	buf = append(buf, t.ID[:]...)
	buf = append(buf, t.Sender[:]...)
	buf = append(buf, t.Recipient[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, t.Value)
	if t.Genesis {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Signature)))
	buf = append(buf, t.Signature...)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Inputs)))
	for i := range t.Inputs {
		in := &t.Inputs[i]
		buf = append(buf, in.OutputID[:]...)
		if in.Resolved != nil {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = binary.LittleEndian.AppendUint64(buf, in.Value())
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Outputs)))
	for _, out := range t.Outputs {
		buf = append(buf, out.ID[:]...)
		buf = append(buf, out.Owner[:]...)
		buf = binary.LittleEndian.AppendUint64(buf, out.Value)
		buf = append(buf, out.OriginTxID[:]...)
	}
	return buf
}

// Clone returns a deep copy of t. Outputs are shared since they are
// immutable once created.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.Signature != nil {
		c.Signature = append([]byte(nil), t.Signature...)
	}
	if t.Inputs != nil {
		c.Inputs = append([]Input(nil), t.Inputs...)
	}
	if t.Outputs != nil {
		c.Outputs = append([]*Output(nil), t.Outputs...)
	}
	return &c
}

// Fingerprint identifies a transaction before it has been assigned an id.
func (t *Transaction) Fingerprint() types.Hash {
	return crypto.Hash(t.Bytes())
}
