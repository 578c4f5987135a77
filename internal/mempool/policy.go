package mempool

import (
	"fmt"

	"github.com/Klingon-tech/noobchain/pkg/tx"
)

// Default policy limits.
const (
	DefaultMaxInputs = 256
	DefaultMaxTxSize = 100_000
)

// Policy defines transaction acceptance rules that apply before processing.
type Policy struct {
	MaxInputs int // Maximum referenced outputs per transaction.
	MaxTxSize int // Maximum serialized size in bytes.
}

// DefaultPolicy returns a policy with sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxInputs: DefaultMaxInputs,
		MaxTxSize: DefaultMaxTxSize,
	}
}

// Check validates a transaction against policy rules.
func (p *Policy) Check(t *tx.Transaction) error {
	if p.MaxInputs > 0 && len(t.Inputs) > p.MaxInputs {
		return fmt.Errorf("too many inputs: %d, max %d", len(t.Inputs), p.MaxInputs)
	}
	if size := len(t.Bytes()); p.MaxTxSize > 0 && size > p.MaxTxSize {
		return fmt.Errorf("transaction too large: %d bytes, max %d", size, p.MaxTxSize)
	}
	return nil
}
