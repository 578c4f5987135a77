package tx

import "sync/atomic"

// Sequence is the monotonically increasing counter mixed into every
// transaction id. It is owned by the ledger and safe for concurrent use.
type Sequence struct {
	n atomic.Uint64
}

// Next increments the counter and returns the new value.
func (s *Sequence) Next() uint64 {
	return s.n.Add(1)
}

// Current returns the last value handed out by Next.
func (s *Sequence) Current() uint64 {
	return s.n.Load()
}
