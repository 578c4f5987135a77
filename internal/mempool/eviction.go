package mempool

import (
	"sort"

	"github.com/Klingon-tech/noobchain/internal/log"
	"github.com/Klingon-tech/noobchain/pkg/tx"
)

// sortedLocked returns the entries in admission order.
// Must be called with p.mu held.
func (p *Pool) sortedLocked() []*entry {
	entries := make([]*entry, 0, len(p.txs))
	for _, e := range p.txs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})
	return entries
}

// Prune removes every transaction that spends an output no longer present
// in set, returning how many were dropped. Called after a block commits.
func (p *Pool) Prune(set tx.UTXOSet) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pruned := 0
	for _, e := range p.sortedLocked() {
		for _, in := range e.tx.Inputs {
			ok, err := set.Has(in.OutputID)
			if err != nil {
				return pruned, err
			}
			if !ok {
				p.removeLocked(e.key)
				pruned++
				log.Mempool.Debug().
					Str("fingerprint", e.key.String()).
					Str("input", in.OutputID.String()).
					Msg("Evicted stale transaction")
				break
			}
		}
	}
	return pruned, nil
}
