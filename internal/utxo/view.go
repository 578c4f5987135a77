package utxo

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/Klingon-tech/noobchain/pkg/tx"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// Applier is implemented by sets that can take a staged change in one step.
type Applier interface {
	Apply(puts []*tx.Output, dels []types.Hash) error
}

// View stages changes on top of a base Set without touching it.
// Reads see the staged state; Commit writes it through to the base.
// A View is not safe for concurrent use.
type View struct {
	base Set
	puts map[types.Hash]*tx.Output
	dels map[types.Hash]struct{}
}

// NewView creates an empty overlay on base.
func NewView(base Set) *View {
	return &View{
		base: base,
		puts: make(map[types.Hash]*tx.Output),
		dels: make(map[types.Hash]struct{}),
	}
}

// Get returns the output with the given id as seen through the overlay.
func (v *View) Get(id types.Hash) (*tx.Output, error) {
	if out, ok := v.puts[id]; ok {
		return out, nil
	}
	if _, ok := v.dels[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return v.base.Get(id)
}

// Has reports whether id is unspent as seen through the overlay.
func (v *View) Has(id types.Hash) (bool, error) {
	if _, ok := v.puts[id]; ok {
		return true, nil
	}
	if _, ok := v.dels[id]; ok {
		return false, nil
	}
	return v.base.Has(id)
}

// Put stages an insert.
func (v *View) Put(out *tx.Output) error {
	delete(v.dels, out.ID)
	v.puts[out.ID] = out
	return nil
}

// Delete stages a removal.
func (v *View) Delete(id types.Hash) error {
	if _, ok := v.puts[id]; ok {
		delete(v.puts, id)
		inBase, err := v.base.Has(id)
		if err != nil {
			return err
		}
		if !inBase {
			return nil
		}
	}
	v.dels[id] = struct{}{}
	return nil
}

// ForEach visits the merged state in id order.
func (v *View) ForEach(fn func(*tx.Output) error) error {
	var outs []*tx.Output
	err := v.base.ForEach(func(out *tx.Output) error {
		if _, gone := v.dels[out.ID]; gone {
			return nil
		}
		if _, shadowed := v.puts[out.ID]; shadowed {
			return nil
		}
		outs = append(outs, out)
		return nil
	})
	if err != nil {
		return err
	}
	for _, out := range v.puts {
		outs = append(outs, out)
	}
	sort.Slice(outs, func(i, j int) bool {
		return bytes.Compare(outs[i].ID[:], outs[j].ID[:]) < 0
	})
	for _, out := range outs {
		if err := fn(out); err != nil {
			return err
		}
	}
	return nil
}

// Dirty reports whether the view holds uncommitted changes.
func (v *View) Dirty() bool {
	return len(v.puts) > 0 || len(v.dels) > 0
}

// Discard drops every staged change.
func (v *View) Discard() {
	clear(v.puts)
	clear(v.dels)
}

// Commit writes the staged changes to the base set and resets the view.
func (v *View) Commit() error {
	puts := make([]*tx.Output, 0, len(v.puts))
	for _, out := range v.puts {
		puts = append(puts, out)
	}
	dels := make([]types.Hash, 0, len(v.dels))
	for id := range v.dels {
		dels = append(dels, id)
	}

	if a, ok := v.base.(Applier); ok {
		if err := a.Apply(puts, dels); err != nil {
			return fmt.Errorf("commit view: %w", err)
		}
	} else {
		for _, id := range dels {
			if err := v.base.Delete(id); err != nil {
				return fmt.Errorf("commit view: %w", err)
			}
		}
		for _, out := range puts {
			if err := v.base.Put(out); err != nil {
				return fmt.Errorf("commit view: %w", err)
			}
		}
	}
	v.Discard()
	return nil
}
