package utxo

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/noobchain/internal/storage"
	"github.com/Klingon-tech/noobchain/pkg/tx"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// Key prefixes for the UTXO store.
var (
	prefixUTXO  = []byte("u/") // u/<id> -> output JSON
	prefixOwner = []byte("o/") // o/<owner33><id> -> empty (owner index)
)

// Store implements Set backed by a storage.DB.
type Store struct {
	db storage.DB
}

// NewStore creates a new UTXO store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// utxoKey builds a storage key for an output: "u/" + id(32).
func utxoKey(id types.Hash) []byte {
	key := make([]byte, 0, len(prefixUTXO)+types.HashSize)
	key = append(key, prefixUTXO...)
	return append(key, id[:]...)
}

// ownerPrefix builds the owner index prefix: "o/" + owner(33).
func ownerPrefix(owner types.PubKey) []byte {
	key := make([]byte, 0, len(prefixOwner)+types.PubKeySize+types.HashSize)
	key = append(key, prefixOwner...)
	return append(key, owner[:]...)
}

// ownerKey builds an owner index key: "o/" + owner(33) + id(32).
func ownerKey(owner types.PubKey, id types.Hash) []byte {
	return append(ownerPrefix(owner), id[:]...)
}

// Get retrieves an unspent output by id.
func (s *Store) Get(id types.Hash) (*tx.Output, error) {
	data, err := s.db.Get(utxoKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("utxo get: %w", err)
	}
	var out tx.Output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("utxo unmarshal: %w", err)
	}
	return &out, nil
}

// Has checks if an unspent output exists for the given id.
func (s *Store) Has(id types.Hash) (bool, error) {
	return s.db.Has(utxoKey(id))
}

// Put stores an output and updates the owner index.
func (s *Store) Put(out *tx.Output) error {
	return s.Apply([]*tx.Output{out}, nil)
}

// Delete removes an output and its owner index entry.
func (s *Store) Delete(id types.Hash) error {
	return s.Apply(nil, []types.Hash{id})
}

// Apply inserts puts and removes dels. When the underlying database
// supports batches the whole change is written atomically.
func (s *Store) Apply(puts []*tx.Output, dels []types.Hash) error {
	var w storage.Batch
	if batcher, ok := s.db.(storage.Batcher); ok {
		w = batcher.NewBatch()
	} else {
		w = directWriter{s.db}
	}

	for _, id := range dels {
		// Read first to clean up the owner index.
		out, err := s.Get(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := w.Delete(ownerKey(out.Owner, id)); err != nil {
			return fmt.Errorf("utxo index delete: %w", err)
		}
		if err := w.Delete(utxoKey(id)); err != nil {
			return fmt.Errorf("utxo delete: %w", err)
		}
	}
	for _, out := range puts {
		data, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("utxo marshal: %w", err)
		}
		if err := w.Put(utxoKey(out.ID), data); err != nil {
			return fmt.Errorf("utxo put: %w", err)
		}
		if err := w.Put(ownerKey(out.Owner, out.ID), []byte{}); err != nil {
			return fmt.Errorf("utxo index put: %w", err)
		}
	}
	return w.Commit()
}

// ForEach iterates over all unspent outputs in id order.
func (s *Store) ForEach(fn func(*tx.Output) error) error {
	return s.db.ForEach(prefixUTXO, func(_, value []byte) error {
		var out tx.Output
		if err := json.Unmarshal(value, &out); err != nil {
			return fmt.Errorf("utxo unmarshal: %w", err)
		}
		return fn(&out)
	})
}

// GetByOwner returns all unspent outputs belonging to owner.
// It scans the owner index and loads each referenced output.
func (s *Store) GetByOwner(owner types.PubKey) ([]*tx.Output, error) {
	prefix := ownerPrefix(owner)

	var ids []types.Hash
	err := s.db.ForEach(prefix, func(key, _ []byte) error {
		if len(key) != len(prefix)+types.HashSize {
			return nil // Malformed key, skip.
		}
		var id types.Hash
		copy(id[:], key[len(prefix):])
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan owner index: %w", err)
	}

	outs := make([]*tx.Output, 0, len(ids))
	for _, id := range ids {
		out, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// Balance returns the total unspent value owned by owner.
func (s *Store) Balance(owner types.PubKey) (uint64, error) {
	outs, err := s.GetByOwner(owner)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, out := range outs {
		total += out.Value
	}
	return total, nil
}

// directWriter applies writes immediately for databases without batches.
type directWriter struct {
	db storage.DB
}

func (d directWriter) Put(key, value []byte) error { return d.db.Put(key, value) }
func (d directWriter) Delete(key []byte) error      { return d.db.Delete(key) }
func (d directWriter) Commit() error                { return nil }
