package utxo

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/noobchain/internal/storage"
	"github.com/Klingon-tech/noobchain/pkg/tx"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(storage.NewMemory())
}

func owner(b byte) types.PubKey {
	var pk types.PubKey
	pk[0] = 0x02
	pk[1] = b
	return pk
}

func makeOutput(o types.PubKey, value uint64, origin byte) *tx.Output {
	return tx.NewOutput(o, value, types.Hash{origin})
}

func TestStore_PutAndGet(t *testing.T) {
	s := testStore(t)
	out := makeOutput(owner(1), 5000, 1)

	if err := s.Put(out); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	got, err := s.Get(out.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if *got != *out {
		t.Errorf("Get() = %+v, want %+v", got, out)
	}
}

func TestStore_GetNonexistent(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(types.Hash{0xaa})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() = %v, want ErrNotFound", err)
	}
}

func TestStore_HasAndDelete(t *testing.T) {
	s := testStore(t)
	out := makeOutput(owner(1), 10, 1)

	if ok, _ := s.Has(out.ID); ok {
		t.Fatal("Has() should be false before Put()")
	}
	s.Put(out)
	if ok, _ := s.Has(out.ID); !ok {
		t.Fatal("Has() should be true after Put()")
	}
	if err := s.Delete(out.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if ok, _ := s.Has(out.ID); ok {
		t.Error("Has() should be false after Delete()")
	}
	outs, _ := s.GetByOwner(owner(1))
	if len(outs) != 0 {
		t.Error("owner index entry should be removed with the output")
	}
	if err := s.Delete(out.ID); err != nil {
		t.Errorf("deleting a missing output should not error: %v", err)
	}
}

func TestStore_OwnerIndex(t *testing.T) {
	s := testStore(t)
	alice, bob := owner(1), owner(2)
	s.Put(makeOutput(alice, 10, 1))
	s.Put(makeOutput(alice, 20, 2))
	s.Put(makeOutput(bob, 5, 3))

	outs, err := s.GetByOwner(alice)
	if err != nil {
		t.Fatalf("GetByOwner() error: %v", err)
	}
	if len(outs) != 2 {
		t.Fatalf("GetByOwner(alice) = %d outputs, want 2", len(outs))
	}
	for _, o := range outs {
		if o.Owner != alice {
			t.Errorf("foreign output %+v in alice's index", o)
		}
	}

	if bal, _ := s.Balance(alice); bal != 30 {
		t.Errorf("Balance(alice) = %d, want 30", bal)
	}
	if bal, _ := s.Balance(bob); bal != 5 {
		t.Errorf("Balance(bob) = %d, want 5", bal)
	}
	if bal, _ := s.Balance(owner(3)); bal != 0 {
		t.Errorf("Balance(unknown) = %d, want 0", bal)
	}
}

func TestStore_ForEachAndTotal(t *testing.T) {
	s := testStore(t)
	s.Put(makeOutput(owner(1), 10, 1))
	s.Put(makeOutput(owner(2), 20, 2))
	s.Put(makeOutput(owner(1), 30, 3))

	var prev types.Hash
	count := 0
	err := s.ForEach(func(out *tx.Output) error {
		if count > 0 && string(out.ID[:]) <= string(prev[:]) {
			t.Error("ForEach should visit outputs in id order")
		}
		prev = out.ID
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach() error: %v", err)
	}
	if count != 3 {
		t.Errorf("ForEach visited %d outputs, want 3", count)
	}
	if total, _ := Total(s); total != 60 {
		t.Errorf("Total() = %d, want 60", total)
	}
	if owned, _ := Owned(s, owner(1)); len(owned) != 2 {
		t.Errorf("Owned() = %d outputs, want 2", len(owned))
	}
}

func TestStore_ApplyAtomicOverBadger(t *testing.T) {
	db, err := storage.NewBadgerInMemory()
	if err != nil {
		t.Fatalf("NewBadgerInMemory() error: %v", err)
	}
	defer db.Close()
	s := NewStore(storage.NewPrefixDB(db, []byte("utxo/")))

	spent := makeOutput(owner(1), 100, 1)
	if err := s.Put(spent); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	pay, change := makeOutput(owner(2), 40, 2), makeOutput(owner(1), 60, 2)
	if err := s.Apply([]*tx.Output{pay, change}, []types.Hash{spent.ID}); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if ok, _ := s.Has(spent.ID); ok {
		t.Error("spent output still present")
	}
	if bal, _ := s.Balance(owner(1)); bal != 60 {
		t.Errorf("Balance(owner1) = %d, want 60", bal)
	}
	if bal, _ := s.Balance(owner(2)); bal != 40 {
		t.Errorf("Balance(owner2) = %d, want 40", bal)
	}
}

func TestCommitment(t *testing.T) {
	a, b := testStore(t), testStore(t)
	if c, _ := Commitment(a); !c.IsZero() {
		t.Error("empty set should commit to the zero hash")
	}

	o1, o2, o3 := makeOutput(owner(1), 1, 1), makeOutput(owner(2), 2, 2), makeOutput(owner(3), 3, 3)
	a.Put(o1)
	a.Put(o2)
	a.Put(o3)
	b.Put(o3)
	b.Put(o1)
	b.Put(o2)

	ca, _ := Commitment(a)
	cb, _ := Commitment(b)
	if ca != cb {
		t.Error("commitment should not depend on insertion order")
	}

	b.Delete(o3.ID)
	cb, _ = Commitment(b)
	if ca == cb {
		t.Error("commitment should change when an output is removed")
	}
}
