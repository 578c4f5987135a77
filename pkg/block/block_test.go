package block

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Klingon-tech/noobchain/pkg/crypto"
	"github.com/Klingon-tech/noobchain/pkg/tx"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

type memSet map[types.Hash]*tx.Output

func (m memSet) Get(id types.Hash) (*tx.Output, error) {
	out, ok := m[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return out, nil
}

func (m memSet) Has(id types.Hash) (bool, error) {
	_, ok := m[id]
	return ok, nil
}

func (m memSet) Put(out *tx.Output) error {
	m[out.ID] = out
	return nil
}

func (m memSet) Delete(id types.Hash) error {
	delete(m, id)
	return nil
}

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key
}

// testChain returns a genesis block paying 100 to alice, an environment
// holding its output, and alice's key.
func testChain(t *testing.T) (*Block, *tx.Env, *crypto.PrivateKey) {
	t.Helper()
	alice := mustKey(t)
	set := memSet{}
	env := &tx.Env{UTXOs: set, Seq: &tx.Sequence{}, MinTransfer: 1}

	g := tx.NewGenesis(alice.PublicKey(), alice.PublicKey(), 100)
	if err := g.Sign(alice); err != nil {
		t.Fatalf("Sign genesis: %v", err)
	}
	if err := g.Process(env); err != nil {
		t.Fatalf("register genesis: %v", err)
	}
	b := NewAt(GenesisPrevHash, 1_700_000_000_000)
	if err := b.AddTransaction(g, env); err != nil {
		t.Fatalf("AddTransaction genesis: %v", err)
	}
	return b, env, alice
}

func TestNewAt_InitialHash(t *testing.T) {
	b := NewAt(types.Hash{0x01}, 42)
	if b.Nonce != 0 {
		t.Errorf("nonce = %d, want 0", b.Nonce)
	}
	if b.Hash != b.RecomputeHash() {
		t.Error("initial hash should match RecomputeHash")
	}
	if b.IsGenesis() {
		t.Error("non-sentinel prev should not be genesis")
	}
	if !NewAt(GenesisPrevHash, 42).IsGenesis() {
		t.Error("sentinel prev should be genesis")
	}
}

func TestRecomputeHash_Deterministic(t *testing.T) {
	b, _, _ := testChain(t)
	h1 := b.RecomputeHash()
	h2 := b.RecomputeHash()
	if h1 != h2 {
		t.Error("RecomputeHash should be deterministic")
	}
	if b.Hash == h1 {
		t.Error("hash should change once a transaction is added")
	}
}

func TestRecomputeHash_CoversFields(t *testing.T) {
	b, _, _ := testChain(t)
	base := b.RecomputeHash()

	checks := []struct {
		name string
		fn   func(*Block)
	}{
		{"prev", func(c *Block) { c.PrevHash = types.Hash{0x01} }},
		{"timestamp", func(c *Block) { c.Timestamp++ }},
		{"nonce", func(c *Block) { c.Nonce++ }},
		{"tx value", func(c *Block) { c.Transactions[0].Value++ }},
	}
	for _, tc := range checks {
		t.Run(tc.name, func(t *testing.T) {
			c := *b
			c.Transactions = []*tx.Transaction{cloneTx(b.Transactions[0])}
			tc.fn(&c)
			if c.RecomputeHash() == base {
				t.Errorf("changing %s did not change the hash", tc.name)
			}
		})
	}
}

func cloneTx(t *tx.Transaction) *tx.Transaction {
	c := *t
	c.Signature = append([]byte(nil), t.Signature...)
	c.Inputs = append([]tx.Input(nil), t.Inputs...)
	c.Outputs = append([]*tx.Output(nil), t.Outputs...)
	return &c
}

func TestAddTransaction(t *testing.T) {
	g, env, alice := testChain(t)
	bob := mustKey(t).PublicKey()

	b := New(g.Hash)
	if b.Timestamp == 0 {
		t.Error("New should stamp the current time")
	}

	if err := b.AddTransaction(nil, env); !errors.Is(err, ErrNilTransaction) {
		t.Fatalf("nil tx: got %v, want ErrNilTransaction", err)
	}

	bad := tx.New(alice.PublicKey(), bob, 1000, []types.Hash{g.Transactions[0].Outputs[0].ID})
	if err := bad.Sign(alice); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := b.AddTransaction(bad, env); !errors.Is(err, tx.ErrInsufficientInputs) {
		t.Fatalf("got %v, want ErrInsufficientInputs", err)
	}
	if len(b.Transactions) != 0 {
		t.Fatal("rejected transaction was appended")
	}

	good := tx.New(alice.PublicKey(), bob, 40, []types.Hash{g.Transactions[0].Outputs[0].ID})
	if err := good.Sign(alice); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := b.AddTransaction(good, env); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if len(b.Transactions) != 1 || good.ID.IsZero() {
		t.Fatal("accepted transaction not appended or not processed")
	}
}

func TestMine(t *testing.T) {
	b, _, _ := testChain(t)
	const d = 2
	if err := b.Mine(context.Background(), d); err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if b.Hash != b.RecomputeHash() {
		t.Error("mined hash does not match contents")
	}
	if b.Hash.String()[:d] != "00" {
		t.Errorf("hash %s does not start with %d zeros", b.Hash, d)
	}
	if !MeetsDifficulty(b.Hash, d) {
		t.Error("MeetsDifficulty should accept the mined hash")
	}

	// No smaller nonce solves the block.
	probe := *b
	for n := uint64(0); n < b.Nonce; n++ {
		probe.Nonce = n
		if MeetsDifficulty(probe.RecomputeHash(), d) {
			t.Fatalf("nonce %d also solves, mined nonce %d is not the smallest", n, b.Nonce)
		}
	}
}

func TestMine_StartsFromCurrentNonce(t *testing.T) {
	b, _, _ := testChain(t)
	b.Nonce = 1000
	if err := b.Mine(context.Background(), 1); err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if b.Nonce < 1000 {
		t.Errorf("nonce %d below start 1000", b.Nonce)
	}
}

func TestMine_Cancelled(t *testing.T) {
	b, _, _ := testChain(t)
	before := *b
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Mine(ctx, MaxDifficulty)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if b.Nonce != before.Nonce || b.Hash != before.Hash {
		t.Error("cancelled mining modified the block")
	}
}

func TestMine_BadDifficulty(t *testing.T) {
	b, _, _ := testChain(t)
	for _, d := range []int{0, -1, MaxDifficulty + 1} {
		if err := b.Mine(context.Background(), d); !errors.Is(err, ErrBadDifficulty) {
			t.Errorf("d=%d: got %v, want ErrBadDifficulty", d, err)
		}
		if MeetsDifficulty(types.Hash{}, d) {
			t.Errorf("MeetsDifficulty should reject d=%d", d)
		}
	}
}

func TestSearchNonces_Range(t *testing.T) {
	b, _, _ := testChain(t)
	buf, off := b.Preimage()
	if off != NonceOffset {
		t.Fatalf("offset = %d, want %d", off, NonceOffset)
	}
	// Difficulty 64 is effectively unreachable in a short range.
	_, found, err := SearchNonces(context.Background(), buf, off, 10, 20, MaxDifficulty)
	if err != nil || found {
		t.Fatalf("found=%v err=%v, want exhausted range", found, err)
	}
}

func TestTxRoot(t *testing.T) {
	b := NewAt(GenesisPrevHash, 1)
	if !b.TxRoot().IsZero() {
		t.Error("empty block should have a zero root")
	}
	g, _, _ := testChain(t)
	want := crypto.Hash(g.Transactions[0].Bytes())
	if g.TxRoot() != want {
		t.Error("single-transaction root should be the transaction hash")
	}
}

func TestBlock_JSON(t *testing.T) {
	b, _, _ := testChain(t)
	if err := b.Mine(context.Background(), 1); err != nil {
		t.Fatalf("Mine: %v", err)
	}
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Block
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Hash != b.Hash || got.RecomputeHash() != b.Hash {
		t.Error("decoded block does not reproduce its hash")
	}
}
