package tx

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/Klingon-tech/noobchain/pkg/crypto"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key
}

func TestOutput_ComputeID_Deterministic(t *testing.T) {
	owner := mustKey(t).PublicKey()
	a := NewOutput(owner, 40, types.Hash{0x01})
	b := NewOutput(owner, 40, types.Hash{0x01})
	if a.ID != b.ID {
		t.Error("same content should give the same id")
	}
	if a.ID == NewOutput(owner, 41, types.Hash{0x01}).ID {
		t.Error("value should be committed to")
	}
	if a.ID == NewOutput(owner, 40, types.Hash{0x02}).ID {
		t.Error("origin should be committed to")
	}
	if !a.IsOwnedBy(owner) {
		t.Error("IsOwnedBy should match the owner")
	}
}

func TestNewGenesis(t *testing.T) {
	issuer := mustKey(t)
	recipient := mustKey(t).PublicKey()

	g := NewGenesis(issuer.PublicKey(), recipient, 100)
	if !g.Genesis {
		t.Fatal("genesis flag not set")
	}
	if g.ID != GenesisID {
		t.Errorf("id = %s, want sentinel", g.ID)
	}
	if len(g.Outputs) != 1 {
		t.Fatalf("outputs = %d, want 1", len(g.Outputs))
	}
	out := g.Outputs[0]
	if out.Owner != recipient || out.Value != 100 || out.OriginTxID != GenesisID {
		t.Errorf("unexpected genesis output %+v", out)
	}
}

func TestMarkGenesis_Rejects(t *testing.T) {
	a := mustKey(t).PublicKey()
	b := mustKey(t).PublicKey()

	withInputs := New(a, b, 10, []types.Hash{{0x01}})
	if err := withInputs.MarkGenesis(); !errors.Is(err, ErrBadGenesis) {
		t.Errorf("inputs: got %v, want ErrBadGenesis", err)
	}

	twoOutputs := New(a, b, 10, nil)
	twoOutputs.Outputs = []*Output{NewOutput(b, 5, GenesisID), NewOutput(b, 5, GenesisID)}
	if err := twoOutputs.MarkGenesis(); !errors.Is(err, ErrBadGenesis) {
		t.Errorf("two outputs: got %v, want ErrBadGenesis", err)
	}

	wrongOrigin := New(a, b, 10, nil)
	wrongOrigin.Outputs = []*Output{NewOutput(b, 10, types.Hash{0x09})}
	if err := wrongOrigin.MarkGenesis(); !errors.Is(err, ErrBadGenesis) {
		t.Errorf("wrong origin: got %v, want ErrBadGenesis", err)
	}
}

func TestSign_Verify(t *testing.T) {
	sender := mustKey(t)
	recipient := mustKey(t).PublicKey()

	tx := New(sender.PublicKey(), recipient, 40, nil)
	if tx.VerifySignature() {
		t.Error("unsigned transaction should not verify")
	}
	if err := tx.Sign(sender); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !tx.VerifySignature() {
		t.Error("signed transaction should verify")
	}

	tx.Value = 41
	if tx.VerifySignature() {
		t.Error("signature should not cover a different value")
	}
}

func TestSign_Twice(t *testing.T) {
	sender := mustKey(t)
	tx := New(sender.PublicKey(), mustKey(t).PublicKey(), 1, nil)
	if err := tx.Sign(sender); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	first := append([]byte(nil), tx.Signature...)
	if err := tx.Sign(sender); !errors.Is(err, ErrAlreadySigned) {
		t.Fatalf("second Sign: got %v, want ErrAlreadySigned", err)
	}
	if string(first) != string(tx.Signature) {
		t.Error("signature changed after rejected second Sign")
	}
}

func TestSign_WrongKey(t *testing.T) {
	sender := mustKey(t)
	other := mustKey(t)
	tx := New(sender.PublicKey(), other.PublicKey(), 1, nil)
	if err := tx.Sign(other); !errors.Is(err, ErrSignerMismatch) {
		t.Fatalf("got %v, want ErrSignerMismatch", err)
	}
	if tx.Signature != nil {
		t.Error("signature should remain unset")
	}
}

func TestSign_NilKey(t *testing.T) {
	tx := New(mustKey(t).PublicKey(), mustKey(t).PublicKey(), 1, nil)
	if err := tx.Sign(nil); !errors.Is(err, crypto.ErrInvalidKey) {
		t.Fatalf("got %v, want ErrInvalidKey", err)
	}
}

func TestBytes_CoversEveryField(t *testing.T) {
	sender := mustKey(t)
	tx := New(sender.PublicKey(), mustKey(t).PublicKey(), 5, []types.Hash{{0x01}})
	if err := tx.Sign(sender); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	base := string(tx.Bytes())
	if base != string(tx.Bytes()) {
		t.Fatal("Bytes should be deterministic")
	}

	mutations := []struct {
		name string
		fn   func(*Transaction)
	}{
		{"value", func(c *Transaction) { c.Value++ }},
		{"id", func(c *Transaction) { c.ID[0] ^= 1 }},
		{"signature", func(c *Transaction) { c.Signature[0] ^= 1 }},
		{"input", func(c *Transaction) { c.Inputs[0].OutputID[0] ^= 1 }},
		{"resolved", func(c *Transaction) { c.Inputs[0].Resolved = NewOutput(c.Sender, 5, types.Hash{}) }},
		{"outputs", func(c *Transaction) { c.Outputs = append(c.Outputs, NewOutput(c.Sender, 1, c.ID)) }},
		{"genesis", func(c *Transaction) { c.Genesis = true }},
	}
	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			c := *tx
			c.Signature = append([]byte(nil), tx.Signature...)
			c.Inputs = append([]Input(nil), tx.Inputs...)
			m.fn(&c)
			if string(c.Bytes()) == base {
				t.Errorf("mutating %s did not change Bytes", m.name)
			}
		})
	}
}

func TestCheckedSums(t *testing.T) {
	owner := types.PubKey{0x02}
	resolved := func(values ...uint64) []Input {
		ins := make([]Input, len(values))
		for i, v := range values {
			ins[i] = Input{OutputID: types.Hash{byte(i + 1)}, Resolved: NewOutput(owner, v, types.Hash{})}
		}
		return ins
	}
	outputs := func(values ...uint64) []*Output {
		outs := make([]*Output, len(values))
		for i, v := range values {
			outs[i] = NewOutput(owner, v, types.Hash{0x09})
		}
		return outs
	}

	tests := []struct {
		name    string
		inputs  []Input
		outputs []*Output
		wantIn  uint64
		wantOut uint64
		wantErr error
	}{
		{"balanced", resolved(30, 10), outputs(25, 15), 40, 40, nil},
		{"unresolved counts zero", append(resolved(40), NewInput(types.Hash{0xff})), outputs(40), 40, 40, nil},
		{"input overflow", resolved(math.MaxUint64, 1), outputs(1), 0, 0, ErrInputOverflow},
		{"output overflow", resolved(40), outputs(math.MaxUint64, 41), 0, 0, ErrOutputOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &Transaction{Inputs: tt.inputs, Outputs: tt.outputs}
			in, out, err := tr.CheckedSums()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if in != tt.wantIn || out != tt.wantOut {
				t.Errorf("sums = %d/%d, want %d/%d", in, out, tt.wantIn, tt.wantOut)
			}
		})
	}

	// The unchecked sum wraps to the input sum, which is what CheckedSums guards.
	wrap := &Transaction{Inputs: resolved(40), Outputs: outputs(math.MaxUint64, 41)}
	if wrap.InputSum() != wrap.OutputSum() {
		t.Fatal("expected wrapped OutputSum to equal InputSum")
	}
}

func TestTransaction_JSON(t *testing.T) {
	sender := mustKey(t)
	recipient := mustKey(t).PublicKey()
	set := newMemSet()
	genesis := NewGenesis(sender.PublicKey(), sender.PublicKey(), 100)
	if err := genesis.Process(&Env{UTXOs: set}); err != nil {
		t.Fatalf("genesis: %v", err)
	}

	tx := New(sender.PublicKey(), recipient, 40, []types.Hash{genesis.Outputs[0].ID})
	if err := tx.Sign(sender); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := tx.Process(&Env{UTXOs: set, Seq: &Sequence{}}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal raw: %v", err)
	}
	if _, ok := raw["signature"].(string); !ok {
		t.Errorf("signature should encode as a string, got %T", raw["signature"])
	}

	var got Transaction
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(got.Bytes()) != string(tx.Bytes()) {
		t.Error("decoded transaction serializes differently")
	}
	if !got.VerifySignature() {
		t.Error("decoded transaction should still verify")
	}
}

func TestSequence(t *testing.T) {
	var s Sequence
	if s.Current() != 0 {
		t.Fatalf("Current = %d, want 0", s.Current())
	}
	if s.Next() != 1 || s.Next() != 2 {
		t.Fatal("Next should count up from 1")
	}
	if s.Current() != 2 {
		t.Errorf("Current = %d, want 2", s.Current())
	}
}

func TestClone_Independent(t *testing.T) {
	sender := mustKey(t)
	orig := New(sender.PublicKey(), mustKey(t).PublicKey(), 5, []types.Hash{{0x01}})
	if err := orig.Sign(sender); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	c := orig.Clone()
	if c.Fingerprint() != orig.Fingerprint() {
		t.Fatal("clone should serialize identically")
	}

	c.Signature[0] ^= 1
	c.Inputs[0].OutputID[0] ^= 1
	c.Value++
	if !orig.VerifySignature() {
		t.Error("mutating the clone affected the original signature")
	}
	if orig.Inputs[0].OutputID != (types.Hash{0x01}) {
		t.Error("mutating the clone affected the original inputs")
	}
}
