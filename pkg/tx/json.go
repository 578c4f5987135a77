package tx

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// txAlias drops Transaction's methods so the default encoder can be reused.
type txAlias Transaction

// txJSON is the JSON representation of a Transaction with a hex signature.
type txJSON struct {
	*txAlias
	Signature string `json:"signature"`
}

// MarshalJSON encodes the transaction with a hex-encoded signature.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(txJSON{
		txAlias:   (*txAlias)(t),
		Signature: hex.EncodeToString(t.Signature),
	})
}

// UnmarshalJSON decodes a transaction with a hex-encoded signature.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	j := txJSON{txAlias: (*txAlias)(t)}
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	t.Signature = nil
	if j.Signature != "" {
		sig, err := hex.DecodeString(j.Signature)
		if err != nil {
			return fmt.Errorf("decode signature: %w", err)
		}
		t.Signature = sig
	}
	return nil
}
