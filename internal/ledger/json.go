package ledger

import (
	"encoding/json"

	"github.com/Klingon-tech/noobchain/pkg/block"
	"github.com/Klingon-tech/noobchain/pkg/types"
)

// chainJSON is the presentation form of a ledger.
type chainJSON struct {
	Instance   string         `json:"instance"`
	Difficulty int            `json:"difficulty"`
	Height     int            `json:"height"`
	StateRoot  types.Hash     `json:"state_root"`
	Blocks     []*block.Block `json:"blocks"`
}

// MarshalChain renders the ledger as indented JSON: a short summary
// followed by every block with hashes, keys and signatures in hex.
func MarshalChain(l *Ledger) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	root, err := l.stateRootLocked()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(chainJSON{
		Instance:   l.id,
		Difficulty: l.opts.Difficulty,
		Height:     len(l.blocks) - 1,
		StateRoot:  root,
		Blocks:     l.blocks,
	}, "", "  ")
}

// UnmarshalBlocks decodes the blocks of a document produced by MarshalChain.
func UnmarshalBlocks(data []byte) ([]*block.Block, error) {
	var doc chainJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Blocks, nil
}
