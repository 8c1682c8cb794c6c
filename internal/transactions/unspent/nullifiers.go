package unspent

import (
	"shieldwallet/internal/transactions/codec"
	"shieldwallet/internal/zerocash"
)

// NullifierSet is the set of nullifiers revealed on chain so far.
type NullifierSet struct {
	set map[zerocash.Nullifier]struct{}
}

// NewNullifierSet decodes hex nullifiers into a set. Duplicates are
// ignored.
func NewNullifierSet(hexes []string) (*NullifierSet, error) {
	s := &NullifierSet{set: make(map[zerocash.Nullifier]struct{}, len(hexes))}
	for _, h := range hexes {
		nf, err := codec.DecodeNullifier(h)
		if err != nil {
			return nil, err
		}
		s.Add(nf)
	}
	return s, nil
}

// Add inserts nf. It returns false if nf was already present, which for a
// chain means a double spend.
func (s *NullifierSet) Add(nf zerocash.Nullifier) bool {
	if s.Has(nf) {
		return false
	}
	s.set[nf] = struct{}{}
	return true
}

// Has returns true if nf is in the set.
func (s *NullifierSet) Has(nf zerocash.Nullifier) bool {
	_, ok := s.set[nf]
	return ok
}

// Len returns the number of distinct nullifiers.
func (s *NullifierSet) Len() int {
	return len(s.set)
}
