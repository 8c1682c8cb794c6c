// Package unspent decides which known notes have not been spent yet.
package unspent

import (
	"fmt"

	"shieldwallet/internal/transactions"
	"shieldwallet/internal/transactions/codec"
	"shieldwallet/internal/zerocash"
)

// FilterUnspent returns the notes whose nullifier is not among
// nullifierHexes, in input order. Nullifiers are derived with the external
// nullifier key of the spending key at the position recorded in each
// witness. A witness that does not decode or has no authentication path
// fails the whole call.
func FilterUnspent(notes []transactions.NoteWitness, nullifierHexes []string,
	encodedKey string, params *zerocash.NetworkParams) ([]transactions.NoteWitness, error) {

	known, err := NewNullifierSet(nullifierHexes)
	if err != nil {
		return nil, err
	}
	sk, err := codec.DecodeSpendingKey(encodedKey, params)
	if err != nil {
		return nil, err
	}
	nk := sk.FullViewingKey().NullifierKey(zerocash.ScopeExternal)

	unspent := make([]transactions.NoteWitness, 0, len(notes))
	for i, nw := range notes {
		if nw.Note == nil {
			return nil, transactions.NewError(transactions.ErrDecode,
				fmt.Sprintf("note %d missing", i), nil)
		}
		w, err := codec.DecodeWitness(nw.Witness)
		if err != nil {
			return nil, err
		}
		path, err := w.Path()
		if err != nil {
			return nil, transactions.NewError(transactions.ErrMissingPath,
				fmt.Sprintf("note %d", i), err)
		}
		if leaf, err := w.Leaf(); err != nil || leaf != nw.Note.Commitment() {
			return nil, transactions.NewError(transactions.ErrMissingPath,
				fmt.Sprintf("note %d: witness does not cover its commitment", i), err)
		}
		nf := nk.Nullifier(nw.Note, path.Position)
		if known.Has(nf) {
			log.Debugf("Note %d is spent (nullifier %s)", i, nf)
			continue
		}
		unspent = append(unspent, nw)
	}
	log.Infof("%d of %d notes unspent against %d nullifiers",
		len(unspent), len(notes), known.Len())
	return unspent, nil
}
