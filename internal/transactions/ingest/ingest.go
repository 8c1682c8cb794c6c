// Package ingest scans transactions for notes owned by a key and keeps the
// commitment tree in step with the chain.
package ingest

import (
	"errors"

	"shieldwallet/internal/transactions"
	"shieldwallet/internal/transactions/codec"
	"shieldwallet/internal/zerocash"
)

// DecryptHeight is the block height trial decryption runs at.
const DecryptHeight = 320

// Result is the outcome of ingesting one transaction.
type Result struct {
	// Tree is the hex encoded tree after every output was appended.
	Tree string `json:"tree"`

	// Notes holds the notes that decrypted under the key, each with the
	// witness captured right after its own commitment was appended.
	Notes []transactions.NoteWitness `json:"notes"`

	// Nullifiers lists the hex nullifiers of every spend, owned or not.
	Nullifiers []string `json:"nullifiers"`

	// Size is the number of commitments in Tree.
	Size uint64 `json:"-"`
}

// Ingest decrypts txHex for the spending key and appends its output
// commitments to the tree.
// Steps:
//  1. Decode the tree, the transaction and the key
//  2. Trial-decrypt every output at DecryptHeight
//  3. Collect the nullifier of every spend
//  4. Append each output commitment, capturing a witness for owned notes
//  5. Encode the tree and the witnesses
//
// A witness reflects the tree as it was right after its note was appended.
// It is not advanced over later outputs of the same transaction; callers
// that need that use AdvanceWitness.
func Ingest(treeHex, txHex, encodedKey string, params *zerocash.NetworkParams) (*Result, error) {
	// Step 1: Decode inputs
	tree, err := codec.DecodeTree(treeHex)
	if err != nil {
		return nil, err
	}
	tx, err := codec.DecodeTransaction(txHex, params)
	if err != nil {
		return nil, err
	}
	sk, err := codec.DecodeSpendingKey(encodedKey, params)
	if err != nil {
		return nil, err
	}

	// Step 2: Trial decryption
	ivk := sk.FullViewingKey().IncomingViewingKey()
	owned := make(map[int]*zerocash.Note)
	for _, d := range zerocash.DecryptTransaction(params, DecryptHeight, tx, ivk) {
		owned[d.Index] = d.Note
	}

	// Step 3: Spend nullifiers
	res := &Result{
		Notes:      make([]transactions.NoteWitness, 0, len(owned)),
		Nullifiers: make([]string, 0, len(tx.Spends)),
	}
	for _, sd := range tx.Spends {
		res.Nullifiers = append(res.Nullifiers, codec.EncodeNullifier(sd.Nullifier))
	}

	// Step 4: Tree update and witness capture
	for i, od := range tx.Outputs {
		if err := tree.Append(od.Cmu); err != nil {
			if errors.Is(err, zerocash.ErrTreeFull) {
				return nil, transactions.NewError(transactions.ErrTreeFull,
					"append output commitment", err)
			}
			return nil, err
		}
		note, ok := owned[i]
		if !ok {
			continue
		}
		w, err := codec.EncodeWitness(zerocash.WitnessFromTree(tree))
		if err != nil {
			return nil, err
		}
		res.Notes = append(res.Notes, transactions.NoteWitness{Note: note, Witness: w})
		log.Debugf("Found note of value %d at position %d", note.Value, tree.Size()-1)
	}

	// Step 5: Encode the tree
	if res.Tree, err = codec.EncodeTree(tree); err != nil {
		return nil, err
	}
	res.Size = tree.Size()
	log.Infof("Ingested transaction: %d outputs, %d owned, %d spends",
		len(tx.Outputs), len(res.Notes), len(res.Nullifiers))
	return res, nil
}

// AdvanceWitness replays commitments appended after a witness was captured
// and returns the updated witness. cmuHexes must be in tree order.
func AdvanceWitness(witnessHex string, cmuHexes []string) (string, error) {
	w, err := codec.DecodeWitness(witnessHex)
	if err != nil {
		return "", err
	}
	for _, s := range cmuHexes {
		cmu, err := codec.DecodeNode(s)
		if err != nil {
			return "", err
		}
		if err := w.Append(cmu); err != nil {
			return "", transactions.NewError(transactions.ErrTreeFull,
				"advance witness", err)
		}
	}
	return codec.EncodeWitness(w)
}

// OutputCommitments returns the hex commitments of every output of txHex in
// order, the input AdvanceWitness replays.
func OutputCommitments(txHex string, params *zerocash.NetworkParams) ([]string, error) {
	tx, err := codec.DecodeTransaction(txHex, params)
	if err != nil {
		return nil, err
	}
	cmus := make([]string, 0, len(tx.Outputs))
	for _, od := range tx.Outputs {
		cmus = append(cmus, od.Cmu.String())
	}
	return cmus, nil
}
