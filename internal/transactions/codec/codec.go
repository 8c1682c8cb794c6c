// Package codec converts commitment trees, witnesses, nullifiers and
// transactions to and from the hex strings that cross the call boundary.
// Every decode error is a transactions.Error with code ErrDecode.
package codec

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"shieldwallet/internal/transactions"
	"shieldwallet/internal/zerocash"
)

func decodeHex(what, s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, transactions.NewError(transactions.ErrDecode,
			fmt.Sprintf("invalid %s hex", what), err)
	}
	return b, nil
}

func checkTrailing(what string, r *bytes.Reader) error {
	if r.Len() != 0 {
		return transactions.NewError(transactions.ErrDecode,
			fmt.Sprintf("malformed %s", what),
			fmt.Errorf("%d trailing bytes", r.Len()))
	}
	return nil
}

// DecodeTree parses a hex encoded commitment tree.
func DecodeTree(s string) (*zerocash.CommitmentTree, error) {
	b, err := decodeHex("tree", s)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(b)
	tree := zerocash.NewCommitmentTree()
	if err := tree.Deserialize(r); err != nil {
		return nil, transactions.NewError(transactions.ErrDecode, "malformed tree", err)
	}
	if err := checkTrailing("tree", r); err != nil {
		return nil, err
	}
	return tree, nil
}

// EncodeTree returns the hex serialization of tree.
func EncodeTree(tree *zerocash.CommitmentTree) (string, error) {
	var buf bytes.Buffer
	if err := tree.Serialize(&buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

// DecodeWitness parses a hex encoded incremental witness.
func DecodeWitness(s string) (*zerocash.IncrementalWitness, error) {
	b, err := decodeHex("witness", s)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(b)
	w := &zerocash.IncrementalWitness{}
	if err := w.Deserialize(r); err != nil {
		return nil, transactions.NewError(transactions.ErrDecode, "malformed witness", err)
	}
	if err := checkTrailing("witness", r); err != nil {
		return nil, err
	}
	return w, nil
}

// EncodeWitness returns the hex serialization of w.
func EncodeWitness(w *zerocash.IncrementalWitness) (string, error) {
	var buf bytes.Buffer
	if err := w.Serialize(&buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

// DecodeNullifier parses a hex encoded nullifier.
func DecodeNullifier(s string) (zerocash.Nullifier, error) {
	b, err := decodeHex("nullifier", s)
	if err != nil {
		return zerocash.Nullifier{}, err
	}
	nf, err := zerocash.NodeFromBytes(b)
	if err != nil {
		return zerocash.Nullifier{}, transactions.NewError(transactions.ErrDecode, "malformed nullifier", err)
	}
	return nf, nil
}

// EncodeNullifier returns the hex encoding of nf.
func EncodeNullifier(nf zerocash.Nullifier) string {
	return hex.EncodeToString(nf[:])
}

// DecodeNode parses a hex encoded commitment.
func DecodeNode(s string) (zerocash.Node, error) {
	b, err := decodeHex("commitment", s)
	if err != nil {
		return zerocash.Node{}, err
	}
	n, err := zerocash.NodeFromBytes(b)
	if err != nil {
		return zerocash.Node{}, transactions.NewError(transactions.ErrDecode, "malformed commitment", err)
	}
	return n, nil
}

// DecodeTransaction parses a hex encoded transaction under the branch id of
// params.
func DecodeTransaction(s string, params *zerocash.NetworkParams) (*zerocash.Transaction, error) {
	b, err := decodeHex("transaction", s)
	if err != nil {
		return nil, err
	}
	tx, err := zerocash.DecodeTransaction(b, params.BranchID)
	if err != nil {
		return nil, transactions.NewError(transactions.ErrDecode, "malformed transaction", err)
	}
	return tx, nil
}

// EncodeTransaction returns the hex serialization of tx.
func EncodeTransaction(tx *zerocash.Transaction) (string, error) {
	b, err := tx.Bytes()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// DecodeSpendingKey parses a bech32 spending key for params.
func DecodeSpendingKey(s string, params *zerocash.NetworkParams) (zerocash.SpendingKey, error) {
	sk, err := zerocash.DecodeSpendingKey(params, s)
	if err != nil {
		return sk, transactions.NewError(transactions.ErrDecode, "malformed spending key", err)
	}
	return sk, nil
}
