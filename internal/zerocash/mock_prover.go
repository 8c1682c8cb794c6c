package zerocash

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MockProver checks witnesses the way the circuits would and returns a
// digest of the public inputs in place of a proof. It needs no parameter
// setup and is meant for tests and dry runs.
type MockProver struct{}

var _ Prover = MockProver{}

// ProveSpend implements Prover.
func (MockProver) ProveSpend(w *SpendWitness) ([]byte, error) {
	if w.Path.Root(w.Note.Commitment()) != w.Anchor {
		return nil, errors.New("spend witness does not open the anchor")
	}
	if w.Note.Nullifier(w.Nk, w.Path.Position) != w.Nullifier {
		return nil, errors.New("spend witness has a wrong nullifier")
	}
	return mockSpendProof(w.Anchor, w.Nullifier, w.Rk), nil
}

// ProveOutput implements Prover.
func (MockProver) ProveOutput(w *OutputWitness) ([]byte, error) {
	return mockOutputProof(w.Note.Commitment()), nil
}

// VerifySpend checks a proof produced by ProveSpend.
func (MockProver) VerifySpend(sd *SpendDescription) error {
	if !bytes.Equal(sd.Proof, mockSpendProof(sd.Anchor, sd.Nullifier, sd.Rk)) {
		return fmt.Errorf("%w: spend %s", ErrProofInvalid, sd.Nullifier)
	}
	return nil
}

// VerifyOutput checks a proof produced by ProveOutput.
func (MockProver) VerifyOutput(od *OutputDescription) error {
	if !bytes.Equal(od.Proof, mockOutputProof(od.Cmu)) {
		return fmt.Errorf("%w: output %s", ErrProofInvalid, od.Cmu)
	}
	return nil
}

func mockSpendProof(anchor Node, nf Nullifier, rk [RkSize]byte) []byte {
	buf := make([]byte, 0, 1+2*NodeSize+RkSize)
	buf = append(buf, 's')
	buf = append(buf, anchor[:]...)
	buf = append(buf, nf[:]...)
	buf = append(buf, rk[:]...)
	return chainhash.DoubleHashB(buf)
}

func mockOutputProof(cmu Node) []byte {
	buf := append([]byte{'o'}, cmu[:]...)
	return chainhash.DoubleHashB(buf)
}
