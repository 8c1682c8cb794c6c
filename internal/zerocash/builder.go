// builder.go - Assembling, proving and signing shielded transactions.

package zerocash

import (
	"errors"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// DefaultExpiryDelta is how many blocks after the build height a
// transaction stays valid.
const DefaultExpiryDelta = 20

var (
	// ErrNotBalanced is returned when spends do not pay exactly for the
	// outputs and the fee.
	ErrNotBalanced = errors.New("transaction value is not balanced")

	// ErrForeignNote is returned when a spend is added for a note the
	// spending key does not own.
	ErrForeignNote = errors.New("note is not owned by the spending key")

	// ErrBadSpendAuth is returned when a spend authorization signature does
	// not verify.
	ErrBadSpendAuth = errors.New("invalid spend authorization signature")
)

// FeeRule decides the fee a transaction must pay.
type FeeRule interface {
	FeeRequired(spends, outputs, transparentOutputs int) uint64
}

// FixedFeeRule charges the same fee for every transaction.
type FixedFeeRule struct {
	Fee uint64
}

// FeeRequired implements FeeRule.
func (r FixedFeeRule) FeeRequired(_, _, _ int) uint64 {
	return r.Fee
}

type spendInfo struct {
	ask    *btcec.PrivateKey
	nk     NullifierKey
	note   *Note
	path   *MerklePath
	anchor Node
}

// Builder collects the spends and outputs of one transaction.
type Builder struct {
	params *NetworkParams
	height uint32

	spends  []*spendInfo
	outputs []*Note
	txOuts  []*wire.TxOut
}

// NewBuilder returns a builder for a transaction mined at or after height.
func NewBuilder(params *NetworkParams, height uint32) *Builder {
	return &Builder{params: params, height: height}
}

// AddSpend spends note, located in the tree by path, with sk.
func (b *Builder) AddSpend(sk SpendingKey, note *Note, path *MerklePath) error {
	fvk := sk.FullViewingKey()
	if !fvk.Owns(note.Recipient) {
		return ErrForeignNote
	}
	b.spends = append(b.spends, &spendInfo{
		ask:    sk.AuthorizingKey(),
		nk:     fvk.NullifierKey(ScopeExternal),
		note:   note,
		path:   path,
		anchor: path.Root(note.Commitment()),
	})
	return nil
}

// AddOutput pays value to a shielded address.
func (b *Builder) AddOutput(to PaymentAddress, value uint64) error {
	note, err := NewNote(value, to)
	if err != nil {
		return err
	}
	b.outputs = append(b.outputs, note)
	return nil
}

// AddTransparentOutput pays value to a transparent address.
func (b *Builder) AddTransparentOutput(to btcutil.Address, value uint64) error {
	if value > math.MaxInt64 {
		return fmt.Errorf("transparent output value %d out of range", value)
	}
	script, err := txscript.PayToAddrScript(to)
	if err != nil {
		return err
	}
	b.txOuts = append(b.txOuts, wire.NewTxOut(int64(value), script))
	return nil
}

// Build proves and signs the transaction.
// Steps:
//  1. Check that spends pay exactly for outputs plus the fee
//  2. Prove every spend
//  3. Encrypt and prove every shielded output
//  4. Sign every spend over the transaction's signature hash
func (b *Builder) Build(prover Prover, rule FeeRule) (*Transaction, error) {
	// Step 1: Value balance
	fee := rule.FeeRequired(len(b.spends), len(b.outputs), len(b.txOuts))
	var spent, shielded, transparent uint64
	for _, s := range b.spends {
		spent += s.note.Value
	}
	for _, n := range b.outputs {
		shielded += n.Value
	}
	for _, out := range b.txOuts {
		transparent += uint64(out.Value)
	}
	if spent != shielded+transparent+fee {
		return nil, fmt.Errorf("%w: spends %d, outputs %d, fee %d",
			ErrNotBalanced, spent, shielded+transparent, fee)
	}

	tx := &Transaction{
		Version:      TxVersion,
		BranchID:     b.params.BranchID,
		ExpiryHeight: b.height + DefaultExpiryDelta,
		TxOut:        b.txOuts,
		ValueBalance: int64(spent) - int64(shielded),
	}

	// Step 2: Spend descriptions
	for i, s := range b.spends {
		var rk [RkSize]byte
		copy(rk[:], schnorr.SerializePubKey(s.ask.PubKey()))
		w := &SpendWitness{
			Note:      s.note,
			Path:      s.path,
			Nk:        s.nk,
			Anchor:    s.anchor,
			Nullifier: s.note.Nullifier(s.nk, s.path.Position),
			Rk:        rk,
		}
		proof, err := prover.ProveSpend(w)
		if err != nil {
			return nil, fmt.Errorf("spend %d: %w", i, err)
		}
		tx.Spends = append(tx.Spends, &SpendDescription{
			Anchor:    w.Anchor,
			Nullifier: w.Nullifier,
			Rk:        rk,
			Proof:     proof,
		})
	}

	// Step 3: Output descriptions
	lead := b.params.NotePlaintextLeadByte(b.height)
	for i, note := range b.outputs {
		epk, ct, err := EncryptNote(note, lead)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		proof, err := prover.ProveOutput(&OutputWitness{Note: note})
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		tx.Outputs = append(tx.Outputs, &OutputDescription{
			Cmu:           note.Commitment(),
			EphemeralKey:  epk,
			EncCiphertext: ct,
			Proof:         proof,
		})
	}

	// Step 4: Spend authorization signatures
	sighash, err := tx.SigHash()
	if err != nil {
		return nil, err
	}
	for i, s := range b.spends {
		sig, err := schnorr.Sign(s.ask, sighash[:])
		if err != nil {
			return nil, fmt.Errorf("sign spend %d: %w", i, err)
		}
		copy(tx.Spends[i].SpendAuthSig[:], sig.Serialize())
	}

	log.Debugf("Built transaction: %d spends, %d outputs, %d transparent outputs, fee %d",
		len(tx.Spends), len(tx.Outputs), len(tx.TxOut), fee)
	return tx, nil
}

// VerifySpendAuth checks the spend authorization signature of every spend.
func VerifySpendAuth(tx *Transaction) error {
	sighash, err := tx.SigHash()
	if err != nil {
		return err
	}
	for i, sd := range tx.Spends {
		pub, err := schnorr.ParsePubKey(sd.Rk[:])
		if err != nil {
			return fmt.Errorf("%w: spend %d: %v", ErrBadSpendAuth, i, err)
		}
		sig, err := schnorr.ParseSignature(sd.SpendAuthSig[:])
		if err != nil {
			return fmt.Errorf("%w: spend %d: %v", ErrBadSpendAuth, i, err)
		}
		if !sig.Verify(sighash[:], pub) {
			return fmt.Errorf("%w: spend %d", ErrBadSpendAuth, i)
		}
	}
	return nil
}
