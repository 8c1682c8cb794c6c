// tx.go - Shielded transaction format and binary codec.
//
// Layout (integers little-endian, counts and byte strings CompactSize
// prefixed as in the bitcoin wire format):
//
//	version u32 | branch id u32 | lock time u32 | expiry height u32
//	transparent outputs: count, {value i64, pkScript var-bytes}
//	value balance i64
//	spends:  count, {anchor[32], nullifier[32], rk[32], proof var-bytes, sig[64]}
//	outputs: count, {cmu[32], epk[48], ciphertext var-bytes, proof var-bytes}

package zerocash

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
)

const (
	// TxVersion is the only transaction version this package reads and
	// writes.
	TxVersion uint32 = 3

	// EphemeralKeySize is the size of a compressed ephemeral public key.
	EphemeralKeySize = bls12377.SizeOfG1AffineCompressed

	// SpendAuthSigSize is the size of a schnorr spend authorization
	// signature.
	SpendAuthSigSize = 64

	// RkSize is the size of an x-only spend validating key.
	RkSize = 32

	maxTxComponents = 5000
	maxProofSize    = 4096
	maxScriptSize   = 10000
	maxCiphertext   = 1024
)

// ErrBadTransaction is returned for byte strings that do not decode to a
// transaction.
var ErrBadTransaction = errors.New("malformed transaction")

// SpendDescription reveals the nullifier of a spent note and proves that
// the note exists under Anchor.
type SpendDescription struct {
	Anchor       Node
	Nullifier    Nullifier
	Rk           [RkSize]byte
	Proof        []byte
	SpendAuthSig [SpendAuthSigSize]byte
}

// OutputDescription carries a new note commitment and its encryption.
type OutputDescription struct {
	Cmu           Node
	EphemeralKey  bls12377.G1Affine
	EncCiphertext []byte
	Proof         []byte
}

// Transaction is a parsed shielded transaction.
type Transaction struct {
	Version      uint32
	BranchID     uint32
	LockTime     uint32
	ExpiryHeight uint32
	TxOut        []*wire.TxOut
	ValueBalance int64
	Spends       []*SpendDescription
	Outputs      []*OutputDescription
}

// DecodeTransaction parses b as a transaction under branchID. Trailing
// bytes are rejected.
func DecodeTransaction(b []byte, branchID uint32) (*Transaction, error) {
	r := bytes.NewReader(b)
	tx, err := ReadTransaction(r, branchID)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadTransaction, r.Len())
	}
	return tx, nil
}

// ReadTransaction reads one transaction from r and checks that it was
// encoded under branchID.
func ReadTransaction(r io.Reader, branchID uint32) (*Transaction, error) {
	tx, err := readTransaction(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTransaction, err)
	}
	if tx.Version != TxVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadTransaction, tx.Version)
	}
	if tx.BranchID != branchID {
		return nil, fmt.Errorf("%w: branch id %#08x, expected %#08x", ErrBadTransaction, tx.BranchID, branchID)
	}
	return tx, nil
}

func readTransaction(r io.Reader) (*Transaction, error) {
	tx := &Transaction{}
	var hdr [16]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	tx.Version = binary.LittleEndian.Uint32(hdr[0:4])
	tx.BranchID = binary.LittleEndian.Uint32(hdr[4:8])
	tx.LockTime = binary.LittleEndian.Uint32(hdr[8:12])
	tx.ExpiryHeight = binary.LittleEndian.Uint32(hdr[12:16])

	count, err := readCount(r, "transparent outputs")
	if err != nil {
		return nil, err
	}
	tx.TxOut = make([]*wire.TxOut, count)
	for i := range tx.TxOut {
		value, err := readInt64(r)
		if err != nil {
			return nil, fmt.Errorf("read output %d value: %w", i, err)
		}
		script, err := wire.ReadVarBytes(r, 0, maxScriptSize, "pkScript")
		if err != nil {
			return nil, err
		}
		tx.TxOut[i] = wire.NewTxOut(value, script)
	}

	if tx.ValueBalance, err = readInt64(r); err != nil {
		return nil, fmt.Errorf("read value balance: %w", err)
	}

	if count, err = readCount(r, "spends"); err != nil {
		return nil, err
	}
	tx.Spends = make([]*SpendDescription, count)
	for i := range tx.Spends {
		if tx.Spends[i], err = readSpend(r); err != nil {
			return nil, fmt.Errorf("read spend %d: %w", i, err)
		}
	}

	if count, err = readCount(r, "outputs"); err != nil {
		return nil, err
	}
	tx.Outputs = make([]*OutputDescription, count)
	for i := range tx.Outputs {
		if tx.Outputs[i], err = readOutput(r); err != nil {
			return nil, fmt.Errorf("read output description %d: %w", i, err)
		}
	}
	return tx, nil
}

func readSpend(r io.Reader) (*SpendDescription, error) {
	sd := &SpendDescription{}
	var err error
	if sd.Anchor, err = readNode(r); err != nil {
		return nil, fmt.Errorf("anchor: %w", err)
	}
	if sd.Nullifier, err = readNode(r); err != nil {
		return nil, fmt.Errorf("nullifier: %w", err)
	}
	if _, err := io.ReadFull(r, sd.Rk[:]); err != nil {
		return nil, err
	}
	if sd.Proof, err = wire.ReadVarBytes(r, 0, maxProofSize, "spend proof"); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, sd.SpendAuthSig[:]); err != nil {
		return nil, err
	}
	return sd, nil
}

func readOutput(r io.Reader) (*OutputDescription, error) {
	od := &OutputDescription{}
	var err error
	if od.Cmu, err = readNode(r); err != nil {
		return nil, fmt.Errorf("cmu: %w", err)
	}
	var epk [EphemeralKeySize]byte
	if _, err := io.ReadFull(r, epk[:]); err != nil {
		return nil, err
	}
	if _, err := od.EphemeralKey.SetBytes(epk[:]); err != nil {
		return nil, fmt.Errorf("ephemeral key: %w", err)
	}
	if od.EncCiphertext, err = wire.ReadVarBytes(r, 0, maxCiphertext, "ciphertext"); err != nil {
		return nil, err
	}
	if od.Proof, err = wire.ReadVarBytes(r, 0, maxProofSize, "output proof"); err != nil {
		return nil, err
	}
	return od, nil
}

// Serialize writes the transaction to w.
func (tx *Transaction) Serialize(w io.Writer) error {
	return tx.serialize(w, true)
}

// Bytes returns the serialized transaction.
func (tx *Transaction) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TxID returns the double SHA-256 of the serialized transaction.
func (tx *Transaction) TxID() (chainhash.Hash, error) {
	b, err := tx.Bytes()
	if err != nil {
		return chainhash.Hash{}, err
	}
	return chainhash.DoubleHashH(b), nil
}

// SigHash returns the digest spend authorization signatures commit to: the
// transaction serialized with every signature zeroed.
func (tx *Transaction) SigHash() (chainhash.Hash, error) {
	var buf bytes.Buffer
	if err := tx.serialize(&buf, false); err != nil {
		return chainhash.Hash{}, err
	}
	return chainhash.DoubleHashH(buf.Bytes()), nil
}

func (tx *Transaction) serialize(w io.Writer, withSigs bool) error {
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:4], tx.Version)
	binary.LittleEndian.PutUint32(hdr[4:8], tx.BranchID)
	binary.LittleEndian.PutUint32(hdr[8:12], tx.LockTime)
	binary.LittleEndian.PutUint32(hdr[12:16], tx.ExpiryHeight)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	if err := wire.WriteVarInt(w, 0, uint64(len(tx.TxOut))); err != nil {
		return err
	}
	for _, out := range tx.TxOut {
		if err := writeInt64(w, out.Value); err != nil {
			return err
		}
		if err := wire.WriteVarBytes(w, 0, out.PkScript); err != nil {
			return err
		}
	}

	if err := writeInt64(w, tx.ValueBalance); err != nil {
		return err
	}

	if err := wire.WriteVarInt(w, 0, uint64(len(tx.Spends))); err != nil {
		return err
	}
	for _, sd := range tx.Spends {
		for _, b := range [][]byte{sd.Anchor[:], sd.Nullifier[:], sd.Rk[:]} {
			if _, err := w.Write(b); err != nil {
				return err
			}
		}
		if err := wire.WriteVarBytes(w, 0, sd.Proof); err != nil {
			return err
		}
		sig := sd.SpendAuthSig
		if !withSigs {
			sig = [SpendAuthSigSize]byte{}
		}
		if _, err := w.Write(sig[:]); err != nil {
			return err
		}
	}

	if err := wire.WriteVarInt(w, 0, uint64(len(tx.Outputs))); err != nil {
		return err
	}
	for _, od := range tx.Outputs {
		if _, err := w.Write(od.Cmu[:]); err != nil {
			return err
		}
		epk := od.EphemeralKey.Bytes()
		if _, err := w.Write(epk[:]); err != nil {
			return err
		}
		if err := wire.WriteVarBytes(w, 0, od.EncCiphertext); err != nil {
			return err
		}
		if err := wire.WriteVarBytes(w, 0, od.Proof); err != nil {
			return err
		}
	}
	return nil
}

func readCount(r io.Reader, what string) (uint64, error) {
	n, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return 0, fmt.Errorf("read %s count: %w", what, err)
	}
	if n > maxTxComponents {
		return 0, fmt.Errorf("%d %s exceed limit %d", n, what, maxTxComponents)
	}
	return n, nil
}

func readNode(r io.Reader) (Node, error) {
	var buf [NodeSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Node{}, err
	}
	return NodeFromBytes(buf[:])
}

func readInt64(r io.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func writeInt64(w io.Writer, v int64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	_, err := w.Write(b[:])
	return err
}
