// crypto.go - Cryptographic primitives and utilities for the shielded protocol.
//
// Implements MiMC-based hashing over the BN254 scalar field (tree nodes, note
// commitments, nullifiers), BLAKE2b key expansion, and BLS12-377
// Diffie-Hellman for note encryption. All randomness comes from crypto/rand.

package zerocash

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	bls12377_fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"golang.org/x/crypto/blake2b"
)

// NodeSize is the size in bytes of a serialized field element.
const NodeSize = fr.Bytes

// ErrNonCanonical is returned when 32 bytes do not encode a reduced field
// element.
var ErrNonCanonical = errors.New("value is not a canonical field element")

// Node is a 32-byte big-endian BN254 scalar field element. Note commitments,
// tree nodes and anchors are all Nodes.
type Node [NodeSize]byte

// NodeFromBytes copies b into a Node, rejecting anything that is not a
// canonical field element.
func NodeFromBytes(b []byte) (Node, error) {
	var n Node
	if len(b) != NodeSize {
		return n, fmt.Errorf("node must be %d bytes, got %d", NodeSize, len(b))
	}
	var e fr.Element
	if err := e.SetBytesCanonical(b); err != nil {
		return n, ErrNonCanonical
	}
	copy(n[:], b)
	return n, nil
}

func nodeFromElement(e *fr.Element) Node {
	return Node(e.Bytes())
}

// Element returns the node as a field element.
func (n Node) Element() fr.Element {
	var e fr.Element
	e.SetBytes(n[:])
	return e
}

// BigInt returns the node as an integer, the form circuit assignments take.
func (n Node) BigInt() *big.Int {
	return new(big.Int).SetBytes(n[:])
}

// String returns the hex encoding of the node.
func (n Node) String() string {
	return hex.EncodeToString(n[:])
}

// MarshalText implements encoding.TextMarshaler.
func (n Node) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Node) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	v, err := NodeFromBytes(b)
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// Nullifier is the value revealed when a note is spent.
type Nullifier = Node

// hashElements computes the MiMC hash of a sequence of field elements. The
// native hasher and the in-circuit hasher agree on this encoding.
func hashElements(elems ...fr.Element) fr.Element {
	h := mimc.NewMiMC()
	for i := range elems {
		b := elems[i].Bytes()
		h.Write(b[:])
	}
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

// elementFromBytes reduces arbitrary bytes into the scalar field.
func elementFromBytes(b []byte) fr.Element {
	var e fr.Element
	e.SetBytes(b)
	return e
}

func elementFromUint64(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

// randomElement samples a uniformly random field element.
func randomElement() (fr.Element, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return e, err
	}
	return e, nil
}

// randomBytes generates random bytes of specified length using crypto/rand.
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// prfExpand derives 64 bytes of key material from a spending key seed and a
// domain byte.
func prfExpand(seed []byte, domain byte) [blake2b.Size]byte {
	buf := make([]byte, 0, len(seed)+1)
	buf = append(buf, seed...)
	buf = append(buf, domain)
	return blake2b.Sum512(buf)
}

// DHKeyPair represents a BLS12-377 keypair for Diffie-Hellman key exchange
// relative to an arbitrary base point.
type DHKeyPair struct {
	Sk *bls12377_fr.Element
	Pk *bls12377.G1Affine
}

// GenerateDHKeyPair generates a random keypair whose public key is base^sk.
// Outputs use the recipient's diversified base so the recipient can recover
// the shared secret with its incoming viewing key.
func GenerateDHKeyPair(base *bls12377.G1Affine) (*DHKeyPair, error) {
	var sk bls12377_fr.Element
	if _, err := sk.SetRandom(); err != nil {
		return nil, err
	}
	var pk bls12377.G1Affine
	pk.ScalarMultiplication(base, sk.BigInt(new(big.Int)))
	return &DHKeyPair{Sk: &sk, Pk: &pk}, nil
}

// ComputeDHShared computes the shared secret pk^sk.
func ComputeDHShared(sk *bls12377_fr.Element, pk *bls12377.G1Affine) *bls12377.G1Affine {
	var shared bls12377.G1Affine
	shared.ScalarMultiplication(pk, sk.BigInt(new(big.Int)))
	return &shared
}

// noteEncryptionKey derives the symmetric key for an output from the DH
// shared secret and the ephemeral public key.
func noteEncryptionKey(shared, epk *bls12377.G1Affine) [32]byte {
	s := shared.Bytes()
	e := epk.Bytes()
	buf := make([]byte, 0, len(s)+len(e))
	buf = append(buf, s[:]...)
	buf = append(buf, e[:]...)
	return blake2b.Sum256(buf)
}
