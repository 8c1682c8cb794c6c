// keys.go - Spending, viewing and nullifier keys.
//
// A 32-byte spending key seed expands into:
//   - ask: the secp256k1 spend authorizing key (schnorr spend signatures)
//   - nk:  a nullifier deriving key per scope (external, internal)
//   - ivk: the BLS12-377 incoming viewing key used for trial decryption
//   - default and change diversifiers for payment addresses

package zerocash

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/bech32"
	bls12377_fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// SpendingKeySize is the size of a spending key seed.
const SpendingKeySize = 32

// Key expansion domains.
const (
	domainAsk byte = iota
	domainNkExternal
	domainNkInternal
	domainIvk
	domainDefaultDiversifier
	domainChangeDiversifier
)

// ErrInvalidSpendingKey is returned when an encoded spending key cannot be
// decoded for the requested network.
var ErrInvalidSpendingKey = errors.New("invalid spending key encoding")

// Scope selects which nullifier deriving key applies to a note.
type Scope uint8

const (
	// ScopeExternal is used for notes received on externally shared
	// addresses.
	ScopeExternal Scope = iota

	// ScopeInternal is used for wallet-internal operations such as change.
	ScopeInternal
)

func (s Scope) String() string {
	switch s {
	case ScopeExternal:
		return "external"
	case ScopeInternal:
		return "internal"
	default:
		return fmt.Sprintf("scope(%d)", uint8(s))
	}
}

// SpendingKey is the root secret of a wallet account.
type SpendingKey [SpendingKeySize]byte

// NewSpendingKey returns a fresh random spending key.
func NewSpendingKey() (SpendingKey, error) {
	var sk SpendingKey
	b, err := randomBytes(SpendingKeySize)
	if err != nil {
		return sk, err
	}
	copy(sk[:], b)
	return sk, nil
}

// EncodeSpendingKey bech32-encodes sk under the network's spending key
// human-readable part.
func EncodeSpendingKey(params *NetworkParams, sk SpendingKey) (string, error) {
	return bech32.EncodeFromBase256(params.HRPSaplingSpendingKey, sk[:])
}

// DecodeSpendingKey decodes a bech32 spending key for the given network.
func DecodeSpendingKey(params *NetworkParams, s string) (SpendingKey, error) {
	var sk SpendingKey
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return sk, fmt.Errorf("%w: %v", ErrInvalidSpendingKey, err)
	}
	if hrp != params.HRPSaplingSpendingKey {
		return sk, fmt.Errorf("%w: unexpected prefix %q for %s", ErrInvalidSpendingKey, hrp, params)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return sk, fmt.Errorf("%w: %v", ErrInvalidSpendingKey, err)
	}
	if len(raw) != SpendingKeySize {
		return sk, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSpendingKey, SpendingKeySize, len(raw))
	}
	copy(sk[:], raw)
	return sk, nil
}

// AuthorizingKey returns the spend authorizing key.
func (sk SpendingKey) AuthorizingKey() *btcec.PrivateKey {
	ask := prfExpand(sk[:], domainAsk)
	priv, _ := btcec.PrivKeyFromBytes(ask[:32])
	return priv
}

// FullViewingKey derives the viewing key material of sk.
func (sk SpendingKey) FullViewingKey() *FullViewingKey {
	fvk := &FullViewingKey{
		ak: schnorr.SerializePubKey(sk.AuthorizingKey().PubKey()),
	}

	nkExt := prfExpand(sk[:], domainNkExternal)
	fvk.nk[ScopeExternal].SetBytes(nkExt[:])
	nkInt := prfExpand(sk[:], domainNkInternal)
	fvk.nk[ScopeInternal].SetBytes(nkInt[:])

	ivk := prfExpand(sk[:], domainIvk)
	fvk.ivk.ivk.SetBytes(ivk[:])

	d := prfExpand(sk[:], domainDefaultDiversifier)
	copy(fvk.defaultD[:], d[:DiversifierSize])
	d = prfExpand(sk[:], domainChangeDiversifier)
	copy(fvk.changeD[:], d[:DiversifierSize])

	return fvk
}

// NullifierKey derives nullifiers for notes owned by a key.
type NullifierKey struct {
	nk fr.Element
}

// Nullifier returns the nullifier of a note committed at position.
func (k NullifierKey) Nullifier(note *Note, position uint64) Nullifier {
	return note.Nullifier(k, position)
}

// IncomingViewingKey decrypts outputs sent to any address of the account.
type IncomingViewingKey struct {
	ivk bls12377_fr.Element
}

// Address returns the payment address for diversifier d.
func (k *IncomingViewingKey) Address(d Diversifier) (PaymentAddress, error) {
	gd, err := d.Base()
	if err != nil {
		return PaymentAddress{}, err
	}
	addr := PaymentAddress{Diversifier: d}
	addr.PkD = *ComputeDHShared(&k.ivk, &gd)
	return addr, nil
}

// FullViewingKey holds everything needed to detect incoming notes and to
// derive their nullifiers, without spend authority.
type FullViewingKey struct {
	ak       []byte
	nk       [2]fr.Element
	ivk      IncomingViewingKey
	defaultD Diversifier
	changeD  Diversifier
}

// SpendValidatingKey returns the x-only serialization of the spend
// authorizing public key.
func (fvk *FullViewingKey) SpendValidatingKey() []byte {
	return fvk.ak
}

// NullifierKey returns the nullifier deriving key for scope.
func (fvk *FullViewingKey) NullifierKey(scope Scope) NullifierKey {
	if scope != ScopeInternal {
		scope = ScopeExternal
	}
	return NullifierKey{nk: fvk.nk[scope]}
}

// IncomingViewingKey returns the key used for trial decryption.
func (fvk *FullViewingKey) IncomingViewingKey() *IncomingViewingKey {
	return &fvk.ivk
}

// DefaultAddress returns the account's default payment address.
func (fvk *FullViewingKey) DefaultAddress() (PaymentAddress, error) {
	return fvk.ivk.Address(fvk.defaultD)
}

// ChangeAddress returns the address the account uses for its own change.
func (fvk *FullViewingKey) ChangeAddress() (PaymentAddress, error) {
	return fvk.ivk.Address(fvk.changeD)
}

// Owns reports whether addr was derived from this viewing key.
func (fvk *FullViewingKey) Owns(addr PaymentAddress) bool {
	mine, err := fvk.ivk.Address(addr.Diversifier)
	if err != nil {
		return false
	}
	return mine.PkD.Equal(&addr.PkD)
}
