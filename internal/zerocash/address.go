// address.go - Shielded payment addresses and transparent address decoding.

package zerocash

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bech32"
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

const (
	// DiversifierSize is the size of an address diversifier.
	DiversifierSize = 11

	// PaymentAddressSize is the size of a raw payment address: diversifier
	// followed by the compressed pk_d point.
	PaymentAddressSize = DiversifierSize + bls12377.SizeOfG1AffineCompressed
)

var diversifierDST = []byte("shieldwallet-diversified-base")

// ErrInvalidAddress is returned for strings that do not decode to an
// address of the requested network.
var ErrInvalidAddress = errors.New("invalid address")

// Diversifier selects one of the many payment addresses of a viewing key.
type Diversifier [DiversifierSize]byte

// Base returns the diversified base point g_d.
func (d Diversifier) Base() (bls12377.G1Affine, error) {
	return bls12377.HashToG1(d[:], diversifierDST)
}

// PaymentAddress is a diversified shielded address (d, pk_d) with
// pk_d = g_d^ivk.
type PaymentAddress struct {
	Diversifier Diversifier
	PkD         bls12377.G1Affine
}

// Bytes returns the raw address encoding.
func (a PaymentAddress) Bytes() []byte {
	pk := a.PkD.Bytes()
	out := make([]byte, 0, PaymentAddressSize)
	out = append(out, a.Diversifier[:]...)
	return append(out, pk[:]...)
}

// PaymentAddressFromBytes parses a raw address, checking that pk_d is a valid
// subgroup point.
func PaymentAddressFromBytes(b []byte) (PaymentAddress, error) {
	var a PaymentAddress
	if len(b) != PaymentAddressSize {
		return a, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, PaymentAddressSize, len(b))
	}
	copy(a.Diversifier[:], b[:DiversifierSize])
	if _, err := a.PkD.SetBytes(b[DiversifierSize:]); err != nil {
		return a, fmt.Errorf("%w: bad pk_d: %v", ErrInvalidAddress, err)
	}
	return a, nil
}

// Tag binds the address into a single field element for note commitments.
func (a PaymentAddress) Tag() fr.Element {
	pk := a.PkD.Bytes()
	return hashElements(
		elementFromBytes(a.Diversifier[:]),
		elementFromBytes(pk[:24]),
		elementFromBytes(pk[24:]),
	)
}

// Equal reports whether two addresses are identical.
func (a PaymentAddress) Equal(b PaymentAddress) bool {
	return a.Diversifier == b.Diversifier && a.PkD.Equal(&b.PkD)
}

// MarshalText implements encoding.TextMarshaler using hex.
func (a PaymentAddress) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(a.Bytes())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *PaymentAddress) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	v, err := PaymentAddressFromBytes(b)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// EncodePaymentAddress returns the bech32 form of addr for the network.
func EncodePaymentAddress(params *NetworkParams, addr PaymentAddress) (string, error) {
	return bech32.EncodeFromBase256(params.HRPSaplingPaymentAddress, addr.Bytes())
}

// DecodePaymentAddress parses a bech32 shielded address for the network.
func DecodePaymentAddress(params *NetworkParams, s string) (PaymentAddress, error) {
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return PaymentAddress{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if hrp != params.HRPSaplingPaymentAddress {
		return PaymentAddress{}, fmt.Errorf("%w: prefix %q is not a %s shielded address", ErrInvalidAddress, hrp, params)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return PaymentAddress{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return PaymentAddressFromBytes(raw)
}

// DecodeTransparentAddress parses a base58 pay-to-pubkey-hash or
// pay-to-script-hash address for the network.
func DecodeTransparentAddress(params *NetworkParams, s string) (btcutil.Address, error) {
	addr, err := btcutil.DecodeAddress(s, params.transparent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	switch addr.(type) {
	case *btcutil.AddressPubKeyHash, *btcutil.AddressScriptHash:
	default:
		return nil, fmt.Errorf("%w: unsupported transparent address type %T", ErrInvalidAddress, addr)
	}
	if !addr.IsForNet(params.transparent) {
		return nil, fmt.Errorf("%w: %s is not a %s address", ErrInvalidAddress, s, params)
	}
	return addr, nil
}
