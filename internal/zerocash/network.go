// network.go - Network profiles for the shielded protocol.
//
// A profile groups everything that differs between networks: the bech32
// human-readable parts of shielded addresses and spending keys, the base58
// prefixes of transparent addresses and the consensus branch id that
// transactions are encoded under.

package zerocash

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// SaplingBranchID is the consensus branch id of the shielded transaction
// format understood by this package.
const SaplingBranchID uint32 = 0x76b809bb

// NetworkParams describes one network profile.
type NetworkParams struct {
	Name string

	// HRPSaplingPaymentAddress is the bech32 human-readable part of shielded
	// payment addresses.
	HRPSaplingPaymentAddress string

	// HRPSaplingSpendingKey is the bech32 human-readable part of encoded
	// spending keys.
	HRPSaplingSpendingKey string

	// Base58 version bytes of transparent pay-to-pubkey-hash and
	// pay-to-script-hash addresses.
	B58PubkeyAddressPrefix byte
	B58ScriptAddressPrefix byte

	// BranchID is the consensus branch id transactions are parsed and
	// built under.
	BranchID uint32

	// NoteV2Height is the first height at which outputs carry version 2
	// note plaintexts. Zero means version 2 plaintexts are not active.
	NoteV2Height uint32

	transparent *chaincfg.Params
}

// MainNetParams is the main network profile.
var MainNetParams = newNetworkParams(NetworkParams{
	Name:                     "mainnet",
	HRPSaplingPaymentAddress: "ps",
	HRPSaplingSpendingKey:    "p-secret-spending-key-main",
	B58PubkeyAddressPrefix:   30,
	B58ScriptAddressPrefix:   13,
	BranchID:                 SaplingBranchID,
})

// TestNetParams is the test network profile.
var TestNetParams = newNetworkParams(NetworkParams{
	Name:                     "testnet",
	HRPSaplingPaymentAddress: "ptestsapling",
	HRPSaplingSpendingKey:    "p-secret-spending-key-test",
	B58PubkeyAddressPrefix:   139,
	B58ScriptAddressPrefix:   19,
	BranchID:                 SaplingBranchID,
})

func newNetworkParams(p NetworkParams) *NetworkParams {
	p.transparent = &chaincfg.Params{
		Name:             p.Name,
		PubKeyHashAddrID: p.B58PubkeyAddressPrefix,
		ScriptHashAddrID: p.B58ScriptAddressPrefix,
	}
	return &p
}

// TransparentParams returns a chaincfg view of the profile, suitable for
// btcutil address encoding and decoding.
func (p *NetworkParams) TransparentParams() *chaincfg.Params {
	return p.transparent
}

// String returns the profile name.
func (p *NetworkParams) String() string {
	return p.Name
}

// NotePlaintextLeadByte returns the plaintext version new outputs use at
// height.
func (p *NetworkParams) NotePlaintextLeadByte(height uint32) byte {
	if p.NoteV2Height != 0 && height >= p.NoteV2Height {
		return notePlaintextV2
	}
	return notePlaintextV1
}

// acceptsLeadByte reports whether a plaintext version may be decrypted at
// height. Version 1 plaintexts stay valid after version 2 activates.
func (p *NetworkParams) acceptsLeadByte(height uint32, lead byte) bool {
	switch lead {
	case notePlaintextV1:
		return true
	case notePlaintextV2:
		return p.NoteV2Height != 0 && height >= p.NoteV2Height
	default:
		return false
	}
}

// NetworkByName returns the profile registered under name.
func NetworkByName(name string) (*NetworkParams, error) {
	switch name {
	case MainNetParams.Name:
		return MainNetParams, nil
	case TestNetParams.Name:
		return TestNetParams, nil
	}
	return nil, fmt.Errorf("unknown network %q", name)
}
