// note.go - Note type and logic for the shielded protocol.
//
// A Note is a shielded output owned by a payment address. Notes are
// committed on chain with cm = MiMC(value, addrTag, rho, rcm) and spent by
// revealing nf = MiMC(nk, rho, position).

package zerocash

import (
	"encoding/json"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Note represents a decrypted shielded note.
type Note struct {
	Value     uint64         // Value in the smallest currency unit
	Recipient PaymentAddress // Address the note was sent to
	Rho       Node           // Unique per-note nonce
	Rcm       Node           // Commitment trapdoor
}

// NewNote creates a note for value paid to recipient with fresh randomness.
func NewNote(value uint64, recipient PaymentAddress) (*Note, error) {
	rho, err := randomElement()
	if err != nil {
		return nil, err
	}
	rcm, err := randomElement()
	if err != nil {
		return nil, err
	}
	return &Note{
		Value:     value,
		Recipient: recipient,
		Rho:       nodeFromElement(&rho),
		Rcm:       nodeFromElement(&rcm),
	}, nil
}

// Commitment returns the note commitment cm.
func (n *Note) Commitment() Node {
	cm := n.commitmentElement()
	return nodeFromElement(&cm)
}

func (n *Note) commitmentElement() fr.Element {
	return hashElements(
		elementFromUint64(n.Value),
		n.Recipient.Tag(),
		n.Rho.Element(),
		n.Rcm.Element(),
	)
}

// Nullifier returns the nullifier of the note at the given tree position
// under nullifier key nk. The same inputs always yield the same nullifier.
func (n *Note) Nullifier(nk NullifierKey, position uint64) Nullifier {
	nf := hashElements(nk.nk, n.Rho.Element(), elementFromUint64(position))
	return nodeFromElement(&nf)
}

type noteJSON struct {
	Value     uint64         `json:"value"`
	Recipient PaymentAddress `json:"recipient"`
	Rho       Node           `json:"rho"`
	Rcm       Node           `json:"rcm"`
}

// MarshalJSON implements json.Marshaler.
func (n Note) MarshalJSON() ([]byte, error) {
	return json.Marshal(noteJSON(n))
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Note) UnmarshalJSON(data []byte) error {
	var v noteJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode note: %w", err)
	}
	*n = Note(v)
	return nil
}
