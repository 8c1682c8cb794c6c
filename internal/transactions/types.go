// Package transactions holds what the wallet operations share: the coded
// error type and the note/witness pair that crosses the call boundary.
package transactions

import "shieldwallet/internal/zerocash"

// NoteWitness is a decrypted note together with the hex serialization of
// its incremental witness.
type NoteWitness struct {
	Note    *zerocash.Note `json:"note"`
	Witness string         `json:"witness"`
}
