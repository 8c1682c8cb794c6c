// note_encryption.go - In-band note encryption and trial decryption.
//
// An output is encrypted to its recipient with an ephemeral Diffie-Hellman
// key on the recipient's diversified base: epk = g_d^esk. The sender derives
// the shared point pk_d^esk, the recipient recovers it as epk^ivk. The
// symmetric key is BLAKE2b-256(shared || epk) and the plaintext is sealed
// with ChaCha20-Poly1305 under an all-zero nonce; every key is single use.
//
// Plaintext: lead byte | diversifier[11] | value u64 LE | rho[32] | rcm[32]

package zerocash

import (
	"encoding/binary"
	"fmt"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	notePlaintextV1 byte = 0x01
	notePlaintextV2 byte = 0x02

	notePlaintextSize = 1 + DiversifierSize + 8 + NodeSize + NodeSize

	// NoteCiphertextSize is the size of an encrypted note plaintext.
	NoteCiphertextSize = notePlaintextSize + chacha20poly1305.Overhead
)

var zeroNonce [chacha20poly1305.NonceSize]byte

// EncryptNote encrypts note to its recipient. It returns the ephemeral
// public key and the ciphertext.
func EncryptNote(note *Note, leadByte byte) (bls12377.G1Affine, []byte, error) {
	gd, err := note.Recipient.Diversifier.Base()
	if err != nil {
		return bls12377.G1Affine{}, nil, fmt.Errorf("diversified base: %w", err)
	}
	kp, err := GenerateDHKeyPair(&gd)
	if err != nil {
		return bls12377.G1Affine{}, nil, err
	}
	shared := ComputeDHShared(kp.Sk, &note.Recipient.PkD)
	key := noteEncryptionKey(shared, kp.Pk)

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return bls12377.G1Affine{}, nil, err
	}
	ct := aead.Seal(nil, zeroNonce[:], encodeNotePlaintext(note, leadByte), nil)
	return *kp.Pk, ct, nil
}

func encodeNotePlaintext(note *Note, leadByte byte) []byte {
	pt := make([]byte, 0, notePlaintextSize)
	pt = append(pt, leadByte)
	pt = append(pt, note.Recipient.Diversifier[:]...)
	pt = binary.LittleEndian.AppendUint64(pt, note.Value)
	pt = append(pt, note.Rho[:]...)
	return append(pt, note.Rcm[:]...)
}

// TrialDecrypt attempts to decrypt output with ivk at height. It returns
// false when the output was not sent to ivk or does not open its own
// commitment; that is the normal outcome for outputs owned by others.
func TrialDecrypt(params *NetworkParams, height uint32, ivk *IncomingViewingKey, output *OutputDescription) (*Note, bool) {
	if len(output.EncCiphertext) != NoteCiphertextSize {
		return nil, false
	}
	shared := ComputeDHShared(&ivk.ivk, &output.EphemeralKey)
	key := noteEncryptionKey(shared, &output.EphemeralKey)

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, false
	}
	pt, err := aead.Open(nil, zeroNonce[:], output.EncCiphertext, nil)
	if err != nil {
		return nil, false
	}
	if !params.acceptsLeadByte(height, pt[0]) {
		return nil, false
	}

	var d Diversifier
	off := 1
	copy(d[:], pt[off:off+DiversifierSize])
	off += DiversifierSize
	value := binary.LittleEndian.Uint64(pt[off : off+8])
	off += 8
	rho, err := NodeFromBytes(pt[off : off+NodeSize])
	if err != nil {
		return nil, false
	}
	off += NodeSize
	rcm, err := NodeFromBytes(pt[off : off+NodeSize])
	if err != nil {
		return nil, false
	}

	recipient, err := ivk.Address(d)
	if err != nil {
		return nil, false
	}
	note := &Note{Value: value, Recipient: recipient, Rho: rho, Rcm: rcm}
	if note.Commitment() != output.Cmu {
		return nil, false
	}
	return note, true
}

// DecryptedOutput is a note recovered from a transaction output.
type DecryptedOutput struct {
	Index int
	Note  *Note
}

// DecryptTransaction trial-decrypts every output of tx with ivk and returns
// the ones that succeed, in output order.
func DecryptTransaction(params *NetworkParams, height uint32, tx *Transaction, ivk *IncomingViewingKey) []DecryptedOutput {
	var found []DecryptedOutput
	for i, od := range tx.Outputs {
		if note, ok := TrialDecrypt(params, height, ivk, od); ok {
			found = append(found, DecryptedOutput{Index: i, Note: note})
		}
	}
	return found
}
