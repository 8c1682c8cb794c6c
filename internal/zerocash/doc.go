// Package zerocash implements the shielded protocol primitives the wallet core
// is built on.
//
// Overview:
//   - An append-only note commitment tree of depth 32 with incremental
//     witnesses (tree.go, witness.go)
//   - Spending keys, viewing keys, nullifier keys and diversified payment
//     addresses with bech32 encodings per network (keys.go, address.go)
//   - Notes, their commitments and nullifiers (note.go)
//   - In-band note encryption and trial decryption (note_encryption.go)
//   - The binary transaction format (tx.go)
//   - Spend and output circuits, Groth16 proving, and a transaction builder
//     with a fixed fee rule (circuit.go, prover.go, builder.go)
//
// Security Model:
//   - MiMC over the BN254 scalar field for tree nodes, commitments and
//     nullifiers, matching the in-circuit hash
//   - BLS12-377 Diffie-Hellman on diversified bases for note encryption,
//     ChaCha20-Poly1305 for the ciphertext
//   - secp256k1 schnorr signatures for spend authorization
//   - Groth16 proofs over BN254 (gnark)
//   - All randomness is generated using crypto/rand
//
// The spend validating key is published as is in every spend, so spends of
// one key are linkable through it. Value balance is checked by the builder,
// not by the proofs.
package zerocash
