package transactions_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"shieldwallet/internal/transactions"
	"shieldwallet/internal/transactions/codec"
	"shieldwallet/internal/transactions/create"
	"shieldwallet/internal/transactions/ingest"
	"shieldwallet/internal/transactions/unspent"
	"shieldwallet/internal/zerocash"
)

var params = zerocash.TestNetParams

type party struct {
	sk   zerocash.SpendingKey
	key  string
	addr string
}

func newParty(t *testing.T, seed byte) *party {
	t.Helper()
	sk := zerocash.SpendingKey{seed, seed}
	key, err := zerocash.EncodeSpendingKey(params, sk)
	require.NoError(t, err)
	addr, err := sk.FullViewingKey().DefaultAddress()
	require.NoError(t, err)
	encoded, err := zerocash.EncodePaymentAddress(params, addr)
	require.NoError(t, err)
	return &party{sk: sk, key: key, addr: encoded}
}

func (p *party) changeAddress(t *testing.T) string {
	t.Helper()
	addr, err := p.sk.FullViewingKey().ChangeAddress()
	require.NoError(t, err)
	s, err := zerocash.EncodePaymentAddress(params, addr)
	require.NoError(t, err)
	return s
}

// fundingTx pays each value to its recipient in one transaction without
// spends, the way a coinbase or an external sender would.
func fundingTx(t *testing.T, to []*party, values []uint64) string {
	t.Helper()
	tx := &zerocash.Transaction{Version: zerocash.TxVersion, BranchID: params.BranchID}
	for i, p := range to {
		addr, err := zerocash.DecodePaymentAddress(params, p.addr)
		require.NoError(t, err)
		note, err := zerocash.NewNote(values[i], addr)
		require.NoError(t, err)
		epk, ct, err := zerocash.EncryptNote(note, params.NotePlaintextLeadByte(ingest.DecryptHeight))
		require.NoError(t, err)
		tx.Outputs = append(tx.Outputs, &zerocash.OutputDescription{
			Cmu: note.Commitment(), EphemeralKey: epk, EncCiphertext: ct,
		})
	}
	s, err := codec.EncodeTransaction(tx)
	require.NoError(t, err)
	return s
}

func values(notes []transactions.NoteWitness) []uint64 {
	out := make([]uint64, 0, len(notes))
	for _, nw := range notes {
		out = append(out, nw.Note.Value)
	}
	return out
}

// TestWalletLifecycle follows a wallet from funding through a payment and
// back to its unspent set.
func TestWalletLifecycle(t *testing.T) {
	alice := newParty(t, 1)
	bob := newParty(t, 2)
	carol := newParty(t, 3)

	empty, err := codec.EncodeTree(zerocash.NewCommitmentTree())
	require.NoError(t, err)

	// =========================================================================
	// 1. Funding
	// =========================================================================

	funding := fundingTx(t, []*party{alice, carol, alice}, []uint64{10_000_000, 7_000_000, 4_000_000})
	funded, err := ingest.Ingest(empty, funding, alice.key, params)
	require.NoError(t, err)
	require.Equal(t, []uint64{10_000_000, 4_000_000}, values(funded.Notes))
	require.Empty(t, funded.Nullifiers)

	// Bring the first witness up to the tree after the whole transaction.
	cmus, err := ingest.OutputCommitments(funding, params)
	require.NoError(t, err)
	require.Len(t, cmus, 3)
	wallet := append([]transactions.NoteWitness(nil), funded.Notes...)
	wallet[0].Witness, err = ingest.AdvanceWitness(wallet[0].Witness, cmus[1:])
	require.NoError(t, err)

	tree, err := codec.DecodeTree(funded.Tree)
	require.NoError(t, err)
	for _, nw := range wallet {
		w, err := codec.DecodeWitness(nw.Witness)
		require.NoError(t, err)
		require.Equal(t, tree.Root(), w.Root())
	}

	live, err := unspent.FilterUnspent(wallet, nil, alice.key, params)
	require.NoError(t, err)
	require.Equal(t, wallet, live)

	// =========================================================================
	// 2. Payment
	// =========================================================================

	payment, err := create.CreateTransaction(&create.Request{
		Notes:  live,
		Key:    alice.key,
		To:     bob.addr,
		Change: alice.changeAddress(t),
		Amount: 5_000_000,
		Height: 1000,
	}, params, zerocash.MockProver{})
	require.NoError(t, err)
	require.Len(t, payment.Nullifiers, 1)

	tx, err := codec.DecodeTransaction(payment.TxHex, params)
	require.NoError(t, err)
	require.NoError(t, zerocash.VerifySpendAuth(tx))
	for _, sd := range tx.Spends {
		require.Equal(t, tree.Root(), sd.Anchor)
		require.NoError(t, zerocash.MockProver{}.VerifySpend(sd))
	}

	// =========================================================================
	// 3. Confirmation
	// =========================================================================

	received, err := ingest.Ingest(funded.Tree, payment.TxHex, bob.key, params)
	require.NoError(t, err)
	require.Equal(t, []uint64{5_000_000}, values(received.Notes))

	confirmed, err := ingest.Ingest(funded.Tree, payment.TxHex, alice.key, params)
	require.NoError(t, err)
	require.Equal(t, received.Tree, confirmed.Tree)
	require.Equal(t, []uint64{10_000_000 - 5_000_000 - create.Fee}, values(confirmed.Notes))
	require.Len(t, confirmed.Nullifiers, 1)

	// The reported nullifiers use the internal key while spends on chain
	// carry the external one.
	require.NotEqual(t, payment.Nullifiers, confirmed.Nullifiers)

	wallet = append(wallet, confirmed.Notes...)
	live, err = unspent.FilterUnspent(wallet, confirmed.Nullifiers, alice.key, params)
	require.NoError(t, err)
	require.Equal(t, []uint64{4_000_000, 10_000_000 - 5_000_000 - create.Fee}, values(live))

	// Carol sees nothing of the payment.
	ignored, err := ingest.Ingest(funded.Tree, payment.TxHex, carol.key, params)
	require.NoError(t, err)
	require.Empty(t, ignored.Notes)
}
