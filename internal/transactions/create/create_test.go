package create

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shieldwallet/internal/transactions"
	"shieldwallet/internal/transactions/codec"
	"shieldwallet/internal/zerocash"
)

var params = zerocash.TestNetParams

type account struct {
	sk     zerocash.SpendingKey
	key    string
	addr   string
	change string
}

func newAccount(t *testing.T, seed byte) *account {
	t.Helper()
	sk := zerocash.SpendingKey{seed}
	fvk := sk.FullViewingKey()
	key, err := zerocash.EncodeSpendingKey(params, sk)
	require.NoError(t, err)
	addr, err := fvk.DefaultAddress()
	require.NoError(t, err)
	change, err := fvk.ChangeAddress()
	require.NoError(t, err)

	a := &account{sk: sk, key: key}
	a.addr, err = zerocash.EncodePaymentAddress(params, addr)
	require.NoError(t, err)
	a.change, err = zerocash.EncodePaymentAddress(params, change)
	require.NoError(t, err)
	return a
}

// notes appends one note per value to a shared tree and returns them with
// witnesses captured right after each append.
func (a *account) notes(t *testing.T, values ...uint64) []transactions.NoteWitness {
	t.Helper()
	addr, err := a.sk.FullViewingKey().DefaultAddress()
	require.NoError(t, err)
	tree := zerocash.NewCommitmentTree()
	var out []transactions.NoteWitness
	for _, v := range values {
		note, err := zerocash.NewNote(v, addr)
		require.NoError(t, err)
		require.NoError(t, tree.Append(note.Commitment()))
		w, err := codec.EncodeWitness(zerocash.WitnessFromTree(tree))
		require.NoError(t, err)
		out = append(out, transactions.NoteWitness{Note: note, Witness: w})
	}
	return out
}

func decodeResult(t *testing.T, res *Result) *zerocash.Transaction {
	t.Helper()
	tx, err := codec.DecodeTransaction(res.TxHex, params)
	require.NoError(t, err)
	return tx
}

// decryptValues returns the values of the outputs of tx that decrypt for a.
func (a *account) decryptValues(tx *zerocash.Transaction) []uint64 {
	var values []uint64
	ivk := a.sk.FullViewingKey().IncomingViewingKey()
	for _, d := range zerocash.DecryptTransaction(params, 0, tx, ivk) {
		values = append(values, d.Note.Value)
	}
	return values
}

func TestCreateSingleNote(t *testing.T) {
	me := newAccount(t, 1)
	bob := newAccount(t, 2)
	notes := me.notes(t, 10_000_000, 4_000_000)

	req := &Request{
		Notes:  notes,
		Key:    me.key,
		To:     bob.addr,
		Change: me.change,
		Amount: 5_000_000,
		Height: 1000,
	}
	res, err := CreateTransaction(req, params, zerocash.MockProver{})
	require.NoError(t, err)

	// Only the first note is spent.
	nk := me.sk.FullViewingKey().NullifierKey(zerocash.ScopeInternal)
	require.Equal(t, []string{codec.EncodeNullifier(nk.Nullifier(notes[0].Note, 0))}, res.Nullifiers)

	tx := decodeResult(t, res)
	require.Len(t, tx.Spends, 1)
	require.Len(t, tx.Outputs, 2)
	require.Empty(t, tx.TxOut)
	require.Equal(t, int64(Fee), tx.ValueBalance)
	require.NoError(t, zerocash.VerifySpendAuth(tx))

	require.Equal(t, []uint64{5_000_000}, bob.decryptValues(tx))
	require.Equal(t, []uint64{10_000_000 - 5_000_000 - Fee}, me.decryptValues(tx))

	raw, err := hex.DecodeString(res.TxHex)
	require.NoError(t, err)
	require.Equal(t, chainhash.DoubleHashH(raw).String(), res.TxID)
}

func TestCreateSelectsFirstSufficientPrefix(t *testing.T) {
	me := newAccount(t, 1)
	bob := newAccount(t, 2)
	notes := me.notes(t, 1_000_000, 2_000_000, 5_000_000, 9_000_000)

	res, err := CreateTransaction(&Request{
		Notes:  notes,
		Key:    me.key,
		To:     bob.addr,
		Change: me.change,
		Amount: 1_000_000,
	}, params, zerocash.MockProver{})
	require.NoError(t, err)
	require.Len(t, res.Nullifiers, 3)

	tx := decodeResult(t, res)
	require.Len(t, tx.Spends, 3)
	require.Equal(t, []uint64{8_000_000 - 1_000_000 - Fee}, me.decryptValues(tx))

	t.Run("later candidates are not read", func(t *testing.T) {
		tail := append([]transactions.NoteWitness(nil), notes...)
		tail[3].Witness = "zz"

		res, err := CreateTransaction(&Request{
			Notes:  tail,
			Key:    me.key,
			To:     bob.addr,
			Change: me.change,
			Amount: 1_000_000,
		}, params, zerocash.MockProver{})
		require.NoError(t, err)
		require.Len(t, res.Nullifiers, 3)
	})
}

func TestCreateZeroChange(t *testing.T) {
	me := newAccount(t, 1)
	bob := newAccount(t, 2)
	notes := me.notes(t, 3_000_000)

	res, err := CreateTransaction(&Request{
		Notes:  notes,
		Key:    me.key,
		To:     bob.addr,
		Change: me.change,
		Amount: 3_000_000 - Fee,
	}, params, zerocash.MockProver{})
	require.NoError(t, err)

	tx := decodeResult(t, res)
	require.Len(t, tx.Outputs, 2)
	require.Equal(t, []uint64{0}, me.decryptValues(tx))
}

func TestCreateTransparentDestination(t *testing.T) {
	me := newAccount(t, 1)
	notes := me.notes(t, 10_000_000)

	to, err := btcutil.NewAddressPubKeyHash(make([]byte, 20), params.TransparentParams())
	require.NoError(t, err)

	res, err := CreateTransaction(&Request{
		Notes:  notes,
		Key:    me.key,
		To:     to.EncodeAddress(),
		Change: me.change,
		Amount: 1_000_000,
	}, params, zerocash.MockProver{})
	require.NoError(t, err)

	tx := decodeResult(t, res)
	require.Len(t, tx.TxOut, 1)
	require.Equal(t, int64(1_000_000), tx.TxOut[0].Value)
	require.Len(t, tx.Outputs, 1)
	require.Equal(t, int64(1_000_000+Fee), tx.ValueBalance)
}

type mockProver struct {
	mock.Mock
}

func (m *mockProver) ProveSpend(w *zerocash.SpendWitness) ([]byte, error) {
	args := m.Called(w)
	proof, _ := args.Get(0).([]byte)
	return proof, args.Error(1)
}

func (m *mockProver) ProveOutput(w *zerocash.OutputWitness) ([]byte, error) {
	args := m.Called(w)
	proof, _ := args.Get(0).([]byte)
	return proof, args.Error(1)
}

func TestCreateErrors(t *testing.T) {
	me := newAccount(t, 1)
	bob := newAccount(t, 2)
	notes := me.notes(t, 1_000_000, 2_000_000)

	emptyWitness, err := codec.EncodeWitness(zerocash.WitnessFromTree(zerocash.NewCommitmentTree()))
	require.NoError(t, err)
	bobAddr, err := bob.sk.FullViewingKey().DefaultAddress()
	require.NoError(t, err)
	mainnetAddr, err := zerocash.EncodePaymentAddress(zerocash.MainNetParams, bobAddr)
	require.NoError(t, err)
	myAddr, err := me.sk.FullViewingKey().DefaultAddress()
	require.NoError(t, err)
	uncommitted, err := zerocash.NewNote(300, myAddr)
	require.NoError(t, err)

	valid := func() *Request {
		return &Request{
			Notes:  notes,
			Key:    me.key,
			To:     bob.addr,
			Change: me.change,
			Amount: 100_000,
		}
	}

	tests := []struct {
		name   string
		modify func(r *Request)
		code   transactions.ErrorCode
	}{
		{"insufficient balance", func(r *Request) { r.Amount = 3_000_000 - Fee + 1 }, transactions.ErrInsufficientBalance},
		{"no notes", func(r *Request) { r.Notes = nil }, transactions.ErrInsufficientBalance},
		{"amount overflow", func(r *Request) { r.Amount = ^uint64(0) }, transactions.ErrInsufficientBalance},
		{"unknown destination", func(r *Request) { r.To = "not-an-address" }, transactions.ErrBadAddress},
		{"broken shielded destination", func(r *Request) { r.To = "ptestsapling1qqqqqq" }, transactions.ErrBadAddress},
		{"other network destination", func(r *Request) { r.To = mainnetAddr }, transactions.ErrBadAddress},
		{"bad change address", func(r *Request) { r.Change = "tb1qqqqqq" }, transactions.ErrBadAddress},
		{"bad key", func(r *Request) { r.Key = "xyz" }, transactions.ErrDecode},
		{"bad witness", func(r *Request) {
			r.Notes = []transactions.NoteWitness{{Note: notes[0].Note, Witness: "01"}}
		}, transactions.ErrDecode},
		{"empty witness", func(r *Request) {
			r.Notes = []transactions.NoteWitness{{Note: notes[0].Note, Witness: emptyWitness}}
		}, transactions.ErrMissingPath},
		{"uncommitted note", func(r *Request) {
			r.Notes = []transactions.NoteWitness{{Note: uncommitted, Witness: notes[0].Witness}}
		}, transactions.ErrMissingPath},
		{"witness of another note", func(r *Request) {
			r.Notes = []transactions.NoteWitness{{Note: notes[0].Note, Witness: notes[1].Witness}}
		}, transactions.ErrMissingPath},
		{"foreign note", func(r *Request) { r.Key = bob.key }, transactions.ErrProving},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			tc.modify(req)
			res, err := CreateTransaction(req, params, zerocash.MockProver{})
			require.Nil(t, res)
			require.True(t, transactions.IsError(err, tc.code), "got %v", err)
		})
	}

	t.Run("prover failure", func(t *testing.T) {
		prover := &mockProver{}
		prover.On("ProveSpend", mock.Anything).Return(nil, errors.New("boom"))

		res, err := CreateTransaction(valid(), params, prover)
		require.Nil(t, res)
		require.True(t, transactions.IsError(err, transactions.ErrProving))
		prover.AssertNumberOfCalls(t, "ProveSpend", 1)
		prover.AssertNotCalled(t, "ProveOutput", mock.Anything)
	})
}
