package zerocash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func encryptedOutput(t *testing.T, note *Note, lead byte) *OutputDescription {
	t.Helper()
	epk, ct, err := EncryptNote(note, lead)
	require.NoError(t, err)
	require.Len(t, ct, NoteCiphertextSize)
	return &OutputDescription{Cmu: note.Commitment(), EphemeralKey: epk, EncCiphertext: ct}
}

func TestTrialDecrypt(t *testing.T) {
	fvk := testSpendingKey(1).FullViewingKey()
	addr, err := fvk.DefaultAddress()
	require.NoError(t, err)
	note, err := NewNote(123456, addr)
	require.NoError(t, err)
	od := encryptedOutput(t, note, notePlaintextV1)

	t.Run("owner", func(t *testing.T) {
		got, ok := TrialDecrypt(MainNetParams, 320, fvk.IncomingViewingKey(), od)
		require.True(t, ok)
		require.Equal(t, note.Value, got.Value)
		require.Equal(t, note.Rho, got.Rho)
		require.Equal(t, note.Rcm, got.Rcm)
		require.True(t, note.Recipient.Equal(got.Recipient))
		require.Equal(t, note.Commitment(), got.Commitment())
	})

	t.Run("foreign key", func(t *testing.T) {
		other := testSpendingKey(9).FullViewingKey()
		_, ok := TrialDecrypt(MainNetParams, 320, other.IncomingViewingKey(), od)
		require.False(t, ok)
	})

	t.Run("commitment mismatch", func(t *testing.T) {
		bad := *od
		bad.Cmu = testLeaf(0)
		_, ok := TrialDecrypt(MainNetParams, 320, fvk.IncomingViewingKey(), &bad)
		require.False(t, ok)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		bad := *od
		bad.EncCiphertext = append([]byte(nil), od.EncCiphertext...)
		bad.EncCiphertext[3] ^= 1
		_, ok := TrialDecrypt(MainNetParams, 320, fvk.IncomingViewingKey(), &bad)
		require.False(t, ok)
	})

	t.Run("short ciphertext", func(t *testing.T) {
		bad := *od
		bad.EncCiphertext = od.EncCiphertext[:10]
		_, ok := TrialDecrypt(MainNetParams, 320, fvk.IncomingViewingKey(), &bad)
		require.False(t, ok)
	})
}

func TestTrialDecryptLeadByte(t *testing.T) {
	params := newNetworkParams(NetworkParams{
		Name:                     "v2test",
		HRPSaplingPaymentAddress: "pv2test",
		HRPSaplingSpendingKey:    "p-secret-spending-key-v2test",
		BranchID:                 SaplingBranchID,
		NoteV2Height:             1000,
	})
	require.Equal(t, notePlaintextV1, params.NotePlaintextLeadByte(999))
	require.Equal(t, notePlaintextV2, params.NotePlaintextLeadByte(1000))
	require.Equal(t, notePlaintextV1, MainNetParams.NotePlaintextLeadByte(1<<31))

	fvk := testSpendingKey(1).FullViewingKey()
	addr, err := fvk.DefaultAddress()
	require.NoError(t, err)
	note, err := NewNote(1, addr)
	require.NoError(t, err)

	v1 := encryptedOutput(t, note, notePlaintextV1)
	v2 := encryptedOutput(t, note, notePlaintextV2)
	ivk := fvk.IncomingViewingKey()

	tests := []struct {
		name   string
		params *NetworkParams
		height uint32
		od     *OutputDescription
		ok     bool
	}{
		{"v1 before activation", params, 500, v1, true},
		{"v1 after activation", params, 2000, v1, true},
		{"v2 before activation", params, 500, v2, false},
		{"v2 after activation", params, 1000, v2, true},
		{"v2 never active", MainNetParams, 320, v2, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := TrialDecrypt(tc.params, tc.height, ivk, tc.od)
			require.Equal(t, tc.ok, ok)
		})
	}
}

func TestDecryptTransaction(t *testing.T) {
	mine := testSpendingKey(1).FullViewingKey()
	theirs := testSpendingKey(2).FullViewingKey()
	myAddr, err := mine.DefaultAddress()
	require.NoError(t, err)
	theirAddr, err := theirs.DefaultAddress()
	require.NoError(t, err)

	tx := &Transaction{Version: TxVersion, BranchID: SaplingBranchID}
	for i, addr := range []PaymentAddress{theirAddr, myAddr, theirAddr, myAddr} {
		note, err := NewNote(uint64(100*(i+1)), addr)
		require.NoError(t, err)
		tx.Outputs = append(tx.Outputs, encryptedOutput(t, note, notePlaintextV1))
	}

	found := DecryptTransaction(MainNetParams, 320, tx, mine.IncomingViewingKey())
	require.Len(t, found, 2)
	require.Equal(t, 1, found[0].Index)
	require.Equal(t, uint64(200), found[0].Note.Value)
	require.Equal(t, 3, found[1].Index)
	require.Equal(t, uint64(400), found[1].Note.Value)
}
