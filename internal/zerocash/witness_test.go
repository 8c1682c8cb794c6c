package zerocash

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWitnessCapturedState(t *testing.T) {
	tree := NewCommitmentTree()
	for i := uint64(0); i < 5; i++ {
		require.NoError(t, tree.Append(testLeaf(i)))
	}
	w := WitnessFromTree(tree)
	rootAtCapture := tree.Root()

	// Later appends to the tree do not reach the witness.
	require.NoError(t, tree.Append(testLeaf(5)))
	require.NoError(t, tree.Append(testLeaf(6)))

	require.Equal(t, uint64(4), w.Position())
	require.Equal(t, rootAtCapture, w.Root())

	path, err := w.Path()
	require.NoError(t, err)
	require.Equal(t, uint64(4), path.Position)
	require.Equal(t, rootAtCapture, path.Root(testLeaf(4)))
	require.NotEqual(t, tree.Root(), path.Root(testLeaf(4)))
}

func TestWitnessAppend(t *testing.T) {
	const total = 40

	for _, witnessed := range []uint64{0, 1, 2, 3, 7, 8, 20} {
		tree := NewCommitmentTree()
		var w *IncrementalWitness
		for i := uint64(0); i < total; i++ {
			require.NoError(t, tree.Append(testLeaf(i)))
			switch {
			case i == witnessed:
				w = WitnessFromTree(tree)
			case i > witnessed:
				require.NoError(t, w.Append(testLeaf(i)))
			}
			if w == nil {
				continue
			}
			require.Equal(t, tree.Root(), w.Root(), "witness %d after %d leaves", witnessed, i+1)

			path, err := w.Path()
			require.NoError(t, err)
			require.Equal(t, witnessed, path.Position)
			require.Equal(t, tree.Root(), path.Root(testLeaf(witnessed)))
		}
	}
}

func TestWitnessEmptyTree(t *testing.T) {
	w := WitnessFromTree(NewCommitmentTree())
	_, err := w.Path()
	require.ErrorIs(t, err, ErrTreeEmpty)
	_, err = w.Leaf()
	require.ErrorIs(t, err, ErrTreeEmpty)
}

func TestWitnessLeaf(t *testing.T) {
	for _, n := range []uint64{1, 2, 3, 8, 11} {
		tree := NewCommitmentTree()
		for i := uint64(0); i < n; i++ {
			require.NoError(t, tree.Append(testLeaf(i)))
		}
		w := WitnessFromTree(tree)
		// Appends after capture leave the witnessed leaf in place.
		require.NoError(t, w.Append(testLeaf(100)))

		leaf, err := w.Leaf()
		require.NoError(t, err)
		require.Equal(t, testLeaf(n-1), leaf, "%d leaves", n)
	}
}

func TestWitnessSerialization(t *testing.T) {
	tree := NewCommitmentTree()
	for i := uint64(0); i < 6; i++ {
		require.NoError(t, tree.Append(testLeaf(i)))
	}
	w := WitnessFromTree(tree)
	// Leave a partially filled cursor behind.
	for i := uint64(6); i < 9; i++ {
		require.NoError(t, w.Append(testLeaf(i)))
	}

	var buf bytes.Buffer
	require.NoError(t, w.Serialize(&buf))
	encoded := append([]byte(nil), buf.Bytes()...)

	var decoded IncrementalWitness
	require.NoError(t, decoded.Deserialize(&buf))
	require.Equal(t, w.Root(), decoded.Root())
	require.Equal(t, w.Position(), decoded.Position())

	want, err := w.Path()
	require.NoError(t, err)
	got, err := decoded.Path()
	require.NoError(t, err)
	require.Equal(t, want, got)

	var again bytes.Buffer
	require.NoError(t, decoded.Serialize(&again))
	require.Equal(t, encoded, again.Bytes())

	// Both keep absorbing commitments identically.
	require.NoError(t, w.Append(testLeaf(9)))
	require.NoError(t, decoded.Append(testLeaf(9)))
	require.Equal(t, w.Root(), decoded.Root())

	t.Run("bad cursor flag", func(t *testing.T) {
		var plain bytes.Buffer
		require.NoError(t, WitnessFromTree(tree).Serialize(&plain))
		bad := append(plain.Bytes()[:plain.Len()-1], 7)
		var w IncrementalWitness
		require.Error(t, w.Deserialize(bytes.NewReader(bad)))
	})
}
