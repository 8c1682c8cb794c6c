// witness.go - Incremental witnesses and authentication paths.
//
// A witness is a snapshot of the tree taken right after a note's commitment
// was appended. Commitments appended to the tree afterwards are only
// reflected once they are replayed into the witness with Append; until then
// the witness proves membership against the snapshot's root.

package zerocash

import (
	"errors"
	"fmt"
	"io"
)

// ErrWitnessFull is returned when a witness cannot absorb more commitments.
var ErrWitnessFull = errors.New("witness tree is full")

// pathFiller hands out the nodes to the right of a witnessed leaf: first the
// subtrees completed since the snapshot, then empty roots.
type pathFiller struct {
	queue []Node
}

func newPathFiller(queue []Node) *pathFiller {
	return &pathFiller{queue: queue}
}

func (f *pathFiller) next(depth int) Node {
	if len(f.queue) > 0 {
		n := f.queue[0]
		f.queue = f.queue[1:]
		return n
	}
	return emptyRoots[depth]
}

// IncrementalWitness tracks the authentication path of the most recently
// appended leaf of a tree snapshot.
type IncrementalWitness struct {
	tree        *CommitmentTree
	filled      []Node
	cursorDepth int
	cursor      *CommitmentTree
}

// WitnessFromTree captures a witness for the last commitment in tree. The
// tree is copied; later appends to tree do not affect the witness.
func WitnessFromTree(tree *CommitmentTree) *IncrementalWitness {
	return &IncrementalWitness{tree: tree.Clone()}
}

// Position returns the leaf index of the witnessed commitment.
func (w *IncrementalWitness) Position() uint64 {
	return w.tree.Size() - 1
}

func (w *IncrementalWitness) filler() *pathFiller {
	queue := make([]Node, len(w.filled), len(w.filled)+1)
	copy(queue, w.filled)
	if w.cursor != nil {
		queue = append(queue, w.cursor.rootInner(w.cursorDepth, newPathFiller(nil)))
	}
	return newPathFiller(queue)
}

// nextDepth returns the height of the next subtree to the right of the
// witnessed leaf that is still incomplete.
func (w *IncrementalWitness) nextDepth() int {
	skip := len(w.filled)

	if w.tree.left == nil || w.tree.right == nil {
		if skip == 0 {
			return 0
		}
		skip--
	}

	d := 1
	for _, p := range w.tree.parents {
		if p == nil {
			if skip == 0 {
				return d
			}
			skip--
		}
		d++
	}
	return d + skip
}

// Append replays a commitment appended to the tree after the snapshot.
func (w *IncrementalWitness) Append(node Node) error {
	if w.cursor != nil {
		if err := w.cursor.appendInner(node, w.cursorDepth); err != nil {
			return ErrWitnessFull
		}
		if w.cursor.isComplete(w.cursorDepth) {
			w.filled = append(w.filled, w.cursor.rootInner(w.cursorDepth, newPathFiller(nil)))
			w.cursor = nil
		}
		return nil
	}

	w.cursorDepth = w.nextDepth()
	if w.cursorDepth >= TreeDepth {
		return ErrWitnessFull
	}
	if w.cursorDepth == 0 {
		w.filled = append(w.filled, node)
		return nil
	}
	w.cursor = NewCommitmentTree()
	return w.cursor.appendInner(node, w.cursorDepth)
}

// Root returns the root the witness currently proves membership against.
func (w *IncrementalWitness) Root() Node {
	return w.tree.rootInner(TreeDepth, w.filler())
}

// Leaf returns the witnessed commitment.
func (w *IncrementalWitness) Leaf() (Node, error) {
	switch {
	case w.tree.right != nil:
		return *w.tree.right, nil
	case w.tree.left != nil:
		return *w.tree.left, nil
	}
	return Node{}, ErrTreeEmpty
}

// Path returns the authentication path of the witnessed commitment.
func (w *IncrementalWitness) Path() (*MerklePath, error) {
	if w.tree.left == nil {
		return nil, ErrTreeEmpty
	}
	filler := w.filler()
	path := &MerklePath{Position: w.Position()}

	if w.tree.right != nil {
		path.AuthPath[0] = *w.tree.left
	} else {
		path.AuthPath[0] = filler.next(0)
	}
	for i, p := range w.tree.parents {
		if p != nil {
			path.AuthPath[i+1] = *p
		} else {
			path.AuthPath[i+1] = filler.next(i + 1)
		}
	}
	for i := len(w.tree.parents); i < TreeDepth-1; i++ {
		path.AuthPath[i+1] = filler.next(i + 1)
	}
	return path, nil
}

// Serialize writes the witness: snapshot tree, filled nodes, optional
// cursor tree.
func (w *IncrementalWitness) Serialize(wr io.Writer) error {
	if err := w.tree.Serialize(wr); err != nil {
		return err
	}
	if err := writeNodes(wr, w.filled); err != nil {
		return err
	}
	if w.cursor == nil {
		_, err := wr.Write([]byte{0})
		return err
	}
	if _, err := wr.Write([]byte{1}); err != nil {
		return err
	}
	return w.cursor.Serialize(wr)
}

// Deserialize reads a witness written by Serialize.
func (w *IncrementalWitness) Deserialize(r io.Reader) error {
	tree := NewCommitmentTree()
	if err := tree.Deserialize(r); err != nil {
		return fmt.Errorf("read witness tree: %w", err)
	}
	filled, err := readNodes(r, TreeDepth)
	if err != nil {
		return fmt.Errorf("read filled nodes: %w", err)
	}
	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return fmt.Errorf("read cursor flag: %w", err)
	}
	var cursor *CommitmentTree
	switch flag[0] {
	case 0:
	case 1:
		cursor = NewCommitmentTree()
		if err := cursor.Deserialize(r); err != nil {
			return fmt.Errorf("read cursor: %w", err)
		}
	default:
		return fmt.Errorf("invalid cursor flag %#x", flag[0])
	}

	w.tree, w.filled, w.cursor = tree, filled, cursor
	w.cursorDepth = w.nextDepth()
	return nil
}

// MerklePath is an authentication path from a leaf to the root.
type MerklePath struct {
	AuthPath [TreeDepth]Node
	Position uint64
}

// Root folds leaf up the path.
func (p *MerklePath) Root(leaf Node) Node {
	cur := leaf
	for i, sibling := range p.AuthPath {
		if (p.Position>>uint(i))&1 == 1 {
			cur = combine(sibling, cur)
		} else {
			cur = combine(cur, sibling)
		}
	}
	return cur
}
