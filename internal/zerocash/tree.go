// tree.go - Append-only note commitment tree.
//
// The tree is kept as an incremental frontier: the two lowest leaves and one
// optional node per level above them. This is enough to append, compute the
// root and hand out witnesses, and it serializes to a few hundred bytes
// regardless of how many commitments were appended.

package zerocash

import (
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"
)

// TreeDepth is the fixed depth of the note commitment tree.
const TreeDepth = 32

var (
	// ErrTreeFull is returned when appending to a tree holding 2^TreeDepth
	// commitments.
	ErrTreeFull = errors.New("commitment tree is full")

	// ErrTreeEmpty is returned when an authentication path is requested
	// from an empty tree.
	ErrTreeEmpty = errors.New("commitment tree is empty")
)

// uncommitted is the value of an empty leaf.
var uncommitted = elementFromUint64(1)

// emptyRoots[i] is the root of an empty subtree of height i.
var emptyRoots [TreeDepth + 1]Node

func init() {
	emptyRoots[0] = nodeFromElement(&uncommitted)
	for i := 1; i <= TreeDepth; i++ {
		emptyRoots[i] = combine(emptyRoots[i-1], emptyRoots[i-1])
	}
}

// EmptyRoot returns the root of an empty subtree of the given height.
func EmptyRoot(height int) Node {
	return emptyRoots[height]
}

// combine hashes two sibling nodes into their parent.
func combine(left, right Node) Node {
	h := hashElements(left.Element(), right.Element())
	return nodeFromElement(&h)
}

// CommitmentTree is the frontier of the note commitment tree.
type CommitmentTree struct {
	left    *Node
	right   *Node
	parents []*Node
}

// NewCommitmentTree returns an empty tree.
func NewCommitmentTree() *CommitmentTree {
	return &CommitmentTree{}
}

// Size returns the number of commitments appended so far.
func (t *CommitmentTree) Size() uint64 {
	var size uint64
	switch {
	case t.left != nil && t.right != nil:
		size = 2
	case t.left != nil:
		size = 1
	}
	for i, p := range t.parents {
		if p != nil {
			size += 1 << (i + 1)
		}
	}
	return size
}

// isComplete reports whether the tree holds 2^depth leaves.
func (t *CommitmentTree) isComplete(depth int) bool {
	if depth == 0 {
		return t.left != nil && t.right == nil && len(t.parents) == 0
	}
	if t.left == nil || t.right == nil || len(t.parents) != depth-1 {
		return false
	}
	for _, p := range t.parents {
		if p == nil {
			return false
		}
	}
	return true
}

// IsFull reports whether no further commitments can be appended.
func (t *CommitmentTree) IsFull() bool {
	return t.isComplete(TreeDepth)
}

// Append adds a commitment to the right of the tree.
func (t *CommitmentTree) Append(node Node) error {
	return t.appendInner(node, TreeDepth)
}

func (t *CommitmentTree) appendInner(node Node, depth int) error {
	if t.isComplete(depth) {
		return ErrTreeFull
	}
	n := node
	switch {
	case t.left == nil:
		t.left = &n
	case t.right == nil:
		t.right = &n
	default:
		combined := combine(*t.left, *t.right)
		t.left = &n
		t.right = nil
		for i := 0; i < depth; i++ {
			if i < len(t.parents) {
				if p := t.parents[i]; p != nil {
					combined = combine(*p, combined)
					t.parents[i] = nil
					continue
				}
				c := combined
				t.parents[i] = &c
				break
			}
			c := combined
			t.parents = append(t.parents, &c)
			break
		}
	}
	return nil
}

// Root returns the current root of the tree.
func (t *CommitmentTree) Root() Node {
	return t.rootInner(TreeDepth, newPathFiller(nil))
}

// rootInner computes the root at depth, drawing missing right-hand nodes
// from filler.
func (t *CommitmentTree) rootInner(depth int, filler *pathFiller) Node {
	left := t.left
	if left == nil {
		n := filler.next(0)
		left = &n
	}
	right := t.right
	if right == nil {
		n := filler.next(0)
		right = &n
	}
	root := combine(*left, *right)

	for i, p := range t.parents {
		if p != nil {
			root = combine(*p, root)
		} else {
			root = combine(root, filler.next(i+1))
		}
	}
	for d := len(t.parents) + 1; d < depth; d++ {
		root = combine(root, filler.next(d))
	}
	return root
}

// Clone returns a deep copy of the tree.
func (t *CommitmentTree) Clone() *CommitmentTree {
	c := &CommitmentTree{
		left:    cloneNode(t.left),
		right:   cloneNode(t.right),
		parents: make([]*Node, len(t.parents)),
	}
	for i, p := range t.parents {
		c.parents[i] = cloneNode(p)
	}
	return c
}

func cloneNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

// Serialize writes the tree in its wire format:
// optional left, optional right, compact-size count, optional parents.
func (t *CommitmentTree) Serialize(w io.Writer) error {
	if err := writeOptionalNode(w, t.left); err != nil {
		return err
	}
	if err := writeOptionalNode(w, t.right); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, 0, uint64(len(t.parents))); err != nil {
		return err
	}
	for _, p := range t.parents {
		if err := writeOptionalNode(w, p); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize reads a tree written by Serialize.
func (t *CommitmentTree) Deserialize(r io.Reader) error {
	left, err := readOptionalNode(r)
	if err != nil {
		return fmt.Errorf("read left: %w", err)
	}
	right, err := readOptionalNode(r)
	if err != nil {
		return fmt.Errorf("read right: %w", err)
	}
	if left == nil && right != nil {
		return errors.New("tree has a right leaf without a left leaf")
	}
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return fmt.Errorf("read parent count: %w", err)
	}
	if count > TreeDepth-1 {
		return fmt.Errorf("tree has %d parents, at most %d allowed", count, TreeDepth-1)
	}
	parents := make([]*Node, count)
	for i := range parents {
		if parents[i], err = readOptionalNode(r); err != nil {
			return fmt.Errorf("read parent %d: %w", i, err)
		}
	}
	t.left, t.right, t.parents = left, right, parents
	return nil
}

func writeOptionalNode(w io.Writer, n *Node) error {
	if n == nil {
		_, err := w.Write([]byte{0})
		return err
	}
	if _, err := w.Write([]byte{1}); err != nil {
		return err
	}
	_, err := w.Write(n[:])
	return err
}

func readOptionalNode(r io.Reader) (*Node, error) {
	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return nil, err
	}
	switch flag[0] {
	case 0:
		return nil, nil
	case 1:
		var buf [NodeSize]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		n, err := NodeFromBytes(buf[:])
		if err != nil {
			return nil, err
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("invalid optional flag %#x", flag[0])
	}
}

func writeNodes(w io.Writer, nodes []Node) error {
	if err := wire.WriteVarInt(w, 0, uint64(len(nodes))); err != nil {
		return err
	}
	for _, n := range nodes {
		if _, err := w.Write(n[:]); err != nil {
			return err
		}
	}
	return nil
}

func readNodes(r io.Reader, max uint64) ([]Node, error) {
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	if count > max {
		return nil, fmt.Errorf("%d nodes exceed limit %d", count, max)
	}
	nodes := make([]Node, count)
	for i := range nodes {
		var buf [NodeSize]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		if nodes[i], err = NodeFromBytes(buf[:]); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}
