package ledger

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// TreeDepth matches the on-chain commitment tree: 10 levels, 1024 leaves.
const TreeDepth = 10

// zeroValue fills empty leaves; it is keccak256 of the empty byte string and
// must match the on-chain program.
var zeroValue = [32]byte{
	0x29, 0x0d, 0xec, 0xd9, 0x54, 0x8b, 0x62, 0xa8,
	0xd6, 0x03, 0x45, 0xa9, 0x88, 0x38, 0x6f, 0xc8,
	0x4b, 0xa6, 0xbc, 0x95, 0x48, 0x40, 0x08, 0xf6,
	0x36, 0x2f, 0x93, 0x16, 0x0e, 0xf3, 0xe5, 0x63,
}

// zeroHashes[i] is the root of an empty subtree of height i:
// zeroHashes[0] = zeroValue, zeroHashes[i] = keccak(zeroHashes[i-1] || zeroHashes[i-1]).
var zeroHashes = computeZeroHashes()

func computeZeroHashes() [TreeDepth + 1][32]byte {
	var zeros [TreeDepth + 1][32]byte
	zeros[0] = zeroValue
	for i := 1; i <= TreeDepth; i++ {
		zeros[i] = hashPair(zeros[i-1], zeros[i-1])
	}
	return zeros
}

func hashPair(left, right [32]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(left[:])
	h.Write(right[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Tree is an append-only keccak merkle tree mirroring the on-chain
// commitment tree. It keeps all leaves so it can produce membership
// witnesses, which the on-chain incremental tree cannot.
type Tree struct {
	leaves [][32]byte
}

func NewTree() *Tree {
	return &Tree{}
}

// Insert appends a leaf and returns its index.
func (t *Tree) Insert(leaf [32]byte) (int, error) {
	if len(t.leaves) >= 1<<TreeDepth {
		return 0, fmt.Errorf("commitment tree is full (%d leaves)", 1<<TreeDepth)
	}
	t.leaves = append(t.leaves, leaf)
	return len(t.leaves) - 1, nil
}

// Size returns the number of inserted leaves.
func (t *Tree) Size() int {
	return len(t.leaves)
}

// Root computes the current root over all leaves plus zero padding.
func (t *Tree) Root() [32]byte {
	level := make([][32]byte, len(t.leaves))
	copy(level, t.leaves)

	for height := 0; height < TreeDepth; height++ {
		next := make([][32]byte, (len(level)+1)/2)
		for i := range next {
			left := zeroHashes[height]
			right := zeroHashes[height]
			if 2*i < len(level) {
				left = level[2*i]
			}
			if 2*i+1 < len(level) {
				right = level[2*i+1]
			}
			next[i] = hashPair(left, right)
		}
		if len(next) == 0 {
			next = [][32]byte{zeroHashes[height+1]}
		}
		level = next
	}
	return level[0]
}

// MerkleWitness is a membership proof for one leaf.
type MerkleWitness struct {
	Root         [32]byte
	PathElements [][32]byte // sibling per level, leaf to root
	PathIndices  []int      // 0 = leaf on the left, 1 = leaf on the right
}

// WitnessFor builds the membership witness for a leaf.
func (t *Tree) WitnessFor(leaf [32]byte) (MerkleWitness, error) {
	index := -1
	for i, l := range t.leaves {
		if bytes.Equal(l[:], leaf[:]) {
			index = i
			break
		}
	}
	if index < 0 {
		return MerkleWitness{}, fmt.Errorf("leaf not found in commitment tree")
	}

	wit := MerkleWitness{
		PathElements: make([][32]byte, TreeDepth),
		PathIndices:  make([]int, TreeDepth),
	}

	level := make([][32]byte, len(t.leaves))
	copy(level, t.leaves)
	pos := index

	for height := 0; height < TreeDepth; height++ {
		sibling := zeroHashes[height]
		if pos%2 == 0 {
			if pos+1 < len(level) {
				sibling = level[pos+1]
			}
			wit.PathIndices[height] = 0
		} else {
			sibling = level[pos-1]
			wit.PathIndices[height] = 1
		}
		wit.PathElements[height] = sibling

		next := make([][32]byte, (len(level)+1)/2)
		for i := range next {
			left := zeroHashes[height]
			right := zeroHashes[height]
			if 2*i < len(level) {
				left = level[2*i]
			}
			if 2*i+1 < len(level) {
				right = level[2*i+1]
			}
			next[i] = hashPair(left, right)
		}
		if len(next) == 0 {
			next = [][32]byte{zeroHashes[height+1]}
		}
		level = next
		pos /= 2
	}

	wit.Root = level[0]
	return wit, nil
}

// VerifyWitness recomputes the root from a leaf and its witness.
func VerifyWitness(leaf [32]byte, wit MerkleWitness) bool {
	if len(wit.PathElements) != TreeDepth || len(wit.PathIndices) != TreeDepth {
		return false
	}
	current := leaf
	for height := 0; height < TreeDepth; height++ {
		if wit.PathIndices[height] == 0 {
			current = hashPair(current, wit.PathElements[height])
		} else {
			current = hashPair(wit.PathElements[height], current)
		}
	}
	return current == wit.Root
}
