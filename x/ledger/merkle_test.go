package ledger

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Root of the empty depth-10 tree as precomputed by the on-chain program.
const emptyTreeRoot = "e026cc5a4aed3c22a58cbd3d2ac754c9352c5436f638042dca99034e83636516"

func leafOf(t *testing.T, hexStr string) [32]byte {
	t.Helper()
	raw, err := hex.DecodeString(hexStr)
	require.NoError(t, err)
	require.Len(t, raw, 32)
	var leaf [32]byte
	copy(leaf[:], raw)
	return leaf
}

func TestTree_EmptyRootMatchesOnChainConstant(t *testing.T) {
	root := NewTree().Root()
	require.Equal(t, emptyTreeRoot, hex.EncodeToString(root[:]))
}

func TestTree_InsertChangesRoot(t *testing.T) {
	tree := NewTree()
	empty := tree.Root()

	idx, err := tree.Insert(leafOf(t, strings.Repeat("4b", 32)))
	require.NoError(t, err)
	require.Zero(t, idx)
	require.NotEqual(t, empty, tree.Root())
}

func TestTree_WitnessVerifies(t *testing.T) {
	tree := NewTree()
	var leaves [][32]byte
	for i := byte(1); i <= 5; i++ {
		var leaf [32]byte
		for j := range leaf {
			leaf[j] = i
		}
		leaves = append(leaves, leaf)
		_, err := tree.Insert(leaf)
		require.NoError(t, err)
	}

	for _, leaf := range leaves {
		wit, err := tree.WitnessFor(leaf)
		require.NoError(t, err)
		require.Equal(t, tree.Root(), wit.Root)
		require.True(t, VerifyWitness(leaf, wit))
	}
}

func TestTree_WitnessRejectsWrongLeaf(t *testing.T) {
	tree := NewTree()
	var leaf [32]byte
	leaf[0] = 0x42
	_, err := tree.Insert(leaf)
	require.NoError(t, err)

	wit, err := tree.WitnessFor(leaf)
	require.NoError(t, err)

	var other [32]byte
	other[0] = 0x43
	require.False(t, VerifyWitness(other, wit))
}

func TestTree_UnknownLeaf(t *testing.T) {
	tree := NewTree()
	var leaf [32]byte
	leaf[0] = 0x01
	_, err := tree.WitnessFor(leaf)
	require.Error(t, err)
}

func TestTree_FullTreeRejectsInsert(t *testing.T) {
	tree := NewTree()
	for i := 0; i < 1<<TreeDepth; i++ {
		var leaf [32]byte
		leaf[0] = byte(i)
		leaf[1] = byte(i >> 8)
		_, err := tree.Insert(leaf)
		require.NoError(t, err)
	}
	var leaf [32]byte
	_, err := tree.Insert(leaf)
	require.Error(t, err)
}
