package ledger

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/whalevault/relayd/x/proofs"
)

// Commitment leaves live in per-leaf program accounts: an 8-byte
// discriminator, the 32-byte leaf and its LE u64 tree index.
const leafAccountSize = 48

// WitnessSource resolves merkle witnesses against the on-chain commitment
// tree. Each lookup rebuilds the local tree from the cluster so the witness
// always reflects the root the program will verify against.
type WitnessSource struct {
	client    *Client
	programID string
	log       zerolog.Logger

	mu   sync.Mutex
	tree *Tree
}

var _ proofs.WitnessSource = (*WitnessSource)(nil)

func NewWitnessSource(client *Client, programID string, log zerolog.Logger) *WitnessSource {
	return &WitnessSource{
		client:    client,
		programID: programID,
		log:       log.With().Str("component", "merkle-witness").Logger(),
		tree:      NewTree(),
	}
}

// Witness implements proofs.WitnessSource.
func (w *WitnessSource) Witness(ctx context.Context, commitment []byte) (proofs.Witness, error) {
	if len(commitment) != 32 {
		return proofs.Witness{}, fmt.Errorf("commitment must be 32 bytes, got %d", len(commitment))
	}
	var leaf [32]byte
	copy(leaf[:], commitment)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.refresh(ctx); err != nil {
		return proofs.Witness{}, fmt.Errorf("sync commitment tree: %w", err)
	}

	wit, err := w.tree.WitnessFor(leaf)
	if err != nil {
		return proofs.Witness{}, fmt.Errorf("commitment not deposited: %w", err)
	}

	out := proofs.Witness{
		Root:         hex.EncodeToString(wit.Root[:]),
		PathElements: make([]string, TreeDepth),
		PathIndices:  wit.PathIndices,
	}
	for i, el := range wit.PathElements {
		out.PathElements[i] = hex.EncodeToString(el[:])
	}
	return out, nil
}

// refresh rebuilds the leaf set from the cluster. Leaves are stored in
// arbitrary account order and must be replayed by tree index.
func (w *WitnessSource) refresh(ctx context.Context) error {
	accounts, err := w.client.ProgramAccounts(ctx, w.programID, leafAccountSize)
	if err != nil {
		return err
	}

	type indexedLeaf struct {
		index uint64
		leaf  [32]byte
	}
	leaves := make([]indexedLeaf, 0, len(accounts))
	for _, data := range accounts {
		if len(data) != leafAccountSize {
			continue
		}
		var il indexedLeaf
		copy(il.leaf[:], data[8:40])
		il.index = binary.LittleEndian.Uint64(data[40:48])
		leaves = append(leaves, il)
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].index < leaves[j].index })

	tree := NewTree()
	for _, il := range leaves {
		if _, err := tree.Insert(il.leaf); err != nil {
			return err
		}
	}

	if tree.Size() != w.tree.Size() {
		w.log.Debug().
			Int("leaves", tree.Size()).
			Msg("commitment tree synced")
	}
	w.tree = tree
	return nil
}
