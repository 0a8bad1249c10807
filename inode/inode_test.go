package inode_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzinger1/nufs/blockalloc"
	"github.com/mzinger1/nufs/chainalloc"
	"github.com/mzinger1/nufs/image"
	"github.com/mzinger1/nufs/inode"
)

func newStore(t *testing.T) (*inode.Store, *blockalloc.BlockAlloc, *chainalloc.ChainAlloc) {
	t.Helper()
	img, err := image.Open(filepath.Join(t.TempDir(), "test.img"))
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })

	blocks := blockalloc.New(img)
	chains := chainalloc.New(img, blocks)
	store := inode.New(img, blocks, chains)
	require.NoError(t, store.InitRoot())
	return store, blocks, chains
}

func TestInitRootIsIdempotent(t *testing.T) {
	store, _, _ := newStore(t)
	root := store.At(inode.RootInode)
	assert.EqualValues(t, 1, root.Refs())
	assert.EqualValues(t, inode.RootMode, root.Mode())

	require.NoError(t, store.InitRoot())
	assert.EqualValues(t, 1, store.At(inode.RootInode).Refs(), "re-init must not double-initialize the root")
}

func TestAllocInodeSkipsOccupiedSlots(t *testing.T) {
	store, _, _ := newStore(t)
	idx, err := store.AllocInode()
	require.NoError(t, err)
	assert.NotEqual(t, inode.RootInode, idx)
	assert.True(t, store.Exists(idx))
}

func TestGrowInodeExtendsChainToFitSize(t *testing.T) {
	store, _, chains := newStore(t)
	idx, err := store.AllocInode()
	require.NoError(t, err)

	head, err := chains.AllocChain()
	require.NoError(t, err)
	node := store.At(idx)
	node.SetHead(int32(head))
	node.SetSize(0)

	require.NoError(t, store.GrowInode(idx, image.BlockSize*2+1))

	count := 0
	chain := chains.At(head)
	for {
		count++
		if chain.Next() == 0 {
			break
		}
		chain = chains.At(int(chain.Next()))
	}
	assert.GreaterOrEqual(t, count, 3, "must have at least 3 blocks to hold BlockSize*2+1 bytes")
}

func TestFreeInodeReleasesAllChainBlocksAndTheSlot(t *testing.T) {
	store, blocks, chains := newStore(t)
	idx, err := store.AllocInode()
	require.NoError(t, err)

	head, err := chains.AllocChain()
	require.NoError(t, err)
	node := store.At(idx)
	node.SetHead(int32(head))
	node.SetRefs(1)

	headBlock := int(chains.At(head).Block())
	require.True(t, blocks.IsAllocated(headBlock))

	store.FreeInode(idx)

	assert.False(t, blocks.IsAllocated(headBlock))
	assert.False(t, store.Exists(idx))
}

// TestShrinkInodeQuirk pins down ShrinkInode's faithfully-preserved bug:
// the loop condition compares against node.Size() while that same field
// is being decremented inside the loop body, and each iteration frees the
// *chain-node index* of the next node as if it were a data block index,
// rather than that node's actually recorded block.
func TestShrinkInodeQuirk(t *testing.T) {
	store, blocks, chains := newStore(t)
	idx, err := store.AllocInode()
	require.NoError(t, err)

	// Lay out a 3-node chain by hand so every index is known: head -> 20 -> 30.
	const headIdx, midIdx, tailIdx = 10, 20, 30
	head := chains.At(headIdx)
	head.SetBlock(50)
	head.SetNext(midIdx)

	mid := chains.At(midIdx)
	mid.SetBlock(60)
	mid.SetNext(tailIdx)

	tail := chains.At(tailIdx)
	tail.SetBlock(70)
	tail.SetNext(0)

	node := store.At(idx)
	node.SetHead(headIdx)
	node.SetSize(3 * image.BlockSize)

	// Mark the chain-node indices themselves allocated in the block
	// bitmap, standing in for "whatever real block happens to share that
	// index" -- these are what the bug actually frees.
	allocateBlockAtIndex(t, blocks, midIdx)
	allocateBlockAtIndex(t, blocks, tailIdx)

	require.NoError(t, store.ShrinkInode(idx, 0))

	assert.EqualValues(t, 0, store.At(idx).Size())
	assert.False(t, blocks.IsAllocated(midIdx), "bug frees the block at the *next chain node's index*")
	assert.False(t, blocks.IsAllocated(tailIdx), "bug frees the block at the *next chain node's index*")
}

// allocateBlockAtIndex forces blocks' first-fit allocator to hand out
// exactly the block at want, by exhausting every lower index first.
func allocateBlockAtIndex(t *testing.T, blocks *blockalloc.BlockAlloc, want int) {
	t.Helper()
	for {
		got, err := blocks.AllocBlock()
		require.NoError(t, err)
		if got == want {
			return
		}
	}
}
