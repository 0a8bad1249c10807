package fsck_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzinger1/nufs/blockalloc"
	"github.com/mzinger1/nufs/chainalloc"
	"github.com/mzinger1/nufs/fsck"
	"github.com/mzinger1/nufs/image"
	"github.com/mzinger1/nufs/inode"
)

func newChecker(t *testing.T) (*fsck.Checker, *inode.Store, *chainalloc.ChainAlloc) {
	t.Helper()
	img, err := image.Open(filepath.Join(t.TempDir(), "test.img"))
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })

	blocks := blockalloc.New(img)
	chains := chainalloc.New(img, blocks)
	inodes := inode.New(img, blocks, chains)
	require.NoError(t, inodes.InitRoot())

	return fsck.New(img, blocks, chains, inodes), inodes, chains
}

func TestFreshImagePassesCheck(t *testing.T) {
	checker, _, _ := newChecker(t)
	assert.NoError(t, checker.Check())
}

func TestDetectsChainCycle(t *testing.T) {
	checker, inodes, chains := newChecker(t)

	idx, err := inodes.AllocInode()
	require.NoError(t, err)
	head, err := chains.AllocChain()
	require.NoError(t, err)

	// Point the node at itself, forming a one-node cycle.
	chains.At(head).SetNext(int32(head))

	node := inodes.At(idx)
	node.SetHead(int32(head))

	err = checker.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestDetectsUnallocatedBlockReference(t *testing.T) {
	checker, inodes, chains := newChecker(t)

	idx, err := inodes.AllocInode()
	require.NoError(t, err)
	head, err := chains.AllocChain()
	require.NoError(t, err)

	node := inodes.At(idx)
	node.SetHead(int32(head))

	// Point the chain node at a block no allocator ever handed out.
	chains.At(head).SetBlock(200)

	err = checker.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unallocated")
}
