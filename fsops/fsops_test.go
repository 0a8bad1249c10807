package fsops_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzinger1/nufs/blockalloc"
	"github.com/mzinger1/nufs/chainalloc"
	"github.com/mzinger1/nufs/directory"
	"github.com/mzinger1/nufs/fsops"
	"github.com/mzinger1/nufs/image"
	"github.com/mzinger1/nufs/inode"
)

func newOps(t *testing.T) (*fsops.FSOps, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.img")
	ops, err := fsops.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ops.Close() })
	return ops, path
}

// refsOf re-opens the image independently of ops and reads the refs count
// for path, to check bookkeeping fsops's own API doesn't expose directly.
func refsOf(t *testing.T, path string, target string) int32 {
	t.Helper()
	img, err := image.Open(path)
	require.NoError(t, err)
	defer img.Close()

	blocks := blockalloc.New(img)
	chains := chainalloc.New(img, blocks)
	inodes := inode.New(img, blocks, chains)
	resolver := directory.New(img, chains, inodes)

	idx := resolver.FindInodeIndex(target)
	require.GreaterOrEqual(t, idx, int32(0))
	return inodes.At(idx).Refs()
}

// S1 -- root listing.
func TestRootListingAndAttrs(t *testing.T) {
	ops, _ := newOps(t)

	names, rv := ops.Readdir("/")
	require.Equal(t, 0, rv)
	assert.Empty(t, names)

	var st fsops.Stat
	require.Equal(t, 0, ops.Getattr("/", &st))
	assert.EqualValues(t, inode.RootMode, st.Mode)
	assert.EqualValues(t, 0, st.Size)
}

// S2 -- create/list.
func TestMknodThenListAndAttrs(t *testing.T) {
	ops, _ := newOps(t)

	require.Equal(t, 0, ops.Mknod("/a", 0o100644))

	names, rv := ops.Readdir("/")
	require.Equal(t, 0, rv)
	assert.Equal(t, []string{"a"}, names)

	var st fsops.Stat
	require.Equal(t, 0, ops.Getattr("/a", &st))
	assert.EqualValues(t, 0o100644, st.Mode)
	assert.EqualValues(t, 0, st.Size)
}

// S3 -- write/read under one block.
func TestWriteThenReadUnderOneBlock(t *testing.T) {
	ops, _ := newOps(t)
	require.Equal(t, 0, ops.Mknod("/a", 0o100644))

	data := []byte("hello")
	n := ops.Write("/a", data, len(data), 0)
	require.Equal(t, 5, n)

	buf := make([]byte, 5)
	n = ops.Read("/a", buf, 5, 0)
	require.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))
}

// S4 -- truncate grows multi-block.
func TestTruncateGrowsMultiBlock(t *testing.T) {
	ops, _ := newOps(t)
	require.Equal(t, 0, ops.Mknod("/b", 0o100644))
	require.Equal(t, 0, ops.Truncate("/b", image.BlockSize*2))

	var st fsops.Stat
	require.Equal(t, 0, ops.Getattr("/b", &st))
	assert.EqualValues(t, image.BlockSize*2, st.Size)
}

// Read must not panic when a file's chain has grown past the number of
// blocks that fit in the caller's buffer -- ShrinkInode never unlinks the
// trailing chain nodes it skips over.
func TestReadStopsAtBufferEndOnOversizedChain(t *testing.T) {
	ops, _ := newOps(t)
	require.Equal(t, 0, ops.Mknod("/c", 0o100644))
	require.Equal(t, 0, ops.Truncate("/c", image.BlockSize*2))
	require.Equal(t, 0, ops.Truncate("/c", 5))

	buf := make([]byte, 5)
	assert.NotPanics(t, func() {
		ops.Read("/c", buf, 5, 0)
	})
}

// S5 -- rmdir refuses non-empty.
func TestRmdirRefusesNonEmptyDirectory(t *testing.T) {
	ops, _ := newOps(t)
	require.Equal(t, 0, ops.Mkdir("/d", 0o775))
	require.Equal(t, 0, ops.Mknod("/d/x", 0o100644))

	assert.Less(t, ops.Rmdir("/d"), 0)
}

// S6 -- link semantics.
func TestLinkSharesInodeAndAccumulatesRefs(t *testing.T) {
	ops, path := newOps(t)
	require.Equal(t, 0, ops.Mknod("/f", 0o100644))
	require.Equal(t, 0, ops.Link("/f", "/g"))

	var stf, stg fsops.Stat
	require.Equal(t, 0, ops.Getattr("/f", &stf))
	require.Equal(t, 0, ops.Getattr("/g", &stg))
	assert.Equal(t, stf.Mode, stg.Mode)
	assert.Equal(t, stf.Size, stg.Size)

	// refs: 1 from mknod itself, +1 from directory_put's own increment,
	// +1 from link's directory_put -- see §9's refcount-accounting note.
	assert.EqualValues(t, 3, refsOf(t, path, "/f"))
}

func TestAccessReportsMissingPath(t *testing.T) {
	ops, _ := newOps(t)
	assert.NotEqual(t, 0, ops.Access("/nope"))
}

func TestUnlinkRemovesEntry(t *testing.T) {
	ops, _ := newOps(t)
	require.Equal(t, 0, ops.Mknod("/a", 0o100644))
	require.Equal(t, 0, ops.Unlink("/a"))

	names, rv := ops.Readdir("/")
	require.Equal(t, 0, rv)
	assert.Empty(t, names)
}
