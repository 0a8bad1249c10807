package image_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzinger1/nufs/image"
)

func newTestImage(t *testing.T) (*image.Image, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.img")
	img, err := image.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })
	return img, path
}

func TestOpenFreshImageIsFullSizeAndReservesFirstTwoBlocks(t *testing.T) {
	img, path := newTestImage(t)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, image.Size, info.Size())

	bm := img.BlocksBitmap()
	assert.Equal(t, byte(0b11), bm[0]&0b11, "blocks 0 and 1 must start allocated")
}

func TestOpenExistingImageLoadsPriorContents(t *testing.T) {
	img, path := newTestImage(t)
	img.BlockPtr(image.FirstDataBlock)[0] = 0x42
	require.NoError(t, img.Sync())
	require.NoError(t, img.Close())

	reopened, err := image.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, byte(0x42), reopened.BlockPtr(image.FirstDataBlock)[0])
}

func TestBlockRegionsShareBackingArray(t *testing.T) {
	img, _ := newTestImage(t)

	block := img.BlockPtr(image.FirstDataBlock)
	block[0] = 0x7

	again := img.BlockPtr(image.FirstDataBlock)
	assert.Equal(t, byte(0x7), again[0])
}

func TestInodeTableRegionHoldsEveryRecord(t *testing.T) {
	img, _ := newTestImage(t)
	table := img.InodeTable()
	assert.GreaterOrEqual(t, len(table), image.InodeCount*image.InodeRecordSize)
}
