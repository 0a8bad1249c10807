// Package blockalloc allocates and frees the 4 KiB data blocks of a NUFS
// image, tracked by the block bitmap in block 0. Adapted from the
// teacher's drivers/common/blockmanager.go, simplified to the single
// first-fit scan spec.md §4.3 calls for (no contiguous-run allocation --
// chains never need more than one block at a time).
package blockalloc

import (
	"github.com/mzinger1/nufs/bitmap"
	"github.com/mzinger1/nufs/image"
	"github.com/mzinger1/nufs/nufserrors"
)

// BlockAlloc allocates and frees data blocks from an image's block pool.
type BlockAlloc struct {
	img *image.Image
}

// New creates a BlockAlloc over the given image.
func New(img *image.Image) *BlockAlloc {
	return &BlockAlloc{img: img}
}

func (a *BlockAlloc) bitmap() bitmap.Bitmap {
	return bitmap.Over(a.img.BlocksBitmap())
}

// AllocBlock scans indices 2..255 (skipping the reserved metadata and
// chain-pool blocks), returns the first index whose bit is clear, and
// marks it allocated. Returns ErrNoSpaceOnDevice if the image is full.
func (a *BlockAlloc) AllocBlock() (int, error) {
	bm := a.bitmap()
	for i := image.FirstDataBlock; i < image.BlockCount; i++ {
		if bm.Get(i) == 0 {
			bm.Put(i, 1)
			return i, nil
		}
	}
	return -1, nufserrors.ErrNoSpaceOnDevice
}

// FreeBlock clears the bit for block i. It does not zero the block's
// contents.
func (a *BlockAlloc) FreeBlock(i int) {
	a.bitmap().Put(i, 0)
}

// IsAllocated reports whether block i is currently marked in use.
func (a *BlockAlloc) IsAllocated(i int) bool {
	return a.bitmap().Get(i) != 0
}
