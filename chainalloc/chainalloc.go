// Package chainalloc manages the shared table of (block, next) chain
// nodes that lives entirely in block 1 of the image. Each inode's chain of
// data blocks is a singly-linked list threaded through this table, head
// node first. Adapted in spirit from the teacher's
// drivers/common/blockmanager.go allocation scan, applied to the
// fixed-layout chain pool described by the original blist.c.
package chainalloc

import (
	"encoding/binary"

	"github.com/mzinger1/nufs/blockalloc"
	"github.com/mzinger1/nufs/image"
	"github.com/mzinger1/nufs/nufserrors"
)

// Node is a view over one (block, next) entry in the chain pool. Fields
// are stored little-endian regardless of host architecture, per
// spec.md §6's portability note.
type Node struct {
	region []byte
}

// Block returns the data block index this node names, or 0 if the node is
// free.
func (n Node) Block() int32 {
	return int32(binary.LittleEndian.Uint32(n.region[0:4]))
}

// SetBlock sets the data block index this node names.
func (n Node) SetBlock(block int32) {
	binary.LittleEndian.PutUint32(n.region[0:4], uint32(block))
}

// Next returns the index of the next chain node, or 0 if this node
// terminates its chain.
func (n Node) Next() int32 {
	return int32(binary.LittleEndian.Uint32(n.region[4:8]))
}

// SetNext sets the index of the next chain node.
func (n Node) SetNext(next int32) {
	binary.LittleEndian.PutUint32(n.region[4:8], uint32(next))
}

// IsFree reports whether this slot holds no data block.
func (n Node) IsFree() bool {
	return n.Block() == 0
}

// ChainAlloc allocates entries from the block-1 chain-node pool.
type ChainAlloc struct {
	img    *image.Image
	blocks *blockalloc.BlockAlloc
}

// New creates a ChainAlloc over the given image, using blocks to satisfy
// the data-block allocation each new chain node requires.
func New(img *image.Image, blocks *blockalloc.BlockAlloc) *ChainAlloc {
	return &ChainAlloc{img: img, blocks: blocks}
}

// At returns the chain node at the given index.
func (c *ChainAlloc) At(index int) Node {
	pool := c.img.ChainPool()
	offset := index * image.ChainNodeSize
	return Node{region: pool[offset : offset+image.ChainNodeSize]}
}

// AllocChain scans the chain pool in order for the first free slot
// (block == 0), allocates a fresh data block for it, and returns the
// slot's index with next left at 0. The caller is responsible for linking
// the new node into an existing chain's tail.
func (c *ChainAlloc) AllocChain() (int, error) {
	for i := 0; i < image.ChainPoolCapacity; i++ {
		node := c.At(i)
		if node.IsFree() {
			block, err := c.blocks.AllocBlock()
			if err != nil {
				return -1, err
			}
			node.SetBlock(int32(block))
			node.SetNext(0)
			return i, nil
		}
	}
	return -1, nufserrors.ErrNoSpaceOnDevice
}
