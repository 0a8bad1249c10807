// Package fsck validates the structural invariants of a NUFS image:
// reserved blocks are marked allocated, and every inode's chain is acyclic
// and points only at allocated blocks. Directory entries are not examined.
// Adapted from the
// teacher's cmd/main.go Verify path, which collects every broken
// invariant with hashicorp/go-multierror instead of stopping at the
// first one.
package fsck

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/mzinger1/nufs/blockalloc"
	"github.com/mzinger1/nufs/chainalloc"
	"github.com/mzinger1/nufs/image"
	"github.com/mzinger1/nufs/inode"
)

// Checker runs consistency passes over an open image.
type Checker struct {
	img    *image.Image
	blocks *blockalloc.BlockAlloc
	chains *chainalloc.ChainAlloc
	inodes *inode.Store
}

// New creates a Checker over the given storage layers.
func New(img *image.Image, blocks *blockalloc.BlockAlloc, chains *chainalloc.ChainAlloc, inodes *inode.Store) *Checker {
	return &Checker{img: img, blocks: blocks, chains: chains, inodes: inodes}
}

// Check runs every pass and returns the accumulated violations, nil if
// none were found.
func (c *Checker) Check() error {
	var result *multierror.Error
	result = multierror.Append(result, c.checkReservedBlocks())
	result = multierror.Append(result, c.checkChains()...)
	return result.ErrorOrNil()
}

// checkReservedBlocks verifies the metadata block and chain-node pool
// block are always marked allocated.
func (c *Checker) checkReservedBlocks() error {
	if !c.blocks.IsAllocated(image.MetadataBlock) {
		return fmt.Errorf("block %d (metadata) is not marked allocated", image.MetadataBlock)
	}
	if !c.blocks.IsAllocated(image.ChainPoolBlock) {
		return fmt.Errorf("block %d (chain pool) is not marked allocated", image.ChainPoolBlock)
	}
	return nil
}

// checkChains walks every occupied inode's chain, flagging cycles and
// references to unallocated blocks.
func (c *Checker) checkChains() []error {
	var errs []error
	for i := int32(0); i < image.InodeCount; i++ {
		if !c.inodes.Exists(i) {
			continue
		}
		node := c.inodes.At(i)

		visited := make(map[int32]bool)
		chainIdx := node.HeadChain()
		for steps := 0; steps < image.ChainPoolCapacity+1; steps++ {
			if visited[chainIdx] {
				errs = append(errs, fmt.Errorf("inode %d: chain cycle detected at node %d", i, chainIdx))
				break
			}
			visited[chainIdx] = true

			chain := c.chains.At(int(chainIdx))
			if chain.Block() != 0 && !c.blocks.IsAllocated(int(chain.Block())) {
				errs = append(errs, fmt.Errorf("inode %d: chain node %d names unallocated block %d", i, chainIdx, chain.Block()))
			}
			if chain.Next() == 0 {
				break
			}
			chainIdx = chain.Next()
		}
	}
	return errs
}
