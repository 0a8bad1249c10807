// Package inode allocates and frees inodes in the inode table, and grows
// or shrinks an inode's chain as its size changes. Adapted from the
// original_source/inode.c, with the pointer-into-mmap style traded for
// index-based views over byte regions (per spec.md §9's "indices, not
// pointers" design note) in the manner of the teacher's
// drivers/common/blockmanager.go.
package inode

import (
	"encoding/binary"
	"fmt"

	"github.com/mzinger1/nufs/bitmap"
	"github.com/mzinger1/nufs/blockalloc"
	"github.com/mzinger1/nufs/chainalloc"
	"github.com/mzinger1/nufs/image"
	"github.com/mzinger1/nufs/nufserrors"
)

// DirModeBit, set in Mode, marks an inode as a directory.
const DirModeBit = 0o040000

// RootMode is the mode the root directory is given at image
// initialization.
const RootMode = 0o040775

// RootInode is the inode index of the root directory. It is created at
// image initialization and never freed.
const RootInode = 0

// Inode is a view over one 16-byte inode record: refs, mode, size and
// head_chain, each a little-endian int32.
type Inode struct {
	region []byte
}

func (n Inode) Refs() int32       { return int32(binary.LittleEndian.Uint32(n.region[0:4])) }
func (n Inode) SetRefs(v int32)   { binary.LittleEndian.PutUint32(n.region[0:4], uint32(v)) }
func (n Inode) Mode() int32       { return int32(binary.LittleEndian.Uint32(n.region[4:8])) }
func (n Inode) SetMode(v int32)   { binary.LittleEndian.PutUint32(n.region[4:8], uint32(v)) }
func (n Inode) Size() int32       { return int32(binary.LittleEndian.Uint32(n.region[8:12])) }
func (n Inode) SetSize(v int32)   { binary.LittleEndian.PutUint32(n.region[8:12], uint32(v)) }
func (n Inode) HeadChain() int32  { return int32(binary.LittleEndian.Uint32(n.region[12:16])) }
func (n Inode) SetHead(v int32)   { binary.LittleEndian.PutUint32(n.region[12:16], uint32(v)) }
func (n Inode) IsDir() bool       { return n.Mode()&DirModeBit != 0 }

// Store allocates, frees, grows and shrinks inodes in the image's inode
// table.
type Store struct {
	img    *image.Image
	blocks *blockalloc.BlockAlloc
	chains *chainalloc.ChainAlloc
}

// New creates a Store over the given image.
func New(img *image.Image, blocks *blockalloc.BlockAlloc, chains *chainalloc.ChainAlloc) *Store {
	return &Store{img: img, blocks: blocks, chains: chains}
}

func (s *Store) bitmap() bitmap.Bitmap {
	return bitmap.Over(s.img.InodeBitmap())
}

// At returns a view of the inode record at the given index.
func (s *Store) At(index int32) Inode {
	table := s.img.InodeTable()
	offset := int(index) * image.InodeRecordSize
	return Inode{region: table[offset : offset+image.InodeRecordSize]}
}

// Exists reports whether inode i is currently occupied.
func (s *Store) Exists(i int32) bool {
	return s.bitmap().Get(int(i)) != 0
}

// AllocInode scans the inode bitmap first-fit, marks the slot occupied,
// and returns its index. Returns ErrNoSpaceOnDevice if the table is full.
func (s *Store) AllocInode() (int32, error) {
	bm := s.bitmap()
	for i := 0; i < image.InodeCount; i++ {
		if bm.Get(i) == 0 {
			bm.Put(i, 1)
			return int32(i), nil
		}
	}
	return -1, nufserrors.ErrNoSpaceOnDevice
}

// InitRoot sets up inode 0 as an empty root directory with one data block
// already allocated for its directory entries, matching directory_init()
// in the original source.
func (s *Store) InitRoot() error {
	if s.Exists(RootInode) {
		return nil
	}
	s.bitmap().Put(RootInode, 1)

	head, err := s.chains.AllocChain()
	if err != nil {
		return nufserrors.ErrNoSpaceOnDevice.WithMessage("failed to allocate root directory block")
	}

	root := s.At(RootInode)
	root.SetRefs(1)
	root.SetMode(RootMode)
	root.SetSize(0)
	root.SetHead(int32(head))
	return nil
}

// FreeInode walks the chain from the inode's head, freeing every data
// block it names, then clears the inode bitmap bit and decrements refs.
func (s *Store) FreeInode(index int32) {
	node := s.At(index)
	chain := s.chains.At(int(node.HeadChain()))
	for {
		s.blocks.FreeBlock(int(chain.Block()))
		chain.SetBlock(0)
		if chain.Next() == 0 {
			break
		}
		chain = s.chains.At(int(chain.Next()))
	}
	s.bitmap().Put(int(index), 0)
	node.SetRefs(node.Refs() - 1)
}

// GrowInode extends the inode's chain, allocating new chain nodes as
// needed, until it has enough blocks to hold size bytes, then sets Size.
func (s *Store) GrowInode(index int32, size int32) error {
	node := s.At(index)
	chain := s.chains.At(int(node.HeadChain()))
	k := int32(1)
	for k*image.BlockSize < size {
		if chain.Next() == 0 {
			next, err := s.chains.AllocChain()
			if err != nil {
				return err
			}
			chain.SetNext(int32(next))
		}
		chain = s.chains.At(int(chain.Next()))
		k++
	}
	node.SetSize(size)
	return nil
}

// ShrinkInode reduces the inode's size, freeing trailing data blocks.
//
// The loop condition and the block it frees are preserved exactly as in
// original_source/inode.c: it compares against node.Size() while that
// same field is being decremented in the loop body, and it frees the
// block named by the *next* chain-node index rather than that node's
// recorded block. This is a known, faithfully-preserved quirk -- see
// DESIGN.md and TestShrinkInodeQuirk.
func (s *Store) ShrinkInode(index int32, size int32) error {
	node := s.At(index)
	chain := s.chains.At(int(node.HeadChain()))
	i := int32(1)
	for i*node.Size() > size {
		next := chain.Next()
		if next != 0 {
			s.blocks.FreeBlock(int(next))
		}
		chain = s.chains.At(int(next))
		node.SetSize(node.Size() - image.BlockSize)
		i++
	}
	node.SetSize(size)
	return nil
}

// PrintInode renders an inode's metadata for diagnostics.
func PrintInode(n Inode) string {
	return fmt.Sprintf(
		"refs %d\nmode: %#o\nsize (bytes): %d\nhead chain: %d\n",
		n.Refs(), n.Mode(), n.Size(), n.HeadChain(),
	)
}
