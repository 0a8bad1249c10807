// Package image opens or creates the fixed-size backing file for a NUFS
// volume and exposes it as a flat, byte-addressable region with
// block-indexed access. Adapted from the teacher's
// drivers/common/blockdevice.go: where that type wraps a stream and seeks
// to a block before every read/write, Image instead keeps the whole image
// resident in one []byte buffer and hands out slices of it directly. Go
// slices share their backing array, so two regions carved from the same
// buffer observe each other's writes without any extra synchronization --
// the same "shared mapping" property the original C implementation got
// from mmap(MAP_SHARED), without depending on the platform having mmap.
package image

import (
	"io"
	"os"

	"github.com/xaionaro-go/bytesextra"

	"github.com/mzinger1/nufs/nufserrors"
)

const (
	// BlockSize is the size, in bytes, of one block.
	BlockSize = 4096
	// BlockCount is the number of addressable blocks in the image.
	BlockCount = 256
	// Size is the total size, in bytes, of a NUFS image.
	Size = BlockSize * BlockCount

	// BlockBitmapSize is the size, in bytes, of the block bitmap.
	BlockBitmapSize = BlockCount / 8
	// InodeBitmapSize is the size, in bytes, of the inode bitmap.
	InodeBitmapSize = 31
	// InodeRecordSize is the size, in bytes, of one inode record.
	InodeRecordSize = 16
	// InodeCount is the number of inode slots in the inode table.
	InodeCount = 8 * InodeBitmapSize

	// InodeTableOffset is the offset, within block 0, of the first inode record.
	InodeTableOffset = BlockBitmapSize + InodeBitmapSize

	// ChainNodeSize is the size, in bytes, of one (block, next) chain node.
	ChainNodeSize = 8
	// ChainPoolCapacity is the number of chain nodes that fit in block 1.
	ChainPoolCapacity = BlockSize / ChainNodeSize

	// MetadataBlock is the index of the block-0 metadata block.
	MetadataBlock = 0
	// ChainPoolBlock is the index of the block-1 chain-node pool.
	ChainPoolBlock = 1
	// FirstDataBlock is the first index usable for file/directory data.
	FirstDataBlock = 2
)

// Image is the memory-resident, byte-addressable view of a NUFS volume.
// It is not safe for concurrent use: per spec.md §5, the core is
// single-threaded and callers must serialize access themselves.
type Image struct {
	file *os.File
	data []byte
}

// Open loads the image at path, creating and formatting a fresh one if it
// doesn't already exist. Fails fatally (per spec.md §4.1) if the backing
// file cannot be opened, sized or read -- the core treats these as
// unrecoverable.
func Open(path string) (*Image, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, nufserrors.ErrBlockDeviceRequired.WrapError(err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nufserrors.ErrBlockDeviceRequired.WrapError(err)
	}

	img := &Image{file: file, data: make([]byte, Size)}

	isNew := info.Size() == 0
	if !isNew {
		if _, err := io.ReadFull(io.NewSectionReader(file, 0, Size), img.data); err != nil {
			file.Close()
			return nil, nufserrors.ErrFileSystemCorrupted.WrapError(err)
		}
	}

	if err := file.Truncate(Size); err != nil {
		file.Close()
		return nil, nufserrors.ErrBlockDeviceRequired.WrapError(err)
	}

	if isNew {
		bitmap := img.BlocksBitmap()
		bitmap[0] |= 1 << 0 // block 0 (metadata) is always allocated
		bitmap[0] |= 1 << 1 // block 1 (chain pool) is always allocated
		if err := img.Sync(); err != nil {
			file.Close()
			return nil, err
		}
	}

	return img, nil
}

// Stream returns the image's contents wrapped as an io.ReadWriteSeeker,
// for callers that prefer seek-based access to the whole image instead of
// slicing block regions directly.
func (img *Image) Stream() io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(img.data)
}

// BlockPtr returns the byte region for block i, 0 <= i < BlockCount.
func (img *Image) BlockPtr(i int) []byte {
	return img.data[i*BlockSize : (i+1)*BlockSize]
}

// BlocksBitmap returns the byte region of the 256-bit block bitmap.
func (img *Image) BlocksBitmap() []byte {
	return img.BlockPtr(MetadataBlock)[0:BlockBitmapSize]
}

// InodeBitmap returns the byte region of the 248-bit inode bitmap.
func (img *Image) InodeBitmap() []byte {
	block := img.BlockPtr(MetadataBlock)
	return block[BlockBitmapSize : BlockBitmapSize+InodeBitmapSize]
}

// InodeTable returns the byte region holding all 248 inode records.
func (img *Image) InodeTable() []byte {
	return img.BlockPtr(MetadataBlock)[InodeTableOffset:BlockSize]
}

// ChainPool returns the byte region of the block-1 chain-node array.
func (img *Image) ChainPool() []byte {
	return img.BlockPtr(ChainPoolBlock)
}

// Sync flushes the in-memory image back to the backing file. The original
// mmap-based implementation persisted writes implicitly; here a mutating
// FSOps call ends with an explicit Sync so the two behave the same from
// the adapter's point of view.
func (img *Image) Sync() error {
	if _, err := img.file.WriteAt(img.data, 0); err != nil {
		return nufserrors.ErrIOFailed.WrapError(err)
	}
	return nil
}

// Close flushes and releases the backing file.
func (img *Image) Close() error {
	if err := img.Sync(); err != nil {
		img.file.Close()
		return err
	}
	return img.file.Close()
}
