// Package fsops composes the lower layers (image, block/chain/inode
// allocation, directory resolution) into the operations consumed by a
// kernel-bridge adapter: access, getattr, readdir, mknod, mkdir, link,
// unlink, rmdir, rename, chmod, truncate, open, read, write, utimens and
// ioctl. Adapted from original_source/nufs.c's nufs_* functions and from
// the teacher's basedriver package, which composes its own lower layers
// the same way behind one façade type.
package fsops

import (
	"log"
	"os"

	"github.com/mzinger1/nufs/blockalloc"
	"github.com/mzinger1/nufs/chainalloc"
	"github.com/mzinger1/nufs/directory"
	"github.com/mzinger1/nufs/image"
	"github.com/mzinger1/nufs/inode"
	"github.com/mzinger1/nufs/nufserrors"
)

// Stat is a platform-independent stand-in for POSIX struct stat, filled in
// by Getattr.
type Stat struct {
	Mode int32
	Size int32
	Uid  uint32
}

// FSOps is the high-level façade over a single open NUFS image.
type FSOps struct {
	img    *image.Image
	blocks *blockalloc.BlockAlloc
	chains *chainalloc.ChainAlloc
	inodes *inode.Store
	paths  *directory.Resolver
	log    *log.Logger
}

// Open loads (creating if needed) the image at imagePath and returns an
// FSOps façade over it. A nil logger defaults to log.Default(), matching
// the per-call printf logging of the original nufs_* functions.
func Open(imagePath string, logger *log.Logger) (*FSOps, error) {
	img, err := image.Open(imagePath)
	if err != nil {
		return nil, err
	}

	blocks := blockalloc.New(img)
	chains := chainalloc.New(img, blocks)
	inodes := inode.New(img, blocks, chains)
	if err := inodes.InitRoot(); err != nil {
		img.Close()
		return nil, err
	}

	if logger == nil {
		logger = log.Default()
	}

	return &FSOps{
		img:    img,
		blocks: blocks,
		chains: chains,
		inodes: inodes,
		paths:  directory.New(img, chains, inodes),
		log:    logger,
	}, nil
}

// Close flushes and releases the underlying image.
func (fs *FSOps) Close() error {
	return fs.img.Close()
}

func (fs *FSOps) sync() {
	if err := fs.img.Sync(); err != nil {
		fs.log.Printf("warning: failed to sync image: %s", err)
	}
}

// Access returns 0 if path resolves to an inode, -ENOENT otherwise.
func (fs *FSOps) Access(path string) int {
	rv := 0
	if fs.paths.FindInodeIndex(path) < 0 {
		rv = -int(nufserrors.Errno(nufserrors.ErrNotFound))
	}
	fs.log.Printf("access(%s) -> %d\n", path, rv)
	return rv
}

// Getattr fills out with path's mode, size and the effective user ID.
func (fs *FSOps) Getattr(path string, out *Stat) int {
	idx := fs.paths.FindInodeIndex(path)
	if idx < 0 {
		return -int(nufserrors.Errno(nufserrors.ErrNotFound))
	}
	node := fs.inodes.At(idx)
	*out = Stat{Mode: node.Mode(), Size: node.Size(), Uid: uint32(os.Geteuid())}
	fs.log.Printf("getattr(%s) -> (0) {mode: %#o, size: %d}\n", path, out.Mode, out.Size)
	return 0
}

// Readdir lists the non-empty entry names of the directory at path.
func (fs *FSOps) Readdir(path string) ([]string, int) {
	names, err := fs.paths.DirectoryList(path)
	if err != nil {
		return nil, -int(nufserrors.Errno(err))
	}
	fs.log.Printf("readdir(%s) -> %d\n", path, 0)
	return names, 0
}

// Mknod creates an object at path with the given mode; Mkdir calls it with
// the directory bit set.
func (fs *FSOps) Mknod(path string, mode int32) int {
	newInum, err := fs.inodes.AllocInode()
	if err != nil {
		return -int(nufserrors.Errno(err))
	}

	newNode := fs.inodes.At(newInum)
	newNode.SetRefs(1)
	newNode.SetMode(mode)
	newNode.SetSize(0)

	head, err := fs.chains.AllocChain()
	if err != nil || head == 0 {
		// An allocator-exhaustion failure here leaks the inode just
		// allocated above; this is a known limitation (spec.md §7/§9).
		return -int(nufserrors.Errno(nufserrors.ErrNoSpaceOnDevice))
	}
	newNode.SetHead(int32(head))

	name := directory.GetFilename(path)
	dirIdx := fs.paths.ParentInodeIndex(path)
	fs.paths.DirectoryPut(dirIdx, name, newInum)

	fs.sync()
	fs.log.Printf("mknod(%s, %#o) -> 0\n", path, mode)
	return 0
}

// Mkdir creates a directory at path.
func (fs *FSOps) Mkdir(path string, mode int32) int {
	rv := fs.Mknod(path, mode|inode.DirModeBit)
	fs.log.Printf("mkdir(%s) -> %d\n", path, rv)
	return rv
}

// Unlink removes the directory entry for path.
func (fs *FSOps) Unlink(path string) int {
	parentIdx := fs.paths.ParentInodeIndex(path)
	if parentIdx < 0 {
		return -int(nufserrors.Errno(nufserrors.ErrNotFound))
	}
	fs.paths.DirectoryDelete(parentIdx, path)
	fs.sync()
	fs.log.Printf("unlink(%s) -> 0\n", path)
	return 0
}

// Link adds a new directory entry at `to` referring to the inode at
// `from`, incrementing that inode's refs.
func (fs *FSOps) Link(from, to string) int {
	inodeNum := fs.paths.FindInodeIndex(from)
	dirIdx := fs.paths.ParentInodeIndex(to)
	if inodeNum < 0 || dirIdx < 0 {
		return -int(nufserrors.Errno(nufserrors.ErrNotFound))
	}

	fs.paths.DirectoryPut(dirIdx, directory.GetFilename(to), inodeNum)
	fs.sync()
	fs.log.Printf("link(%s => %s) -> 0\n", from, to)
	return 0
}

// Rmdir removes the empty directory at path. It fails unless the target's
// mode is exactly the root directory mode (0o040775) -- preserved
// faithfully from the original's strict equality check, see spec.md §9.
func (fs *FSOps) Rmdir(path string) int {
	idx := fs.paths.FindInodeIndex(path)
	if idx < 0 {
		return -int(nufserrors.Errno(nufserrors.ErrNotFound))
	}
	node := fs.inodes.At(idx)
	if node.Mode() != inode.RootMode {
		return -int(nufserrors.Errno(nufserrors.ErrInvalidArgument))
	}

	names, err := fs.paths.DirectoryList(path)
	if err != nil {
		return -int(nufserrors.Errno(err))
	}
	if len(names) > 0 {
		return -int(nufserrors.Errno(nufserrors.ErrDirectoryNotEmpty))
	}

	rv := fs.Unlink(path)
	fs.log.Printf("rmdir(%s) -> %d\n", path, rv)
	return rv
}

// Rename moves from to to: it links to, then unlinks from. The combined
// refcount bookkeeping of Link+Unlink leaves the moved inode's refs
// unchanged.
func (fs *FSOps) Rename(from, to string) int {
	if fs.paths.FindInodeIndex(from) < 0 {
		return -int(nufserrors.Errno(nufserrors.ErrNotFound))
	}
	if rv := fs.Link(from, to); rv < 0 {
		return rv
	}
	rv := fs.Unlink(from)
	fs.log.Printf("rename(%s => %s) -> %d\n", from, to, rv)
	return rv
}

// Chmod is a no-op: permission bits are stored but never interpreted by
// the core (spec.md Non-goals).
func (fs *FSOps) Chmod(path string, mode int32) int {
	fs.log.Printf("chmod(%s, %#o) -> 0\n", path, mode)
	return 0
}

// Utimens is a no-op: no timestamps are maintained (spec.md Non-goals).
func (fs *FSOps) Utimens(path string) int {
	return 0
}

// Ioctl is a no-op.
func (fs *FSOps) Ioctl(path string) int {
	return 0
}

// Open is a no-op: no per-open-file state is maintained.
func (fs *FSOps) Open(path string) int {
	fs.log.Printf("open(%s) -> 0\n", path)
	return 0
}

// Truncate grows or shrinks path's inode to exactly size bytes.
func (fs *FSOps) Truncate(path string, size int32) int {
	idx := fs.paths.FindInodeIndex(path)
	if idx < 0 {
		return -int(nufserrors.Errno(nufserrors.ErrNotFound))
	}

	node := fs.inodes.At(idx)
	var err error
	if size >= node.Size() {
		err = fs.inodes.GrowInode(idx, size)
	} else {
		err = fs.inodes.ShrinkInode(idx, size)
	}
	if err != nil {
		return -int(nufserrors.Errno(err))
	}
	fs.sync()
	fs.log.Printf("truncate(%s, %d bytes) -> 0\n", path, size)
	return 0
}

// Write and Read below preserve, rather than fix, the original
// write()/read()'s handling of block boundaries and offset: write only
// ever touches the single block at offset/BlockSize and copies buf into
// the start of that block whatever size says -- len(buf) bytes, at most
// one block's worth, with the rest of the block left as it was; read
// ignores offset once past the initial bounds check and copies the blocks
// of the chain into buf from its front, block i at i*BlockSize, until buf
// is full or the chain ends.

// Read copies path's content into buf. Returns a negative errno if path
// is missing, 0 if offset is at or past the end of the file, otherwise
// size.
func (fs *FSOps) Read(path string, buf []byte, size int, offset int64) int {
	idx := fs.paths.FindInodeIndex(path)
	if idx < 0 {
		return -int(nufserrors.Errno(nufserrors.ErrNotFound))
	}

	node := fs.inodes.At(idx)
	if offset >= int64(node.Size()) {
		return 0
	}

	chain := fs.chains.At(int(node.HeadChain()))
	i := 0
	for {
		start := i * image.BlockSize
		if start >= len(buf) {
			break
		}
		block := fs.img.BlockPtr(int(chain.Block()))
		copy(buf[start:], block)
		if chain.Next() == 0 {
			break
		}
		chain = fs.chains.At(int(chain.Next()))
		i++
	}

	fs.log.Printf("read(%s, %d bytes, @+%d) -> %d\n", path, size, offset, size)
	return size
}

// Write sets path's size to size, then grows its chain to fit offset+size
// (which leaves the recorded size at offset+size), and writes up to a
// single block's worth of buf at the block containing offset.
func (fs *FSOps) Write(path string, buf []byte, size int, offset int64) int {
	idx := fs.paths.FindInodeIndex(path)
	if idx < 0 {
		return -int(nufserrors.Errno(nufserrors.ErrNotFound))
	}

	node := fs.inodes.At(idx)
	node.SetSize(int32(size))
	if err := fs.inodes.GrowInode(idx, int32(offset)+int32(size)); err != nil {
		return -int(nufserrors.Errno(err))
	}

	chain := fs.chains.At(int(node.HeadChain()))
	offsetBlocks := int(offset) / image.BlockSize
	i := 0
	for {
		block := fs.img.BlockPtr(int(chain.Block()))
		if i == offsetBlocks {
			copy(block, buf)
		}
		if chain.Next() == 0 {
			break
		}
		chain = fs.chains.At(int(chain.Next()))
		i++
	}

	fs.sync()
	fs.log.Printf("write(%s, %d bytes, @+%d) -> %d\n", path, size, offset, size)
	return size
}
