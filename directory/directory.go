// Package directory interprets the first data block of a directory inode
// as a fixed-arity array of (name, inum) entries, and resolves
// `/`-separated paths to inodes by walking that structure one component
// at a time. Adapted from original_source/directory.c; the recursive
// string-list splitter (slist.c) becomes a single iterative pass per
// spec.md §9's rewrite note, producing an ordinary []string instead of a
// hand-rolled cons list.
package directory

import (
	"encoding/binary"
	"strings"

	"github.com/noxer/bytewriter"

	"github.com/mzinger1/nufs/chainalloc"
	"github.com/mzinger1/nufs/image"
	"github.com/mzinger1/nufs/inode"
	"github.com/mzinger1/nufs/nufserrors"
)

const (
	// NameLength is the number of bytes available for an entry's name,
	// including its null terminator (spec.md invariant 6).
	NameLength = 48
	// EntrySize is the size, in bytes, of one directory entry.
	EntrySize = 64
	// EntriesPerBlock is the maximum number of entries a directory can
	// hold, since only the first data block is ever consulted.
	EntriesPerBlock = image.BlockSize / EntrySize
)

// Entry is a view over one 64-byte directory entry: a 48-byte null-padded
// name, a little-endian int32 inum, and 12 reserved bytes.
type Entry struct {
	region []byte
}

func (e Entry) Name() string {
	raw := e.region[0:NameLength]
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	return string(raw[:n])
}

// SetName zero-fills the name field, then writes name through a
// bytewriter bounded to NameLength-1 bytes -- a short write (rather
// than a silent overrun into the inum field that follows) is how an
// over-length name is caught, per spec.md invariant 6.
func (e Entry) SetName(name string) error {
	raw := e.region[0:NameLength]
	for i := range raw {
		raw[i] = 0
	}
	// Leave the last byte permanently 0 as the null terminator.
	w := bytewriter.New(raw[:NameLength-1])
	n, err := w.Write([]byte(name))
	if err != nil || n < len(name) {
		return nufserrors.ErrNameTooLong
	}
	return nil
}

func (e Entry) Inum() int32 {
	return int32(binary.LittleEndian.Uint32(e.region[48:52]))
}

func (e Entry) SetInum(v int32) {
	binary.LittleEndian.PutUint32(e.region[48:52], uint32(v))
}

// Resolver walks the directory tree rooted at inode 0, the path-resolution
// half of spec.md §4.6 (the other half, Entry above, is the on-disk
// layout half).
type Resolver struct {
	img    *image.Image
	chains *chainalloc.ChainAlloc
	inodes *inode.Store
}

// New creates a Resolver over the given storage layers.
func New(img *image.Image, chains *chainalloc.ChainAlloc, inodes *inode.Store) *Resolver {
	return &Resolver{img: img, chains: chains, inodes: inodes}
}

// splitPath replicates original_source/slist.c's s_split: an ordinary
// split on '/', except that a single trailing delimiter does not produce
// a trailing empty component (the recursive splitter stops as soon as the
// remaining text is empty, rather than emitting one more empty token).
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	if strings.HasSuffix(path, "/") {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// GetFilename returns the tail component of path -- the same thing
// get_filename() returns in the original source.
func GetFilename(path string) string {
	parts := splitPath(path)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// firstBlock returns the data block backing a directory inode's entries.
func (r *Resolver) firstBlock(dir inode.Inode) []byte {
	head := r.chains.At(int(dir.HeadChain()))
	return r.img.BlockPtr(int(head.Block()))
}

func (r *Resolver) entryAt(dir inode.Inode, i int) Entry {
	block := r.firstBlock(dir)
	offset := i * EntrySize
	return Entry{region: block[offset : offset+EntrySize]}
}

// FindFileInDir returns the inum stored under name in dir, or -1 if not
// found.
//
// The exact string "/" is special-cased to mean the root inode. Beyond
// that, this preserves a quirk from the original find_file_in_dir(): the
// scan compares the entry's *name* field only, never checking whether the
// entry's inum is nonzero. A directory with a never-used (all-zero) entry
// therefore has an entry whose name is the empty string, and searching
// for name == "" returns that slot's inum, 0, as if it were a match. This
// is what makes FindInodeIndex's handling of a leading empty path
// component "work" for paths like "/foo" -- see TestFindInodeIndexEmptyComponent.
func (r *Resolver) FindFileInDir(dir inode.Inode, name string) int32 {
	if name == "/" {
		return inode.RootInode
	}

	for i := 0; i < EntriesPerBlock; i++ {
		if r.entryAt(dir, i).Name() == name {
			return r.entryAt(dir, i).Inum()
		}
	}
	return -1
}

// ParentInodeIndex finds the inode index of the parent directory of path,
// descending through every component except the last.
func (r *Resolver) ParentInodeIndex(path string) int32 {
	parts := splitPath(path)
	parentIndex := int32(inode.RootInode)
	for i := 0; i < len(parts)-1; i++ {
		parentIndex = r.FindFileInDir(r.inodes.At(parentIndex), parts[i])
	}
	return parentIndex
}

// FindInodeIndex finds the inode index of path, descending through every
// component including a leading empty one produced by splitting an
// absolute path (see FindFileInDir's doc comment).
func (r *Resolver) FindInodeIndex(path string) int32 {
	parts := splitPath(path)
	inodeIndex := int32(inode.RootInode)
	for _, part := range parts {
		inodeIndex = r.FindFileInDir(r.inodes.At(inodeIndex), part)
		if inodeIndex < 0 {
			return -1
		}
	}
	return inodeIndex
}

// DirectoryPut inserts name -> childInum into the first free slot of
// dir's entry block, incrementing the child inode's refs and the
// directory's recorded size. Returns childInum on success, -1 if the
// directory is full.
func (r *Resolver) DirectoryPut(dirIndex int32, name string, childInum int32) int32 {
	dir := r.inodes.At(dirIndex)
	child := r.inodes.At(childInum)

	for i := 0; i < EntriesPerBlock; i++ {
		entry := r.entryAt(dir, i)
		if entry.Inum() == 0 {
			child.SetRefs(child.Refs() + 1)
			entry.SetInum(childInum)
			_ = entry.SetName(name)
			dir.SetSize(dir.Size() + EntrySize)
			return childInum
		}
	}
	return -1
}

// DirectoryDelete removes the entry for path from dir, decrementing the
// target inode's refs and freeing it if that drops to 0. Directory size
// is never decreased, matching the original implementation.
func (r *Resolver) DirectoryDelete(dirIndex int32, path string) int32 {
	dir := r.inodes.At(dirIndex)
	inodeNum := r.FindInodeIndex(path)
	if inodeNum < 0 {
		return -1
	}
	filename := GetFilename(path)
	target := r.inodes.At(inodeNum)
	target.SetRefs(target.Refs() - 1)

	for i := 0; i < EntriesPerBlock; i++ {
		entry := r.entryAt(dir, i)
		if entry.Inum() == inodeNum && entry.Name() == filename {
			if target.Refs() < 1 {
				r.inodes.FreeInode(inodeNum)
			}
			entry.SetInum(0)
			_ = entry.SetName("")
			return inodeNum
		}
	}
	return -1
}

// DirectoryList returns the non-empty names in the directory at path.
func (r *Resolver) DirectoryList(path string) ([]string, error) {
	num := r.FindInodeIndex(path)
	if num < 0 {
		return nil, nufserrors.ErrNotFound
	}
	dir := r.inodes.At(num)

	var names []string
	count := int(dir.Size()) / EntrySize
	for i := 0; i < count; i++ {
		name := r.entryAt(dir, i).Name()
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
