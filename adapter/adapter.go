// Package adapter bridges an FSOps façade to an in-kernel mountpoint. The
// go-fuse wiring and Mount (adapter_fuse.go) are built only when the fuse
// tag is set (see cmd/nufs); this file is always built. It is a thin collaborator
// by design (spec.md §6): every method below does nothing but translate
// between path-based FUSE calls and fsops.FSOps's POSIX-style int returns.
// Adapted from the legacy pathfs.FileSystem shape (its path-in,
// fuse.Status-out methods map almost directly onto fsops's own method
// shapes) and from the teacher's driver/ package, which keeps exactly
// this kind of glue code isolated from the storage engine it wraps.
package adapter

import (
	"log"

	"github.com/mzinger1/nufs/fsops"
)

// FileSystem delegates every operation to an FSOps façade; fusePathFS in
// adapter_fuse.go wraps it as a github.com/hanwen/go-fuse/v2/fuse/pathfs.FileSystem.
// The pathfs wrapper and
// mounting live in adapter_fuse.go (//go:build fuse) since they touch the
// go-fuse API directly; this file holds the pure translation logic so it
// can be read (and in principle tested) without the fuse build tag.
type FileSystem struct {
	ops *fsops.FSOps
	log *log.Logger
}

// New creates a FileSystem delegating to ops.
func New(ops *fsops.FSOps, logger *log.Logger) *FileSystem {
	if logger == nil {
		logger = log.Default()
	}
	return &FileSystem{ops: ops, log: logger}
}

// Attr is the subset of struct stat a caller needs after a successful
// Getattr, independent of any particular kernel-bridge library's type.
type Attr struct {
	Mode uint32
	Size uint64
	Uid  uint32
}

// Getattr resolves path and reports its mode, size and owning uid. The
// returned bool is false if path does not exist.
func (fs *FileSystem) Getattr(path string) (Attr, bool) {
	var st fsops.Stat
	if rv := fs.ops.Getattr(path, &st); rv != 0 {
		return Attr{}, false
	}
	return Attr{Mode: uint32(st.Mode), Size: uint64(st.Size), Uid: st.Uid}, true
}

// Access reports whether path resolves to an existing inode.
func (fs *FileSystem) Access(path string) bool {
	return fs.ops.Access(path) == 0
}

// OpenDir lists the entries of the directory at path.
func (fs *FileSystem) OpenDir(path string) ([]string, bool) {
	names, rv := fs.ops.Readdir(path)
	return names, rv == 0
}

// Mknod creates a plain file at path with the given mode.
func (fs *FileSystem) Mknod(path string, mode uint32) bool {
	return fs.ops.Mknod(path, int32(mode)) == 0
}

// Mkdir creates a directory at path with the given mode.
func (fs *FileSystem) Mkdir(path string, mode uint32) bool {
	return fs.ops.Mkdir(path, int32(mode)) == 0
}

// Unlink removes the directory entry at path.
func (fs *FileSystem) Unlink(path string) bool {
	return fs.ops.Unlink(path) == 0
}

// Rmdir removes the empty directory at path.
func (fs *FileSystem) Rmdir(path string) bool {
	return fs.ops.Rmdir(path) == 0
}

// Rename moves the entry at oldPath to newPath.
func (fs *FileSystem) Rename(oldPath, newPath string) bool {
	return fs.ops.Rename(oldPath, newPath) == 0
}

// Link adds newPath as another name for the inode at oldPath.
func (fs *FileSystem) Link(oldPath, newPath string) bool {
	return fs.ops.Link(oldPath, newPath) == 0
}

// Chmod is a no-op passthrough, matching fsops.Chmod.
func (fs *FileSystem) Chmod(path string, mode uint32) bool {
	return fs.ops.Chmod(path, int32(mode)) == 0
}

// Truncate resizes path to size bytes.
func (fs *FileSystem) Truncate(path string, size uint64) bool {
	return fs.ops.Truncate(path, int32(size)) == 0
}

// Open is a no-op passthrough, matching fsops.Open.
func (fs *FileSystem) Open(path string) bool {
	return fs.ops.Open(path) == 0
}

// Read copies path's content into dest per fsops.Read's quirks (see
// fsops.go), returning what fsops.Read returns: len(dest), or 0 when
// offset is at or past the end of the file.
func (fs *FileSystem) Read(path string, dest []byte, offset int64) (int, bool) {
	n := fs.ops.Read(path, dest, len(dest), offset)
	if n < 0 {
		return 0, false
	}
	return n, true
}

// Write stores data at offset in path, returning the number of bytes
// fsops reports written.
func (fs *FileSystem) Write(path string, data []byte, offset int64) (int, bool) {
	n := fs.ops.Write(path, data, len(data), offset)
	if n < 0 {
		return 0, false
	}
	return n, true
}

// Utimens is a no-op: NUFS keeps no timestamps (spec.md Non-goals).
func (fs *FileSystem) Utimens(path string) bool {
	return fs.ops.Utimens(path) == 0
}

// Symlinks and extended attributes are out of scope (spec.md Non-goals);
// adapter_fuse.go reports ENOSYS for both rather than routing them here.
