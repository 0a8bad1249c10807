//go:build fuse

package adapter

import (
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"

	"github.com/mzinger1/nufs/fsops"
)

// fusePathFS implements pathfs.FileSystem on top of a FileSystem, the
// parts of this package that touch the go-fuse API directly. Everything
// not overridden here falls back to pathfs.FileSystem's default (usually
// ENOSYS), which is how symlinks and xattrs end up unsupported.
type fusePathFS struct {
	pathfs.FileSystem
	fs *FileSystem
}

// Mount attaches ops at mountpoint and serves FUSE requests until the
// filesystem is unmounted. Grounded on squashfs's own fuse-build-tagged
// file split: non-fuse builds of this package compile fine and simply
// lack a Mount function.
func Mount(mountpoint string, ops *fsops.FSOps) error {
	fs := &fusePathFS{
		FileSystem: pathfs.NewDefaultFileSystem(),
		fs:         New(ops, nil),
	}
	pathNodeFs := pathfs.NewPathNodeFs(fs, nil)
	server, _, err := nodefs.MountRoot(mountpoint, pathNodeFs.Root(), nil)
	if err != nil {
		return err
	}
	server.Serve()
	return nil
}

func toAttr(a Attr, out *fuse.Attr) {
	out.Mode = a.Mode
	out.Size = a.Size
	out.Uid = a.Uid
	out.Nlink = 1
}

func (f *fusePathFS) GetAttr(name string, context *fuse.Context) (*fuse.Attr, fuse.Status) {
	attr, ok := f.fs.Getattr("/" + name)
	if !ok {
		return nil, fuse.ENOENT
	}
	out := &fuse.Attr{}
	toAttr(attr, out)
	return out, fuse.OK
}

func (f *fusePathFS) Access(name string, mode uint32, context *fuse.Context) fuse.Status {
	if f.fs.Access("/" + name) {
		return fuse.OK
	}
	return fuse.ENOENT
}

func (f *fusePathFS) OpenDir(name string, context *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	names, ok := f.fs.OpenDir("/" + name)
	if !ok {
		return nil, fuse.ENOENT
	}
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, n := range names {
		entries = append(entries, fuse.DirEntry{Name: n})
	}
	return entries, fuse.OK
}

func (f *fusePathFS) Mknod(name string, mode uint32, dev uint32, context *fuse.Context) fuse.Status {
	if f.fs.Mknod("/"+name, mode) {
		return fuse.OK
	}
	return fuse.EIO
}

func (f *fusePathFS) Mkdir(name string, mode uint32, context *fuse.Context) fuse.Status {
	if f.fs.Mkdir("/"+name, mode) {
		return fuse.OK
	}
	return fuse.EIO
}

func (f *fusePathFS) Unlink(name string, context *fuse.Context) fuse.Status {
	if f.fs.Unlink("/" + name) {
		return fuse.OK
	}
	return fuse.EIO
}

func (f *fusePathFS) Rmdir(name string, context *fuse.Context) fuse.Status {
	if f.fs.Rmdir("/" + name) {
		return fuse.OK
	}
	return fuse.EIO
}

func (f *fusePathFS) Rename(oldName string, newName string, context *fuse.Context) fuse.Status {
	if f.fs.Rename("/"+oldName, "/"+newName) {
		return fuse.OK
	}
	return fuse.EIO
}

func (f *fusePathFS) Link(oldName string, newName string, context *fuse.Context) fuse.Status {
	if f.fs.Link("/"+oldName, "/"+newName) {
		return fuse.OK
	}
	return fuse.EIO
}

func (f *fusePathFS) Chmod(name string, mode uint32, context *fuse.Context) fuse.Status {
	if f.fs.Chmod("/"+name, mode) {
		return fuse.OK
	}
	return fuse.EIO
}

func (f *fusePathFS) Truncate(name string, size uint64, context *fuse.Context) fuse.Status {
	if f.fs.Truncate("/"+name, size) {
		return fuse.OK
	}
	return fuse.EIO
}

func (f *fusePathFS) Utimens(name string, atime *time.Time, mtime *time.Time, context *fuse.Context) fuse.Status {
	f.fs.Utimens("/" + name)
	return fuse.OK
}

func (f *fusePathFS) Open(name string, flags uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	if !f.fs.Open("/" + name) {
		return nil, fuse.ENOENT
	}
	return &fuseFile{File: nodefs.NewDefaultFile(), fs: f.fs, path: "/" + name}, fuse.OK
}

func (f *fusePathFS) Create(name string, flags uint32, mode uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	if !f.fs.Mknod("/"+name, mode) {
		return nil, fuse.EIO
	}
	return &fuseFile{File: nodefs.NewDefaultFile(), fs: f.fs, path: "/" + name}, fuse.OK
}

// fuseFile adapts FileSystem's path-addressed Read/Write to go-fuse's
// open-file-handle-addressed nodefs.File interface; it carries no state
// beyond the path it was opened with, since fsops itself keeps none.
type fuseFile struct {
	nodefs.File
	fs   *FileSystem
	path string
}

func (h *fuseFile) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	n, ok := h.fs.Read(h.path, dest, off)
	if !ok {
		return nil, fuse.EIO
	}
	return fuse.ReadResultData(dest[:n]), fuse.OK
}

func (h *fuseFile) Write(data []byte, off int64) (uint32, fuse.Status) {
	n, ok := h.fs.Write(h.path, data, off)
	if !ok {
		return 0, fuse.EIO
	}
	return uint32(n), fuse.OK
}

func (h *fuseFile) Flush() fuse.Status {
	return fuse.OK
}
