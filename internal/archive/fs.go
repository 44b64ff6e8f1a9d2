package archive

import (
	"io"
	"io/fs"
	"os"
)

// FS is the filesystem surface extraction needs.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	// Lstat does not follow a final symlink.
	Lstat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	RemoveAll(name string) error
	Remove(name string) error
	MkdirAll(name string, perm fs.FileMode) error
	// Create truncates or creates name for writing.
	Create(name string) (io.WriteCloser, error)
}

// OSFS is FS on the real filesystem.
type OSFS struct{}

func (OSFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
func (OSFS) Lstat(name string) (fs.FileInfo, error) { return os.Lstat(name) }
func (OSFS) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (OSFS) RemoveAll(name string) error { return os.RemoveAll(name) }
func (OSFS) Remove(name string) error { return os.Remove(name) }
func (OSFS) MkdirAll(name string, perm fs.FileMode) error { return os.MkdirAll(name, perm) }
func (OSFS) Create(name string) (io.WriteCloser, error) { return os.Create(name) }
