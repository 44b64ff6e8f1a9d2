package archive

import (
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Entry is one stored item, read lazily.
type Entry interface {
	// Name is the stored name, relative to the archive root.
	Name() string
	IsDir() bool
	Open() (io.ReadCloser, error)
}

// Archive gives indexed access to entries in stored order.
type Archive interface {
	Len() int
	Entry(i int) Entry
	Close() error
}

type Reader interface {
	Open(path string) (Archive, error)
}

// ZipReader opens .zip files.
type ZipReader struct{}

func (ZipReader) Open(path string) (Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	return &zipArchive{rc: rc}, nil
}

type zipArchive struct {
	rc *zip.ReadCloser
}

func (z *zipArchive) Len() int { return len(z.rc.File) }

func (z *zipArchive) Entry(i int) Entry { return zipEntry{f: z.rc.File[i]} }

func (z *zipArchive) Close() error { return z.rc.Close() }

type zipEntry struct {
	f *zip.File
}

func (e zipEntry) Name() string { return e.f.Name }

// IsDir follows the stored name rather than the mode bits: directory
// markers are the entries whose name ends in a separator.
func (e zipEntry) IsDir() bool {
	return strings.HasSuffix(e.f.Name, "/") || strings.HasSuffix(e.f.Name, `\`)
}

func (e zipEntry) Open() (io.ReadCloser, error) { return e.f.Open() }
