// Package archive applies an update package to an installation root.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/stranslate/host/internal/hosterr"
	"github.com/stranslate/host/internal/logging"
)

var log = logging.L("archive")

const (
	DefaultExtension = ".zip"
	dirPerm          = 0o755
)

// DefaultPreserve are the top-level directories a prune never removes.
var DefaultPreserve = []string{"log", "portable_config", "tmp"}

// foldCase matches prune names case-insensitively where the filesystem
// does the same.
var foldCase = runtime.GOOS == "windows" || runtime.GOOS == "darwin"

type Options struct {
	FS        FS
	Reader    Reader
	Extension string
}

type Extractor struct {
	fs        FS
	reader    Reader
	extension string
}

func New(opts Options) *Extractor {
	if opts.FS == nil {
		opts.FS = OSFS{}
	}
	if opts.Reader == nil {
		opts.Reader = ZipReader{}
	}
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	return &Extractor{fs: opts.FS, reader: opts.Reader, extension: opts.Extension}
}

// ExtractOptions controls pruning of root before extraction.
type ExtractOptions struct {
	Prune bool
	// Keep lists top-level names that survive a prune. Nil means
	// DefaultPreserve.
	Keep []string
}

type Stats struct {
	Files  int
	Dirs   int
	Pruned []string
}

// Extract writes every entry of archivePath under root, overwriting files
// that already exist. With Prune set, top-level entries of root not named
// in Keep are removed first. The first failing entry aborts the run and
// files already written stay in place.
func (x *Extractor) Extract(archivePath, root string, opts ExtractOptions) (Stats, error) {
	var stats Stats

	if !strings.EqualFold(filepath.Ext(archivePath), x.extension) {
		return stats, hosterr.NewInvalidPath(archivePath, "not a "+x.extension+" archive")
	}
	info, err := x.fs.Stat(archivePath)
	if err != nil || !info.Mode().IsRegular() {
		return stats, hosterr.NewInvalidPath(archivePath, "archive does not exist or is not a file")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return stats, hosterr.NewUnresolvable("installation root", root)
	}

	arc, err := x.reader.Open(archivePath)
	if err != nil {
		return stats, hosterr.NewOSOperationFailed(err, "open archive "+archivePath, err.Error())
	}
	defer arc.Close()

	// Resolve every name up front so a hostile entry is refused before
	// anything is pruned or written.
	targets := make([]string, arc.Len())
	for i := range targets {
		target, err := containedPath(absRoot, arc.Entry(i).Name())
		if err != nil {
			return stats, hosterr.NewInvalidPath(arc.Entry(i).Name(), err.Error())
		}
		targets[i] = target
	}

	if opts.Prune {
		keep := opts.Keep
		if keep == nil {
			keep = DefaultPreserve
		}
		pruned, err := x.prune(absRoot, keep, archivePath)
		stats.Pruned = pruned
		if err != nil {
			return stats, err
		}
	}

	for i, target := range targets {
		entry := arc.Entry(i)
		if entry.IsDir() {
			if err := x.checkNoLinks(absRoot, target); err != nil {
				return stats, err
			}
			if err := x.fs.MkdirAll(target, dirPerm); err != nil {
				return stats, hosterr.NewOSOperationFailed(err, "create directory "+target, err.Error())
			}
			stats.Dirs++
			continue
		}
		if err := x.checkNoLinks(absRoot, target); err != nil {
			return stats, err
		}
		if err := x.writeFile(entry, target); err != nil {
			return stats, err
		}
		stats.Files++
	}

	log.Info("archive extracted", "archive", archivePath, "root", absRoot, "files", stats.Files, "dirs", stats.Dirs)
	return stats, nil
}

func (x *Extractor) writeFile(entry Entry, target string) error {
	if err := x.fs.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return hosterr.NewOSOperationFailed(err, "create directory "+filepath.Dir(target), err.Error())
	}

	src, err := entry.Open()
	if err != nil {
		return hosterr.NewOSOperationFailed(err, "read entry "+entry.Name(), err.Error())
	}
	defer src.Close()

	dst, err := x.fs.Create(target)
	if err != nil {
		return hosterr.NewOSOperationFailed(err, "create "+target, err.Error())
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return hosterr.NewOSOperationFailed(err, "write "+target, err.Error())
	}
	if err := dst.Close(); err != nil {
		return hosterr.NewOSOperationFailed(err, "close "+target, err.Error())
	}
	return nil
}

// prune removes the top-level children of root that are not in keep. An
// unreadable root is skipped. The child holding the archive itself is
// never removed.
func (x *Extractor) prune(root string, keep []string, archivePath string) ([]string, error) {
	entries, err := x.fs.ReadDir(root)
	if err != nil {
		log.Debug("prune skipped, root not readable", "root", root, "error", err)
		return nil, nil
	}

	holder := topLevelChild(root, archivePath)

	var pruned []string
	for _, e := range entries {
		name := e.Name()
		if containsName(keep, name) || (holder != "" && sameName(name, holder)) {
			continue
		}
		path := filepath.Join(root, name)
		if e.IsDir() {
			err = x.fs.RemoveAll(path)
		} else {
			err = x.fs.Remove(path)
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return pruned, hosterr.NewOSOperationFailed(err, "remove "+path, err.Error())
		}
		log.Debug("pruned", "path", path)
		pruned = append(pruned, name)
	}
	return pruned, nil
}

// containedPath resolves an untrusted entry name under base and refuses
// anything that would land outside it.
func containedPath(base, name string) (string, error) {
	clean := strings.ReplaceAll(name, `\`, "/")
	if strings.TrimSpace(clean) == "" {
		return "", fmt.Errorf("empty entry name")
	}
	if strings.HasPrefix(clean, "/") || filepath.IsAbs(name) || filepath.VolumeName(filepath.FromSlash(clean)) != "" || hasDriveLetter(clean) {
		return "", fmt.Errorf("absolute entry name")
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return "", fmt.Errorf("entry name escapes the installation root")
		}
	}

	joined := filepath.Join(base, filepath.FromSlash(clean))
	if joined != base && !strings.HasPrefix(joined, base+string(filepath.Separator)) {
		return "", fmt.Errorf("entry name escapes the installation root")
	}
	return joined, nil
}

func hasDriveLetter(name string) bool {
	return len(name) >= 2 && name[1] == ':' &&
		(('a' <= name[0] && name[0] <= 'z') || ('A' <= name[0] && name[0] <= 'Z'))
}

// topLevelChild returns the first path element of path relative to root,
// or "" when path is not under root.
func topLevelChild(root, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return strings.SplitN(rel, string(filepath.Separator), 2)[0]
}

func sameName(a, b string) bool {
	if foldCase {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func containsName(list []string, name string) bool {
	for _, s := range list {
		if sameName(s, name) {
			return true
		}
	}
	return false
}

// checkNoLinks refuses target when an existing path between root and
// target, or target itself, is a symlink, junction or other non-plain
// entry. Writing through one could land outside root.
func (x *Extractor) checkNoLinks(root, target string) error {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." {
		return nil
	}
	path := root
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		path = filepath.Join(path, seg)
		info, err := x.fs.Lstat(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return hosterr.NewOSOperationFailed(err, "stat "+path, err.Error())
		}
		mode := info.Mode()
		if mode&os.ModeSymlink != 0 || (!mode.IsDir() && !mode.IsRegular()) {
			return hosterr.NewInvalidPath(path, "link inside the installation root")
		}
	}
	return nil
}
