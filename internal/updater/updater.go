// Package updater applies a downloaded update package to the installation
// that contains it: stop the app, wait, extract, relaunch.
package updater

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/stranslate/host/internal/archive"
	"github.com/stranslate/host/internal/hosterr"
	"github.com/stranslate/host/internal/logging"
	"github.com/stranslate/host/internal/platform"
)

var log = logging.L("updater")

const (
	DefaultExecutable = "STranslate.exe"
)

// Extractor applies an archive to a root directory.
type Extractor interface {
	Extract(archivePath, root string, opts archive.ExtractOptions) (archive.Stats, error)
}

// Fetcher downloads a package from rawURL to dest.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, dest string) (int64, error)
}

// Narrator receives a line before each stage runs.
type Narrator interface {
	Stage(format string, args ...any)
}

type nopNarrator struct{}

func (nopNarrator) Stage(string, ...any) {}

// Config holds updater configuration
type Config struct {
	// Executable is relaunched from the installation root.
	Executable string
	// Preserve names the top-level directories a clean update keeps.
	Preserve []string
	// MaxWait caps Request.Wait. Zero means no cap.
	MaxWait time.Duration
}

// Updater handles application self-updates
type Updater struct {
	config    Config
	proc      platform.Process
	extractor Extractor
	fetcher   Fetcher
	narrator  Narrator
	sleep     func(time.Duration)
}

// New creates a new Updater. fetcher may be nil when downloads are not
// needed.
func New(cfg Config, proc platform.Process, extractor Extractor, fetcher Fetcher, narrator Narrator) *Updater {
	if cfg.Executable == "" {
		cfg.Executable = DefaultExecutable
	}
	if cfg.Preserve == nil {
		cfg.Preserve = archive.DefaultPreserve
	}
	if narrator == nil {
		narrator = nopNarrator{}
	}
	return &Updater{
		config:    cfg,
		proc:      proc,
		extractor: extractor,
		fetcher:   fetcher,
		narrator:  narrator,
		sleep:     time.Sleep,
	}
}

type Request struct {
	Archive     string
	Wait        time.Duration
	Clean       bool
	ProcessName string
	AutoStart   bool
	// Source, when set, is downloaded to Archive before anything else.
	Source string
}

// Layout is derived from the archive path: the archive sits in a staging
// directory directly under the installation root.
type Layout struct {
	Archive string
	Staging string
	Root    string
}

type Result struct {
	Layout
	Fetched     bool
	FetchedSize int64
	Killed      int
	// KillError is why the stop stage failed; the update went on anyway.
	KillError       string
	Extracted       archive.Stats
	Relaunched      bool
	RelaunchPID     int
	RelaunchSkipped bool
	Warnings        []string
}

// ResolveLayout computes the staging directory and installation root for
// archivePath without touching the filesystem.
func ResolveLayout(archivePath string) (Layout, error) {
	if archivePath == "" {
		return Layout{}, hosterr.NewInvalidInput("--archive is required")
	}
	abs, err := filepath.Abs(archivePath)
	if err != nil {
		return Layout{}, hosterr.NewUnresolvable("installation root", archivePath)
	}
	staging := filepath.Dir(abs)
	root := filepath.Dir(staging)
	if staging == abs || root == staging {
		return Layout{}, hosterr.NewUnresolvable("installation root", archivePath)
	}
	return Layout{Archive: abs, Staging: staging, Root: root}, nil
}

// Run executes the update. Only a failed fetch, validation or extraction
// fails the run; a process that cannot be stopped is taken as already gone
// and a failed relaunch is reported in Result.Warnings.
func (u *Updater) Run(ctx context.Context, req Request) (Result, error) {
	var res Result
	start := time.Now()

	if req.Wait < 0 {
		return res, hosterr.NewInvalidInput("wait time must not be negative")
	}
	if u.config.MaxWait > 0 && req.Wait > u.config.MaxWait {
		return res, hosterr.NewInvalidInput("wait time %s exceeds the limit of %s", req.Wait, u.config.MaxWait)
	}

	layout, err := ResolveLayout(req.Archive)
	if err != nil {
		return res, err
	}
	res.Layout = layout
	log.Info("starting update", "archive", layout.Archive, "root", layout.Root, "clean", req.Clean)

	if req.Source != "" {
		if u.fetcher == nil {
			return res, hosterr.NewInvalidInput("downloading from %s is not supported", req.Source)
		}
		u.narrator.Stage("⬇️  downloading %s", req.Source)
		n, err := u.fetcher.Fetch(ctx, req.Source, layout.Archive)
		if err != nil {
			return res, err
		}
		res.Fetched = true
		res.FetchedSize = n
	}

	info, err := os.Stat(layout.Archive)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res, hosterr.NewNotFound("archive", layout.Archive)
		}
		return res, hosterr.NewOSOperationFailed(err, "stat "+layout.Archive, err.Error())
	}
	if !info.Mode().IsRegular() {
		return res, hosterr.NewInvalidPath(layout.Archive, "archive is not a regular file")
	}

	if req.ProcessName != "" {
		u.narrator.Stage("🔄 stopping %s", req.ProcessName)
		n, err := u.proc.KillByName(ctx, req.ProcessName)
		if err != nil {
			log.Warn("could not stop process, assuming it already exited", "process", req.ProcessName, "error", err)
			u.narrator.Stage("⚠️  %s may already be closed: %v", req.ProcessName, err)
			res.KillError = err.Error()
		}
		res.Killed = n
	}

	if req.Wait > 0 {
		u.narrator.Stage("⏳ waiting %s", req.Wait)
		u.sleep(req.Wait)
	}

	u.narrator.Stage("📦 extracting %s into %s", filepath.Base(layout.Archive), layout.Root)
	stats, err := u.extractor.Extract(layout.Archive, layout.Root, archive.ExtractOptions{
		Prune: req.Clean,
		Keep:  u.config.Preserve,
	})
	res.Extracted = stats
	if err != nil {
		log.Error("extraction failed", "archive", layout.Archive, "error", err)
		return res, err
	}

	if req.AutoStart {
		u.relaunch(&res)
	}

	log.Info("update complete", "root", layout.Root, "files", stats.Files, "durationMs", time.Since(start).Milliseconds())
	return res, nil
}

func (u *Updater) relaunch(res *Result) {
	exe := filepath.Join(res.Root, u.config.Executable)
	if _, err := os.Stat(exe); err != nil {
		u.narrator.Stage("⚠️  %s not found, skipping start", u.config.Executable)
		res.RelaunchSkipped = true
		return
	}

	u.narrator.Stage("🚀 starting %s", u.config.Executable)
	pid, err := u.proc.StartDetached(exe, nil, res.Root)
	if err != nil {
		log.Warn("relaunch failed", "path", exe, "error", err)
		res.Warnings = append(res.Warnings, "relaunch failed: "+err.Error())
		return
	}
	res.Relaunched = true
	res.RelaunchPID = pid
}
