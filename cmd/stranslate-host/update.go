package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/stranslate/host/internal/archive"
	"github.com/stranslate/host/internal/audit"
	"github.com/stranslate/host/internal/hosterr"
	"github.com/stranslate/host/internal/platform"
	"github.com/stranslate/host/internal/source"
	"github.com/stranslate/host/internal/updater"
)

var (
	updateArchive     string
	updateWait        int
	updateClean       bool
	updateProcessName string
	updateAutoStart   bool
	updateSource      string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Stop STranslate, apply an update package and start it again",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, "update", runUpdate)
	},
}

func init() {
	f := updateCmd.Flags()
	f.StringVar(&updateArchive, "archive", "", "update package, inside a directory directly under the install root")
	f.IntVar(&updateWait, "wait-time", 0, "seconds to wait after stopping the process")
	f.BoolVar(&updateClean, "clean", false, "remove the install root's contents first, keeping preserved directories")
	f.StringVar(&updateProcessName, "process-name", "", "process to stop before extracting")
	f.BoolVar(&updateAutoStart, "auto-start", false, "start the application after the update")
	f.StringVar(&updateSource, "source", "", "download the package from this URL (http, https, s3, gs, azblob, b2) first")
	f.BoolVarP(&verbose, "verbose", "v", false, "narrate each step")
	_ = updateCmd.MarkFlagRequired("archive")
}

func runUpdate(ctx context.Context, s *session) error {
	cfg := s.cfg
	p := s.printer

	p.Stage("🔧 starting update")
	p.Stage("   archive: %s", updateArchive)
	if updateWait > 0 {
		p.Stage("   wait: %ds", updateWait)
	}
	p.Stage("   clean: %t", updateClean)
	p.Stage("   auto start: %t", updateAutoStart)

	u := updater.New(updater.Config{
		Executable: cfg.Update.Executable,
		Preserve:   cfg.Update.Preserve,
		MaxWait:    seconds(cfg.Update.MaxWaitSeconds),
	},
		platform.NewProcess(),
		archive.New(archive.Options{Extension: cfg.Update.ArchiveExt}),
		source.New(cfg.Source),
		p,
	)

	res, err := u.Run(ctx, updater.Request{
		Archive:     updateArchive,
		Wait:        seconds(updateWait),
		Clean:       updateClean,
		ProcessName: updateProcessName,
		AutoStart:   updateAutoStart,
		Source:      updateSource,
	})
	if res.Root != "" {
		p.Detail("root", res.Root)
	}
	if err != nil {
		if res.Root != "" {
			s.journal.Log(audit.EventUpdateFailed, "update", map[string]any{
				"root":  res.Root,
				"kind":  hosterr.KindOf(err),
				"error": err.Error(),
			})
		}
		return err
	}

	if res.Fetched {
		p.Detail("fetched_bytes", res.FetchedSize)
	}
	if updateProcessName != "" {
		p.Detail("killed", res.Killed)
	}
	if res.KillError != "" {
		p.Detail("kill_error", res.KillError)
	}
	p.Detail("files", res.Extracted.Files)
	p.Detail("dirs", res.Extracted.Dirs)
	if updateClean {
		p.Detail("pruned", res.Extracted.Pruned)
	}
	p.Stage("✅ extraction complete")

	if updateAutoStart {
		p.Detail("relaunched", res.Relaunched)
		if res.Relaunched {
			p.Detail("pid", res.RelaunchPID)
			p.Stage("✅ %s started", cfg.Update.Executable)
		}
	}
	for _, w := range res.Warnings {
		p.Warn("%s", w)
	}
	s.journal.Log(audit.EventUpdateApplied, "update", map[string]any{
		"root":       res.Root,
		"archive":    res.Archive,
		"source":     updateSource,
		"clean":      updateClean,
		"files":      res.Extracted.Files,
		"pruned":     res.Extracted.Pruned,
		"relaunched": res.Relaunched,
	})
	return p.Success("update complete")
}
