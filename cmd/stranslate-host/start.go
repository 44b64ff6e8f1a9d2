package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stranslate/host/internal/audit"
	"github.com/stranslate/host/internal/hosterr"
	"github.com/stranslate/host/internal/launcher"
	"github.com/stranslate/host/internal/platform"
)

var (
	startMode   string
	startTarget string
	startArgs   []string
	startDelay  int
)

var startCmd = &cobra.Command{
	Use:   "start [-- args...]",
	Short: "Start a program directly, elevated, or through a scheduled task",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, "start", func(ctx context.Context, s *session) error {
			return runStart(ctx, s, append(startArgs, args...))
		})
	},
}

func init() {
	f := startCmd.Flags()
	f.StringVarP(&startMode, "mode", "m", launcher.ModeDirect, "how to start: direct, elevated or task")
	f.StringVarP(&startTarget, "target", "t", "", "program path, or task name in task mode")
	f.StringArrayVarP(&startArgs, "args", "a", nil, "argument passed to the program (repeatable)")
	f.IntVarP(&startDelay, "delay", "d", 0, "seconds to wait before starting")
	f.BoolVarP(&verbose, "verbose", "v", false, "narrate each step")
	_ = startCmd.MarkFlagRequired("target")
}

func runStart(ctx context.Context, s *session, args []string) error {
	delay := seconds(startDelay)
	if err := checkDelay(delay, s.cfg.Launch.MaxDelaySeconds); err != nil {
		return err
	}

	p := s.printer
	p.Stage("🚀 preparing to start")
	p.Stage("   mode: %s", startMode)
	p.Stage("   target: %s", startTarget)
	if len(args) > 0 {
		p.Stage("   args: %s", strings.Join(args, " "))
	}
	if delay > 0 {
		p.Stage("   delay: %s", delay)
	}

	tasks, err := s.taskManager()
	if err != nil {
		return err
	}

	out, err := launcher.New(platform.NewProcess(), tasks, p).Launch(ctx, launcher.Request{
		Mode:    startMode,
		Target:  startTarget,
		Args:    args,
		Delay:   delay,
		Verbose: verbose,
	})
	p.Detail("mode", out.Mode)
	p.Detail("target", out.Target)
	p.Detail("caller_elevated", out.CallerElevated)
	if verbose && out.Output != "" {
		p.Block("scheduler output", out.Output)
	}
	if err != nil {
		return err
	}

	p.Detail("started", out.Started)
	if out.Warning != "" {
		p.Warn("process failed to start: %s", out.Warning)
	}
	if out.Started {
		s.journal.Log(audit.EventProcessStarted, "start", map[string]any{
			"mode":   out.Mode,
			"target": out.Target,
		})
	}
	return p.Success("start complete")
}

// checkDelay rejects a delay above maxSeconds. Zero maxSeconds means no cap.
func checkDelay(delay time.Duration, maxSeconds int) error {
	if limit := seconds(maxSeconds); limit > 0 && delay > limit {
		return hosterr.NewInvalidInput("delay %s exceeds the limit of %s", delay, limit)
	}
	return nil
}
