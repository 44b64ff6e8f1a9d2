// Package launcher starts the application plainly, elevated, or by
// running its scheduled task.
package launcher

import (
	"context"
	"strings"
	"time"

	"github.com/stranslate/host/internal/hosterr"
	"github.com/stranslate/host/internal/logging"
	"github.com/stranslate/host/internal/platform"
	"github.com/stranslate/host/internal/privilege"
)

var log = logging.L("launcher")

const (
	ModeDirect   = "direct"
	ModeElevated = "elevated"
	ModeTask     = "task"
)

// TaskRunner runs a registered scheduled task by name.
type TaskRunner interface {
	Run(ctx context.Context, name string) (string, error)
}

// Narrator receives a line before each stage runs.
type Narrator interface {
	Stage(format string, args ...any)
}

type nopNarrator struct{}

func (nopNarrator) Stage(string, ...any) {}

type Request struct {
	Mode    string
	Target  string
	Args    []string
	Delay   time.Duration
	Verbose bool
}

type Outcome struct {
	Mode    string
	Target  string
	Started bool
	// Warning is set when a direct or elevated start failed. Those
	// failures do not fail the command.
	Warning        string
	Output         string
	CallerElevated bool
}

type Launcher struct {
	proc     platform.Process
	tasks    TaskRunner
	narrator Narrator
	sleep    func(time.Duration)
}

func New(proc platform.Process, tasks TaskRunner, narrator Narrator) *Launcher {
	if narrator == nil {
		narrator = nopNarrator{}
	}
	return &Launcher{proc: proc, tasks: tasks, narrator: narrator, sleep: time.Sleep}
}

func (l *Launcher) Launch(ctx context.Context, req Request) (Outcome, error) {
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	out := Outcome{Mode: mode, Target: req.Target, CallerElevated: privilege.IsElevated()}

	switch mode {
	case ModeDirect, ModeElevated, ModeTask:
	default:
		return out, hosterr.NewInvalidInput("unknown start mode %q (use direct, elevated or task)", req.Mode)
	}
	if strings.TrimSpace(req.Target) == "" {
		return out, hosterr.NewInvalidInput("--target is required")
	}
	if req.Delay < 0 {
		return out, hosterr.NewInvalidInput("delay must not be negative")
	}

	if req.Delay > 0 {
		l.narrator.Stage("⏳ waiting %s before start", req.Delay)
		l.sleep(req.Delay)
	}

	switch mode {
	case ModeDirect:
		l.narrator.Stage("🚀 starting %s", req.Target)
		if err := l.proc.Start(ctx, req.Target, req.Args); err != nil {
			log.Warn("direct start failed", "target", req.Target, "error", err)
			out.Warning = err.Error()
			return out, nil
		}

	case ModeElevated:
		l.narrator.Stage("🔑 starting %s elevated", req.Target)
		if err := l.proc.StartElevated(ctx, req.Target, req.Args, req.Verbose); err != nil {
			log.Warn("elevated start failed", "target", req.Target, "error", err)
			out.Warning = err.Error()
			return out, nil
		}

	case ModeTask:
		l.narrator.Stage("📅 running scheduled task %s", req.Target)
		output, err := l.tasks.Run(ctx, req.Target)
		out.Output = output
		if err != nil {
			return out, err
		}
	}

	out.Started = true
	log.Info("started", "mode", mode, "target", req.Target)
	return out, nil
}
