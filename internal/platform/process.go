// Package platform is the process-control surface the launcher and the
// updater drive: start (plain, elevated, detached) and kill by name.
package platform

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/stranslate/host/internal/hosterr"
	"github.com/stranslate/host/internal/logging"
)

var log = logging.L("platform")

type Process interface {
	// Start launches target as an independent process.
	Start(ctx context.Context, target string, args []string) error
	// StartElevated asks the OS to launch target with elevated privilege.
	// Output is only attached to the console when verbose is set.
	StartElevated(ctx context.Context, target string, args []string, verbose bool) error
	// StartDetached starts path in dir, releases ownership and returns its
	// PID. The caller never waits on it.
	StartDetached(path string, args []string, dir string) (int, error)
	// KillByName force-kills every process whose image name matches name
	// and returns how many were killed.
	KillByName(ctx context.Context, name string) (int, error)
}

// OSProcess is the real Process backend.
type OSProcess struct{}

func NewProcess() *OSProcess {
	return &OSProcess{}
}

func (OSProcess) StartDetached(path string, args []string, dir string) (int, error) {
	cmd := exec.Command(path, args...)
	cmd.Dir = dir
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	setDetachedProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return 0, hosterr.NewOSOperationFailed(err, "start "+path, err.Error())
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		log.Warn("failed to release process handle", "pid", pid, "error", err)
	}
	log.Info("started detached process", "path", path, "pid", pid)
	return pid, nil
}

func (OSProcess) KillByName(ctx context.Context, name string) (int, error) {
	want := normalizeImageName(name)
	if want == "" {
		return 0, hosterr.NewInvalidInput("process name is empty")
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, hosterr.NewOSOperationFailed(err, "list processes", err.Error())
	}

	self := int32(os.Getpid())
	killed := 0
	var lastErr error
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		pname, err := p.NameWithContext(ctx)
		if err != nil || normalizeImageName(pname) != want {
			continue
		}
		if err := p.KillWithContext(ctx); err != nil {
			log.Warn("failed to kill process", "pid", p.Pid, "name", pname, "error", err)
			lastErr = err
			continue
		}
		log.Info("killed process", "pid", p.Pid, "name", pname)
		killed++
	}

	if killed == 0 {
		if lastErr != nil {
			return 0, hosterr.NewOSOperationFailed(lastErr, "kill "+name, lastErr.Error())
		}
		return 0, hosterr.NewNotFound("process", name)
	}
	return killed, nil
}

// normalizeImageName folds case and drops a trailing .exe so "STranslate"
// and "stranslate.exe" name the same image.
func normalizeImageName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ".exe")
}
