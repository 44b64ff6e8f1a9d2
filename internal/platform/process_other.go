//go:build !windows

package platform

import (
	"context"
	"os"
	"os/exec"
	"syscall"

	"github.com/stranslate/host/internal/hosterr"
)

func (p OSProcess) Start(_ context.Context, target string, args []string) error {
	path, err := exec.LookPath(target)
	if err != nil {
		return hosterr.NewOSOperationFailed(err, "start "+target, err.Error())
	}
	_, err = p.StartDetached(path, args, "")
	return err
}

// StartElevated goes through non-interactive sudo; there is no elevation
// prompt outside Windows.
func (OSProcess) StartElevated(_ context.Context, target string, args []string, verbose bool) error {
	cmd := exec.Command("sudo", append([]string{"-n", target}, args...)...)
	if verbose {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	setDetachedProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return hosterr.NewOSOperationFailed(err, "sudo "+target, err.Error())
	}
	if err := cmd.Process.Release(); err != nil {
		log.Warn("failed to release process handle", "error", err)
	}
	return nil
}

func setDetachedProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
