//go:build windows

package platform

import (
	"context"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/stranslate/host/internal/hosterr"
)

func (OSProcess) Start(_ context.Context, target string, args []string) error {
	return shellExecute("open", target, args)
}

func (OSProcess) StartElevated(_ context.Context, target string, args []string, _ bool) error {
	return shellExecute("runas", target, args)
}

// shellExecute resolves target the way Explorer does (App Paths, file
// associations), which is what lets --target be a bare program name.
func shellExecute(verb, target string, args []string) error {
	verbPtr, err := windows.UTF16PtrFromString(verb)
	if err != nil {
		return hosterr.NewInvalidInput("invalid verb %q", verb)
	}
	filePtr, err := windows.UTF16PtrFromString(target)
	if err != nil {
		return hosterr.NewInvalidPath(target, "invalid target")
	}
	var argsPtr *uint16
	if len(args) > 0 {
		argsPtr, err = windows.UTF16PtrFromString(windows.ComposeCommandLine(args))
		if err != nil {
			return hosterr.NewInvalidInput("invalid arguments for %s", target)
		}
	}

	if err := windows.ShellExecute(0, verbPtr, filePtr, argsPtr, nil, windows.SW_SHOWNORMAL); err != nil {
		return hosterr.NewOSOperationFailed(err, verb+" "+target, err.Error())
	}
	log.Info("shell execute", "verb", verb, "target", target)
	return nil
}

func setDetachedProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
	}
}
