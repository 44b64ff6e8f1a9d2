//go:build windows

package scheduler

import "github.com/stranslate/host/internal/executor"

func newPlatformBackend(kind string, runner executor.Runner) Backend {
	if kind == BackendCOM {
		return NewCOM()
	}
	return NewSchtasks(runner)
}
