//go:build !windows

package scheduler

import (
	"context"
	"runtime"

	"github.com/stranslate/host/internal/executor"
	"github.com/stranslate/host/internal/hosterr"
)

func newPlatformBackend(string, executor.Runner) Backend {
	return unsupported{}
}

// unsupported answers every call with an error; Task Scheduler only
// exists on Windows.
type unsupported struct{}

func (unsupported) err() error {
	return hosterr.NewOSOperationFailed(nil, "task scheduler", "not available on "+runtime.GOOS)
}

func (u unsupported) Query(context.Context, string) (bool, string, error) {
	return false, "", u.err()
}

func (u unsupported) Register(context.Context, string, string) (string, error) {
	return "", u.err()
}

func (u unsupported) Delete(context.Context, string) (string, error) {
	return "", u.err()
}

func (u unsupported) Run(context.Context, string) (string, error) {
	return "", u.err()
}

func (u unsupported) List(context.Context) (string, error) {
	return "", u.err()
}
