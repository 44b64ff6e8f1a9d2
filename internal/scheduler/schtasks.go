package scheduler

import (
	"context"

	"github.com/stranslate/host/internal/executor"
	"github.com/stranslate/host/internal/hosterr"
)

const schtasksExe = "schtasks"

// Schtasks drives the scheduler through schtasks.exe.
type Schtasks struct {
	runner executor.Runner
}

func NewSchtasks(runner executor.Runner) *Schtasks {
	return &Schtasks{runner: runner}
}

func (s *Schtasks) Query(ctx context.Context, name string) (bool, string, error) {
	res, err := s.runner.Run(ctx, schtasksExe, "/Query", "/TN", name)
	if err != nil {
		return false, "", hosterr.NewOSOperationFailed(err, "query task "+name, err.Error())
	}
	if !res.Success() {
		return false, res.ErrorText(), nil
	}
	return true, res.Stdout, nil
}

func (s *Schtasks) Register(ctx context.Context, name, path string) (string, error) {
	return s.call(ctx, "create task "+name, "/Create", "/XML", path, "/TN", name, "/F")
}

func (s *Schtasks) Delete(ctx context.Context, name string) (string, error) {
	return s.call(ctx, "delete task "+name, "/Delete", "/TN", name, "/F")
}

func (s *Schtasks) Run(ctx context.Context, name string) (string, error) {
	return s.call(ctx, "run task "+name, "/Run", "/TN", name)
}

func (s *Schtasks) List(ctx context.Context) (string, error) {
	return s.call(ctx, "list tasks", "/Query", "/FO", "TABLE")
}

func (s *Schtasks) call(ctx context.Context, op string, args ...string) (string, error) {
	res, err := s.runner.Run(ctx, schtasksExe, args...)
	if err != nil {
		return "", hosterr.NewOSOperationFailed(err, op, err.Error())
	}
	if !res.Success() {
		return res.Stdout, hosterr.NewOSOperationFailed(nil, op, res.ErrorText())
	}
	return res.Stdout, nil
}
