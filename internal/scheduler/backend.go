package scheduler

import (
	"context"
	"strings"

	"github.com/stranslate/host/internal/executor"
	"github.com/stranslate/host/internal/hosterr"
)

const (
	BackendSchtasks = "schtasks"
	BackendCOM      = "com"
)

// Backend is the OS scheduler registry. Every call returns the raw text
// the scheduler produced so failures can be surfaced verbatim.
type Backend interface {
	// Query reports whether a task called name is registered.
	Query(ctx context.Context, name string) (exists bool, output string, err error)
	// Register creates or overwrites name from the descriptor file at path.
	Register(ctx context.Context, name, path string) (string, error)
	Delete(ctx context.Context, name string) (string, error)
	// Run starts the registered task immediately.
	Run(ctx context.Context, name string) (string, error)
	// List returns the scheduler's own tabular listing, unparsed.
	List(ctx context.Context) (string, error)
}

// NewBackend picks the scheduler backend for kind on this platform.
func NewBackend(kind string, runner executor.Runner) (Backend, error) {
	switch strings.ToLower(kind) {
	case "", BackendSchtasks, BackendCOM:
		return newPlatformBackend(strings.ToLower(kind), runner), nil
	default:
		return nil, hosterr.NewInvalidInput("unknown scheduler backend %q", kind)
	}
}
