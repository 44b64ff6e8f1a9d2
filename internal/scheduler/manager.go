// Package scheduler registers, inspects and removes the scheduled task
// that launches the application.
package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stranslate/host/internal/hosterr"
	"github.com/stranslate/host/internal/logging"
	"github.com/stranslate/host/internal/platform"
)

var log = logging.L("scheduler")

const DefaultAuthor = "stranslate - zggsong"

type Options struct {
	Author      string
	FallbackSID string
	// TempDir holds the transient descriptor file. Defaults to os.TempDir().
	TempDir string
	Now     func() time.Time
}

type Manager struct {
	backend  Backend
	identity platform.Identity
	opts     Options
}

func NewManager(backend Backend, identity platform.Identity, opts Options) *Manager {
	if opts.Author == "" {
		opts.Author = DefaultAuthor
	}
	if opts.FallbackSID == "" {
		opts.FallbackSID = AdministratorsSID
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{backend: backend, identity: identity, opts: opts}
}

// Status is the answer to Check.
type Status struct {
	Name   string
	Exists bool
	// Output is the scheduler's raw query text.
	Output string
}

// TaskSpec describes the task to create.
type TaskSpec struct {
	Name        string
	Program     string
	WorkingDir  string
	Description string
	RunLevel    string
	Force       bool
}

type CreateResult struct {
	Name string
	// Skipped is set when the task already existed and Force was false.
	Skipped         bool
	Replaced        bool
	WorkingDir      string
	UserID          string
	UsedFallbackSID bool
	DescriptorPath  string
	Output          string
}

type DeleteResult struct {
	Name    string
	Existed bool
	Output  string
}

// Check reports whether name is registered. It never mutates state.
func (m *Manager) Check(ctx context.Context, name string) (Status, error) {
	if err := validateName(name); err != nil {
		return Status{}, err
	}
	exists, output, err := m.backend.Query(ctx, name)
	if err != nil {
		return Status{}, err
	}
	return Status{Name: name, Exists: exists, Output: output}, nil
}

// Create registers spec with the scheduler. An existing task with the same
// name is left alone unless spec.Force is set.
func (m *Manager) Create(ctx context.Context, spec TaskSpec) (CreateResult, error) {
	if err := validateName(spec.Name); err != nil {
		return CreateResult{}, err
	}
	if spec.Program == "" {
		return CreateResult{}, hosterr.NewInvalidInput("--program is required to create a task")
	}
	if _, err := os.Stat(spec.Program); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return CreateResult{}, hosterr.NewNotFound("program", spec.Program)
		}
		return CreateResult{}, hosterr.NewOSOperationFailed(err, "stat "+spec.Program, err.Error())
	}

	// The scheduler resolves neither a relative command nor a relative
	// working directory.
	program, err := filepath.Abs(spec.Program)
	if err != nil {
		return CreateResult{}, hosterr.NewUnresolvable("program path", spec.Program)
	}

	workDir := spec.WorkingDir
	if workDir == "" {
		workDir = filepath.Dir(program)
	} else {
		if workDir, err = filepath.Abs(workDir); err != nil {
			return CreateResult{}, hosterr.NewUnresolvable("working directory", spec.WorkingDir)
		}
		info, err := os.Stat(workDir)
		switch {
		case errors.Is(err, os.ErrNotExist):
			return CreateResult{}, hosterr.NewNotFound("working directory", workDir)
		case err != nil:
			return CreateResult{}, hosterr.NewOSOperationFailed(err, "stat "+workDir, err.Error())
		case !info.IsDir():
			return CreateResult{}, hosterr.NewInvalidPath(workDir, "working directory is not a directory")
		}
	}

	result := CreateResult{Name: spec.Name, WorkingDir: workDir}

	exists, _, err := m.backend.Query(ctx, spec.Name)
	if err != nil {
		return result, err
	}
	if exists && !spec.Force {
		log.Info("task already exists, leaving it unchanged", "task", spec.Name)
		result.Skipped = true
		return result, nil
	}
	result.Replaced = exists

	userID, err := m.identity.CurrentUserSID()
	if err != nil || userID == "" {
		log.Warn("could not resolve current user SID, using fallback", "fallback", m.opts.FallbackSID, "error", err)
		userID = m.opts.FallbackSID
		result.UsedFallbackSID = true
	}
	result.UserID = userID

	desc := NewDescriptor(DescriptorParams{
		Name:        spec.Name,
		Program:     program,
		WorkingDir:  workDir,
		Description: spec.Description,
		RunLevel:    spec.RunLevel,
		Author:      m.opts.Author,
		UserID:      userID,
		Date:        m.opts.Now(),
	})
	data, err := desc.Encode()
	if err != nil {
		return result, hosterr.NewOSOperationFailed(err, "build task descriptor", err.Error())
	}

	path := filepath.Join(m.opts.TempDir, "stranslate-task-"+uuid.NewString()+".xml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return result, hosterr.NewOSOperationFailed(err, "write task descriptor", err.Error())
	}
	result.DescriptorPath = path
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to remove task descriptor", "path", path, "error", err)
		}
	}()

	output, err := m.backend.Register(ctx, spec.Name, path)
	result.Output = output
	if err != nil {
		return result, err
	}

	log.Info("task registered", "task", spec.Name, "program", program, "runLevel", MapRunLevel(spec.RunLevel))
	return result, nil
}

// Delete removes name. A task that is not registered counts as deleted.
func (m *Manager) Delete(ctx context.Context, name string) (DeleteResult, error) {
	if err := validateName(name); err != nil {
		return DeleteResult{}, err
	}
	result := DeleteResult{Name: name}

	exists, _, err := m.backend.Query(ctx, name)
	if err != nil {
		return result, err
	}
	if !exists {
		return result, nil
	}
	result.Existed = true

	output, err := m.backend.Delete(ctx, name)
	result.Output = output
	if err != nil {
		return result, err
	}
	log.Info("task deleted", "task", name)
	return result, nil
}

// List returns the scheduler's listing as-is.
func (m *Manager) List(ctx context.Context) (string, error) {
	return m.backend.List(ctx)
}

// Run starts name immediately.
func (m *Manager) Run(ctx context.Context, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return m.backend.Run(ctx, name)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return hosterr.NewInvalidInput("task name is required")
	}
	return nil
}
