package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stranslate/host/internal/audit"
	"github.com/stranslate/host/internal/hosterr"
	"github.com/stranslate/host/internal/privilege"
	"github.com/stranslate/host/internal/scheduler"
)

const (
	actionCheck  = "check"
	actionCreate = "create"
	actionDelete = "delete"
	actionList   = "list"
)

var (
	taskAction      string
	taskName        string
	taskProgram     string
	taskWorkingDir  string
	taskDescription string
	taskRunLevel    string
	taskForce       bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Check, create, delete or list scheduled tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		action := strings.ToLower(taskAction)
		return runOperation(cmd, "task."+action, func(ctx context.Context, s *session) error {
			mgr, err := s.taskManager()
			if err != nil {
				return err
			}
			switch action {
			case actionCheck:
				return taskCheck(ctx, s, mgr)
			case actionCreate:
				return taskCreate(ctx, s, mgr)
			case actionDelete:
				return taskDelete(ctx, s, mgr)
			case actionList:
				return taskList(ctx, s, mgr)
			}
			return hosterr.NewInvalidInput("unknown task action %q (use check, create, delete or list)", taskAction)
		})
	},
}

func init() {
	f := taskCmd.Flags()
	f.StringVar(&taskAction, "action", "", "check, create, delete or list")
	f.StringVarP(&taskName, "name", "n", "", "task name")
	f.StringVarP(&taskProgram, "program", "p", "", "program the task starts (create)")
	f.StringVarP(&taskWorkingDir, "working-dir", "w", "", "working directory (default is the program's directory)")
	f.StringVar(&taskDescription, "description", "STranslate startup task", "task description")
	f.StringVar(&taskRunLevel, "run-level", "limited", "highest or limited")
	f.BoolVarP(&taskForce, "force", "f", false, "replace an existing task")
	f.BoolVarP(&verbose, "verbose", "v", false, "narrate each step")
	_ = taskCmd.MarkFlagRequired("action")
}

func taskCheck(ctx context.Context, s *session, mgr *scheduler.Manager) error {
	p := s.printer
	p.Stage("🔍 checking scheduled task %s", taskName)

	st, err := mgr.Check(ctx, taskName)
	if err != nil {
		return err
	}
	p.Detail("name", st.Name)
	p.Detail("exists", st.Exists)
	if !st.Exists {
		return p.Negative("scheduled task %s does not exist", taskName)
	}
	if verbose {
		p.Block("task info", st.Output)
	}
	return p.Success("scheduled task %s exists", taskName)
}

func taskCreate(ctx context.Context, s *session, mgr *scheduler.Manager) error {
	p := s.printer
	p.Stage("📝 creating scheduled task %s", taskName)
	p.Stage("   program: %s", taskProgram)
	if taskWorkingDir != "" {
		p.Stage("   working dir: %s", taskWorkingDir)
	}
	p.Stage("   run level: %s", taskRunLevel)

	if scheduler.MapRunLevel(taskRunLevel) == scheduler.RunLevelHighest && privilege.MissingElevation(privilege.OpTaskCreateHighest) {
		p.Warn("not running elevated, the scheduler may refuse a highest run level task")
	}

	res, err := mgr.Create(ctx, scheduler.TaskSpec{
		Name:        taskName,
		Program:     taskProgram,
		WorkingDir:  taskWorkingDir,
		Description: taskDescription,
		RunLevel:    taskRunLevel,
		Force:       taskForce,
	})
	if verbose && res.DescriptorPath != "" {
		p.Stage("📄 descriptor written to %s and removed", res.DescriptorPath)
	}
	if verbose && res.Output != "" {
		p.Block("registration output", res.Output)
	}
	if err != nil {
		return err
	}

	p.Detail("name", res.Name)
	if res.Skipped {
		p.Detail("skipped", true)
		return p.Success("scheduled task %s already exists, use --force to replace it", taskName)
	}
	p.Detail("replaced", res.Replaced)
	p.Detail("working_dir", res.WorkingDir)
	p.Detail("user_id", res.UserID)
	if res.UsedFallbackSID {
		p.Warn("could not resolve the current user, task runs as %s", res.UserID)
	}
	s.journal.Log(audit.EventTaskCreated, "task.create", map[string]any{
		"name":     res.Name,
		"program":  taskProgram,
		"runLevel": scheduler.MapRunLevel(taskRunLevel),
		"userId":   res.UserID,
		"replaced": res.Replaced,
	})
	return p.Success("scheduled task %s created", taskName)
}

func taskDelete(ctx context.Context, s *session, mgr *scheduler.Manager) error {
	p := s.printer
	p.Stage("🗑️  deleting scheduled task %s", taskName)

	res, err := mgr.Delete(ctx, taskName)
	if err != nil {
		return err
	}
	p.Detail("name", res.Name)
	p.Detail("existed", res.Existed)
	if !res.Existed {
		return p.Success("scheduled task %s does not exist", taskName)
	}
	s.journal.Log(audit.EventTaskDeleted, "task.delete", map[string]any{"name": res.Name})
	return p.Success("scheduled task %s deleted", taskName)
}

func taskList(ctx context.Context, s *session, mgr *scheduler.Manager) error {
	s.printer.Stage("📋 listing scheduled tasks")

	out, err := mgr.List(ctx)
	if err != nil {
		return err
	}
	s.printer.Block("scheduled tasks", out)
	return s.printer.Success("scheduled tasks listed")
}
