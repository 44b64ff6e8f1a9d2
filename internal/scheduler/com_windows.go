//go:build windows

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/stranslate/host/internal/hosterr"
)

// ITaskService constants.
const (
	taskCreateOrUpdate        = 6
	taskLogonInteractiveToken = 3
	taskEnumHidden            = 1

	sFalse = 0x00000001
)

var taskStates = map[int]string{
	0: "Unknown",
	1: "Disabled",
	2: "Queued",
	3: "Ready",
	4: "Running",
}

// COM talks to the Task Scheduler 2.0 service (Schedule.Service)
// directly instead of shelling out to schtasks.
type COM struct{}

func NewCOM() *COM {
	return &COM{}
}

func (c *COM) Query(_ context.Context, name string) (bool, string, error) {
	var exists bool
	var output string
	err := c.withRootFolder(func(folder *ole.IDispatch) error {
		taskVar, err := oleutil.CallMethod(folder, "GetTask", taskPath(name))
		if err != nil {
			output = err.Error()
			return nil
		}
		defer taskVar.Clear()

		task := taskVar.ToIDispatch()
		if task == nil {
			return nil
		}
		exists = true
		output = describeTask(task)
		return nil
	})
	if err != nil {
		return false, "", err
	}
	return exists, output, nil
}

func (c *COM) Register(_ context.Context, name, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", hosterr.NewOSOperationFailed(err, "read task descriptor", err.Error())
	}
	text, err := DecodeDescriptorText(data)
	if err != nil {
		return "", hosterr.NewOSOperationFailed(err, "read task descriptor", err.Error())
	}

	var output string
	err = c.withRootFolder(func(folder *ole.IDispatch) error {
		taskVar, err := oleutil.CallMethod(folder, "RegisterTask",
			taskPath(name), text, taskCreateOrUpdate, nil, nil, taskLogonInteractiveToken, nil)
		if err != nil {
			return hosterr.NewOSOperationFailed(err, "create task "+name, err.Error())
		}
		defer taskVar.Clear()
		if task := taskVar.ToIDispatch(); task != nil {
			output = fmt.Sprintf("SUCCESS: The scheduled task %q has successfully been created.", name)
		}
		return nil
	})
	return output, err
}

func (c *COM) Delete(_ context.Context, name string) (string, error) {
	err := c.withRootFolder(func(folder *ole.IDispatch) error {
		if _, err := oleutil.CallMethod(folder, "DeleteTask", taskPath(name), 0); err != nil {
			return hosterr.NewOSOperationFailed(err, "delete task "+name, err.Error())
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SUCCESS: The scheduled task %q was successfully deleted.", name), nil
}

func (c *COM) Run(_ context.Context, name string) (string, error) {
	err := c.withRootFolder(func(folder *ole.IDispatch) error {
		taskVar, err := oleutil.CallMethod(folder, "GetTask", taskPath(name))
		if err != nil {
			return hosterr.NewOSOperationFailed(err, "run task "+name, err.Error())
		}
		defer taskVar.Clear()

		task := taskVar.ToIDispatch()
		if task == nil {
			return hosterr.NewOSOperationFailed(nil, "run task "+name, "task not found")
		}

		runVar, err := oleutil.CallMethod(task, "Run", nil)
		if err != nil {
			return hosterr.NewOSOperationFailed(err, "run task "+name, err.Error())
		}
		runVar.Clear()
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SUCCESS: Attempted to run the scheduled task %q.", name), nil
}

func (c *COM) List(_ context.Context) (string, error) {
	var b strings.Builder
	err := c.withRootFolder(func(folder *ole.IDispatch) error {
		tasksVar, err := oleutil.CallMethod(folder, "GetTasks", taskEnumHidden)
		if err != nil {
			return hosterr.NewOSOperationFailed(err, "list tasks", err.Error())
		}
		defer tasksVar.Clear()

		tasks := tasksVar.ToIDispatch()
		if tasks == nil {
			return hosterr.NewOSOperationFailed(nil, "list tasks", "nil task collection")
		}

		count, err := getIntProperty(tasks, "Count")
		if err != nil {
			return hosterr.NewOSOperationFailed(err, "list tasks", err.Error())
		}

		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TaskName\tNext Run Time\tStatus")
		fmt.Fprintln(tw, "========\t=============\t======")
		// Task collections are 1-based.
		for i := 1; i <= count; i++ {
			itemVar, err := oleutil.GetProperty(tasks, "Item", i)
			if err != nil {
				continue
			}
			task := itemVar.ToIDispatch()
			if task == nil {
				itemVar.Clear()
				continue
			}
			path, _ := getStringProperty(task, "Path")
			next, _ := getStringProperty(task, "NextRunTime")
			state, _ := getIntProperty(task, "State")
			fmt.Fprintf(tw, "%s\t%s\t%s\n", path, next, taskStates[state])
			itemVar.Clear()
		}
		return tw.Flush()
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// withRootFolder connects to the local scheduler service on a locked,
// COM-initialised thread and hands the root task folder to action.
func (c *COM) withRootFolder(action func(folder *ole.IDispatch) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			return hosterr.NewOSOperationFailed(err, "initialize COM", err.Error())
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("Schedule.Service")
	if err != nil {
		return hosterr.NewOSOperationFailed(err, "create scheduler service", err.Error())
	}
	defer unknown.Release()

	service, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return hosterr.NewOSOperationFailed(err, "query scheduler service", err.Error())
	}
	defer service.Release()

	if _, err := oleutil.CallMethod(service, "Connect"); err != nil {
		return hosterr.NewOSOperationFailed(err, "connect scheduler service", err.Error())
	}

	folderVar, err := oleutil.CallMethod(service, "GetFolder", `\`)
	if err != nil {
		return hosterr.NewOSOperationFailed(err, "open root task folder", err.Error())
	}
	defer folderVar.Clear()

	folder := folderVar.ToIDispatch()
	if folder == nil {
		return hosterr.NewOSOperationFailed(nil, "open root task folder", "nil folder")
	}

	log.Debug("connected to task scheduler service")
	return action(folder)
}

func describeTask(task *ole.IDispatch) string {
	path, _ := getStringProperty(task, "Path")
	next, _ := getStringProperty(task, "NextRunTime")
	last, _ := getStringProperty(task, "LastRunTime")
	state, _ := getIntProperty(task, "State")
	return fmt.Sprintf("TaskName: %s\nStatus: %s\nNext Run Time: %s\nLast Run Time: %s\n",
		path, taskStates[state], next, last)
}

func taskPath(name string) string {
	return `\` + strings.TrimPrefix(name, `\`)
}

func getStringProperty(dispatch *ole.IDispatch, name string) (string, error) {
	value, err := oleutil.GetProperty(dispatch, name)
	if err != nil {
		return "", err
	}
	defer value.Clear()
	if v := value.Value(); v != nil {
		return fmt.Sprint(v), nil
	}
	return "", nil
}

func getIntProperty(dispatch *ole.IDispatch, name string) (int, error) {
	value, err := oleutil.GetProperty(dispatch, name)
	if err != nil {
		return 0, err
	}
	defer value.Clear()
	return int(value.Val), nil
}
