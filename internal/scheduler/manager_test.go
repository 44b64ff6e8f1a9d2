package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stranslate/host/internal/hosterr"
)

// fakeBackend is an in-memory task registry. Register keeps the decoded
// descriptor so tests can inspect what would have been registered.
type fakeBackend struct {
	tasks       map[string]string
	registerErr error
	registered  int
	deleted     int
	lastPath    string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{tasks: map[string]string{}}
}

func (f *fakeBackend) Query(_ context.Context, name string) (bool, string, error) {
	_, ok := f.tasks[name]
	if !ok {
		return false, "ERROR: The system cannot find the file specified.", nil
	}
	return true, "TaskName " + name, nil
}

func (f *fakeBackend) Register(_ context.Context, name, path string) (string, error) {
	f.lastPath = path
	if f.registerErr != nil {
		return "", f.registerErr
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := DecodeDescriptorText(data)
	if err != nil {
		return "", err
	}
	f.tasks[name] = text
	f.registered++
	return "SUCCESS: created", nil
}

func (f *fakeBackend) Delete(_ context.Context, name string) (string, error) {
	delete(f.tasks, name)
	f.deleted++
	return "SUCCESS: deleted", nil
}

func (f *fakeBackend) Run(_ context.Context, name string) (string, error) {
	if _, ok := f.tasks[name]; !ok {
		return "", hosterr.NewOSOperationFailed(nil, "run task "+name, "ERROR: The system cannot find the file specified.")
	}
	return "SUCCESS", nil
}

func (f *fakeBackend) List(context.Context) (string, error) {
	return "TaskName  Next Run Time  Status", nil
}

type fakeIdentity struct {
	sid string
	err error
}

func (f fakeIdentity) CurrentUserSID() (string, error) { return f.sid, f.err }
func (f fakeIdentity) CurrentUserName() (string, error) { return "DESKTOP\\user", nil }

func newTestManager(t *testing.T, b Backend, id fakeIdentity) *Manager {
	t.Helper()
	return NewManager(b, id, Options{
		TempDir: t.TempDir(),
		Now:     func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local) },
	})
}

func writeProgram(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	program := filepath.Join(dir, "a.exe")
	require.NoError(t, os.WriteFile(program, []byte("MZ"), 0o755))
	return program
}

func TestCreateTwiceIsNoOpSecondTime(t *testing.T) {
	b := newFakeBackend()
	m := newTestManager(t, b, fakeIdentity{sid: "S-1-5-21-1"})
	program := writeProgram(t)
	spec := TaskSpec{Name: "T1", Program: program, Description: "auto start"}

	first, err := m.Create(context.Background(), spec)
	require.NoError(t, err)
	require.False(t, first.Skipped)
	registered := b.tasks["T1"]
	require.NotEmpty(t, registered)

	second, err := m.Create(context.Background(), spec)
	require.NoError(t, err)
	require.True(t, second.Skipped)
	require.Equal(t, 1, b.registered)
	require.Equal(t, registered, b.tasks["T1"])
}

func TestCreateForceOverwrites(t *testing.T) {
	b := newFakeBackend()
	b.tasks["T1"] = "old"
	m := newTestManager(t, b, fakeIdentity{sid: "S-1-5-21-1"})

	res, err := m.Create(context.Background(), TaskSpec{Name: "T1", Program: writeProgram(t), Force: true})
	require.NoError(t, err)
	require.True(t, res.Replaced)
	require.NotEqual(t, "old", b.tasks["T1"])
}

func TestCreateDefaultsWorkingDirAndRemovesDescriptor(t *testing.T) {
	b := newFakeBackend()
	m := newTestManager(t, b, fakeIdentity{sid: "S-1-5-21-1"})
	program := writeProgram(t)

	res, err := m.Create(context.Background(), TaskSpec{Name: "T1", Program: program, RunLevel: "highest"})
	require.NoError(t, err)
	require.Equal(t, filepath.Dir(program), res.WorkingDir)
	require.Contains(t, b.tasks["T1"], "<WorkingDirectory>"+filepath.Dir(program)+"</WorkingDirectory>")
	require.Contains(t, b.tasks["T1"], "<RunLevel>HighestAvailable</RunLevel>")
	require.Contains(t, b.tasks["T1"], "<UserId>S-1-5-21-1</UserId>")

	_, err = os.Stat(b.lastPath)
	require.True(t, errors.Is(err, os.ErrNotExist), "descriptor file should be removed")
}

func TestCreateRemovesDescriptorOnRegisterFailure(t *testing.T) {
	b := newFakeBackend()
	b.registerErr = hosterr.NewOSOperationFailed(nil, "create task T1", "ERROR: Access is denied.")
	m := newTestManager(t, b, fakeIdentity{sid: "S-1-5-21-1"})

	_, err := m.Create(context.Background(), TaskSpec{Name: "T1", Program: writeProgram(t)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ERROR: Access is denied.")

	_, statErr := os.Stat(b.lastPath)
	require.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestCreateFallsBackToAdministratorsSID(t *testing.T) {
	b := newFakeBackend()
	m := newTestManager(t, b, fakeIdentity{err: errors.New("no token")})

	res, err := m.Create(context.Background(), TaskSpec{Name: "T1", Program: writeProgram(t)})
	require.NoError(t, err)
	require.True(t, res.UsedFallbackSID)
	require.Equal(t, AdministratorsSID, res.UserID)
	require.Contains(t, b.tasks["T1"], "<UserId>S-1-5-32-544</UserId>")
	require.Contains(t, b.tasks["T1"], "<RunLevel>LeastPrivilege</RunLevel>")
}

func TestCreateValidation(t *testing.T) {
	b := newFakeBackend()
	m := newTestManager(t, b, fakeIdentity{sid: "S-1-5-21-1"})
	ctx := context.Background()

	_, err := m.Create(ctx, TaskSpec{Name: "T1"})
	require.Equal(t, hosterr.KindInvalidInput, hosterr.KindOf(err))

	_, err = m.Create(ctx, TaskSpec{Name: "T1", Program: filepath.Join(t.TempDir(), "missing.exe")})
	require.Equal(t, hosterr.KindNotFound, hosterr.KindOf(err))

	_, err = m.Create(ctx, TaskSpec{Name: " ", Program: writeProgram(t)})
	require.Equal(t, hosterr.KindInvalidInput, hosterr.KindOf(err))

	program := writeProgram(t)
	_, err = m.Create(ctx, TaskSpec{Name: "T1", Program: program, WorkingDir: filepath.Join(t.TempDir(), "gone")})
	require.Equal(t, hosterr.KindNotFound, hosterr.KindOf(err))

	_, err = m.Create(ctx, TaskSpec{Name: "T1", Program: program, WorkingDir: program})
	require.Equal(t, hosterr.KindInvalidInput, hosterr.KindOf(err))

	require.Zero(t, b.registered)
}

func TestCreateRegistersAbsolutePaths(t *testing.T) {
	b := newFakeBackend()
	m := newTestManager(t, b, fakeIdentity{sid: "S-1-5-21-1"})

	program := writeProgram(t)
	t.Chdir(filepath.Dir(program))

	res, err := m.Create(context.Background(), TaskSpec{Name: "T1", Program: "a.exe", WorkingDir: "."})
	require.NoError(t, err)

	abs, err := filepath.Abs("a.exe")
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(res.WorkingDir))
	require.Contains(t, b.tasks["T1"], "<Command>"+abs+"</Command>")
	require.Contains(t, b.tasks["T1"], "<WorkingDirectory>"+res.WorkingDir+"</WorkingDirectory>")
}

func TestCheck(t *testing.T) {
	b := newFakeBackend()
	b.tasks["T1"] = "x"
	m := newTestManager(t, b, fakeIdentity{})

	st, err := m.Check(context.Background(), "T1")
	require.NoError(t, err)
	require.True(t, st.Exists)
	require.Equal(t, "TaskName T1", st.Output)

	st, err = m.Check(context.Background(), "T2")
	require.NoError(t, err)
	require.False(t, st.Exists)
	require.Len(t, b.tasks, 1)
}

func TestDeleteAbsentIsNoOp(t *testing.T) {
	b := newFakeBackend()
	m := newTestManager(t, b, fakeIdentity{})

	res, err := m.Delete(context.Background(), "T1")
	require.NoError(t, err)
	require.False(t, res.Existed)
	require.Zero(t, b.deleted)
}

func TestDeletePresent(t *testing.T) {
	b := newFakeBackend()
	b.tasks["T1"] = "x"
	m := newTestManager(t, b, fakeIdentity{})

	res, err := m.Delete(context.Background(), "T1")
	require.NoError(t, err)
	require.True(t, res.Existed)
	require.Equal(t, 1, b.deleted)
	require.Empty(t, b.tasks)
}

func TestListAndRun(t *testing.T) {
	b := newFakeBackend()
	b.tasks["T1"] = "x"
	m := newTestManager(t, b, fakeIdentity{})

	out, err := m.List(context.Background())
	require.NoError(t, err)
	require.Contains(t, out, "TaskName")

	_, err = m.Run(context.Background(), "T1")
	require.NoError(t, err)

	_, err = m.Run(context.Background(), "missing")
	require.Equal(t, hosterr.KindOSOperationFailed, hosterr.KindOf(err))
}
