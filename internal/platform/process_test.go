package platform

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stranslate/host/internal/hosterr"
)

func TestNormalizeImageName(t *testing.T) {
	require.Equal(t, "stranslate", normalizeImageName("STranslate.exe"))
	require.Equal(t, "stranslate", normalizeImageName(" stranslate "))
	require.Equal(t, "stranslate.host", normalizeImageName("STranslate.Host"))
	require.Equal(t, "", normalizeImageName("  "))
}

func TestKillByNameNoMatchIsNotFound(t *testing.T) {
	_, err := NewProcess().KillByName(context.Background(), "no-such-process-f3a9c1")
	require.Error(t, err)
	require.Equal(t, hosterr.KindNotFound, hosterr.KindOf(err))
}

func TestKillByNameEmpty(t *testing.T) {
	_, err := NewProcess().KillByName(context.Background(), "")
	require.Equal(t, hosterr.KindInvalidInput, hosterr.KindOf(err))
}

func TestKillByNameKillsMatchingProcess(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("relies on /proc comm of a shell script")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	bin := filepath.Join(t.TempDir(), "hostkilltest")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nwhile true; do sleep 1; done\n"), 0o755))

	cmd := exec.Command(bin)
	require.NoError(t, cmd.Start())
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	n, err := NewProcess().KillByName(context.Background(), "HostKillTest.exe")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process was not killed")
	}
}

func TestStartDetachedMissingBinary(t *testing.T) {
	_, err := NewProcess().StartDetached(filepath.Join(t.TempDir(), "missing"), nil, "")
	require.Error(t, err)
	require.Equal(t, hosterr.KindOSOperationFailed, hosterr.KindOf(err))
}
