package executor

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	r := New()
	result, err := r.Run(context.Background(), "sh", "-c", "echo out; echo err >&2; exit 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode)
	}
	if result.Success() {
		t.Fatal("non-zero exit must not be success")
	}
	if strings.TrimSpace(result.Stdout) != "out" {
		t.Fatalf("unexpected stdout: %q", result.Stdout)
	}
	if result.ErrorText() != "err" {
		t.Fatalf("unexpected error text: %q", result.ErrorText())
	}
}

func TestRunMissingBinary(t *testing.T) {
	r := New()
	result, err := r.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if result.ExitCode != -1 {
		t.Fatalf("expected exit code -1, got %d", result.ExitCode)
	}
}

func TestRunTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep")
	}

	r := &CommandRunner{Timeout: 100 * time.Millisecond}
	_, err := r.Run(context.Background(), "sleep", "5")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestErrorTextFallsBackToStdout(t *testing.T) {
	r := Result{ExitCode: 1, Stdout: "ERROR: The system cannot find the file specified.\r\n"}
	if r.ErrorText() != "ERROR: The system cannot find the file specified." {
		t.Fatalf("unexpected error text: %q", r.ErrorText())
	}
}

func TestLimitedWriterTruncates(t *testing.T) {
	var buf bytes.Buffer
	w := &limitedWriter{buf: &buf, limit: 4}

	n, err := w.Write([]byte("abcdef"))
	if err != nil || n != 6 {
		t.Fatalf("expected full length write, got n=%d err=%v", n, err)
	}
	n, err = w.Write([]byte("gh"))
	if err != nil || n != 2 {
		t.Fatalf("expected discard write, got n=%d err=%v", n, err)
	}
	if buf.String() != "abcd" {
		t.Fatalf("unexpected buffer: %q", buf.String())
	}
}
