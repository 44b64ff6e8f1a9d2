package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreInitLoggerUsesConfiguredHandler(t *testing.T) {
	logger := L("updater")

	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger.Info("extracting", "archive", "/opt/app/update/pkg.zip")

	out := buf.String()
	require.Contains(t, out, "msg=extracting")
	require.Contains(t, out, "component=updater")
	require.Contains(t, out, "archive=/opt/app/update/pkg.zip")
}

func TestPreInitLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := L("launcher")

	var buf bytes.Buffer
	Init("text", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown")
}

func TestWithOperationAddsField(t *testing.T) {
	var buf bytes.Buffer
	Init("json", "debug", &buf)

	WithOperation(L("cli"), "update").Debug("stage")

	require.Contains(t, buf.String(), `"operation":"update"`)
	require.Contains(t, buf.String(), `"component":"cli"`)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "DEBUG", parseLevel("debug").String())
	require.Equal(t, "WARN", parseLevel(" Warning ").String())
	require.Equal(t, "ERROR", parseLevel("error").String())
	require.Equal(t, "INFO", parseLevel("bogus").String())
}

func TestRotatingWriterRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "host.log")

	rw, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer rw.Close()

	// shrink the limit so a couple of writes force rotation
	rw.maxSize = 16

	_, err = rw.Write([]byte(strings.Repeat("a", 10)))
	require.NoError(t, err)
	_, err = rw.Write([]byte(strings.Repeat("b", 10)))
	require.NoError(t, err)
	_, err = rw.Write([]byte(strings.Repeat("c", 10)))
	require.NoError(t, err)

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("c", 10), string(current))

	first, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("b", 10), string(first))

	second, err := os.ReadFile(path + ".2")
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("a", 10), string(second))
}

func TestSetupWithFileTeesOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.log")

	closer, err := Setup(Options{Format: "text", Level: "info", File: path})
	require.NoError(t, err)

	L("test").Info("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "written to file")

	Init("text", "warn", &bytes.Buffer{})
}

func TestSetupSwitchesBetweenTextAndJSON(t *testing.T) {
	defer Init("text", "warn", &bytes.Buffer{})

	textPath := filepath.Join(t.TempDir(), "text.log")
	closer, err := Setup(Options{Format: "text", Level: "info", File: textPath})
	require.NoError(t, err)
	L("updater").Info("as text")
	require.NoError(t, closer.Close())

	jsonPath := filepath.Join(t.TempDir(), "json.log")
	require.NotPanics(t, func() {
		closer, err = Setup(Options{Format: "json", Level: "info", File: jsonPath})
	})
	require.NoError(t, err)
	L("updater").Info("as json")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"as json"`)
	require.Contains(t, string(data), `"component":"updater"`)
}
