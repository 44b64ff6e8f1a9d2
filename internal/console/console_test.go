package console

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/stranslate/host/internal/hosterr"
)

func TestTextStageOnlyWhenVerbose(t *testing.T) {
	var quiet, loud bytes.Buffer

	p, err := New(&quiet, "text", false)
	require.NoError(t, err)
	p.Stage("stopping %s", "STranslate")
	require.NoError(t, p.Success("done"))
	require.Equal(t, "✅ done\n", quiet.String())

	p, err = New(&loud, "", true)
	require.NoError(t, err)
	p.Stage("stopping %s", "STranslate")
	require.NoError(t, p.Success("done"))
	require.Equal(t, "stopping STranslate\n✅ done\n", loud.String())
}

func TestTextFailureKeepsMessageVerbatim(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(&buf, "text", false)
	require.NoError(t, err)

	require.NoError(t, p.Failure(errors.New("ERROR: Access is denied.")))
	require.Equal(t, "❌ ERROR: Access is denied.\n", buf.String())
}

func TestJSONReport(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(&buf, "JSON", true)
	require.NoError(t, err)

	p.Begin("update")
	p.Stage("not shown in json")
	p.Warn("relaunch failed: %s", "boom")
	p.Detail("root", `C:\app`)
	require.NoError(t, p.Success("update applied"))

	var r Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &r))
	require.Equal(t, "update", r.Operation)
	require.True(t, r.OK)
	require.Equal(t, "update applied", r.Message)
	require.Equal(t, []string{"relaunch failed: boom"}, r.Warnings)
	require.Equal(t, `C:\app`, r.Details["root"])
}

func TestYAMLFailureCarriesKind(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(&buf, "yaml", false)
	require.NoError(t, err)

	p.Begin("update")
	require.NoError(t, p.Failure(hosterr.NewNotFound("archive", "/tmp/pkg.zip")))

	var r Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &r))
	require.False(t, r.OK)
	require.Equal(t, hosterr.KindNotFound, r.Kind)
	require.Contains(t, r.Error, "/tmp/pkg.zip")
}

func TestBlockInStructuredMode(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(&buf, "json", false)
	require.NoError(t, err)

	p.Block("tasks", "TaskName  Next Run Time  Status\r\n")
	require.Empty(t, buf.String())
	require.NoError(t, p.Success("listed"))

	var r Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &r))
	require.Contains(t, r.Output, "TaskName")
}

func TestUnknownFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml", false)
	require.Error(t, err)
	require.Equal(t, hosterr.KindInvalidInput, hosterr.KindOf(err))
}

func TestNegativeIsStillOK(t *testing.T) {
	var text bytes.Buffer
	p, err := New(&text, "text", false)
	require.NoError(t, err)
	require.NoError(t, p.Negative("scheduled task %s does not exist", "STranslate"))
	require.Equal(t, "❌ scheduled task STranslate does not exist\n", text.String())

	var js bytes.Buffer
	p, err = New(&js, "json", false)
	require.NoError(t, err)
	p.Detail("exists", false)
	require.NoError(t, p.Negative("scheduled task %s does not exist", "STranslate"))

	var r Report
	require.NoError(t, json.Unmarshal(js.Bytes(), &r))
	require.True(t, r.OK)
	require.Equal(t, false, r.Details["exists"])
}
