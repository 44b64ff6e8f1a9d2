package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/stranslate/host/internal/hosterr"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	require.Equal(t, "STranslate Host v"+version+"\n", out.String())
}

// Ctrl-C must keep its default behavior of ending the process, so commands
// run under a context that no signal can cancel.
func TestCommandsRunUnderUncancelableContext(t *testing.T) {
	var got context.Context
	capture := &cobra.Command{
		Use: "capture-context",
		Run: func(cmd *cobra.Command, args []string) { got = cmd.Context() },
	}
	rootCmd.AddCommand(capture)
	rootCmd.SetArgs([]string{"capture-context"})
	t.Cleanup(func() {
		rootCmd.RemoveCommand(capture)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	require.NotNil(t, got)
	require.Nil(t, got.Done())
}

func TestCheckDelay(t *testing.T) {
	require.NoError(t, checkDelay(2*time.Hour, 0), "zero limit means no cap")
	require.NoError(t, checkDelay(30*time.Second, 60))

	err := checkDelay(90*time.Second, 60)
	require.Error(t, err)
	require.Equal(t, hosterr.KindInvalidInput, hosterr.KindOf(err))
}
