package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	result := Default().ValidateTiered()
	require.False(t, result.HasFatals(), "%v", result.Fatals)
	require.Empty(t, result.Warnings)
}

func TestValidateTieredExecutablePathIsFatal(t *testing.T) {
	cfg := Default()
	cfg.Update.Executable = `..\evil.exe`
	result := cfg.ValidateTiered()
	require.True(t, result.HasFatals())
	require.Contains(t, result.Fatals[0].Error(), "must be a file name")
}

func TestValidateTieredPreserveEntryWithSeparatorIsFatal(t *testing.T) {
	cfg := Default()
	cfg.Update.Preserve = append(cfg.Update.Preserve, "data/cache")
	result := cfg.ValidateTiered()
	require.True(t, result.HasFatals())
}

func TestValidateTieredArchiveExt(t *testing.T) {
	cfg := Default()
	cfg.Update.ArchiveExt = "zip"
	require.True(t, cfg.ValidateTiered().HasFatals())
}

func TestValidateTieredUnknownBackendIsFatal(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.Backend = "cron"
	require.True(t, cfg.ValidateTiered().HasFatals())
}

func TestValidateTieredBadFallbackSIDIsFatal(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.FallbackSID = "Administrators"
	require.True(t, cfg.ValidateTiered().HasFatals())
}

func TestValidateTieredClampingIsWarning(t *testing.T) {
	cfg := Default()
	cfg.Update.MaxWaitSeconds = -5
	cfg.Launch.MaxDelaySeconds = 999999
	cfg.Source.TimeoutSeconds = 1

	result := cfg.ValidateTiered()
	require.False(t, result.HasFatals(), "%v", result.Fatals)
	require.Len(t, result.Warnings, 3)
	require.Equal(t, 0, cfg.Update.MaxWaitSeconds)
	require.Equal(t, 86400, cfg.Launch.MaxDelaySeconds)
	require.Equal(t, 10, cfg.Source.TimeoutSeconds)
}

func TestDefaultWaitAndDelayAreUncapped(t *testing.T) {
	cfg := Default()
	result := cfg.ValidateTiered()
	require.Empty(t, result.Warnings)
	require.Zero(t, cfg.Update.MaxWaitSeconds)
	require.Zero(t, cfg.Launch.MaxDelaySeconds)
}

func TestValidateTieredInvalidLogLevelResets(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"
	result := cfg.ValidateTiered()
	require.False(t, result.HasFatals())
	require.Equal(t, "info", cfg.LogLevel)

	found := false
	for _, err := range result.Warnings {
		if strings.Contains(err.Error(), "log_level") {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidateTieredInvalidLogFormatIsFatal(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	require.True(t, cfg.ValidateTiered().HasFatals())
}

func TestValidateTieredAuditLimitsOnlyWhenEnabled(t *testing.T) {
	cfg := Default()
	cfg.Audit.MaxSizeMB = 0
	require.Empty(t, cfg.ValidateTiered().Warnings)

	cfg.Audit.File = "host-audit.jsonl"
	cfg.Audit.MaxBackups = 50
	result := cfg.ValidateTiered()
	require.Len(t, result.Warnings, 2)
	require.Equal(t, 1, cfg.Audit.MaxSizeMB)
	require.Equal(t, 20, cfg.Audit.MaxBackups)
}

func TestValidateTieredDoesNotLog(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	cfg := Default()
	cfg.LogLevel = "loud"
	cfg.LogMaxBackups = 99
	result := cfg.ValidateTiered()

	require.Len(t, result.Warnings, 2)
	require.Empty(t, buf.String())
}
