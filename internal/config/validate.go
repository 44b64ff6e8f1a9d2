package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

var validSchedulerBackends = map[string]bool{
	"schtasks": true,
	"com":      true,
}

// ValidationResult separates problems that must stop the helper from
// values that were clamped or reset to a safe default.
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

func (r ValidationResult) HasFatals() bool {
	return len(r.Fatals) > 0
}

// ValidateTiered checks the config. Out-of-range numbers are clamped in
// place and reported as warnings; values that would make an operation act
// on the wrong files are fatal. Nothing is logged here: the caller logs the
// warnings once logging is configured from the clamped values.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error), using info", c.LogLevel))
		c.LogLevel = "info"
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Fatals = append(r.Fatals, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	c.LogMaxSizeMB = clamp(&r, "log_max_size_mb", c.LogMaxSizeMB, 1, 100)
	c.LogMaxBackups = clamp(&r, "log_max_backups", c.LogMaxBackups, 1, 20)

	if c.Update.Executable == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("update.executable must not be empty"))
	} else if !isPlainName(c.Update.Executable) {
		r.Fatals = append(r.Fatals, fmt.Errorf("update.executable %q must be a file name, not a path", c.Update.Executable))
	}

	for _, name := range c.Update.Preserve {
		if !isPlainName(name) {
			r.Fatals = append(r.Fatals, fmt.Errorf("update.preserve entry %q must be a top-level directory name", name))
		}
	}

	if !strings.HasPrefix(c.Update.ArchiveExt, ".") || len(c.Update.ArchiveExt) < 2 {
		r.Fatals = append(r.Fatals, fmt.Errorf("update.archive_ext %q must look like .zip", c.Update.ArchiveExt))
	}

	c.Update.MaxWaitSeconds = clamp(&r, "update.max_wait_seconds", c.Update.MaxWaitSeconds, 0, 86400)
	c.Launch.MaxDelaySeconds = clamp(&r, "launch.max_delay_seconds", c.Launch.MaxDelaySeconds, 0, 86400)
	c.Source.TimeoutSeconds = clamp(&r, "source.timeout_seconds", c.Source.TimeoutSeconds, 10, 3600)

	if c.Audit.File != "" {
		c.Audit.MaxSizeMB = clamp(&r, "audit.max_size_mb", c.Audit.MaxSizeMB, 1, 100)
		c.Audit.MaxBackups = clamp(&r, "audit.max_backups", c.Audit.MaxBackups, 1, 20)
	}

	if !validSchedulerBackends[strings.ToLower(c.Scheduler.Backend)] {
		r.Fatals = append(r.Fatals, fmt.Errorf("scheduler.backend %q is not valid (use schtasks or com)", c.Scheduler.Backend))
	}

	if !strings.HasPrefix(c.Scheduler.FallbackSID, "S-1-") {
		r.Fatals = append(r.Fatals, fmt.Errorf("scheduler.fallback_sid %q is not a SID", c.Scheduler.FallbackSID))
	}

	return r
}

func clamp(r *ValidationResult, key string, v, lo, hi int) int {
	switch {
	case v < lo:
		r.Warnings = append(r.Warnings, fmt.Errorf("%s %d is below minimum %d, clamping", key, v, lo))
		return lo
	case v > hi:
		r.Warnings = append(r.Warnings, fmt.Errorf("%s %d exceeds maximum %d, clamping", key, v, hi))
		return hi
	default:
		return v
	}
}

func isPlainName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\:`)
}
