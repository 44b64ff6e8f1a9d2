package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stranslate/host/internal/audit"
	"github.com/stranslate/host/internal/config"
	"github.com/stranslate/host/internal/console"
	"github.com/stranslate/host/internal/executor"
	"github.com/stranslate/host/internal/hosterr"
	"github.com/stranslate/host/internal/logging"
	"github.com/stranslate/host/internal/platform"
	"github.com/stranslate/host/internal/scheduler"
)

var log = logging.L("main")

var (
	version      = "0.1.0"
	cfgFile      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "stranslate-host",
	Short: "STranslate host helper",
	Long:  `STranslate Host - starts, schedules and updates the STranslate desktop application`,

	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "STranslate Host v%s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is host.yaml next to the executable)")
	pf.StringVarP(&outputFormat, "output", "o", console.FormatText, "report format: text, json or yaml")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	pf.String("log-file", "", "also append logs to this file")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

// session is what every operation gets: loaded config, the report
// printer, the operations journal and the log file to close on the way out.
type session struct {
	cfg     *config.Config
	printer *console.Printer
	journal *audit.Logger
	logs    io.Closer
}

func newSession(cmd *cobra.Command, printer *console.Printer) (*session, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, hosterr.NewInvalidInput("load config: %v", err)
	}

	vr := cfg.ValidateTiered()

	logs, err := logging.Setup(logging.Options{
		Format:     cfg.LogFormat,
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Verbose:    verbose,
	})
	if err != nil {
		log.Warn("log file unavailable, logging to stderr only", "file", cfg.LogFile, "error", err)
	}
	for _, w := range vr.Warnings {
		log.Warn("config validation", "error", w)
	}

	if vr.HasFatals() {
		logs.Close()
		return nil, hosterr.NewInvalidInput("invalid config: %v", vr.Fatals[0])
	}

	journal, err := audit.Open(audit.Options{
		File:       cfg.Audit.File,
		MaxSizeMB:  cfg.Audit.MaxSizeMB,
		MaxBackups: cfg.Audit.MaxBackups,
	})
	if err != nil {
		log.Warn("audit journal unavailable", "file", cfg.Audit.File, "error", err)
	}

	return &session{cfg: cfg, printer: printer, journal: journal, logs: logs}, nil
}

func (s *session) close() {
	if err := s.journal.Close(); err != nil {
		log.Warn("close audit journal", "error", err)
	}
	if err := s.logs.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close log file:", err)
	}
}

// taskManager wires the configured scheduler backend to the task manager.
func (s *session) taskManager() (*scheduler.Manager, error) {
	backend, err := scheduler.NewBackend(s.cfg.Scheduler.Backend, executor.New())
	if err != nil {
		return nil, err
	}
	return scheduler.NewManager(backend, platform.NewIdentity(), scheduler.Options{
		Author:      s.cfg.Scheduler.Author,
		FallbackSID: s.cfg.Scheduler.FallbackSID,
	}), nil
}

// runOperation sets up the session for one command and prints the final
// status line. fn prints its own success line.
func runOperation(cmd *cobra.Command, operation string, fn func(ctx context.Context, s *session) error) error {
	printer, err := console.New(cmd.OutOrStdout(), outputFormat, verbose)
	if err != nil {
		return err
	}
	printer.Begin(operation)

	opLog := logging.WithOperation(log, operation)

	s, err := newSession(cmd, printer)
	if err == nil {
		defer s.close()
		start := time.Now()
		err = fn(cmd.Context(), s)
		opLog.Debug("operation finished", "durationMs", time.Since(start).Milliseconds())
	}
	if err != nil {
		opLog.Debug("operation failed", "kind", hosterr.KindOf(err), "error", err)
		if perr := printer.Failure(err); perr != nil {
			fmt.Fprintln(os.Stderr, "write report:", perr)
		}
		return err
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
