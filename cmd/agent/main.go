// Package main implements the cyberaudit agent that checks screen lock compliance
// and reports the result to the local log collector.
package main

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cyberaudit/internal/audit"
	"cyberaudit/internal/config"
	"cyberaudit/internal/report"
	"cyberaudit/internal/settings"
)

//go:embed sources.yaml
var sourcesConfig []byte

// Agent holds what a single audit run needs from its environment.
type Agent struct {
	log       *logrus.Logger
	lookupEnv func(string) (string, bool)
	dial      report.DialFunc  // nil uses a plain net.Dialer
	run       settings.RunFunc // nil runs commands with bash -r
	goos      string
}

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	agent := &Agent{log: log, lookupEnv: os.LookupEnv, goos: runtime.GOOS}
	err := newRootCommand(agent).ExecuteContext(ctx)
	stop()
	if err != nil {
		log.WithField("kind", audit.Kind(err)).Errorf("Audit failed: %v", err)
		os.Exit(1)
	}
}

func newRootCommand(a *Agent) *cobra.Command {
	var (
		dryRun    bool
		debugMode bool
		collector string
		sources   string
		envFile   string
	)

	cmd := &cobra.Command{
		Use:   "cyberaudit-agent [--dry-run]",
		Short: "Audit screen lock settings and report them to the log collector",
		Long: `cyberaudit-agent reads the GNOME idle delay, lock delay and lock-enabled
settings plus the machine serial number, decides whether the workstation
is compliant, and sends a single "cyberaudit {...}" line to the local log
collector. Run it from cron or a systemd timer.`,
		Version:      resolveVersion(),
		SilenceUsage: true,
		// Errors are logged by main with their kind.
		SilenceErrors: true,
		// Historical behavior: anything other than --dry-run means "send".
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := config.LoadOptions(envFile, a.lookupEnv)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("collector") {
				opts.CollectorAddr = collector
			}
			if flags.Changed("sources") {
				opts.SourcesFile = sources
			}
			if flags.Changed("debug") {
				opts.Debug = debugMode
			}
			if len(args) > 0 {
				a.log.Warnf("Ignoring unrecognized arguments %q, sending report", args)
			}
			return a.audit(cmd.Context(), opts, dryRun, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&dryRun, "dry-run", false, "Print the report instead of sending it")
	flags.BoolVar(&debugMode, "debug", false, "Enable debug logging")
	flags.StringVar(&collector, "collector", config.DefaultCollectorAddr, "Collector TCP address")
	flags.StringVar(&sources, "sources", "", "Lookup definitions file (default: built-in sources.yaml)")
	flags.StringVar(&envFile, "env-file", config.DefaultEnvFile, "Environment file with CYBERAUDIT_* settings")

	return cmd
}

// audit performs one check-and-report cycle.
func (a *Agent) audit(ctx context.Context, opts config.Options, dryRun bool, stdout io.Writer) error {
	start := time.Now()
	if opts.Debug {
		a.log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := a.loadSources(opts.SourcesFile)
	if err != nil {
		return err
	}

	log := a.log.WithField("os", a.goos)
	reader := settings.NewReader(
		settings.Tier(cfg, a.goos, 0, a.run, log),
		settings.Tier(cfg, a.goos, 1, a.run, log),
		log,
	)

	record, err := audit.Run(ctx, reader, resolveVersion())
	if err != nil {
		return err
	}

	verdict := audit.Evaluate(record.Settings())
	for _, f := range verdict.Findings {
		log.Warnf("Non-compliant: %s", f.Description)
		for _, step := range f.Remediation {
			log.Infof("  Remediation: %s", step)
		}
	}

	msg, err := audit.EncodeMessage(record)
	if err != nil {
		return err
	}

	var sender report.Sender
	if dryRun {
		sender = report.DryRun{Out: stdout}
	} else {
		c := report.NewCollector(opts.CollectorAddr, log)
		if a.dial != nil {
			c.Dial = a.dial
		}
		sender = c
	}
	if err := sender.Send(ctx, msg); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"machine_id": record.MachineID(),
		"compliant":  record.Compliant(),
		"dry_run":    dryRun,
	}).Infof("Audit completed in %v", time.Since(start))
	return nil
}

func (a *Agent) loadSources(path string) (*config.Config, error) {
	data := sourcesConfig
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read sources file: %w", audit.ErrLookup, err)
		}
		a.log.Debugf("Using lookup definitions from %s", path)
	}
	cfg, err := config.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audit.ErrLookup, err)
	}
	return cfg, nil
}
