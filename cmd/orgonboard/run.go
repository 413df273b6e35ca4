package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudsecops/orgonboard/internal/config"
	"github.com/cloudsecops/orgonboard/internal/logging"
	"github.com/cloudsecops/orgonboard/onboarding"
	"github.com/cloudsecops/orgonboard/onboarding/awsengine"
	"github.com/cloudsecops/orgonboard/onboarding/report"
)

// Exit codes.
const (
	exitOK      = 0
	exitUsage   = 1
	exitFatal   = 2
	exitPartial = 3
)

const shutdownTimeout = 5 * time.Second

const usage = `Onboard all existing AWS Organization accounts into Security Hub
under the delegated admin account.

Usage:
  orgonboard [flags] <delegated_admin_account_id> <cross_account_role_name> [region]

Example:
  orgonboard 030172395295 CrossAccount-SecurityOps us-east-1

Flags:
`

const autoEnrollNote = "New accounts created after today will auto-enroll via your org configuration (auto_enable = true)."

type cliFlags struct {
	configPath           string
	batchPacing          time.Duration
	invite               bool
	json                 bool
	ledgerDSN            string
	ledgerDriver         string
	history              int
	failOnPartial        bool
	observabilityEnabled bool
	otelEndpoint         string
}

func parseFlags(args []string, stderr io.Writer) (cliFlags, map[string]bool, []string, error) {
	var f cliFlags

	fs := flag.NewFlagSet("orgonboard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = io.WriteString(stderr, usage)
		fs.PrintDefaults()
	}

	fs.StringVar(&f.configPath, "config", "", "path to a TOML configuration file")
	fs.DurationVar(&f.batchPacing, "batch-pacing", 0, "delay between bulk calls (default 250ms)")
	fs.BoolVar(&f.invite, "invite", false, "send invitations to the accounts created in this run")
	fs.BoolVar(&f.json, "json", false, "print the summary as JSON")
	fs.StringVar(&f.ledgerDSN, "ledger-dsn", "", "PostgreSQL DSN of the run ledger")
	fs.StringVar(&f.ledgerDriver, "ledger-driver", "", "ledger driver: pgx, postgres or sqlx (default pgx)")
	fs.IntVar(&f.history, "history", 0, "print the last N recorded runs and exit")
	fs.BoolVar(&f.failOnPartial, "fail-on-partial", false, "exit with status 3 when any account failed")
	fs.BoolVar(&f.observabilityEnabled, "observability-enabled", false, "export traces and metrics over OTLP gRPC")
	fs.StringVar(&f.otelEndpoint, "otel-endpoint", "", "OTLP gRPC endpoint (default localhost:4317)")

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, nil, nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	return f, set, fs.Args(), nil
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(cfg *config.Config, f cliFlags, set map[string]bool) {
	if set["batch-pacing"] {
		cfg.BatchPacing = f.batchPacing
	}
	if set["invite"] {
		cfg.Invite = f.invite
	}
	if set["ledger-dsn"] {
		cfg.LedgerDSN = f.ledgerDSN
	}
	if set["ledger-driver"] {
		cfg.LedgerDriver = f.ledgerDriver
	}
	if set["fail-on-partial"] {
		cfg.FailOnPartial = f.failOnPartial
	}
	if set["otel-endpoint"] {
		cfg.OTelEndpoint = f.otelEndpoint
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, d deps) int {
	f, set, positional, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if len(positional) >= 3 {
		cfg.Region = strings.TrimSpace(positional[2])
	}

	applyFlags(&cfg, f, set)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	logger := logging.New("orgonboard", stderr, logging.DefaultConfig())

	if f.history > 0 {
		return printHistory(ctx, cfg, f.history, stdout, logger, d)
	}

	if len(positional) < 2 || len(positional) > 3 {
		_, _ = io.WriteString(stderr, usage)
		return exitUsage
	}

	t := target{
		adminID:     strings.TrimSpace(positional[0]),
		roleName:    strings.TrimSpace(positional[1]),
		region:      cfg.Region,
		sessionName: cfg.SessionName,
	}

	o := observers{logger: logger}
	if f.observabilityEnabled {
		providers, err := d.openTelemetry(ctx, cfg.OTelEndpoint)
		if err != nil {
			logger.Error("telemetry setup failed", "error", err)
			return exitFatal
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := providers.Shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown failed", "error", err)
			}
		}()
		o.metrics, o.tracing, o.contextual = providers.Collectors()
	}

	return onboard(ctx, cfg, t, f.json, stdout, o, d)
}

func onboard(ctx context.Context, cfg config.Config, t target, asJSON bool, stdout io.Writer, o observers, d deps) int {
	logger := o.logger

	logger.Info("Assuming role into delegated admin", "account_id", t.adminID, "role", t.roleName)
	clients, err := d.connect(ctx, t)
	if err != nil {
		logger.Error("credential elevation failed", "error", err)
		return exitFatal
	}
	if clients.close != nil {
		defer clients.close()
	}

	managementID, err := awsengine.CallerAccountID(ctx, clients.stsClient)
	if err != nil {
		logger.Error("caller identity lookup failed", "error", err)
		return exitFatal
	}
	logger.Info("Using management account credentials", "account_id", managementID)

	pipeline, err := buildPipeline(cfg, clients, o)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitUsage
	}

	summary, err := pipeline.Run(ctx, onboarding.RunMeta{
		DelegatedAdminID:    t.adminID,
		ManagementAccountID: managementID,
		Region:              t.region,
	})
	if err != nil {
		if errors.Is(err, onboarding.ErrAggregationServiceDisabled) {
			logger.Error("Security Hub may not be enabled in the delegated admin account", "error", err)
		}
		return exitFatal
	}

	if asJSON {
		err = report.WriteJSON(stdout, summary)
	} else {
		err = report.WriteText(stdout, summary, report.DefaultMaxFailures)
	}
	if err != nil {
		logger.Error("writing summary failed", "error", err)
	}

	if cfg.LedgerEnabled() {
		recordRun(ctx, cfg, summary, logger, d)
	}

	logger.Info("Done.")
	logger.Info(autoEnrollNote)

	if cfg.FailOnPartial && summary.HasFailures() {
		return exitPartial
	}

	return exitOK
}

// recordRun stores the summary in the ledger. Failures are logged only.
func recordRun(ctx context.Context, cfg config.Config, summary onboarding.Summary, logger onboarding.Logger, d deps) {
	store, err := d.openLedger(ctx, cfg, logger)
	if err != nil {
		logger.Warn("run ledger unavailable, run not recorded", "error", err)
		return
	}
	defer store.Close()

	if err := store.Record(ctx, summary); err != nil {
		logger.Warn("recording run failed", "run_id", summary.RunID, "error", err)
	}
}

func printHistory(ctx context.Context, cfg config.Config, limit int, stdout io.Writer, logger onboarding.Logger, d deps) int {
	if !cfg.LedgerEnabled() {
		logger.Error("history needs a ledger, set -ledger-dsn or ledger_dsn")
		return exitUsage
	}

	store, err := d.openLedger(ctx, cfg, logger)
	if err != nil {
		logger.Error("run ledger unavailable", "error", err)
		return exitFatal
	}
	defer store.Close()

	records, err := store.Recent(ctx, limit)
	if err != nil {
		logger.Error("reading run history failed", "error", err)
		return exitFatal
	}

	if err := report.WriteHistory(stdout, records); err != nil {
		logger.Error("writing history failed", "error", err)
		return exitFatal
	}

	return exitOK
}
