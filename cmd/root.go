// Package cmd implements the CLI control plane named in spec.md §6: a thin
// cobra surface over pkg/engine's Preview/Apply, pkg/config's file-backed
// configuration, and pkg/provider's Google Calendar client. Every command
// prints the stable {ok, error?, code?, hint?, details?} envelope (pkg/errs)
// and exits with spec.md §6's exit codes; the pipeline's own semantics
// live in pkg/engine and its collaborators, not here.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/robbiet76/CalendarScheduler/pkg/apply"
	"github.com/robbiet76/CalendarScheduler/pkg/config"
	"github.com/robbiet76/CalendarScheduler/pkg/engine"
	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/provider"
)

var (
	configFile string
	logLevel   string
	dryRun     bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "calendar-scheduler",
	Short: "Bidirectional sync between a calendar and an FPP show-control scheduler",
	Long: `calendar-scheduler reconciles a remote calendar's recurring events,
exceptions, and per-occurrence overrides against an FPP scheduler file,
computing a minimal, deterministic set of scheduler rows and applying
changes in whichever direction is authoritative.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command, runs it, and maps
// any returned error to spec.md §6's exit codes. Each command already
// printed its own failure envelope (via runCommand) before the error
// reaches here, so this only decides the process exit status.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code := 3
		if te, ok := err.(*errs.Error); ok {
			code = te.Kind.ExitCode()
		}
		os.Exit(code)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/calendar-scheduler/config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")
	applyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute and group the plan but perform no writes")

	rootCmd.AddCommand(previewCmd, applyCmd, statusCmd, setCalendarCmd, setSyncModeCmd, authCmd, watchCmd)
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Run the pipeline to a ReconciliationPlan without writing anything",
	RunE: withEngine(false, func(ctx context.Context, e *engine.Engine, cmd *cobra.Command, args []string) (map[string]any, error) {
		result, err := e.Preview(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"plan":            result.Plan,
			"calendarDiff":    result.CalendarDiff,
			"fppDiff":         result.FPPDiff,
			"desiredCalendar": result.DesiredCalendar,
			"desiredFpp":      result.DesiredFPP,
		}, nil
	}),
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Execute the reconciliation plan against FPP and/or the calendar",
	// apply mutates external state, so its envelope carries a correlationId
	// (spec.md §7) tying it back to this run's log records.
	RunE: withEngine(true, func(ctx context.Context, e *engine.Engine, cmd *cobra.Command, args []string) (map[string]any, error) {
		mode := apply.ModeApply
		if dryRun {
			mode = apply.ModeDryRun
		}
		result, err := e.Apply(ctx, mode)
		if err != nil {
			return nil, err
		}
		if len(result.Blocked) > 0 {
			return nil, errs.Conflict(fmt.Sprintf("%d action(s) blocked", len(result.Blocked))).
				WithHint("re-run preview to see which identities are blocked and why")
		}
		return map[string]any{
			"plan":     result.Plan,
			"fpp":      result.FPP,
			"calendar": result.Calendar,
			"blocked":  result.Blocked,
		}, nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report current sync mode, configured sides, and pending plan size",
	RunE: withEngine(false, func(ctx context.Context, e *engine.Engine, cmd *cobra.Command, args []string) (map[string]any, error) {
		result, err := e.Preview(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"syncMode":      e.Config.SyncMode,
			"calendarReady": e.Calendar != nil,
			"pendingItems":  len(result.Plan.Items),
		}, nil
	}),
}

var setCalendarCmd = &cobra.Command{
	Use:   "set-calendar [calendarId]",
	Short: "Rewrite the configured Google Calendar ID",
	Args:  cobra.ExactArgs(1),
	RunE: runCommand(false, func(ctx context.Context, cmd *cobra.Command, args []string) (map[string]any, error) {
		cfg, err := config.ReadConfig(configFile)
		if err != nil {
			return nil, errs.Wrap(errs.KindValidation, "invalid_config", "could not read config", err)
		}
		if cfg.GoogleCalendar == nil {
			cfg.GoogleCalendar = &config.GoogleCalendarConfig{}
		}
		cfg.GoogleCalendar.CalendarID = args[0]
		if err := config.WriteConfig(configFile, cfg); err != nil {
			return nil, errs.Wrap(errs.KindIO, "config_write_failed", "could not write config", err)
		}
		return map[string]any{"calendarId": args[0]}, nil
	}),
}

var setSyncModeCmd = &cobra.Command{
	Use:   "set-sync-mode [both|calendar|fpp]",
	Short: "Rewrite the configured sync direction gate",
	Args:  cobra.ExactArgs(1),
	RunE: runCommand(false, func(ctx context.Context, cmd *cobra.Command, args []string) (map[string]any, error) {
		mode := config.SyncMode(args[0])
		switch mode {
		case config.ModeBoth, config.ModeCalendarToFPP, config.ModeFPPToCalendar:
		default:
			return nil, errs.New(errs.KindValidation, "invalid_sync_mode", "unknown sync mode: "+args[0]).
				WithHint("use one of: both, calendar, fpp")
		}
		cfg, err := config.ReadConfig(configFile)
		if err != nil {
			return nil, errs.Wrap(errs.KindValidation, "invalid_config", "could not read config", err)
		}
		cfg.SyncMode = mode
		if err := config.WriteConfig(configFile, cfg); err != nil {
			return nil, errs.Wrap(errs.KindIO, "config_write_failed", "could not write config", err)
		}
		return map[string]any{"syncMode": mode}, nil
	}),
}

// authCmd reports whether a usable OAuth2 token is on disk. The interactive
// consent flow that produces the first token is an external collaborator
// (spec.md §1's scope note on OAuth bootstrap); this only surfaces the
// storage-side status pkg/provider.TokenStore already implements. Auth
// actions carry a correlationId alongside apply (spec.md §7).
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Report whether a stored OAuth2 token is present for the calendar provider",
	RunE: runCommand(true, func(ctx context.Context, cmd *cobra.Command, args []string) (map[string]any, error) {
		cfg, err := config.ReadConfig(configFile)
		if err != nil {
			return nil, errs.Wrap(errs.KindValidation, "invalid_config", "could not read config", err)
		}
		if cfg.GoogleCalendar == nil {
			return nil, errs.New(errs.KindValidation, "no_calendar_configured", "no googleCalendar section in config").
				WithHint("run set-calendar first")
		}
		tokens := provider.FileTokenStore{Path: cfg.GoogleCalendar.TokenPath}
		_, loadErr := tokens.Load()
		return map[string]any{"tokenPresent": loadErr == nil, "tokenPath": cfg.GoogleCalendar.TokenPath}, nil
	}),
}

// watchCmd runs preview+apply on a timer, picking up config changes (e.g.
// from set-calendar/set-sync-mode run against the same file by another
// invocation) without a restart. The two concerns — config reload and
// the sync timer — run as independent goroutines under one errgroup, the
// same shape the teacher's run() used for its watcher and controller.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run apply on a timer, reloading configuration as it changes on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.ReadConfig(configFile)
		if err != nil {
			return failEnvelope(cmd, errs.Wrap(errs.KindValidation, "invalid_config", "could not read config", err), "")
		}

		interval := time.Hour
		if cfg.GoogleCalendar != nil && cfg.GoogleCalendar.SyncInterval != "" {
			d, err := time.ParseDuration(cfg.GoogleCalendar.SyncInterval)
			if err != nil {
				return failEnvelope(cmd, errs.New(errs.KindValidation, "invalid_sync_interval", "googleCalendar.syncInterval is not a valid duration"), "")
			}
			interval = d
		}

		var current config.Config = cfg
		configCh := make(chan config.Config, 1)
		watcher := config.NewWatcher(configFile)
		watcher.OnConfigChange(func(c config.Config) {
			select {
			case configCh <- c:
			default:
			}
		})

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		group, ctx := errgroup.WithContext(ctx)

		group.Go(func() error {
			return watcher.Start(ctx)
		})

		group.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case c := <-configCh:
					current = c
					slog.Info("config reloaded", "syncMode", current.SyncMode)
				case <-ticker.C:
					correlationID := uuid.New().String()
					slog.Info("watch tick starting", "correlationId", correlationID)
					if err := runOneApply(ctx, current); err != nil {
						slog.Error("watch tick failed", "correlationId", correlationID, "error", err)
					}
				}
			}
		})

		return group.Wait()
	},
}

func runOneApply(ctx context.Context, cfg config.Config) error {
	var calClient engine.CalendarSource
	if cfg.GoogleCalendar != nil {
		tokens := provider.FileTokenStore{Path: cfg.GoogleCalendar.TokenPath}
		client, err := provider.NewCalendarClient(ctx, cfg.GoogleCalendar.CredentialsPath, cfg.GoogleCalendar.CalendarID, tokens)
		if err != nil {
			return err
		}
		calClient = client
	}
	e := engine.New(cfg, calClient)
	_, err := e.Apply(ctx, apply.ModeApply)
	return err
}

// runCommand wraps a command body with the stable envelope/correlationId
// handling from spec.md §7: on success it prints {ok: true, ...payload};
// on failure it prints the {ok: false, error, code, hint, details} envelope
// and returns the error so Execute can map it to an exit code.
func runCommand(needsCorrelation bool, fn func(ctx context.Context, cmd *cobra.Command, args []string) (map[string]any, error)) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var correlationID string
		if needsCorrelation {
			correlationID = uuid.New().String()
			slog.Info("command starting", "command", cmd.Name(), "correlationId", correlationID)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		payload, err := fn(ctx, cmd, args)
		if err != nil {
			return failEnvelope(cmd, err, correlationID)
		}
		return emit(cmd, payload)
	}
}

// withEngine additionally loads config and builds a calendar client before
// delegating to fn.
func withEngine(needsCorrelation bool, fn func(ctx context.Context, e *engine.Engine, cmd *cobra.Command, args []string) (map[string]any, error)) func(cmd *cobra.Command, args []string) error {
	return runCommand(needsCorrelation, func(ctx context.Context, cmd *cobra.Command, args []string) (map[string]any, error) {
		cfg, err := config.ReadConfig(configFile)
		if err != nil {
			return nil, errs.Wrap(errs.KindValidation, "invalid_config", "could not read config", err)
		}

		var calClient engine.CalendarSource
		if cfg.GoogleCalendar != nil {
			tokens := provider.FileTokenStore{Path: cfg.GoogleCalendar.TokenPath}
			client, err := provider.NewCalendarClient(ctx, cfg.GoogleCalendar.CredentialsPath, cfg.GoogleCalendar.CalendarID, tokens)
			if err != nil {
				return nil, err
			}
			calClient = client
		}

		e := engine.New(cfg, calClient)
		return fn(ctx, e, cmd, args)
	})
}

// emit prints a successful envelope with payload merged in.
func emit(cmd *cobra.Command, payload map[string]any) error {
	out := map[string]any{"ok": true}
	for k, v := range payload {
		out[k] = v
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// failEnvelope prints the failure envelope and returns err unchanged so the
// caller can still propagate it for exit-code mapping.
func failEnvelope(cmd *cobra.Command, err error, correlationID string) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(errs.FromError(err, correlationID))
	return err
}
