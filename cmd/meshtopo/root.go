package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"meshtopo/cmd/meshtopo/ui"
	"meshtopo/internal/adapter/docker"
	"meshtopo/internal/adapter/sqlite"
	"meshtopo/internal/config"
	"meshtopo/internal/lab"
	"meshtopo/internal/logging"
	"meshtopo/internal/mesh"
	"meshtopo/internal/telemetry"
)

const (
	flagCreate  = "create"
	flagDestroy = "destroy"
	flagShow    = "show"
	flagEIF     = "eif"
	flagLLDP    = "lldp"
	flagGraph   = "graph"

	daemonTimeout = 10 * time.Second
	recentRuns    = 5
)

var actionFlags = []string{flagCreate, flagDestroy, flagShow, flagEIF, flagLLDP, flagGraph}

type options struct {
	debug   bool
	noColor bool
	actions map[string]*bool
}

func rootCmd() *cobra.Command {
	opts := options{actions: make(map[string]*bool, len(actionFlags))}

	cmd := &cobra.Command{
		Use:           "meshtopo <topology.yml>",
		Short:         "Run emulated network topologies as container meshes",
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelWarn
			if opts.debug {
				level = logging.LevelDebug
			}
			if err := logging.Configure(level); err != nil {
				return err
			}
			ui.ConfigureColor(opts.noColor)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, args[0], opts.selected())
		},
	}

	f := cmd.Flags()
	opts.actions[flagCreate] = f.Bool(flagCreate, false, "Create the topology")
	opts.actions[flagDestroy] = f.Bool(flagDestroy, false, "Destroy the topology")
	opts.actions[flagShow] = f.Bool(flagShow, false, "Show devices, links and their state")
	opts.actions[flagEIF] = f.Bool(flagEIF, false, "Enable IP forwarding on host devices")
	opts.actions[flagLLDP] = f.Bool(flagLLDP, false, "Enable LLDP forwarding on VM-based devices")
	opts.actions[flagGraph] = f.Bool(flagGraph, false, "Export the topology graph as JSON")
	cmd.MarkFlagsMutuallyExclusive(actionFlags...)
	cmd.MarkFlagsOneRequired(actionFlags...)

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	return cmd
}

func (o options) selected() string {
	for _, name := range actionFlags {
		if *o.actions[name] {
			return name
		}
	}
	return ""
}

func run(ctx context.Context, cmd *cobra.Command, path, action string) error {
	settings, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	backend, err := docker.New(settings.StateDir, settings.SocatImage)
	if err != nil {
		return err
	}
	defer backend.Close()

	if action != flagGraph {
		waitCtx, cancel := context.WithTimeout(ctx, daemonTimeout)
		err := backend.WaitReady(waitCtx)
		cancel()
		if err != nil {
			return err
		}
	}

	store, err := sqlite.Open(settings.StorePath())
	if err != nil {
		return err
	}
	defer store.Close()

	tracer, shutdown := telemetry.NewTracer(slog.With("component", "trace"))
	defer func() { _ = shutdown(context.Background()) }()

	driver := lab.New(settings, backend, store,
		lab.WithMesh(mesh.NewAgent(store, backend)),
		lab.WithRunLog(store),
		lab.WithTracer(tracer),
	)
	return dispatch(ctx, cmd, driver, action)
}

func dispatch(ctx context.Context, cmd *cobra.Command, driver *lab.Driver, action string) error {
	out := cmd.OutOrStdout()

	var (
		outcome *lab.Outcome
		err     error
	)
	switch action {
	case flagCreate:
		outcome, err = driver.Create(ctx)
	case flagDestroy:
		outcome, err = driver.Destroy(ctx)
	case flagEIF:
		outcome, err = driver.EnableIPForwarding(ctx)
	case flagLLDP:
		outcome, err = driver.EnableLLDP(ctx)
	case flagShow:
		rep, err := driver.Show(ctx, recentRuns)
		if err != nil {
			return err
		}
		fmt.Fprint(out, ui.Report(rep, time.Now()))
		return nil
	case flagGraph:
		path, err := driver.ExportGraph(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.SuccessMsg("graph written to %s", ui.Accent(path)))
		return nil
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	if err != nil {
		return err
	}
	fmt.Fprint(out, ui.Outcome(outcome))
	return nil
}
