/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// vsteer converges guest VMs on a vCenter server onto a desired state.
// Each subcommand performs one reconciliation run and prints the result as
// JSON on stdout; logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/veldt-io/vsteer/internal/actions"
	"github.com/veldt-io/vsteer/internal/config"
	"github.com/veldt-io/vsteer/internal/obs/health"
	"github.com/veldt-io/vsteer/internal/obs/logging"
	"github.com/veldt-io/vsteer/internal/obs/metrics"
	"github.com/veldt-io/vsteer/internal/obs/tracing"
	"github.com/veldt-io/vsteer/internal/reconcile"
	"github.com/veldt-io/vsteer/internal/tasks"
	"github.com/veldt-io/vsteer/internal/version"
	"github.com/veldt-io/vsteer/internal/vsphere"
)

var (
	configPath string
	dryRun     bool
	watch      bool
	interval   time.Duration

	deployReq  actions.DeployRequest
	migrateReq actions.MigratePoolRequest
	toolsReq   actions.ToolsRequest
	toolsState string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "vsteer",
		Short:         "Desired-state reconciliation for vSphere guest VMs",
		Long:          "vsteer diffs the observed state of a guest VM against a desired state and applies the minimal ordered change-set.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Compute and report changes without applying them")

	deployCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create a guest VM from a template or converge an existing one",
		RunE:  runDeploy,
	}
	deployCmd.Flags().StringVar(&deployReq.Guest, "guest", "", "Name of the guest VM")
	deployCmd.Flags().StringVar(&deployReq.Template, "template", "", "Source template for creation")
	deployCmd.Flags().StringVar(&deployReq.Datastore, "datastore", "", "Datastore for a newly created VM")
	deployCmd.Flags().StringVar(&deployReq.Folder, "folder", "", "Target inventory folder")
	deployCmd.Flags().StringVar(&deployReq.ResourcePool, "resource-pool", "", "Target resource pool")
	deployCmd.Flags().StringVar(&deployReq.Annotation, "annotation", "", "Note attached to the VM")
	deployCmd.Flags().Int32Var(&deployReq.NumCPUs, "num-cpus", 0, "Virtual CPU count")
	deployCmd.Flags().Int64Var(&deployReq.MemoryMB, "memory-mb", 0, "Memory size in MiB")
	deployCmd.Flags().BoolVar(&deployReq.PowerOn, "power-on", false, "Power the VM on after creation")
	deployCmd.Flags().BoolVar(&watch, "watch", false, "Keep running and re-converge periodically")
	deployCmd.Flags().DurationVar(&interval, "interval", time.Minute, "Re-converge interval in watch mode")
	mustMarkRequired(deployCmd, "guest")

	migrateCmd := &cobra.Command{
		Use:   "migrate-pool",
		Short: "Move a guest VM into another resource pool",
		RunE:  runMigratePool,
	}
	migrateCmd.Flags().StringVar(&migrateReq.Guest, "guest", "", "Name of the guest VM")
	migrateCmd.Flags().StringVar(&migrateReq.ResourcePool, "resource-pool", "", "Target pool name or inventory path suffix")
	migrateCmd.Flags().StringVar(&migrateReq.Cluster, "cluster", "", "Cluster to search for the pool")
	mustMarkRequired(migrateCmd, "guest", "resource-pool", "cluster")

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Check or upgrade the guest tools of a VM",
		RunE:  runTools,
	}
	toolsCmd.Flags().StringVar(&toolsReq.Guest, "guest", "", "Name of the guest VM")
	toolsCmd.Flags().StringVar(&toolsState, "state", "present", "Desired tools state (present|latest|absent)")
	toolsCmd.Flags().StringVar(&toolsReq.InstallerOptions, "installer-options", "", "Options passed to the tools installer")
	mustMarkRequired(toolsCmd, "guest")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("vsteer", version.String())
		},
	}

	rootCmd.AddCommand(deployCmd, migrateCmd, toolsCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func mustMarkRequired(cmd *cobra.Command, flags ...string) {
	for _, f := range flags {
		if err := cmd.MarkFlagRequired(f); err != nil {
			panic(err)
		}
	}
}

func runDeploy(cmd *cobra.Command, args []string) error {
	if watch {
		return watchDeploy(cmd)
	}
	return runOnce(cmd, func(ctx context.Context, r *actions.Runner) (*actions.Result, error) {
		return r.Deploy(ctx, deployReq)
	})
}

func runMigratePool(cmd *cobra.Command, args []string) error {
	return runOnce(cmd, func(ctx context.Context, r *actions.Runner) (*actions.Result, error) {
		return r.MigratePool(ctx, migrateReq)
	})
}

func runTools(cmd *cobra.Command, args []string) error {
	toolsReq.State = reconcile.ToolsState(toolsState)
	return runOnce(cmd, func(ctx context.Context, r *actions.Runner) (*actions.Result, error) {
		return r.Tools(ctx, toolsReq)
	})
}

// runOnce wires up the full stack for a single reconciliation run and
// prints the result as JSON on stdout.
func runOnce(cmd *cobra.Command, run func(context.Context, *actions.Runner) (*actions.Result, error)) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, shutdown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer shutdown()

	runner, cleanup, err := newRunner(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := run(ctx, runner)
	if err != nil {
		return err
	}
	return printResult(result)
}

// watchDeploy keeps converging the guest until interrupted. It serves
// health and metrics endpoints and picks up configuration changes without
// a restart.
func watchDeploy(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, shutdown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer shutdown()

	var mgr *config.Manager
	if configPath != "" {
		mgr, err = config.NewManager(configPath)
		if err != nil {
			return err
		}
		if err := mgr.Watch(); err != nil {
			return err
		}
		defer mgr.Close()
	}

	runner, cleanup, err := newRunner(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { cleanup() }()

	checker := health.NewChecker()
	checker.Register("vcenter", func(ctx context.Context) error {
		if session, ok := runner.Client.(*vsphere.Session); ok {
			return session.Ping(ctx)
		}
		return nil
	})
	srv := health.NewServer(cfg.Obs.Addr, checker)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "observability endpoint failed", "addr", cfg.Obs.Addr)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("watching", "interval", interval, "obs_addr", cfg.Obs.Addr)

	var updates <-chan *config.Config
	if mgr != nil {
		updates = mgr.Updates()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		result, err := runner.Deploy(ctx, deployReq)
		if err != nil {
			log.Error(err, "converge failed", "guest", deployReq.Guest)
		} else if result.Changed {
			log.Info("converged", "guest", deployReq.Guest, "changes", result.Changes)
		}

		select {
		case <-ctx.Done():
			return nil
		case next := <-updates:
			log.Info("configuration reloaded")
			cleanup()
			runner, cleanup, err = newRunner(ctx, next, log)
			if err != nil {
				return err
			}
		case <-ticker.C:
			if !checker.Healthy(ctx) {
				log.Info("backend health check failing, next run will reconnect")
			}
		}
	}
}

// setup loads configuration, logging, metrics and tracing. The returned
// shutdown func flushes the trace exporter.
func setup(ctx context.Context) (*config.Config, logr.Logger, func(), error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg = config.DefaultConfig()
	}
	if err != nil {
		return nil, logr.Logger{}, nil, err
	}

	logCfg := logging.DefaultConfig()
	if cfg.Log.Level != "" {
		logCfg.Level = cfg.Log.Level
	}
	if cfg.Log.Format != "" {
		logCfg.Format = cfg.Log.Format
	}
	logCfg.Development = logCfg.Development || cfg.Log.Development
	log, err := logging.New(logCfg)
	if err != nil {
		return nil, logr.Logger{}, nil, err
	}
	log = log.WithName("vsteer")

	metrics.SetBuildInfo(version.Version, version.GitSHA)

	shutdown, err := tracing.Setup(ctx, &tracing.Config{
		Enabled:           cfg.Tracing.Enabled,
		Endpoint:          cfg.Tracing.Endpoint,
		ServiceVersion:    version.Version,
		SamplingRatio:     cfg.Tracing.SamplingRatio,
		InsecureTransport: cfg.Tracing.InsecureTransport,
	})
	if err != nil {
		return nil, logr.Logger{}, nil, err
	}
	return cfg, log, shutdown, nil
}

// newRunner connects to vCenter and builds a runner around the session.
// The returned cleanup func logs out.
func newRunner(ctx context.Context, cfg *config.Config, log logr.Logger) (*actions.Runner, func(), error) {
	session, err := vsphere.Connect(ctx, cfg.VCenter, log.WithName("vsphere"))
	if err != nil {
		return nil, nil, err
	}

	waiter := tasks.NewWaiter(log.WithName("tasks"))
	if cfg.Poll.InitialDelay > 0 {
		waiter.Backoff.InitialDelay = cfg.Poll.InitialDelay
	}
	if cfg.Poll.MaxDelay > 0 {
		waiter.Backoff.MaxDelay = cfg.Poll.MaxDelay
	}
	if cfg.Poll.Multiplier > 0 {
		waiter.Backoff.Multiplier = cfg.Poll.Multiplier
	}
	waiter.Backoff.Jitter = cfg.Poll.Jitter
	waiter.Timeout = cfg.Poll.Timeout

	mode := actions.ModeApply
	if dryRun {
		mode = actions.ModeDryRun
	}

	runner := &actions.Runner{
		Client: session,
		Waiter: waiter,
		Mode:   mode,
		Log:    log,
	}
	cleanup := func() {
		logoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := session.Logout(logoutCtx); err != nil {
			log.Error(err, "logout failed")
		}
	}
	return runner, cleanup, nil
}

func printResult(result *actions.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
