package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/rangetree/bootstrap"
	"github.com/wyfcoding/rangetree/logging"
	"github.com/wyfcoding/rangetree/workload"
)

// errMismatch 表示至少一个查询结果与基准折叠不一致。
var errMismatch = errors.New("verification mismatches found")

type runOptions struct {
	configPath string
	workers    int
	watch      bool
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run configured workloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWorkloads(ctx, cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "configs/rangetree.toml", "path to config file")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "max parallel workloads (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "hot reload log level from the config file")
	return cmd
}

func runWorkloads(ctx context.Context, cmd *cobra.Command, opts *runOptions) error {
	b := bootstrap.New(serviceName, Version)
	cfg, err := b.Initialize(opts.configPath, opts.watch)
	if err != nil {
		return err
	}
	if len(cfg.Workloads) == 0 {
		return fmt.Errorf("no workloads configured in %s", opts.configPath)
	}

	shutdownTracing := b.SetupTracing()
	defer shutdownTracing()
	m, stopMetrics := b.SetupMetrics()
	defer stopMetrics()

	tasks, err := workload.BuildTasks(cfg.Workloads)
	if err != nil {
		return err
	}

	runner := workload.NewRunner(
		workload.WithMetrics(m),
		workload.WithLogger(b.Logger.Named("workload")),
		workload.WithWorkers(opts.workers),
	)
	done := logging.LogDuration(ctx, "workloads", "count", len(tasks))
	reports, runErr := runner.RunAll(ctx, tasks)
	done()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WORKLOAD\tSIZE\tUPDATES\tQUERIES\tMISMATCHES\tELAPSED")
	failed := false
	for _, rep := range reports {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\n", rep.Name, rep.Size, rep.Updates, rep.Queries, rep.Mismatches, rep.Elapsed)
		failed = failed || !rep.OK()
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if runErr != nil {
		logging.Error(ctx, "workloads aborted", "error", runErr)
		return runErr
	}
	if failed {
		logging.Warn(ctx, "verification failed", "config", opts.configPath)
		return errMismatch
	}
	return nil
}
