package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/netbill/internal/aaa"
	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/config"
	"github.com/smallbiznis/netbill/internal/invoice"
	"github.com/smallbiznis/netbill/internal/ledger"
	"github.com/smallbiznis/netbill/internal/migration"
	"github.com/smallbiznis/netbill/internal/observability"
	"github.com/smallbiznis/netbill/internal/providers"
	"github.com/smallbiznis/netbill/internal/ratelimit"
	"github.com/smallbiznis/netbill/internal/reminder"
	"github.com/smallbiznis/netbill/internal/scheduler"
	schedulerdomain "github.com/smallbiznis/netbill/internal/scheduler/domain"
	"github.com/smallbiznis/netbill/internal/server"
	"github.com/smallbiznis/netbill/internal/subscriber"
	"github.com/smallbiznis/netbill/internal/voucher"
	"github.com/smallbiznis/netbill/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "netbill",
		Short:         "Netbill background reconciliation engine",
		Version:       readVersionFromEnv(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newRunCmd(), newJobsCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "run <job>",
		Short: "Run one job once and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, strings.TrimSpace(args[0]), timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Minute, "overall deadline including startup")
	return cmd
}

func newJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List registered jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sched *scheduler.Scheduler
			app := fx.New(append(jobModules(), fx.Populate(&sched), fx.NopLogger)...)
			if err := app.Err(); err != nil {
				return err
			}
			for _, name := range sched.Jobs() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	opts := jobModules()
	opts = append(opts,
		fx.Invoke(autoMigrate),
		scheduler.Lifecycle,
		server.Module,
	)
	fx.New(opts...).Run()
}

func runOnce(cmd *cobra.Command, job string, timeout time.Duration) error {
	var sched *scheduler.Scheduler
	app := fx.New(append(jobModules(), fx.Populate(&sched))...)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	run, err := sched.Trigger(ctx, job)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %dms %s\n", run.Job, run.Status, run.DurationMs, run.Result)
	if run.Status != schedulerdomain.RunStatusSuccess {
		return fmt.Errorf("job %s finished with status %s", run.Job, run.Status)
	}
	return nil
}

// jobModules wires everything the jobs need without starting any trigger.
func jobModules() []fx.Option {
	return []fx.Option{
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		aaa.Module,
		ledger.Module,
		voucher.Module,
		subscriber.Module,
		invoice.Module,
		providers.Module,
		ratelimit.Module,
		reminder.Module,
		scheduler.Module,
	}
}

func autoMigrate(cfg config.Config, conn *gorm.DB) error {
	if !cfg.AutoMigrate {
		return nil
	}
	return migration.Migrate(conn, cfg.DBType)
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(readNodeID())
	if err != nil {
		panic(err)
	}
	return node
}

func readNodeID() int64 {
	value := strings.TrimSpace(os.Getenv("SNOWFLAKE_NODE_ID"))
	if value == "" {
		return 1
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 1
	}
	return id
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
