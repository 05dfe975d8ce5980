package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"locksmith/config"
	"locksmith/internal/guard"
)

var (
	runTTL         time.Duration
	runMaxAttempts int
	runWait        time.Duration
	runKeepAlive   time.Duration

	// runCmd represents the run command
	runCmd = &cobra.Command{
		Use:   "run [resource] -- [command] [args...]",
		Short: "Run a command while holding a lock",
		Long: `Acquire the lock on resource, run the command and release the lock
when the command exits, whether it succeeded or not. The lock is renewed
while the command runs, and an interrupt stops the command and releases
the lock before exiting.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runProtected,
	}
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().DurationVar(&runTTL, "ttl", 0, "Lock ttl (defaults to LOCK_TTL)")
	runCmd.Flags().IntVar(&runMaxAttempts, "max-attempts", 0, "Acquisition attempts (defaults to LOCK_MAX_ATTEMPTS)")
	runCmd.Flags().DurationVar(&runWait, "wait", 0, "Pause between attempts (defaults to LOCK_RETRY_WAIT)")
	runCmd.Flags().DurationVar(&runKeepAlive, "keepalive", 0, "Lock renewal interval (defaults to a third of the ttl, negative disables)")
}

// runProtected handles the run command
func runProtected(cmd *cobra.Command, args []string) error {
	resource, command := args[0], args[1:]

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	shutdownTracing, err := setupTracing(cfg.TraceStdout)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	locker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}

	opts := []guard.Option{guard.WithConfig(guard.Config{
		MaxAttempts:          cfg.MaxAttempts,
		Wait:                 cfg.RetryWait,
		AcquireWarnThreshold: cfg.AcquireWarnThreshold,
		ExecWarnThreshold:    cfg.ExecWarnThreshold,
	})}

	events, err := newEventEmitter(cfg, logger)
	if err != nil {
		_ = locker.Close()
		return err
	}
	if events != nil {
		defer events.Close(context.Background())
		opts = append(opts, guard.WithEvents(events))
	}

	runner, err := guard.NewRunner(locker, logger, opts...)
	if err != nil {
		_ = locker.Close()
		return err
	}
	defer runner.Quit()

	ttl := runTTL
	if ttl <= 0 {
		ttl = cfg.LockTTL
	}

	var runOpts []guard.RunOption
	if runMaxAttempts > 0 {
		runOpts = append(runOpts, guard.WithMaxAttempts(runMaxAttempts))
	}
	if runWait > 0 {
		runOpts = append(runOpts, guard.WithWait(runWait))
	}
	if keepAlive := keepAliveInterval(ttl, runKeepAlive); keepAlive > 0 {
		runOpts = append(runOpts, guard.WithKeepAlive(keepAlive))
	}

	return runner.Do(ctx, resource, ttl, func(ctx context.Context) error {
		child := exec.CommandContext(ctx, command[0], command[1:]...)
		child.Stdin = os.Stdin
		child.Stdout = cmd.OutOrStdout()
		child.Stderr = cmd.ErrOrStderr()
		if err := child.Run(); err != nil {
			return fmt.Errorf("command %q failed: %w", command[0], err)
		}
		return nil
	}, runOpts...)
}

// keepAliveInterval picks the renewal period for a lock held for ttl
func keepAliveInterval(ttl, flag time.Duration) time.Duration {
	switch {
	case flag < 0:
		return 0
	case flag > 0:
		return flag
	default:
		return ttl / 3
	}
}
