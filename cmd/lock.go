package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"locksmith/config"
	"locksmith/internal/dlock"
)

var (
	cliLocker     dlock.DistributedLock
	cliConfig     *config.Config
	lockTTL       time.Duration
	lockAttempts  int
	lockRetryWait time.Duration

	// lockCmd represents the lock command group
	lockCmd = &cobra.Command{
		Use:                "lock",
		Short:              "Perform lock operations",
		PersistentPreRunE:  setupLockClient,
		PersistentPostRunE: closeLockClient,
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [resource]",
		Short: "Acquire a lock",
		Long:  "Acquire the lock on a resource. The printed token is needed to release or extend it.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquire,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [resource] [token]",
		Short: "Release a previously acquired lock",
		Args:  cobra.ExactArgs(2),
		RunE:  runRelease,
	}

	// touchCmd represents the touch command
	touchCmd = &cobra.Command{
		Use:   "touch [resource] [token]",
		Short: "Extend a previously acquired lock",
		Args:  cobra.ExactArgs(2),
		RunE:  runTouch,
	}

	// statusCmd represents the status command
	statusCmd = &cobra.Command{
		Use:   "status [resource]",
		Short: "Show whether a lock is held",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
)

func init() {
	rootCmd.AddCommand(lockCmd)

	lockCmd.AddCommand(acquireCmd)
	lockCmd.AddCommand(releaseCmd)
	lockCmd.AddCommand(touchCmd)
	lockCmd.AddCommand(statusCmd)

	// A zero ttl falls back to LOCK_TTL
	lockCmd.PersistentFlags().DurationVar(&lockTTL, "ttl", 0, "Lock ttl (defaults to LOCK_TTL)")

	acquireCmd.Flags().IntVar(&lockAttempts, "max-attempts", 1, "Acquisition attempts before giving up")
	acquireCmd.Flags().DurationVar(&lockRetryWait, "wait", 0, "Pause between attempts (defaults to LOCK_RETRY_WAIT)")
}

// setupLockClient loads the configuration and connects the lock
func setupLockClient(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	locker, err := newLocker(cmd.Context(), cfg, newLogger(cfg.LogLevel))
	if err != nil {
		return err
	}

	cliConfig = cfg
	cliLocker = locker
	return nil
}

func closeLockClient(_ *cobra.Command, _ []string) error {
	if cliLocker == nil {
		return nil
	}
	return cliLocker.Close()
}

func ttlOrDefault() time.Duration {
	if lockTTL > 0 {
		return lockTTL
	}
	return cliConfig.LockTTL
}

// runAcquire handles the acquire lock command
func runAcquire(cmd *cobra.Command, args []string) error {
	resource := args[0]
	ttl := ttlOrDefault()

	if lockAttempts > 1 {
		wait := lockRetryWait
		if wait <= 0 {
			wait = cliConfig.RetryWait
		}
		token, err := cliLocker.Optimistic(cmd.Context(), resource, ttl, lockAttempts, wait)
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "acquired=true, token=%s\n", token)
		return nil
	}

	token, acquired, err := cliLocker.Lock(cmd.Context(), resource, ttl)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !acquired {
		fmt.Fprintln(cmd.OutOrStdout(), "acquired=false")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "acquired=true, token=%s\n", token)
	return nil
}

// runRelease handles the release lock command
func runRelease(cmd *cobra.Command, args []string) error {
	released, err := cliLocker.Unlock(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "released=%d\n", released)
	return nil
}

// runTouch handles the touch lock command
func runTouch(cmd *cobra.Command, args []string) error {
	extended, err := cliLocker.Touch(cmd.Context(), args[0], args[1], ttlOrDefault())
	if err != nil {
		return fmt.Errorf("failed to extend lock: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "extended=%d\n", extended)
	return nil
}

// runStatus handles the status lock command
func runStatus(cmd *cobra.Command, args []string) error {
	state, err := cliLocker.Inspect(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to inspect lock: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "key=%s, held=%t, ttl=%s\n", state.Key, state.Held, state.TTL)
	return nil
}
