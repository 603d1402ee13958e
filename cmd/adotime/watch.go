package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/christopherklint97/adotime/internal/notify"
	"github.com/christopherklint97/adotime/internal/scheduler"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run reminder checks on the configured schedule until interrupted",
	Long: `Runs in the foreground and, on every tick of [notifications] schedule,
raises a desktop notification for credentials close to expiry and, when
remind_unlogged is set, for a day with nothing logged.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("once", false, "Run the checks once and exit")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Notifications.Enabled {
		return fmt.Errorf("notifications are disabled; set notifications.enabled = true")
	}

	sched, err := scheduler.New(a.svc, notify.Desktop{}, scheduler.Options{
		Schedule:       a.cfg.Notifications.Schedule,
		ExpiryWindow:   time.Duration(a.cfg.Notifications.ExpiryWarningDays) * 24 * time.Hour,
		RemindUnlogged: a.cfg.Notifications.RemindUnlogged,
		Logger:         a.logger,
	})
	if err != nil {
		return err
	}

	if once, _ := cmd.Flags().GetBool("once"); once {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		return sched.Check(ctx)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Printf("Watching (next check %s). Press Ctrl+C to stop.\n", sched.Next(time.Now()).Format(time.DateTime))
	return sched.Run(ctx)
}
