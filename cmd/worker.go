package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"courtbook/cron"

	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the hold release and calendar sync worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			srv := cron.InitWorker(ctx, a.processor, a.logger)

			<-ctx.Done()
			a.logger.Info("Worker is shutting down...")
			srv.Shutdown()

			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			a.close(closeCtx)
			return nil
		},
	}
}
