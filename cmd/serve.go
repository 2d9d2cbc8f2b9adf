package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"courtbook/config"
	"courtbook/cron"
	"courtbook/database"
	"courtbook/middleware"
	"courtbook/routes"
	"courtbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var (
		useQueue   bool
		withWorker bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !config.AppConfig.RedisEnabled {
				useQueue = false
			}
			a, err := buildApp(ctx, useQueue)
			if err != nil {
				return err
			}
			logger := a.logger
			if withWorker && useQueue {
				srv := cron.InitWorker(ctx, a.processor, logger)
				defer srv.Shutdown()
			}

			utils.StartHealthMonitor(ctx, a.cache, database.MongoClient, 30*time.Second)

			if config.IsProduction() {
				gin.SetMode(gin.ReleaseMode)
			}
			router := gin.New()
			router.Use(gin.Recovery())
			router.Use(utils.ErrorHandler())
			router.Use(middleware.RequestLogger(logger))
			routes.RegisterRoutes(router, a.handlerBundle())

			srv := &http.Server{
				Addr:    "0.0.0.0:" + a.cfg.AppPort,
				Handler: router,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting server", zap.String("addr", srv.Addr), zap.Bool("queue", useQueue))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}
			logger.Info("Server is shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", zap.Error(err))
			}
			a.close(shutdownCtx)
			logger.Info("Server stopped gracefully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&useQueue, "queue", true, "schedule hold expiry and calendar sync on the Redis task queue")
	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "also run the task worker in this process")
	return cmd
}
