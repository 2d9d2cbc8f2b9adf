package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	conversationRepo "courtbook/database/repository/conversation"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream reservation changes from MongoDB",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.close(context.Background())
			if a.mongoRepo == nil {
				return errors.New("watch requires STORE_DRIVER=mongo")
			}

			err = a.mongoRepo.Watch(ctx, func(ch conversationRepo.ReservationChange) {
				c := ch.Conversation
				a.logger.Info("Reservation changed",
					zap.String("op", ch.Operation),
					zap.String("id", c.ID),
					zap.String("phone", c.Phone),
					zap.String("step", string(c.Step)),
					zap.String("date", c.Date),
					zap.String("timeSlot", c.TimeSlot),
					zap.Bool("paid", c.Paid),
				)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
