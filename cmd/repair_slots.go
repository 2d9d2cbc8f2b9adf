package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"courtbook/models"
	"courtbook/services/slots"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRepairSlotsCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "repair-slots",
		Short: "Rewrite stored slot labels in canonical HH:MM - HH:MM form",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			a, err := buildApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			report, err := repairSlots(ctx, a.repo, cmd.OutOrStdout(), dryRun, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d records need repair, %d skipped (dry-run=%t)\n",
				report.Changed, report.Total, report.Skipped, dryRun)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without writing")
	return cmd
}

type slotLabelStore interface {
	ListReserved(ctx context.Context) ([]models.Conversation, error)
	UpdateSlotLabels(ctx context.Context, id, timeSlot string, additional []string) error
}

type repairReport struct {
	Total   int
	Changed int
	Skipped int
}

// repairSlots normalises every stored reservation's labels. Records with a
// label that cannot be parsed are logged and left untouched.
func repairSlots(ctx context.Context, store slotLabelStore, out io.Writer, dryRun bool, logger *zap.Logger) (repairReport, error) {
	records, err := store.ListReserved(ctx)
	if err != nil {
		return repairReport{}, err
	}

	report := repairReport{Total: len(records)}
	for _, conv := range records {
		log := logger.With(zap.String("id", conv.ID), zap.String("phone", conv.Phone))
		primary, err := slots.Normalize(conv.TimeSlot)
		if err != nil {
			log.Warn("Unparseable slot label", zap.String("timeSlot", conv.TimeSlot), zap.Error(err))
			report.Skipped++
			continue
		}
		additional, err := slots.NormalizeAll(conv.AdditionalTimeSlots)
		if err != nil {
			log.Warn("Unparseable additional slot label", zap.Strings("additional", conv.AdditionalTimeSlots), zap.Error(err))
			report.Skipped++
			continue
		}
		if primary == conv.TimeSlot && slices.Equal(additional, conv.AdditionalTimeSlots) {
			continue
		}

		fmt.Fprintf(out, "%s: %q %v -> %q %v\n", conv.ID, conv.TimeSlot, conv.AdditionalTimeSlots, primary, additional)
		report.Changed++
		if dryRun {
			continue
		}
		if err := store.UpdateSlotLabels(ctx, conv.ID, primary, additional); err != nil {
			return report, fmt.Errorf("update %s: %w", conv.ID, err)
		}
	}
	return report, nil
}
