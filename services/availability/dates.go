package availability

import (
	"context"
	"time"

	"courtbook/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DateOption is one row of the date menu.
type DateOption struct {
	Date      string
	Title     string
	Available int
}

// CandidateDates scans the next days dates (today first) for scope's
// location and activity. Fully booked dates are left out. Dates whose lookup
// fails are offered with the full template count. If every lookup fails, all
// dates are offered.
func (o *Oracle) CandidateDates(ctx context.Context, scope models.SlotScope, days int) []DateOption {
	today := o.now().In(o.loc)
	options := make([]DateOption, days)
	failed := make([]bool, days)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := 0; i < days; i++ {
		day := time.Date(today.Year(), today.Month(), today.Day()+i, 0, 0, 0, 0, o.loc)
		options[i] = DateOption{Date: day.Format(dateLayout), Title: day.Format("Mon, 02 Jan")}

		g.Go(func() error {
			s := scope
			s.Date = options[i].Date
			labels, err := o.AvailableSlots(gctx, s)
			if err != nil {
				o.logger.Warn("Availability lookup failed for date",
					zap.String("date", s.Date), zap.Error(err))
				failed[i] = true
				return nil
			}
			options[i].Available = len(labels)
			return nil
		})
	}
	_ = g.Wait()

	fullCount := len(o.template.Slots())
	allFailed := true
	var out []DateOption
	for i, opt := range options {
		if failed[i] {
			opt.Available = fullCount
		} else {
			allFailed = false
		}
		if opt.Available > 0 {
			out = append(out, opt)
		}
	}
	if allFailed {
		o.logger.Warn("No availability data, offering every date", zap.Int("days", days))
	}
	return out
}
