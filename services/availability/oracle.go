package availability

import (
	"context"
	"time"

	"courtbook/models"
	"courtbook/services/slots"
	"courtbook/utils"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// BusySource reports busy intervals from the external calendar.
type BusySource interface {
	BusyIntervals(ctx context.Context, start, end time.Time) ([]models.Interval, error)
}

// HeldSlotReader lists slot labels held by reservations in a scope.
type HeldSlotReader interface {
	HeldSlots(ctx context.Context, scope models.SlotScope) ([]string, error)
}

// Oracle computes offerable slots. Its answers are advisory; the storage
// constraint is what actually prevents double booking.
type Oracle struct {
	busy     BusySource
	held     HeldSlotReader
	template slots.Template
	loc      *time.Location
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Oracle)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Oracle) { o.now = now }
}

// NewOracle builds an Oracle. busy may be nil when no calendar is configured.
func NewOracle(busy BusySource, held HeldSlotReader, tmpl slots.Template, loc *time.Location, timeout time.Duration, logger *zap.Logger, opts ...Option) *Oracle {
	o := &Oracle{
		busy:     busy,
		held:     held,
		template: tmpl,
		loc:      loc,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Location is the booking timezone.
func (o *Oracle) Location() *time.Location {
	return o.loc
}

// Template is the daily slot grid.
func (o *Oracle) Template() slots.Template {
	return o.template
}

// AvailableSlots returns the normalized labels offerable on scope.Date, in template order.
func (o *Oracle) AvailableSlots(ctx context.Context, scope models.SlotScope) ([]string, error) {
	ranges, err := o.available(ctx, scope)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, r.String())
	}
	return out, nil
}

// SlotsInPeriod is AvailableSlots restricted to slots starting inside period.
func (o *Oracle) SlotsInPeriod(ctx context.Context, scope models.SlotScope, period models.Period) ([]string, error) {
	ranges, err := o.available(ctx, scope)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range ranges {
		if period.Contains(r.Start) {
			out = append(out, r.String())
		}
	}
	return out, nil
}

// IsAvailable re-checks labels against current availability. On false it
// returns the first label that is no longer offerable.
func (o *Oracle) IsAvailable(ctx context.Context, scope models.SlotScope, labels []string) (bool, string, error) {
	offered, err := o.AvailableSlots(ctx, scope)
	if err != nil {
		return false, "", err
	}
	set := make(map[string]bool, len(offered))
	for _, l := range offered {
		set[l] = true
	}
	for _, l := range labels {
		n, err := slots.Normalize(l)
		if err != nil || !set[n] {
			return false, l, nil
		}
	}
	return true, "", nil
}

func (o *Oracle) available(ctx context.Context, scope models.SlotScope) ([]slots.Range, error) {
	day, err := time.ParseInLocation(dateLayout, scope.Date, o.loc)
	if err != nil {
		return nil, utils.NewAppError(utils.KindValidation, "invalid booking date", err)
	}

	heldLabels, err := o.held.HeldSlots(ctx, scope)
	if err != nil {
		return nil, utils.NewAppError(utils.KindExternalUnavailable, "could not read reservations", err)
	}
	var held []slots.Range
	for _, label := range heldLabels {
		r, err := slots.Parse(label)
		if err != nil {
			o.logger.Warn("Skipping malformed held slot label",
				zap.String("label", label), zap.String("date", scope.Date), zap.Error(err))
			continue
		}
		held = append(held, r)
	}

	busy := o.busyIntervals(ctx, day)
	now := o.now().In(o.loc)

	var out []slots.Range
	seen := make(map[slots.Range]bool)
	for _, r := range o.template.Slots() {
		if seen[r] || overlapsAny(r, held) {
			continue
		}
		start, end := slots.Bounds(day, r)
		if !start.After(now) {
			continue
		}
		if overlapsBusy(start, end, busy) {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out, nil
}

// busyIntervals never blocks past o.timeout and returns nil when the source
// is missing, failing or slow, which skips the calendar filter.
func (o *Oracle) busyIntervals(ctx context.Context, day time.Time) []models.Interval {
	if o.busy == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type result struct {
		intervals []models.Interval
		err       error
	}
	ch := make(chan result, 1)
	go func() {
		start := day
		end := day.AddDate(0, 0, 1)
		intervals, err := o.busy.BusyIntervals(ctx, start.UTC(), end.UTC())
		ch <- result{intervals: intervals, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			o.logger.Warn("Calendar unavailable, offering template without busy filter",
				zap.String("date", day.Format(dateLayout)), zap.Error(res.err))
			return nil
		}
		return res.intervals
	case <-ctx.Done():
		o.logger.Warn("Calendar timed out, offering template without busy filter",
			zap.String("date", day.Format(dateLayout)), zap.Duration("timeout", o.timeout))
		return nil
	}
}

func overlapsAny(r slots.Range, others []slots.Range) bool {
	for _, o := range others {
		if r.Overlaps(o) {
			return true
		}
	}
	return false
}

func overlapsBusy(start, end time.Time, busy []models.Interval) bool {
	for _, b := range busy {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}
