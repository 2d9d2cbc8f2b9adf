package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	conversationRepo "courtbook/database/repository/conversation"
	"courtbook/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// EventCreator writes a reservation to the external calendar.
type EventCreator interface {
	CreateEvent(ctx context.Context, ev models.CalendarEvent) (string, error)
}

// Invalidator drops cached busy intervals after the calendar changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Processor runs background work. calendar may be nil, in which case
// calendar sync is skipped.
type Processor struct {
	repo        conversationRepo.ConversationRepository
	calendar    EventCreator
	invalidator Invalidator
	catalog     models.Catalog
	timezone    string
	logger      *zap.Logger
}

func NewProcessor(repo conversationRepo.ConversationRepository, calendar EventCreator, invalidator Invalidator, catalog models.Catalog, timezone string, logger *zap.Logger) *Processor {
	return &Processor{
		repo:        repo,
		calendar:    calendar,
		invalidator: invalidator,
		catalog:     catalog,
		timezone:    timezone,
		logger:      logger,
	}
}

// Register wires the handlers onto an asynq mux.
func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCalendarSync, func(ctx context.Context, t *asynq.Task) error {
		var payload models.CalendarSyncPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
		return p.SyncCalendar(ctx, payload.ReservationID)
	})
	mux.HandleFunc(TypeHoldRelease, func(ctx context.Context, t *asynq.Task) error {
		var payload models.HoldReleasePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
		return p.ReleaseHold(ctx, payload.ReservationID, payload.HeldAt)
	})
}

// SyncCalendar creates one event per booked slot for a paid reservation.
// Event ids are stored comma-joined in slot order after each insert, so a
// retry resumes at the first slot without an event.
func (p *Processor) SyncCalendar(ctx context.Context, reservationID string) error {
	log := p.logger.With(zap.String("reservationId", reservationID))
	if p.calendar == nil {
		log.Debug("Calendar not configured, skipping sync")
		return nil
	}
	conv, err := p.repo.GetByID(ctx, reservationID)
	if errors.Is(err, conversationRepo.ErrNotFound) {
		log.Warn("Reservation vanished before calendar sync")
		return nil
	}
	if err != nil {
		return err
	}
	var ids []string
	if conv.CalendarEventID != "" {
		ids = strings.Split(conv.CalendarEventID, ",")
	}
	if !conv.Paid || len(ids) >= len(conv.Slots) {
		return nil
	}

	summary := conv.Activity
	if a, ok := p.catalog.Activity(conv.Activity); ok {
		summary = a.Title
	}
	if conv.Name != "" {
		summary += " - " + conv.Name
	}
	description := fmt.Sprintf("Phone: %s\nLocation: %s\nSlots: %s", conv.Phone, conv.Location, strings.Join(conv.Slots, ", "))

	for _, slot := range conv.Slots[len(ids):] {
		id, err := p.calendar.CreateEvent(ctx, models.CalendarEvent{
			Date:        conv.Date,
			Slot:        slot,
			Summary:     summary,
			Description: description,
			Timezone:    p.timezone,
		})
		if err != nil {
			log.Error("Calendar event creation failed", zap.String("slot", slot), zap.Error(err))
			return err
		}
		ids = append(ids, id)
		if err := p.repo.SetCalendarEvent(ctx, conv.ID, strings.Join(ids, ",")); err != nil {
			return err
		}
	}
	if p.invalidator != nil {
		if err := p.invalidator.Invalidate(ctx); err != nil {
			log.Warn("Busy cache invalidation failed", zap.Error(err))
		}
	}
	log.Info("Calendar events created", zap.Strings("eventIds", ids))
	return nil
}

// ReleaseHold frees an unpaid reservation's slots if the hold taken at
// heldAt is still in place.
func (p *Processor) ReleaseHold(ctx context.Context, reservationID string, heldAt time.Time) error {
	released, err := p.repo.ReleaseHold(ctx, reservationID, heldAt)
	if err != nil {
		return err
	}
	if released {
		p.logger.Info("Released expired hold", zap.String("reservationId", reservationID), zap.Time("heldAt", heldAt))
	}
	return nil
}

// InlineScheduler runs work in-process. It backs deployments without Redis;
// pending hold releases are lost on restart.
type InlineScheduler struct {
	processor *Processor
	timeout   time.Duration
	logger    *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewInlineScheduler(processor *Processor, timeout time.Duration, logger *zap.Logger) *InlineScheduler {
	return &InlineScheduler{
		processor: processor,
		timeout:   timeout,
		logger:    logger,
		timers:    make(map[string]*time.Timer),
	}
}

func (s *InlineScheduler) ScheduleCalendarSync(_ context.Context, reservationID string) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.processor.SyncCalendar(ctx, reservationID); err != nil {
			s.logger.Warn("Inline calendar sync failed", zap.String("reservationId", reservationID), zap.Error(err))
		}
	}()
	return nil
}

func (s *InlineScheduler) ScheduleHoldRelease(_ context.Context, reservationID string, heldAt, fireAt time.Time) error {
	key := fmt.Sprintf("%s:%d", reservationID, heldAt.UnixMilli())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.timers[key]; exists {
		return nil
	}
	s.timers[key] = time.AfterFunc(time.Until(fireAt), func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.processor.ReleaseHold(ctx, reservationID, heldAt); err != nil {
			s.logger.Warn("Inline hold release failed", zap.String("reservationId", reservationID), zap.Error(err))
		}
	})
	return nil
}

// Stop cancels pending timers.
func (s *InlineScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}

var (
	_ Scheduler = (*QueueScheduler)(nil)
	_ Scheduler = (*InlineScheduler)(nil)
)
