package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"courtbook/models"

	"github.com/hibiken/asynq"
)

const (
	TypeCalendarSync = "calendar:create_event"
	TypeHoldRelease  = "reservation:release_hold"
)

func NewCalendarSyncTask(reservationID string) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(models.CalendarSyncPayload{ReservationID: reservationID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeCalendarSync, b)
	opts := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.Timeout(30 * time.Second),
		asynq.TaskID("calendar:" + reservationID),
	}
	return task, opts, nil
}

func NewHoldReleaseTask(reservationID string, heldAt, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(models.HoldReleasePayload{ReservationID: reservationID, HeldAt: heldAt})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeHoldRelease, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.MaxRetry(10),
		asynq.TaskID(fmt.Sprintf("hold:%s:%d", reservationID, heldAt.UnixMilli())),
	}
	return task, opts, nil
}

// Scheduler queues background work for a reservation.
type Scheduler interface {
	ScheduleCalendarSync(ctx context.Context, reservationID string) error
	ScheduleHoldRelease(ctx context.Context, reservationID string, heldAt, fireAt time.Time) error
}

// QueueScheduler enqueues onto Redis for the worker process.
type QueueScheduler struct {
	client *asynq.Client
}

func NewQueueScheduler(client *asynq.Client) *QueueScheduler {
	return &QueueScheduler{client: client}
}

func (s *QueueScheduler) ScheduleCalendarSync(ctx context.Context, reservationID string) error {
	task, opts, err := NewCalendarSyncTask(reservationID)
	if err != nil {
		return err
	}
	return s.enqueue(ctx, task, opts)
}

func (s *QueueScheduler) ScheduleHoldRelease(ctx context.Context, reservationID string, heldAt, fireAt time.Time) error {
	task, opts, err := NewHoldReleaseTask(reservationID, heldAt, fireAt)
	if err != nil {
		return err
	}
	return s.enqueue(ctx, task, opts)
}

func (s *QueueScheduler) enqueue(ctx context.Context, task *asynq.Task, opts []asynq.Option) error {
	_, err := s.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}
