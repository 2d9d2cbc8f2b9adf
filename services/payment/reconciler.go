package payment

import (
	"context"
	"errors"
	"net/http"
	"time"

	conversationRepo "courtbook/database/repository/conversation"
	"courtbook/models"
	"courtbook/services/messages"
	"courtbook/services/notification"
	"courtbook/utils"

	"go.uber.org/zap"
)

// CalendarScheduler queues calendar sync for a paid reservation.
type CalendarScheduler interface {
	ScheduleCalendarSync(ctx context.Context, reservationID string) error
}

// Reconciler applies payment callbacks to reservations. It is safe under
// duplicate and concurrent delivery: the paid flip is a single conditional
// write, so exactly one delivery confirms.
type Reconciler struct {
	repo      conversationRepo.ConversationRepository
	provider  Provider
	messenger notification.Messenger
	calendar  CalendarScheduler
	catalog   models.Catalog
	loc       *time.Location
	logger    *zap.Logger
}

// NewReconciler builds a Reconciler. calendar may be nil.
func NewReconciler(
	repo conversationRepo.ConversationRepository,
	provider Provider,
	messenger notification.Messenger,
	calendar CalendarScheduler,
	catalog models.Catalog,
	loc *time.Location,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		repo:      repo,
		provider:  provider,
		messenger: messenger,
		calendar:  calendar,
		catalog:   catalog,
		loc:       loc,
		logger:    logger.With(zap.String("provider", provider.Name)),
	}
}

// OnPaymentEvent verifies and applies one callback. A returned error means
// the callback could not be processed and should be retried by the provider;
// OutcomeRejected comes with a signature error.
func (r *Reconciler) OnPaymentEvent(ctx context.Context, body []byte, header http.Header) (models.PaymentOutcome, error) {
	if err := r.provider.Verifier.Verify(body, header); err != nil {
		r.logger.Warn("Rejected payment callback", zap.Error(err))
		return models.OutcomeRejected, err
	}

	ev, err := r.provider.Decoder.Decode(body)
	if err != nil {
		r.logger.Warn("Undecodable payment callback", zap.Error(err))
		return models.OutcomeIgnored, nil
	}
	log := r.logger.With(zap.String("event", ev.Type), zap.String("paymentId", ev.PaymentID))
	if !ev.Success {
		log.Debug("Ignoring non-success payment event")
		return models.OutcomeIgnored, nil
	}

	conv, err := r.resolve(ctx, ev)
	if err != nil {
		return "", err
	}
	if conv == nil || conv.TimeSlot == "" {
		log.Warn("Payment event matched no reservation",
			zap.Error(utils.NewAppError(utils.KindUnresolvedPayment, "no reservation for payment", nil)),
			zap.String("referenceId", ev.ReferenceID),
			zap.String("notesId", ev.NotesID),
			zap.String("linkId", ev.LinkID),
			zap.String("orderId", ev.OrderID))
		return models.OutcomeUnresolved, nil
	}
	log = log.With(zap.String("reservationId", conv.ID), zap.String("phone", conv.Phone))

	if conv.Paid {
		log.Info("Reservation already paid")
		return models.OutcomeAlreadyPaid, nil
	}
	if conv.Step == models.StepConflict {
		log.Info("Reservation already lost its slot")
		return models.OutcomeConflict, nil
	}

	other, err := r.repo.FindPaidConflict(ctx, conv)
	switch {
	case err == nil:
		log.Warn("Paid reservation already holds this slot", zap.String("conflictWith", other.ID))
		return r.conflict(ctx, conv, log)
	case !errors.Is(err, conversationRepo.ErrNotFound):
		return "", err
	}

	flipped, err := r.repo.MarkPaid(ctx, conv.ID)
	if errors.Is(err, conversationRepo.ErrSlotTaken) {
		log.Warn("Slot re-sold while hold was released")
		return r.conflict(ctx, conv, log)
	}
	if err != nil {
		return "", err
	}
	if !flipped {
		log.Info("Reservation already paid")
		return models.OutcomeAlreadyPaid, nil
	}

	log.Info("Reservation confirmed", zap.Int64("amountPaid", ev.AmountPaid))
	conv.Paid = true
	conv.Step = models.StepCompleted
	if err := r.messenger.SendText(ctx, conv.Phone, messages.Confirmation(conv, r.catalog, r.loc)); err != nil {
		log.Error("Failed to send booking confirmation", zap.Error(err))
	}
	if r.calendar != nil {
		if err := r.calendar.ScheduleCalendarSync(ctx, conv.ID); err != nil {
			log.Error("Failed to queue calendar sync", zap.Error(err))
		}
	}
	return models.OutcomeConfirmed, nil
}

func (r *Reconciler) conflict(ctx context.Context, conv *models.Conversation, log *zap.Logger) (models.PaymentOutcome, error) {
	changed, err := r.repo.MarkConflict(ctx, conv.ID)
	if err != nil {
		return "", err
	}
	if !changed {
		// A concurrent delivery already told the user.
		return models.OutcomeConflict, nil
	}
	if err := r.messenger.SendText(ctx, conv.Phone, messages.SlotTaken); err != nil {
		log.Error("Failed to send slot taken notice", zap.Error(err))
	}
	return models.OutcomeConflict, nil
}

// resolve tries the reference id, the notes id, then stored link and order ids.
func (r *Reconciler) resolve(ctx context.Context, ev models.PaymentEvent) (*models.Conversation, error) {
	for _, id := range []string{ev.ReferenceID, ev.NotesID} {
		if id == "" {
			continue
		}
		conv, err := r.repo.GetByID(ctx, id)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, conversationRepo.ErrNotFound) {
			return nil, err
		}
	}
	for _, ref := range []string{ev.LinkID, ev.OrderID} {
		if ref == "" {
			continue
		}
		conv, err := r.repo.GetByPaymentReference(ctx, ref)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, conversationRepo.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}
