package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	conversationRepo "courtbook/database/repository/conversation"
	"courtbook/models"
	"courtbook/services/payment"
	"courtbook/services/slots"
	"courtbook/utils"

	"go.uber.org/zap"
)

const linkAttempts = 2

// AvailabilityChecker re-validates slots right before commit.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, scope models.SlotScope, labels []string) (bool, string, error)
}

// HoldScheduler arranges for a hold to be released after its TTL.
type HoldScheduler interface {
	ScheduleHoldRelease(ctx context.Context, reservationID string, heldAt, fireAt time.Time) error
}

// Result of Reserve. When Conflict is set nothing was persisted and the
// caller must discard the draft. LinkErr is set when the reservation is
// held but no payment link could be created.
type Result struct {
	Conflict bool
	Slot     string
	Link     models.PaymentLink
	LinkErr  error
}

// Engine turns a confirmed draft into a held reservation. The storage
// unique index is what decides between racing reservations; the
// availability re-check only avoids pointless writes.
type Engine struct {
	repo        conversationRepo.ConversationRepository
	checker     AvailabilityChecker
	links       payment.LinkCreator
	holds       HoldScheduler
	catalog     models.Catalog
	holdTTL     time.Duration
	linkTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an Engine. holds may be nil, which disables hold expiry.
func NewEngine(
	repo conversationRepo.ConversationRepository,
	checker AvailabilityChecker,
	links payment.LinkCreator,
	holds HoldScheduler,
	catalog models.Catalog,
	holdTTL, linkTimeout time.Duration,
	logger *zap.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		repo:        repo,
		checker:     checker,
		links:       links,
		holds:       holds,
		catalog:     catalog,
		holdTTL:     holdTTL,
		linkTimeout: linkTimeout,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reserve commits conv's draft as a held reservation in payment_pending and
// creates its payment link. conv is updated in place on success.
func (e *Engine) Reserve(ctx context.Context, conv *models.Conversation) (Result, error) {
	log := e.logger.With(zap.String("phone", conv.Phone), zap.String("reservationId", conv.ID))

	labels, err := slots.NormalizeAll(conv.Draft.Slots)
	if err != nil {
		return Result{}, utils.NewAppError(utils.KindValidation, "draft holds a malformed slot", err)
	}
	if len(labels) == 0 {
		return Result{}, utils.NewAppError(utils.KindSessionExpired, "draft has no slots", nil)
	}
	scope := conv.Scope()

	ok, lost, err := e.checker.IsAvailable(ctx, scope, labels)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		log.Info("Slot no longer available at confirmation", zap.String("slot", lost))
		return Result{Conflict: true, Slot: lost}, nil
	}

	candidate := *conv
	candidate.Activity = scope.Activity
	candidate.Location = scope.Location
	candidate.Date = scope.Date
	candidate.TimeSlot = labels[0]
	candidate.AdditionalTimeSlots = append([]string(nil), labels[1:]...)
	candidate.Slots = labels
	candidate.Name = conv.Draft.Name
	candidate.TotalAmount = CalculateTotal(e.catalog, len(labels), conv.Addons)
	candidate.Paid = false
	candidate.Held = true
	candidate.HeldAt = e.now().UTC().Truncate(time.Millisecond)
	candidate.Step = models.StepPaymentPending

	if err := e.repo.Save(ctx, &candidate); err != nil {
		if errors.Is(err, conversationRepo.ErrSlotTaken) {
			log.Info("Lost slot race at commit", zap.Strings("slots", labels))
			return Result{Conflict: true, Slot: labels[0]}, nil
		}
		return Result{}, err
	}
	*conv = candidate
	log.Info("Reservation held", zap.String("date", conv.Date), zap.Strings("slots", conv.Slots), zap.Int64("total", conv.TotalAmount))

	if e.holds != nil && e.holdTTL > 0 {
		if err := e.holds.ScheduleHoldRelease(ctx, conv.ID, conv.HeldAt, conv.HeldAt.Add(e.holdTTL)); err != nil {
			log.Error("Failed to schedule hold release", zap.Error(err))
		}
	}

	link, err := e.EnsureLink(ctx, conv)
	if err != nil {
		return Result{LinkErr: err}, nil
	}
	return Result{Link: link}, nil
}

// EnsureLink returns conv's payment link, creating and storing it if
// missing. Creation is tried twice.
func (e *Engine) EnsureLink(ctx context.Context, conv *models.Conversation) (models.PaymentLink, error) {
	if conv.Draft.PaymentLinkURL != "" {
		return models.PaymentLink{ID: conv.Draft.PaymentLinkID, URL: conv.Draft.PaymentLinkURL}, nil
	}
	log := e.logger.With(zap.String("phone", conv.Phone), zap.String("reservationId", conv.ID))

	req := models.PaymentLinkRequest{
		ReservationID: conv.ID,
		Amount:        conv.TotalAmount,
		Currency:      e.catalog.Currency,
		CustomerName:  conv.Name,
		Phone:         conv.Phone,
		Description:   e.describe(conv),
	}
	var (
		link models.PaymentLink
		err  error
	)
	for attempt := 1; attempt <= linkAttempts; attempt++ {
		link, err = e.createLink(ctx, req)
		if err == nil {
			break
		}
		log.Warn("Payment link creation failed", zap.Int("attempt", attempt), zap.Error(err))
	}
	if err != nil {
		return models.PaymentLink{}, utils.NewAppError(utils.KindExternalUnavailable, "payment link unavailable", err)
	}

	conv.Draft.PaymentLinkID = link.ID
	conv.Draft.PaymentLinkURL = link.URL
	if err := e.repo.Save(ctx, conv); err != nil {
		// The link still resolves through its reference id.
		log.Error("Failed to store payment link", zap.String("linkId", link.ID), zap.Error(err))
	}
	return link, nil
}

func (e *Engine) createLink(ctx context.Context, req models.PaymentLinkRequest) (models.PaymentLink, error) {
	if e.linkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.linkTimeout)
		defer cancel()
	}
	return e.links.CreateLink(ctx, req)
}

func (e *Engine) describe(conv *models.Conversation) string {
	activity, location := conv.Activity, conv.Location
	if a, ok := e.catalog.Activity(activity); ok {
		activity = a.Title
	}
	if l, ok := e.catalog.Location(location); ok {
		location = l.Title
	}
	return fmt.Sprintf("%s booking - %s at %s on %s", e.catalog.Brand, activity, location, conv.Date)
}
