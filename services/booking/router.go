// Package booking runs the chat booking conversation: it routes every
// inbound message to the handler for the phone's current step.
package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	conversationRepo "courtbook/database/repository/conversation"
	"courtbook/models"
	"courtbook/services/availability"
	"courtbook/services/idempotency"
	"courtbook/services/messages"
	"courtbook/services/notification"
	"courtbook/services/reservation"

	"go.uber.org/zap"
)

// Availability is what the router asks about slots.
type Availability interface {
	CandidateDates(ctx context.Context, scope models.SlotScope, days int) []availability.DateOption
	SlotsInPeriod(ctx context.Context, scope models.SlotScope, period models.Period) ([]string, error)
	IsAvailable(ctx context.Context, scope models.SlotScope, labels []string) (bool, string, error)
}

// Reserver commits confirmed drafts and hands out their payment links.
type Reserver interface {
	Reserve(ctx context.Context, conv *models.Conversation) (reservation.Result, error)
	EnsureLink(ctx context.Context, conv *models.Conversation) (models.PaymentLink, error)
}

// Router owns no conversation state; every message loads, mutates and saves
// its own copy of the phone's record.
type Router struct {
	repo       conversationRepo.ConversationRepository
	guard      *idempotency.Guard
	oracle     Availability
	engine     Reserver
	messenger  notification.Messenger
	catalog    models.Catalog
	loc        *time.Location
	windowDays int
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Router)

func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithWindow sets how many days the date menu offers.
func WithWindow(days int) Option {
	return func(r *Router) {
		if days > 0 {
			r.windowDays = days
		}
	}
}

func NewRouter(
	repo conversationRepo.ConversationRepository,
	guard *idempotency.Guard,
	oracle Availability,
	engine Reserver,
	messenger notification.Messenger,
	catalog models.Catalog,
	loc *time.Location,
	logger *zap.Logger,
	opts ...Option,
) *Router {
	r := &Router{
		repo:       repo,
		guard:      guard,
		oracle:     oracle,
		engine:     engine,
		messenger:  messenger,
		catalog:    catalog,
		loc:        loc,
		windowDays: 7,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle processes one inbound message. Redeliveries are dropped. A
// conversation changed by a concurrent message is left alone and the
// message is dropped. Other failures are reported to the user and returned.
func (r *Router) Handle(ctx context.Context, msg models.InboundMessage) error {
	if msg.From == "" {
		return nil
	}
	log := r.logger.With(zap.String("phone", msg.From), zap.String("messageId", msg.MessageID))

	if r.guard.SeenBefore(ctx, msg.MessageID) {
		log.Info("Redelivered message ignored")
		return nil
	}

	conv, err := r.repo.GetActiveByPhone(ctx, msg.From)
	switch {
	case errors.Is(err, conversationRepo.ErrNotFound):
		conv = nil
	case err != nil:
		log.Error("Failed to load conversation", zap.Error(err))
		r.sendText(ctx, msg.From, messages.TryAgain)
		return err
	}

	var admitted bool
	if conv != nil {
		admitted, err = r.guard.Admit(ctx, conv, msg.MessageID)
	} else {
		admitted, err = r.guard.AdmitNew(ctx, msg.From, msg.MessageID)
	}
	if err != nil {
		log.Error("Failed to record message id", zap.Error(err))
		r.sendText(ctx, msg.From, messages.TryAgain)
		return err
	}
	if !admitted {
		return nil
	}
	if conv != nil {
		log = log.With(zap.String("step", string(conv.Step)))
	}

	err = r.dispatch(ctx, conv, msg, log)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, conversationRepo.ErrStaleRecord):
		log.Info("Conversation changed concurrently, message dropped")
		return nil
	case errors.Is(err, conversationRepo.ErrDuplicateActive):
		log.Info("Conversation already started by a concurrent message")
		return nil
	}
	log.Error("Failed to handle message", zap.Error(err))
	r.sendText(ctx, msg.From, messages.TryAgain)
	return err
}

func (r *Router) dispatch(ctx context.Context, conv *models.Conversation, msg models.InboundMessage, log *zap.Logger) error {
	input := strings.TrimSpace(msg.Input())

	if cmd, ok := parseCommand(input); ok {
		log.Info("Global command", zap.String("command", string(cmd)))
		return r.runCommand(ctx, cmd, conv, msg)
	}

	if conv == nil {
		return r.start(ctx, nil, msg)
	}

	switch conv.Step {
	case models.StepWelcome:
		return r.welcome(ctx, conv)
	case models.StepCollectingName:
		if !models.LooksLikeSelection(input) {
			return r.onName(ctx, conv, input)
		}
	case models.StepPaymentPending:
		return r.remindPayment(ctx, conv, log)
	case models.StepCompleted:
		r.sendText(ctx, conv.Phone, promptCompleted)
		return nil
	case models.StepConflict:
		r.sendText(ctx, conv.Phone, messages.SlotTaken)
		return nil
	}

	tok, ok := models.ParseMenuToken(input)
	if !ok {
		if section, row, isCoord := models.ParseCoordinate(input); isCoord {
			m, hasMenu := r.stepMenu(conv)
			if !hasMenu {
				return r.fallback(ctx, conv, input, log)
			}
			if tok, ok = m.at(section, row); !ok {
				log.Info("Positional reply outside the menu", zap.String("input", input))
				r.sendText(ctx, conv.Phone, promptNotOnMenu)
				return nil
			}
		}
	}
	if !ok || !expects(conv.Step, tok.Kind) {
		return r.fallback(ctx, conv, input, log)
	}
	return r.onToken(ctx, conv, tok, log)
}

func (r *Router) onToken(ctx context.Context, conv *models.Conversation, tok models.MenuToken, log *zap.Logger) error {
	switch tok.Kind {
	case models.KindMenu:
		if tok.Value == membershipValue {
			r.sendMembership(ctx, conv.Phone)
			return nil
		}
	case models.KindActivity:
		return r.onActivity(ctx, conv, tok.Value)
	case models.KindLocation:
		return r.onLocation(ctx, conv, tok.Value)
	case models.KindDate:
		return r.onDate(ctx, conv, tok.Value)
	case models.KindPeriod:
		return r.onPeriod(ctx, conv, tok.Value)
	case models.KindSlot:
		return r.onSlot(ctx, conv, tok.Value, log)
	case models.KindAddSlot:
		return r.onAddSlot(ctx, conv, tok.Value)
	case models.KindAddon:
		return r.onAddon(ctx, conv, tok.Value)
	case models.KindConfirm:
		return r.onConfirm(ctx, conv, tok.Value, log)
	}
	return r.fallback(ctx, conv, tok.ID(), log)
}

func (r *Router) fallback(ctx context.Context, conv *models.Conversation, input string, log *zap.Logger) error {
	log.Info("Unrecognized input", zap.String("input", input))
	r.sendText(ctx, conv.Phone, messages.Help)
	return nil
}

func (r *Router) sendText(ctx context.Context, to, body string) {
	if err := r.messenger.SendText(ctx, to, body); err != nil {
		r.logger.Warn("Failed to send text", zap.String("phone", to), zap.Error(err))
	}
}

func (r *Router) sendMenu(ctx context.Context, to string, m menu) {
	var err error
	if m.buttons {
		buttons := make([]models.Button, 0, len(m.rows()))
		for _, row := range m.rows() {
			buttons = append(buttons, models.Button{ID: row.ID, Title: row.Title})
		}
		err = r.messenger.SendButtons(ctx, to, m.body, buttons)
	} else {
		err = r.messenger.SendList(ctx, to, m.header, m.body, m.button, m.sections)
	}
	if err != nil {
		r.logger.Warn("Failed to send menu", zap.String("phone", to), zap.Error(err))
	}
}

func (r *Router) sendLink(ctx context.Context, to, body, url, title string) {
	if err := r.messenger.SendLinkButton(ctx, to, body, url, title); err != nil {
		r.logger.Warn("Link button failed, sending plain link", zap.String("phone", to), zap.Error(err))
		r.sendText(ctx, to, withURL(body, url))
	}
}
