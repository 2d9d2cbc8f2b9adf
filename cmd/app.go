package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"courtbook/config"
	"courtbook/cron"
	"courtbook/database"
	conversationRepo "courtbook/database/repository/conversation"
	"courtbook/handlers"
	"courtbook/models"
	"courtbook/services/availability"
	"courtbook/services/booking"
	"courtbook/services/calendar"
	"courtbook/services/idempotency"
	"courtbook/services/notification"
	"courtbook/services/payment"
	"courtbook/services/reservation"
	"courtbook/services/slots"
	"courtbook/services/tasks"
	"courtbook/utils"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// app is the wired object graph shared by the serve and worker commands.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	catalog   models.Catalog
	repo      conversationRepo.ConversationRepository
	mongoRepo *conversationRepo.MongoConversationRepo
	cache     *redis.Client
	processor *tasks.Processor
	scheduler tasks.Scheduler
	queue     *asynq.Client
	inline    *tasks.InlineScheduler
	router    *booking.Router
	reconcile *payment.Reconciler
}

// buildApp connects storage, caches and providers from config.AppConfig.
// useQueue selects the Redis task queue over in-process scheduling.
func buildApp(ctx context.Context, useQueue bool) (*app, error) {
	cfg := config.AppConfig
	logger := utils.GetLogger()
	loc := cfg.Location()

	catalog, err := cfg.BuildCatalog()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, catalog: catalog}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	a.cache = utils.GetCacheClient()

	// Calendar: optional. Interfaces stay nil when it is not configured.
	var (
		busy    availability.BusySource
		events  tasks.EventCreator
		flusher tasks.Invalidator
	)
	gcal, err := a.openCalendar(ctx, loc)
	switch {
	case errors.Is(err, calendar.ErrNotConfigured):
		logger.Info("Google Calendar not configured, availability uses held slots only")
	case err != nil:
		return nil, err
	default:
		cached := calendar.NewCachedBusySource(gcal, a.cache, cfg.GoogleCalendarID, cfg.BusyCacheTTL, logger)
		busy, events, flusher = cached, gcal, cached
	}

	tmpl, err := slots.NewTemplate(cfg.SlotOpen, cfg.SlotClose, cfg.SlotMinutes)
	if err != nil {
		return nil, fmt.Errorf("slot template: %w", err)
	}
	oracle := availability.NewOracle(busy, a.repo, tmpl, loc, cfg.CalendarTimeout, logger)

	a.processor = tasks.NewProcessor(a.repo, events, flusher, catalog, cfg.BookingTimezone, logger)
	if useQueue {
		a.queue = asynq.NewClient(cron.RedisOpt())
		a.scheduler = tasks.NewQueueScheduler(a.queue)
	} else {
		a.inline = tasks.NewInlineScheduler(a.processor, 30*time.Second, logger)
		a.scheduler = a.inline
	}

	provider, err := payment.NewProvider(payment.Settings{
		Provider:      cfg.PaymentProvider,
		CallbackURL:   cfg.PaymentCallbackURL,
		KeyID:         cfg.RazorpayKeyID,
		KeySecret:     cfg.RazorpayKeySecret,
		WebhookSecret: cfg.RazorpayWebhookSecret,
		APIBase:       cfg.RazorpayAPIBase,
		StripeKey:     cfg.StripeKey,
		StripeSecret:  cfg.StripeWebhookSecret,
	}, &http.Client{Timeout: cfg.PaymentLinkTimeout})
	if err != nil {
		return nil, err
	}

	messenger := notification.NewWhatsAppClient(notification.WhatsAppConfig{
		BaseURL:       cfg.WhatsAppAPIBase,
		APIVersion:    cfg.WhatsAppAPIVersion,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		AccessToken:   cfg.WhatsAppAccessToken,
		Timeout:       cfg.WhatsAppTimeout,
	}, logger)
	if !messenger.Configured() {
		logger.Warn("WhatsApp credentials missing, outbound messages will be dropped")
	}

	var marker idempotency.Marker
	if a.cache != nil {
		marker = idempotency.NewRedisMarker(a.cache)
	}
	guard := idempotency.NewGuard(marker, a.repo, cfg.MessageDedupTTL, logger)

	engine := reservation.NewEngine(a.repo, oracle, provider.Links, a.scheduler, catalog, cfg.HoldTTL, cfg.PaymentLinkTimeout, logger)
	a.reconcile = payment.NewReconciler(a.repo, provider, messenger, a.scheduler, catalog, loc, logger)
	a.router = booking.NewRouter(a.repo, guard, oracle, engine, messenger, catalog, loc, logger,
		booking.WithWindow(cfg.BookingWindowDays))
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.StoreDriver {
	case "memory":
		a.logger.Warn("Using in-memory conversation store; state is lost on restart")
		a.repo = conversationRepo.NewMemoryConversationRepo()
		return nil
	case "", "mongo":
		if err := database.InitDB(); err != nil {
			return err
		}
		a.mongoRepo = conversationRepo.NewMongoConversationRepo()
		if err := a.mongoRepo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
		a.repo = a.mongoRepo
		return nil
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", a.cfg.StoreDriver)
	}
}

func (a *app) openCalendar(ctx context.Context, loc *time.Location) (*calendar.GoogleCalendar, error) {
	creds := calendar.Credentials{
		CredentialsFile: a.cfg.GoogleCredentialsFile,
		ClientID:        a.cfg.GoogleClientID,
		ClientSecret:    a.cfg.GoogleClientSecret,
		RefreshToken:    a.cfg.GoogleRefreshToken,
	}
	opts, err := creds.ClientOptions(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.NewGoogleCalendar(ctx, a.cfg.GoogleCalendarID, loc, a.logger, opts...)
}

func (a *app) handlerBundle() *handlers.HandlerBundle {
	wa := handlers.NewWhatsAppHandler(a.router, a.cfg.WhatsAppVerifyToken, a.cfg.InboundTimeout)
	pay := handlers.NewPaymentHandler(a.reconcile, a.cfg.PaymentWebhookTimeout)
	return handlers.NewHandlerBundle(wa, pay)
}

func (a *app) close(ctx context.Context) {
	if a.inline != nil {
		a.inline.Stop()
	}
	if a.queue != nil {
		if err := a.queue.Close(); err != nil {
			a.logger.Warn("Failed to close task client", zap.Error(err))
		}
	}
	if a.mongoRepo != nil {
		if err := database.Close(ctx); err != nil {
			a.logger.Warn("Failed to disconnect MongoDB", zap.Error(err))
		}
	}
}
