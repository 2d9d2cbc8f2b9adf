package booking

import (
	"context"
	"strings"
	"unicode/utf8"

	"courtbook/models"
	"courtbook/services/messages"
	"courtbook/services/reservation"
	"courtbook/utils"

	"go.uber.org/zap"
)

const minNameLength = 2

func (r *Router) onActivity(ctx context.Context, conv *models.Conversation, key string) error {
	if _, ok := r.catalog.Activity(key); !ok {
		r.sendText(ctx, conv.Phone, promptNotOnMenu)
		return nil
	}
	conv.Draft.Activity = key
	conv.Step = models.StepSelectingLocation
	if err := r.repo.Save(ctx, conv); err != nil {
		return err
	}
	r.sendMenu(ctx, conv.Phone, locationMenu(r.catalog, key))
	return nil
}

func (r *Router) onLocation(ctx context.Context, conv *models.Conversation, key string) error {
	if _, ok := r.catalog.Location(key); !ok {
		r.sendText(ctx, conv.Phone, promptNotOnMenu)
		return nil
	}
	conv.Draft.Location = key

	dates := r.oracle.CandidateDates(ctx, conv.Scope(), r.windowDays)
	if len(dates) == 0 {
		r.sendText(ctx, conv.Phone, "😔 There are no open slots in the coming days. Type *start* to try another activity or location.")
		return nil
	}
	options, counts := dateOptions(dates)
	conv.Draft.DateOptions = options
	conv.Step = models.StepSelectingDate
	if err := r.repo.Save(ctx, conv); err != nil {
		return err
	}
	r.sendMenu(ctx, conv.Phone, dateMenu(options, counts, r.loc))
	return nil
}

func (r *Router) onDate(ctx context.Context, conv *models.Conversation, idx string) error {
	date, ok := conv.Draft.DateOptions[idx]
	if !ok {
		r.sendText(ctx, conv.Phone, messages.SessionExpired)
		return nil
	}
	conv.Draft.Date = date
	conv.Step = models.StepSelectingTimePeriod
	if err := r.repo.Save(ctx, conv); err != nil {
		return err
	}
	r.sendMenu(ctx, conv.Phone, periodMenu(r.catalog, date, r.loc))
	return nil
}

func (r *Router) onPeriod(ctx context.Context, conv *models.Conversation, key string) error {
	if conv.Draft.Date == "" {
		r.sendText(ctx, conv.Phone, messages.SessionExpired)
		return nil
	}
	period, ok := r.catalog.Period(key)
	if !ok {
		r.sendText(ctx, conv.Phone, promptInvalidPeriod)
		return nil
	}

	offered, err := r.oracle.SlotsInPeriod(ctx, conv.Scope(), period)
	if err != nil {
		return err
	}
	labels := make([]string, 0, len(offered))
	for _, l := range offered {
		if !contains(conv.Draft.Slots, l) {
			labels = append(labels, l)
		}
	}
	if len(labels) == 0 {
		r.sendText(ctx, conv.Phone, noSlotsText(period))
		return nil
	}

	conv.Draft.Period = key
	conv.Draft.SlotOptions = slotOptions(labels)
	if conv.Step.IsAdditional() {
		conv.Step = models.StepSelectingTimeSlotAdditional
	} else {
		conv.Step = models.StepSelectingTimeSlot
	}
	if err := r.repo.Save(ctx, conv); err != nil {
		return err
	}
	r.sendMenu(ctx, conv.Phone, slotMenu(period, conv.Draft.SlotOptions))
	return nil
}

// onSlot re-checks the chosen slot before accepting it. The check is
// advisory; the reservation engine has the final say.
func (r *Router) onSlot(ctx context.Context, conv *models.Conversation, idx string, log *zap.Logger) error {
	label, ok := conv.Draft.SlotOptions[idx]
	if !ok || conv.Draft.Date == "" {
		r.sendText(ctx, conv.Phone, messages.SessionExpired)
		return nil
	}
	if contains(conv.Draft.Slots, label) {
		r.sendText(ctx, conv.Phone, promptSlotRepeated)
		return nil
	}

	available, _, err := r.oracle.IsAvailable(ctx, conv.Scope(), []string{label})
	if err != nil {
		return err
	}
	if !available {
		log.Info("Chosen slot no longer available", zap.String("slot", label))
		r.sendText(ctx, conv.Phone, promptSlotGone)
		return nil
	}

	conv.Draft.Slots = append(conv.Draft.Slots, label)
	conv.Draft.SlotOptions = nil
	atLimit := r.catalog.MaxSlots > 0 && len(conv.Draft.Slots) >= r.catalog.MaxSlots
	if atLimit {
		conv.Step = models.StepCollectingName
	} else {
		conv.Step = models.StepAskingAdditionalSlot
	}
	if err := r.repo.Save(ctx, conv); err != nil {
		return err
	}

	if atLimit {
		r.sendText(ctx, conv.Phone, maxSlotsText(label, r.catalog.MaxSlots))
		return nil
	}
	r.sendMenu(ctx, conv.Phone, addSlotMenu(slotAddedText(label, conv.Draft.Slots)))
	return nil
}

func (r *Router) onAddSlot(ctx context.Context, conv *models.Conversation, answer string) error {
	switch answer {
	case "yes":
		conv.Step = models.StepSelectingTimePeriodAdditional
		if err := r.repo.Save(ctx, conv); err != nil {
			return err
		}
		r.sendMenu(ctx, conv.Phone, periodMenu(r.catalog, conv.Draft.Date, r.loc))
	case "no":
		conv.Step = models.StepCollectingName
		if err := r.repo.Save(ctx, conv); err != nil {
			return err
		}
		r.sendText(ctx, conv.Phone, promptName)
	default:
		r.sendText(ctx, conv.Phone, promptNotOnMenu)
	}
	return nil
}

func (r *Router) onName(ctx context.Context, conv *models.Conversation, input string) error {
	name := strings.Join(strings.Fields(input), " ")
	if utf8.RuneCountInString(name) < minNameLength {
		r.sendText(ctx, conv.Phone, promptInvalidName)
		return nil
	}
	conv.Draft.Name = name
	if len(r.catalog.Addons) == 0 {
		return r.showSummary(ctx, conv)
	}
	conv.Step = models.StepSelectingAddons
	if err := r.repo.Save(ctx, conv); err != nil {
		return err
	}
	r.sendMenu(ctx, conv.Phone, addonMenu(r.catalog, "Thanks, "+name+"! Would you like to add anything to your booking?"))
	return nil
}

func (r *Router) onAddon(ctx context.Context, conv *models.Conversation, key string) error {
	if key == "none" {
		return r.showSummary(ctx, conv)
	}
	addon, ok := r.catalog.Addon(key)
	if !ok {
		r.sendText(ctx, conv.Phone, promptInvalidAddon)
		return nil
	}
	for _, a := range conv.Addons {
		if a.Key == addon.Key {
			r.sendMenu(ctx, conv.Phone, addonMenu(r.catalog, addonRepeatedText(addon.Name)))
			return nil
		}
	}
	conv.Addons = append(conv.Addons, addon)
	if err := r.repo.Save(ctx, conv); err != nil {
		return err
	}
	r.sendMenu(ctx, conv.Phone, addonMenu(r.catalog, "Added: "+addon.Name+"\n\nSelect another add-on or choose None to continue."))
	return nil
}

func (r *Router) showSummary(ctx context.Context, conv *models.Conversation) error {
	conv.TotalAmount = reservation.CalculateTotal(r.catalog, len(conv.Draft.Slots), conv.Addons)
	conv.Step = models.StepConfirmingBooking
	if err := r.repo.Save(ctx, conv); err != nil {
		return err
	}
	r.sendMenu(ctx, conv.Phone, confirmMenu(summaryText(messages.Summary(conv, r.catalog, r.loc))))
	return nil
}

func (r *Router) onConfirm(ctx context.Context, conv *models.Conversation, answer string, log *zap.Logger) error {
	switch answer {
	case "no":
		if err := r.repo.Discard(ctx, conv); err != nil {
			return err
		}
		r.sendText(ctx, conv.Phone, messages.Cancelled)
		return nil
	case "yes":
	default:
		r.sendText(ctx, conv.Phone, promptNotOnMenu)
		return nil
	}

	res, err := r.engine.Reserve(ctx, conv)
	if utils.IsKind(err, utils.KindValidation) || utils.IsKind(err, utils.KindSessionExpired) {
		log.Warn("Draft cannot be reserved", zap.Error(err))
		if err := r.repo.Discard(ctx, conv); err != nil {
			return err
		}
		r.sendText(ctx, conv.Phone, messages.SessionExpired)
		return nil
	}
	if err != nil {
		return err
	}

	if res.Conflict {
		log.Info("Reservation lost to another booking", zap.String("slot", res.Slot))
		if err := r.repo.Discard(ctx, conv); err != nil {
			return err
		}
		r.sendText(ctx, conv.Phone, messages.SlotTaken)
		return nil
	}
	if res.LinkErr != nil {
		log.Error("Payment link unavailable", zap.Error(res.LinkErr))
		r.sendText(ctx, conv.Phone, messages.LinkFailed)
		return nil
	}
	amount := messages.FormatAmount(conv.TotalAmount, r.catalog.Symbol)
	r.sendLink(ctx, conv.Phone, paymentText(amount), res.Link.URL, "Pay Now")
	return nil
}

// remindPayment re-sends the pay link of a pending reservation, creating it
// if the first attempt failed.
func (r *Router) remindPayment(ctx context.Context, conv *models.Conversation, log *zap.Logger) error {
	link, err := r.engine.EnsureLink(ctx, conv)
	if err != nil {
		log.Warn("Payment link still unavailable", zap.Error(err))
		r.sendText(ctx, conv.Phone, messages.LinkFailed)
		return nil
	}
	amount := messages.FormatAmount(conv.TotalAmount, r.catalog.Symbol)
	r.sendLink(ctx, conv.Phone, paymentReminderText(amount), link.URL, "Pay Now")
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
