// Package messages holds the user-facing copy shared by the chat router and
// the payment reconciler.
package messages

import (
	"fmt"
	"strings"
	"time"

	"courtbook/models"
)

const (
	SlotTaken      = "⚠️ Sorry, this slot was just booked by someone else and is no longer available. Type *start* to choose another."
	SessionExpired = "⌛ That menu has expired. Type *start* to begin again."
	Cancelled      = "❌ Your booking has been cancelled. Type *start* whenever you want to book again."
	LinkFailed     = "😔 We could not create a payment link right now. Your slot is held for a few minutes; send any message to try again, or type *start* to begin again."
	TryAgain       = "Something went wrong on our side. Please try again in a moment."
	Help           = "Type *start* to make a booking, *cancel* to stop, or *membership* to see membership plans."
)

// FormatAmount renders minor units, e.g. 100000 → ₹1000 and 150 → ₹1.50.
func FormatAmount(minor int64, symbol string) string {
	if minor%100 == 0 {
		return fmt.Sprintf("%s%d", symbol, minor/100)
	}
	return fmt.Sprintf("%s%d.%02d", symbol, minor/100, minor%100)
}

// FormatDate renders an ISO date as "Sat, 01 Nov 2025". Unparseable input
// is returned unchanged.
func FormatDate(iso string, loc *time.Location) string {
	d, err := time.ParseInLocation("2006-01-02", iso, loc)
	if err != nil {
		return iso
	}
	return d.Format("Mon, 02 Jan 2006")
}

// SlotList joins slot labels one per line.
func SlotList(slots []string) string {
	return "• " + strings.Join(slots, "\n• ")
}

func titleOr(opt models.Option, ok bool, fallback string) string {
	if ok {
		return opt.Title
	}
	return fallback
}

// Summary lists the reservation details of conv, from the draft when the
// reservation fields are not set yet.
func Summary(conv *models.Conversation, catalog models.Catalog, loc *time.Location) string {
	activity, location, date, slots := conv.Activity, conv.Location, conv.Date, conv.Slots
	if conv.TimeSlot == "" {
		activity, location, date, slots = conv.Draft.Activity, conv.Draft.Location, conv.Draft.Date, conv.Draft.Slots
	}
	name := conv.Name
	if name == "" {
		name = conv.Draft.Name
	}

	a, aok := catalog.Activity(activity)
	l, lok := catalog.Location(location)

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", name)
	fmt.Fprintf(&b, "Activity: %s\n", titleOr(a, aok, activity))
	fmt.Fprintf(&b, "Location: %s\n", titleOr(l, lok, location))
	fmt.Fprintf(&b, "Date: %s\n", FormatDate(date, loc))
	fmt.Fprintf(&b, "Slots:\n%s\n", SlotList(slots))
	if len(conv.Addons) > 0 {
		names := make([]string, 0, len(conv.Addons))
		for _, ad := range conv.Addons {
			names = append(names, fmt.Sprintf("%s (%s)", ad.Name, FormatAmount(ad.Price, catalog.Symbol)))
		}
		fmt.Fprintf(&b, "Add-ons: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "Total: %s", FormatAmount(conv.TotalAmount, catalog.Symbol))
	return b.String()
}

// Confirmation is sent once a payment is applied.
func Confirmation(conv *models.Conversation, catalog models.Catalog, loc *time.Location) string {
	return "✅ *Booking Confirmed!*\n\n" + Summary(conv, catalog, loc) + "\n\nThank you! See you on the court."
}
