package booking

import (
	"fmt"
	"strings"

	"courtbook/models"
)

const (
	promptName          = "Great! Please enter your full name:"
	promptInvalidName   = "Please enter a valid full name (at least 2 characters):"
	promptNotOnMenu     = "That option is not on the menu. Please pick one from the list above."
	promptSlotGone      = "Sorry, this slot is no longer available. Please select a different time slot."
	promptSlotRepeated  = "You've already selected this slot. Please choose a different one."
	promptInvalidPeriod = "Invalid time period selected."
	promptInvalidAddon  = "Invalid selection. Please try again."
	promptCompleted     = "✅ Your booking is already confirmed. Type *start* to make another booking."
	promptMembership    = "Explore our exclusive membership plans and benefits!"
)

func welcomeText(brand string) string {
	return fmt.Sprintf("Welcome to %s! 🏸\n\nWhat would you like to book today?", brand)
}

func slotAddedText(label string, slots []string) string {
	if len(slots) <= 1 {
		return fmt.Sprintf("Slot added: %s\n\nWould you like to add an additional slot?", label)
	}
	return fmt.Sprintf("Slot added: %s\n\nYour slots:\n%s\n\nWould you like to add another slot?", label, numbered(slots))
}

func maxSlotsText(label string, limit int) string {
	return fmt.Sprintf("Slot added: %s\n\nYou have reached the limit of %d slots per booking.\n\n%s", label, limit, promptName)
}

func noSlotsText(period models.Period) string {
	return fmt.Sprintf("No available slots for %s. Please choose another time period.", period.Title)
}

func addonRepeatedText(name string) string {
	return fmt.Sprintf("%s is already added. Please select another add-on or choose None.", name)
}

func paymentText(amount string) string {
	return fmt.Sprintf("*Payment Required*\n\nAmount: %s\n\nPlease complete your payment to confirm the booking.\n\nWe'll confirm automatically once payment is received! ✅", amount)
}

func paymentReminderText(amount string) string {
	return fmt.Sprintf("⏳ Your booking is awaiting payment of %s.\n\nTap below to pay, or type *cancel* to drop it.", amount)
}

func summaryText(body string) string {
	return "*BOOKING SUMMARY*\n\n" + body + "\n\nPlease confirm your booking:"
}

func numbered(items []string) string {
	lines := make([]string, len(items))
	for i, s := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, s)
	}
	return strings.Join(lines, "\n")
}

func withURL(body, url string) string {
	return body + "\n\n" + url
}
