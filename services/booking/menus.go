package booking

import (
	"sort"
	"strconv"
	"time"

	"courtbook/models"
	"courtbook/services/availability"
	"courtbook/services/messages"
	"courtbook/services/notification"
	"courtbook/services/slots"
)

const membershipValue = "membership"

// menu is an interactive prompt. Row ids are menu token ids, so the same
// rows serve for rendering and for translating positional replies.
type menu struct {
	body     string
	header   string
	button   string
	buttons  bool
	sections []models.Section
}

func (m menu) rows() []models.Row {
	var rows []models.Row
	for _, s := range m.sections {
		rows = append(rows, s.Rows...)
	}
	return rows
}

// at resolves a "section-row" coordinate to the token of that row.
func (m menu) at(section, row int) (models.MenuToken, bool) {
	if section < 0 || section >= len(m.sections) {
		return models.MenuToken{}, false
	}
	rows := m.sections[section].Rows
	if row < 0 || row >= len(rows) {
		return models.MenuToken{}, false
	}
	return models.ParseMenuToken(rows[row].ID)
}

func tokenRow(kind models.TokenKind, value, title, description string) models.Row {
	return models.Row{ID: models.NewToken(kind, value).ID(), Title: title, Description: description}
}

// single wraps rows in one section and picks buttons when they fit.
func single(body, header, title string, rows []models.Row) menu {
	if len(rows) > notification.MaxListRows {
		rows = rows[:notification.MaxListRows]
	}
	fits := len(rows) <= notification.MaxButtons
	for _, r := range rows {
		if len([]rune(r.Title)) > notification.MaxButtonTitle {
			fits = false
		}
	}
	return menu{
		body:     body,
		header:   header,
		button:   "View options",
		buttons:  fits,
		sections: []models.Section{{Title: title, Rows: rows}},
	}
}

func activityMenu(catalog models.Catalog) menu {
	var rows []models.Row
	for _, a := range catalog.Activities {
		rows = append(rows, tokenRow(models.KindActivity, a.Key, a.Title, a.Description))
	}
	if catalog.MembershipURL != "" {
		rows = append(rows, tokenRow(models.KindMenu, membershipValue, "Memberships", "Plans and benefits"))
	}
	return single(welcomeText(catalog.Brand), "", "Activities", rows)
}

func locationMenu(catalog models.Catalog, activity string) menu {
	var rows []models.Row
	for _, l := range catalog.Locations {
		rows = append(rows, tokenRow(models.KindLocation, l.Key, l.Title, l.Description))
	}
	body := "Where would you like to play?"
	if a, ok := catalog.Activity(activity); ok {
		body = a.Title + " it is! Where would you like to play?"
	}
	m := single(body, "Select Location", "Locations", rows)
	m.buttons = false
	return m
}

// dateMenu lists dates under the indexes they are stored with in
// draft.DateOptions. counts is optional.
func dateMenu(options map[string]string, counts map[string]int, loc *time.Location) menu {
	var rows []models.Row
	for _, idx := range indexOrder(options) {
		date := options[idx]
		title := date
		if d, err := time.ParseInLocation("2006-01-02", date, loc); err == nil {
			title = d.Format("Mon, 02 Jan")
		}
		desc := ""
		if n, ok := counts[date]; ok {
			desc = strconv.Itoa(n) + " slots available"
		}
		rows = append(rows, tokenRow(models.KindDate, idx, title, desc))
	}
	m := single("Pick a date for your booking:", "Select Date", "Available Dates", rows)
	m.buttons = false
	return m
}

func dateOptions(dates []availability.DateOption) (map[string]string, map[string]int) {
	if len(dates) > notification.MaxListRows {
		dates = dates[:notification.MaxListRows]
	}
	options := make(map[string]string, len(dates))
	counts := make(map[string]int, len(dates))
	for i, d := range dates {
		options[strconv.Itoa(i)] = d.Date
		counts[d.Date] = d.Available
	}
	return options, counts
}

func periodMenu(catalog models.Catalog, date string, loc *time.Location) menu {
	var rows []models.Row
	for _, p := range catalog.Periods {
		window := slots.Range{Start: p.Start, End: p.End}
		rows = append(rows, tokenRow(models.KindPeriod, p.Key, p.Title, window.String()))
	}
	m := single("Choose a time of day for "+messages.FormatDate(date, loc)+":", "Select Time Period", "Time Periods", rows)
	m.buttons = false
	return m
}

func slotMenu(period models.Period, options map[string]string) menu {
	var rows []models.Row
	for _, idx := range indexOrder(options) {
		rows = append(rows, tokenRow(models.KindSlot, idx, options[idx], "Available"))
	}
	m := single("Pick a time slot:", "Select Time Slot", period.Title, rows)
	m.buttons = false
	return m
}

func slotOptions(labels []string) map[string]string {
	if len(labels) > notification.MaxListRows {
		labels = labels[:notification.MaxListRows]
	}
	options := make(map[string]string, len(labels))
	for i, l := range labels {
		options[strconv.Itoa(i)] = l
	}
	return options
}

func addSlotMenu(body string) menu {
	return single(body, "", "", []models.Row{
		tokenRow(models.KindAddSlot, "yes", "Yes, add another", ""),
		tokenRow(models.KindAddSlot, "no", "No, continue", ""),
	})
}

func addonMenu(catalog models.Catalog, body string) menu {
	var rows []models.Row
	for _, a := range catalog.Addons {
		desc := messages.FormatAmount(a.Price, catalog.Symbol)
		if a.Description != "" {
			desc += " (" + a.Description + ")"
		}
		rows = append(rows, tokenRow(models.KindAddon, a.Key, a.Name, desc))
	}
	rows = append(rows, tokenRow(models.KindAddon, "none", "None", "Continue to summary"))
	m := single(body, "Select Add-ons", "Additional Services", rows)
	m.buttons = false
	return m
}

func confirmMenu(body string) menu {
	return single(body, "", "", []models.Row{
		tokenRow(models.KindConfirm, "yes", "Confirm & Pay", ""),
		tokenRow(models.KindConfirm, "no", "Cancel", ""),
	})
}

// indexOrder returns the keys of an index map ("0", "1", ...) in numeric order.
func indexOrder(options map[string]string) []string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	return keys
}

// expectedKinds lists the token kinds each step accepts.
var expectedKinds = map[models.Step][]models.TokenKind{
	models.StepSelectingActivity:             {models.KindActivity, models.KindMenu},
	models.StepSelectingLocation:             {models.KindLocation},
	models.StepSelectingDate:                 {models.KindDate},
	models.StepSelectingTimePeriod:           {models.KindPeriod},
	models.StepSelectingTimePeriodAdditional: {models.KindPeriod},
	models.StepSelectingTimeSlot:             {models.KindSlot},
	models.StepSelectingTimeSlotAdditional:   {models.KindSlot},
	models.StepAskingAdditionalSlot:          {models.KindAddSlot},
	models.StepSelectingAddons:               {models.KindAddon},
	models.StepConfirmingBooking:             {models.KindConfirm},
}

func expects(step models.Step, kind models.TokenKind) bool {
	for _, k := range expectedKinds[step] {
		if k == kind {
			return true
		}
	}
	return false
}

// stepMenu rebuilds the menu the current step was rendered with, from the
// stored draft. ok is false for steps without a menu.
func (r *Router) stepMenu(conv *models.Conversation) (menu, bool) {
	switch conv.Step {
	case models.StepSelectingActivity:
		return activityMenu(r.catalog), true
	case models.StepSelectingLocation:
		return locationMenu(r.catalog, conv.Draft.Activity), true
	case models.StepSelectingDate:
		return dateMenu(conv.Draft.DateOptions, nil, r.loc), true
	case models.StepSelectingTimePeriod, models.StepSelectingTimePeriodAdditional:
		return periodMenu(r.catalog, conv.Draft.Date, r.loc), true
	case models.StepSelectingTimeSlot, models.StepSelectingTimeSlotAdditional:
		period, _ := r.catalog.Period(conv.Draft.Period)
		return slotMenu(period, conv.Draft.SlotOptions), true
	case models.StepAskingAdditionalSlot:
		return addSlotMenu(""), true
	case models.StepSelectingAddons:
		return addonMenu(r.catalog, ""), true
	case models.StepConfirmingBooking:
		return confirmMenu(""), true
	}
	return menu{}, false
}
