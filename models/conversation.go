package models

import (
	"time"

	"github.com/google/uuid"
)

// Step drives routing of inbound messages for a conversation.
type Step string

const (
	StepWelcome                       Step = "welcome"
	StepSelectingActivity             Step = "selecting_activity"
	StepSelectingLocation             Step = "selecting_location"
	StepSelectingDate                 Step = "selecting_date"
	StepSelectingTimePeriod           Step = "selecting_time_period"
	StepSelectingTimeSlot             Step = "selecting_time_slot"
	StepAskingAdditionalSlot          Step = "asking_additional_slot"
	StepSelectingTimePeriodAdditional Step = "selecting_time_period_additional"
	StepSelectingTimeSlotAdditional   Step = "selecting_time_slot_additional"
	StepCollectingName                Step = "collecting_name"
	StepSelectingAddons               Step = "selecting_addons"
	StepConfirmingBooking             Step = "confirming_booking"
	StepPaymentPending                Step = "payment_pending"
	StepCompleted                     Step = "completed"
	StepConflict                      Step = "conflict"
)

// IsAdditional reports whether the step belongs to the extra-slot loop.
func (s Step) IsAdditional() bool {
	return s == StepSelectingTimePeriodAdditional || s == StepSelectingTimeSlotAdditional
}

// Draft holds in-progress selections. Option maps are keyed by the
// menu row index they were rendered at.
type Draft struct {
	Activity       string            `bson:"activity,omitempty" json:"activity,omitempty"`
	Location       string            `bson:"location,omitempty" json:"location,omitempty"`
	Date           string            `bson:"date,omitempty" json:"date,omitempty"`
	Period         string            `bson:"period,omitempty" json:"period,omitempty"`
	DateOptions    map[string]string `bson:"dateOptions,omitempty" json:"dateOptions,omitempty"`
	SlotOptions    map[string]string `bson:"slotOptions,omitempty" json:"slotOptions,omitempty"`
	Slots          []string          `bson:"slots,omitempty" json:"slots,omitempty"`
	Name           string            `bson:"name,omitempty" json:"name,omitempty"`
	LastMessageID  string            `bson:"lastMessageId,omitempty" json:"lastMessageId,omitempty"`
	PaymentLinkID  string            `bson:"paymentLinkId,omitempty" json:"paymentLinkId,omitempty"`
	PaymentLinkURL string            `bson:"paymentLinkUrl,omitempty" json:"paymentLinkUrl,omitempty"`
	PaymentOrderID string            `bson:"paymentOrderId,omitempty" json:"paymentOrderId,omitempty"`
}

// Conversation is the per-phone booking record. Once a slot is claimed the
// reservation fields (Activity..AdditionalTimeSlots) and Slots are set and
// Held stays true until the hold is released, lost, or the record is discarded.
type Conversation struct {
	ID     string `bson:"id" json:"id"`
	Phone  string `bson:"phone" json:"phone"`
	Active bool   `bson:"active" json:"active"`
	Step   Step   `bson:"step" json:"step"`
	Draft  Draft  `bson:"draft" json:"draft"`

	Name            string  `bson:"name,omitempty" json:"name,omitempty"`
	Addons          []Addon `bson:"addons,omitempty" json:"addons,omitempty"`
	TotalAmount     int64   `bson:"totalAmount" json:"totalAmount"`
	Paid            bool    `bson:"paid" json:"paid"`
	CalendarEventID string  `bson:"calendarEventId,omitempty" json:"calendarEventId,omitempty"`

	Activity            string    `bson:"activity,omitempty" json:"activity,omitempty"`
	Location            string    `bson:"location,omitempty" json:"location,omitempty"`
	Date                string    `bson:"date,omitempty" json:"date,omitempty"`
	TimeSlot            string    `bson:"timeSlot,omitempty" json:"timeSlot,omitempty"`
	AdditionalTimeSlots []string  `bson:"additionalTimeSlots,omitempty" json:"additionalTimeSlots,omitempty"`
	Slots               []string  `bson:"slots,omitempty" json:"slots,omitempty"`
	Held                bool      `bson:"held" json:"held"`
	HeldAt              time.Time `bson:"heldAt,omitempty" json:"heldAt,omitempty"`

	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewConversation returns a fresh active record at the given step.
func NewConversation(phone string, step Step, now time.Time) *Conversation {
	return &Conversation{
		ID:        uuid.New().String(),
		Phone:     phone,
		Active:    true,
		Step:      step,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Scope is the slot scope of the draft.
func (c *Conversation) Scope() SlotScope {
	return SlotScope{Location: c.Draft.Location, Activity: c.Draft.Activity, Date: c.Draft.Date}
}

// ReservedScope is the slot scope of the persisted reservation.
func (c *Conversation) ReservedScope() SlotScope {
	return SlotScope{Location: c.Location, Activity: c.Activity, Date: c.Date}
}

// SlotScope identifies the physical resource a slot label belongs to.
type SlotScope struct {
	Location string `json:"location"`
	Activity string `json:"activity"`
	Date     string `json:"date"`
}
