// File: database/repository/conversation/memory.go
package conversationRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"courtbook/models"
)

// MemoryConversationRepo keeps records in process. It enforces the same
// unique constraints as the Mongo indexes and backs STORE_DRIVER=memory.
type MemoryConversationRepo struct {
	mu       sync.Mutex
	byID     map[string]*models.Conversation
	messages map[string]time.Time
}

func NewMemoryConversationRepo() *MemoryConversationRepo {
	return &MemoryConversationRepo{
		byID:     make(map[string]*models.Conversation),
		messages: make(map[string]time.Time),
	}
}

func (r *MemoryConversationRepo) Create(_ context.Context, conv *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[conv.ID]; exists {
		return ErrDuplicateActive
	}
	if err := r.checkUnique(conv); err != nil {
		return err
	}
	r.byID[conv.ID] = clone(conv)
	return nil
}

func (r *MemoryConversationRepo) GetActiveByPhone(_ context.Context, phone string) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if c.Active && c.Phone == phone {
			return clone(c), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryConversationRepo) GetByID(_ context.Context, id string) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(c), nil
}

func (r *MemoryConversationRepo) GetByPaymentReference(_ context.Context, ref string) (*models.Conversation, error) {
	if ref == "" {
		return nil, ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if c.Draft.PaymentLinkID == ref || c.Draft.PaymentOrderID == ref {
			return clone(c), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryConversationRepo) Save(_ context.Context, conv *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[conv.ID]
	if !ok || current.Version != conv.Version || current.Paid {
		return ErrStaleRecord
	}
	next := clone(conv)
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	if err := r.checkUnique(next); err != nil {
		return err
	}
	r.byID[conv.ID] = next
	*conv = *clone(next)
	return nil
}

func (r *MemoryConversationRepo) MarkProcessed(_ context.Context, conv *models.Conversation, messageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[conv.ID]
	if !ok {
		return false, ErrNotFound
	}
	if current.Draft.LastMessageID == messageID {
		return false, nil
	}
	current.Draft.LastMessageID = messageID
	current.Version++
	current.UpdatedAt = time.Now().UTC()
	*conv = *clone(current)
	return true, nil
}

func (r *MemoryConversationRepo) Discard(_ context.Context, conv *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recordMessage(conv.Draft.LastMessageID, time.Now().UTC())

	current, ok := r.byID[conv.ID]
	if !ok {
		return nil
	}
	if !current.Paid {
		delete(r.byID, conv.ID)
		return nil
	}
	current.Active = false
	current.Version++
	return nil
}

func (r *MemoryConversationRepo) RecordMessage(_ context.Context, _ string, messageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recordMessage(messageID, time.Now().UTC()), nil
}

// recordMessage forgets entries older than MessageLogTTL. Caller holds mu.
func (r *MemoryConversationRepo) recordMessage(messageID string, now time.Time) bool {
	if messageID == "" {
		return true
	}
	for id, at := range r.messages {
		if now.Sub(at) > MessageLogTTL {
			delete(r.messages, id)
		}
	}
	if _, seen := r.messages[messageID]; seen {
		return false
	}
	r.messages[messageID] = now
	return true
}

func (r *MemoryConversationRepo) HeldSlots(_ context.Context, scope models.SlotScope) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var held []string
	for _, c := range r.byID {
		if c.Held && c.ReservedScope() == scope {
			held = append(held, c.Slots...)
		}
	}
	sort.Strings(held)
	return held, nil
}

func (r *MemoryConversationRepo) FindPaidConflict(_ context.Context, conv *models.Conversation) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.byID {
		if c.ID == conv.ID || !c.Paid || c.ReservedScope() != conv.ReservedScope() {
			continue
		}
		if sharesSlot(c.Slots, conv.Slots) {
			return clone(c), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryConversationRepo) MarkPaid(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if current.Paid {
		return false, nil
	}
	next := clone(current)
	next.Paid = true
	next.Step = models.StepCompleted
	next.Held = true
	next.Version++
	if err := r.checkUnique(next); err != nil {
		return false, err
	}
	r.byID[id] = next
	return true, nil
}

func (r *MemoryConversationRepo) MarkConflict(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok || current.Paid || current.Step == models.StepConflict {
		return false, nil
	}
	current.Step = models.StepConflict
	current.Held = false
	current.Version++
	return true, nil
}

func (r *MemoryConversationRepo) ReleaseHold(_ context.Context, id string, heldAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok || current.Paid || !current.Held || !current.HeldAt.Equal(heldAt) {
		return false, nil
	}
	current.Held = false
	current.Version++
	return true, nil
}

func (r *MemoryConversationRepo) SetCalendarEvent(_ context.Context, id, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	current.CalendarEventID = eventID
	return nil
}

func (r *MemoryConversationRepo) ListReserved(_ context.Context) ([]models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Conversation
	for _, c := range r.byID {
		if c.TimeSlot != "" {
			out = append(out, *clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryConversationRepo) UpdateSlotLabels(_ context.Context, id, timeSlot string, additional []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	next := clone(current)
	next.TimeSlot = timeSlot
	next.AdditionalTimeSlots = append([]string(nil), additional...)
	next.Slots = append([]string{timeSlot}, additional...)
	next.Version++
	if err := r.checkUnique(next); err != nil {
		return err
	}
	r.byID[id] = next
	return nil
}

// checkUnique mirrors unique_active_phone and unique_held_slot. Caller holds mu.
func (r *MemoryConversationRepo) checkUnique(conv *models.Conversation) error {
	for id, other := range r.byID {
		if id == conv.ID {
			continue
		}
		if conv.Active && other.Active && other.Phone == conv.Phone {
			return ErrDuplicateActive
		}
		if conv.Held && other.Held && other.ReservedScope() == conv.ReservedScope() && sharesSlot(other.Slots, conv.Slots) {
			return ErrSlotTaken
		}
	}
	return nil
}

func sharesSlot(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func clone(c *models.Conversation) *models.Conversation {
	out := *c
	out.Addons = append([]models.Addon(nil), c.Addons...)
	out.AdditionalTimeSlots = append([]string(nil), c.AdditionalTimeSlots...)
	out.Slots = append([]string(nil), c.Slots...)
	out.Draft.Slots = append([]string(nil), c.Draft.Slots...)
	out.Draft.DateOptions = cloneMap(c.Draft.DateOptions)
	out.Draft.SlotOptions = cloneMap(c.Draft.SlotOptions)
	return &out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
