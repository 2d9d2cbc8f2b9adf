package conversationRepo

import (
	"context"
	"testing"
	"time"

	"courtbook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reservedConversation(phone string, slots ...string) *models.Conversation {
	conv := models.NewConversation(phone, models.StepPaymentPending, time.Now())
	conv.Location = "main"
	conv.Activity = "pickleball"
	conv.Date = "2025-11-01"
	conv.TimeSlot = slots[0]
	conv.AdditionalTimeSlots = slots[1:]
	conv.Slots = slots
	conv.Held = true
	conv.HeldAt = time.Date(2025, 10, 30, 10, 0, 0, 0, time.UTC)
	return conv
}

func TestMemoryRepoOneActivePerPhone(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepo()

	first := models.NewConversation("919000000001", models.StepWelcome, time.Now())
	require.NoError(t, repo.Create(ctx, first))

	second := models.NewConversation("919000000001", models.StepWelcome, time.Now())
	assert.ErrorIs(t, repo.Create(ctx, second), ErrDuplicateActive)

	got, err := repo.GetActiveByPhone(ctx, "919000000001")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestMemoryRepoHeldSlotIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepo()

	a := reservedConversation("919000000001", "09:00 - 09:30", "09:30 - 10:00")
	require.NoError(t, repo.Create(ctx, a))

	b := reservedConversation("919000000002", "09:30 - 10:00")
	assert.ErrorIs(t, repo.Create(ctx, b), ErrSlotTaken)

	c := reservedConversation("919000000003", "10:00 - 10:30")
	require.NoError(t, repo.Create(ctx, c))

	held, err := repo.HeldSlots(ctx, a.ReservedScope())
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00 - 09:30", "09:30 - 10:00", "10:00 - 10:30"}, held)
}

func TestMemoryRepoSaveRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepo()

	conv := models.NewConversation("919000000001", models.StepSelectingActivity, time.Now())
	require.NoError(t, repo.Create(ctx, conv))

	stale := *conv
	conv.Step = models.StepSelectingLocation
	require.NoError(t, repo.Save(ctx, conv))
	assert.Equal(t, int64(1), conv.Version)

	stale.Step = models.StepSelectingDate
	assert.ErrorIs(t, repo.Save(ctx, &stale), ErrStaleRecord)
}

func TestMemoryRepoMarkProcessedOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepo()

	conv := models.NewConversation("919000000001", models.StepWelcome, time.Now())
	require.NoError(t, repo.Create(ctx, conv))

	ok, err := repo.MarkProcessed(ctx, conv, "wamid.1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkProcessed(ctx, conv, "wamid.1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.MarkProcessed(ctx, conv, "wamid.2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "wamid.2", conv.Draft.LastMessageID)
}

func TestMemoryRepoMarkPaidClaimsSlot(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepo()

	winner := reservedConversation("919000000001", "09:00 - 09:30")
	require.NoError(t, repo.Create(ctx, winner))

	// A released hold lets a second reservation take the slot; paying the
	// first one afterwards must fail.
	released, err := repo.ReleaseHold(ctx, winner.ID, winner.HeldAt)
	require.NoError(t, err)
	require.True(t, released)

	other := reservedConversation("919000000002", "09:00 - 09:30")
	require.NoError(t, repo.Create(ctx, other))

	_, err = repo.MarkPaid(ctx, winner.ID)
	assert.ErrorIs(t, err, ErrSlotTaken)

	ok, err := repo.MarkPaid(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkPaid(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryRepoReleaseHoldMatchesHold(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepo()

	conv := reservedConversation("919000000001", "09:00 - 09:30")
	require.NoError(t, repo.Create(ctx, conv))

	released, err := repo.ReleaseHold(ctx, conv.ID, conv.HeldAt.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, released)

	released, err = repo.ReleaseHold(ctx, conv.ID, conv.HeldAt)
	require.NoError(t, err)
	assert.True(t, released)
}

func TestMemoryRepoDiscardArchivesPaid(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepo()

	conv := reservedConversation("919000000001", "09:00 - 09:30")
	require.NoError(t, repo.Create(ctx, conv))
	_, err := repo.MarkPaid(ctx, conv.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Discard(ctx, conv))

	_, err = repo.GetActiveByPhone(ctx, conv.Phone)
	assert.ErrorIs(t, err, ErrNotFound)

	kept, err := repo.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, kept.Paid)
	assert.False(t, kept.Active)

	fresh := models.NewConversation(conv.Phone, models.StepWelcome, time.Now())
	assert.NoError(t, repo.Create(ctx, fresh))
}

func TestMemoryRepoFindPaidConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepo()

	paid := reservedConversation("919000000001", "09:00 - 09:30")
	require.NoError(t, repo.Create(ctx, paid))
	_, err := repo.MarkPaid(ctx, paid.ID)
	require.NoError(t, err)

	pending := reservedConversation("919000000002", "08:30 - 09:00", "09:00 - 09:30")
	pending.Held = false

	found, err := repo.FindPaidConflict(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, paid.ID, found.ID)

	_, err = repo.FindPaidConflict(ctx, paid)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepoMarkConflictOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepo()

	conv := reservedConversation("919000000001", "09:00 - 09:30")
	require.NoError(t, repo.Create(ctx, conv))

	changed, err := repo.MarkConflict(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkConflict(ctx, conv.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := repo.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepConflict, stored.Step)
	assert.False(t, stored.Held)
}

func TestMemoryRepoDiscardRemembersLastMessage(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepo()

	conv := models.NewConversation("919000000001", models.StepSelectingDate, time.Now())
	require.NoError(t, repo.Create(ctx, conv))
	ok, err := repo.MarkProcessed(ctx, conv, "wamid.cancel")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.Discard(ctx, conv))

	ok, err = repo.RecordMessage(ctx, conv.Phone, "wamid.cancel")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.RecordMessage(ctx, conv.Phone, "wamid.other")
	require.NoError(t, err)
	assert.True(t, ok)
}
