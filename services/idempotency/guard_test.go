package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	conversationRepo "courtbook/database/repository/conversation"
	"courtbook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapMarker struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (m *mapMarker) MarkSeen(_ context.Context, key string, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func TestSeenBefore(t *testing.T) {
	g := NewGuard(&mapMarker{}, conversationRepo.NewMemoryConversationRepo(), time.Hour, zap.NewNop())
	ctx := context.Background()

	assert.False(t, g.SeenBefore(ctx, "wamid.1"))
	assert.True(t, g.SeenBefore(ctx, "wamid.1"))
	assert.False(t, g.SeenBefore(ctx, "wamid.2"))
	assert.False(t, g.SeenBefore(ctx, ""))
}

func TestSeenBeforeFailsOpen(t *testing.T) {
	g := NewGuard(&mapMarker{err: errors.New("dial tcp: refused")}, conversationRepo.NewMemoryConversationRepo(), time.Hour, zap.NewNop())

	assert.False(t, g.SeenBefore(context.Background(), "wamid.1"))
	assert.False(t, g.SeenBefore(context.Background(), "wamid.1"))
}

func TestSeenBeforeWithoutMarker(t *testing.T) {
	g := NewGuard(nil, conversationRepo.NewMemoryConversationRepo(), time.Hour, zap.NewNop())
	assert.False(t, g.SeenBefore(context.Background(), "wamid.1"))
}

func TestAdmitOnlyOncePerMessage(t *testing.T) {
	ctx := context.Background()
	repo := conversationRepo.NewMemoryConversationRepo()
	conv := models.NewConversation("919000000001", models.StepSelectingActivity, time.Now())
	require.NoError(t, repo.Create(ctx, conv))

	g := NewGuard(nil, repo, time.Hour, zap.NewNop())

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			copyConv := *conv
			ok, err := g.Admit(ctx, &copyConv, "wamid.dup")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, admitted)
}

func TestAdmitWithoutMessageID(t *testing.T) {
	g := NewGuard(nil, conversationRepo.NewMemoryConversationRepo(), time.Hour, zap.NewNop())
	ok, err := g.Admit(context.Background(), &models.Conversation{ID: "missing"}, "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdmitMissingRecord(t *testing.T) {
	g := NewGuard(nil, conversationRepo.NewMemoryConversationRepo(), time.Hour, zap.NewNop())
	ok, err := g.Admit(context.Background(), &models.Conversation{ID: "missing"}, "wamid.1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdmitNewAfterDiscard(t *testing.T) {
	ctx := context.Background()
	repo := conversationRepo.NewMemoryConversationRepo()
	conv := models.NewConversation("919000000001", models.StepConfirmingBooking, time.Now())
	require.NoError(t, repo.Create(ctx, conv))

	g := NewGuard(nil, repo, time.Hour, zap.NewNop())
	ok, err := g.Admit(ctx, conv, "wamid.no")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.Discard(ctx, conv))

	ok, err = g.AdmitNew(ctx, conv.Phone, "wamid.no")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.AdmitNew(ctx, conv.Phone, "wamid.next")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.AdmitNew(ctx, conv.Phone, "wamid.next")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = g.AdmitNew(ctx, conv.Phone, "")
	require.NoError(t, err)
	assert.True(t, ok)
}
