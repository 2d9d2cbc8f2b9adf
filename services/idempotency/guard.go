package idempotency

import (
	"context"
	"errors"
	"time"

	conversationRepo "courtbook/database/repository/conversation"
	"courtbook/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const seenKeyPrefix = "msg:seen:"

// Marker remembers message ids for a while. MarkSeen returns true the first
// time a key is marked.
type Marker interface {
	MarkSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type RedisMarker struct {
	client *redis.Client
}

func NewRedisMarker(client *redis.Client) *RedisMarker {
	return &RedisMarker{client: client}
}

func (m *RedisMarker) MarkSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return m.client.SetNX(ctx, seenKeyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// Guard drops redelivered messages. The Redis marker is only a fast path;
// the conversation record's last processed id is authoritative.
type Guard struct {
	marker Marker
	repo   conversationRepo.ConversationRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewGuard builds a Guard. marker may be nil.
func NewGuard(marker Marker, repo conversationRepo.ConversationRepository, ttl time.Duration, logger *zap.Logger) *Guard {
	return &Guard{marker: marker, repo: repo, ttl: ttl, logger: logger}
}

// SeenBefore reports whether messageID was already marked within the TTL.
// Marker failures are logged and treated as unseen.
func (g *Guard) SeenBefore(ctx context.Context, messageID string) bool {
	if g.marker == nil || messageID == "" {
		return false
	}
	first, err := g.marker.MarkSeen(ctx, messageID, g.ttl)
	if err != nil {
		g.logger.Warn("Dedupe marker unavailable", zap.String("messageId", messageID), zap.Error(err))
		return false
	}
	return !first
}

// Admit records messageID on conv and reports whether this delivery should be
// processed. Messages without an id are always admitted.
func (g *Guard) Admit(ctx context.Context, conv *models.Conversation, messageID string) (bool, error) {
	if messageID == "" {
		return true, nil
	}
	ok, err := g.repo.MarkProcessed(ctx, conv, messageID)
	if errors.Is(err, conversationRepo.ErrNotFound) {
		// Record vanished under us (restart from another delivery).
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !ok {
		g.logger.Info("Duplicate message dropped",
			zap.String("phone", conv.Phone), zap.String("messageId", messageID))
	}
	return ok, nil
}

// AdmitNew is Admit for a phone with no active conversation. The id is checked
// against the repository's message log, which also holds the last ids of
// discarded conversations.
func (g *Guard) AdmitNew(ctx context.Context, phone, messageID string) (bool, error) {
	if messageID == "" {
		return true, nil
	}
	ok, err := g.repo.RecordMessage(ctx, phone, messageID)
	if err != nil {
		return false, err
	}
	if !ok {
		g.logger.Info("Duplicate message dropped",
			zap.String("phone", phone), zap.String("messageId", messageID))
	}
	return ok, nil
}
