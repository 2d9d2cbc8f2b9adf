// FILE: database/repository/conversation/indexes.go
package conversationRepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	activePhoneIndex = "unique_active_phone"
	heldSlotIndex    = "unique_held_slot"
)

// EnsureIndexes creates the indexes the repository relies on for correctness.
// unique_held_slot is multikey over slots, so every slot of a multi-slot
// reservation is claimed individually.
func (r *MongoConversationRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys: bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName(activePhoneIndex).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{
			Keys: bson.D{
				{Key: "location", Value: 1},
				{Key: "activity", Value: 1},
				{Key: "date", Value: 1},
				{Key: "slots", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName(heldSlotIndex).
				SetPartialFilterExpression(bson.M{"held": true}),
		},
		{
			Keys:    bson.D{{Key: "draft.paymentLinkId", Value: 1}},
			Options: options.Index().SetName("payment_link_idx").SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "draft.paymentOrderId", Value: 1}},
			Options: options.Index().SetName("payment_order_idx").SetSparse(true),
		},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create conversation indexes: %w", err)
	}

	messageModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "messageId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_message_id"),
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().
				SetName("message_ttl").
				SetExpireAfterSeconds(int32(MessageLogTTL / time.Second)),
		},
	}
	if _, err := r.messages.Indexes().CreateMany(ctx, messageModels); err != nil {
		return fmt.Errorf("failed to create processed message indexes: %w", err)
	}
	return nil
}

// duplicateKeyError maps a unique-index violation to a repository error.
// It returns nil for any other error.
func duplicateKeyError(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, heldSlotIndex):
		return ErrSlotTaken
	case strings.Contains(msg, activePhoneIndex):
		return ErrDuplicateActive
	}
	return nil
}
