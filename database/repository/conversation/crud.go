// File: database/repository/conversation/crud.go
package conversationRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const markProcessedAttempts = 3

func (r *MongoConversationRepo) Create(ctx context.Context, conv *models.Conversation) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, conv); err != nil {
		if dup := duplicateKeyError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("error creating conversation for %s: %w", conv.Phone, err)
	}
	return nil
}

func (r *MongoConversationRepo) GetActiveByPhone(ctx context.Context, phone string) (*models.Conversation, error) {
	return r.findOne(ctx, bson.M{"phone": phone, "active": true})
}

func (r *MongoConversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *MongoConversationRepo) findOne(ctx context.Context, filter bson.M) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var conv models.Conversation
	err := r.coll.FindOne(ctx, filter).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching conversation: %w", err)
	}
	return &conv, nil
}

func (r *MongoConversationRepo) Save(ctx context.Context, conv *models.Conversation) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	next := *conv
	next.Version = conv.Version + 1
	next.UpdatedAt = time.Now().UTC()

	filter := bson.M{"id": conv.ID, "version": conv.Version, "paid": false}
	res, err := r.coll.ReplaceOne(ctx, filter, next)
	if err != nil {
		if dup := duplicateKeyError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("error saving conversation %s: %w", conv.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrStaleRecord
	}
	*conv = next
	return nil
}

func (r *MongoConversationRepo) MarkProcessed(ctx context.Context, conv *models.Conversation, messageID string) (bool, error) {
	for attempt := 0; attempt < markProcessedAttempts; attempt++ {
		now := time.Now().UTC()
		filter := bson.M{
			"id":                  conv.ID,
			"version":             conv.Version,
			"draft.lastMessageId": bson.M{"$ne": messageID},
		}
		update := bson.M{
			"$set": bson.M{"draft.lastMessageId": messageID, "updatedAt": now},
			"$inc": bson.M{"version": 1},
		}

		updateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		res, err := r.coll.UpdateOne(updateCtx, filter, update)
		cancel()
		if err != nil {
			return false, fmt.Errorf("error marking message %s processed: %w", messageID, err)
		}
		if res.MatchedCount == 1 {
			conv.Draft.LastMessageID = messageID
			conv.Version++
			conv.UpdatedAt = now
			return true, nil
		}

		// Either a duplicate or another writer bumped the version.
		fresh, err := r.GetByID(ctx, conv.ID)
		if err != nil {
			return false, err
		}
		if fresh.Draft.LastMessageID == messageID {
			return false, nil
		}
		*conv = *fresh
	}
	return false, ErrStaleRecord
}

func (r *MongoConversationRepo) Discard(ctx context.Context, conv *models.Conversation) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.RecordMessage(ctx, conv.Phone, conv.Draft.LastMessageID); err != nil {
		return err
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"id": conv.ID, "paid": false})
	if err != nil {
		return fmt.Errorf("error deleting conversation %s: %w", conv.ID, err)
	}
	if res.DeletedCount == 1 {
		return nil
	}

	// Paid records are kept for the uniqueness guarantee; archive instead.
	_, err = r.coll.UpdateOne(ctx,
		bson.M{"id": conv.ID},
		bson.M{
			"$set": bson.M{"active": false, "updatedAt": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("error archiving conversation %s: %w", conv.ID, err)
	}
	return nil
}
