// File: database/repository/conversation/messages.go
package conversationRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// MessageLogTTL is how long processed message ids outlive their conversation.
const MessageLogTTL = 7 * 24 * time.Hour

type processedMessage struct {
	MessageID string    `bson:"messageId"`
	Phone     string    `bson:"phone"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (r *MongoConversationRepo) RecordMessage(ctx context.Context, phone, messageID string) (bool, error) {
	if messageID == "" {
		return true, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.messages.InsertOne(ctx, processedMessage{
		MessageID: messageID,
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error recording message %s: %w", messageID, err)
	}
	return true, nil
}
