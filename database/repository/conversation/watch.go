// File: database/repository/conversation/watch.go
package conversationRepo

import (
	"context"
	"fmt"

	"courtbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReservationChange is one change-stream event on a record that carries a reservation.
type ReservationChange struct {
	Operation    string
	Conversation models.Conversation
}

// Watch streams writes to records holding a reservation until ctx is done.
// Requires a replica set.
func (r *MongoConversationRepo) Watch(ctx context.Context, fn func(ReservationChange)) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType":         bson.M{"$in": []string{"insert", "replace", "update"}},
			"fullDocument.timeSlot": bson.M{"$exists": true},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := r.coll.Watch(ctx, pipeline, opts)
	if err != nil {
		return fmt.Errorf("error opening change stream: %w", err)
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var event struct {
			OperationType string              `bson:"operationType"`
			FullDocument  models.Conversation `bson:"fullDocument"`
		}
		if err := stream.Decode(&event); err != nil {
			return fmt.Errorf("error decoding change event: %w", err)
		}
		fn(ReservationChange{Operation: event.OperationType, Conversation: event.FullDocument})
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("change stream failed: %w", err)
	}
	return nil
}
