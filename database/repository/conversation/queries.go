// File: database/repository/conversation/queries.go
package conversationRepo

import (
	"context"
	"fmt"
	"time"

	"courtbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *MongoConversationRepo) GetByPaymentReference(ctx context.Context, ref string) (*models.Conversation, error) {
	if ref == "" {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"$or": []bson.M{
		{"draft.paymentLinkId": ref},
		{"draft.paymentOrderId": ref},
	}})
}

func (r *MongoConversationRepo) HeldSlots(ctx context.Context, scope models.SlotScope) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"location": scope.Location,
		"activity": scope.Activity,
		"date":     scope.Date,
		"held":     true,
	}
	opts := options.Find().SetProjection(bson.M{"slots": 1})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching held slots for %s: %w", scope.Date, err)
	}
	defer cursor.Close(ctx)

	var held []string
	for cursor.Next(ctx) {
		var doc struct {
			Slots []string `bson:"slots"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding held slots: %w", err)
		}
		held = append(held, doc.Slots...)
	}
	return held, cursor.Err()
}

func (r *MongoConversationRepo) FindPaidConflict(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	if len(conv.Slots) == 0 {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{
		"id":       bson.M{"$ne": conv.ID},
		"paid":     true,
		"location": conv.Location,
		"activity": conv.Activity,
		"date":     conv.Date,
		"slots":    bson.M{"$in": conv.Slots},
	})
}

func (r *MongoConversationRepo) ListReserved(ctx context.Context) ([]models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"timeSlot": bson.M{"$exists": true, "$ne": ""}})
	if err != nil {
		return nil, fmt.Errorf("error listing reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Conversation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding reservations: %w", err)
	}
	return out, nil
}
