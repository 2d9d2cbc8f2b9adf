// File: database/repository/conversation/reservations.go
package conversationRepo

import (
	"context"
	"fmt"
	"time"

	"courtbook/models"

	"go.mongodb.org/mongo-driver/bson"
)

func (r *MongoConversationRepo) MarkPaid(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "paid": false},
		bson.M{
			"$set": bson.M{
				"paid":      true,
				"step":      models.StepCompleted,
				"held":      true,
				"updatedAt": time.Now().UTC(),
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		if dup := duplicateKeyError(err); dup != nil {
			return false, dup
		}
		return false, fmt.Errorf("error marking reservation %s paid: %w", id, err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *MongoConversationRepo) MarkConflict(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "paid": false, "step": bson.M{"$ne": models.StepConflict}},
		bson.M{
			"$set": bson.M{
				"step":      models.StepConflict,
				"held":      false,
				"updatedAt": time.Now().UTC(),
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return false, fmt.Errorf("error marking reservation %s conflicted: %w", id, err)
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoConversationRepo) ReleaseHold(ctx context.Context, id string, heldAt time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "paid": false, "held": true, "heldAt": heldAt},
		bson.M{
			"$set": bson.M{"held": false, "updatedAt": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return false, fmt.Errorf("error releasing hold on %s: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoConversationRepo) SetCalendarEvent(ctx context.Context, id, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"calendarEventId": eventID, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("error setting calendar event on %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoConversationRepo) UpdateSlotLabels(ctx context.Context, id, timeSlot string, additional []string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	slots := append([]string{timeSlot}, additional...)
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{
			"$set": bson.M{
				"timeSlot":            timeSlot,
				"additionalTimeSlots": additional,
				"slots":               slots,
				"updatedAt":           time.Now().UTC(),
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		if dup := duplicateKeyError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("error updating slot labels on %s: %w", id, err)
	}
	return nil
}
