// File: database/repository/conversation/interface.go
package conversationRepo

import (
	"context"
	"errors"
	"time"

	"courtbook/database"
	"courtbook/models"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound        = errors.New("conversation not found")
	ErrStaleRecord     = errors.New("conversation was modified concurrently")
	ErrSlotTaken       = errors.New("slot is already held by another reservation")
	ErrDuplicateActive = errors.New("phone already has an active conversation")
)

// ConversationRepository persists one active conversation per phone and
// enforces that a held slot belongs to at most one reservation.
//
// Writers that replace or update a record compare and bump Version; a caller
// holding an older copy gets ErrStaleRecord.
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error
	GetActiveByPhone(ctx context.Context, phone string) (*models.Conversation, error)
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	// GetByPaymentReference matches a stored payment link id or order id.
	GetByPaymentReference(ctx context.Context, ref string) (*models.Conversation, error)

	// Save writes conv if it is unpaid and at the same version.
	Save(ctx context.Context, conv *models.Conversation) error
	// MarkProcessed records messageID as the last processed message.
	// It returns false when messageID was already the last processed one.
	MarkProcessed(ctx context.Context, conv *models.Conversation, messageID string) (bool, error)
	// Discard deletes an unpaid record, or archives a paid one. The record's
	// last processed message id is remembered with RecordMessage so a
	// redelivery is still dropped once the record is gone.
	Discard(ctx context.Context, conv *models.Conversation) error
	// RecordMessage remembers messageID for phone. It returns false when the
	// id was already remembered.
	RecordMessage(ctx context.Context, phone, messageID string) (bool, error)

	HeldSlots(ctx context.Context, scope models.SlotScope) ([]string, error)
	FindPaidConflict(ctx context.Context, conv *models.Conversation) (*models.Conversation, error)
	// MarkPaid flips an unpaid record to paid and completed, re-claiming its
	// slots. It returns false if the record was already paid.
	MarkPaid(ctx context.Context, id string) (bool, error)
	// MarkConflict moves an unpaid record to the conflict step and frees its
	// slots. It returns false if the record was paid or already conflicted.
	MarkConflict(ctx context.Context, id string) (bool, error)
	// ReleaseHold frees the slots of an unpaid record if it is still on the
	// hold taken at heldAt.
	ReleaseHold(ctx context.Context, id string, heldAt time.Time) (bool, error)
	SetCalendarEvent(ctx context.Context, id, eventID string) error

	ListReserved(ctx context.Context) ([]models.Conversation, error)
	UpdateSlotLabels(ctx context.Context, id, timeSlot string, additional []string) error
}

// MongoConversationRepo is the production ConversationRepository.
type MongoConversationRepo struct {
	coll     *mongo.Collection
	messages *mongo.Collection
}

// NewMongoConversationRepo constructs a MongoDB-backed ConversationRepository.
func NewMongoConversationRepo() *MongoConversationRepo {
	return &MongoConversationRepo{
		coll:     database.Database().Collection("conversations"),
		messages: database.Database().Collection("processed_messages"),
	}
}

var (
	_ ConversationRepository = (*MongoConversationRepo)(nil)
	_ ConversationRepository = (*MemoryConversationRepo)(nil)
)
