package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the engine's query patterns rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	bookingIndexes := []mongo.IndexModel{
		// Confirmation matcher: bounded cross-tenant lookup by phone.
		{
			Keys: bson.D{
				{Key: "customerPhone", Value: 1},
				{Key: "status", Value: 1},
				{Key: "isFollowUp", Value: 1},
				{Key: "appointmentAt", Value: 1},
			},
			Options: options.Index().SetName("phone_status_appointment_idx"),
		},
		// Availability and retention sweeps within one tenant.
		{
			Keys:    bson.D{{Key: fieldParent, Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("parent_date_idx"),
		},
		{
			Keys:    bson.D{{Key: fieldParent, Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("parent_status_idx"),
		},
	}
	if _, err := s.db.Collection("bookings").Indexes().CreateMany(ctx, bookingIndexes); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	archiveIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: fieldParent, Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("parent_date_idx"),
		},
	}
	if _, err := s.db.Collection("archivedServiceTypes").Indexes().CreateMany(ctx, archiveIndexes); err != nil {
		return fmt.Errorf("failed to create archive indexes: %w", err)
	}
	return nil
}
