package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"campuspark/pkg/config"
	mongotx "campuspark/pkg/db/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const LocksCollection = "Reservation_locks"

// LockRepository serializes writers per spot. Touching a spot's lock document
// inside a transaction makes any concurrent transaction on the same spot
// fail with a write conflict, which the driver retries against the committed
// state.
type LockRepository interface {
	Lock(ctx context.Context, spotIDs []string) error
}

type mongoLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewLockRepository(cfg *config.Config) LockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLockRepository{
		cfg:        cfg,
		collection: db.Collection(LocksCollection),
	}
}

// Lock must be called with a transaction context. Spots are touched in
// sorted order.
func (r *mongoLockRepository) Lock(ctx context.Context, spotIDs []string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	ids := slices.Clone(spotIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	now := time.Now().UTC()
	for _, id := range ids {
		_, err := r.collection.UpdateOne(ctx,
			bson.M{"_id": id},
			bson.M{
				"$inc": bson.M{"version": 1},
				"$set": bson.M{"updated_at": now},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("failed to lock spot %s: %w", id, err)
		}
	}
	return nil
}
