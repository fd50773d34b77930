package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	lotserrors "campuspark/internal/lots/errors"
	"campuspark/pkg/config"
	mongotx "campuspark/pkg/db/mongo"
	"campuspark/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	LotsCollection  = "Lots"
	SpotsCollection = "Spots"
)

type LotRepository interface {
	CreateLot(ctx context.Context, lot *model.Lot) error
	FindLotByID(ctx context.Context, id string) (*model.Lot, error)
	FindLotByName(ctx context.Context, name string) (*model.Lot, error)
	FindAllLots(ctx context.Context, limit int, offset int64) ([]*model.Lot, error)
	CountLots(ctx context.Context) (int64, error)

	CreateSpots(ctx context.Context, lotID string, spots []*model.Spot) error
	FindSpotByID(ctx context.Context, id string) (*model.Spot, error)
	FindSpotsByIDs(ctx context.Context, ids []string) ([]*model.Spot, error)
	FindSpotsByLot(ctx context.Context, lotID string) ([]*model.Spot, error)
	SetReserved(ctx context.Context, spotIDs []string, reserved bool) error

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoLotRepository struct {
	cfg       *config.Config
	lots      *mongo.Collection
	spots     *mongo.Collection
	txManager mongotx.TransactionManager
}

func NewMongoLotRepository(cfg *config.Config) LotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLotRepository{
		cfg:       cfg,
		lots:      db.Collection(LotsCollection),
		spots:     db.Collection(SpotsCollection),
		txManager: mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func validID(id string) bool {
	return primitive.IsValidObjectID(id)
}

func (r *mongoLotRepository) CreateLot(ctx context.Context, lot *model.Lot) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if lot.ID == "" {
		lot.ID = primitive.NewObjectID().Hex()
	}
	if lot.SpotIDs == nil {
		lot.SpotIDs = []string{}
	}
	lot.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.lots.InsertOne(ctx, lot); err != nil {
		return fmt.Errorf("failed to create lot: %w", err)
	}
	return nil
}

func (r *mongoLotRepository) FindLotByID(ctx context.Context, id string) (*model.Lot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", lotserrors.ErrInvalidID, id)
	}

	var lot model.Lot
	if err := r.lots.FindOne(ctx, bson.M{"_id": id}).Decode(&lot); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", lotserrors.ErrLotNotFound, id)
		}
		return nil, fmt.Errorf("failed to find lot: %w", err)
	}
	return &lot, nil
}

func (r *mongoLotRepository) FindLotByName(ctx context.Context, name string) (*model.Lot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var lot model.Lot
	if err := r.lots.FindOne(ctx, bson.M{"name": name}).Decode(&lot); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", lotserrors.ErrLotNotFound, name)
		}
		return nil, fmt.Errorf("failed to find lot by name: %w", err)
	}
	return &lot, nil
}

func (r *mongoLotRepository) FindAllLots(ctx context.Context, limit int, offset int64) ([]*model.Lot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.lots.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer cursor.Close(ctx)

	lots := []*model.Lot{}
	if err = cursor.All(ctx, &lots); err != nil {
		return nil, fmt.Errorf("failed to decode lots: %w", err)
	}
	return lots, nil
}

func (r *mongoLotRepository) CountLots(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.lots.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count lots: %w", err)
	}
	return count, nil
}

// CreateSpots inserts the spots and appends their ids to the lot's spot list.
// Run it inside a transaction so the lot never references missing spots.
func (r *mongoLotRepository) CreateSpots(ctx context.Context, lotID string, spots []*model.Spot) error {
	if len(spots) == 0 {
		return nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, 0, len(spots))
	ids := make([]string, 0, len(spots))
	for _, spot := range spots {
		if spot.ID == "" {
			spot.ID = primitive.NewObjectID().Hex()
		}
		spot.LotID = lotID
		spot.CreatedAt = now
		docs = append(docs, spot)
		ids = append(ids, spot.ID)
	}

	if _, err := r.spots.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to create spots: %w", err)
	}

	result, err := r.lots.UpdateOne(ctx,
		bson.M{"_id": lotID},
		bson.M{"$push": bson.M{"spot_ids": bson.M{"$each": ids}}},
	)
	if err != nil {
		return fmt.Errorf("failed to link spots to lot: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", lotserrors.ErrLotNotFound, lotID)
	}
	return nil
}

func (r *mongoLotRepository) FindSpotByID(ctx context.Context, id string) (*model.Spot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", lotserrors.ErrInvalidID, id)
	}

	var spot model.Spot
	if err := r.spots.FindOne(ctx, bson.M{"_id": id}).Decode(&spot); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", lotserrors.ErrSpotNotFound, id)
		}
		return nil, fmt.Errorf("failed to find spot: %w", err)
	}
	return &spot, nil
}

// FindSpotsByIDs returns the spots that exist among ids. Callers compare the
// result length to detect unknown ids.
func (r *mongoLotRepository) FindSpotsByIDs(ctx context.Context, ids []string) ([]*model.Spot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.spots.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query spots: %w", err)
	}
	defer cursor.Close(ctx)

	spots := []*model.Spot{}
	if err = cursor.All(ctx, &spots); err != nil {
		return nil, fmt.Errorf("failed to decode spots: %w", err)
	}
	return spots, nil
}

func (r *mongoLotRepository) FindSpotsByLot(ctx context.Context, lotID string) ([]*model.Spot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "code", Value: 1}})
	cursor, err := r.spots.Find(ctx, bson.M{"lot_id": lotID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query spots by lot: %w", err)
	}
	defer cursor.Close(ctx)

	spots := []*model.Spot{}
	if err = cursor.All(ctx, &spots); err != nil {
		return nil, fmt.Errorf("failed to decode spots: %w", err)
	}
	return spots, nil
}

func (r *mongoLotRepository) SetReserved(ctx context.Context, spotIDs []string, reserved bool) error {
	if len(spotIDs) == 0 {
		return nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.spots.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": spotIDs}},
		bson.M{"$set": bson.M{"is_reserved": reserved}},
	)
	if err != nil {
		return fmt.Errorf("failed to update spot reservation flags: %w", err)
	}
	return nil
}

func (r *mongoLotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
