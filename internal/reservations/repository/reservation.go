package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	reservationserrors "campuspark/internal/reservations/errors"
	"campuspark/pkg/config"
	mongotx "campuspark/pkg/db/mongo"
	"campuspark/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	RegularCollection = "Reservations"
	EventCollection   = "Event_reservations"
)

type ReservationRepository interface {
	Insert(ctx context.Context, r *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindAll(ctx context.Context, filter model.ReservationFilter, limit int, offset int64) ([]*model.Reservation, error)
	Count(ctx context.Context, filter model.ReservationFilter) (int64, error)
	UpdateWindow(ctx context.Context, r *model.Reservation) error
	UpdateStatus(ctx context.Context, r *model.Reservation) error
	UpdatePayment(ctx context.Context, r *model.Reservation) error

	// FindOverlapping returns blocking reservations of either kind that hold
	// one of spotIDs during w, excluding excludeID.
	FindOverlapping(ctx context.Context, spotIDs []string, w model.Window, excludeID string) ([]*model.Reservation, error)
	// HasBlocking reports whether any blocking reservation other than
	// excludeID still holds spotID at or after now. Holds whose window has
	// ended do not count.
	HasBlocking(ctx context.Context, spotID string, excludeID string, now time.Time) (bool, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoReservationRepository struct {
	cfg       *config.Config
	regular   *mongo.Collection
	event     *mongo.Collection
	txManager mongotx.TransactionManager
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:       cfg,
		regular:   db.Collection(RegularCollection),
		event:     db.Collection(EventCollection),
		txManager: mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoReservationRepository) collectionFor(kind model.ReservationKind) *mongo.Collection {
	if kind == model.KindEvent {
		return r.event
	}
	return r.regular
}

// collectionsFor returns the collections a filter spans, regular first.
func (r *mongoReservationRepository) collectionsFor(kind model.ReservationKind) []*mongo.Collection {
	switch kind {
	case model.KindRegular:
		return []*mongo.Collection{r.regular}
	case model.KindEvent:
		return []*mongo.Collection{r.event}
	}
	return []*mongo.Collection{r.regular, r.event}
}

func (r *mongoReservationRepository) Insert(ctx context.Context, res *model.Reservation) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if res.ID == "" {
		res.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.collectionFor(res.Kind).InsertOne(ctx, res); err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	for _, coll := range r.collectionsFor("") {
		var res model.Reservation
		err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&res)
		if err == nil {
			return &res, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to find reservation: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: %s", reservationserrors.ErrNotFound, id)
}

func buildFilter(filter model.ReservationFilter) bson.M {
	query := bson.M{}
	if filter.Requester != "" {
		query["requester"] = filter.Requester
	}
	return query
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// FindAll merges both collections newest first. Each collection is read up to
// offset+limit so the merged page is exact.
func (r *mongoReservationRepository) FindAll(ctx context.Context, filter model.ReservationFilter, limit int, offset int64) ([]*model.Reservation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	query := buildFilter(filter)
	window := offset + int64(limit)

	var merged []*model.Reservation
	for _, coll := range r.collectionsFor(filter.Kind) {
		opts := options.Find().SetSort(newestFirst).SetLimit(window)
		cursor, err := coll.Find(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to query reservations: %w", err)
		}

		var batch []*model.Reservation
		err = cursor.All(ctx, &batch)
		cursor.Close(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to decode reservations: %w", err)
		}
		merged = append(merged, batch...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].ID > merged[j].ID
		}
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	if offset >= int64(len(merged)) {
		return []*model.Reservation{}, nil
	}
	end := min(int64(len(merged)), window)
	return merged[offset:end], nil
}

func (r *mongoReservationRepository) Count(ctx context.Context, filter model.ReservationFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	query := buildFilter(filter)
	var total int64
	for _, coll := range r.collectionsFor(filter.Kind) {
		n, err := coll.CountDocuments(ctx, query)
		if err != nil {
			return 0, fmt.Errorf("failed to count reservations: %w", err)
		}
		total += n
	}
	return total, nil
}

func (r *mongoReservationRepository) update(ctx context.Context, res *model.Reservation, set bson.M) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set["updated_at"] = res.UpdatedAt
	result, err := r.collectionFor(res.Kind).UpdateOne(ctx, bson.M{"_id": res.ID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", reservationserrors.ErrNotFound, res.ID)
	}
	return nil
}

func (r *mongoReservationRepository) UpdateWindow(ctx context.Context, res *model.Reservation) error {
	return r.update(ctx, res, bson.M{
		"start_time":        res.StartTime,
		"end_time":          res.EndTime,
		"total_price_cents": res.TotalPrice,
	})
}

func (r *mongoReservationRepository) UpdateStatus(ctx context.Context, res *model.Reservation) error {
	return r.update(ctx, res, bson.M{
		"status":      res.Status,
		"admin_notes": res.AdminNotes,
	})
}

func (r *mongoReservationRepository) UpdatePayment(ctx context.Context, res *model.Reservation) error {
	return r.update(ctx, res, bson.M{
		"payment_status":     res.PaymentStatus,
		"payment_session_id": res.PaymentSessionID,
		"paid_at":            res.PaidAt,
	})
}

func (r *mongoReservationRepository) FindOverlapping(ctx context.Context, spotIDs []string, w model.Window, excludeID string) ([]*model.Reservation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	query := bson.M{
		"spot_ids":   bson.M{"$in": spotIDs},
		"status":     bson.M{"$in": model.BlockingStatuses},
		"start_time": bson.M{"$lt": w.End},
		"end_time":   bson.M{"$gt": w.Start},
	}
	if excludeID != "" {
		query["_id"] = bson.M{"$ne": excludeID}
	}

	for _, coll := range r.collectionsFor("") {
		cursor, err := coll.Find(ctx, query, options.Find().SetLimit(1))
		if err != nil {
			return nil, fmt.Errorf("failed to query overlapping reservations: %w", err)
		}

		var found []*model.Reservation
		err = cursor.All(ctx, &found)
		cursor.Close(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to decode overlapping reservations: %w", err)
		}
		if len(found) > 0 {
			return found, nil
		}
	}
	return nil, nil
}

func (r *mongoReservationRepository) HasBlocking(ctx context.Context, spotID string, excludeID string, now time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	query := bson.M{
		"spot_ids": spotID,
		"status":   bson.M{"$in": model.BlockingStatuses},
		"end_time": bson.M{"$gt": now},
		"_id":      bson.M{"$ne": excludeID},
	}
	for _, coll := range r.collectionsFor("") {
		n, err := coll.CountDocuments(ctx, query, options.Count().SetLimit(1))
		if err != nil {
			return false, fmt.Errorf("failed to check spot holds: %w", err)
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
