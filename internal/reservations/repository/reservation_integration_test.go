//go:build integration

package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"campuspark/pkg/client"
	"campuspark/pkg/config"
	"campuspark/pkg/logger"
	"campuspark/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// These tests need a replica set (transactions), e.g.
// MONGO_URI="mongodb://localhost:27017/?replicaSet=rs0" go test -tags integration ./internal/reservations/repository/
const testDatabase = "campuspark_test"

func integrationConfig(t *testing.T) *config.Config {
	t.Helper()

	uri := os.Getenv(config.EnvMongoURI)
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	log := logger.New(logger.Config{Service: "integration-test", Level: logger.ERROR})
	c := client.NewClient()
	c.SetMongo(log, uri, 10*time.Second)

	cfg := &config.Config{
		MongoDatabaseName: testDatabase,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		Log:               log,
		Client:            c,
	}

	db := c.Mongo.Database(testDatabase)
	ctx := context.Background()
	for _, name := range []string{RegularCollection, EventCollection, LocksCollection} {
		_, err := db.Collection(name).DeleteMany(ctx, bson.M{})
		require.NoError(t, err)
	}
	t.Cleanup(func() { c.GracefulShutdown(log) })
	return cfg
}

func reservation(kind model.ReservationKind, spots []string, start time.Time, d time.Duration, created time.Time) *model.Reservation {
	return &model.Reservation{
		Kind:          kind,
		SpotIDs:       spots,
		Requester:     "alice",
		StartTime:     start,
		EndTime:       start.Add(d),
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentUnpaid,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestMongoReservationRepository(t *testing.T) {
	cfg := integrationConfig(t)
	repo := NewMongoReservationRepository(cfg)
	ctx := context.Background()
	base := time.Date(2030, 1, 10, 9, 0, 0, 0, time.UTC)

	regular := reservation(model.KindRegular, []string{"spot-a"}, base, 2*time.Hour, base.Add(-2*time.Hour))
	event := reservation(model.KindEvent, []string{"spot-b", "spot-c"}, base, 3*time.Hour, base.Add(-time.Hour))
	event.EventName = "Open Day"
	require.NoError(t, repo.Insert(ctx, regular))
	require.NoError(t, repo.Insert(ctx, event))

	t.Run("find by id spans both collections", func(t *testing.T) {
		got, err := repo.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, model.KindEvent, got.Kind)
		assert.Equal(t, "Open Day", got.EventName)
	})

	t.Run("overlap is half-open", func(t *testing.T) {
		found, err := repo.FindOverlapping(ctx, []string{"spot-a"}, model.Window{Start: base.Add(2 * time.Hour), End: base.Add(3 * time.Hour)}, "")
		require.NoError(t, err)
		assert.Empty(t, found)

		found, err = repo.FindOverlapping(ctx, []string{"spot-x", "spot-c"}, model.Window{Start: base.Add(time.Hour), End: base.Add(4 * time.Hour)}, "")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, event.ID, found[0].ID)

		found, err = repo.FindOverlapping(ctx, []string{"spot-c"}, model.Window{Start: base, End: base.Add(time.Hour)}, event.ID)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("listing is newest first", func(t *testing.T) {
		all, err := repo.FindAll(ctx, model.ReservationFilter{Requester: "alice"}, 10, 0)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, event.ID, all[0].ID)

		n, err := repo.Count(ctx, model.ReservationFilter{Kind: model.KindRegular})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("ended window no longer blocks", func(t *testing.T) {
		held, err := repo.HasBlocking(ctx, "spot-b", "", base)
		require.NoError(t, err)
		assert.True(t, held)

		held, err = repo.HasBlocking(ctx, "spot-b", "", base.Add(3*time.Hour))
		require.NoError(t, err)
		assert.False(t, held)
	})

	t.Run("cancelled no longer blocks", func(t *testing.T) {
		regular.Status = model.StatusCancelled
		require.NoError(t, repo.UpdateStatus(ctx, regular))

		held, err := repo.HasBlocking(ctx, "spot-a", "", base)
		require.NoError(t, err)
		assert.False(t, held)
	})
}

func TestLockSerializesConcurrentCreates(t *testing.T) {
	cfg := integrationConfig(t)
	repo := NewMongoReservationRepository(cfg)
	locks := NewLockRepository(cfg)
	start := time.Date(2030, 2, 1, 9, 0, 0, 0, time.UTC)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.ExecuteTransaction(context.Background(), func(txCtx context.Context) error {
				if err := locks.Lock(txCtx, []string{"spot-z"}); err != nil {
					return err
				}
				found, err := repo.FindOverlapping(txCtx, []string{"spot-z"}, model.Window{Start: start, End: start.Add(time.Hour)}, "")
				if err != nil || len(found) > 0 {
					return err
				}
				r := reservation(model.KindRegular, []string{"spot-z"}, start, time.Hour, time.Now().UTC())
				r.LotID = "lot-z"
				return repo.Insert(txCtx, r)
			})
		}()
	}
	wg.Wait()

	n, err := repo.Count(context.Background(), model.ReservationFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
