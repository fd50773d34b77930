package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lotserrors "campuspark/internal/lots/errors"
	"campuspark/internal/lots/repository"
	"campuspark/pkg/cache"
	"campuspark/pkg/config"
	apperrors "campuspark/pkg/errors"
	"campuspark/pkg/model"
	"campuspark/pkg/sanitizer"
)

const (
	DefaultSpotType  = "regular"
	DefaultSpotLevel = 1
)

type LotService interface {
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Lot, int64, error)
	GetLot(ctx context.Context, id string) (*model.Lot, error)
	ListSpots(ctx context.Context, lotID string) ([]*model.Spot, error)
	GetSpot(ctx context.Context, id string) (*model.Spot, error)

	// Provision creates a lot and its spots. A lot whose name already exists
	// is returned unchanged with created=false.
	Provision(ctx context.Context, p *model.LotProvision) (lot *model.Lot, created bool, err error)
}

type lotService struct {
	repo  repository.LotRepository
	cache *cache.SpotCache
	cfg   *config.Config
}

func NewLotService(repo repository.LotRepository, spotCache *cache.SpotCache, cfg *config.Config) LotService {
	return &lotService{
		repo:  repo,
		cache: spotCache,
		cfg:   cfg,
	}
}

func (s *lotService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Lot, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var lots []*model.Lot
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountLots(ctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count lots", "error", err)
			errCount = apperrors.StoreUnavailable("Count lots", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		lots, err = s.repo.FindAllLots(ctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list lots", "limit", limit, "offset", offset, "error", err)
			errFind = apperrors.StoreUnavailable("List lots", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return lots, count, nil
}

func (s *lotService) GetLot(ctx context.Context, id string) (*model.Lot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Lot ID cannot be empty")
	}

	lot, err := s.repo.FindLotByID(ctx, id)
	if err != nil {
		return nil, s.translate("Get lot", "Lot", id, err)
	}
	return lot, nil
}

func (s *lotService) ListSpots(ctx context.Context, lotID string) ([]*model.Spot, error) {
	if lotID == "" {
		return nil, apperrors.InvalidInput("Lot ID cannot be empty")
	}

	if spots, ok := s.cache.GetSpots(ctx, lotID); ok {
		return spots, nil
	}

	if _, err := s.repo.FindLotByID(ctx, lotID); err != nil {
		return nil, s.translate("List spots", "Lot", lotID, err)
	}

	spots, err := s.repo.FindSpotsByLot(ctx, lotID)
	if err != nil {
		return nil, s.translate("List spots", "Lot", lotID, err)
	}

	s.cache.SetSpots(ctx, lotID, spots)
	return spots, nil
}

func (s *lotService) GetSpot(ctx context.Context, id string) (*model.Spot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Spot ID cannot be empty")
	}

	spot, err := s.repo.FindSpotByID(ctx, id)
	if err != nil {
		return nil, s.translate("Get spot", "Spot", id, err)
	}
	return spot, nil
}

func (s *lotService) Provision(ctx context.Context, p *model.LotProvision) (*model.Lot, bool, error) {
	lot := newLot(p)

	existing, err := s.repo.FindLotByName(ctx, lot.Name)
	if err == nil {
		s.cfg.Log.Info("Lot already provisioned", "id", existing.ID, "name", existing.Name)
		return existing, false, nil
	}
	if !errors.Is(err, lotserrors.ErrLotNotFound) {
		return nil, false, apperrors.StoreUnavailable("Provision lot", err)
	}

	spots := GenerateSpots(lot.Name, spotCount(p), p.SpotType)

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		candidate := *lot
		if err := s.repo.CreateLot(txCtx, &candidate); err != nil {
			return err
		}
		if err := s.repo.CreateSpots(txCtx, candidate.ID, spots); err != nil {
			return err
		}
		*lot = candidate
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to provision lot", "name", lot.Name, "error", err)
		return nil, false, apperrors.StoreUnavailable("Provision lot", err)
	}

	for _, spot := range spots {
		lot.SpotIDs = append(lot.SpotIDs, spot.ID)
	}
	s.cache.Invalidate(ctx, lot.ID)

	s.cfg.Log.Info("Lot provisioned",
		"id", lot.ID,
		"name", lot.Name,
		"spots", len(spots),
	)
	return lot, true, nil
}

func newLot(p *model.LotProvision) *model.Lot {
	lot := &model.Lot{
		Name:     sanitizer.TrimAndNormalize(p.Name),
		Location: sanitizer.TrimAndNormalize(p.Location),
		Capacity: p.Capacity,
		Counters: p.Counters,
		BaseRate: p.BaseRate,
		SpotIDs:  []string{},
	}
	if lot.Name == "" {
		lot.Name = model.DefaultLotName
	}
	if lot.Location == "" {
		lot.Location = model.DefaultLotLocation
	}
	return lot
}

func spotCount(p *model.LotProvision) int {
	if p.Spots != nil {
		return *p.Spots
	}
	return p.Capacity
}

// GenerateSpots builds count spots coded <PREFIX>-<NNN>, numbered from 1.
func GenerateSpots(lotName string, count int, spotType string) []*model.Spot {
	prefix := sanitizer.CodePrefix(lotName)
	if spotType == "" {
		spotType = DefaultSpotType
	}

	spots := make([]*model.Spot, 0, count)
	for i := 1; i <= count; i++ {
		spots = append(spots, &model.Spot{
			Code:  sanitizer.NormalizeSpotCode(fmt.Sprintf("%s-%03d", prefix, i)),
			Type:  spotType,
			Level: DefaultSpotLevel,
		})
	}
	return spots
}

func (s *lotService) translate(op, resource, id string, err error) error {
	switch {
	case errors.Is(err, lotserrors.ErrLotNotFound), errors.Is(err, lotserrors.ErrSpotNotFound),
		errors.Is(err, lotserrors.ErrInvalidID):
		return apperrors.NotFoundWithID(resource, id)
	case apperrors.IsAppError(err):
		return err
	}

	s.cfg.Log.Error("Registry lookup failed", "operation", op, "id", id, "error", err)
	return apperrors.StoreUnavailable(op, err)
}
