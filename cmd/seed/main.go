package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	lotRepository "campuspark/internal/lots/repository"
	lotService "campuspark/internal/lots/service"
	"campuspark/pkg/cache"
	"campuspark/pkg/config"
	"campuspark/pkg/model"

	"github.com/go-playground/validator/v10"
)

const JobName = "campuspark-seed"

func main() {
	var path string
	flag.StringVar(&path, "file", "lots.json", "JSON inventory of lots to provision")
	flag.Parse()

	cfg := config.Load(JobName)

	f, err := os.Open(path)
	if err != nil {
		cfg.Log.Fatal("Failed to open inventory", "file", path, "error", err)
	}
	inventory, err := loadInventory(f)
	_ = f.Close()
	if err != nil {
		cfg.Log.Fatal("Invalid inventory", "file", path, "error", err)
	}

	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	lots := lotService.NewLotService(
		lotRepository.NewMongoLotRepository(cfg),
		cache.NewSpotCache(cfg.Client.Redis, cfg.SpotCacheTTL, cfg.Log),
		cfg,
	)

	created, skipped := 0, 0
	for i := range inventory {
		lot, isNew, err := lots.Provision(ctx, &inventory[i])
		if err != nil {
			cfg.GracefulShutdown()
			cfg.Log.Fatal("Provisioning failed", "entry", i, "name", inventory[i].Name, "error", err)
		}
		if isNew {
			created++
			cfg.Log.Info("Lot provisioned", "id", lot.ID, "name", lot.Name, "spots", len(lot.SpotIDs))
		} else {
			skipped++
		}
	}

	cfg.Log.Info("Seeding completed", "created", created, "skipped", skipped)
}

// loadInventory decodes and validates a JSON array of lots.
func loadInventory(r io.Reader) ([]model.LotProvision, error) {
	var inventory []model.LotProvision
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&inventory); err != nil {
		return nil, fmt.Errorf("decode inventory: %w", err)
	}

	validate := validator.New()
	for i := range inventory {
		if err := validate.Struct(&inventory[i]); err != nil {
			return nil, fmt.Errorf("entry %d (%q): %w", i, inventory[i].Name, err)
		}
	}
	return inventory, nil
}
