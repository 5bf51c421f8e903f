package main

import (
	"context"
	"log"
	"time"

	"storefront/config"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// sampleCatalog prices are in minor currency units
var sampleCatalog = []models.Product{
	{Name: "Smartphone", Description: "High-end smartphone", Category: "electronics", ImageURL: "uploads/phone.jpg", Price: 250000, InStock: true, StockQuantity: 10},
	{Name: "Gaming laptop", Description: "Laptop for gaming and design work", Category: "electronics", ImageURL: "uploads/laptop.avif", Price: 450000, InStock: true, StockQuantity: 5},
	{Name: "Smartwatch", Description: "Fitness tracking watch", Category: "accessories", ImageURL: "uploads/watch.avif", Price: 80000, InStock: true, StockQuantity: 15},
	{Name: "Wireless headphones", Description: "Bluetooth headphones", Category: "accessories", ImageURL: "uploads/headphones.jpeg", Price: 35000, InStock: true, StockQuantity: 20},
	{Name: "Digital camera", Description: "Professional camera", Category: "electronics", ImageURL: "uploads/camera.jpg", Price: 320000, InStock: true, StockQuantity: 8},
	{Name: "Tablet", Description: "Tablet for work and play", Category: "electronics", ImageURL: "uploads/tablet.avif", Price: 180000, InStock: false, StockQuantity: 0},
}

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	db, err := store.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate schema", zap.Error(err))
	}

	n, err := db.SeedProducts(ctx, sampleCatalog)
	if err != nil {
		logger.Fatal("Failed to seed catalog", zap.Error(err))
	}
	logger.Info("Catalog seeded", zap.Int("inserted", n))
}
