package main

import (
	"context"

	"github.com/oggyb/matcha-engine/internal/app"
	"github.com/oggyb/matcha-engine/internal/cache"
	"github.com/oggyb/matcha-engine/internal/config"
	"github.com/oggyb/matcha-engine/internal/db"
	"github.com/oggyb/matcha-engine/internal/delivery"
	"github.com/oggyb/matcha-engine/internal/engine"
	"github.com/oggyb/matcha-engine/internal/gateway"
	"github.com/oggyb/matcha-engine/internal/logger"
	"github.com/oggyb/matcha-engine/internal/presence"
	"github.com/oggyb/matcha-engine/internal/server"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(cfg, database, redisCache, log)

	// Wire the engine: presence → delivery → state machine → gateway
	registry := presence.NewRegistry()
	pipeline := delivery.NewPipeline(appCtx, registry)
	interactions := engine.NewService(appCtx, pipeline)
	gw := gateway.New(appCtx, interactions, pipeline, registry)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting interaction engine", "addr", addr)

	if err := server.StartHTTPServer(cfg, gw); err != nil {
		log.Error("failed to start http server", "err", err)
	}
}
