package main

import (
	"context"
	"flag"
	"time"

	"github.com/tinynews/internal/config"
	"github.com/tinynews/internal/db"
	"github.com/tinynews/internal/logger"
)

func main() {
	var force bool
	flag.BoolVar(&force, "force", false, "reset a non-development database")
	flag.Parse()

	cfg, err := config.Load()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if !cfg.IsDevelopment() && !force {
		log.Fatal().Str("env", cfg.Env).Msg("seeding wipes all data; set APP_ENV=development or pass -force")
	}

	// 初始化数据库
	if err := db.Init(cfg.Database, log); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	summary, err := seed(ctx, db.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	log.Info().
		Int("users", summary.Users).
		Int("articles", summary.Articles).
		Str("password", demoPassword).
		Msg("seed complete")
}
