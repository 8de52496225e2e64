package main

import (
	"context"
	"fmt"

	"github.com/zulandar/leadyard/internal/config"
	"github.com/zulandar/leadyard/internal/db"
	"github.com/zulandar/leadyard/internal/generation"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/logging"
	"github.com/zulandar/leadyard/internal/notify"
	"github.com/zulandar/leadyard/internal/qualify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultConfigPath = "leadyard.yaml"

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s store: %w", cfg.Database.Driver, err)
	}

	return cfg, gormDB, nil
}

// openStore connects, migrates and wraps the database in a lead store.
func openStore(configPath string) (*config.Config, *lead.GormStore, func(), error) {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	store, err := lead.NewGormStore(gormDB)
	if err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	return cfg, store, closeDB, nil
}

// newController builds the turn engine from cfg. notifier may be nil.
func newController(ctx context.Context, cfg *config.Config, store lead.Repository, notifier notify.Notifier, log *zap.Logger) (*qualify.Controller, error) {
	client, err := generation.New(ctx, cfg.Generation)
	if err != nil {
		return nil, err
	}
	return qualify.NewController(qualify.ControllerOpts{
		Store:            store,
		Client:           client,
		ReplyTemperature: cfg.Generation.ReplyTemperature,
		ClosingMessage:   cfg.Summary.ClosingMessage,
		Subject:          cfg.Summary.Subject,
		TeamName:         cfg.Summary.TeamName,
		Notifier:         notifier,
		Logger:           log,
	})
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Development)
}
