package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/ecnc-ops/incident-tracker/backend/internal/config"
	"github.com/ecnc-ops/incident-tracker/backend/internal/repository"
	"github.com/ecnc-ops/incident-tracker/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int

	flag.IntVar(&op, "op", 0, "operation to run (1: insert random users, 2: insert random incidents with comments)")
	flag.IntVar(&n, "n", 5, "number of records to insert")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("unable to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("unable to create database pool", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open does not connect, so ping explicitly
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("unable to connect to database", "error", err)
		return
	}

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(context.Background(), dbpool); err != nil {
			logger.Error("unable to apply migrations", "error", err)
			return
		}
	}

	seeder := seed.New(repository.NewRepository(cfg, dbpool), logger)

	if n <= 0 {
		logger.Error("record count must be positive", slog.Int("n", n))
		return
	}

	switch op {
	case 0:
		logger.Error("no operation given")
	case 1:
		cnt, err := seeder.Users(context.Background(), n, cfg.Seed.User.Password, cfg.Email.UserDomain)
		if err != nil {
			logger.Error("unable to insert users", slog.String("error", err.Error()))
		}
		logger.Info("users inserted", slog.Int("count", cnt))
	case 2:
		cnt, err := seeder.Incidents(context.Background(), n)
		if err != nil {
			logger.Error("unable to insert incidents", slog.String("error", err.Error()))
		}
		logger.Info("incidents inserted", slog.Int("count", cnt))
	default:
		logger.Error("unknown operation", slog.Int("op", op))
	}
}
