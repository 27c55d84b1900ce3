package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/mcdev12/stagetimer/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

func setupDatabase(ctx context.Context, dbConfig dbconfig.Config) (*sql.DB, error) {
	database, err := sql.Open("postgres", dbConfig.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	database.SetMaxOpenConns(dbConfig.MaxOpenConns)
	database.SetMaxIdleConns(dbConfig.MaxIdleConns)
	database.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("database", dbConfig.Target()).
		Int("max_open_conns", dbConfig.MaxOpenConns).
		Msg("connected to database")
	return database, nil
}
