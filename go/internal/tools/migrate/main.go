package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mcdev12/stagetimer/go/internal/dbconfig"
	"github.com/mcdev12/stagetimer/go/internal/models"
	timerdb "github.com/mcdev12/stagetimer/go/internal/timer/db"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 2) Apply schema; every statement in it is idempotent
	if _, err := pool.Exec(ctx, timerdb.Schema); err != nil {
		fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Schema applied to %s\n", cfg.Target())

	// 3) Seed the default timer record
	def := models.NewDefaultTimer(time.Now().UTC())
	cmdTag, err := pool.Exec(ctx, `
        INSERT INTO timers (id, duration_sec, start_time, status, updated_at)
        VALUES ($1, $2, NULL, $3, $4)
        ON CONFLICT (id) DO NOTHING
    `,
		def.ID, def.DurationSec, string(def.Status), def.UpdatedAt,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed timer: %v\n", err)
		os.Exit(1)
	}

	if cmdTag.RowsAffected() == 1 {
		fmt.Printf("Seeded timer %d: %ds, %s\n", def.ID, def.DurationSec, def.Status)
	} else {
		fmt.Printf("Timer %d already present, left untouched\n", def.ID)
	}
}
