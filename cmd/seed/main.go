package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curalink/patient-booking/internal/db"
	"github.com/curalink/patient-booking/pkg/logging"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

var cities = []string{
	"Berlin",
	"Hamburg",
	"Munich",
	"Cologne",
	"Frankfurt",
	"Leipzig",
}

var insurancePlans = [][]string{
	{"GKV"},
	{"PKV"},
	{"GKV", "PKV"},
	{}, // accepts all
}

func main() {
	logger := logging.Default()
	logger.Info("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Error("POSTGRES_DSN is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := ensureSchema(context.Background(), pool); err != nil {
		logger.Error("create schema", "error", err)
		os.Exit(1)
	}
	if err := seedDoctors(context.Background(), pool, 120, logger); err != nil {
		logger.Error("seed doctors", "error", err)
		os.Exit(1)
	}

	logger.Info("seed complete")
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS doctors (
			id         UUID PRIMARY KEY,
			name       TEXT NOT NULL,
			specialty  TEXT NOT NULL,
			city       TEXT NOT NULL,
			insurances TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int, logger *logging.Logger) error {
	logger.Info("seeding doctors", "count", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		city := cities[gofakeit.Number(0, len(cities)-1)]
		plans := insurancePlans[gofakeit.Number(0, len(insurancePlans)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, city, insurances, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, name, spec, city, plans)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Info("doctors seeded")
	return nil
}
