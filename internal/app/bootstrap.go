package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"

	"devwell/backend/features/library"
	"devwell/backend/internal/config"
)

// Dependencies are the external resources opened before the app is wired.
type Dependencies struct {
	Repo        library.Repository
	DB          *sql.DB
	NSQProducer *nsq.Producer
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}

	switch cfg.LibraryStore {
	case config.StoreSQLite:
		repo, err := library.OpenSQLiteRepo(ctx, cfg.SQLiteFilePath())
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		deps.Repo = repo
	case config.StorePostgres:
		db, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(db, cfg.MigrationPath); err != nil {
			db.Close()
			return nil, err
		}
		deps.DB = db
		deps.Repo = library.NewPostgresRepo(db)
	default:
		deps.Repo = library.NewFileRepo(cfg.IndexFilePath())
	}

	if cfg.WorkerMode == config.WorkerModeNSQ {
		producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("nsq producer error: %w", err)
		}
		deps.NSQProducer = producer
	}

	slog.InfoContext(ctx, "dependencies ready", "store", cfg.LibraryStore, "worker_mode", cfg.WorkerMode)
	return deps, nil
}

// OpenPostgres connects and waits for the database to answer.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	delay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	if err := PingWithRetry(ctx, db, cfg.BootstrapRetryAttempts, delay); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return db, nil
}

func PingWithRetry(ctx context.Context, p Pinger, attempts int, delay time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = p.PingContext(ctx); err == nil {
			return nil
		}
		slog.WarnContext(ctx, "failed to ping db, retrying...", "attempt", i+1, "max_attempts", attempts)
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func RunMigrations(db *sql.DB, path string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(path, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up error: %w", err)
	}
	slog.Info("migrations applied successfully")
	return nil
}

func (d *Dependencies) Close() {
	if d.NSQProducer != nil {
		d.NSQProducer.Stop()
	}
	if d.Repo != nil {
		if err := d.Repo.Close(); err != nil {
			slog.Warn("failed to close library store", "error", err)
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
