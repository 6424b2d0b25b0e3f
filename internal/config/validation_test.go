package config_test

import (
	"errors"
	"testing"

	"devwell/backend/internal/config"

	"github.com/stretchr/testify/assert"
)

func validConfig() config.Config {
	return config.Config{
		LibraryStore:         config.StoreFile,
		WorkerMode:           config.WorkerModeLocal,
		ChunkSize:            1000,
		IngestionConcurrency: 4,
		IngestionQueueSize:   16,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
		errIs   error
	}{
		{
			name:   "Valid Config",
			mutate: func(c *config.Config) {},
		},
		{
			name: "Postgres Missing DBHost",
			mutate: func(c *config.Config) {
				c.LibraryStore = config.StorePostgres
				c.DBUser = "user"
				c.DBName = "db"
			},
			wantErr: true,
			errIs:   config.ErrMissingRequired,
		},
		{
			name: "Postgres Complete",
			mutate: func(c *config.Config) {
				c.LibraryStore = config.StorePostgres
				c.DBHost = "localhost"
				c.DBUser = "user"
				c.DBName = "db"
			},
		},
		{
			name:    "Unknown Store",
			mutate:  func(c *config.Config) { c.LibraryStore = "redis" },
			wantErr: true,
			errIs:   config.ErrInvalid,
		},
		{
			name:    "NSQ Missing Host",
			mutate:  func(c *config.Config) { c.WorkerMode = config.WorkerModeNSQ },
			wantErr: true,
			errIs:   config.ErrMissingRequired,
		},
		{
			name:    "Unknown Worker Mode",
			mutate:  func(c *config.Config) { c.WorkerMode = "kafka" },
			wantErr: true,
			errIs:   config.ErrInvalid,
		},
		{
			name:    "Zero Chunk Size",
			mutate:  func(c *config.Config) { c.ChunkSize = 0 },
			wantErr: true,
			errIs:   config.ErrInvalid,
		},
		{
			name:    "Zero Concurrency",
			mutate:  func(c *config.Config) { c.IngestionConcurrency = 0 },
			wantErr: true,
			errIs:   config.ErrInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errIs != nil {
					assert.True(t, errors.Is(err, tt.errIs))
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
