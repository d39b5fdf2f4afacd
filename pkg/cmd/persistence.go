// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/labforge/labrun/pkg/persistence"
	"github.com/labforge/labrun/pkg/persistence/memory"
	"github.com/labforge/labrun/pkg/persistence/postgresql"
)

// NewPersistence builds the persistence layer from the database URL scheme:
// postgres:// selects PostgreSQL, anything else the in-memory store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL persistence: %w", err))
		}

		return store
	default:
		return memory.NewPersistence()
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "memory"
	}

	return provider
}
