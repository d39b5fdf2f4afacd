package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labforge/labrun/pkg/cache"
	"github.com/labforge/labrun/pkg/catalog"
	"github.com/labforge/labrun/pkg/persistence"
	"github.com/labforge/labrun/pkg/services"
)

// ImportRoutineCatalog loads routine definition files into the store.
// routinesPath may be empty, in which case nothing is imported.
func ImportRoutineCatalog(ctx context.Context, logger *slog.Logger, store persistence.Persistence, routinesPath string) {
	if routinesPath == "" {
		return
	}

	loader, err := catalog.NewLoader(store.RoutineRepository(), logger)
	if err != nil {
		panic(fmt.Errorf("failed to create catalog loader: %w", err))
	}

	if _, err := loader.LoadDir(ctx, routinesPath); err != nil {
		panic(fmt.Errorf("failed to import routine catalog: %w", err))
	}
}

// NewWorklistCache creates the redis-backed worklist cache, or nil when no
// redis URL is configured. The projector treats a nil cache as cache-off.
func NewWorklistCache(redisURL string, logger *slog.Logger) services.WorklistCache {
	if redisURL == "" {
		return nil
	}

	worklistCache, err := cache.NewWorklistCache(redisURL, logger)
	if err != nil {
		panic(fmt.Errorf("failed to create worklist cache: %w", err))
	}

	return worklistCache
}
