// Package catalog loads routine definitions authored outside the engine.
// Definitions are JSON or YAML files, one routine per file, validated against
// a JSON schema and the domain invariants before being imported. A malformed
// file is logged and skipped: a routine the engine cannot interpret is simply
// never due.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/labforge/labrun/pkg/models"
	"github.com/labforge/labrun/pkg/persistence"
)

// Loader imports routine definition files into the routine repository.
type Loader struct {
	routines persistence.RoutineRepository
	schema   *gojsonschema.Schema
	logger   *slog.Logger
}

// NewLoader creates a catalog loader. The embedded routine schema is compiled
// once up front.
func NewLoader(routines persistence.RoutineRepository, logger *slog.Logger) (*Loader, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(routineSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile routine schema: %w", err)
	}

	return &Loader{
		routines: routines,
		schema:   schema,
		logger:   logger.With("module", "catalog"),
	}, nil
}

// LoadDir imports every *.json, *.yaml, and *.yml file in dir and returns the
// number of routines imported. Files that fail schema or domain validation are
// skipped.
func (l *Loader) LoadDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read routines directory %s: %w", dir, err)
	}

	imported := 0

	for _, entry := range entries {
		if entry.IsDir() || !isDefinitionFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		routine, err := l.loadFile(path)
		if err != nil {
			l.logger.WarnContext(ctx, "Skipping routine definition", "file", path, "error", err)

			continue
		}

		if err := l.routines.SaveRoutine(ctx, routine); err != nil {
			return imported, fmt.Errorf("failed to save routine %s: %w", routine.ID, err)
		}

		imported++
	}

	l.logger.InfoContext(ctx, "Routine catalog loaded", "dir", dir, "imported", imported)

	return imported, nil
}

func isDefinitionFile(name string) bool {
	switch filepath.Ext(name) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func (l *Loader) loadFile(path string) (*models.Routine, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
		payload, err = yamlToJSON(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to convert YAML definition: %w", err)
		}
	}

	result, err := l.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return nil, fmt.Errorf("schema validation errors: %s", strings.Join(descriptions, "; "))
	}

	var routine models.Routine
	if err := json.Unmarshal(payload, &routine); err != nil {
		return nil, fmt.Errorf("failed to unmarshal routine: %w", err)
	}

	if err := routine.Validate(); err != nil {
		return nil, fmt.Errorf("routine is invalid: %w", err)
	}

	return &routine, nil
}

// yamlToJSON re-encodes a YAML document as JSON so one schema serves both
// formats.
func yamlToJSON(payload []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}

	return json.Marshal(doc)
}
