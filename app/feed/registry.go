package feed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/feedsync/app/database"
)

// Registry holds the source registrations found in a directory of YAML files,
// one file per source.
type Registry struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewRegistry(sourcesDir string) *Registry {
	return &Registry{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

func (r *Registry) Run() error {
	if _, err := os.Stat(r.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(r.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		sourceID := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := r.LoadConfig(sourceID)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source registration loaded", "source", sourceID, "enabled", config.IsEnabled(), "url", config.URL)
	}

	return nil
}

func (r *Registry) LoadConfig(sourceID string) (*Config, error) {
	configFile := filepath.Join(r.sourcesDir, sourceID+".yml")
	config, err := r.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.ID = sourceID

	if err := r.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[config.ID] = config

	return config, nil
}

func (r *Registry) GetConfig(sourceID string) (*Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	config, ok := r.cache[sourceID]
	if !ok {
		return nil, fmt.Errorf("source config with id '%s' not found", sourceID)
	}
	return config, nil
}

// GetConfigs returns the registrations ordered by id.
func (r *Registry) GetConfigs() []*Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	configs := make([]*Config, 0, len(r.cache))
	for _, config := range r.cache {
		configs = append(configs, config)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })
	return configs
}

func (r *Registry) GetConfigCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// Import writes every registration into the source repository. Only metadata
// is written; sync state stays with the pipeline.
func (r *Registry) Import(ctx context.Context, repo database.SourceRepository) (int, error) {
	configs := r.GetConfigs()
	for _, config := range configs {
		if err := repo.UpsertSource(ctx, config.Source()); err != nil {
			return 0, fmt.Errorf("failed to import source %s: %w", config.ID, err)
		}
	}
	return len(configs), nil
}

func (r *Registry) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

func (r *Registry) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	requiredFields := map[string]string{
		"source id":  config.ID,
		"source URL": config.URL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	for i, filter := range config.Filters {
		if !filterFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
