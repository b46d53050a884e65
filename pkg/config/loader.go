package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// CatalogYAMLConfig represents the complete catalog.yaml file structure.
type CatalogYAMLConfig struct {
	Queries map[string]QueryEntry `yaml:"queries"`
}

// ClassifierYAMLConfig represents the complete classifier.yaml file structure.
type ClassifierYAMLConfig struct {
	Classifier ClassifierConfig `yaml:"classifier"`
}

// Config is the fully loaded, validated configuration ready for use by the
// pipeline: the merged query catalog, the merged classifier vocabulary, and
// the engine's runtime tunables.
type Config struct {
	configDir       string
	Engine          EngineConfig
	CatalogRegistry *CatalogRegistry
	Classifier      *ClassifierConfig
}

// ConfigDir returns the directory configuration was loaded from.
func (c *Config) ConfigDir() string { return c.configDir }

// Stats summarizes what was loaded, for startup logging.
type Stats struct {
	Queries int
}

// Stats returns counts of loaded configuration for startup logging.
func (c *Config) Stats() Stats {
	return Stats{Queries: c.CatalogRegistry.Len()}
}

// Initialize loads, merges, validates, and returns ready-to-use
// configuration. This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load catalog.yaml and classifier.yaml from configDir (if present)
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined catalog/classifier (user catalog entries
//     override built-in ones; user vocabulary lists are appended to built-in ones)
//  5. Build the in-memory catalog registry
//  6. Load engine runtime tunables from the environment
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized", "queries", stats.Queries)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	catalogYAML, err := loader.loadCatalogYAML()
	if err != nil {
		return nil, NewLoadError("catalog.yaml", err)
	}

	classifierYAML, err := loader.loadClassifierYAML()
	if err != nil {
		return nil, NewLoadError("classifier.yaml", err)
	}

	builtin := GetBuiltinConfig()

	mergedQueries := mergeQueries(builtin.Queries, catalogYAML.Queries)
	mergedClassifier, err := mergeClassifier(builtin.Classifier, classifierYAML.Classifier)
	if err != nil {
		return nil, fmt.Errorf("failed to merge classifier config: %w", err)
	}

	engineCfg, err := LoadEngineConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load engine config: %w", err)
	}

	return &Config{
		configDir:       configDir,
		Engine:          engineCfg,
		CatalogRegistry: NewCatalogRegistry(mergedQueries),
		Classifier:      mergedClassifier,
	}, nil
}

func validate(cfg *Config) error {
	all := cfg.CatalogRegistry.GetAll()
	if len(all) == 0 {
		return NewValidationError("catalog", "*", "", fmt.Errorf("%w: no queries registered", ErrMissingRequiredField))
	}

	seenRefs := make(map[string]string, len(all))
	for id, q := range all {
		if q.Template == "" {
			return NewValidationError("catalog_query", id, "template", ErrMissingRequiredField)
		}
		if q.OutputRef == "" {
			return NewValidationError("catalog_query", id, "output_ref", ErrMissingRequiredField)
		}
		if owner, dup := seenRefs[q.OutputRef]; dup {
			return NewValidationError("catalog_query", id, "output_ref",
				fmt.Errorf("%w: output_ref %q already used by query %q", ErrInvalidValue, q.OutputRef, owner))
		}
		seenRefs[q.OutputRef] = id
	}
	return nil
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Absent user overrides are fine; the built-in seed still applies.
			return nil
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

func (l *configLoader) loadCatalogYAML() (*CatalogYAMLConfig, error) {
	cfg := &CatalogYAMLConfig{Queries: make(map[string]QueryEntry)}
	if err := l.loadYAML("catalog.yaml", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *configLoader) loadClassifierYAML() (*ClassifierYAMLConfig, error) {
	cfg := &ClassifierYAMLConfig{}
	if err := l.loadYAML("classifier.yaml", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeQueries merges built-in and user-defined catalog entries. User
// entries override built-in entries with the same id.
func mergeQueries(builtinQueries map[string]QueryEntry, userQueries map[string]QueryEntry) map[string]*QueryEntry {
	result := make(map[string]*QueryEntry, len(builtinQueries)+len(userQueries))
	for id, q := range builtinQueries {
		qCopy := q
		result[id] = &qCopy
	}
	for id, q := range userQueries {
		qCopy := q
		result[id] = &qCopy
	}
	return result
}

// mergeClassifier merges the built-in classifier vocabulary with any
// user-supplied vocabulary via mergo. User lists are appended to the
// built-in lists (mergo.WithAppendSlice), so built-in keywords stay present.
func mergeClassifier(builtin ClassifierConfig, user ClassifierConfig) (*ClassifierConfig, error) {
	merged := builtin
	if err := mergo.Merge(&merged, user, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return nil, err
	}
	return &merged, nil
}
