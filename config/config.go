// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads the docindex application configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/chunking"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "docindex.yaml"

// StorageConfig locates the index on disk.
type StorageConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// AIConfig configures the embedding and answer-generation services.
type AIConfig struct {
	EmbeddingHost      string   `yaml:"embedding_host"`
	GeneratorHost      string   `yaml:"generator_host"`
	EmbeddingModel     string   `yaml:"embedding_model"`
	GeneratorModel     string   `yaml:"generator_model"`
	EmbeddingDimension int      `yaml:"embedding_dimension"`
	APIKeyEnv          string   `yaml:"api_key_env"`
	Temperature        *float64 `yaml:"temperature"`
}

// ChunkingConfig controls how documents are split.
type ChunkingConfig struct {
	ChunkSize          int  `yaml:"chunk_size"`
	ChunkOverlap       *int `yaml:"chunk_overlap"`
	RowsPerBatch       int  `yaml:"rows_per_batch"`
	TabularSplitFactor int  `yaml:"tabular_split_factor"`
}

// RetrievalConfig controls query-time search.
type RetrievalConfig struct {
	K           int     `yaml:"k"`
	MaxDistance float32 `yaml:"max_distance"`
}

// WorkersConfig sizes the worker pools and embedding retries.
type WorkersConfig struct {
	IngestPool     int    `yaml:"ingest_pool"`
	SearchPool     int    `yaml:"search_pool"`
	EmbedBatchSize int    `yaml:"embed_batch_size"`
	MaxAttempts    int    `yaml:"max_attempts"`
	RetryDelay     string `yaml:"retry_delay"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Storage   StorageConfig   `yaml:"storage"`
	AI        AIConfig        `yaml:"ai"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Workers   WorkersConfig   `yaml:"workers"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Fields left empty in the file take their default values.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./docindex.yaml first, then ~/.config/docindex/config.yaml.
// If neither exists, it writes defaults to ~/.config/docindex/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	if _, err := os.Stat(FileName); err == nil {
		cfg, err := Load(FileName)
		return cfg, FileName, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docindex", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	aiDefaults := ai.DefaultConfig()
	chunkDefaults := chunking.DefaultOptions()

	setString(&cfg.Storage.Path, "docindex.db")
	setString(&cfg.Storage.Collection, "documents")

	setString(&cfg.AI.EmbeddingHost, aiDefaults.EmbeddingHost)
	setString(&cfg.AI.GeneratorHost, cfg.AI.EmbeddingHost)
	setString(&cfg.AI.EmbeddingModel, aiDefaults.EmbeddingModel)
	setString(&cfg.AI.GeneratorModel, aiDefaults.GeneratorModel)
	setString(&cfg.AI.APIKeyEnv, "DOCINDEX_API_KEY")
	if cfg.AI.Temperature == nil {
		cfg.AI.Temperature = &aiDefaults.Temperature
	}

	setInt(&cfg.Chunking.ChunkSize, chunkDefaults.ChunkSize)
	if cfg.Chunking.ChunkOverlap == nil {
		cfg.Chunking.ChunkOverlap = &chunkDefaults.ChunkOverlap
	}
	setInt(&cfg.Chunking.RowsPerBatch, chunkDefaults.RowsPerBatch)
	setInt(&cfg.Chunking.TabularSplitFactor, chunkDefaults.TabularSplitFactor)

	setInt(&cfg.Retrieval.K, 5)
	if cfg.Retrieval.MaxDistance == 0 {
		cfg.Retrieval.MaxDistance = 2
	}

	setInt(&cfg.Workers.EmbedBatchSize, 32)
	setInt(&cfg.Workers.MaxAttempts, 3)
	setString(&cfg.Workers.RetryDelay, "500ms")
}

func setString(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func setInt(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}

// AIOptions translates the ai section into ai.Config options. The API key is
// read from the environment variable named by APIKeyEnv.
func (c *AppConfig) AIOptions() []ai.ConfigOption {
	opts := []ai.ConfigOption{
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithGeneratorHost(c.AI.GeneratorHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithGeneratorModel(c.AI.GeneratorModel),
		ai.WithEmbeddingDimension(c.AI.EmbeddingDimension),
		ai.WithTemperature(*c.AI.Temperature),
	}
	if key := os.Getenv(c.AI.APIKeyEnv); key != "" {
		opts = append(opts, ai.WithAPIKey(key))
	}
	return opts
}

// ChunkOptions translates the chunking section into chunking options.
func (c *AppConfig) ChunkOptions() []chunking.Option {
	return []chunking.Option{
		chunking.WithChunkSize(c.Chunking.ChunkSize),
		chunking.WithChunkOverlap(*c.Chunking.ChunkOverlap),
		chunking.WithRowsPerBatch(c.Chunking.RowsPerBatch),
		chunking.WithTabularSplitFactor(c.Chunking.TabularSplitFactor),
	}
}

// RetryDelay parses Workers.RetryDelay.
func (c *AppConfig) RetryDelay() (time.Duration, error) {
	d, err := time.ParseDuration(c.Workers.RetryDelay)
	if err != nil {
		return 0, fmt.Errorf("workers.retry_delay: %w", err)
	}
	return d, nil
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if c.Storage.Path == "" {
		return errors.New("storage.path is required")
	}
	if c.Retrieval.K < 1 {
		return errors.New("retrieval.k must be at least 1")
	}
	if c.Retrieval.MaxDistance < 0 || c.Retrieval.MaxDistance > 2 {
		return errors.New("retrieval.max_distance must be between 0 and 2")
	}
	if _, err := c.RetryDelay(); err != nil {
		return err
	}
	if err := chunking.NewOptions(c.ChunkOptions()...).Validate(); err != nil {
		return err
	}
	return ai.NewConfig(c.AIOptions()...).Validate()
}
