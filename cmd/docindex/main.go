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


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/docindex"
	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/ai/openai"
	"github.com/poiesic/docindex/answer"
	"github.com/poiesic/docindex/config"
	"github.com/poiesic/docindex/ingestion"
	"github.com/poiesic/docindex/reembed"
	"github.com/poiesic/docindex/search"
	"github.com/urfave/cli/v2"
)

// newProvider builds the AI provider; tests replace it.
var newProvider = openai.NewProvider

func main() {
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docindex",
		Usage: "Index documents and answer questions about them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"DOCINDEX_LOG_LEVEL"},
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				EnvVars: []string{"DOCINDEX_CONFIG"},
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (uses ./docindex.yaml or ~/.config/docindex/config.yaml if not provided)",
			},
			&cli.StringFlag{
				Name:    "db",
				EnvVars: []string{"DOCINDEX_DB"},
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides storage.path)",
			},
			&cli.StringFlag{
				Name:    "collection",
				EnvVars: []string{"DOCINDEX_COLLECTION"},
				Usage:   "Collection name (overrides storage.collection)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Chunk, embed and store documents",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reingest",
						Usage: "Replace previously ingested versions; unchanged files are skipped",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Show the chunks closest to a query",
				ArgsUsage: "TEXT",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of chunks to return (defaults to retrieval.k)",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the indexed documents",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of chunks to answer from (defaults to retrieval.k)",
					},
				},
			},
			{
				Name:   "summarize",
				Usage:  "Summarize the indexed documents",
				Action: summarizeCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show chunk and source counts",
				Action: statsCommand,
			},
			{
				Name:      "delete",
				Usage:     "Remove every chunk of a source",
				ArgsUsage: "SOURCE",
				Action:    deleteCommand,
			},
			{
				Name:   "clear",
				Usage:  "Remove every chunk from the collection",
				Action: clearCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the removal",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Copy the collection into a new collection embedded with another model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "target-collection",
						Usage:    "Collection to create",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL (defaults to ai.embedding_host)",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "embedding-dimension",
						Usage: "Vector length of the new model (0 learns it from the first record)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

// loadConfig reads the config file and applies the global overrides.
func loadConfig(c *cli.Context) (*config.AppConfig, error) {
	var cfg *config.AppConfig
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if db := c.String("db"); db != "" {
		cfg.Storage.Path = db
	}
	if collection := c.String("collection"); collection != "" {
		cfg.Storage.Collection = collection
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openDatabase(c *cli.Context, cfg *config.AppConfig) (*docindex.Database, error) {
	retryDelay, err := cfg.RetryDelay()
	if err != nil {
		return nil, err
	}

	aiConfig := ai.NewConfig(cfg.AIOptions()...)
	provider, err := newProvider(aiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI provider: %w", err)
	}

	ingestOpts := []ingestion.Option{
		ingestion.WithChunkOptions(cfg.ChunkOptions()...),
		ingestion.WithEmbedBatchSize(cfg.Workers.EmbedBatchSize),
		ingestion.WithRetry(cfg.Workers.MaxAttempts, retryDelay),
		ingestion.WithProgress(c.App.ErrWriter),
	}
	if cfg.Workers.IngestPool > 0 {
		ingestOpts = append(ingestOpts, ingestion.WithPoolSize(cfg.Workers.IngestPool))
	}

	searchOpts := []search.Option{search.WithMaxDistance(cfg.Retrieval.MaxDistance)}
	if cfg.Workers.SearchPool > 0 {
		searchOpts = append(searchOpts, search.WithPoolSize(cfg.Workers.SearchPool))
	}

	db, err := docindex.NewDatabase(cfg.Storage.Path,
		docindex.WithProvider(provider),
		docindex.WithDimension(aiConfig.EmbeddingDimension),
		docindex.WithCollection(cfg.Storage.Collection),
		docindex.WithIngestionOptions(ingestOpts...),
		docindex.WithSearchOptions(searchOpts...),
		docindex.WithAnswerOptions(answer.WithK(cfg.Retrieval.K)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// withDatabase loads the config, opens the database, runs fn and closes the database.
func withDatabase(c *cli.Context, fn func(ctx context.Context, cfg *config.AppConfig, db *docindex.Database) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(c, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(c.Context, cfg, db)
}

func ingestCommand(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return errors.New("at least one file is required")
	}

	return withDatabase(c, func(ctx context.Context, _ *config.AppConfig, db *docindex.Database) error {
		out := c.App.Writer
		if c.Bool("reingest") {
			var errs []error
			for _, path := range paths {
				result, err := db.ReingestFile(ctx, path)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				printResult(c, result)
			}
			return errors.Join(errs...)
		}

		docs := make([]ingestion.Document, 0, len(paths))
		var errs []error
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			docs = append(docs, ingestion.Document{Name: filepath.Base(path), Data: data})
		}
		results, err := db.IngestAll(ctx, docs)
		fmt.Fprintln(c.App.ErrWriter)
		for _, result := range results {
			if result != nil {
				printResult(c, result)
			}
		}
		if err != nil {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			fmt.Fprintf(out, "%d of %d files failed\n", len(paths)-countResults(results), len(paths))
		}
		return errors.Join(errs...)
	})
}

func printResult(c *cli.Context, result *ingestion.Result) {
	switch {
	case result.Skipped:
		fmt.Fprintf(c.App.Writer, "%s: unchanged, skipped\n", result.Source)
	case result.Replaced:
		fmt.Fprintf(c.App.Writer, "%s: replaced with %d chunks\n", result.Source, result.Chunks)
	default:
		fmt.Fprintf(c.App.Writer, "%s: %d chunks\n", result.Source, result.Chunks)
	}
}

func countResults(results []*ingestion.Result) int {
	n := 0
	for _, r := range results {
		if r != nil {
			n++
		}
	}
	return n
}

func queryCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("query text is required")
	}

	return withDatabase(c, func(ctx context.Context, cfg *config.AppConfig, db *docindex.Database) error {
		k := c.Int("k")
		if k == 0 {
			k = cfg.Retrieval.K
		}
		hits, err := db.Retrieve(ctx, query, k)
		if err != nil {
			return err
		}

		fmt.Fprintf(c.App.Writer, "Found %d hits\n", len(hits))
		for i, hit := range hits {
			chunk := hit.Record.Chunk
			fmt.Fprintf(c.App.Writer, "%d: %s #%d [%0.3f]\n", i+1, chunk.Source, chunk.Sequence, hit.Distance)
			fmt.Fprintf(c.App.Writer, "   %s\n", strings.ReplaceAll(chunk.Content, "\n", "\n   "))
		}
		return nil
	})
}

func askCommand(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return errors.New("question is required")
	}

	return withDatabase(c, func(ctx context.Context, _ *config.AppConfig, db *docindex.Database) error {
		var response *answer.Response
		var err error
		if k := c.Int("k"); k != 0 {
			response, err = db.AskWithK(ctx, question, k)
		} else {
			response, err = db.Ask(ctx, question)
		}
		if err != nil {
			return err
		}
		printResponse(c, response)
		return nil
	})
}

func summarizeCommand(c *cli.Context) error {
	return withDatabase(c, func(ctx context.Context, _ *config.AppConfig, db *docindex.Database) error {
		response, err := db.Summarize(ctx)
		if err != nil {
			return err
		}
		printResponse(c, response)
		return nil
	})
}

func printResponse(c *cli.Context, response *answer.Response) {
	if response.Degraded {
		slog.Warn("answer service unavailable, showing retrieved context")
	}
	fmt.Fprintln(c.App.Writer, response.Text)
	if len(response.Sources) > 0 {
		fmt.Fprintf(c.App.Writer, "\nSources: %s\n", strings.Join(response.Sources, ", "))
	}
}

func statsCommand(c *cli.Context) error {
	return withDatabase(c, func(ctx context.Context, cfg *config.AppConfig, db *docindex.Database) error {
		stats, err := db.Stats(ctx)
		if err != nil {
			return err
		}
		spec := db.Index().Spec()
		fmt.Fprintf(c.App.Writer, "Collection: %s\n", cfg.Storage.Collection)
		fmt.Fprintf(c.App.Writer, "Model: %s (dimension %d)\n", spec.Model, spec.Dimension)
		fmt.Fprintf(c.App.Writer, "Chunks: %d\n", stats.TotalChunks)
		fmt.Fprintf(c.App.Writer, "Sources: %d\n", stats.TotalSources())
		for _, source := range stats.Sources {
			fmt.Fprintf(c.App.Writer, "  %s\n", source)
		}
		return nil
	})
}

func deleteCommand(c *cli.Context) error {
	source := c.Args().First()
	if source == "" {
		return errors.New("source is required")
	}

	return withDatabase(c, func(ctx context.Context, _ *config.AppConfig, db *docindex.Database) error {
		removed, err := db.DeleteBySource(ctx, source)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Removed %d chunks from %s\n", removed, source)
		return nil
	})
}

func clearCommand(c *cli.Context) error {
	return withDatabase(c, func(ctx context.Context, cfg *config.AppConfig, db *docindex.Database) error {
		if !c.Bool("yes") {
			return fmt.Errorf("refusing to clear collection %q without --yes", cfg.Storage.Collection)
		}
		if err := db.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Cleared collection %s\n", cfg.Storage.Collection)
		return nil
	})
}

func reembedCommand(c *cli.Context) error {
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	return withDatabase(c, func(ctx context.Context, cfg *config.AppConfig, db *docindex.Database) error {
		opts := append(cfg.AIOptions(),
			ai.WithEmbeddingModel(c.String("embedding-model")),
			ai.WithEmbeddingDimension(c.Int("embedding-dimension")),
		)
		if host := c.String("embedding-host"); host != "" {
			opts = append(opts, ai.WithEmbeddingHost(host))
		}
		aiConfig := ai.NewConfig(opts...)
		if err := aiConfig.Validate(); err != nil {
			return fmt.Errorf("invalid AI configuration: %w", err)
		}

		provider, err := newProvider(aiConfig)
		if err != nil {
			return fmt.Errorf("failed to create AI provider: %w", err)
		}
		defer provider.Close()

		errOut := c.App.ErrWriter
		fmt.Fprintf(errOut, "Database: %s\n", cfg.Storage.Path)
		fmt.Fprintf(errOut, "Source collection: %s\n", cfg.Storage.Collection)
		fmt.Fprintf(errOut, "Embedding host: %s\n", aiConfig.EmbeddingHost)
		fmt.Fprintf(errOut, "Embedding model: %s\n", aiConfig.EmbeddingModel)
		fmt.Fprintln(errOut)

		target := c.String("target-collection")
		if _, err := db.Migrate(ctx, target, provider, reembedConfig, errOut); err != nil {
			return fmt.Errorf("reembedding failed: %w", err)
		}
		return nil
	})
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
