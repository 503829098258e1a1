// Copyright 2025 Quarry Labs
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
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/quarrylabs/quarry"
	"github.com/quarrylabs/quarry/ai"
	"github.com/quarrylabs/quarry/ingest"
	"github.com/urfave/cli/v2"
)

func main() {
	// Local .env files supply service hosts in development; missing files
	// are fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:   "quarry",
		Usage:  "Content ingestion and enrichment pipeline",
		Flags:  []cli.Flag{logLevelFlag()},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest files and enqueue their processing jobs",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
				Flags:     append([]cli.Flag{dbFlag()}, serviceFlags()...),
			},
			{
				Name:   "work",
				Usage:  "Process queued jobs until interrupted",
				Action: workCommand,
				Flags: append([]cli.Flag{
					dbFlag(),
					&cli.IntFlag{
						Name:    "concurrency",
						Aliases: []string{"c"},
						Usage:   "Number of concurrent workers",
						Value:   5,
					},
				}, serviceFlags()...),
			},
			{
				Name:   "sweep",
				Usage:  "Enqueue a freshness evaluation over all documents",
				Action: sweepCommand,
				Flags:  []cli.Flag{dbFlag()},
			},
			{
				Name:      "scrape",
				Usage:     "Enqueue scrape jobs for one or more URLs",
				ArgsUsage: "URL [URL...]",
				Action:    scrapeCommand,
				Flags:     []cli.Flag{dbFlag()},
			},
			{
				Name:      "watch",
				Usage:     "Watch a directory and ingest files as they appear",
				ArgsUsage: "DIR",
				Action:    watchCommand,
				Flags: append([]cli.Flag{
					dbFlag(),
					&cli.IntFlag{
						Name:    "concurrency",
						Aliases: []string{"c"},
						Usage:   "Number of concurrent workers",
						Value:   5,
					},
				}, serviceFlags()...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to the data directory",
		Required: true,
		EnvVars:  []string{"QUARRY_DB"},
	}
}

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "log-level",
		Aliases: []string{"l"},
		Usage:   "Set logging level (debug, info, warn, error)",
		Value:   "info",
		EnvVars: []string{"QUARRY_LOG_LEVEL"},
	}
}

func serviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"QUARRY_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "embeddinggemma",
			EnvVars: []string{"QUARRY_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "extractor-host",
			Usage:   "Metadata extractor host URL (defaults to embedding-host)",
			EnvVars: []string{"QUARRY_EXTRACTOR_HOST"},
		},
		&cli.StringFlag{
			Name:    "extractor-model",
			Usage:   "Metadata extractor model name",
			Value:   "qwen2.5:3b",
			EnvVars: []string{"QUARRY_EXTRACTOR_MODEL"},
		},
		&cli.StringFlag{
			Name:    "extraction-service",
			Usage:   "Document text extraction service URL",
			EnvVars: []string{"QUARRY_EXTRACTION_SERVICE"},
		},
		&cli.StringFlag{
			Name:    "transcription-service",
			Usage:   "Audio transcription service URL (enables audio ingestion)",
			EnvVars: []string{"QUARRY_TRANSCRIPTION_SERVICE"},
		},
		&cli.StringFlag{
			Name:    "layout-service",
			Usage:   "Image OCR layout service URL",
			EnvVars: []string{"QUARRY_LAYOUT_SERVICE"},
		},
		&cli.StringFlag{
			Name:    "scrape-service",
			Usage:   "Web scrape service URL (enables scrape jobs)",
			EnvVars: []string{"QUARRY_SCRAPE_SERVICE"},
		},
		&cli.StringFlag{
			Name:    "chunk-strategy",
			Usage:   "Chunking strategy (fixed, sliding, entity, semantic)",
			Value:   "fixed",
			EnvVars: []string{"QUARRY_CHUNK_STRATEGY"},
		},
	}
}

func openQuarry(c *cli.Context) (*quarry.Quarry, error) {
	extractorHost := c.String("extractor-host")
	if extractorHost == "" {
		extractorHost = c.String("embedding-host")
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithExtractorHost(extractorHost),
		ai.WithExtractorModel(c.String("extractor-model")),
	)

	opts := []quarry.Option{
		quarry.WithAIConfig(aiConfig),
		quarry.WithChunkStrategy(c.String("chunk-strategy")),
	}
	if url := c.String("extraction-service"); url != "" {
		opts = append(opts, quarry.WithExtractionService(url))
	}
	if url := c.String("transcription-service"); url != "" {
		opts = append(opts, quarry.WithTranscriptionService(url))
	}
	if url := c.String("layout-service"); url != "" {
		opts = append(opts, quarry.WithLayoutService(url))
	}
	if url := c.String("scrape-service"); url != "" {
		opts = append(opts, quarry.WithScrapeService(url))
	}

	return quarry.Open(c.String("db"), opts...)
}

// openQuarryLite opens the store without AI configuration for commands that
// only enqueue jobs. The worker command supplies the real configuration.
func openQuarryLite(c *cli.Context) (*quarry.Quarry, error) {
	return quarry.Open(c.String("db"))
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	q, err := openQuarry(c)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}
	defer q.Close()

	ctx := c.Context
	for _, path := range c.Args().Slice() {
		if err := ingestFile(ctx, q, path); err != nil {
			return err
		}
	}

	fmt.Fprintln(os.Stderr, "Run 'quarry work' to process the queued jobs.")
	return nil
}

func ingestFile(ctx context.Context, q *quarry.Quarry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := q.Ingest(ctx, data, mimeForFile(path), &ingest.Options{Filename: filepath.Base(path)})
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", path, err)
	}
	if doc == nil {
		fmt.Fprintf(os.Stderr, "%s: no content extracted, skipped\n", path)
		return nil
	}

	fmt.Fprintf(os.Stderr, "%s: document %s\n", path, doc.ID)
	return nil
}

func workCommand(c *cli.Context) error {
	q, err := openQuarry(c)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}
	defer q.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Processing jobs with %d workers; Ctrl-C to stop.\n", c.Int("concurrency"))
	return q.Run(ctx, c.Int("concurrency"))
}

func sweepCommand(c *cli.Context) error {
	q, err := openQuarryLite(c)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}
	defer q.Close()

	id, err := q.Sweep(c.Context)
	if err != nil {
		return fmt.Errorf("failed to enqueue sweep: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Freshness sweep enqueued as job %s.\n", id)
	return nil
}

func scrapeCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one URL is required")
	}

	q, err := openQuarryLite(c)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}
	defer q.Close()

	for _, url := range c.Args().Slice() {
		id, err := q.Pipeline().EnqueueScrape(c.Context, url, nil)
		if err != nil {
			return fmt.Errorf("failed to enqueue scrape of %s: %w", url, err)
		}
		fmt.Fprintf(os.Stderr, "%s: job %s\n", url, id)
	}

	fmt.Fprintln(os.Stderr, "Run 'quarry work --scrape-service URL' to process the queued scrapes.")
	return nil
}

func watchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one directory is required")
	}
	dir := c.Args().First()

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	q, err := openQuarry(c)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}
	defer q.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Workers run alongside the watcher so dropped files are processed
	// immediately.
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- q.Run(ctx, c.Int("concurrency"))
	}()

	fmt.Fprintf(os.Stderr, "Watching %s; Ctrl-C to stop.\n", dir)
	if err := watchDirectory(ctx, q, dir); err != nil {
		stop()
		<-workerDone
		return err
	}
	return <-workerDone
}

// mimeForFile maps a file extension to the MIME type handed to the adapter
// registry. Unknown extensions fall back to text/plain; the document adapter
// sniffs binary formats from the bytes anyway.
func mimeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case ".rtf":
		return "application/rtf"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".ndjson", ".jsonl":
		return "application/x-ndjson"
	case ".html", ".htm":
		return "text/html"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".url", ".uri":
		return "text/uri-list"
	default:
		return "text/plain"
	}
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
