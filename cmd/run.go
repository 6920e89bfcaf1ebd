package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/addislabs/jobsift/internal/ai"
	"github.com/addislabs/jobsift/internal/ai/gemini"
	"github.com/addislabs/jobsift/internal/dedup"
	"github.com/addislabs/jobsift/internal/detect"
	"github.com/addislabs/jobsift/internal/extract"
	"github.com/addislabs/jobsift/internal/logger"
	"github.com/addislabs/jobsift/internal/pipeline"
	"github.com/addislabs/jobsift/internal/posting"
	"github.com/addislabs/jobsift/internal/secrets"
	"github.com/addislabs/jobsift/internal/store"
	"github.com/addislabs/jobsift/internal/sweeper"
	"github.com/addislabs/jobsift/internal/textnorm"
	"github.com/addislabs/jobsift/internal/utils"
)

// maxFeedLine bounds a single JSON-lines feed entry.
const maxFeedLine = 1 << 20

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest a feed of chat messages into the posting store",
	Long: "Reads JSON-lines messages (one object per line with source_channel_id, " +
		"message_id, posted_at and text) from a file or stdin and runs each through " +
		"the extraction pipeline.",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("input", "i", "-", "feed file to ingest, '-' for stdin")
	runCmd.Flags().Bool("dry-run", false, "keep postings in memory instead of the database")
	runCmd.Flags().Duration("follow", 0, "keep polling the input file for appended lines at this interval")
}

// run is the feed ingestion command.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zl, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zl.Fatal("getting a config", zap.Error(err))
	}

	zl.Info("starting jobsift", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	zl.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	input := cmd.Flag("input").Value.String()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	follow, _ := cmd.Flags().GetDuration("follow")

	st, cleanup, err := openStore(ctx, config, dryRun)
	if err != nil {
		zl.Fatal("opening the posting store", zap.Error(err))
	}
	defer cleanup()

	seen := openSeenCache(ctx, config, dryRun, zl)
	if seen != nil {
		defer seen.Close()
	}

	recognizer, err := newRecognizer(ctx, config.AI, zl)
	if err != nil {
		zl.Fatal("building the entity recognizer", zap.Error(err))
	}

	pipe, err := buildPipeline(config, st, seen, recognizer, zl)
	if err != nil {
		zl.Fatal("building the pipeline", zap.Error(err))
	}

	sw, err := sweeper.New(config.Sweeper, st, zl)
	if err != nil {
		zl.Fatal("building the retention sweeper", zap.Error(err))
	}

	if follow > 0 && input != "-" {
		if err := sw.Start(ctx); err != nil {
			zl.Fatal("starting the retention sweeper", zap.Error(err))
		}
		defer sw.Stop()

		if err := followFeed(ctx, pipe, input, follow, zl); err != nil && !errors.Is(err, context.Canceled) {
			zl.Fatal("following the feed", zap.Error(err))
		}
		return
	}

	reader, closeInput, err := openInput(input)
	if err != nil {
		zl.Fatal("opening the feed", zap.Error(err))
	}
	defer closeInput()

	counts, err := ingestFeed(ctx, pipe, reader, zl)
	logIngestSummary(zl, counts)
	if err != nil && !errors.Is(err, context.Canceled) {
		zl.Fatal("ingesting the feed", zap.Error(err))
	}

	sw.Sweep(ctx)
}

// openStore returns the posting store and its cleanup func. A dry run keeps
// everything in memory and never touches the database.
func openStore(ctx context.Context, config *Config, dryRun bool) (store.Store, func(), error) {
	if dryRun {
		return store.NewMemory(), func() {}, nil
	}

	if config.Database == nil {
		return nil, nil, errors.New("database section is required, or pass --dry-run")
	}

	databaseURL, err := secrets.Load(secrets.Source{
		Name:  "database url",
		Value: config.Database.URL,
		File:  config.Database.URLFile,
	})
	if err != nil {
		return nil, nil, err
	}

	pool, err := store.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}

	pg := store.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return pg, pool.Close, nil
}

// openSeenCache connects the optional redis fingerprint cache. Failures are
// logged and ignored; the store remains the source of truth.
func openSeenCache(ctx context.Context, config *Config, dryRun bool, zl *zap.Logger) *dedup.SeenCache {
	if dryRun || config.Redis == nil || strings.TrimSpace(config.Redis.URL) == "" {
		return nil
	}

	seen, err := dedup.NewSeenCache(ctx, config.Redis.URL, config.Dedup.RecencyWindow, zl)
	if err != nil {
		zl.Warn("redis unavailable, deduplicating against the store only", zap.Error(err))
		return nil
	}

	return seen
}

// newRecognizer builds the Gemini-backed entity recognizer when the ai
// section enables it. A nil recognizer disables the NLP extraction pass.
func newRecognizer(ctx context.Context, config *AIConfig, zl *zap.Logger) (ai.Recognizer, error) {
	if config == nil || !config.Enabled {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(config.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", config.Provider)
	}

	if config.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.LoadOptional(secrets.Source{
		Name:  "gemini api key",
		Value: config.Gemini.APIKey,
		File:  config.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		zl.Warn("ai enabled but no gemini api key configured, continuing without nlp extraction " +
			"(set ai.gemini.api-key-file or GEMINI_API_KEY)")
		return nil, nil
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, config.Gemini.Model, config.Gemini.MaxRetries, zl)
	if err != nil {
		return nil, err
	}

	return gemini.NewRecognizer(generator, zl, config.Gemini.MaxLogLength), nil
}

// buildPipeline assembles the shared pipeline collaborators from config.
func buildPipeline(config *Config, st store.Store, seen *dedup.SeenCache, recognizer ai.Recognizer, zl *zap.Logger) (*pipeline.Pipeline, error) {
	normalizer := textnorm.New(nil)
	detector := detect.New(config.Detection)

	extractors := []extract.Extractor{extract.NewRuleExtractor(config.Detection.Locations)}
	if recognizer != nil {
		extractors = append(extractors, extract.NewNLPExtractor(recognizer, zl))
	}

	checker := dedup.New(config.Dedup, st, seen, zl)

	return pipeline.New(config.Pipeline, pipeline.Deps{
		Normalizer: normalizer,
		Detector:   detector,
		Extractors: extractors,
		Checker:    checker,
		Store:      st,
		Seen:       seen,
		Logger:     zl,
	})
}

func openInput(input string) (io.Reader, func() error, error) {
	if input == "-" {
		return os.Stdin, func() error { return nil }, nil
	}

	f, err := os.Open(input)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// ingestFeed runs every feed line through the pipeline and tallies outcomes.
// Malformed lines are skipped with a warning; collaborator failures abort.
func ingestFeed(ctx context.Context, pipe *pipeline.Pipeline, r io.Reader, zl *zap.Logger) (map[pipeline.Outcome]int, error) {
	counts := make(map[pipeline.Outcome]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFeedLine)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		if err := processFeedLine(ctx, pipe, scanner.Text(), counts, zl); err != nil {
			return counts, err
		}
	}

	return counts, scanner.Err()
}

// ingestCompleteLines ingests newline-terminated lines only and reports the
// bytes consumed. A poll that catches a non-atomic append mid-line leaves the
// trailing fragment unconsumed so the next poll sees the whole line.
func ingestCompleteLines(ctx context.Context, pipe *pipeline.Pipeline, r io.Reader, zl *zap.Logger) (map[pipeline.Outcome]int, int64, error) {
	counts := make(map[pipeline.Outcome]int)
	reader := bufio.NewReaderSize(r, 64*1024)

	var consumed int64
	for {
		if err := ctx.Err(); err != nil {
			return counts, consumed, err
		}

		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			if len(line) > maxFeedLine {
				// A never-terminated run would otherwise be re-read on
				// every poll.
				consumed += int64(len(line))
				zl.Warn("skipping oversized feed fragment", zap.Int("bytes", len(line)))
			}
			return counts, consumed, nil
		}
		if err != nil {
			return counts, consumed, err
		}

		consumed += int64(len(line))
		if err := processFeedLine(ctx, pipe, line, counts, zl); err != nil {
			return counts, consumed, err
		}
	}
}

// processFeedLine parses and processes one feed line, counting the outcome.
// Blank and malformed lines are skipped; only pipeline failures propagate.
func processFeedLine(ctx context.Context, pipe *pipeline.Pipeline, line string, counts map[pipeline.Outcome]int, zl *zap.Logger) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	var msg posting.RawMessage
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		zl.Warn("skipping malformed feed line", zap.Error(err))
		return nil
	}
	if msg.PostedAt.IsZero() {
		msg.PostedAt = time.Now()
	}

	result, err := pipe.Process(ctx, msg)
	if err != nil {
		return fmt.Errorf("processing %s: %w", msg.Key(), err)
	}
	counts[result.Outcome]++
	return nil
}

// followFeed re-reads the input file from the last consumed offset until the
// context is cancelled. New complete lines appended between polls are
// ingested; a partial trailing line waits for its newline. A truncated file
// restarts from the beginning.
func followFeed(ctx context.Context, pipe *pipeline.Pipeline, input string, interval time.Duration, zl *zap.Logger) error {
	var offset int64

	for {
		f, err := os.Open(input)
		if err != nil {
			return err
		}

		info, err := f.Stat()
		if err != nil {
			f.Close()
			return err
		}
		if info.Size() < offset {
			zl.Info("feed file truncated, restarting from the beginning")
			offset = 0
		}

		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return err
		}

		counts, consumed, err := ingestCompleteLines(ctx, pipe, f, zl)
		f.Close()
		if err != nil {
			return err
		}
		offset += consumed

		if len(counts) > 0 {
			logIngestSummary(zl, counts)
		}

		if err := utils.WaitFor(ctx, interval); err != nil {
			return err
		}
	}
}

func logIngestSummary(zl *zap.Logger, counts map[pipeline.Outcome]int) {
	total := 0
	for _, n := range counts {
		total += n
	}

	zl.Info("feed ingested",
		zap.Int("messages", total),
		zap.Int("accepted", counts[pipeline.Accepted]),
		zap.Int("not_candidate", counts[pipeline.NotCandidate]),
		zap.Int("no_title", counts[pipeline.NoTitle]),
		zap.Int("duplicate", counts[pipeline.Duplicate]),
	)
}
