// Package wire holds the compile-time dependency-injection graph for the
// litscope daemon, in the teacher's provider-function style.
package wire

import (
	"context"
	"log/slog"
	"os"
	"time"

	"litscope/internal/adapters/bibliographic"
	"litscope/internal/adapters/bibliographic/pubmed"
	"litscope/internal/adapters/citation"
	"litscope/internal/adapters/citation/crossref"
	"litscope/internal/adapters/citation/openalex"
	"litscope/internal/adapters/embedder"
	"litscope/internal/adapters/vocabulary"
	"litscope/internal/adapters/vocabulary/mesh"
	"litscope/internal/config"
	"litscope/internal/errors"
	"litscope/internal/mcp"
	"litscope/internal/messaging/embedded"
	"litscope/internal/models"
	"litscope/internal/pipeline"
	"litscope/internal/repository"
	"litscope/internal/scoring"
)

// Configuration providers

// ProvideConfig loads configuration from the environment/config file.
func ProvideConfig() (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger creates a structured logger, the way the teacher's
// ProvideLogger selects handler/level/output from Config.Logging.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	var output *os.File
	switch cfg.Logging.Output {
	case "stderr":
		output = os.Stderr
	case "file":
		if cfg.Logging.FilePath != "" {
			if f, err := os.OpenFile(cfg.Logging.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666); err == nil {
				output = f
			} else {
				output = os.Stdout
			}
		} else {
			output = os.Stdout
		}
	default:
		output = os.Stdout
	}

	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.Logging.AddSource}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(handler)
}

// Store provider

// ProvideStore opens the database and wires every repository against it.
func ProvideStore(cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	return repository.NewStore(cfg, logger)
}

// Messaging providers

// ProvideEmbeddedManager wraps an embedded NATS server when enabled, or a
// plain client against an external NATS deployment otherwise; its
// messaging.Manager (publisher/subscriber/health/metrics) is created lazily
// on Start.
func ProvideEmbeddedManager(cfg *config.Config, logger *slog.Logger) (*embedded.Manager, error) {
	return embedded.NewManager(&cfg.NATS, logger)
}

// ProvideNotifier wraps the embedded manager's publisher as the
// Coordinator's Notifier. The publisher is created only once the embedded
// manager's Start has run, so every call looks it up lazily rather than
// capturing it at wire time.
func ProvideNotifier(manager *embedded.Manager, logger *slog.Logger) pipeline.Notifier {
	return &embeddedNotifier{manager: manager, logger: logger}
}

// Adapter providers

// ProvideCircuitBreakerManager creates the shared registry of named circuit
// breakers the bibliographic/citation/vocabulary/embedder adapters trip
// into independently, so one flaky upstream doesn't exhaust retries against
// every adapter sharing this process.
func ProvideCircuitBreakerManager(logger *slog.Logger) *errors.CircuitBreakerManager {
	return errors.NewCircuitBreakerManager(logger)
}

// ProvideBibliographicAdapter constructs the PubMed E-utilities adapter.
func ProvideBibliographicAdapter(cfg *config.Config, logger *slog.Logger, breakers *errors.CircuitBreakerManager) bibliographic.Adapter {
	timeout := parseDurationOr(cfg.Adapters.Bibliographic.Timeout, 10*time.Second)
	return pubmed.New(pubmed.Config{
		BaseURL:   cfg.Adapters.Bibliographic.BaseURL,
		RateLimit: parseRateLimit(cfg.Adapters.Bibliographic.RateLimit),
		Timeout:   timeout,
	}, logger, breakers)
}

// ProvideCitationAdapter constructs the CrossRef-primary/OpenAlex-fallback
// composite adapter.
func ProvideCitationAdapter(cfg *config.Config, logger *slog.Logger, breakers *errors.CircuitBreakerManager) citation.Adapter {
	timeout := parseDurationOr(cfg.Adapters.Citation.Timeout, 10*time.Second)
	primary := crossref.New(cfg.Adapters.Citation.PrimaryBaseURL, timeout, logger, breakers)
	fallback := openalex.New(cfg.Adapters.Citation.FallbackBaseURL, timeout, logger, breakers)
	return citation.New(primary, fallback, logger)
}

// ProvideVocabularyAdapter constructs the MeSH keyword expansion adapter.
func ProvideVocabularyAdapter(cfg *config.Config, logger *slog.Logger, breakers *errors.CircuitBreakerManager) vocabulary.Adapter {
	timeout := parseDurationOr(cfg.Adapters.Vocabulary.Timeout, 10*time.Second)
	return mesh.New(cfg.Adapters.Vocabulary.BaseURL, timeout, logger, breakers)
}

// ProvideEmbedderAdapter constructs the HTTP embedder client, or a
// deterministic stub when no base URL is configured (development/test).
func ProvideEmbedderAdapter(cfg *config.Config, breakers *errors.CircuitBreakerManager) embedder.Embedder {
	if cfg.Adapters.Embedder.BaseURL == "" {
		return embedder.NewStub(cfg.Adapters.Embedder.Dimension)
	}
	timeout := parseDurationOr(cfg.Adapters.Embedder.Timeout, 10*time.Second)
	return embedder.New(cfg.Adapters.Embedder.BaseURL, cfg.Adapters.Embedder.Dimension, timeout, breakers)
}

// ProvideAdapters bundles the four adapters for the Coordinator.
func ProvideAdapters(
	bib bibliographic.Adapter,
	cit citation.Adapter,
	voc vocabulary.Adapter,
	emb embedder.Embedder,
) pipeline.Adapters {
	return pipeline.Adapters{Bibliographic: bib, Citation: cit, Vocabulary: voc, Embedder: emb}
}

// Pipeline providers

// ProvidePipelineConfig derives the Coordinator's tunables from Config.Pipeline.
func ProvidePipelineConfig(cfg *config.Config) pipeline.Config {
	weights := scoring.Weights{
		Novelty:  cfg.Pipeline.ScoreWeights.Novelty,
		Velocity: cfg.Pipeline.ScoreWeights.Velocity,
		Recency:  cfg.Pipeline.ScoreWeights.Recency,
	}
	if weights == (scoring.Weights{}) {
		weights = scoring.DefaultWeights()
	}

	return pipeline.Config{
		IngestConcurrency: cfg.Pipeline.IngestConcurrency,
		RecencyTauYears:   cfg.Pipeline.RecencyTauYears,
		ScoreWeights:      weights,
		ClusterMinSize:    cfg.Pipeline.ClusterMinSize,
		ClusterRandomSeed: cfg.Pipeline.ClusterRandomSeed,
		MaxResultsCap:     cfg.Pipeline.MaxResultsCap,
	}
}

// ProvideCoordinator wires the Pipeline Coordinator from the Store,
// adapters, configuration, and Notifier.
func ProvideCoordinator(
	store repository.Store,
	adapters pipeline.Adapters,
	cfg pipeline.Config,
	notifier pipeline.Notifier,
	logger *slog.Logger,
) *pipeline.Coordinator {
	return pipeline.New(store, adapters, cfg, notifier, logger)
}

// MCP provider

// ProvideMCPServer wraps the Coordinator's operations as MCP stdio tools.
func ProvideMCPServer(coordinator *pipeline.Coordinator, logger *slog.Logger) *mcp.Server {
	return mcp.New(coordinator, logger)
}

// Application providers

// ProvideApplication assembles every long-lived component the daemon's
// main loop needs to start and stop.
func ProvideApplication(
	cfg *config.Config,
	store repository.Store,
	embeddedManager *embedded.Manager,
	coordinator *pipeline.Coordinator,
	mcpServer *mcp.Server,
	logger *slog.Logger,
) *Application {
	return &Application{
		Config:          cfg,
		Store:           store,
		EmbeddedManager: embeddedManager,
		Coordinator:     coordinator,
		MCP:             mcpServer,
		Logger:          logger,
	}
}

// ProvideCleanup returns a function that releases the Store and messaging
// connections on shutdown.
func ProvideCleanup(store repository.Store, embeddedManager *embedded.Manager) func() {
	return func() {
		if embeddedManager != nil {
			_ = embeddedManager.Stop(context.Background())
		}
		if store != nil {
			_ = store.Close()
		}
	}
}

// Development/test configuration providers

// ProvideDevelopmentConfig returns a SQLite-backed configuration with
// development-friendly defaults when the environment has no config file.
func ProvideDevelopmentConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err == nil {
		return cfg
	}

	cfg = &config.Config{}
	cfg.Server.Mode = "debug"
	cfg.Database.Type = "sqlite"
	cfg.Database.SQLite.Path = "./dev-litscope.db"
	cfg.Database.SQLite.AutoMigrate = true
	cfg.NATS.URL = "nats://localhost:4222"
	cfg.NATS.Embedded.Enabled = true
	cfg.NATS.Embedded.Host = "127.0.0.1"
	cfg.NATS.Embedded.Port = 4222
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "text"
	cfg.Pipeline.IngestConcurrency = 4
	cfg.Pipeline.RecencyTauYears = 5
	cfg.Pipeline.ClusterMinSize = 3
	cfg.Pipeline.ClusterRandomSeed = 42
	cfg.Pipeline.MaxResultsCap = 200
	return cfg
}

// ProvideTestConfig returns an in-memory SQLite configuration for tests.
func ProvideTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Mode = "test"
	cfg.Database.Type = "sqlite"
	cfg.Database.SQLite.Path = ":memory:"
	cfg.Database.SQLite.AutoMigrate = true
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "text"
	cfg.Pipeline.IngestConcurrency = 2
	cfg.Pipeline.RecencyTauYears = 5
	cfg.Pipeline.ClusterMinSize = 2
	cfg.Pipeline.ClusterRandomSeed = 7
	cfg.Pipeline.MaxResultsCap = 50
	return cfg
}

// helpers

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func parseRateLimit(raw string) int {
	d := parseDurationOr(raw, 0)
	if d <= 0 {
		return 3
	}
	perSecond := int(time.Second / d)
	if perSecond < 1 {
		return 1
	}
	return perSecond
}

// embeddedNotifier implements pipeline.Notifier over the embedded NATS
// manager's lazily-created publisher, which does not exist until the
// manager's Start has run.
type embeddedNotifier struct {
	manager *embedded.Manager
	logger  *slog.Logger
}

func (n *embeddedNotifier) IngestStarted(ctx context.Context, searchID uint) {
	pub := n.manager.Publisher()
	if pub == nil {
		return
	}
	if err := pub.PublishIngestStarted(ctx, searchID); err != nil {
		n.logger.Error("failed to publish ingest started event", slog.Any("search_id", searchID), slog.String("error", err.Error()))
	}
}

func (n *embeddedNotifier) IngestCompleted(ctx context.Context, searchID uint, articlesIngested int) {
	pub := n.manager.Publisher()
	if pub == nil {
		return
	}
	if err := pub.PublishIngestCompleted(ctx, searchID, articlesIngested); err != nil {
		n.logger.Error("failed to publish ingest completed event", slog.Any("search_id", searchID), slog.String("error", err.Error()))
	}
}

func (n *embeddedNotifier) ScoringCompleted(ctx context.Context, searchID uint, score models.OpportunityScore) {
	pub := n.manager.Publisher()
	if pub == nil {
		return
	}
	err := pub.PublishScoringCompleted(ctx, searchID, score.NoveltyScore, score.CitationVelocityScore, score.RecencyScore, score.OverallScore)
	if err != nil {
		n.logger.Error("failed to publish scoring completed event", slog.Any("search_id", searchID), slog.String("error", err.Error()))
	}
}
