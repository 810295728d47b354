//go:build wireinject
// +build wireinject

package wire

import (
	"log/slog"

	"litscope/internal/config"
	"litscope/internal/mcp"
	"litscope/internal/messaging/embedded"
	"litscope/internal/pipeline"
	"litscope/internal/repository"

	"github.com/google/wire"
)

// Application is the complete set of long-lived components the daemon
// starts, serves from, and shuts down.
type Application struct {
	Config          *config.Config
	Store           repository.Store
	EmbeddedManager *embedded.Manager
	Coordinator     *pipeline.Coordinator
	MCP             *mcp.Server
	Logger          *slog.Logger
}

// InitializeApplication wires the full production dependency graph: real
// config, GORM store, embedded/external NATS, live adapters, and the
// Coordinator/MCP pair.
func InitializeApplication() (*Application, func(), error) {
	wire.Build(
		ProvideConfig,
		ProvideLogger,
		ProvideStore,
		ProvideEmbeddedManager,
		ProvideNotifier,
		ProvideCircuitBreakerManager,
		ProvideBibliographicAdapter,
		ProvideCitationAdapter,
		ProvideVocabularyAdapter,
		ProvideEmbedderAdapter,
		ProvideAdapters,
		ProvidePipelineConfig,
		ProvideCoordinator,
		ProvideMCPServer,
		ProvideApplication,
	)
	return nil, nil, nil
}

// InitializeDevelopmentApplication wires the same graph against
// development defaults (SQLite, embedded NATS, stub embedder).
func InitializeDevelopmentApplication() (*Application, func(), error) {
	wire.Build(
		ProvideDevelopmentConfig,
		ProvideLogger,
		ProvideStore,
		ProvideEmbeddedManager,
		ProvideNotifier,
		ProvideCircuitBreakerManager,
		ProvideBibliographicAdapter,
		ProvideCitationAdapter,
		ProvideVocabularyAdapter,
		ProvideEmbedderAdapter,
		ProvideAdapters,
		ProvidePipelineConfig,
		ProvideCoordinator,
		ProvideMCPServer,
		ProvideApplication,
	)
	return nil, nil, nil
}

// InitializeTestApplication wires an in-memory SQLite graph for tests.
func InitializeTestApplication() (*Application, func(), error) {
	wire.Build(
		ProvideTestConfig,
		ProvideLogger,
		ProvideStore,
		ProvideEmbeddedManager,
		ProvideNotifier,
		ProvideCircuitBreakerManager,
		ProvideBibliographicAdapter,
		ProvideCitationAdapter,
		ProvideVocabularyAdapter,
		ProvideEmbedderAdapter,
		ProvideAdapters,
		ProvidePipelineConfig,
		ProvideCoordinator,
		ProvideMCPServer,
		ProvideApplication,
	)
	return nil, nil, nil
}
