package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"secureauthhub/internal/agent"
	"secureauthhub/internal/ai"
	"secureauthhub/internal/app"
	"secureauthhub/internal/cache"
	"secureauthhub/internal/config"
	"secureauthhub/internal/pkg/docparse"
	"secureauthhub/internal/platform/database"
	"secureauthhub/internal/platform/objectstore"
	rabbitmqClient "secureauthhub/internal/platform/rabbitmq"
	redisClient "secureauthhub/internal/platform/redis"
	"secureauthhub/internal/platform/search"
	"secureauthhub/internal/rag"
	"secureauthhub/internal/repository"
	"secureauthhub/internal/worker"
)

// App owns every long-lived client and the services built on them. Fields
// left nil are treated as not configured.
type App struct {
	Config        *config.Config
	DB            *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	Publisher     *rabbitmqClient.MessagePublisher
	MessageWorker *worker.MessagePersistWorker
	ObjectStore   *objectstore.S3Store
	Search        *search.Client

	Items     *app.ItemService
	Auth      *app.AuthService
	Documents *app.DocumentService
	Chat      *app.ChatService
	Searcher  *app.SearchService

	StartedAt time.Time
}

type HealthCheck func(ctx context.Context) error

// SetupLogger installs the process-wide slog handler.
func SetupLogger(cfg *config.Config) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.App.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.App.Env == "prod" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler).With("app", cfg.App.Name))
}

// OpenDatabase connects with the configured driver and migrates the schema.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	db, err := database.New(ctx, cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg, StartedAt: time.Now()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if a.DB, err = OpenDatabase(ctx, cfg); err != nil {
		return nil, err
	}
	if a.Redis, err = redisClient.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	if a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL); err != nil {
		return nil, err
	}
	if a.ObjectStore, err = objectstore.New(ctx, cfg.ObjectStore); err != nil {
		return nil, err
	}
	if a.Search, err = search.New(ctx, cfg); err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(a.DB)
	itemRepo := repository.NewItemRepository(a.DB)
	docRepo := repository.NewDocumentRepository(a.DB)
	chunkRepo := repository.NewDocumentChunkRepository(a.DB)
	sessionRepo := repository.NewChatSessionRepository(a.DB)
	messageRepo := repository.NewChatMessageRepository(a.DB)

	historyCache := cache.NewHistoryCache(a.Redis, cache.Options{
		KeyPrefix:  cfg.Redis.KeyPrefix,
		HistoryTTL: time.Duration(cfg.Redis.HistoryTTLSeconds) * time.Second,
		DirtyTTL:   time.Duration(cfg.Redis.HistoryDirtyTTLSeconds) * time.Second,
	})
	a.Publisher = rabbitmqClient.NewMessagePublisher(a.MQConn, cfg.RabbitMQ.MessagePersistQueue)
	a.MessageWorker = worker.NewMessagePersistWorker(a.MQConn, messageRepo, historyCache, cfg.RabbitMQ.MessagePersistQueue)
	if err = a.MessageWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start message worker failed: %w", err)
	}

	parser, err := docparse.New(ctx)
	if err != nil {
		return nil, err
	}
	embedder := ai.NewEmbeddingClient(ai.NewOpenAICompatibleClient(), ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})
	llm, err := ai.NewChatModel(ctx, ai.ChatModelConfig{
		Provider: ai.ProviderOpenAI,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
	})
	if err != nil {
		return nil, err
	}
	indexer := rag.NewIndexer(chunkRepo, embedder)
	engine := rag.NewEngine(docRepo, chunkRepo, embedder, llm, cfg.LLM.TopK)

	var chatAgent app.Agent
	if cfg.Agent.Enabled {
		ag, err := newAgent(ctx, cfg, a.Search)
		if err != nil {
			return nil, err
		}
		chatAgent = ag
	}

	a.Items = app.NewItemService(itemRepo)
	a.Auth = app.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.JWTExpiration())
	a.Documents = app.NewDocumentService(docRepo, a.ObjectStore, parser, indexer, a.Search, cfg.Upload, cfg.ObjectStore.KeyPrefix)
	a.Chat = app.NewChatService(sessionRepo, messageRepo, a.Publisher, historyCache, engine, chatAgent)
	a.Searcher = app.NewSearchService(a.Search)

	slog.Info("application initialised",
		"db_driver", cfg.Database.Driver,
		"search_index", cfg.Search.Index,
		"agent", cfg.Agent.Enabled,
	)
	return a, nil
}

// newAgent builds the ReAct agent. Empty agent settings fall back to the
// main LLM settings.
func newAgent(ctx context.Context, cfg *config.Config, searcher agent.DocumentSearcher) (*agent.Agent, error) {
	modelCfg := ai.ChatModelConfig{
		Provider: cfg.Agent.Provider,
		BaseURL:  cfg.Agent.BaseURL,
		APIKey:   cfg.Agent.APIKey,
		Model:    cfg.Agent.Model,
	}
	if modelCfg.Provider == "" || modelCfg.Provider == ai.ProviderOpenAI {
		modelCfg.Provider = ai.ProviderOpenAI
		if modelCfg.BaseURL == "" {
			modelCfg.BaseURL = cfg.LLM.BaseURL
		}
	}
	if modelCfg.APIKey == "" {
		modelCfg.APIKey = cfg.LLM.APIKey
	}
	if modelCfg.Model == "" {
		modelCfg.Model = cfg.LLM.Model
	}

	chatModel, err := ai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, err
	}
	return agent.New(ctx, chatModel, searcher, agent.Config{
		WebSearch: cfg.Agent.WebSearch,
		MaxSteps:  cfg.Agent.MaxSteps,
	})
}

// HealthChecks returns a probe per configured dependency.
func (a *App) HealthChecks() map[string]HealthCheck {
	checks := map[string]HealthCheck{}
	if a.DB != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}
	if a.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if a.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	if a.ObjectStore != nil {
		checks["object_store"] = a.ObjectStore.Ping
	}
	if a.Search != nil {
		checks["search"] = a.Search.Ping
	}
	return checks
}

func (a *App) Close() error {
	var errs []error
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
