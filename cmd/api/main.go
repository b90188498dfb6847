package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pharmiliar/cost-engine/internal/adapters/cache"
	"github.com/pharmiliar/cost-engine/internal/adapters/database"
	"github.com/pharmiliar/cost-engine/internal/api/handlers"
	"github.com/pharmiliar/cost-engine/internal/api/routes"
	"github.com/pharmiliar/cost-engine/internal/application/services"
	"github.com/pharmiliar/cost-engine/internal/domain/providers"
	"github.com/pharmiliar/cost-engine/internal/infrastructure/clients/openai"
	"github.com/pharmiliar/cost-engine/internal/infrastructure/clients/postgres"
	redisclient "github.com/pharmiliar/cost-engine/internal/infrastructure/clients/redis"
	"github.com/pharmiliar/cost-engine/internal/infrastructure/observability"
	"github.com/pharmiliar/cost-engine/pkg/config"
	"github.com/pharmiliar/cost-engine/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Normalizer, optionally with an external synonym table.
	normalizer := utils.NewTextNormalizer()
	if cfg.Matcher.SynonymsPath != "" {
		normalizer, err = utils.NewTextNormalizerFromFile(cfg.Matcher.SynonymsPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Matcher.SynonymsPath).Msg("failed to load synonyms config")
		}
	}

	// The catalog is mandatory; the engine refuses to start without it.
	catalog := services.NewCatalogService(database.NewCatalogAdapter(pgClient))
	if err := catalog.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load service catalog")
	}
	log.Info().Int("records", catalog.Size()).Msg("service catalog loaded")

	// Durable query cache store. Redis when configured and reachable,
	// JSON file otherwise.
	var store providers.CacheStore
	if cfg.Cache.Store == "redis" {
		redisClient, err := redisclient.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, falling back to file cache store")
		} else {
			defer redisClient.Close()
			store = cache.NewRedisStore(redisClient, cfg.Cache.RedisKey)
			log.Info().Msg("query cache backed by redis")
		}
	}
	if store == nil {
		store = cache.NewFileStore(cfg.Cache.FilePath)
		log.Info().Str("path", cfg.Cache.FilePath).Msg("query cache backed by file store")
	}

	queryCache := services.NewQueryCacheService(normalizer, store, cfg.Cache.SimilarityThreshold, metrics)
	if err := queryCache.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to restore query cache, starting empty")
	} else {
		log.Info().Int("entries", queryCache.Len()).Msg("query cache restored")
	}

	graph := services.NewRelationshipService()
	graph.RebuildFrom(queryCache.Entries())
	log.Info().Int("edges", graph.EdgeCount()).Msg("relationship graph rebuilt")

	// The analysis collaborator is optional; without it every query
	// goes through the keyword heuristic.
	var analyzer providers.QueryAnalyzer
	if cfg.OpenAI.APIKey != "" {
		client, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize analysis client, using keyword heuristic only")
		} else {
			defer client.Close()
			analyzer = client
			log.Info().Str("model", cfg.OpenAI.Model).Msg("analysis client initialized")
		}
	} else {
		log.Warn().Msg("no analysis API key configured, using keyword heuristic only")
	}

	rules := services.DefaultCategoryRules(normalizer)
	if cfg.Matcher.RulesPath != "" {
		rules, err = services.LoadCategoryRules(cfg.Matcher.RulesPath, normalizer)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Matcher.RulesPath).Msg("failed to load category rules")
		}
	}

	matcher := services.NewMatcherService(catalog, normalizer, services.DefaultScoreWeights(), cfg.Matcher.ResultLimit)
	tiers := services.NewTierService(catalog)
	aggregator := services.NewAggregatorService(normalizer)

	searchService := services.NewSearchService(
		catalog, matcher, tiers, queryCache, graph, aggregator, rules,
		analyzer, normalizer, metrics,
		services.SearchOptions{
			AnalyzerTimeout: time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
			RankByPriority:  cfg.Matcher.RankByPriority,
			RelatedLimit:    3,
		},
	)

	router := routes.NewRouter(
		handlers.NewSearchHandler(searchService),
		handlers.NewCatalogHandler(catalog),
		metrics,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
