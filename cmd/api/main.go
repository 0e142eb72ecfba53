package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ashserver/internal/chatstore"
	"ashserver/internal/http/handlers"
	"ashserver/internal/http/httpapi"
	"ashserver/internal/infra"
	"ashserver/internal/infra/clerk"
	"ashserver/internal/infra/credentials"
	"ashserver/internal/infra/geoip"
	"ashserver/internal/llm"
	"ashserver/internal/middleware"
	"ashserver/internal/pdf"
	"ashserver/internal/providers/historychat"
	"ashserver/internal/providers/ragstory"
	"ashserver/internal/providers/story"
	"ashserver/internal/providers/websearch"
	"ashserver/internal/storage"
	"ashserver/internal/videogen"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		bootLogger := infra.NewLogger("development")
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)

	chats := chatstore.New(runner)

	artifacts, err := storage.NewArtifactStore(cfg.VideosDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("init artifact store")
	}

	geminiKey := cfg.GeminiAPIKey
	if geminiKey == "" {
		geminiKey, err = credentials.NewStore(runner).GeminiAPIKey(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("load gemini credential")
		}
	}
	if geminiKey == "" {
		logger.Fatal().Msg("gemini api key missing: set GEMINI_API_KEY or store a credential")
	}
	gemini, err := llm.NewGeminiClient(ctx, llm.GeminiOptions{
		APIKey:     geminiKey,
		Model:      cfg.GeminiModel,
		EmbedModel: cfg.GeminiEmbedModel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init gemini client")
	}

	exemplars, err := ragstory.LoadTable(cfg.ExemplarCSVPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.ExemplarCSVPath).
			Msg("exemplar corpus unavailable, stories run without style context")
		exemplars = ragstory.EmptyTable()
	}
	ragGen := ragstory.NewGenerator(gemini, gemini, exemplars)

	searcher, err := websearch.New(websearch.Options{
		MaxResults: cfg.SearchMaxResults,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init web search")
	}
	historyBot := historychat.New(searcher, gemini)

	storyClient, err := story.NewClient(story.Options{
		BaseURL:  cfg.StoryGenAPI,
		MaxSteps: cfg.StoryMaxSteps,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init story client")
	}

	staticBackend, err := videogen.NewStaticClient(videogen.StaticOptions{BaseURL: cfg.VideoStaticAPI})
	if err != nil {
		logger.Fatal().Err(err).Msg("init static video client")
	}
	fluidBackend, err := videogen.NewFluidClient(videogen.FluidOptions{
		BaseURL: cfg.VideoFluidAPI,
		Frames:  cfg.FluidFrames,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init fluid video client")
	}
	videoSvc := videogen.NewService(videogen.ServiceOptions{
		Ledger:        chats,
		Artifacts:     artifacts,
		Poller:        videogen.NewPoller(cfg.PollBudget, &logger),
		Flight:        videogen.NewFlight(),
		PublicBaseURL: cfg.PublicBaseURL,
		Logger:        &logger,
	})

	verifier, err := clerk.NewVerifier(clerk.Options{
		Issuer:            cfg.ClerkIssuer,
		Audience:          cfg.ClerkAudience,
		AuthorizedParties: []string{cfg.ClientURL},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init clerk verifier")
	}

	countryLookup := countryLookupFromConfig(cfg, logger)

	app := &handlers.App{
		Logger:        &logger,
		Chats:         chats,
		Video:         videoSvc,
		StaticBackend: staticBackend,
		FluidBackend:  fluidBackend,
		RAGStory:      ragGen,
		Story:         storyClient,
		HistoryBot:    historyBot,
		PDF:           pdf.NewRenderer(pdf.Options{FontPath: cfg.PDFFontPath}),
	}

	router := httpapi.NewRouter(httpapi.Options{
		App:             app,
		Verifier:        verifier,
		Logger:          logger,
		AllowedOrigins:  []string{cfg.ClientURL},
		CountryLookup:   countryLookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
		VideosDir:       artifacts.BasePath(),
	})

	server := infra.NewHTTPServer(cfg, router)
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("api listening")
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		logger.Fatal().Err(err).Msg("server stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
		os.Exit(1)
	}
	logger.Info().Msg("bye")
}

func countryLookupFromConfig(cfg *infra.Config, logger infra.Logger) middleware.CountryLookup {
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip unavailable, locale detection uses headers only")
		return nil
	}
	if resolver == nil {
		return nil
	}
	return resolver.CountryCode
}
