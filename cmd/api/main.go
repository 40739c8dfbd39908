package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scentMateAi/internal/auth"
	"scentMateAi/internal/config"
	"scentMateAi/internal/discovery"
	"scentMateAi/internal/events"
	"scentMateAi/internal/identify"
	"scentMateAi/internal/layering"
	"scentMateAi/internal/llm"
	"scentMateAi/internal/media"
	"scentMateAi/internal/profile"
	"scentMateAi/internal/recommend"
	"scentMateAi/internal/server"
	"scentMateAi/internal/storage"
	"scentMateAi/internal/wardrobe"
	"scentMateAi/internal/weather"
)

func main() {
	cfg := config.FromEnv()

	ctx := context.Background()
	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	defer store.Close()

	var uploader media.Uploader
	if cfg.Media.Bucket != "" && cfg.Media.Region != "" {
		uploader, err = media.NewUploader(ctx, media.Config{
			Bucket:         cfg.Media.Bucket,
			Region:         cfg.Media.Region,
			Endpoint:       cfg.Media.Endpoint,
			PublicURL:      cfg.Media.PublicURL,
			KeyPrefix:      cfg.Media.KeyPrefix,
			AccessKey:      cfg.Media.AccessKey,
			SecretKey:      cfg.Media.SecretKey,
			ForcePathStyle: cfg.Media.ForcePathStyle,
		})
		if err != nil {
			log.Fatalf("failed to init media uploader: %v", err)
		}
	} else {
		local, err := media.NewLocalUploader(cfg.Media.LocalDir, cfg.Media.LocalBaseURL)
		if err != nil {
			log.Fatalf("failed to init local media storage: %v", err)
		}
		uploader = local
		log.Println("media uploader: using local storage at", local.Dir(), "(S3 config missing)")
	}

	client := buildClient(cfg.AI)

	var (
		analyzer    *profile.Analyzer
		recommender *recommend.Engine
		planner     *layering.Planner
		discoverer  *discovery.Engine
		identifier  *identify.Identifier
	)
	if client != nil {
		analyzer = profile.NewAnalyzer(client)
		recommender = recommend.NewEngine(client)
		planner = layering.NewPlanner(client)
		discoverer = discovery.NewEngine(client)
		identifier = identify.NewIdentifier(client)
	} else {
		log.Println("assistant disabled: no AI credentials, taste profiles use heuristics only")
	}

	weatherProvider := weather.NewProvider(weather.Config{
		APIKey:   cfg.Weather.APIKey,
		CacheTTL: cfg.Weather.CacheTTL,
	})

	eventBroker := events.NewBroker()

	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET cannot be empty")
	}
	sessions := auth.SessionManager{
		Secret:       []byte(cfg.SessionSecret),
		SecureCookie: cfg.SecureCookies,
	}

	authHandler := auth.Handler{Store: store, Sessions: sessions}
	authMiddleware := auth.Middleware{Store: store, Sessions: sessions}

	wardrobeHandler := wardrobe.Handler{
		Store:       store,
		Uploader:    uploader,
		Identifier:  identifier,
		Analyzer:    analyzer,
		Recommender: recommender,
		Planner:     planner,
		Discovery:   discoverer,
		Weather:     weatherProvider,
		Events:      eventBroker,
	}

	srv := server.New(cfg.Port, authHandler, authMiddleware, wardrobeHandler)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown error: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

// buildClient selects the text generation backend. A nil return means no
// usable credentials were provided.
func buildClient(cfg config.AIConfig) llm.Client {
	if cfg.APIKey == "" {
		return nil
	}

	switch cfg.Provider {
	case "openai":
		log.Println("assistant ready: OpenAI")
		return llm.NewOpenAIClient(cfg.APIKey, cfg.Model)
	case "genai":
		log.Println("assistant ready: Gemini (genai sdk)")
		return llm.NewGenAIClient(cfg.APIKey, cfg.Model, cfg.Timeout)
	default:
		log.Println("assistant ready: Gemini")
		return llm.NewGeminiClient(cfg.APIKey, cfg.Model, cfg.VisionModel, cfg.Timeout, nil)
	}
}
