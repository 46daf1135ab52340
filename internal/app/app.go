// Package app wires the configured model clients, session store and workflow
// controller shared by the web server and the chat bot.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"visionary-spaces/internal/config"
	"visionary-spaces/internal/design"
	"visionary-spaces/internal/gemini"
	"visionary-spaces/internal/httpclient"
	"visionary-spaces/internal/imagedata"
	"visionary-spaces/internal/model"
	"visionary-spaces/internal/openaivision"
	"visionary-spaces/internal/session"
	"visionary-spaces/internal/workflow"
)

type App struct {
	Controller *workflow.Controller
	HTTPClient *http.Client
	Sessions   session.Store[workflow.State]
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	gem := gemini.New(gemini.Options{
		APIKey:        cfg.GeminiAPIKey,
		BaseURL:       cfg.GeminiBaseURL,
		APIVersion:    cfg.GeminiAPIVersion,
		AnalysisModel: cfg.GeminiAnalysisModel,
		ImageModel:    cfg.GeminiImageModel,
		HTTPClient:    httpClient,
		Logger:        logger,
	})

	vision, err := newVision(cfg, gem, httpClient, logger)
	if err != nil {
		return nil, err
	}

	sessions, err := session.New[workflow.State](session.Config{
		Driver: cfg.SessionDriver,
		TTL:    cfg.SessionTTL,
		Redis: &session.RedisConfig{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	generator := design.NewGenerator(gem, design.GeneratorOptions{
		Variations:  cfg.DesignVariations,
		Concurrency: cfg.GenerationConcurrency,
		Logger:      logger,
	})

	ctrl := workflow.NewController(workflow.Options{
		Store:     sessions,
		Validator: imagedata.NewValidator(cfg.MaxUploadBytes),
		RoomTypes: design.NewRoomTypeDetector(vision, logger),
		Objects:   design.NewObjectDetector(vision, logger),
		Generator: generator,
		Logger:    logger,
	})

	logger.Info("app configured",
		"analysis_provider", cfg.AnalysisProvider,
		"session_driver", cfg.SessionDriver,
		"variations", generator.Variations(),
		"generation_concurrency", cfg.GenerationConcurrency)

	return &App{Controller: ctrl, HTTPClient: httpClient, Sessions: sessions}, nil
}

func newVision(cfg config.Config, gem *gemini.Client, httpClient *http.Client, logger *slog.Logger) (model.Vision, error) {
	if cfg.AnalysisProvider != config.ProviderOpenAI {
		return gem, nil
	}
	client, err := openaivision.New(openaivision.Options{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIVisionModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("openai vision: %w", err)
	}
	return client, nil
}

func (a *App) Close(ctx context.Context) error {
	return a.Sessions.Close(ctx)
}
