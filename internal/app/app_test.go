package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"visionary-spaces/internal/config"
	"visionary-spaces/internal/workflow"
)

func testConfig() config.Config {
	return config.Config{
		GeminiAPIKey:          "key",
		GeminiBaseURL:         "http://127.0.0.1:1",
		AnalysisProvider:      config.ProviderGemini,
		HTTPTimeout:           time.Second,
		DesignVariations:      5,
		GenerationConcurrency: 1,
		MaxUploadBytes:        4 << 20,
		SessionDriver:         "memory",
		SessionTTL:            time.Minute,
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewWithRedisSessions(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	cfg := testConfig()
	cfg.SessionDriver = "redis"
	cfg.RedisAddr = mr.Addr()
	cfg.RedisPrefix = "app-test:"

	a, err := New(cfg, discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(context.Background())

	ctx := context.Background()
	res, err := a.Controller.NewSession(ctx, "Lin")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if !mr.Exists("app-test:" + res.View.ID) {
		t.Fatalf("session should be stored in redis")
	}

	if _, err := a.Controller.UpdateDraft(ctx, res.View.ID, workflow.Form{DesignStyle: "Japandi"}); err != nil {
		t.Fatalf("UpdateDraft: %v", err)
	}
	got, err := a.Controller.Get(ctx, res.View.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.View.Draft.DesignStyle != "Japandi" || got.View.Name != "Lin" {
		t.Fatalf("redis round trip lost data: %+v", got.View)
	}

	_, err = a.Controller.Submit(ctx, res.View.ID, workflow.Form{RoomType: "Office", DesignStyle: "Japandi"})
	if !errors.Is(err, workflow.ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	cfg := testConfig()
	cfg.AnalysisProvider = config.ProviderOpenAI
	if _, err := New(cfg, discard()); err == nil {
		t.Fatal("expected error without an OpenAI key")
	}

	cfg.OpenAIAPIKey = "sk-test"
	a, err := New(cfg, discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = a.Close(context.Background())
}

func TestNewUnknownSessionDriver(t *testing.T) {
	cfg := testConfig()
	cfg.SessionDriver = "etcd"
	if _, err := New(cfg, discard()); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}
