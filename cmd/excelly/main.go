package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/CHULJU-KIM/Excelly/internal/api"
	"github.com/CHULJU-KIM/Excelly/internal/assistant"
	"github.com/CHULJU-KIM/Excelly/internal/classifier"
	"github.com/CHULJU-KIM/Excelly/internal/config"
	"github.com/CHULJU-KIM/Excelly/internal/conversation"
	"github.com/CHULJU-KIM/Excelly/internal/prompt"
	"github.com/CHULJU-KIM/Excelly/internal/provider"
	"github.com/CHULJU-KIM/Excelly/internal/router"
	"github.com/CHULJU-KIM/Excelly/internal/session"
	"github.com/CHULJU-KIM/Excelly/internal/sheet"
)

func main() {
	configPath := flag.String("config", "", "path to config file (TOML)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)
	slog.Info("excelly starting", "addr", cfg.Server.Addr)

	store, err := session.Open(cfg.Session.DBPath)
	if err != nil {
		slog.Error("failed to open session store", "error", err, "path", cfg.Session.DBPath)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("session store ready", "path", cfg.Session.DBPath)

	reg := buildRegistry(cfg)
	for _, st := range reg.Statuses() {
		slog.Info("provider registered",
			"name", st.Name, "tier", st.Tier, "available", st.Available)
	}

	cls := classifier.New(classifier.DefaultRules())
	machine := conversation.NewMachine(cls, cfg.Conversation.MaxClarifications)
	assembler := prompt.NewAssembler(cfg.Conversation.HistoryBudget)
	rt := router.New(reg, cfg.RequestTimeout(), cfg.Routing.MaxTokens, log)
	reader := sheet.NewReader(cfg.Upload.MaxFileBytes, cfg.Upload.AllowedTypes)
	gen, err := sheet.NewGenerator(cfg.Upload.GeneratedDir, reader)
	if err != nil {
		slog.Error("failed to prepare generated file dir", "error", err, "path", cfg.Upload.GeneratedDir)
		os.Exit(1)
	}

	a := assistant.New(cfg, store, reader, gen, cls, machine, assembler, rt, reg, log)

	// Expire idle sessions in the background.
	go func() {
		ticker := time.NewTicker(cfg.SessionTimeout())
		defer ticker.Stop()
		for range ticker.C {
			if n, err := a.Cleanup(); err != nil {
				slog.Error("session cleanup failed", "error", err)
			} else if n > 0 {
				slog.Info("expired idle sessions", "count", n)
			}
		}
	}()

	srv := api.NewServer(cfg.Server.Addr, a, cfg.Upload.MaxFileBytes, log)
	if err := srv.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// buildRegistry constructs the provider fleet from config. Providers
// without an API key stay registered but report unavailable, so routing
// can fail over instead of crashing at startup.
func buildRegistry(cfg *config.Config) *provider.Registry {
	timeout := cfg.RequestTimeout()

	flash := provider.NewGeminiClient(&provider.GeminiConfig{
		APIKey:  cfg.Providers.Gemini.APIKey,
		BaseURL: cfg.Providers.Gemini.BaseURL,
		Model:   cfg.Providers.Gemini.FlashModel,
		Tier:    provider.TierFast,
		Image:   true,
		Timeout: timeout,
	})
	mid := provider.NewGeminiClient(&provider.GeminiConfig{
		APIKey:  cfg.Providers.Gemini.APIKey,
		BaseURL: cfg.Providers.Gemini.BaseURL,
		Model:   cfg.Providers.Gemini.MidModel,
		Tier:    provider.TierStandard,
		Timeout: timeout,
	})
	precise := provider.NewOpenAIClient(&provider.OpenAIConfig{
		APIKey:  cfg.Providers.OpenAI.APIKey,
		BaseURL: cfg.Providers.OpenAI.BaseURL,
		Model:   cfg.Providers.OpenAI.Model,
		Tier:    provider.TierPrecise,
		Timeout: timeout,
	})
	pro := provider.NewGeminiClient(&provider.GeminiConfig{
		APIKey:  cfg.Providers.Gemini.APIKey,
		BaseURL: cfg.Providers.Gemini.BaseURL,
		Model:   cfg.Providers.Gemini.ProModel,
		Tier:    provider.TierMax,
		Timeout: timeout,
	})

	return provider.NewRegistry(flash, mid, precise, pro)
}
