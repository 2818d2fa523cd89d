package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"supportdesk/pkg/agent"
	"supportdesk/pkg/channels"
	_ "supportdesk/pkg/channels/autoload" // registers channel factories
	"supportdesk/pkg/config"
	"supportdesk/pkg/gateway"
	"supportdesk/pkg/handler"
	"supportdesk/pkg/llm"
	_ "supportdesk/pkg/llm/autoload" // registers LLM providers
	"supportdesk/pkg/monitor"
	"supportdesk/pkg/tools"
)

const (
	appConfigPath    = "config.json"
	systemConfigPath = "system.json"
)

func main() {
	cfg, sysCfg, err := config.Load(appConfigPath, systemConfigPath)
	monitor.SetupSlog(sysCfg.LogLevel)
	monitor.PrintBanner()

	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// --- 1. Completion provider ---
	client, err := llm.NewFromConfig(cfg.LLM, sysCfg)
	if err != nil {
		slog.Error("Failed to init LLM client", "error", err)
		os.Exit(1)
	}

	// --- 2. Tools and agent ---
	registry := tools.NewDefaultRegistry(tools.NewDefaultOrderStore())
	engine := agent.NewAgentEngine(client, registry, cfg.SystemPrompt, sysCfg)

	sessions := llm.NewBoundedSessionManager(sysCfg.MaxSessions)
	chatHandler := handler.NewChatHandler(engine, sessions, sysCfg)

	// --- 3. Channels and gateway ---
	chans := channels.LoadFromConfig(cfg.Channels, channels.Dependencies{
		System:   sysCfg,
		Sessions: sessions,
	})
	if len(chans) == 0 {
		slog.Error("No channel could be started")
		os.Exit(1)
	}

	gw, err := gateway.NewGatewayBuilder().
		WithSystemConfig(sysCfg).
		WithMonitor(monitor.NewCLIMonitor()).
		WithChannel(chans...).
		WithAgentEngine(engine).
		WithHandler(chatHandler).
		Build()
	if err != nil {
		slog.Error("Failed to build gateway", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- 4. Hot reload of engine settings ---
	reloads := config.WatchConfig(ctx, systemConfigPath)
	go func() {
		for range reloads {
			reloaded := config.LoadSystemConfig(systemConfigPath)
			monitor.SetLevel(reloaded.LogLevel)
		}
	}()

	<-ctx.Done()
	slog.Info("Received shutdown signal, stopping services")

	gw.StopAll()
	slog.Info("Bye!")
}
