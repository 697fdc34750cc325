// Command ragkit-server exposes the knowledge base over HTTP and stdio
// JSON-RPC as six named tools, for use as a tool-protocol backend for AI
// assistants.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ragkit/ragkit"
	"github.com/ragkit/ragkit/embed"
	"github.com/ragkit/ragkit/llm"
	"github.com/ragkit/ragkit/mcp"
)

func main() {
	configPath := flag.String("config", "", "path to config file (TOML)")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	stdio := flag.Bool("stdio", false, "serve over stdio JSON-RPC instead of HTTP")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := ragkit.DefaultConfig()
	if *configPath != "" {
		loaded, err := ragkit.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if v := os.Getenv("RAGKIT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("RAGKIT_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("RAGKIT_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("RAGKIT_EMBED_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("RAGKIT_EMBED_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		slog.Error("configuring embedder", "error", err)
		os.Exit(1)
	}

	engine, err := ragkit.New(cfg, embedder)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	srvTools := mcp.New(engine)

	if *stdio {
		if err := serveStdio(context.Background(), srvTools); err != nil {
			slog.Error("stdio server error", "error", err)
			os.Exit(1)
		}
		return
	}

	apiKey := os.Getenv("RAGKIT_API_KEY")
	corsOrigins := os.Getenv("RAGKIT_CORS_ORIGINS")

	h := newHandler(srvTools)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tools/{name}", h.handleTool)
	mux.HandleFunc("GET /health", h.handleHealth)

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
}

func buildEmbedder(cfg ragkit.Config) (embed.Embedder, error) {
	if cfg.Embedding.Provider == "" || cfg.Embedding.Provider == "mock" {
		return embed.NewMockEmbedderWithConfig(cfg.EmbeddingDim, 8192), nil
	}

	provider, err := llm.NewProvider(llm.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
	})
	if err != nil {
		return nil, err
	}
	return embed.NewHTTPEmbedder(provider, cfg.EmbeddingDim, 8192), nil
}
