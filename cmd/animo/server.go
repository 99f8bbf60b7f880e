package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/animolabs/animo/internal/api"
	"github.com/animolabs/animo/internal/classify"
	"github.com/animolabs/animo/internal/coach"
	"github.com/animolabs/animo/internal/config"
	"github.com/animolabs/animo/internal/engine"
	"github.com/animolabs/animo/internal/session"
	"github.com/animolabs/animo/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the animo server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running animo server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show animo system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "animo.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "animo version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("animo is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("animo is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the generation engine. The first configuration wins; any
	// later Init calls are no-ops.
	engCfg := engine.Config{
		BaseURL:                 cfg.Engine.BaseURL,
		ModelPath:               cfg.Engine.ModelPath,
		CtxSize:                 cfg.Engine.CtxSize,
		Threads:                 cfg.Engine.Threads,
		GPULayers:               cfg.Engine.GPULayers,
		Verbose:                 cfg.Engine.Verbose,
		SupportsConcurrentCalls: cfg.Engine.Concurrent,
	}
	engines := engine.NewHandle()
	if err := engines.Init(engCfg); err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}
	eng, err := engines.Get()
	if err != nil {
		return err
	}
	// Re-read the config so the readiness probe reports derived defaults.
	engCfg, err = engines.Config()
	if err != nil {
		return err
	}

	classifier := classify.New(cfg.Classifier.BaseURL)

	// Probe both model services in parallel. An unreachable engine is fatal;
	// an unreachable classifier degrades to model_not_loaded errors at
	// request time, so it only warns.
	g, probeCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.EnsureReady(probeCtx, eng, engCfg, os.Stderr)
	})
	g.Go(func() error {
		if !classifier.IsRunning(probeCtx) {
			printWarning("emotion classifier not reachable at %s; /coach and /predict will fail until it is up", cfg.Classifier.BaseURL)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// Open the transcript archive.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	sessions := session.New(cfg.Coach.MaxTurns)
	coachSvc := coach.New(classifier, engines, sessions, store, engine.Options{
		Temperature: cfg.Coach.Temperature,
		TopP:        cfg.Coach.TopP,
		MaxTokens:   cfg.Coach.MaxTokens,
	})

	handler := api.NewHandler(api.Deps{
		Coach:   coachSvc,
		Archive: store,
		Token:   cfg.Server.APIToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Coach:   coachSvc,
		Archive: store,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "animo listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("animo is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop animo (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to animo (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	serverUp := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			serverUp = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Check the generation engine.
	engResp, err := client.Get(cfg.Engine.BaseURL + "/health")
	if err != nil {
		printStatus("Engine", "not running")
	} else {
		engResp.Body.Close()
		printStatus("Engine", "running at %s", cfg.Engine.BaseURL)
	}

	// Check the emotion classifier.
	clsResp, err := client.Get(cfg.Classifier.BaseURL + "/health")
	if err != nil {
		printStatus("Classifier", "not running")
	} else {
		clsResp.Body.Close()
		printStatus("Classifier", "running at %s", cfg.Classifier.BaseURL)
	}

	if cfg.Engine.ModelPath != "" {
		printStatus("Model", "%s", cfg.Engine.ModelPath)
	}

	// Show session counts if server is running.
	if serverUp {
		sessResp, err := apiGet(client, serverURL+"/sessions", cfg.Server.APIToken)
		if err == nil {
			var sessions struct {
				Live     []json.RawMessage `json:"live"`
				Archived []json.RawMessage `json:"archived"`
			}
			if json.NewDecoder(sessResp.Body).Decode(&sessions) == nil {
				printStatus("Live sessions", "%d", len(sessions.Live))
				printStatus("Archived sessions", "%d", len(sessions.Archived))
			}
			sessResp.Body.Close()
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
