package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Amiralgaby/trsync/internal/config"
	"github.com/Amiralgaby/trsync/internal/engine"
	"github.com/Amiralgaby/trsync/internal/hub"
)

// httpClientTimeout bounds metadata calls. Content transfers use a client
// with no fixed timeout instead (see transferHTTPClient), since a large
// file on a slow connection can legitimately exceed this.
const httpClientTimeout = 60 * time.Second

// transferHTTPClient returns an HTTP client with no timeout, used for
// content upload/download — those are bounded by context cancellation
// instead of a fixed deadline.
func transferHTTPClient() *http.Client {
	return &http.Client{Timeout: 0}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the synchronization daemon",
		Long:  "Starts both watchers, the startup reconcilers, and the reconciliation handler; runs until SIGINT/SIGTERM.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), mustCLIContext(cmd.Context()))
		},
	}

	return cmd
}

func runDaemon(ctx context.Context, cc *CLIContext) error {
	cfg := cc.Cfg
	logger := cc.Logger

	root, err := filepath.Abs(cfg.Workspace.Path)
	if err != nil {
		return fmt.Errorf("canonicalizing workspace path %q: %w", cfg.Workspace.Path, err)
	}

	pidPath := config.DefaultPidFilePath()

	cleanup, err := writePIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("acquiring daemon lock: %w", err)
	}
	defer cleanup()

	store, err := engine.OpenStore(cfg.Sync.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer store.Close()

	hubClient, err := newHubClient(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("building hub client: %w", err)
	}

	pollInterval, err := time.ParseDuration(cfg.Sync.PollInterval)
	if err != nil {
		return fmt.Errorf("parsing sync.poll_interval: %w", err)
	}

	shutdownTimeout, err := time.ParseDuration(cfg.Sync.ShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parsing sync.shutdown_timeout: %w", err)
	}

	eng := engine.New(root, store, hubClient, logger, pollInterval)

	runCtx := shutdownContext(ctx, logger, shutdownTimeout)

	logger.Info("trsync starting", slog.String("workspace", root), slog.String("hub", cfg.Hub.BaseURL))

	if err := eng.Run(runCtx); err != nil {
		return fmt.Errorf("engine stopped: %w", err)
	}

	logger.Info("trsync stopped")

	return nil
}

// newHubClient builds the hub client and its token source from the resolved
// config: a static API key if configured, otherwise OAuth2 client-credentials.
func newHubClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*hub.Client, error) {
	var tokenSource hub.TokenSource

	switch {
	case cfg.Hub.APIKey != "":
		tokenSource = hub.StaticTokenSource(cfg.Hub.APIKey)
	case cfg.Hub.ClientID != "" && cfg.Hub.ClientSecret != "" && cfg.Hub.TokenURL != "":
		tokenSource = hub.NewClientCredentialsTokenSource(ctx, cfg.Hub.TokenURL, cfg.Hub.ClientID, cfg.Hub.ClientSecret, cfg.Hub.Scopes)
	default:
		return nil, fmt.Errorf("no hub credentials configured")
	}

	httpClient := &http.Client{Timeout: httpClientTimeout}

	client := hub.NewClient(cfg.Hub.BaseURL, httpClient, tokenSource, logger)
	client.SetTransferHTTPClient(transferHTTPClient())

	return client, nil
}
