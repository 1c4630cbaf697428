package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/Amiralgaby/trsync/internal/config"
)

func newInitCmd() *cobra.Command {
	var (
		workspace string
		hubURL    string
		force     bool
	)

	cmd := &cobra.Command{
		Use:          "init",
		Short:        "Write a starter config file",
		Annotations:  map[string]string{skipConfigAnnotation: "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := flagConfigPath
			if path == "" {
				path = config.DefaultConfigPath()
			}

			return runInit(path, workspace, hubURL, force)
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace directory to sync (required)")
	cmd.Flags().StringVar(&hubURL, "hub-url", "", "hub base URL (required)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(path, workspace, hubURL string, force bool) error {
	if workspace == "" {
		return fmt.Errorf("--workspace is required")
	}

	if hubURL == "" {
		return fmt.Errorf("--hub-url is required")
	}

	if path == "" {
		return fmt.Errorf("could not determine a default config path; pass --config")
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists; pass --force to overwrite", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	cfg := config.DefaultConfig()
	cfg.Workspace.Path = workspace
	cfg.Hub.BaseURL = hubURL

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Printf("wrote %s\n", path)
	fmt.Println("set hub.api_key, or hub.client_id/client_secret/token_url, before running trsync run")

	return nil
}
