package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Amiralgaby/trsync/internal/config"
	"github.com/Amiralgaby/trsync/internal/engine"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running and summarize the index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(mustCLIContext(cmd.Context()))
		},
	}

	return cmd
}

func runStatus(cc *CLIContext) error {
	cfg := cc.Cfg

	pidPath := config.DefaultPidFilePath()

	if pid, live := pidFileIsLive(pidPath); live {
		fmt.Printf("daemon: running (pid %d)\n", pid)
	} else {
		fmt.Println("daemon: not running")
	}

	fmt.Printf("workspace: %s\n", cfg.Workspace.Path)
	fmt.Printf("hub: %s\n", cfg.Hub.BaseURL)

	store, err := engine.OpenStore(cfg.Sync.DatabasePath, cc.Logger)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer store.Close()

	paths, err := store.GetAllRelativePaths(context.Background())
	if err != nil {
		return fmt.Errorf("listing index: %w", err)
	}

	fmt.Printf("indexed entries: %s\n", humanize.Comma(int64(len(paths))))

	return nil
}
