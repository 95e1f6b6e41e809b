// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/ui/tui"
)

func newTUICommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the full-screen chat (default)",
		Long: `Start the full-screen chat with a session sidebar.

The config file is watched while the TUI runs; a new backend.base_url or
ui.theme applies without a restart. Logs go to ~/.streamchat/streamchat.log
unless log.file is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
}

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	if err := RequiresTTY("run the TUI"); err != nil {
		return err
	}

	a := newApp(opts)
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	return tui.Run(ctx, tui.Options{
		Orchestrator: a.orch,
		Client:       a.client,
		Identity:     a.identity,
		Config:       a.cfg,
		ConfigPath:   watchPath(opts.cfgPath, a.logger),
		Logger:       a.logger.Named("tui"),
	})
}

// watchPath is the file to watch for hot reload: the loaded file, or the
// default location so that a later "config init" is picked up.
func watchPath(loaded string, logger *zap.Logger) string {
	if loaded != "" {
		return loaded
	}
	if err := config.EnsureConfigDir(); err != nil {
		logger.Debug("config watch disabled", zap.Error(err))
		return ""
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return ""
	}
	return path
}
