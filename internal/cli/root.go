// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// annotationNoConfig marks commands that run without loading the config,
// so a broken file can still be inspected and repaired.
const annotationNoConfig = "streamchat/no-config"

// rootOptions holds the global flags and the state PersistentPreRunE
// prepares for the subcommands.
type rootOptions struct {
	configPath string
	baseURL    string
	logLevel   string
	jsonMode   bool

	cfg     *config.Config
	cfgPath string
	logger  *zap.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "streamchat",
		Short: "Terminal client for a streaming chat service",
		Long: `streamchat talks to a chat service that streams its replies as
newline-delimited JSON. Each chat keeps its own thread id and history for
the life of the process.

Getting started:
  # Open the full-screen chat
  streamchat

  # Ask one question and print the answer
  streamchat ask "What is the capital of France?"

  # Point at another server
  streamchat --base-url http://chat.internal:8000`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationNoConfig] == "true" {
				return nil
			}
			return opts.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default: ~/.streamchat/config.toml)")
	pf.StringVar(&opts.baseURL, "base-url", "", "chat service URL (overrides backend.base_url)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&opts.jsonMode, "json", false, "machine-readable output where supported")

	root.AddCommand(
		newTUICommand(opts),
		newChatCommand(opts),
		newAskCommand(opts),
		newWhoamiCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

// Execute runs the command tree and exits with a code for the error
// category. It is called by main.main().
func Execute() {
	root := NewRootCommand()
	cmd, err := root.ExecuteC()
	if err == nil {
		return
	}
	name := root.Name()
	if cmd != nil {
		name = cmd.Name()
	}
	jsonMode, _ := root.PersistentFlags().GetBool("json")
	DisplayError(os.Stderr, name, err, jsonMode)
	os.Exit(GetExitCode(err))
}

// load reads the configuration, applies flag overrides and builds the
// logger. The TUI owns the terminal, so it logs to a file.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, path, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if o.baseURL != "" || o.logLevel != "" {
		if o.baseURL != "" {
			cfg.Backend.BaseURL = o.baseURL
		}
		if o.logLevel != "" {
			cfg.Log.Level = o.logLevel
		}
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}
	}

	logCfg := cfg.Log
	if logCfg.File == "" && isTUICommand(cmd) {
		if file, err := config.DefaultLogFile(); err == nil {
			logCfg.File = file
		}
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}

	o.cfg = cfg
	o.cfgPath = path
	o.logger = logger
	logger.Debug("configuration loaded",
		zap.String("path", path),
		zap.String("base_url", cfg.Backend.BaseURL))
	return nil
}

func isTUICommand(cmd *cobra.Command) bool {
	return cmd.Name() == "tui" || !cmd.HasParent()
}
