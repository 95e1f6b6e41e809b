// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration management commands.
//
// Command: config [show|path|init|get|set|keys]
//
// Examples:
//   streamchat config show                 Show the effective configuration
//   streamchat config init                 Write ~/.streamchat/config.toml
//   streamchat config get ui.theme         Print one value
//   streamchat config set ui.theme dark    Change one value and save

package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/streamchat/internal/config"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
		Long: `Show or change configuration.

Files are looked up in this order: --config, then config.toml, config.yaml
and config.json under ~/.streamchat. Environment variables
STREAMCHAT_BASE_URL, STREAMCHAT_LOG_LEVEL, STREAMCHAT_THEME and
STREAMCHAT_NO_IDENTITY override the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.OutOrStdout(), opts)
		},
	}

	noConfig := map[string]string{annotationNoConfig: "true"}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.OutOrStdout(), opts)
		},
	}

	path := &cobra.Command{
		Use:         "path",
		Short:       "Print the config file location",
		Args:        cobra.NoArgs,
		Annotations: noConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveConfigPath(opts.configPath)
			if err != nil {
				return err
			}
			if opts.jsonMode {
				return NewJSONResponse("config path", map[string]string{"path": p}).Print(cmd.OutOrStdout())
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the default configuration file",
		Args:        cobra.NoArgs,
		Annotations: noConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := opts.configPath
			if p == "" {
				var err error
				if p, err = config.ConfigPathTOML(); err != nil {
					return err
				}
			}
			if _, err := os.Stat(p); err == nil && !force {
				return &UsageError{Message: fmt.Sprintf("%s already exists (use --force to overwrite)", p)}
			}
			if err := config.SaveTOML(config.Default(), p); err != nil {
				return NewCommandError("config init", "", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote "+p)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	get := &cobra.Command{
		Use:   "get KEY",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := opts.cfg.Get(args[0])
			if err != nil {
				return &UsageError{Message: err.Error()}
			}
			if opts.jsonMode {
				return NewJSONResponse("config get", map[string]interface{}{args[0]: v}).Print(cmd.OutOrStdout())
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}

	set := &cobra.Command{
		Use:         "set KEY VALUE",
		Short:       "Change one value and save the file",
		Args:        cobra.ExactArgs(2),
		Annotations: noConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := setConfigValue(opts.configPath, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", args[0], args[1], p)
			return nil
		},
	}

	keys := &cobra.Command{
		Use:         "keys",
		Short:       "List configuration keys",
		Args:        cobra.NoArgs,
		Annotations: noConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range config.Keys() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}

	cmd.AddCommand(show, path, initCmd, get, set, keys)
	return cmd
}

func showConfig(w io.Writer, opts *rootOptions) error {
	if opts.jsonMode {
		return NewJSONResponse("config show", opts.cfg).Print(w)
	}
	source := opts.cfgPath
	if source == "" {
		source = "built-in defaults"
	}
	fmt.Fprintln(w, "# Source: "+source)
	return toml.NewEncoder(w).Encode(opts.cfg)
}

// resolveConfigPath returns the file in use: the flag, the first existing
// search path, or the default TOML location.
func resolveConfigPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	paths, err := config.SearchPaths()
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return paths[0], nil
}

// setConfigValue edits one key of the file without applying environment
// overrides, validates the result and writes it back.
func setConfigValue(flag, key, value string) (string, error) {
	p, err := resolveConfigPath(flag)
	if err != nil {
		return "", err
	}
	if config.FormatFor(p) != config.FormatTOML {
		return "", &UsageError{Message: fmt.Sprintf("config set only edits TOML files, not %s", p)}
	}

	cfg := config.Default()
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return "", fmt.Errorf("failed to read config %s: %w", p, err)
	default:
		if err := config.Decode(cfg, data, config.FormatTOML); err != nil {
			return "", fmt.Errorf("failed to load config from %s: %w", p, err)
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return "", &UsageError{Message: err.Error()}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if err := config.SaveTOML(cfg, p); err != nil {
		return "", err
	}
	return p, nil
}
