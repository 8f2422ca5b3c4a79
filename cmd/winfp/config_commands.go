package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"winfp/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the winfp configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		path      string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration file",
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := configTarget(path)
			if err != nil {
				return err
			}
			if !overwrite {
				switch _, err := os.Stat(target); {
				case err == nil:
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "Destination for the configuration file (default: per-user config path)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func configTarget(flag string) (string, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(flag)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

// config validate loads the file itself so parse errors are reported as the
// command result instead of aborting in the pre-run hook.
func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and report the effective settings",
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var flag string
			if ctx.configFlag != nil {
				flag = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(flag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			p := newPrinter(cmd)
			p.header("Configuration")
			p.info("Config path", resolved)
			if !exists {
				p.warn("Config file not found; built-in defaults apply")
			}
			p.info("Service", cfg.Service.Name)
			p.info("Database directory", cfg.Storage.DatabaseDir)
			p.info("Registry key", `HKLM\`+cfg.Storage.RegistryKey)
			p.info("Logging", fmt.Sprintf("%s, level %s", cfg.Logging.Format, cfg.Logging.Level))
			if cfg.History.Enabled {
				p.info("History", cfg.History.Path)
			} else {
				p.info("History", "disabled")
			}
			p.pass("Configuration valid")
			return nil
		},
	}
}
