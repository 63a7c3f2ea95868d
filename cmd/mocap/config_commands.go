package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mocap/internal/config"
	"mocap/internal/logging"
	"mocap/internal/pipeline"
	"mocap/internal/skeleton"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, err := os.Stat(target)
				switch {
				case err == nil:
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			// The sample must load as written.
			cfg, _, _, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("sample config does not load: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintf(out, "Clips will be written below %s\n", cfg.Paths.OutputDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func initTarget(flagPath string) (string, error) {
	if target := strings.TrimSpace(flagPath); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and show the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			printEffectiveConfig(cmd.OutOrStdout(), ctx.configPath, cfg)
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration valid")
			return nil
		},
	}
}

func printEffectiveConfig(w io.Writer, path string, cfg *config.Config) {
	if path != "" {
		fmt.Fprintf(w, "Config path:    %s\n", path)
	}
	fmt.Fprintf(w, "Output dir:     %s\n", cfg.Paths.OutputDir)
	fmt.Fprintf(w, "Catalog:        %s (recording %s)\n", cfg.Paths.CatalogPath, yesNo(cfg.Extract.RecordCatalog))
	if cfg.Paths.LogDir != "" {
		fmt.Fprintf(w, "Log file:       %s\n", filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	}
	fmt.Fprintf(w, "Clip names:     %s%s\n", cfg.Extract.ClipNameTemplate, pipeline.ClipExtension)
	fmt.Fprintf(w, "Overwrite:      %s\n", yesNo(cfg.Extract.Overwrite))
	fmt.Fprintf(w, "Manifest:       %s\n", yesNo(cfg.Extract.WriteManifest))
	fmt.Fprintf(w, "BVH precision:  %s\n", precisionLabel(cfg.BVH.Precision))

	root, joint := cfg.LegacyChannels()
	fmt.Fprintf(w, "Legacy root:    %s\n", strings.Join(skeleton.ChannelNames(root), " "))
	fmt.Fprintf(w, "Legacy joints:  %s\n", strings.Join(skeleton.ChannelNames(joint), " "))
}

func precisionLabel(digits int) string {
	if digits < 0 {
		return "exact"
	}
	return fmt.Sprintf("%d decimals", digits)
}
