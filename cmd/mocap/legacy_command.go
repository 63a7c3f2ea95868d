package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mocap/internal/bvh"
	"mocap/internal/config"
	"mocap/internal/legacy"
	"mocap/internal/manifest"
	"mocap/internal/motion"
	"mocap/internal/skeleton"
	"mocap/internal/skelstore"
)

func newLegacyCommand(ctx *commandContext) *cobra.Command {
	legacyCmd := &cobra.Command{
		Use:   "legacy",
		Short: "Convert legacy skeleton data",
	}
	legacyCmd.AddCommand(newLegacyMigrateCommand(ctx))
	return legacyCmd
}

func newLegacyMigrateCommand(ctx *commandContext) *cobra.Command {
	var frameTime float64

	cmd := &cobra.Command{
		Use:   "migrate <legacy.json> <output>",
		Short: "Validate a raw offsets/parents/names skeleton and persist it",
		Long: "Validate a legacy skeleton object and write it in a supported form.\n" +
			"The output format follows the extension: " + skelstore.Extension + " (persisted skeleton object),\n" +
			".bvh (hierarchy with an empty motion section) or .json (skeleton document).\n" +
			"The source file is never modified.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			src, dst := args[0], args[1]
			same, err := sameFile(src, dst)
			if err != nil {
				return err
			}
			if same {
				return fmt.Errorf("output %s is the legacy source; choose a different path", dst)
			}
			persister, err := persisterFor(cfg, dst, frameTime)
			if err != nil {
				return err
			}
			root, joint := cfg.LegacyChannels()
			skel, err := legacy.MigrateFile(cmd.Context(), src, persister, skeleton.WithChannels(root, joint))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d joints (%d channels) to %s\n", skel.Len(), skel.ChannelCount(), dst)
			return nil
		},
	}

	cmd.Flags().Float64Var(&frameTime, "frame-time", 1.0/30, "Frame time written to .bvh output")
	return cmd
}

// persistFunc adapts a function to legacy.Persister.
type persistFunc func(context.Context, *skeleton.Skeleton) error

func (f persistFunc) Persist(ctx context.Context, skel *skeleton.Skeleton) error {
	return f(ctx, skel)
}

func persisterFor(cfg *config.Config, dst string, frameTime float64) (legacy.Persister, error) {
	switch ext := strings.ToLower(filepath.Ext(dst)); ext {
	case skelstore.Extension:
		return skelstore.FileStore{Path: dst}, nil
	case ".bvh":
		return persistFunc(func(ctx context.Context, skel *skeleton.Skeleton) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			empty, err := motion.NewMatrix(0, skel.ChannelCount(), frameTime, nil)
			if err != nil {
				return err
			}
			return bvh.WriteFile(dst, skel, empty,
				bvh.WithPrecision(cfg.BVH.Precision),
				bvh.WithIndent(cfg.BVHIndent()),
			)
		}), nil
	case ".json":
		return persistFunc(func(ctx context.Context, skel *skeleton.Skeleton) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := manifest.FromSkeleton(skel)
			if err != nil {
				return err
			}
			return manifest.WriteJSON(dst, doc)
		}), nil
	default:
		return nil, fmt.Errorf("unsupported output extension %q (use %s, .bvh or .json)", ext, skelstore.Extension)
	}
}

// sameFile reports whether dst names src, either by path or, when dst
// exists, by identity (hard links, symlinks).
func sameFile(src, dst string) (bool, error) {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return false, err
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return false, err
	}
	if absSrc == absDst {
		return true, nil
	}
	dstInfo, err := os.Stat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat output: %w", err)
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("stat legacy source: %w", err)
	}
	return os.SameFile(srcInfo, dstInfo), nil
}
