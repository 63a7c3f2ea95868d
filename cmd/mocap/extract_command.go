package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"mocap/internal/catalog"
	"mocap/internal/config"
	"mocap/internal/framecut"
	"mocap/internal/logging"
	"mocap/internal/pipeline"
	"mocap/internal/textutil"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var cutsPath string
	var outputDir string
	var dryRun bool
	var overwrite bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "extract --cuts <cuts.csv> <file.bvh>...",
		Short: "Cut BVH captures into per-style clips",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCfg := *cfg
			if outputDir != "" {
				expanded, err := config.ExpandPath(outputDir)
				if err != nil {
					return err
				}
				runCfg.Paths.OutputDir = expanded
			}
			if cmd.Flags().Changed("overwrite") {
				runCfg.Extract.Overwrite = overwrite
			}

			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			idx, err := framecut.LoadFile(cutsPath)
			if err != nil {
				return err
			}

			run := func(recorder pipeline.Recorder) error {
				extractor := pipeline.NewExtractor(&runCfg, recorder, logger)
				var results []*pipeline.Result
				var errs []error
				for _, path := range args {
					res, err := extractor.Run(cmd.Context(), pipeline.Request{SourcePath: path, Cuts: idx, DryRun: dryRun})
					if err != nil {
						errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
						if cmd.Context().Err() != nil {
							break
						}
						continue
					}
					results = append(results, res)
				}
				if jsonOut {
					if err := writeJSON(cmd, results); err != nil {
						return err
					}
				} else {
					printExtractResults(cmd, results)
				}
				return errors.Join(errs...)
			}

			if dryRun || !runCfg.Extract.RecordCatalog {
				return run(nil)
			}
			return ctx.withCatalog(logger, func(cat *catalog.Catalog) error {
				return run(cat)
			})
		},
	}

	cmd.Flags().StringVar(&cutsPath, "cuts", "", "Frame-cut table (CSV)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Override the configured clip output directory")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and plan without writing files")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing clips whose content differs")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output results as JSON")
	_ = cmd.MarkFlagRequired("cuts")
	return cmd
}

func printExtractResults(cmd *cobra.Command, results []*pipeline.Result) {
	w := cmd.OutOrStdout()
	for _, res := range results {
		verb := "Extracted"
		if res.DryRun {
			verb = "Would extract"
		}
		fmt.Fprintf(w, "%s %d clips from %s into %s\n", verb, len(res.Clips), res.File, res.OutputDir)
		rows := make([][]string, 0, len(res.Clips))
		for _, c := range res.Clips {
			state := "written"
			switch {
			case res.DryRun:
				state = "planned"
			case c.Unchanged:
				state = "unchanged"
			}
			rows = append(rows, []string{
				textutil.StyleLabel(c.Entry.Style),
				strconv.Itoa(c.Entry.Start),
				strconv.Itoa(c.Entry.End),
				strconv.Itoa(c.Frames),
				filepath.Base(c.Path),
				state,
			})
		}
		fmt.Fprintln(w, renderTable(w,
			[]string{"Style", "Start", "End", "Frames", "Clip", "State"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
		))
		if res.RunID != "" {
			fmt.Fprintf(w, "%s: %s\n", logging.FieldRunID, res.RunID)
		}
	}
}
