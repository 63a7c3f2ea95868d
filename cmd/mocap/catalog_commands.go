package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mocap/internal/catalog"
	"mocap/internal/textutil"
)

var runColumns = []column[catalog.Run]{
	{"Run", alignLeft, func(r catalog.Run) string { return r.ID }},
	{"File", alignLeft, func(r catalog.Run) string { return r.SourceFile }},
	{"Status", alignLeft, func(r catalog.Run) string { return string(r.Status) }},
	{"Clips", alignRight, func(r catalog.Run) string { return strconv.Itoa(r.ClipCount) }},
	{"Started", alignLeft, func(r catalog.Run) string { return r.StartedAt.Local().Format(time.DateTime) }},
	{"Error", alignLeft, func(r catalog.Run) string { return r.ErrorMessage }},
}

var clipColumns = []column[catalog.Clip]{
	{"File", alignLeft, func(c catalog.Clip) string { return c.SourceFile }},
	{"Subject", alignLeft, func(c catalog.Clip) string { return c.Subject }},
	{"Style", alignLeft, func(c catalog.Clip) string { return textutil.StyleLabel(c.Style) }},
	{"Start", alignRight, func(c catalog.Clip) string { return strconv.Itoa(c.Start) }},
	{"End", alignRight, func(c catalog.Clip) string { return strconv.Itoa(c.End) }},
	{"Frames", alignRight, func(c catalog.Clip) string { return strconv.Itoa(c.Frames) }},
	{"Path", alignLeft, func(c catalog.Clip) string { return c.Path }},
}

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "List recorded extraction runs and clips",
	}
	catalogCmd.AddCommand(newCatalogRunsCommand(ctx))
	catalogCmd.AddCommand(newCatalogClipsCommand(ctx))
	return catalogCmd
}

func newCatalogRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List extraction runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(nil, func(cat *catalog.Catalog) error {
				runs, err := cat.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printList(cmd, jsonOut, runs, "No runs recorded", runColumns)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newCatalogClipsCommand(ctx *commandContext) *cobra.Command {
	var filter catalog.ClipFilter
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "clips",
		Short: "List recorded clips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(nil, func(cat *catalog.Catalog) error {
				clips, err := cat.ListClips(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return printList(cmd, jsonOut, clips, "No clips recorded", clipColumns)
			})
		},
	}

	cmd.Flags().StringVar(&filter.RunID, "run", "", "Only clips from this run")
	cmd.Flags().StringVar(&filter.SourceFile, "file", "", "Only clips cut from this capture file ID")
	cmd.Flags().StringVar(&filter.Style, "style", "", "Only clips with this style")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum number of clips (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
