package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mocap/internal/bvh"
	"mocap/internal/framecut"
	"mocap/internal/textutil"
)

var cutColumns = []column[framecut.Entry]{
	{"File", alignLeft, func(e framecut.Entry) string { return e.File }},
	{"Subject", alignLeft, func(e framecut.Entry) string { return e.Subject }},
	{"Style", alignLeft, func(e framecut.Entry) string { return textutil.StyleLabel(e.Style) }},
	{"Start", alignRight, func(e framecut.Entry) string { return strconv.Itoa(e.Start) }},
	{"End", alignRight, func(e framecut.Entry) string { return strconv.Itoa(e.End) }},
	{"Frames", alignRight, func(e framecut.Entry) string { return strconv.Itoa(e.Frames()) }},
}

func newCutsCommand(ctx *commandContext) *cobra.Command {
	cutsCmd := &cobra.Command{
		Use:   "cuts",
		Short: "Inspect and validate frame-cut tables",
	}
	cutsCmd.AddCommand(newCutsListCommand())
	cutsCmd.AddCommand(newCutsValidateCommand(ctx))
	return cutsCmd
}

func newCutsListCommand() *cobra.Command {
	var fileFilter string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list <cuts.csv>",
		Short: "List the entries of a frame-cut table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := framecut.LoadFile(args[0])
			if err != nil {
				return err
			}
			files := idx.Files()
			if fileFilter != "" {
				files = []string{framecut.FileID(fileFilter)}
			}
			var entries []framecut.Entry
			for _, f := range files {
				entries = append(entries, idx.RangesFor(f)...)
			}
			return printList(cmd, jsonOut, entries, "No frame cuts", cutColumns)
		},
	}

	cmd.Flags().StringVar(&fileFilter, "file", "", "Only list entries for this capture file")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newCutsValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <cuts.csv> <file.bvh>...",
		Short: "Check frame-cut ranges against the frame counts of BVH captures",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := framecut.LoadFile(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			var errs []error
			for _, path := range args[1:] {
				fileID := framecut.FileID(path)
				_, m, err := bvh.ParseFile(path)
				if err == nil {
					if len(idx.RangesFor(fileID)) == 0 {
						fmt.Fprintf(w, "%s: no frame cuts\n", fileID)
						continue
					}
					err = idx.ValidateAgainst(fileID, m.Rows())
				}
				if err != nil {
					fmt.Fprintf(w, "%s: INVALID: %v\n", fileID, err)
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(w, "%s: ok (%d cuts, %d frames)\n", fileID, len(idx.RangesFor(fileID)), m.Rows())
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d of %d captures invalid: %w", len(errs), len(args)-1, errors.Join(errs...))
			}
			return nil
		},
	}
}
