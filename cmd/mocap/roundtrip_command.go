package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mocap/internal/bvh"
	"mocap/internal/mocaperr"
)

func newRoundTripCommand(ctx *commandContext) *cobra.Command {
	var verify bool
	var tolerance float64

	cmd := &cobra.Command{
		Use:   "roundtrip <in.bvh> <out.bvh>",
		Short: "Parse a BVH file and write it back in canonical form",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			src, dst := args[0], args[1]
			skel, m, err := bvh.ParseFile(src)
			if err != nil {
				return err
			}
			err = bvh.WriteFile(dst, skel, m,
				bvh.WithPrecision(cfg.BVH.Precision),
				bvh.WithIndent(cfg.BVHIndent()),
			)
			if err != nil {
				return fmt.Errorf("write %s: %w", dst, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s (%d joints, %d frames)\n", dst, skel.Len(), m.Rows())
			if !verify {
				return nil
			}

			skel2, m2, err := bvh.ParseFile(dst)
			if err != nil {
				return fmt.Errorf("re-read %s: %w", dst, err)
			}
			if err := skel.CheckCompatible(skel2); err != nil {
				return err
			}
			if !skel.EqualApprox(skel2, tolerance) || !m.EqualApprox(m2, tolerance) {
				return mocaperr.Incompatible("round trip of %s differs beyond tolerance %g", src, tolerance)
			}
			fmt.Fprintln(out, "Round trip verified")
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Re-read the output and compare it with the input")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 1e-6, "Maximum absolute difference accepted by --verify")
	return cmd
}
