package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mocap/internal/bvh"
	"mocap/internal/manifest"
	"mocap/internal/motion"
	"mocap/internal/skeleton"
)

type inspectOutput struct {
	Path      string                `json:"path"`
	Frames    int                   `json:"frames"`
	FrameTime float64               `json:"frame_time"`
	Duration  float64               `json:"duration_seconds"`
	Skeleton  manifest.SkeletonDoc  `json:"skeleton"`
	Stats     []inspectChannelStats `json:"stats,omitempty"`
}

type inspectChannelStats struct {
	Column  int     `json:"column"`
	Channel string  `json:"channel"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stddev"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var withStats bool

	cmd := &cobra.Command{
		Use:   "inspect <file.bvh>",
		Short: "Show the joint hierarchy and motion summary of a BVH file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			skel, m, err := bvh.ParseFile(args[0])
			if err != nil {
				return err
			}
			doc, err := manifest.FromSkeleton(skel)
			if err != nil {
				return err
			}
			out := inspectOutput{
				Path:      args[0],
				Frames:    m.Rows(),
				FrameTime: m.FrameTime(),
				Duration:  m.Duration(),
				Skeleton:  doc,
			}
			if withStats {
				out.Stats = channelStats(skel, m)
			}
			if jsonOut {
				return writeJSON(cmd, out)
			}
			printInspect(cmd, out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&withStats, "stats", false, "Include per-channel statistics")
	return cmd
}

func channelStats(skel *skeleton.Skeleton, m *motion.Matrix) []inspectChannelStats {
	labels := columnLabels(skel)
	stats := m.Stats()
	out := make([]inspectChannelStats, len(stats))
	for c, s := range stats {
		out[c] = inspectChannelStats{
			Column:  c,
			Channel: labels[c],
			Min:     s.Min,
			Max:     s.Max,
			Mean:    s.Mean,
			StdDev:  s.StdDev,
		}
	}
	return out
}

// columnLabels names every matrix column "Joint.Channel".
func columnLabels(skel *skeleton.Skeleton) []string {
	labels := make([]string, 0, skel.ChannelCount())
	for i := range skel.Len() {
		for _, c := range skel.Channels(i) {
			labels = append(labels, skel.Name(i)+"."+c.String())
		}
	}
	return labels
}

func printInspect(cmd *cobra.Command, out inspectOutput) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "File:       %s\n", out.Path)
	fmt.Fprintf(w, "Joints:     %d\n", len(out.Skeleton.Joints))
	fmt.Fprintf(w, "Channels:   %d\n", out.Skeleton.ChannelCount)
	fmt.Fprintf(w, "Frames:     %d\n", out.Frames)
	fmt.Fprintf(w, "Frame time: %s s (%.2f fps)\n", formatFloat(out.FrameTime), fps(out.FrameTime))
	fmt.Fprintf(w, "Duration:   %.3f s\n", out.Duration)
	fmt.Fprintln(w)

	rows := make([][]string, 0, len(out.Skeleton.Joints))
	for i, j := range out.Skeleton.Joints {
		parent := "-"
		if j.Parent >= 0 {
			parent = out.Skeleton.Joints[j.Parent].Name
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			strings.Repeat("  ", j.Depth) + j.Name,
			parent,
			strings.Join(j.Channels, " "),
			formatVec(j.RestPosition),
			yesNo(j.EndSite != nil),
		})
	}
	fmt.Fprintln(w, renderTable(w,
		[]string{"#", "Joint", "Parent", "Channels", "Rest position", "End site"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))

	if len(out.Stats) == 0 {
		return
	}
	fmt.Fprintln(w)
	statRows := make([][]string, 0, len(out.Stats))
	for _, s := range out.Stats {
		statRows = append(statRows, []string{
			strconv.Itoa(s.Column),
			s.Channel,
			formatFloat(s.Min),
			formatFloat(s.Max),
			formatFloat(s.Mean),
			formatFloat(s.StdDev),
		})
	}
	fmt.Fprintln(w, renderTable(w,
		[]string{"Col", "Channel", "Min", "Max", "Mean", "StdDev"},
		statRows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatVec(v [3]float64) string {
	return fmt.Sprintf("%s %s %s", formatFloat(v[0]), formatFloat(v[1]), formatFloat(v[2]))
}

func fps(frameTime float64) float64 {
	if frameTime <= 0 {
		return 0
	}
	return 1 / frameTime
}
