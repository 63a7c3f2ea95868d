package testsupport

import (
	"fmt"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"mocap/internal/motion"
	"mocap/internal/skeleton"
)

// SampleChannels is the column count of SampleBVH: 6 root channels and three
// joints with 3 rotation channels each.
const SampleChannels = 15

// SampleFrameTime is the frame time declared by SampleBVH.
const SampleFrameTime = 0.0083333

// SampleBVH returns a four-joint capture (Hips, Spine, Head, LeftUpLeg) with
// the given number of frames. Value (r, c) is r + c/100.
func SampleBVH(frames int) string {
	var b strings.Builder
	b.WriteString(`HIERARCHY
ROOT Hips
{
	OFFSET 0.00 0.00 0.00
	CHANNELS 6 Xposition Yposition Zposition Zrotation Yrotation Xrotation
	JOINT Spine
	{
		OFFSET 0.00 5.21 0.00
		CHANNELS 3 Zrotation Yrotation Xrotation
		JOINT Head
		{
			OFFSET 0.00 10.5 -0.25
			CHANNELS 3 Zrotation Yrotation Xrotation
			End Site
			{
				OFFSET 0.00 3.87 0.00
			}
		}
	}
	JOINT LeftUpLeg
	{
		OFFSET 3.91 0.00 0.00
		CHANNELS 3 Zrotation Yrotation Xrotation
		End Site
		{
			OFFSET 0.00 -18.34 0.00
		}
	}
}
MOTION
`)
	fmt.Fprintf(&b, "Frames: %d\n", frames)
	fmt.Fprintf(&b, "Frame Time: %v\n", SampleFrameTime)
	for r := range frames {
		for c := range SampleChannels {
			if c > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%v", SampleValue(r, c))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// SampleValue is the value SampleBVH writes at frame r, column c.
func SampleValue(r, c int) float64 {
	return float64(r) + float64(c)/100
}

// ChainSkeleton builds and initializes the root -> child -> grandchild
// skeleton with default channels (12 columns).
func ChainSkeleton(t testing.TB) *skeleton.Skeleton {
	t.Helper()

	skel, err := skeleton.Build(
		[]r3.Vec{{}, {Y: 1}, {Y: 1}},
		[]int{skeleton.Root, 0, 1},
		[]string{"root", "child", "grandchild"},
	)
	if err != nil {
		t.Fatalf("skeleton.Build: %v", err)
	}
	skel.Init()
	return skel
}

// RampMatrix returns a rows x cols matrix whose value (r, c) is r*100 + c.
func RampMatrix(t testing.TB, rows, cols int) *motion.Matrix {
	t.Helper()

	b := motion.NewBuilder(cols, rows)
	row := make([]float64, cols)
	for r := range rows {
		for c := range cols {
			row[c] = float64(r*100 + c)
		}
		if err := b.Append(row); err != nil {
			t.Fatalf("append row %d: %v", r, err)
		}
	}
	m, err := b.Build(1.0 / 30)
	if err != nil {
		t.Fatalf("build matrix: %v", err)
	}
	return m
}
