package bvh_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"mocap/internal/bvh"
	"mocap/internal/mocaperr"
	"mocap/internal/motion"
	"mocap/internal/skeleton"
	"mocap/internal/testsupport"
)

func TestParseSample(t *testing.T) {
	skel, m, err := bvh.Parse(strings.NewReader(testsupport.SampleBVH(5)))
	require.NoError(t, err)

	assert.True(t, skel.Initialized())
	assert.Equal(t, []string{"Hips", "Spine", "Head", "LeftUpLeg"}, skel.Names())
	assert.Equal(t, []int{-1, 0, 1, 0}, skel.Parents())
	assert.Equal(t, testsupport.SampleChannels, skel.ChannelCount())
	assert.Equal(t, r3.Vec{Y: 10.5, Z: -0.25}, skel.Offset(2))

	site, ok := skel.EndSite(2)
	require.True(t, ok)
	assert.Equal(t, r3.Vec{Y: 3.87}, site)
	_, ok = skel.EndSite(1)
	assert.False(t, ok)

	chain, err := skel.AncestorChain(2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, chain)

	assert.Equal(t, 5, m.Rows())
	assert.Equal(t, testsupport.SampleChannels, m.Cols())
	assert.InDelta(t, testsupport.SampleFrameTime, m.FrameTime(), 1e-12)
	for r := range m.Rows() {
		for c := range m.Cols() {
			assert.Equal(t, testsupport.SampleValue(r, c), m.At(r, c))
		}
	}
	assert.Equal(t, 9, skel.ChannelOffset(2))
}

func TestParseToleratesLayoutVariations(t *testing.T) {
	doc := "\ufeffhierarchy\nroot  Body Root{\n  offset 0 0 0\n  channels 3 xposition yposition zposition\n" +
		"  End Site {\n OFFSET 1 2 3\n }\n}\n" +
		"MOTION\nFrames:\t2\nFrame   Time: 0.5\n\n1 2 3\n\n4 5 6\n\n"
	skel, m, err := bvh.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Body Root", skel.Name(0))
	assert.Equal(t, []skeleton.Channel{skeleton.Xposition, skeleton.Yposition, skeleton.Zposition}, skel.Channels(0))
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, []float64{4, 5, 6}, m.Row(1))
}

func TestParseRejectsMalformedInput(t *testing.T) {
	sample := testsupport.SampleBVH(2)
	cases := map[string]string{
		"channel count mismatch": strings.Replace(sample, "CHANNELS 3 Zrotation Yrotation Xrotation", "CHANNELS 4 Zrotation Yrotation Xrotation", 1),
		"unknown channel":        strings.Replace(sample, "CHANNELS 3 Zrotation", "CHANNELS 3 Wrotation", 1),
		"short offset":           strings.Replace(sample, "OFFSET 0.00 5.21 0.00", "OFFSET 0.00 5.21", 1),
		"frame count too high":   strings.Replace(sample, "Frames: 2", "Frames: 3", 1),
		"frame count too low":    strings.Replace(sample, "Frames: 2", "Frames: 1", 1),
		"missing motion":         sample[:strings.Index(sample, "MOTION")],
		"truncated hierarchy":    sample[:strings.Index(sample, "JOINT LeftUpLeg")],
		"second root":            strings.Replace(sample, "MOTION", "ROOT Extra\n{\nOFFSET 0 0 0\n}\nMOTION", 1),
		"duplicate joint name":   strings.Replace(sample, "JOINT LeftUpLeg", "JOINT Spine", 1),
		"duplicate channel":      strings.Replace(sample, "CHANNELS 3 Zrotation Yrotation Xrotation", "CHANNELS 3 Zrotation Zrotation Xrotation", 1),
		"short row":              strings.Replace(sample, "\n1 ", "\n", 1),
		"non numeric value":      strings.Replace(sample, "\n1 ", "\nx ", 1),
		"offset after child":     strings.Replace(sample, "\t\tEnd Site\n\t\t{\n\t\t\tOFFSET 0.00 -18.34 0.00\n\t\t}\n", "\t\tEnd Site\n\t\t{\n\t\t\tOFFSET 0.00 -18.34 0.00\n\t\t}\n\t\tOFFSET 1 1 1\n", 1),
		"missing frame time":     strings.Replace(sample, "Frame Time:", "Frame Rate:", 1),
		"not bvh":                "hello world",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			skel, m, err := bvh.Parse(strings.NewReader(doc))
			require.Error(t, err)
			assert.Nil(t, skel)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, mocaperr.ErrParse), "expected parse error, got %v", err)
		})
	}
}

func TestParseDuplicateNameKeepsTopologyCause(t *testing.T) {
	doc := strings.Replace(testsupport.SampleBVH(1), "JOINT LeftUpLeg", "JOINT Head", 1)
	_, _, err := bvh.Parse(strings.NewReader(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, mocaperr.ErrInvalidTopology)

	var perr *mocaperr.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Greater(t, perr.Line, 0)
}

func TestParseFileSetsPath(t *testing.T) {
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "bad.bvh"), "HIERARCHY\nMOTION\n")
	_, _, err := bvh.ParseFile(path)
	var perr *mocaperr.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, path, perr.Path)
	assert.Contains(t, err.Error(), path)
}

func TestRoundTrip(t *testing.T) {
	skel, m, err := bvh.Parse(strings.NewReader(testsupport.SampleBVH(7)))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, bvh.Write(&buf, skel, m))

	skel2, m2, err := bvh.Parse(&buf)
	require.NoError(t, err)

	assert.True(t, skel.EqualApprox(skel2, 0))
	assert.True(t, m.EqualApprox(m2, 0))
	assert.Equal(t, m.FrameTime(), m2.FrameTime())
	if diff := cmp.Diff(skel.Joints(), skel2.Joints()); diff != "" {
		t.Fatalf("joints differ after round trip (-want +got):\n%s", diff)
	}
}

func TestRoundTripWithPrecision(t *testing.T) {
	skel, m, err := bvh.Parse(strings.NewReader(testsupport.SampleBVH(3)))
	require.NoError(t, err)

	out, err := bvh.Marshal(skel, m, bvh.WithPrecision(2), bvh.WithIndent("  "))
	require.NoError(t, err)
	assert.Contains(t, string(out), "\n    OFFSET 0.00 5.21 0.00\n")
	assert.Contains(t, string(out), "CHANNELS 3 Zrotation Yrotation Xrotation")

	skel2, m2, err := bvh.Parse(bytes.NewReader(out))
	require.NoError(t, err)
	assert.True(t, skel.EqualApprox(skel2, 0.005))
	assert.True(t, m.EqualApprox(m2, 0.005))
}

func TestWriteEmptyMotion(t *testing.T) {
	skel := testsupport.ChainSkeleton(t)
	m := testsupport.RampMatrix(t, 0, skel.ChannelCount())

	out, err := bvh.Marshal(skel, m)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Frames: 0\n")

	_, m2, err := bvh.Parse(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 0, m2.Rows())
	assert.Equal(t, skel.ChannelCount(), m2.Cols())
}

func TestWriteRejectsIncompatibleInput(t *testing.T) {
	skel := testsupport.ChainSkeleton(t)

	err := bvh.Write(&bytes.Buffer{}, skel, testsupport.RampMatrix(t, 2, 5))
	assert.ErrorIs(t, err, mocaperr.ErrChannelCompatibility)

	fresh, err := skeleton.Build([]r3.Vec{{}, {}}, []int{-1, 0}, []string{"a", "b"})
	require.NoError(t, err)
	err = bvh.Write(&bytes.Buffer{}, fresh, testsupport.RampMatrix(t, 1, fresh.ChannelCount()))
	assert.ErrorIs(t, err, mocaperr.ErrNotInitialized)

	breadth, err := skeleton.Build(make([]r3.Vec, 4), []int{-1, 0, 0, 1}, []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	breadth.Init()
	err = bvh.Write(&bytes.Buffer{}, breadth, testsupport.RampMatrix(t, 1, breadth.ChannelCount()))
	assert.ErrorIs(t, err, mocaperr.ErrInvalidTopology)
}

func TestWriteFile(t *testing.T) {
	skel, m, err := bvh.Parse(strings.NewReader(testsupport.SampleBVH(4)))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "clip.bvh")
	require.NoError(t, bvh.WriteFile(path, skel, m))

	skel2, m2, err := bvh.ParseFile(path)
	require.NoError(t, err)
	assert.True(t, skel.Compatible(skel2))
	assert.True(t, m.EqualApprox(m2, 0))
}

func TestWriteRejectsNamesThatDoNotRoundTrip(t *testing.T) {
	cases := map[string]string{
		"newline":        "Spine\nJOINT Ghost",
		"tab":            "Left\tArm",
		"trailing brace": "Arm{",
		"leading brace":  "}Arm",
		"double space":   "Left  Arm",
		"inner nbsp":     "Left\u00a0Arm",
	}
	for name, jointName := range cases {
		t.Run(name, func(t *testing.T) {
			skel, err := skeleton.New([]skeleton.Joint{
				{Name: "Hips", Parent: skeleton.Root, Channels: skeleton.DefaultRootChannels()},
				{Name: jointName, Parent: 0, Channels: skeleton.DefaultJointChannels()},
			})
			require.NoError(t, err)
			skel.Init()

			var buf bytes.Buffer
			err = bvh.Write(&buf, skel, testsupport.RampMatrix(t, 1, skel.ChannelCount()))
			require.ErrorIs(t, err, mocaperr.ErrInvalidTopology)
			var topo *mocaperr.InvalidTopologyError
			require.ErrorAs(t, err, &topo)
			assert.Equal(t, 1, topo.Joint)
			assert.Zero(t, buf.Len())
		})
	}
}

func TestWriteKeepsSpacedNames(t *testing.T) {
	skel, err := skeleton.New([]skeleton.Joint{
		{Name: "Body Root", Parent: skeleton.Root, Channels: skeleton.DefaultRootChannels()},
		{Name: "Left Arm", Parent: 0, Channels: skeleton.DefaultJointChannels()},
	})
	require.NoError(t, err)
	skel.Init()

	out, err := bvh.Marshal(skel, testsupport.RampMatrix(t, 2, skel.ChannelCount()))
	require.NoError(t, err)
	skel2, _, err := bvh.Parse(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, []string{"Body Root", "Left Arm"}, skel2.Names())
}

func TestChannelLessSkeletonRoundTrip(t *testing.T) {
	skel, err := skeleton.New([]skeleton.Joint{{Name: "Hips", Parent: skeleton.Root}})
	require.NoError(t, err)
	skel.Init()
	m, err := motion.NewMatrix(3, 0, 0.1, nil)
	require.NoError(t, err)

	out, err := bvh.Marshal(skel, m)
	require.NoError(t, err)
	_, m2, err := bvh.Parse(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 3, m2.Rows())
	assert.Equal(t, 0, m2.Cols())
}

func TestChannelLessFrameCountMustMatchLines(t *testing.T) {
	head := "HIERARCHY\nROOT Hips\n{\n\tOFFSET 0 0 0\n\tCHANNELS 0\n}\nMOTION\n"
	cases := map[string]string{
		"huge declared count": head + "Frames: 9000000000\nFrame Time: 0.1\n",
		"missing rows":        head + "Frames: 3\nFrame Time: 0.1\n\n",
		"values present":      head + "Frames: 1\nFrame Time: 0.1\n1 2 3\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := bvh.Parse(strings.NewReader(doc))
			assert.ErrorIs(t, err, mocaperr.ErrParse)
		})
	}
}

func TestParseBoundsPreallocation(t *testing.T) {
	// A truncated wide capture declaring many frames must fail on the
	// missing rows rather than reserve space for the header's count.
	joints := []string{"HIERARCHY\nROOT Hips\n{\n\tOFFSET 0 0 0\n\tCHANNELS 6 Xposition Yposition Zposition Zrotation Xrotation Yrotation\n"}
	for i := range 60 {
		joints = append(joints, "\tJOINT J"+strconv.Itoa(i)+"\n\t{\n\t\tOFFSET 0 1 0\n\t\tCHANNELS 3 Zrotation Xrotation Yrotation\n\t}\n")
	}
	doc := strings.Join(joints, "") + "}\nMOTION\nFrames: 2000000000\nFrame Time: 0.1\n"
	_, _, err := bvh.Parse(strings.NewReader(doc))
	var perr *mocaperr.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Msg, "only 0 present")
}
