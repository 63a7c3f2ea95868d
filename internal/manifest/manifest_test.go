package manifest_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mocap/internal/bvh"
	"mocap/internal/manifest"
	"mocap/internal/testsupport"
)

func TestFromSkeleton(t *testing.T) {
	skel, _, err := bvh.Parse(strings.NewReader(testsupport.SampleBVH(1)))
	require.NoError(t, err)

	doc, err := manifest.FromSkeleton(skel)
	require.NoError(t, err)

	assert.Equal(t, testsupport.SampleChannels, doc.ChannelCount)
	assert.Equal(t, []string{"Head", "LeftUpLeg"}, doc.EndEffectors)
	require.Len(t, doc.Joints, 4)

	head := doc.Joints[2]
	assert.Equal(t, 2, head.Depth)
	assert.Equal(t, 9, head.ChannelStart)
	assert.InDelta(t, 15.71, head.RestPosition[1], 1e-9)
	require.NotNil(t, head.EndSite)
	assert.Nil(t, doc.Joints[1].EndSite)
}

func TestFromSkeletonRequiresInit(t *testing.T) {
	_, err := manifest.FromSkeleton(mustUninitialized(t))
	assert.Error(t, err)
}

func TestManifestRoundTripThroughFile(t *testing.T) {
	want := manifest.ClipManifest{
		Version:   manifest.Version,
		RunID:     "run-1",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Source:    manifest.SourceDoc{File: "walk", Path: "/in/walk.bvh", Frames: 100, FrameTime: 0.01, Channels: 15},
		Skeleton:  "skeleton.json",
		Clips: []manifest.ClipDoc{
			{Name: "walk_happy.bvh", Style: "happy", Label: "Happy", Start: 0, End: 40, Frames: 40, Duration: 0.4},
		},
	}
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, manifest.WriteJSON(path, want))

	got, err := manifest.ReadManifest(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Fatalf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeManifestRejectsUnknownFields(t *testing.T) {
	_, err := manifest.DecodeManifest(strings.NewReader(`{"version": 1, "bogus": true}`))
	assert.Error(t, err)
	_, err = manifest.DecodeManifest(strings.NewReader(`{"version": 7}`))
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	assert.Equal(t, []string{"manifest", "skeleton"}, manifest.SchemaNames())

	schema, err := manifest.Schema("manifest")
	require.NoError(t, err)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "clips")
	assert.Contains(t, schema["required"], "run_id")

	_, err = manifest.Schema("nope")
	assert.Error(t, err)
}
