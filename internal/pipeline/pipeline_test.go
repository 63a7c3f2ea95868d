package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mocap/internal/bvh"
	"mocap/internal/catalog"
	"mocap/internal/config"
	"mocap/internal/framecut"
	"mocap/internal/manifest"
	"mocap/internal/mocaperr"
	"mocap/internal/pipeline"
	"mocap/internal/skelstore"
	"mocap/internal/testsupport"
)

func setup(t *testing.T, frames int, entries ...framecut.Entry) (*config.Config, string, *framecut.Index) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	src := testsupport.WriteFile(t, filepath.Join(testsupport.BaseDir(cfg), "in", "walk.bvh"), testsupport.SampleBVH(frames))
	idx, err := framecut.New(entries)
	require.NoError(t, err)
	return cfg, src, idx
}

func twoCuts() []framecut.Entry {
	return []framecut.Entry{
		{File: "walk", Subject: "ada", Style: "sad", Start: 50, End: 90},
		{File: "walk", Subject: "ada", Style: "happy", Start: 0, End: 40},
	}
}

func TestRunWritesClipsManifestAndCatalog(t *testing.T) {
	cfg, src, idx := setup(t, 100, twoCuts()...)
	cat := testsupport.MustOpenCatalog(t, cfg)
	extractor := pipeline.NewExtractor(cfg, cat, nil)

	res, err := extractor.Run(context.Background(), pipeline.Request{SourcePath: src, Cuts: idx})
	require.NoError(t, err)

	outDir := filepath.Join(cfg.Paths.OutputDir, "walk")
	assert.Equal(t, outDir, res.OutputDir)
	require.Len(t, res.Clips, 2)
	assert.Equal(t, "happy", res.Clips[0].Entry.Style)
	assert.Equal(t, filepath.Join(outDir, "walk_happy.bvh"), res.Clips[0].Path)

	skel, m, err := bvh.ParseFile(res.Clips[1].Path)
	require.NoError(t, err)
	assert.Equal(t, 40, m.Rows())
	assert.Equal(t, testsupport.SampleChannels, skel.ChannelCount())
	for c := range testsupport.SampleChannels {
		assert.Equal(t, testsupport.SampleValue(50, c), m.At(0, c))
	}

	doc, err := manifest.ReadManifest(filepath.Join(outDir, pipeline.ManifestName))
	require.NoError(t, err)
	assert.Equal(t, res.RunID, doc.RunID)
	assert.Equal(t, 100, doc.Source.Frames)
	assert.Equal(t, res.SourceSHA256, doc.Source.SHA256)
	require.Len(t, doc.Clips, 2)
	assert.Equal(t, "Sad", doc.Clips[1].Label)
	assert.Equal(t, res.Clips[1].SHA256, doc.Clips[1].SHA256)
	assert.FileExists(t, filepath.Join(outDir, pipeline.SkeletonDocName))

	stored, err := skelstore.Load(filepath.Join(outDir, pipeline.SkeletonObjName))
	require.NoError(t, err)
	assert.True(t, stored.Compatible(skel))

	run, err := cat.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, catalog.RunCompleted, run.Status)
	assert.Equal(t, 2, run.ClipCount)

	clips, err := cat.ListClips(context.Background(), catalog.ClipFilter{SourceFile: "walk"})
	require.NoError(t, err)
	require.Len(t, clips, 2)
	assert.Equal(t, 40, clips[0].Frames)
	assert.Equal(t, "ada", clips[0].Subject)
}

func TestRunWithoutRecorder(t *testing.T) {
	cfg, src, idx := setup(t, 100, twoCuts()...)
	cfg.Extract.WriteManifest = false

	res, err := pipeline.NewExtractor(cfg, nil, nil).Run(context.Background(), pipeline.Request{SourcePath: src, Cuts: idx})
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.ManifestPath)
	assert.NoFileExists(t, filepath.Join(res.OutputDir, pipeline.ManifestName))
}

func TestDryRunWritesNothing(t *testing.T) {
	cfg, src, idx := setup(t, 100, twoCuts()...)

	res, err := pipeline.NewExtractor(cfg, nil, nil).Run(context.Background(), pipeline.Request{SourcePath: src, Cuts: idx, DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Len(t, res.Clips, 2)
	assert.NoDirExists(t, res.OutputDir)
}

func TestRunRejectsBadCutsBeforeWriting(t *testing.T) {
	cases := []struct {
		name    string
		entries []framecut.Entry
		want    error
	}{
		{
			name:    "range past end",
			entries: []framecut.Entry{{File: "walk", Style: "happy", Start: 0, End: 40}, {File: "walk", Style: "long", Start: 60, End: 101}},
			want:    mocaperr.ErrRangeOutOfBounds,
		},
		{
			name:    "overlap",
			entries: []framecut.Entry{{File: "walk", Style: "a", Start: 0, End: 50}, {File: "walk", Style: "b", Start: 49, End: 60}},
			want:    mocaperr.ErrOverlap,
		},
		{
			name:    "no cuts",
			entries: []framecut.Entry{{File: "other", Style: "a", Start: 0, End: 5}},
			want:    pipeline.ErrNoCuts,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, src, idx := setup(t, 100, tc.entries...)
			_, err := pipeline.NewExtractor(cfg, nil, nil).Run(context.Background(), pipeline.Request{SourcePath: src, Cuts: idx})
			require.ErrorIs(t, err, tc.want)
			assert.NoDirExists(t, filepath.Join(cfg.Paths.OutputDir, "walk"))
		})
	}
}

func TestRunRejectsCollidingClipNames(t *testing.T) {
	cfg, src, idx := setup(t, 100,
		framecut.Entry{File: "walk", Style: "Happy", Start: 0, End: 10},
		framecut.Entry{File: "walk", Style: "happy!", Start: 20, End: 30},
	)
	_, err := pipeline.NewExtractor(cfg, nil, nil).Run(context.Background(), pipeline.Request{SourcePath: src, Cuts: idx})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "walk_happy.bvh")
}

func TestRunOverwritePolicy(t *testing.T) {
	cfg, src, idx := setup(t, 100, twoCuts()...)
	ctx := context.Background()
	req := pipeline.Request{SourcePath: src, Cuts: idx}

	first, err := pipeline.NewExtractor(cfg, nil, nil).Run(ctx, req)
	require.NoError(t, err)

	again, err := pipeline.NewExtractor(cfg, nil, nil).Run(ctx, req)
	require.NoError(t, err)
	assert.True(t, again.Clips[0].Unchanged)

	happy := first.Clips[0].Path
	require.NoError(t, os.WriteFile(happy, []byte("edited"), 0o644))
	_, err = pipeline.NewExtractor(cfg, nil, nil).Run(ctx, req)
	require.ErrorIs(t, err, pipeline.ErrClipExists)
	assert.Equal(t, "edited", testsupport.ReadFile(t, happy))

	cfg.Extract.Overwrite = true
	_, err = pipeline.NewExtractor(cfg, nil, nil).Run(ctx, req)
	require.NoError(t, err)
	_, m, err := bvh.ParseFile(happy)
	require.NoError(t, err)
	assert.Equal(t, 40, m.Rows())
}

func TestRunCopiesSource(t *testing.T) {
	cfg, src, idx := setup(t, 100, twoCuts()...)
	cfg.Extract.CopySource = true

	res, err := pipeline.NewExtractor(cfg, nil, nil).Run(context.Background(), pipeline.Request{SourcePath: src, Cuts: idx})
	require.NoError(t, err)
	assert.Equal(t, testsupport.ReadFile(t, src), testsupport.ReadFile(t, filepath.Join(res.OutputDir, pipeline.SourceDirName, "walk.bvh")))
}

func TestRunFailsWhenLocked(t *testing.T) {
	cfg, src, idx := setup(t, 100, twoCuts()...)
	outDir := filepath.Join(cfg.Paths.OutputDir, "walk")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	held := flock.New(filepath.Join(outDir, pipeline.LockFileName))
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = held.Unlock() }()

	_, err = pipeline.NewExtractor(cfg, nil, nil).Run(context.Background(), pipeline.Request{SourcePath: src, Cuts: idx})
	require.ErrorIs(t, err, pipeline.ErrLocked)
}

func TestRunHonoursCancellation(t *testing.T) {
	cfg, src, idx := setup(t, 100, twoCuts()...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.NewExtractor(cfg, nil, nil).Run(ctx, pipeline.Request{SourcePath: src, Cuts: idx})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunMarksCatalogRunFailed(t *testing.T) {
	cfg, src, idx := setup(t, 100, twoCuts()...)
	cat := testsupport.MustOpenCatalog(t, cfg)

	rec := &failingRecorder{Recorder: cat, failOn: "sad"}
	_, err := pipeline.NewExtractor(cfg, rec, nil).Run(context.Background(), pipeline.Request{SourcePath: src, Cuts: idx})
	require.Error(t, err)

	runs, err := cat.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, catalog.RunFailed, runs[0].Status)
	assert.Equal(t, 1, runs[0].ClipCount)
}

type failingRecorder struct {
	pipeline.Recorder
	failOn string
}

func (r *failingRecorder) RecordClip(ctx context.Context, runID string, clip catalog.Clip) (int64, error) {
	if clip.Style == r.failOn {
		return 0, errors.New("catalog unavailable")
	}
	return r.Recorder.RecordClip(ctx, runID, clip)
}

func TestClipName(t *testing.T) {
	e := framecut.Entry{File: "Walk 01", Subject: "", Style: "Very Happy", Start: 0, End: 1}
	assert.Equal(t, "walk_01_very_happy.bvh", pipeline.ClipName("{file}_{style}", e, 1))
	assert.Equal(t, "unknown-03.bvh", pipeline.ClipName("{subject}-{index}", e, 3))
}
