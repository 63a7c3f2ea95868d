package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mocap/internal/bvh"
	"mocap/internal/catalog"
	"mocap/internal/clip"
	"mocap/internal/config"
	"mocap/internal/fileutil"
	"mocap/internal/framecut"
	"mocap/internal/logging"
	"mocap/internal/manifest"
	"mocap/internal/skeleton"
	"mocap/internal/skelstore"
	"mocap/internal/textutil"
)

// Output file names inside a capture directory.
const (
	SkeletonDocName = "skeleton.json"
	SkeletonObjName = "skeleton" + skelstore.Extension
	ManifestName    = "manifest.json"
	SourceDirName   = "source"
	LockFileName    = ".mocap.lock"
	fileMode        = 0o644
	captureDirPerms = 0o755
)

var (
	// ErrNoCuts is returned when the frame-cut index has no entries for the
	// capture.
	ErrNoCuts = errors.New("no frame cuts for capture")
	// ErrClipExists is returned when a clip file exists with different
	// content and overwriting is disabled.
	ErrClipExists = errors.New("clip file exists")
	// ErrLocked is returned when another run holds the capture directory.
	ErrLocked = errors.New("capture directory locked by another run")
)

// Recorder receives run and clip records. *catalog.Catalog implements it.
type Recorder interface {
	BeginRun(ctx context.Context, sourcePath, sourceFile, sourceSHA256, outputDir string) (*catalog.Run, error)
	RecordClip(ctx context.Context, runID string, clip catalog.Clip) (int64, error)
	FinishRun(ctx context.Context, runID string, runErr error) error
}

// Request describes one extraction.
type Request struct {
	// SourcePath is the BVH capture to cut.
	SourcePath string
	// Cuts holds the frame-cut table; entries are looked up by the capture's
	// file ID.
	Cuts *framecut.Index
	// DryRun validates and plans without writing anything.
	DryRun bool
}

// ClipResult describes one planned or written clip.
type ClipResult struct {
	Entry     framecut.Entry `json:"entry"`
	Path      string         `json:"path"`
	SHA256    string         `json:"sha256"`
	Frames    int            `json:"frames"`
	Unchanged bool           `json:"unchanged,omitempty"`
}

// Result summarizes a run.
type Result struct {
	RunID        string       `json:"run_id,omitempty"`
	File         string       `json:"file"`
	SourcePath   string       `json:"source_path"`
	SourceSHA256 string       `json:"source_sha256"`
	OutputDir    string       `json:"output_dir"`
	TotalFrames  int          `json:"total_frames"`
	Channels     int          `json:"channels"`
	FrameTime    float64      `json:"frame_time"`
	Clips        []ClipResult `json:"clips"`
	ManifestPath string       `json:"manifest_path,omitempty"`
	DryRun       bool         `json:"dry_run,omitempty"`
}

// Extractor runs extractions with a fixed configuration.
type Extractor struct {
	cfg      *config.Config
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewExtractor builds an extractor. recorder may be nil to skip catalog
// recording.
func NewExtractor(cfg *config.Config, recorder Recorder, logger *slog.Logger) *Extractor {
	return &Extractor{
		cfg:      cfg,
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "extract"),
		now:      time.Now,
	}
}

type plannedClip struct {
	clip *clip.Clip
	path string
	data []byte
	same bool
}

// Run extracts every clip the frame-cut table lists for req.SourcePath.
func (e *Extractor) Run(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.SourcePath == "" {
		return nil, errors.New("source path is empty")
	}
	if req.Cuts == nil {
		return nil, errors.New("frame-cut index is nil")
	}
	fileID := framecut.FileID(req.SourcePath)
	logger := e.logger.With(logging.String(logging.FieldFile, fileID))

	entries := req.Cuts.RangesFor(fileID)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoCuts, fileID)
	}

	sourceHash, err := fileutil.HashFile(req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("read capture %q: %w", req.SourcePath, err)
	}
	skel, motionData, err := bvh.ParseFile(req.SourcePath)
	if err != nil {
		return nil, err
	}
	logger.Debug("capture parsed",
		logging.Int("joints", skel.Len()),
		logging.Int("channels", skel.ChannelCount()),
		logging.Int(logging.FieldFrames, motionData.Rows()),
	)

	if err := req.Cuts.ValidateAgainst(fileID, motionData.Rows()); err != nil {
		return nil, err
	}
	clips, err := clip.Extract(skel, motionData, entries)
	if err != nil {
		return nil, err
	}
	names, err := clipNames(e.cfg.Extract.ClipNameTemplate, entries)
	if err != nil {
		return nil, err
	}

	outDir := CaptureDir(e.cfg.Paths.OutputDir, fileID)
	res := &Result{
		File:         fileID,
		SourcePath:   req.SourcePath,
		SourceSHA256: sourceHash,
		OutputDir:    outDir,
		TotalFrames:  motionData.Rows(),
		Channels:     skel.ChannelCount(),
		FrameTime:    motionData.FrameTime(),
		DryRun:       req.DryRun,
	}

	if !req.DryRun {
		if err := os.MkdirAll(outDir, captureDirPerms); err != nil {
			return nil, fmt.Errorf("create capture dir: %w", err)
		}
		lock := flock.New(filepath.Join(outDir, LockFileName))
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLocked, outDir)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.Warn("failed to release capture lock", logging.Error(err))
			}
		}()
	}

	plan, err := e.plan(clips, names, outDir)
	if err != nil {
		return nil, err
	}
	for _, p := range plan {
		res.Clips = append(res.Clips, ClipResult{
			Entry:     p.clip.Entry(),
			Path:      p.path,
			SHA256:    fileutil.HashBytes(p.data),
			Frames:    p.clip.Frames(),
			Unchanged: p.same,
		})
	}
	if req.DryRun {
		logger.Info("extraction planned", logging.Int("clips", len(plan)), logging.String(logging.FieldPath, outDir))
		return res, nil
	}

	runID, err := e.beginRun(ctx, req.SourcePath, fileID, sourceHash, outDir)
	if err != nil {
		return nil, err
	}
	res.RunID = runID
	ctx = logging.WithRunID(ctx, runID)
	logger = logging.WithContext(ctx, logger)
	logger.Info("extraction started",
		logging.String(logging.FieldPath, req.SourcePath),
		logging.Int("clips", len(plan)),
	)

	runErr := e.write(ctx, logger, res, plan, skel)
	e.finishRun(ctx, logger, runID, runErr)
	if runErr != nil {
		logging.ErrorWithContext(logger, "extraction failed", "extract_failed",
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, "fix the capture or frame-cut table and rerun"),
		)
		return res, runErr
	}
	logger.Info("extraction completed",
		logging.Int("clips", len(res.Clips)),
		logging.Int(logging.FieldFrames, clip.TotalFrames(clips)),
		logging.String(logging.FieldPath, outDir),
	)
	return res, nil
}

// plan encodes every clip and checks the overwrite policy before anything is
// written.
func (e *Extractor) plan(clips []*clip.Clip, names []string, outDir string) ([]plannedClip, error) {
	opts := []bvh.WriteOption{
		bvh.WithPrecision(e.cfg.BVH.Precision),
		bvh.WithIndent(e.cfg.BVHIndent()),
	}
	plan := make([]plannedClip, len(clips))
	for i, c := range clips {
		data, err := bvh.Marshal(c.Skeleton(), c.Motion(), opts...)
		if err != nil {
			return nil, fmt.Errorf("encode clip %s: %w", c.Style(), err)
		}
		path := filepath.Join(outDir, names[i])
		same, err := fileutil.SameContent(path, data)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("check existing clip: %w", err)
		case !same && !e.cfg.Extract.Overwrite:
			return nil, fmt.Errorf("%w: %s (enable extract.overwrite to replace)", ErrClipExists, path)
		}
		plan[i] = plannedClip{clip: c, path: path, data: data, same: same}
	}
	return plan, nil
}

func (e *Extractor) write(ctx context.Context, logger *slog.Logger, res *Result, plan []plannedClip, skel *skeleton.Skeleton) error {
	for i, p := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		clipLogger := logger.With(logging.String(logging.FieldStyle, p.clip.Style()))
		if p.same {
			clipLogger.Debug("clip unchanged", logging.String(logging.FieldPath, p.path))
		} else {
			if err := fileutil.WriteFileAtomic(p.path, p.data, fileMode); err != nil {
				return fmt.Errorf("write clip %s: %w", p.clip.Style(), err)
			}
			clipLogger.Debug("clip written",
				logging.Int(logging.FieldFrames, p.clip.Frames()),
				logging.String(logging.FieldPath, p.path),
			)
		}
		if e.recorder != nil {
			start, end := p.clip.Range()
			_, err := e.recorder.RecordClip(ctx, res.RunID, catalog.Clip{
				SourceFile: res.File,
				Subject:    p.clip.Subject(),
				Style:      p.clip.Style(),
				Start:      start,
				End:        end,
				Path:       p.path,
				SHA256:     res.Clips[i].SHA256,
			})
			if err != nil {
				return err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.writeSkeleton(res.OutputDir, skel); err != nil {
		return err
	}
	if e.cfg.Extract.CopySource {
		dst := filepath.Join(res.OutputDir, SourceDirName, filepath.Base(res.SourcePath))
		if err := os.MkdirAll(filepath.Dir(dst), captureDirPerms); err != nil {
			return fmt.Errorf("create source dir: %w", err)
		}
		if err := fileutil.CopyFileVerified(res.SourcePath, dst); err != nil {
			return fmt.Errorf("copy source: %w", err)
		}
	}
	if e.cfg.Extract.WriteManifest {
		path := filepath.Join(res.OutputDir, ManifestName)
		if err := manifest.WriteJSON(path, e.manifest(res)); err != nil {
			return err
		}
		res.ManifestPath = path
	}
	return nil
}

func (e *Extractor) writeSkeleton(dir string, skel *skeleton.Skeleton) error {
	doc, err := manifest.FromSkeleton(skel)
	if err != nil {
		return err
	}
	if err := manifest.WriteJSON(filepath.Join(dir, SkeletonDocName), doc); err != nil {
		return err
	}
	return skelstore.Save(filepath.Join(dir, SkeletonObjName), skel)
}

func (e *Extractor) manifest(res *Result) manifest.ClipManifest {
	m := manifest.ClipManifest{
		Version:   manifest.Version,
		RunID:     res.RunID,
		CreatedAt: e.now().UTC(),
		Source: manifest.SourceDoc{
			File:      res.File,
			Path:      res.SourcePath,
			SHA256:    res.SourceSHA256,
			Frames:    res.TotalFrames,
			FrameTime: res.FrameTime,
			Channels:  res.Channels,
		},
		Skeleton: SkeletonDocName,
		Clips:    make([]manifest.ClipDoc, len(res.Clips)),
	}
	for i, c := range res.Clips {
		m.Clips[i] = manifest.ClipDoc{
			Name:     filepath.Base(c.Path),
			Subject:  c.Entry.Subject,
			Style:    c.Entry.Style,
			Label:    textutil.StyleLabel(c.Entry.Style),
			Start:    c.Entry.Start,
			End:      c.Entry.End,
			Frames:   c.Frames,
			Duration: float64(c.Frames) * res.FrameTime,
			SHA256:   c.SHA256,
		}
	}
	return m
}

func (e *Extractor) beginRun(ctx context.Context, sourcePath, fileID, sourceHash, outDir string) (string, error) {
	if e.recorder == nil {
		return uuid.NewString(), nil
	}
	run, err := e.recorder.BeginRun(ctx, sourcePath, fileID, sourceHash, outDir)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return run.ID, nil
}

func (e *Extractor) finishRun(ctx context.Context, logger *slog.Logger, runID string, runErr error) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.FinishRun(context.WithoutCancel(ctx), runID, runErr); err != nil {
		logging.WarnWithContext(logger, "failed to record run completion", "catalog_finish_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "catalog shows the run as still running"),
		)
	}
}
