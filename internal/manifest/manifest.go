// Package manifest describes extraction output for external consumers: a
// JSON skeleton document and a clip manifest listing every clip written for
// a capture. Both documents have a JSON Schema available through Schema.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"mocap/internal/fileutil"
	"mocap/internal/skeleton"
)

// Version is the document format version written by this package.
const Version = 1

// JointDoc is one joint of a SkeletonDoc.
type JointDoc struct {
	Name         string      `json:"name" jsonschema:"required"`
	Parent       int         `json:"parent" jsonschema:"required,minimum=-1,description=Index of the parent joint or -1 for the root"`
	Offset       [3]float64  `json:"offset" jsonschema:"required"`
	Channels     []string    `json:"channels" jsonschema:"required"`
	ChannelStart int         `json:"channel_start" jsonschema:"required,description=First matrix column owned by the joint"`
	Depth        int         `json:"depth" jsonschema:"required"`
	RestPosition [3]float64  `json:"rest_position" jsonschema:"required"`
	EndSite      *[3]float64 `json:"end_site,omitempty"`
}

// SkeletonDoc is the JSON form of a skeleton.
type SkeletonDoc struct {
	Version      int        `json:"version" jsonschema:"required"`
	ChannelCount int        `json:"channel_count" jsonschema:"required"`
	Joints       []JointDoc `json:"joints" jsonschema:"required"`
	EndEffectors []string   `json:"end_effectors" jsonschema:"required"`
}

// SourceDoc describes the capture clips were cut from.
type SourceDoc struct {
	File      string  `json:"file" jsonschema:"required,description=Capture file ID"`
	Path      string  `json:"path" jsonschema:"required"`
	SHA256    string  `json:"sha256" jsonschema:"required"`
	Frames    int     `json:"frames" jsonschema:"required"`
	FrameTime float64 `json:"frame_time" jsonschema:"required"`
	Channels  int     `json:"channels" jsonschema:"required"`
}

// ClipDoc describes one written clip.
type ClipDoc struct {
	Name     string  `json:"name" jsonschema:"required,description=Clip file name relative to the manifest"`
	Subject  string  `json:"subject,omitempty"`
	Style    string  `json:"style" jsonschema:"required"`
	Label    string  `json:"label" jsonschema:"required,description=Display form of the style"`
	Start    int     `json:"start_frame" jsonschema:"required"`
	End      int     `json:"end_frame" jsonschema:"required"`
	Frames   int     `json:"frames" jsonschema:"required"`
	Duration float64 `json:"duration_seconds" jsonschema:"required"`
	SHA256   string  `json:"sha256" jsonschema:"required"`
}

// ClipManifest lists the clips written for one capture.
type ClipManifest struct {
	Version   int       `json:"version" jsonschema:"required"`
	RunID     string    `json:"run_id" jsonschema:"required"`
	CreatedAt time.Time `json:"created_at" jsonschema:"required"`
	Source    SourceDoc `json:"source" jsonschema:"required"`
	Skeleton  string    `json:"skeleton" jsonschema:"required,description=Skeleton document file name"`
	Clips     []ClipDoc `json:"clips" jsonschema:"required"`
}

// FromSkeleton builds the document for an initialized skeleton.
func FromSkeleton(skel *skeleton.Skeleton) (SkeletonDoc, error) {
	rest, err := skel.RestPositions()
	if err != nil {
		return SkeletonDoc{}, err
	}
	leaves, err := skel.EndEffectors()
	if err != nil {
		return SkeletonDoc{}, err
	}

	doc := SkeletonDoc{
		Version:      Version,
		ChannelCount: skel.ChannelCount(),
		Joints:       make([]JointDoc, skel.Len()),
		EndEffectors: make([]string, len(leaves)),
	}
	for i := range skel.Len() {
		depth, err := skel.Depth(i)
		if err != nil {
			return SkeletonDoc{}, err
		}
		off := skel.Offset(i)
		j := JointDoc{
			Name:         skel.Name(i),
			Parent:       skel.Parent(i),
			Offset:       [3]float64{off.X, off.Y, off.Z},
			Channels:     skeleton.ChannelNames(skel.Channels(i)),
			ChannelStart: skel.ChannelOffset(i),
			Depth:        depth,
			RestPosition: [3]float64{rest[i].X, rest[i].Y, rest[i].Z},
		}
		if site, ok := skel.EndSite(i); ok {
			j.EndSite = &[3]float64{site.X, site.Y, site.Z}
		}
		doc.Joints[i] = j
	}
	for k, i := range leaves {
		doc.EndEffectors[k] = skel.Name(i)
	}
	return doc, nil
}

// WriteJSON writes v as indented JSON to path atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// ReadManifest loads a clip manifest.
func ReadManifest(path string) (*ClipManifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest %q: %w", path, err)
	}
	defer f.Close()
	return DecodeManifest(f)
}

// DecodeManifest reads a clip manifest and rejects unknown fields and other
// format versions.
func DecodeManifest(r io.Reader) (*ClipManifest, error) {
	var m ClipManifest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != Version {
		return nil, fmt.Errorf("manifest version %d not supported (want %d)", m.Version, Version)
	}
	return &m, nil
}
