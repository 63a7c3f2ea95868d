// Package skelstore persists validated skeletons as versioned gob+gzip
// objects. Loading rebuilds the skeleton through the same validation as a
// freshly constructed one, so a tampered or stale file cannot yield a
// skeleton that violates the joint tree invariants.
package skelstore

import (
	"compress/gzip"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"mocap/internal/fileutil"
	"mocap/internal/skeleton"
)

// FormatVersion is written into every object. Load rejects other versions.
const FormatVersion = 1

// Extension is the conventional file extension for stored skeletons.
const Extension = ".skel"

var ErrVersion = errors.New("unsupported skeleton object version")

type object struct {
	Version int
	Joints  []jointRecord
}

type jointRecord struct {
	Name     string
	Parent   int
	Offset   r3.Vec
	Channels []uint8
	EndSite  *r3.Vec
}

// Encode writes skel to w.
func Encode(w io.Writer, skel *skeleton.Skeleton) error {
	joints := skel.Joints()
	obj := object{Version: FormatVersion, Joints: make([]jointRecord, len(joints))}
	for i, j := range joints {
		channels := make([]uint8, len(j.Channels))
		for k, c := range j.Channels {
			channels[k] = uint8(c)
		}
		obj.Joints[i] = jointRecord{Name: j.Name, Parent: j.Parent, Offset: j.Offset, Channels: channels, EndSite: j.EndSite}
	}

	gz := gzip.NewWriter(w)
	if err := gob.NewEncoder(gz).Encode(obj); err != nil {
		gz.Close()
		return fmt.Errorf("encode skeleton: %w", err)
	}
	return gz.Close()
}

// Decode reads a skeleton written by Encode. The result is initialized.
func Decode(r io.Reader) (*skeleton.Skeleton, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open skeleton object: %w", err)
	}
	defer gz.Close()

	var obj object
	if err := gob.NewDecoder(gz).Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode skeleton object: %w", err)
	}
	if obj.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrVersion, obj.Version, FormatVersion)
	}

	joints := make([]skeleton.Joint, len(obj.Joints))
	for i, j := range obj.Joints {
		channels := make([]skeleton.Channel, len(j.Channels))
		for k, c := range j.Channels {
			channels[k] = skeleton.Channel(c)
		}
		joints[i] = skeleton.Joint{Name: j.Name, Parent: j.Parent, Offset: j.Offset, Channels: channels, EndSite: j.EndSite}
	}
	skel, err := skeleton.New(joints)
	if err != nil {
		return nil, err
	}
	skel.Init()
	return skel, nil
}

// Save writes skel to path atomically.
func Save(path string, skel *skeleton.Skeleton) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Encode(w, skel)
	})
}

// Load reads the skeleton stored at path.
func Load(path string) (*skeleton.Skeleton, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open skeleton %q: %w", path, err)
	}
	defer f.Close()

	skel, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load skeleton %q: %w", path, err)
	}
	return skel, nil
}

// FileStore persists skeletons to a fixed path.
type FileStore struct {
	Path string
}

// Persist saves skel to the store's path.
func (s FileStore) Persist(ctx context.Context, skel *skeleton.Skeleton) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return Save(s.Path, skel)
}
