// Package legacy converts skeletons stored in the raw mapping form
// {"offsets": [[x,y,z],...], "parents": [...], "names": [...]} into validated
// skeleton objects. The raw form is only ever read; migration output goes to
// a Persister.
package legacy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"mocap/internal/mocaperr"
	"mocap/internal/skeleton"
)

// Record is the raw parallel-array skeleton form.
type Record struct {
	Offsets [][]float64 `json:"offsets"`
	Parents []int       `json:"parents"`
	Names   []string    `json:"names"`
}

var recordKeys = []string{"names", "offsets", "parents"}

// Persister stores a migrated skeleton.
type Persister interface {
	Persist(ctx context.Context, skel *skeleton.Skeleton) error
}

// Decode parses a raw mapping. The mapping must have exactly the keys
// offsets, parents and names, and every offset must have three components.
func Decode(data []byte) (Record, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, &mocaperr.ParseError{Msg: "legacy skeleton is not a JSON object", Err: err}
	}
	if keys := slices.Sorted(maps.Keys(raw)); !slices.Equal(keys, recordKeys) {
		return Record{}, &mocaperr.ParseError{Msg: fmt.Sprintf("legacy skeleton keys %v, want exactly %v", keys, recordKeys)}
	}

	var rec Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return Record{}, &mocaperr.ParseError{Msg: "decode legacy skeleton", Err: err}
	}
	for i, off := range rec.Offsets {
		if len(off) != 3 {
			return Record{}, &mocaperr.ParseError{Msg: fmt.Sprintf("offset %d has %d components, want 3", i, len(off))}
		}
	}
	return rec, nil
}

// Skeleton validates rec and returns an initialized skeleton. Channel layout
// options are passed to skeleton.Build.
func (rec Record) Skeleton(opts ...skeleton.BuildOption) (*skeleton.Skeleton, error) {
	offsets := make([]r3.Vec, len(rec.Offsets))
	for i, off := range rec.Offsets {
		if len(off) != 3 {
			return nil, mocaperr.Topology(i, "", "offset has %d components, want 3", len(off))
		}
		offsets[i] = r3.Vec{X: off[0], Y: off[1], Z: off[2]}
	}
	skel, err := skeleton.Build(offsets, rec.Parents, rec.Names, opts...)
	if err != nil {
		return nil, err
	}
	skel.Init()
	return skel, nil
}

// Migrate validates rec and hands the resulting skeleton to p. Nothing is
// persisted when validation fails.
func Migrate(ctx context.Context, rec Record, p Persister, opts ...skeleton.BuildOption) (*skeleton.Skeleton, error) {
	skel, err := rec.Skeleton(opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Persist(ctx, skel); err != nil {
		return nil, fmt.Errorf("persist migrated skeleton: %w", err)
	}
	return skel, nil
}

// MigrateFile reads the raw mapping at src and migrates it. src is never
// modified.
func MigrateFile(ctx context.Context, src string, p Persister, opts ...skeleton.BuildOption) (*skeleton.Skeleton, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read legacy skeleton %q: %w", src, err)
	}
	rec, err := Decode(data)
	if err != nil {
		var perr *mocaperr.ParseError
		if errors.As(err, &perr) {
			perr.Path = src
		}
		return nil, err
	}
	skel, err := Migrate(ctx, rec, p, opts...)
	if err != nil {
		return nil, fmt.Errorf("migrate %q: %w", src, err)
	}
	return skel, nil
}
