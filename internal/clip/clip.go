// Package clip slices a continuous capture into per-style motion clips.
//
// Every clip shares the source skeleton read-only and owns a copy of its
// frame rows, so clips stay valid after the source matrix is discarded.
package clip

import (
	"fmt"

	"mocap/internal/framecut"
	"mocap/internal/mocaperr"
	"mocap/internal/motion"
	"mocap/internal/skeleton"
)

// Clip is an immutable labeled slice of a capture.
type Clip struct {
	skel    *skeleton.Skeleton
	motion  *motion.Matrix
	file    string
	subject string
	style   string
	start   int
	end     int
}

// Skeleton returns the shared skeleton. Callers must treat it as read-only.
func (c *Clip) Skeleton() *skeleton.Skeleton { return c.skel }

// Motion returns the clip's frames.
func (c *Clip) Motion() *motion.Matrix { return c.motion }

// File returns the capture file ID the clip was cut from.
func (c *Clip) File() string { return c.file }

// Subject returns the performer recorded in the frame-cut table, if any.
func (c *Clip) Subject() string { return c.subject }

// Style returns the style label.
func (c *Clip) Style() string { return c.style }

// Range returns the half-open source frame range.
func (c *Clip) Range() (start, end int) { return c.start, c.end }

// Frames returns the number of frames in the clip.
func (c *Clip) Frames() int { return c.motion.Rows() }

// Entry returns the frame-cut entry the clip was extracted from.
func (c *Clip) Entry() framecut.Entry {
	return framecut.Entry{File: c.file, Subject: c.subject, Style: c.style, Start: c.start, End: c.end}
}

// Extract cuts one clip per entry, in entry order. Either every clip is
// returned or none: the skeleton must be initialized and match the matrix
// columns, and every range must lie inside the matrix.
func Extract(skel *skeleton.Skeleton, m *motion.Matrix, entries []framecut.Entry) ([]*Clip, error) {
	if skel == nil || m == nil {
		return nil, fmt.Errorf("extract: skeleton and matrix are required")
	}
	if !skel.Initialized() {
		return nil, fmt.Errorf("extract: %w", mocaperr.ErrNotInitialized)
	}
	if err := skel.CheckColumns(m.Cols()); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := framecut.CheckRange(e, m.Rows()); err != nil {
			return nil, err
		}
	}

	clips := make([]*Clip, 0, len(entries))
	for _, e := range entries {
		sub, err := m.Slice(e.Start, e.End)
		if err != nil {
			return nil, fmt.Errorf("extract %s/%s: %w", e.File, e.Style, err)
		}
		clips = append(clips, &Clip{
			skel:    skel,
			motion:  sub,
			file:    e.File,
			subject: e.Subject,
			style:   e.Style,
			start:   e.Start,
			end:     e.End,
		})
	}
	return clips, nil
}

// TotalFrames sums the frame counts of clips.
func TotalFrames(clips []*Clip) int {
	n := 0
	for _, c := range clips {
		n += c.Frames()
	}
	return n
}
