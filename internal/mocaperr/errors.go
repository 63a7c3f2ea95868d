package mocaperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTopology      = errors.New("invalid topology")
	ErrParse                = errors.New("parse error")
	ErrRangeOutOfBounds     = errors.New("range out of bounds")
	ErrOverlap              = errors.New("overlapping frame cuts")
	ErrChannelCompatibility = errors.New("channel compatibility error")
	ErrNotInitialized       = errors.New("skeleton not initialized")
)

// InvalidTopologyError reports a parent/name array that violates the joint
// tree invariants. Joint is -1 when the violation is not tied to one joint.
type InvalidTopologyError struct {
	Joint  int
	Name   string
	Reason string
}

func (e *InvalidTopologyError) Error() string {
	switch {
	case e.Joint >= 0 && e.Name != "":
		return fmt.Sprintf("%v: joint %d (%s): %s", ErrInvalidTopology, e.Joint, e.Name, e.Reason)
	case e.Joint >= 0:
		return fmt.Sprintf("%v: joint %d: %s", ErrInvalidTopology, e.Joint, e.Reason)
	default:
		return fmt.Sprintf("%v: %s", ErrInvalidTopology, e.Reason)
	}
}

func (e *InvalidTopologyError) Is(target error) bool { return target == ErrInvalidTopology }

// Topology builds an InvalidTopologyError for the given joint.
func Topology(joint int, name, format string, args ...any) error {
	return &InvalidTopologyError{Joint: joint, Name: name, Reason: fmt.Sprintf(format, args...)}
}

// ParseError reports a grammar violation, count mismatch or truncated input.
// Line is 1-based; 0 means end of input.
type ParseError struct {
	Path string
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(ErrParse.Error())
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, ": line %d", e.Line)
	} else {
		b.WriteString(": end of input")
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

// RangeOutOfBoundsError reports a frame range that is empty, negative or
// reaches past the frame count of the capture it applies to.
type RangeOutOfBoundsError struct {
	File   string
	Style  string
	Start  int
	End    int
	Frames int
}

func (e *RangeOutOfBoundsError) Error() string {
	label := e.Style
	if e.File != "" {
		label = e.File + "/" + e.Style
	}
	return fmt.Sprintf("%v: %s [%d, %d) outside [0, %d)", ErrRangeOutOfBounds, label, e.Start, e.End, e.Frames)
}

func (e *RangeOutOfBoundsError) Is(target error) bool { return target == ErrRangeOutOfBounds }

// OverlapError reports two cuts on the same capture file whose ranges share
// at least one frame.
type OverlapError struct {
	File        string
	FirstStyle  string
	FirstStart  int
	FirstEnd    int
	SecondStyle string
	SecondStart int
	SecondEnd   int
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%v: %s: %s [%d, %d) overlaps %s [%d, %d)", ErrOverlap, e.File,
		e.FirstStyle, e.FirstStart, e.FirstEnd, e.SecondStyle, e.SecondStart, e.SecondEnd)
}

func (e *OverlapError) Is(target error) bool { return target == ErrOverlap }

// ChannelCompatibilityError reports a skeleton and channel matrix (or two
// skeletons) whose channel layouts cannot be combined.
type ChannelCompatibilityError struct {
	Reason string
}

func (e *ChannelCompatibilityError) Error() string {
	return fmt.Sprintf("%v: %s", ErrChannelCompatibility, e.Reason)
}

func (e *ChannelCompatibilityError) Is(target error) bool { return target == ErrChannelCompatibility }

// Incompatible builds a ChannelCompatibilityError.
func Incompatible(format string, args ...any) error {
	return &ChannelCompatibilityError{Reason: fmt.Sprintf(format, args...)}
}
