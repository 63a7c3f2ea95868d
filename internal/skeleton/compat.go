package skeleton

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"mocap/internal/mocaperr"
)

// CheckCompatible returns a ChannelCompatibilityError describing the first
// difference in joint count, joint order or per-joint channel sets between s
// and other. Motion data from two sources may only be combined when this
// returns nil.
func (s *Skeleton) CheckCompatible(other *Skeleton) error {
	if s == nil || other == nil {
		return mocaperr.Incompatible("missing skeleton")
	}
	if len(s.joints) != len(other.joints) {
		return mocaperr.Incompatible("joint count %d != %d", len(s.joints), len(other.joints))
	}
	for i := range s.joints {
		a, b := s.joints[i], other.joints[i]
		if a.Name != b.Name {
			return mocaperr.Incompatible("joint %d is %q in one skeleton and %q in the other", i, a.Name, b.Name)
		}
		if !slices.Equal(a.Channels, b.Channels) {
			return mocaperr.Incompatible("joint %d (%s) channels %v != %v", i, a.Name,
				ChannelNames(a.Channels), ChannelNames(b.Channels))
		}
	}
	return nil
}

// Compatible reports whether CheckCompatible succeeds.
func (s *Skeleton) Compatible(other *Skeleton) bool {
	return s.CheckCompatible(other) == nil
}

// CheckColumns verifies that a channel matrix with cols columns matches the
// skeleton's channel layout.
func (s *Skeleton) CheckColumns(cols int) error {
	if cols != s.channelCount {
		return mocaperr.Incompatible("matrix has %d columns, skeleton declares %d channels", cols, s.channelCount)
	}
	return nil
}

// EqualApprox reports whether s and other are channel-compatible, share the
// same parent links and End Site layout, and have offsets within tol.
func (s *Skeleton) EqualApprox(other *Skeleton, tol float64) bool {
	if !s.Compatible(other) {
		return false
	}
	for i := range s.joints {
		a, b := s.joints[i], other.joints[i]
		if a.Parent != b.Parent || !vecEqual(a.Offset, b.Offset, tol) {
			return false
		}
		if (a.EndSite == nil) != (b.EndSite == nil) {
			return false
		}
		if a.EndSite != nil && !vecEqual(*a.EndSite, *b.EndSite, tol) {
			return false
		}
	}
	return true
}

func vecEqual(a, b r3.Vec, tol float64) bool {
	d := r3.Sub(a, b)
	return math.Abs(d.X) <= tol && math.Abs(d.Y) <= tol && math.Abs(d.Z) <= tol
}
