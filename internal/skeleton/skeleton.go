package skeleton

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"

	"mocap/internal/mocaperr"
)

// Root is the parent index carried by the root joint.
const Root = -1

// Joint describes one entry of the joint arena.
type Joint struct {
	Name     string
	Parent   int
	Offset   r3.Vec
	Channels []Channel
	// EndSite is the optional terminal offset declared inside the joint.
	EndSite *r3.Vec
}

// Skeleton is a validated joint tree. Construct it with New or Build.
type Skeleton struct {
	joints       []Joint
	index        map[string]int
	columns      []int
	channelCount int

	derived atomic.Pointer[hierarchy]
}

type hierarchy struct {
	children    [][]int
	depth       []int
	endEffector []bool
	leaves      []int
}

// BuildOption customises Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	rootChannels  []Channel
	jointChannels []Channel
}

// WithChannels overrides the channel layout Build assigns to the root and to
// every other joint.
func WithChannels(root, joint []Channel) BuildOption {
	return func(o *buildOptions) {
		o.rootChannels = slices.Clone(root)
		o.jointChannels = slices.Clone(joint)
	}
}

// Build validates raw parallel arrays and returns an uninitialized skeleton.
// Joints receive DefaultRootChannels / DefaultJointChannels unless
// WithChannels is given.
func Build(offsets []r3.Vec, parents []int, names []string, opts ...BuildOption) (*Skeleton, error) {
	if len(offsets) != len(parents) || len(parents) != len(names) {
		return nil, mocaperr.Topology(-1, "", "array lengths differ: %d offsets, %d parents, %d names",
			len(offsets), len(parents), len(names))
	}
	o := buildOptions{rootChannels: DefaultRootChannels(), jointChannels: DefaultJointChannels()}
	for _, opt := range opts {
		opt(&o)
	}
	joints := make([]Joint, len(names))
	for i := range names {
		channels := o.jointChannels
		if parents[i] == Root {
			channels = o.rootChannels
		}
		joints[i] = Joint{
			Name:     names[i],
			Parent:   parents[i],
			Offset:   offsets[i],
			Channels: slices.Clone(channels),
		}
	}
	return newSkeleton(joints)
}

// New validates the joints and returns an uninitialized skeleton. The input
// slice is copied.
func New(joints []Joint) (*Skeleton, error) {
	return newSkeleton(cloneJoints(joints))
}

func newSkeleton(joints []Joint) (*Skeleton, error) {
	if len(joints) == 0 {
		return nil, mocaperr.Topology(-1, "", "skeleton has no joints")
	}

	roots := make([]int, 0, 1)
	for i, j := range joints {
		if j.Parent == Root {
			roots = append(roots, i)
		}
	}
	switch len(roots) {
	case 0:
		return nil, mocaperr.Topology(-1, "", "no root joint (parent %d)", Root)
	case 1:
	default:
		return nil, mocaperr.Topology(roots[1], joints[roots[1]].Name, "multiple roots: joints %v", roots)
	}

	s := &Skeleton{
		joints:  joints,
		index:   make(map[string]int, len(joints)),
		columns: make([]int, len(joints)),
	}
	for i := range joints {
		j := &joints[i]
		j.Name = strings.TrimSpace(j.Name)
		if j.Name == "" {
			return nil, mocaperr.Topology(i, "", "empty joint name")
		}
		if prev, dup := s.index[j.Name]; dup {
			return nil, mocaperr.Topology(i, j.Name, "duplicate name (first declared at joint %d)", prev)
		}
		s.index[j.Name] = i

		if j.Parent != Root && (j.Parent < 0 || j.Parent >= i) {
			return nil, mocaperr.Topology(i, j.Name, "parent %d must be declared before the joint", j.Parent)
		}
		if !finite(j.Offset) {
			return nil, mocaperr.Topology(i, j.Name, "offset is not finite")
		}
		if j.EndSite != nil && !finite(*j.EndSite) {
			return nil, mocaperr.Topology(i, j.Name, "end site offset is not finite")
		}

		seen := make(map[Channel]struct{}, len(j.Channels))
		for _, c := range j.Channels {
			if !c.Valid() {
				return nil, mocaperr.Topology(i, j.Name, "invalid channel %v", c)
			}
			if _, dup := seen[c]; dup {
				return nil, mocaperr.Topology(i, j.Name, "channel %v declared twice", c)
			}
			seen[c] = struct{}{}
		}
		s.columns[i] = s.channelCount
		s.channelCount += len(j.Channels)
	}
	return s, nil
}

// Init builds the derived hierarchy state. It may be called any number of
// times; every call recomputes the state from the joint arena and publishes
// it atomically.
func (s *Skeleton) Init() {
	n := len(s.joints)
	h := &hierarchy{
		children:    make([][]int, n),
		depth:       make([]int, n),
		endEffector: make([]bool, n),
	}
	for i := 1; i < n; i++ {
		p := s.joints[i].Parent
		h.children[p] = append(h.children[p], i)
		h.depth[i] = h.depth[p] + 1
	}
	for i := range n {
		if len(h.children[i]) == 0 {
			h.endEffector[i] = true
			h.leaves = append(h.leaves, i)
		}
	}
	s.derived.Store(h)
}

// Initialized reports whether Init has run.
func (s *Skeleton) Initialized() bool {
	return s.derived.Load() != nil
}

func (s *Skeleton) hierarchy() (*hierarchy, error) {
	h := s.derived.Load()
	if h == nil {
		return nil, mocaperr.ErrNotInitialized
	}
	return h, nil
}

func (s *Skeleton) checkIndex(i int) error {
	if i < 0 || i >= len(s.joints) {
		return fmt.Errorf("joint index %d out of range [0, %d)", i, len(s.joints))
	}
	return nil
}

// Len returns the number of joints.
func (s *Skeleton) Len() int { return len(s.joints) }

// Name returns the name of joint i. It panics if i is out of range.
func (s *Skeleton) Name(i int) string { return s.joints[i].Name }

// Parent returns the parent index of joint i, or Root.
func (s *Skeleton) Parent(i int) int { return s.joints[i].Parent }

// Offset returns the rest-pose offset of joint i from its parent.
func (s *Skeleton) Offset(i int) r3.Vec { return s.joints[i].Offset }

// Channels returns a copy of the channels declared on joint i.
func (s *Skeleton) Channels(i int) []Channel { return slices.Clone(s.joints[i].Channels) }

// EndSite returns the End Site offset of joint i, if one was declared.
func (s *Skeleton) EndSite(i int) (r3.Vec, bool) {
	if s.joints[i].EndSite == nil {
		return r3.Vec{}, false
	}
	return *s.joints[i].EndSite, true
}

// Index looks up a joint by name.
func (s *Skeleton) Index(name string) (int, bool) {
	i, ok := s.index[strings.TrimSpace(name)]
	return i, ok
}

// Names returns the joint names in declaration order.
func (s *Skeleton) Names() []string {
	out := make([]string, len(s.joints))
	for i, j := range s.joints {
		out[i] = j.Name
	}
	return out
}

// Parents returns the parent indices in declaration order.
func (s *Skeleton) Parents() []int {
	out := make([]int, len(s.joints))
	for i, j := range s.joints {
		out[i] = j.Parent
	}
	return out
}

// Offsets returns the joint offsets in declaration order.
func (s *Skeleton) Offsets() []r3.Vec {
	out := make([]r3.Vec, len(s.joints))
	for i, j := range s.joints {
		out[i] = j.Offset
	}
	return out
}

// Joints returns a deep copy of the joint arena.
func (s *Skeleton) Joints() []Joint { return cloneJoints(s.joints) }

// ChannelCount is the number of columns a channel matrix for this skeleton has.
func (s *Skeleton) ChannelCount() int { return s.channelCount }

// ChannelOffset returns the first matrix column belonging to joint i.
func (s *Skeleton) ChannelOffset(i int) int { return s.columns[i] }

// AncestorChain returns the joint indices from the root down to joint i.
func (s *Skeleton) AncestorChain(i int) ([]int, error) {
	h, err := s.hierarchy()
	if err != nil {
		return nil, err
	}
	if err := s.checkIndex(i); err != nil {
		return nil, err
	}
	chain := make([]int, h.depth[i]+1)
	for k, j := len(chain)-1, i; k >= 0; k-- {
		chain[k] = j
		j = s.joints[j].Parent
	}
	return chain, nil
}

// Children returns the direct children of joint i in declaration order.
func (s *Skeleton) Children(i int) ([]int, error) {
	h, err := s.hierarchy()
	if err != nil {
		return nil, err
	}
	if err := s.checkIndex(i); err != nil {
		return nil, err
	}
	return slices.Clone(h.children[i]), nil
}

// Depth returns the number of edges between joint i and the root.
func (s *Skeleton) Depth(i int) (int, error) {
	h, err := s.hierarchy()
	if err != nil {
		return 0, err
	}
	if err := s.checkIndex(i); err != nil {
		return 0, err
	}
	return h.depth[i], nil
}

// IsEndEffector reports whether joint i has no child joints.
func (s *Skeleton) IsEndEffector(i int) (bool, error) {
	h, err := s.hierarchy()
	if err != nil {
		return false, err
	}
	if err := s.checkIndex(i); err != nil {
		return false, err
	}
	return h.endEffector[i], nil
}

// EndEffectors returns every joint without child joints.
func (s *Skeleton) EndEffectors() ([]int, error) {
	h, err := s.hierarchy()
	if err != nil {
		return nil, err
	}
	return slices.Clone(h.leaves), nil
}

// RestPosition returns the rest-pose position of joint i relative to the root
// origin by summing offsets along its ancestor chain.
func (s *Skeleton) RestPosition(i int) (r3.Vec, error) {
	chain, err := s.AncestorChain(i)
	if err != nil {
		return r3.Vec{}, err
	}
	var pos r3.Vec
	for _, j := range chain {
		pos = r3.Add(pos, s.joints[j].Offset)
	}
	return pos, nil
}

// RestPositions returns the rest-pose position of every joint.
func (s *Skeleton) RestPositions() ([]r3.Vec, error) {
	if _, err := s.hierarchy(); err != nil {
		return nil, err
	}
	out := make([]r3.Vec, len(s.joints))
	out[0] = s.joints[0].Offset
	for i := 1; i < len(s.joints); i++ {
		out[i] = r3.Add(out[s.joints[i].Parent], s.joints[i].Offset)
	}
	return out, nil
}

// IsDepthFirst reports whether the joint order is a depth-first pre-order of
// the tree, which is the only order a BVH hierarchy block can express.
func (s *Skeleton) IsDepthFirst() bool {
	for i := 1; i < len(s.joints); i++ {
		want := s.joints[i].Parent
		found := false
		for j := i - 1; j != Root; j = s.joints[j].Parent {
			if j == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func finite(v r3.Vec) bool {
	for _, f := range [...]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func cloneJoints(in []Joint) []Joint {
	out := make([]Joint, len(in))
	for i, j := range in {
		out[i] = j
		out[i].Channels = slices.Clone(j.Channels)
		if j.EndSite != nil {
			site := *j.EndSite
			out[i].EndSite = &site
		}
	}
	return out
}
