package skeleton_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"mocap/internal/mocaperr"
	"mocap/internal/skeleton"
)

func chainSkeleton(t *testing.T) *skeleton.Skeleton {
	t.Helper()
	skel, err := skeleton.Build(
		[]r3.Vec{{}, {Y: 1}, {Y: 1}},
		[]int{-1, 0, 1},
		[]string{"root", "child", "grandchild"},
	)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	skel.Init()
	return skel
}

func TestBuildThreeJointChain(t *testing.T) {
	skel := chainSkeleton(t)

	if skel.Len() != 3 {
		t.Fatalf("unexpected joint count: %d", skel.Len())
	}
	if skel.ChannelCount() != 12 {
		t.Fatalf("expected 6+3+3 channels, got %d", skel.ChannelCount())
	}
	if got := skel.ChannelOffset(2); got != 9 {
		t.Fatalf("grandchild column offset: got %d want 9", got)
	}

	chain, err := skel.AncestorChain(2)
	if err != nil {
		t.Fatalf("AncestorChain failed: %v", err)
	}
	if !slices.Equal(chain, []int{0, 1, 2}) {
		t.Fatalf("unexpected chain: %v", chain)
	}

	pos, err := skel.RestPosition(2)
	if err != nil {
		t.Fatalf("RestPosition failed: %v", err)
	}
	if pos != (r3.Vec{Y: 2}) {
		t.Fatalf("unexpected rest position: %v", pos)
	}

	leaves, err := skel.EndEffectors()
	if err != nil {
		t.Fatalf("EndEffectors failed: %v", err)
	}
	if !slices.Equal(leaves, []int{2}) {
		t.Fatalf("unexpected end effectors: %v", leaves)
	}
}

func TestBuildRejectsInvalidTopology(t *testing.T) {
	cases := []struct {
		name    string
		parents []int
		names   []string
	}{
		{"duplicate name", []int{-1, 0, 0}, []string{"Hips", "Leg", "Leg"}},
		{"parent equals self", []int{-1, 1}, []string{"Hips", "Spine"}},
		{"parent after self", []int{-1, 2, 0}, []string{"Hips", "Spine", "Neck"}},
		{"zero roots", []int{0, 0}, []string{"Hips", "Spine"}},
		{"multiple roots", []int{-1, -1}, []string{"Hips", "Spine"}},
		{"negative parent", []int{-1, -3}, []string{"Hips", "Spine"}},
		{"empty name", []int{-1, 0}, []string{"Hips", "  "}},
		{"length mismatch", []int{-1}, []string{"Hips", "Spine"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			offsets := make([]r3.Vec, len(tc.parents))
			_, err := skeleton.Build(offsets, tc.parents, tc.names)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, mocaperr.ErrInvalidTopology) {
				t.Fatalf("expected invalid topology error, got %v", err)
			}
			var topo *mocaperr.InvalidTopologyError
			if !errors.As(err, &topo) {
				t.Fatalf("expected *InvalidTopologyError, got %T", err)
			}
		})
	}
}

func TestBuildRejectsEmptySkeleton(t *testing.T) {
	if _, err := skeleton.Build(nil, nil, nil); !errors.Is(err, mocaperr.ErrInvalidTopology) {
		t.Fatalf("expected invalid topology for empty arrays, got %v", err)
	}
}

func TestNewRejectsDuplicateChannel(t *testing.T) {
	_, err := skeleton.New([]skeleton.Joint{
		{Name: "Hips", Parent: skeleton.Root, Channels: []skeleton.Channel{skeleton.Xrotation, skeleton.Xrotation}},
	})
	if !errors.Is(err, mocaperr.ErrInvalidTopology) {
		t.Fatalf("expected invalid topology for duplicate channel, got %v", err)
	}
}

func TestHierarchyQueriesRequireInit(t *testing.T) {
	skel, err := skeleton.Build([]r3.Vec{{}, {}}, []int{-1, 0}, []string{"Hips", "Spine"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if skel.Initialized() {
		t.Fatal("expected fresh skeleton to be uninitialized")
	}
	if _, err := skel.AncestorChain(1); !errors.Is(err, mocaperr.ErrNotInitialized) {
		t.Fatalf("AncestorChain before Init: got %v", err)
	}
	if _, err := skel.Children(0); !errors.Is(err, mocaperr.ErrNotInitialized) {
		t.Fatalf("Children before Init: got %v", err)
	}
	if _, err := skel.RestPositions(); !errors.Is(err, mocaperr.ErrNotInitialized) {
		t.Fatalf("RestPositions before Init: got %v", err)
	}

	skel.Init()
	if _, err := skel.AncestorChain(5); err == nil {
		t.Fatal("expected out-of-range index to fail")
	}
	if _, err := skel.AncestorChain(-1); err == nil {
		t.Fatal("expected negative index to fail")
	}
}

func TestInitIsIdempotent(t *testing.T) {
	skel := chainSkeleton(t)
	before := snapshot(t, skel)
	for range 3 {
		skel.Init()
	}
	after := snapshot(t, skel)
	if before != after {
		t.Fatalf("derived state changed across Init calls:\n%s\n%s", before, after)
	}
}

func TestInitConcurrentReaders(t *testing.T) {
	skel := chainSkeleton(t)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			skel.Init()
		}()
		go func() {
			defer wg.Done()
			if _, err := skel.AncestorChain(2); err != nil {
				t.Errorf("AncestorChain failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

func snapshot(t *testing.T, skel *skeleton.Skeleton) string {
	t.Helper()
	out := ""
	for i := range skel.Len() {
		children, err := skel.Children(i)
		if err != nil {
			t.Fatalf("Children failed: %v", err)
		}
		depth, _ := skel.Depth(i)
		leaf, _ := skel.IsEndEffector(i)
		out += fmt.Sprintf("%d:%v:%d:%t;", i, children, depth, leaf)
	}
	return out
}

func TestAncestorChainTerminatesForRandomTrees(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := range 200 {
		n := 1 + rng.IntN(40)
		parents := make([]int, n)
		names := make([]string, n)
		offsets := make([]r3.Vec, n)
		parents[0] = skeleton.Root
		names[0] = "j0"
		for i := 1; i < n; i++ {
			parents[i] = rng.IntN(i)
			names[i] = fmt.Sprintf("j%d", i)
			offsets[i] = r3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
		}
		skel, err := skeleton.Build(offsets, parents, names)
		if err != nil {
			t.Fatalf("trial %d: Build failed: %v", trial, err)
		}
		skel.Init()
		for i := range n {
			depth, err := skel.Depth(i)
			if err != nil {
				t.Fatalf("Depth failed: %v", err)
			}
			chain, err := skel.AncestorChain(i)
			if err != nil {
				t.Fatalf("AncestorChain failed: %v", err)
			}
			if len(chain) > depth+1 {
				t.Fatalf("trial %d joint %d: chain %v longer than depth+1 (%d)", trial, i, chain, depth+1)
			}
			if chain[0] != 0 || chain[len(chain)-1] != i {
				t.Fatalf("trial %d joint %d: chain %v does not run root..joint", trial, i, chain)
			}
		}
	}
}

func TestCheckCompatible(t *testing.T) {
	a := chainSkeleton(t)
	b := chainSkeleton(t)
	if err := a.CheckCompatible(b); err != nil {
		t.Fatalf("expected identical skeletons to be compatible: %v", err)
	}

	renamed, err := skeleton.Build([]r3.Vec{{}, {}, {}}, []int{-1, 0, 1}, []string{"root", "child", "tip"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := a.CheckCompatible(renamed); !errors.Is(err, mocaperr.ErrChannelCompatibility) {
		t.Fatalf("expected compatibility error for renamed joint, got %v", err)
	}

	rechanneled, err := skeleton.Build([]r3.Vec{{}, {}, {}}, []int{-1, 0, 1}, []string{"root", "child", "grandchild"},
		skeleton.WithChannels(skeleton.DefaultRootChannels(), []skeleton.Channel{skeleton.Xrotation, skeleton.Yrotation, skeleton.Zrotation}))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if a.Compatible(rechanneled) {
		t.Fatal("expected different channel order to be incompatible")
	}
	if err := a.CheckColumns(11); !errors.Is(err, mocaperr.ErrChannelCompatibility) {
		t.Fatalf("expected column mismatch error, got %v", err)
	}
}

func TestIsDepthFirst(t *testing.T) {
	preorder, err := skeleton.Build(make([]r3.Vec, 4), []int{-1, 0, 1, 0}, []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !preorder.IsDepthFirst() {
		t.Fatal("expected pre-order skeleton to be depth-first")
	}
	interleaved, err := skeleton.Build(make([]r3.Vec, 4), []int{-1, 0, 0, 1}, []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if interleaved.IsDepthFirst() {
		t.Fatal("expected breadth-first order to be rejected")
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	skel := chainSkeleton(t)
	channels := skel.Channels(0)
	channels[0] = skeleton.Zrotation
	if skel.Channels(0)[0] != skeleton.Xposition {
		t.Fatal("mutating returned channels leaked into skeleton")
	}
	joints := skel.Joints()
	joints[1].Name = "changed"
	if skel.Name(1) != "child" {
		t.Fatal("mutating returned joints leaked into skeleton")
	}
}

func TestParseChannel(t *testing.T) {
	c, err := skeleton.ParseChannel("zROTATION")
	if err != nil || c != skeleton.Zrotation {
		t.Fatalf("ParseChannel = %v, %v", c, err)
	}
	if _, err := skeleton.ParseChannel("Wrotation"); err == nil {
		t.Fatal("expected unknown channel error")
	}
}
