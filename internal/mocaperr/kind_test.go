package mocaperr_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"mocap/internal/mocaperr"
)

func TestClassify(t *testing.T) {
	topo := mocaperr.Topology(2, "Spine", "duplicate name")
	cases := []struct {
		name string
		err  error
		want mocaperr.Kind
		data bool
	}{
		{"nil", nil, "", false},
		{"topology", topo, mocaperr.KindTopology, true},
		{"wrapped topology", fmt.Errorf("persist: %w", topo), mocaperr.KindTopology, true},
		{"parse", &mocaperr.ParseError{Line: 3, Msg: "bad"}, mocaperr.KindParse, true},
		{"parse wrapping topology", &mocaperr.ParseError{Line: 7, Msg: "invalid hierarchy", Err: topo}, mocaperr.KindParse, true},
		{"state", fmt.Errorf("write: %w", mocaperr.ErrNotInitialized), mocaperr.KindState, false},
		{"io", io.ErrUnexpectedEOF, mocaperr.KindOther, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mocaperr.Classify(tc.err); got != tc.want {
				t.Fatalf("Classify = %q, want %q", got, tc.want)
			}
			if got := mocaperr.IsDataError(tc.err); got != tc.data {
				t.Fatalf("IsDataError = %v, want %v", got, tc.data)
			}
		})
	}
}

func TestParseErrorKeepsTopologyCause(t *testing.T) {
	err := error(&mocaperr.ParseError{Line: 7, Msg: "invalid hierarchy", Err: mocaperr.Topology(1, "Arm", "duplicate name")})
	if !errors.Is(err, mocaperr.ErrInvalidTopology) {
		t.Fatal("expected wrapped topology cause to stay reachable")
	}
	var topo *mocaperr.InvalidTopologyError
	if !errors.As(err, &topo) || topo.Name != "Arm" {
		t.Fatalf("errors.As = %+v", topo)
	}
}
