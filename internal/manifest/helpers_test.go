package manifest_test

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"mocap/internal/skeleton"
)

func mustUninitialized(t *testing.T) *skeleton.Skeleton {
	t.Helper()
	skel, err := skeleton.Build([]r3.Vec{{}}, []int{-1}, []string{"root"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return skel
}
