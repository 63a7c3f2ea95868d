package testsupport

import (
	"testing"

	"mocap/internal/catalog"
	"mocap/internal/config"
)

// MustOpenCatalog opens the catalog configured in cfg and closes it when the
// test finishes.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.Open(cfg, nil)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = cat.Close()
	})
	return cat
}
