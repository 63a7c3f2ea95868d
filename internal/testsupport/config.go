package testsupport

import (
	"path/filepath"
	"testing"

	"mocap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "clips")
	cfgVal.Paths.CatalogPath = filepath.Join(base, "state", "catalog.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.BVH.Precision = -1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithoutCatalog disables catalog recording.
func WithoutCatalog() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Extract.RecordCatalog = false
	}
}

// WithOverwrite sets the overwrite policy for existing clip files.
func WithOverwrite(overwrite bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Extract.Overwrite = overwrite
	}
}

// WithClipNameTemplate overrides the clip naming template.
func WithClipNameTemplate(tmpl string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Extract.ClipNameTemplate = tmpl
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
