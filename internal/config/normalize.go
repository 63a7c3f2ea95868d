package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeBVH()
	c.normalizeExtract()
	c.normalizeLegacy()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("MOCAP_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if strings.TrimSpace(c.Paths.CatalogPath) == "" {
		c.Paths.CatalogPath = defaultCatalogPath
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.CatalogPath, err = expandPath(strings.TrimSpace(c.Paths.CatalogPath)); err != nil {
		return fmt.Errorf("paths.catalog_path: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("MOCAP_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeBVH() {
	if c.BVH.Precision < -1 {
		c.BVH.Precision = -1
	}
	c.BVH.Indent = strings.ToLower(strings.TrimSpace(c.BVH.Indent))
	if c.BVH.Indent == "" || c.BVH.Indent == "tabs" || c.BVH.Indent == `\t` {
		c.BVH.Indent = defaultBVHIndent
	}
}

func (c *Config) normalizeExtract() {
	c.Extract.ClipNameTemplate = strings.TrimSpace(c.Extract.ClipNameTemplate)
	if c.Extract.ClipNameTemplate == "" {
		c.Extract.ClipNameTemplate = defaultClipNameTemplate
	}
}

func (c *Config) normalizeLegacy() {
	defaults := Default().Legacy
	c.Legacy.RootChannels = trimList(c.Legacy.RootChannels)
	c.Legacy.JointChannels = trimList(c.Legacy.JointChannels)
	if c.Legacy.RootChannels == nil {
		c.Legacy.RootChannels = defaults.RootChannels
	}
	if c.Legacy.JointChannels == nil {
		c.Legacy.JointChannels = defaults.JointChannels
	}
}

func trimList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
