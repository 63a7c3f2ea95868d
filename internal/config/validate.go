package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"mocap/internal/skeleton"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateBVH(); err != nil {
		return err
	}
	if err := c.validateExtract(); err != nil {
		return err
	}
	if err := c.validateLegacy(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Extract.RecordCatalog && strings.TrimSpace(c.Paths.CatalogPath) == "" {
		return errors.New("paths.catalog_path must be set when extract.record_catalog is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level %q is not a valid level (debug, info, warn, error)", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateBVH() error {
	if c.BVH.Precision > maxBVHPrecision {
		return fmt.Errorf("bvh.precision must be between -1 and %d", maxBVHPrecision)
	}
	if c.BVH.Indent == "tab" {
		return nil
	}
	n, err := strconv.Atoi(c.BVH.Indent)
	if err != nil || n < 0 || n > 8 {
		return fmt.Errorf("bvh.indent must be \"tab\" or a number of spaces between 0 and 8, got %q", c.BVH.Indent)
	}
	return nil
}

var templateFields = []string{"{file}", "{subject}", "{style}", "{index}"}

func (c *Config) validateExtract() error {
	tmpl := c.Extract.ClipNameTemplate
	if !strings.Contains(tmpl, "{style}") && !strings.Contains(tmpl, "{index}") {
		return errors.New("extract.clip_name_template must contain {style} or {index} so clip names are unique")
	}
	stripped := tmpl
	for _, field := range templateFields {
		stripped = strings.ReplaceAll(stripped, field, "")
	}
	if strings.ContainsAny(stripped, "{}") {
		return fmt.Errorf("extract.clip_name_template %q has an unknown field (known: %s)", tmpl, strings.Join(templateFields, ", "))
	}
	if strings.ContainsAny(stripped, `/\`) {
		return errors.New("extract.clip_name_template must not contain path separators")
	}
	return nil
}

func (c *Config) validateLegacy() error {
	if _, err := skeleton.ParseChannels(c.Legacy.RootChannels); err != nil {
		return fmt.Errorf("legacy.root_channels: %w", err)
	}
	if _, err := skeleton.ParseChannels(c.Legacy.JointChannels); err != nil {
		return fmt.Errorf("legacy.joint_channels: %w", err)
	}
	return nil
}

// LegacyChannels returns the parsed legacy channel layout. It must only be
// called on a validated config.
func (c *Config) LegacyChannels() (root, joint []skeleton.Channel) {
	root, _ = skeleton.ParseChannels(c.Legacy.RootChannels)
	joint, _ = skeleton.ParseChannels(c.Legacy.JointChannels)
	return root, joint
}
