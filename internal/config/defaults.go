package config

const (
	defaultConfigPath       = "~/.config/mocap/config.toml"
	defaultOutputDir        = "~/.local/share/mocap/clips"
	defaultCatalogPath      = "~/.local/share/mocap/catalog.db"
	defaultLogDir           = "~/.local/share/mocap/logs"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultBVHPrecision     = 6
	defaultBVHIndent        = "tab"
	defaultClipNameTemplate = "{file}_{style}"
	maxBVHPrecision         = 17
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:   defaultOutputDir,
			CatalogPath: defaultCatalogPath,
			LogDir:      defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		BVH: BVH{
			Precision: defaultBVHPrecision,
			Indent:    defaultBVHIndent,
		},
		Extract: Extract{
			ClipNameTemplate: defaultClipNameTemplate,
			WriteManifest:    true,
			RecordCatalog:    true,
		},
		Legacy: Legacy{
			RootChannels:  []string{"Xposition", "Yposition", "Zposition", "Zrotation", "Yrotation", "Xrotation"},
			JointChannels: []string{"Zrotation", "Yrotation", "Xrotation"},
		},
	}
}
