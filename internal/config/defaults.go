package config

const (
	defaultLibraryDir      = "~/Pictures/Library"
	defaultLogDir          = "~/.local/share/fstack/logs"
	defaultGapSeconds      = 1.0
	defaultMinStackSize    = 2
	defaultStackNameFormat = "Stack_%03d"
	defaultExifWorkers     = 4
	defaultEngineBinary    = "/Applications/HeliconFocus.app/Contents/MacOS/HeliconFocus"
	defaultEngineTimeout   = 900
	defaultRadius          = 3
	defaultSmoothing       = 1
	defaultJPEGQuality     = 95
	defaultOutputFormat    = "dng"
	defaultImportFormat    = "2006-01-02"
	defaultImportWorkers   = 4
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
		},
		Sorter: Sorter{
			GapSeconds:      defaultGapSeconds,
			MinStackSize:    defaultMinStackSize,
			StackNameFormat: defaultStackNameFormat,
			ExifWorkers:     defaultExifWorkers,
		},
		Engine: Engine{
			Binary:         defaultEngineBinary,
			TimeoutSeconds: defaultEngineTimeout,
			Radius:         defaultRadius,
			Smoothing:      defaultSmoothing,
			JPEGQuality:    defaultJPEGQuality,
			OutputFormat:   defaultOutputFormat,
			Methods:        []string{"A", "B"},
			CombineAB:      true,
		},
		Import: Import{
			DateFormat:   defaultImportFormat,
			Workers:      defaultImportWorkers,
			SkipExisting: true,
			CopySidecars: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
