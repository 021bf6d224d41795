package config

import (
	"fmt"
	"strings"

	"fstack/internal/services"
)

// Validate ensures the configuration is usable. Violations are configuration
// errors and abort the run before any file is touched.
func (c *Config) Validate() error {
	if err := c.validateSorter(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSorter() error {
	if c.Sorter.GapSeconds <= 0 {
		return configErr("sorter.gap_seconds must be positive")
	}
	if c.Sorter.MinStackSize < 2 {
		return configErr("sorter.min_stack_size must be at least 2")
	}
	if c.Sorter.ExifWorkers < 1 {
		return configErr("sorter.exif_workers must be at least 1")
	}
	if !strings.Contains(c.Sorter.StackNameFormat, "%") {
		return configErr("sorter.stack_name_format must contain a numeric format verb")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if strings.TrimSpace(c.Engine.Binary) == "" {
		return configErr("engine.binary must be set")
	}
	if c.Engine.TimeoutSeconds <= 0 {
		return configErr("engine.timeout must be positive (seconds)")
	}
	if c.Engine.Radius < 1 || c.Engine.Radius > 8 {
		return configErr("engine.radius must be between 1 and 8")
	}
	if c.Engine.Smoothing < 0 || c.Engine.Smoothing > 4 {
		return configErr("engine.smoothing must be between 0 and 4")
	}
	if c.Engine.JPEGQuality < 1 || c.Engine.JPEGQuality > 100 {
		return configErr("engine.jpeg_quality must be between 1 and 100")
	}
	switch c.Engine.OutputFormat {
	case "jpg", "tif", "dng":
	default:
		return configErr("engine.output_format must be one of jpg, tif, dng")
	}
	for _, m := range c.Engine.Methods {
		switch m {
		case "A", "B", "C":
		default:
			return configErr(fmt.Sprintf("engine.methods contains unknown method %q", m))
		}
	}
	return nil
}

func (c *Config) validateImport() error {
	if c.Import.Workers < 1 {
		return configErr("import.workers must be at least 1")
	}
	if strings.TrimSpace(c.Import.DateFormat) == "" {
		return configErr("import.date_format must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return configErr("logging.format must be console or json")
	}
	return nil
}

func configErr(message string) error {
	return services.Wrap(services.ErrConfiguration, "config", "validate", message, nil)
}
