package config

import "strings"

// normalize expands paths and canonicalizes string fields before validation.
func (c *Config) normalize() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(strings.TrimSpace(c.Paths.LibraryDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}
	if c.Engine.Binary, err = expandPath(strings.TrimSpace(c.Engine.Binary)); err != nil {
		return err
	}

	c.Engine.OutputFormat = strings.ToLower(strings.TrimSpace(c.Engine.OutputFormat))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	methods := make([]string, 0, len(c.Engine.Methods))
	seen := make(map[string]struct{}, len(c.Engine.Methods))
	for _, m := range c.Engine.Methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		methods = append(methods, m)
	}
	c.Engine.Methods = methods

	if strings.TrimSpace(c.Sorter.StackNameFormat) == "" {
		c.Sorter.StackNameFormat = defaultStackNameFormat
	}
	return nil
}
