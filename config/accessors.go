package config

import "time"

// Exists reports whether a configuration key is set by any source.
func (c *Config) Exists(path string) bool {
	if c == nil || c.k == nil {
		return false
	}
	return c.k.Exists(path)
}

// String returns the value at path or defaultValue when unset.
func (c *Config) String(path, defaultValue string) string {
	if !c.Exists(path) {
		return defaultValue
	}
	return c.k.String(path)
}

// Int returns the value at path or defaultValue when unset.
func (c *Config) Int(path string, defaultValue int) int {
	if !c.Exists(path) {
		return defaultValue
	}
	return c.k.Int(path)
}

// Duration returns the value at path or defaultValue when unset.
func (c *Config) Duration(path string, defaultValue time.Duration) time.Duration {
	if !c.Exists(path) {
		return defaultValue
	}
	return c.k.Duration(path)
}

// Unmarshal decodes the subtree at path into out using koanf struct tags.
func (c *Config) Unmarshal(path string, out any) error {
	if c == nil || c.k == nil {
		return ErrNotConfigured
	}
	return c.k.Unmarshal(path, out)
}

// IsProduction reports whether the service runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}
