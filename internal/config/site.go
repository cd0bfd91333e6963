package config

// SiteConfig holds site-specific overrides for a single host.
// Sites differ widely in how fast their client-side rendering settles,
// so the readiness knobs can be tuned per site without touching the
// global defaults.
//
// Durations are expressed in whole seconds because YAML has no native
// duration type and "delaySeconds: 2" reads unambiguously.
type SiteConfig struct {
	// TextThreshold overrides the global readiness text threshold.
	// If zero, the global threshold is used.
	TextThreshold int `yaml:"textThreshold,omitempty"`

	// InitialDelaySeconds overrides how long to wait before the first
	// content probe. If zero, the global delay is used.
	InitialDelaySeconds int `yaml:"initialDelaySeconds,omitempty"`

	// MaxWaitSeconds overrides the total probing budget.
	// If zero, the global budget is used.
	MaxWaitSeconds int `yaml:"maxWaitSeconds,omitempty"`

	// DelaySeconds overrides the politeness delay between fetches.
	// If zero, the global delay is used.
	DelaySeconds int `yaml:"delaySeconds,omitempty"`

	// Scroll overrides whether pages are scrolled to the bottom
	// before capture. If nil, the global setting is used.
	Scroll *bool `yaml:"scroll,omitempty"`

	// UserAgent overrides the browser identity for this site.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// File represents the structure of the .ragspider configuration file.
type File struct {
	// Sites maps host names to their site-specific overrides.
	// Keys should be the bare host (e.g., "integreat.app"); the www
	// prefix is folded before lookup.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains overrides applied to all sites unless a
	// site-specific entry replaces them.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with site-specific configuration if present
	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.TextThreshold != 0 {
			result.TextThreshold = siteConfig.TextThreshold
		}
		if siteConfig.InitialDelaySeconds != 0 {
			result.InitialDelaySeconds = siteConfig.InitialDelaySeconds
		}
		if siteConfig.MaxWaitSeconds != 0 {
			result.MaxWaitSeconds = siteConfig.MaxWaitSeconds
		}
		if siteConfig.DelaySeconds != 0 {
			result.DelaySeconds = siteConfig.DelaySeconds
		}
		if siteConfig.Scroll != nil {
			result.Scroll = siteConfig.Scroll
		}
		if siteConfig.UserAgent != "" {
			result.UserAgent = siteConfig.UserAgent
		}
	}

	return result
}
