package config

import (
	"maps"
	"strings"
)

// SiteConfig holds crawl settings for a single host.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send to this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth when this host is a seed host.
	// If zero, the global CrawlDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// IgnorePatterns are URL path globs to skip during crawling.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path globs to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .pagehunter configuration file.
type File struct {
	// Seeds are start URLs used when none is given on the command line.
	Seeds []string `yaml:"seeds,omitempty"`

	// Sites maps host names to their site-specific configurations.
	// Keys are the host without scheme, e.g. "example.com" or "localhost:8080".
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over the defaults.
// Host names are compared case-insensitively.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		for name, sc := range cf.Sites {
			if strings.EqualFold(name, host) {
				siteConfig, ok = sc, true
				break
			}
		}
	}
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(siteConfig.Headers))
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}
	return result
}
