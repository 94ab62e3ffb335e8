package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nao1215/pagehunter/internal/crawler"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".pagehunter"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// ErrInvalidPattern is returned when an ignore or follow pattern is not a
// valid glob.
var ErrInvalidPattern = errors.New("invalid URL path pattern")

// LoadConfigFile loads the seeds and site configurations of a YAML file.
// If the file does not exist, it returns ErrConfigNotFound; whether that
// matters depends on whether the user named the file explicitly.
//
// Seeds are returned in canonical form without duplicates and site keys
// are lower-cased, so a loaded File can be used without further checks.
func LoadConfigFile(configPath string) (*File, error) {
	data, err := os.ReadFile(configPath) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}
	if err := cf.normalize(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return &cf, nil
}

func (cf *File) normalize() error {
	seeds := make([]string, 0, len(cf.Seeds))
	for _, raw := range cf.Seeds {
		seed, err := crawler.NormalizeSeed(raw)
		if err != nil {
			return fmt.Errorf("%w: seeds: %q", ErrInvalidSeed, raw)
		}
		if !slices.Contains(seeds, seed) {
			seeds = append(seeds, seed)
		}
	}
	cf.Seeds = seeds

	if err := checkSite("defaults", cf.Defaults); err != nil {
		return err
	}

	sites := make(map[string]SiteConfig, len(cf.Sites))
	for host, sc := range cf.Sites {
		if err := checkSite("sites."+host, sc); err != nil {
			return err
		}
		sites[strings.ToLower(strings.TrimSpace(host))] = sc
	}
	cf.Sites = sites
	return nil
}

// checkSite rejects settings the crawler would otherwise ignore silently.
func checkSite(name string, sc SiteConfig) error {
	if sc.Depth < 0 {
		return fmt.Errorf("%w: %s.depth: %d", ErrInvalidCrawlDepth, name, sc.Depth)
	}
	for _, p := range slices.Concat(sc.IgnorePatterns, sc.FollowPatterns) {
		if _, err := path.Match(p, "/"); err != nil {
			return fmt.Errorf("%w: %s: %q", ErrInvalidPattern, name, p)
		}
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .pagehunter in the current directory
// 3. Look for .pagehunter in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
