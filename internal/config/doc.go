// Package config provides configuration structures and utilities for pagehunter.
// It defines crawl limits, politeness settings, ranking parameters, storage
// location and report preferences, plus the .pagehunter site file and the
// PAGEHUNTER_* environment overrides.
package config
