// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

// Config holds the runtime configuration. All fields are read-only after
// startup except where the config watcher rewrites the whole struct.
type Config struct {
	Version string

	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"baseUrl"`

	LogLevel      string `mapstructure:"logLevel"`
	LogPath       string `mapstructure:"logPath"`
	LogMaxSize    int    `mapstructure:"logMaxSize"`
	LogMaxBackups int    `mapstructure:"logMaxBackups"`

	// Orionoid credentials. The app key is published for this bridge;
	// the user key is account specific and required.
	OrionoidAppKey  string `mapstructure:"orionoidAppKey"`
	OrionoidUserKey string `mapstructure:"orionoidUserKey"`

	// IndexerAPIKey optionally gates /api requests. Empty disables the check.
	IndexerAPIKey string `mapstructure:"indexerApiKey"`

	DefaultLimit int `mapstructure:"defaultLimit"`
	MaxLimit     int `mapstructure:"maxLimit"`

	// UpstreamTimeout bounds every Orionoid call, in seconds.
	UpstreamTimeout int `mapstructure:"upstreamTimeout"`

	// HealthCacheTTL is the freshness horizon for non-forced health checks,
	// in seconds.
	HealthCacheTTL int `mapstructure:"healthCacheTTL"`
}
