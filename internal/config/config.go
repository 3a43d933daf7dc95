/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config persists the user-editable StoryCore settings as YAML in
// the per-OS user config directory and layers read-only SC_* environment
// overrides on top. The sync token never touches the YAML file; it lives
// in the OS keyring.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// config_version: bump when the structure changes in a way mergeInto
// cannot absorb. Unknown fields in older files are ignored on unmarshal.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
	EnableSync     bool   `yaml:"enable_sync"`
}

type SyncConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// The token is not stored on disk; it lives in the OS keyring.
}

type EditorConfig struct {
	UndoDepth        int   `yaml:"undo_depth"`
	CoalesceMs       int   `yaml:"coalesce_ms"` // 0 disables drag coalescing
	PreviewsMaxBytes int64 `yaml:"previews_max_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Sync          SyncConfig    `yaml:"sync"`
	Editor        EditorConfig  `yaml:"editor"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults. Editor values mirror the
// built-in caps of the history and preview layers so an absent config
// file changes nothing.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system", EnableSync: false},
		Sync:          SyncConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, TLSInsecure: false},
		Editor:        EditorConfig{UndoDepth: 50, CoalesceMs: 0, PreviewsMaxBytes: 256 * 1024 * 1024},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigDir        = "SC_CONFIG_DIR"
	EnvSyncURL          = "SC_SYNC_URL"
	EnvSyncTimeoutMs    = "SC_SYNC_TIMEOUT_MS"
	EnvTLSInsecure      = "SC_TLS_INSECURE"
	EnvTelemetryOptIn   = "SC_TELEMETRY_OPT_IN"
	EnvEnableSync       = "SC_ENABLE_SYNC"
	EnvUndoDepth        = "SC_UNDO_DEPTH"
	EnvCoalesceMs       = "SC_COALESCE_MS"
	EnvPreviewsMaxBytes = "SC_PREVIEWS_MAX_BYTES"
	EnvLogLevel         = "SC_LOG_LEVEL"
	EnvLogFormat        = "SC_LOG_FORMAT"
	EnvLogSource        = "SC_LOG_SOURCE"
	EnvLogFile          = "SC_LOG_FILE"
)

// Service and key for the OS keyring.
const (
	keyringService  = "StoryCore"
	keyringTokenKey = "sync_token"
)

// tokenStore abstracts the keyring so tests can swap in a fake.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring delegates to the functions installed by keyring_real.go or
// keyring_stub.go, selected by the nokeyring build tag.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyringGet(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyringSet(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyringDelete(service, key) }

// SyncToken returns the stored sync token, empty when absent or when the
// keyring is unavailable.
func SyncToken() string {
	tok, _ := tokenStore.Get(keyringService, keyringTokenKey)
	return tok
}

// SetSyncToken stores the sync token, or removes it when value is empty.
func SetSyncToken(value string) error {
	if value == "" {
		return tokenStore.Delete(keyringService, keyringTokenKey)
	}
	return tokenStore.Set(keyringService, keyringTokenKey, value)
}

// ConfigPath returns the per-user config file path. SC_CONFIG_DIR
// overrides the platform default, which keeps tests hermetic and allows
// portable installs.
func ConfigPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvConfigDir)); dir != "" {
		return filepath.Join(dir, "config.yaml"), nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			if up := os.Getenv("USERPROFILE"); up != "" {
				base = filepath.Join(up, "AppData", "Roaming")
			}
		}
		if base != "" {
			base = filepath.Join(base, "StoryCore")
		}
	case "darwin":
		if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, "Library", "Application Support", "StoryCore")
		}
	default: // linux and friends
		if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, ".config", "storycore")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve user config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file when present, layers it over the
// defaults and applies environment overrides. The sync token comes from
// the OS keyring and is returned separately so it never sits in the
// struct. A malformed file is reported as an error but the returned
// config (defaults plus environment) is still usable.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	var parseErr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			parseErr = fmt.Errorf("parse %s: %w", path, err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringTokenKey)
	return cfg, tok, parseErr
}

// Save writes the user config YAML and, when token is non-empty, persists
// it into the OS keyring.
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringTokenKey, token); err != nil {
			return err
		}
	}
	return nil
}

// mergeInto layers a file config over dst. Strings and ints replace the
// default only when set; booleans copy through so a saved false survives.
func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.General.EnableSync = src.General.EnableSync
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	if src.Sync.BaseURL != "" {
		dst.Sync.BaseURL = src.Sync.BaseURL
	}
	if src.Sync.TimeoutMs != 0 {
		dst.Sync.TimeoutMs = src.Sync.TimeoutMs
	}
	dst.Sync.TLSInsecure = src.Sync.TLSInsecure
	if src.Editor.UndoDepth != 0 {
		dst.Editor.UndoDepth = src.Editor.UndoDepth
	}
	if src.Editor.CoalesceMs != 0 {
		dst.Editor.CoalesceMs = src.Editor.CoalesceMs
	}
	if src.Editor.PreviewsMaxBytes != 0 {
		dst.Editor.PreviewsMaxBytes = src.Editor.PreviewsMaxBytes
	}
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func envBool(name string) (bool, bool) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	if v == "" {
		return false, false
	}
	return v == "1" || v == "true" || v == "on" || v == "yes", true
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvSyncURL)); v != "" {
		cfg.Sync.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSyncTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sync.TimeoutMs = n
		}
	}
	if b, ok := envBool(EnvTLSInsecure); ok {
		cfg.Sync.TLSInsecure = b
	}
	if b, ok := envBool(EnvTelemetryOptIn); ok {
		cfg.General.TelemetryOptIn = b
	}
	if b, ok := envBool(EnvEnableSync); ok {
		cfg.General.EnableSync = b
	}
	if v := strings.TrimSpace(os.Getenv(EnvUndoDepth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.UndoDepth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCoalesceMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Editor.CoalesceMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPreviewsMaxBytes)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Editor.PreviewsMaxBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if b, ok := envBool(EnvLogSource); ok {
		cfg.Logging.Source = b
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// envByKey maps dotted config keys to their override variable.
var envByKey = map[string]string{
	"general.telemetry_opt_in":  EnvTelemetryOptIn,
	"general.enable_sync":       EnvEnableSync,
	"sync.base_url":             EnvSyncURL,
	"sync.timeout_ms":           EnvSyncTimeoutMs,
	"sync.tls_insecure":         EnvTLSInsecure,
	"editor.undo_depth":         EnvUndoDepth,
	"editor.coalesce_ms":        EnvCoalesceMs,
	"editor.previews_max_bytes": EnvPreviewsMaxBytes,
	"logging.level":             EnvLogLevel,
	"logging.format":            EnvLogFormat,
	"logging.source":            EnvLogSource,
	"logging.file":              EnvLogFile,
}

// EnvOverrideFor reports which environment variable currently overrides
// the given dotted config key, so settings surfaces can mark the field
// read-only.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envByKey[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the sync request timeout, falling back to the default
// when the configured value is unusable.
func (s SyncConfig) Timeout() time.Duration {
	ms := s.TimeoutMs
	if ms <= 0 {
		ms = Defaults().Sync.TimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}
