/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the
// user scope. Environment variables are treated as read-only overrides at
// runtime. Boolean fields are named so their zero value is the default,
// which keeps the file merge trivial.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	Theme         string `yaml:"theme"` // "auto" | "light" | "dark"
	HideHelp      bool   `yaml:"hide_help"`
	JPEGQuality   int    `yaml:"jpeg_quality"`
	OutputDirName string `yaml:"output_dir_name"`
	PaletteFile   string `yaml:"palette_file"`
	AdvanceOnCrop bool   `yaml:"advance_on_crop"`
}

type CacheConfig struct {
	Disabled   bool `yaml:"disabled"`
	MaxEntries int  `yaml:"max_entries"`
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
	Cache         CacheConfig   `yaml:"cache"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General: GeneralConfig{
			Theme:         "auto",
			JPEGQuality:   95,
			OutputDirName: "cropped",
		},
		Cache:   CacheConfig{MaxEntries: 5000},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvTheme         = "CROPPY_THEME"
	EnvHideHelp      = "CROPPY_HIDE_HELP"
	EnvJPEGQuality   = "CROPPY_JPEG_QUALITY"
	EnvOutputDirName = "CROPPY_OUTPUT_DIR"
	EnvPaletteFile   = "CROPPY_PALETTE_FILE"
	EnvAdvanceOnCrop = "CROPPY_ADVANCE_ON_CROP"
	EnvCacheDisabled = "CROPPY_CACHE_DISABLED"
	EnvCacheMax      = "CROPPY_CACHE_MAX_ENTRIES"
	// Logging envs, shared with the log package's FromEnv.
	EnvLogLevel  = "CROPPY_LOG_LEVEL"
	EnvLogFormat = "CROPPY_LOG_FORMAT"
	EnvLogSource = "CROPPY_LOG_SOURCE"
	EnvLogFile   = "CROPPY_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Croppy")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Croppy")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "croppy")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. A missing or unparseable file falls back to defaults.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	coerce(&cfg)
	return cfg, nil
}

// Save writes the user config YAML, creating the directory as needed.
func Save(cfg AppConfig) error {
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
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if strings.TrimSpace(src.General.Theme) != "" {
		dst.General.Theme = strings.ToLower(strings.TrimSpace(src.General.Theme))
	}
	// booleans: copy directly from src (file) so user preferences persist;
	// their zero value equals the default, so an absent key is harmless
	dst.General.HideHelp = src.General.HideHelp
	dst.General.AdvanceOnCrop = src.General.AdvanceOnCrop
	if src.General.JPEGQuality != 0 {
		dst.General.JPEGQuality = src.General.JPEGQuality
	}
	if strings.TrimSpace(src.General.OutputDirName) != "" {
		dst.General.OutputDirName = strings.TrimSpace(src.General.OutputDirName)
	}
	if strings.TrimSpace(src.General.PaletteFile) != "" {
		dst.General.PaletteFile = strings.TrimSpace(src.General.PaletteFile)
	}
	dst.Cache.Disabled = src.Cache.Disabled
	if src.Cache.MaxEntries != 0 {
		dst.Cache.MaxEntries = src.Cache.MaxEntries
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTheme)); v != "" {
		cfg.General.Theme = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHideHelp)); v != "" {
		cfg.General.HideHelp = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvJPEGQuality)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.General.JPEGQuality = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutputDirName)); v != "" {
		cfg.General.OutputDirName = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPaletteFile)); v != "" {
		cfg.General.PaletteFile = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAdvanceOnCrop)); v != "" {
		cfg.General.AdvanceOnCrop = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheDisabled)); v != "" {
		cfg.Cache.Disabled = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheMax)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxEntries = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// coerce pulls out-of-range values back to safe defaults.
func coerce(cfg *AppConfig) {
	switch cfg.General.Theme {
	case "auto", "light", "dark":
	default:
		cfg.General.Theme = "auto"
	}
	if cfg.General.JPEGQuality < 1 || cfg.General.JPEGQuality > 100 {
		cfg.General.JPEGQuality = Defaults().General.JPEGQuality
	}
	if cfg.Cache.MaxEntries < 0 {
		cfg.Cache.MaxEntries = Defaults().Cache.MaxEntries
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by
// environment variables. The config subcommand uses it to annotate output.
func EnvOverrideFor(key string) (string, bool) {
	var env string
	switch key {
	case "general.theme":
		env = EnvTheme
	case "general.hide_help":
		env = EnvHideHelp
	case "general.jpeg_quality":
		env = EnvJPEGQuality
	case "general.output_dir_name":
		env = EnvOutputDirName
	case "general.palette_file":
		env = EnvPaletteFile
	case "general.advance_on_crop":
		env = EnvAdvanceOnCrop
	case "cache.disabled":
		env = EnvCacheDisabled
	case "cache.max_entries":
		env = EnvCacheMax
	case "logging.level":
		env = EnvLogLevel
	case "logging.format":
		env = EnvLogFormat
	case "logging.source":
		env = EnvLogSource
	case "logging.file":
		env = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}
