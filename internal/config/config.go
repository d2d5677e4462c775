package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	UploadDir string `toml:"upload_dir"`
	ThumbsDir string `toml:"thumbs_dir"`
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// Queue contains retry and polling settings for the persistent work queue.
type Queue struct {
	MaxAttempts   int `toml:"max_attempts"`
	PollInitialMS int `toml:"poll_initial_ms"`
	PollMaxMS     int `toml:"poll_max_ms"`
}

// Workflow contains configuration for daemon timing.
type Workflow struct {
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Files lists the upload extensions routed to each pipeline. The three sets
// must be disjoint.
type Files struct {
	ImageExtensions []string `toml:"image_extensions"`
	RawExtensions   []string `toml:"raw_extensions"`
	VideoExtensions []string `toml:"video_extensions"`
}

// Thumbnails contains the generated rendition sizes (longest edge, pixels).
type Thumbnails struct {
	Sizes   map[string]int `toml:"sizes"`
	Quality int            `toml:"quality"`
}

// Storage configures where originals and thumbnails are published.
type Storage struct {
	Backend        string `toml:"backend"`
	Dir            string `toml:"dir"`
	BaseURL        string `toml:"base_url"`
	Endpoint       string `toml:"endpoint"`
	Token          string `toml:"token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Mirror configures one photo-sharing service upload target.
type Mirror struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Token          string `toml:"token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Mirrors groups the supported sharing services.
type Mirrors struct {
	Flickr  Mirror `toml:"flickr"`
	GPhotos Mirror `toml:"gphotos"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Quarantine     bool   `toml:"quarantine"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for photolog.
//
// Configuration sections by subsystem:
//   - Paths: upload, thumbnail, data and log directories plus the API bind address
//   - Queue: retry bound and blocking-pop backoff
//   - Workflow: daemon error backoff
//   - Files: extension sets that select the image, raw and video pipelines
//   - Thumbnails: rendition sizes
//   - Storage: object store backend for originals and thumbnails
//   - Mirrors: Flickr and Google Photos upload targets
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Queue         Queue         `toml:"queue"`
	Workflow      Workflow      `toml:"workflow"`
	Files         Files         `toml:"files"`
	Thumbnails    Thumbnails    `toml:"thumbnails"`
	Storage       Storage       `toml:"storage"`
	Mirrors       Mirrors       `toml:"mirrors"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("photolog.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.UploadDir, c.Paths.ThumbsDir, c.Paths.DataDir, c.Paths.LogDir}
	if c.Storage.Backend == StorageBackendDir {
		dirs = append(dirs, c.Storage.Dir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the location of the work queue database.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// CatalogDBPath returns the location of the picture catalog database.
func (c *Config) CatalogDBPath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "photolog.sock")
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "photolog.pid")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "photolog.lock")
}

// FFmpegBinary returns the ffmpeg executable name used for thumbnails.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for video metadata.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// MirrorEnabled reports whether the named mirror step should run.
func (c *Config) MirrorEnabled(name string) bool {
	switch name {
	case MirrorFlickr:
		return c.Mirrors.Flickr.Enabled
	case MirrorGPhotos:
		return c.Mirrors.GPhotos.Enabled
	default:
		return false
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
