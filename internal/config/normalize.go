package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeQueue()
	c.normalizeFiles()
	c.normalizeThumbnails()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeMirrors()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.ThumbsDir, err = expandPath(c.Paths.ThumbsDir); err != nil {
		return fmt.Errorf("paths.thumbs_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	switch strings.ToLower(c.Paths.APIBind) {
	case "":
		c.Paths.APIBind = defaultAPIBind
	case "off", "none", "disabled":
		c.Paths.APIBind = ""
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("PHOTOLOG_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeQueue() {
	if c.Queue.PollInitialMS <= 0 {
		c.Queue.PollInitialMS = defaultPollInitialMS
	}
	if c.Queue.PollMaxMS <= 0 {
		c.Queue.PollMaxMS = defaultPollMaxMS
	}
}

func (c *Config) normalizeFiles() {
	c.Files.ImageExtensions = normalizeExtensions(c.Files.ImageExtensions)
	c.Files.RawExtensions = normalizeExtensions(c.Files.RawExtensions)
	c.Files.VideoExtensions = normalizeExtensions(c.Files.VideoExtensions)
}

// normalizeExtensions lowercases, strips leading dots, and drops blanks and
// duplicates while keeping the configured order.
func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.TrimLeft(strings.ToLower(strings.TrimSpace(value)), ".")
		if ext == "" {
			continue
		}
		if _, exists := seen[ext]; exists {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

func (c *Config) normalizeThumbnails() {
	if len(c.Thumbnails.Sizes) == 0 {
		c.Thumbnails.Sizes = DefaultThumbnailSizes()
	}
	if c.Thumbnails.Quality <= 0 {
		c.Thumbnails.Quality = defaultThumbnailQuality
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageBackendDir
	}
	if strings.TrimSpace(c.Storage.Dir) == "" {
		c.Storage.Dir = defaultStorageDir
	}
	var err error
	if c.Storage.Dir, err = expandPath(c.Storage.Dir); err != nil {
		return fmt.Errorf("storage.dir: %w", err)
	}
	c.Storage.Endpoint = strings.TrimRight(strings.TrimSpace(c.Storage.Endpoint), "/")
	c.Storage.BaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.BaseURL), "/")
	if c.Storage.BaseURL == "" {
		switch c.Storage.Backend {
		case StorageBackendDir:
			c.Storage.BaseURL = defaultStorageBaseURLLocal + c.Storage.Dir
		case StorageBackendHTTP:
			c.Storage.BaseURL = c.Storage.Endpoint
		}
	}
	c.Storage.Token = strings.TrimSpace(c.Storage.Token)
	if c.Storage.Token == "" {
		if value, ok := os.LookupEnv("PHOTOLOG_STORAGE_TOKEN"); ok {
			c.Storage.Token = strings.TrimSpace(value)
		}
	}
	if c.Storage.RequestTimeout <= 0 {
		c.Storage.RequestTimeout = defaultRequestTimeout
	}
	return nil
}

func (c *Config) normalizeMirrors() {
	normalizeMirror(&c.Mirrors.Flickr, defaultFlickrEndpoint, "FLICKR_TOKEN")
	normalizeMirror(&c.Mirrors.GPhotos, defaultGPhotosEndpoint, "GPHOTOS_TOKEN")
}

func normalizeMirror(m *Mirror, endpoint, tokenEnv string) {
	m.Endpoint = strings.TrimSpace(m.Endpoint)
	if m.Endpoint == "" {
		m.Endpoint = endpoint
	}
	m.Token = strings.TrimSpace(m.Token)
	if m.Token == "" {
		if value, ok := os.LookupEnv(tokenEnv); ok {
			m.Token = strings.TrimSpace(value)
		}
	}
	if m.RequestTimeout <= 0 {
		m.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
