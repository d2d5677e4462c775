package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateFiles(); err != nil {
		return err
	}
	if err := c.validateThumbnails(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateMirrors(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		return errors.New("paths.upload_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ThumbsDir) == "" {
		return errors.New("paths.thumbs_dir must be set")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.MaxAttempts < 0 {
		return errors.New("queue.max_attempts must be >= 0")
	}
	if err := ensurePositiveMap(map[string]int{
		"queue.poll_initial_ms":         c.Queue.PollInitialMS,
		"queue.poll_max_ms":             c.Queue.PollMaxMS,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Queue.PollMaxMS < c.Queue.PollInitialMS {
		return errors.New("queue.poll_max_ms must be >= queue.poll_initial_ms")
	}
	return nil
}

func (c *Config) validateFiles() error {
	sets := []struct {
		name   string
		values []string
	}{
		{"files.image_extensions", c.Files.ImageExtensions},
		{"files.raw_extensions", c.Files.RawExtensions},
		{"files.video_extensions", c.Files.VideoExtensions},
	}
	owner := make(map[string]string)
	for _, set := range sets {
		if len(set.values) == 0 {
			return fmt.Errorf("%s must include at least one extension", set.name)
		}
		for _, ext := range set.values {
			if prev, exists := owner[ext]; exists {
				return fmt.Errorf("extension %q is listed in both %s and %s", ext, prev, set.name)
			}
			owner[ext] = set.name
		}
	}
	return nil
}

func (c *Config) validateThumbnails() error {
	for name, size := range c.Thumbnails.Sizes {
		if strings.TrimSpace(name) == "" {
			return errors.New("thumbnails.sizes contains an empty rendition name")
		}
		if size <= 0 {
			return fmt.Errorf("thumbnails.sizes.%s must be positive", name)
		}
	}
	if c.Thumbnails.Quality > 100 {
		return errors.New("thumbnails.quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageBackendDir:
		if strings.TrimSpace(c.Storage.Dir) == "" {
			return errors.New("storage.dir must be set when storage.backend is \"dir\"")
		}
	case StorageBackendHTTP:
		if c.Storage.Endpoint == "" {
			return errors.New("storage.endpoint must be set when storage.backend is \"http\"")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported (use %q or %q)", c.Storage.Backend, StorageBackendDir, StorageBackendHTTP)
	}
	return nil
}

func (c *Config) validateMirrors() error {
	for name, mirror := range map[string]Mirror{
		MirrorFlickr:  c.Mirrors.Flickr,
		MirrorGPhotos: c.Mirrors.GPhotos,
	} {
		if !mirror.Enabled {
			continue
		}
		if mirror.Endpoint == "" {
			return fmt.Errorf("mirrors.%s.endpoint must be set when mirrors.%s.enabled is true", name, name)
		}
		if mirror.Token == "" {
			return fmt.Errorf("mirrors.%s.token must be set when mirrors.%s.enabled is true", name, name)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
