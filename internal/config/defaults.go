package config

const (
	defaultConfigPath          = "~/.config/photolog/config.toml"
	defaultUploadDir           = "~/.local/share/photolog/uploads"
	defaultThumbsDir           = "~/.local/share/photolog/thumbs"
	defaultDataDir             = "~/.local/share/photolog"
	defaultLogDir              = "~/.local/share/photolog/logs"
	defaultStorageDir          = "~/.local/share/photolog/objects"
	defaultAPIBind             = "127.0.0.1:7490"
	defaultMaxAttempts         = 3
	defaultPollInitialMS       = 100
	defaultPollMaxMS           = 2000
	defaultErrorRetryInterval  = 10
	defaultRequestTimeout      = 30
	defaultNotifyTimeout       = 10
	defaultThumbnailQuality    = 85
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
	defaultFlickrEndpoint      = "https://up.flickr.com/services/upload/"
	defaultGPhotosEndpoint     = "https://photoslibrary.googleapis.com/v1/uploads"
	defaultStorageBaseURLLocal = "file://"
)

// Storage backends.
const (
	StorageBackendDir  = "dir"
	StorageBackendHTTP = "http"
)

// Mirror names double as pipeline step names.
const (
	MirrorFlickr  = "flickr"
	MirrorGPhotos = "gphotos"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			ThumbsDir: defaultThumbsDir,
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Queue: Queue{
			MaxAttempts:   defaultMaxAttempts,
			PollInitialMS: defaultPollInitialMS,
			PollMaxMS:     defaultPollMaxMS,
		},
		Workflow: Workflow{
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Files: Files{
			ImageExtensions: []string{"jpg", "jpeg", "png", "gif"},
			RawExtensions:   []string{"raw", "cr2", "nef", "arw", "dng", "orf", "rw2"},
			VideoExtensions: []string{"mp4", "mov", "avi", "mkv", "m4v"},
		},
		Thumbnails: Thumbnails{
			Sizes:   DefaultThumbnailSizes(),
			Quality: defaultThumbnailQuality,
		},
		Storage: Storage{
			Backend:        StorageBackendDir,
			Dir:            defaultStorageDir,
			RequestTimeout: defaultRequestTimeout,
		},
		Mirrors: Mirrors{
			Flickr: Mirror{
				Endpoint:       defaultFlickrEndpoint,
				RequestTimeout: defaultRequestTimeout,
			},
			GPhotos: Mirror{
				Endpoint:       defaultGPhotosEndpoint,
				RequestTimeout: defaultRequestTimeout,
			},
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Quarantine:     true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

// DefaultThumbnailSizes returns the rendition names and their longest edge.
func DefaultThumbnailSizes() map[string]int {
	return map[string]int{
		"thumb":  100,
		"medium": 320,
		"web":    1200,
		"large":  2048,
	}
}
