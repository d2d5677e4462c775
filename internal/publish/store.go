package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"photolog/internal/config"
	"photolog/internal/fileutil"
	"photolog/internal/services"
)

const userAgent = "photolog/0.1.0"

// ObjectStore stores a local file under key and returns its public URL.
type ObjectStore interface {
	Put(ctx context.Context, key, localPath string) (string, error)
}

// NewStore builds the object store selected by storage.backend.
func NewStore(cfg *config.Config) (ObjectStore, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendDir, "":
		return &DirStore{Root: cfg.Storage.Dir, BaseURL: cfg.Storage.BaseURL}, nil
	case config.StorageBackendHTTP:
		timeout := time.Duration(cfg.Storage.RequestTimeout) * time.Second
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		return &HTTPStore{
			Endpoint: cfg.Storage.Endpoint,
			BaseURL:  cfg.Storage.BaseURL,
			Token:    cfg.Storage.Token,
			Client:   &http.Client{Timeout: timeout},
		}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "", "storage", fmt.Sprintf("unknown backend %q", cfg.Storage.Backend), nil)
	}
}

// DirStore copies objects into Root.
type DirStore struct {
	Root    string
	BaseURL string
}

// Put copies localPath to Root/key, verifying the copy.
func (s *DirStore) Put(_ context.Context, key, localPath string) (string, error) {
	key = cleanKey(key)
	if key == "" {
		return "", services.Wrap(services.ErrValidation, "", "store object", "empty key", nil)
	}
	dst := filepath.Join(s.Root, filepath.FromSlash(key))
	if _, err := fileutil.CopyFileVerified(localPath, dst); err != nil {
		return "", services.Wrap(services.ErrTransient, "", "store object", key, err)
	}
	return joinURL(s.BaseURL, key), nil
}

// HTTPStore uploads objects with PUT Endpoint/key.
type HTTPStore struct {
	Endpoint string
	BaseURL  string
	Token    string
	Client   *http.Client
}

// Put uploads localPath to Endpoint/key.
func (s *HTTPStore) Put(ctx context.Context, key, localPath string) (string, error) {
	key = cleanKey(key)
	if key == "" {
		return "", services.Wrap(services.ErrValidation, "", "store object", "empty key", nil)
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "", "store object", localPath, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "", "store object", localPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, joinURL(s.Endpoint, key), f)
	if err != nil {
		return "", fmt.Errorf("build object request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", contentType(key))
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "", "store object", key, err)
	}
	defer resp.Body.Close()
	if err := statusError("object store", "store object", resp); err != nil {
		return "", err
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	base := s.BaseURL
	if base == "" {
		base = s.Endpoint
	}
	return joinURL(base, key), nil
}

// ObjectKey builds the storage key year/month/name used for every upload.
func ObjectKey(year, month int, name string) string {
	return fmt.Sprintf("%04d/%02d/%s", year, month, path.Base(filepath.ToSlash(name)))
}

func cleanKey(key string) string {
	key = strings.TrimSpace(filepath.ToSlash(key))
	if key == "" {
		return ""
	}
	cleaned := path.Clean("/" + key)
	return strings.TrimPrefix(cleaned, "/")
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}

// statusError maps a non-2xx response to a classified error. 5xx and 429 are
// transient; other 4xx responses are treated as external tool failures.
func statusError(service, operation string, resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	message := fmt.Sprintf("%s returned %d: %s", service, resp.StatusCode, strings.TrimSpace(string(body)))
	marker := services.ErrExternalTool
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		marker = services.ErrTransient
	}
	return services.Wrap(marker, "", operation, message, nil)
}
