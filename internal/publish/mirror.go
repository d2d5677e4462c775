package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photolog/internal/config"
	"photolog/internal/services"
)

// MirrorResult is what a sharing service reports for an upload. It is
// stored as JSON in the catalog's service column.
type MirrorResult struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// Mirror uploads originals to one sharing service.
type Mirror struct {
	Name     string
	Endpoint string
	Token    string
	Client   *http.Client
}

// NewMirrors builds clients for every enabled mirror, keyed by name.
func NewMirrors(cfg *config.Config) map[string]*Mirror {
	mirrors := make(map[string]*Mirror)
	for name, m := range map[string]config.Mirror{
		config.MirrorFlickr:  cfg.Mirrors.Flickr,
		config.MirrorGPhotos: cfg.Mirrors.GPhotos,
	} {
		if !m.Enabled {
			continue
		}
		timeout := time.Duration(m.RequestTimeout) * time.Second
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		mirrors[name] = &Mirror{
			Name:     name,
			Endpoint: m.Endpoint,
			Token:    m.Token,
			Client:   &http.Client{Timeout: timeout},
		}
	}
	return mirrors
}

// Upload posts localPath as multipart form data with its title and tags.
func (m *Mirror) Upload(ctx context.Context, localPath, title string, tags []string) (MirrorResult, error) {
	operation := m.Name + " upload"
	f, err := os.Open(localPath)
	if err != nil {
		return MirrorResult{}, services.Wrap(services.ErrNotFound, m.Name, operation, localPath, err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(form, f, localPath, title, tags))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, pr)
	if err != nil {
		_ = pr.Close()
		return MirrorResult{}, fmt.Errorf("build %s request: %w", m.Name, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if m.Token != "" {
		req.Header.Set("Authorization", "Bearer "+m.Token)
	}

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		_ = pr.Close()
		return MirrorResult{}, services.Wrap(services.ErrTransient, m.Name, operation, "request failed", err)
	}
	defer resp.Body.Close()
	if err := statusError(m.Name, operation, resp); err != nil {
		return MirrorResult{}, err
	}

	var result MirrorResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return MirrorResult{}, services.Wrap(services.ErrExternalTool, m.Name, operation, "decode response", err)
	}
	if strings.TrimSpace(result.URL) == "" && strings.TrimSpace(result.ID) == "" {
		return MirrorResult{}, services.Wrap(services.ErrExternalTool, m.Name, operation, "response carried neither url nor id", nil)
	}
	return result, nil
}

func writeForm(form *multipart.Writer, f *os.File, localPath, title string, tags []string) error {
	if err := form.WriteField("title", title); err != nil {
		return err
	}
	if err := form.WriteField("tags", strings.Join(tags, " ")); err != nil {
		return err
	}
	part, err := form.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	return form.Close()
}
