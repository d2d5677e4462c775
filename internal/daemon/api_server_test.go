package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"photolog/internal/api"
	"photolog/internal/job"
	"photolog/internal/testsupport"
)

func serve(t *testing.T, d *Daemon, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	if d.api == nil {
		t.Fatal("expected api server to be configured")
	}
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	d.api.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestAPIServerQueueListing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := newTestDaemon(t, cfg)
	testsupport.MustAppend(t, store,
		testsupport.UploadRecord("k1", "a.jpg"),
		testsupport.UploadRecord("k2", "b.jpg"),
		testsupport.UploadRecord("k3", "c.jpg"))

	w := serve(t, d, http.MethodGet, "/api/queue?limit=2", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[api.QueueListResponse](t, w)
	if resp.Total != 3 || len(resp.Entries) != 2 {
		t.Fatalf("unexpected listing: %+v", resp)
	}
	if resp.Entries[0].Key != "k1" || resp.Entries[1].Subject != "b.jpg" {
		t.Fatalf("expected FIFO order, got %+v", resp.Entries)
	}

	if w := serve(t, d, http.MethodGet, "/api/queue?limit=zero", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestAPIServerQuarantineLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := newTestDaemon(t, cfg)
	ctx := context.Background()
	for _, key := range []string{"b1", "b2"} {
		rec := testsupport.UploadRecord(key, key+".jpg")
		rec.Attempt = 4
		if err := store.AppendBad(ctx, rec); err != nil {
			t.Fatalf("AppendBad: %v", err)
		}
	}

	resp := decodeBody[api.QueueListResponse](t, serve(t, d, http.MethodGet, "/api/queue/bad", "", ""))
	if resp.Total != 2 || resp.Entries[0].Key != "b2" {
		t.Fatalf("expected newest first, got %+v", resp)
	}
	newest := resp.Entries[0].ID

	w := serve(t, d, http.MethodDelete, "/api/queue/bad/"+strconv.FormatInt(newest, 10), "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected purge 200, got %d: %s", w.Code, w.Body.String())
	}
	if w := serve(t, d, http.MethodDelete, "/api/queue/bad/"+strconv.FormatInt(newest, 10), "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second purge, got %d", w.Code)
	}

	retry := decodeBody[api.RetryResponse](t, serve(t, d, http.MethodPost, "/api/queue/retry", "", ""))
	if retry.Moved != 1 {
		t.Fatalf("expected 1 moved, got %+v", retry)
	}
	pending, err := store.Peek(ctx, 10)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if len(pending) != 1 || pending[0].Key != "b1" || pending[0].Attempt != 0 {
		t.Fatalf("expected b1 requeued with attempt reset, got %+v", pending)
	}

	if err := store.AppendBad(ctx, testsupport.UploadRecord("b3", "b3.jpg")); err != nil {
		t.Fatalf("AppendBad: %v", err)
	}
	purged := decodeBody[api.PurgeResponse](t, serve(t, d, http.MethodDelete, "/api/queue/bad", "", ""))
	if purged.Removed != 1 {
		t.Fatalf("expected 1 removed, got %+v", purged)
	}
}

func TestAPIServerEnqueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := newTestDaemon(t, cfg)

	body := `{"type":"tag-day","tag_day":{"year":2024,"month":5,"day":1,"tags":["Beach Day"]}}`
	w := serve(t, d, http.MethodPost, "/api/jobs", body, "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	queued := decodeBody[api.EnqueueResponse](t, w)
	if queued.Key == "" || queued.Type != string(job.TypeTagDay) {
		t.Fatalf("unexpected response %+v", queued)
	}
	pending, err := store.Peek(context.Background(), 1)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending record, got %v %v", pending, err)
	}

	for _, bad := range []string{
		`{"type":"tag-day"}`,
		`{"type":"tag-day","tag_day":{"year":2024,"month":2,"day":30}}`,
		`{"type":"upload","upload":{"filename":"a.jpg"}}`,
		`{"type":"tag-day","bogus":1}`,
		`not json`,
	} {
		if w := serve(t, d, http.MethodPost, "/api/jobs", bad, ""); w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d: %s", bad, w.Code, w.Body.String())
		}
	}
}

func TestAPIServerUpload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "s3cret"
	d, store := newTestDaemon(t, cfg)
	src := filepath.Join(testsupport.BaseDir(cfg), "incoming", "Sunset.JPG")
	testsupport.WriteJPEG(t, src, 16, 8)

	body, _ := json.Marshal(UploadRequest{Path: src, Tags: []string{"sky"}})
	if w := serve(t, d, http.MethodPost, "/api/uploads", string(body), ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d: %s", w.Code, w.Body.String())
	}
	w := serve(t, d, http.MethodPost, "/api/uploads", string(body), "s3cret")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[api.EnqueueResponse](t, w)
	if !strings.HasPrefix(resp.Filename, "Sunset-") || !strings.HasSuffix(resp.Filename, ".jpg") {
		t.Fatalf("unexpected stored filename %q", resp.Filename)
	}
	if n, _ := store.Len(context.Background()); n != 1 {
		t.Fatalf("expected 1 pending upload, got %d", n)
	}

	missing, _ := json.Marshal(UploadRequest{Path: filepath.Join(testsupport.BaseDir(cfg), "nope.jpg")})
	if w := serve(t, d, http.MethodPost, "/api/uploads", string(missing), "s3cret"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing file, got %d: %s", w.Code, w.Body.String())
	}

	key := filepath.Join(testsupport.BaseDir(cfg), "incoming", "id_rsa")
	testsupport.WriteFile(t, key, 64)
	renamed, _ := json.Marshal(UploadRequest{Path: key, Name: "holiday.jpg"})
	if w := serve(t, d, http.MethodPost, "/api/uploads", string(renamed), "s3cret"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when the name hides the real extension, got %d: %s", w.Code, w.Body.String())
	}
	if n, _ := store.Len(context.Background()); n != 1 {
		t.Fatalf("expected rejected uploads to queue nothing, got %d pending", n)
	}
}

func TestAPIServerUploadNeedsConfiguredToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := newTestDaemon(t, cfg)
	src := filepath.Join(testsupport.BaseDir(cfg), "incoming", "id_rsa")
	testsupport.WriteFile(t, src, 64)

	body, _ := json.Marshal(UploadRequest{Path: src, Name: "holiday.jpg"})
	if w := serve(t, d, http.MethodPost, "/api/uploads", string(body), ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with no api_token configured, got %d: %s", w.Code, w.Body.String())
	}
	if n, _ := store.Len(context.Background()); n != 0 {
		t.Fatalf("expected nothing queued, got %d", n)
	}
}

func TestAPIServerRequiresToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "s3cret"
	d, _ := newTestDaemon(t, cfg)

	if w := serve(t, d, http.MethodGet, "/api/status", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := serve(t, d, http.MethodGet, "/api/status", "", "wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}
	w := serve(t, d, http.MethodGet, "/api/status", "", "s3cret")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
	status := decodeBody[api.DaemonStatus](t, w)
	if status.Running || status.PID == 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestAPIServerMethodRouting(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newTestDaemon(t, cfg)
	if w := serve(t, d, http.MethodPost, "/api/status", "", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
