package queueaccess

import (
	"context"
	"errors"

	"photolog/internal/api"
	"photolog/internal/ingest"
	"photolog/internal/ipc"
	"photolog/internal/job"
	"photolog/internal/queue"
	"photolog/internal/services"
)

// Access provides queue operations regardless of IPC or direct store backing.
type Access interface {
	Stats(ctx context.Context) (api.QueueStats, error)
	Peek(ctx context.Context, limit int) (api.QueueListResponse, error)
	Bad(ctx context.Context, limit int) (api.QueueListResponse, error)
	Retry(ctx context.Context) (int, error)
	Purge(ctx context.Context, ids []int64) (api.PurgeItemsResult, error)
	PurgeAll(ctx context.Context) (int, error)
	Enqueue(ctx context.Context, rec *job.Record) (string, error)
	AddFile(ctx context.Context, req ingest.Request) (ipc.AddFileResponse, error)
	// Remote reports whether calls go through a running daemon.
	Remote() bool
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct DB access. Records are
// validated and appended by producer.
func NewStoreAccess(store *queue.Store, producer *ingest.Producer) Access {
	return &storeAccess{store: store, producer: producer, service: api.NewQueueService(store)}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Remote() bool { return true }

func (a *ipcAccess) Stats(context.Context) (api.QueueStats, error) {
	resp, err := a.client.QueueStats()
	if err != nil {
		return api.QueueStats{}, err
	}
	return *resp, nil
}

func (a *ipcAccess) Peek(_ context.Context, limit int) (api.QueueListResponse, error) {
	resp, err := a.client.QueuePeek(limit)
	if err != nil {
		return api.QueueListResponse{}, err
	}
	return *resp, nil
}

func (a *ipcAccess) Bad(_ context.Context, limit int) (api.QueueListResponse, error) {
	resp, err := a.client.QueueBad(limit)
	if err != nil {
		return api.QueueListResponse{}, err
	}
	return *resp, nil
}

func (a *ipcAccess) Retry(context.Context) (int, error) {
	resp, err := a.client.QueueRetry()
	if err != nil {
		return 0, err
	}
	return resp.Moved, nil
}

func (a *ipcAccess) Purge(_ context.Context, ids []int64) (api.PurgeItemsResult, error) {
	resp, err := a.client.QueuePurge(ids, false)
	if err != nil {
		return api.PurgeItemsResult{}, err
	}
	return api.PurgeItemsResult{Removed: resp.Removed, Items: resp.Items}, nil
}

func (a *ipcAccess) PurgeAll(context.Context) (int, error) {
	resp, err := a.client.QueuePurge(nil, true)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) Enqueue(_ context.Context, rec *job.Record) (string, error) {
	resp, err := a.client.Enqueue(rec)
	if err != nil {
		return "", err
	}
	return resp.Key, nil
}

func (a *ipcAccess) AddFile(_ context.Context, req ingest.Request) (ipc.AddFileResponse, error) {
	resp, err := a.client.AddFile(ipc.AddFileRequest{Path: req.Path, Name: req.Name, Tags: req.Tags, Skip: req.Skip})
	if err != nil {
		return ipc.AddFileResponse{}, err
	}
	return *resp, nil
}

type storeAccess struct {
	store    *queue.Store
	producer *ingest.Producer
	service  *api.QueueService
}

func (a *storeAccess) Remote() bool { return false }

func (a *storeAccess) Stats(ctx context.Context) (api.QueueStats, error) {
	return a.service.Stats(ctx)
}

func (a *storeAccess) Peek(ctx context.Context, limit int) (api.QueueListResponse, error) {
	return a.service.Peek(ctx, limit)
}

func (a *storeAccess) Bad(ctx context.Context, limit int) (api.QueueListResponse, error) {
	return a.service.Bad(ctx, limit)
}

func (a *storeAccess) Retry(ctx context.Context) (int, error) {
	return a.store.RetryJobs(ctx)
}

func (a *storeAccess) Purge(ctx context.Context, ids []int64) (api.PurgeItemsResult, error) {
	return api.PurgeBadByID(ctx, a.store, ids)
}

func (a *storeAccess) PurgeAll(ctx context.Context) (int, error) {
	return a.store.PurgeAllBad(ctx)
}

func (a *storeAccess) Enqueue(ctx context.Context, rec *job.Record) (string, error) {
	if rec == nil || rec.Kind() == job.TypeUpload {
		return "", services.Wrap(services.ErrValidation, "", "enqueue", "uploads are queued with add_file", nil)
	}
	if err := a.producer.Enqueue(ctx, rec); err != nil {
		return "", err
	}
	return rec.Key, nil
}

func (a *storeAccess) AddFile(ctx context.Context, req ingest.Request) (ipc.AddFileResponse, error) {
	if a.producer == nil {
		return ipc.AddFileResponse{}, errors.New("producer unavailable")
	}
	result, err := a.producer.AddFile(ctx, req)
	if err != nil {
		return ipc.AddFileResponse{}, err
	}
	return ipc.AddFileResponse{
		Key:      result.Key,
		Filename: result.Filename,
		Format:   string(result.Format),
		Checksum: result.Checksum,
	}, nil
}
