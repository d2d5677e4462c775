package ipc

import (
	"errors"
	"io"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"syscall"
	"time"

	"photolog/internal/job"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(serviceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", StartRequest{})
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// Shutdown asks the daemon process to exit. The daemon may drop the
// connection before the reply arrives; that counts as accepted.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	resp, err := call[ShutdownResponse](c, "Shutdown", ShutdownRequest{})
	if err != nil && connectionDropped(err) {
		return &ShutdownResponse{Accepted: true}, nil
	}
	return resp, err
}

func connectionDropped(err error) bool {
	return errors.Is(err, rpc.ErrShutdown) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed)
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// QueuePeek lists up to limit pending records in dequeue order.
func (c *Client) QueuePeek(limit int) (*QueueListResponse, error) {
	return call[QueueListResponse](c, "QueuePeek", QueueListRequest{Limit: limit})
}

// QueueBad lists up to limit quarantined records, most recent first.
func (c *Client) QueueBad(limit int) (*QueueListResponse, error) {
	return call[QueueListResponse](c, "QueueBad", QueueListRequest{Limit: limit})
}

// QueueStats returns pending and quarantined counts.
func (c *Client) QueueStats() (*QueueStatsResponse, error) {
	return call[QueueStatsResponse](c, "QueueStats", QueueStatsRequest{})
}

// QueueRetry moves quarantined records back to the pending queue.
func (c *Client) QueueRetry() (*QueueRetryResponse, error) {
	return call[QueueRetryResponse](c, "QueueRetry", QueueRetryRequest{})
}

// QueuePurge removes quarantined records by id, or every one when all is set.
func (c *Client) QueuePurge(ids []int64, all bool) (*QueuePurgeResponse, error) {
	return call[QueuePurgeResponse](c, "QueuePurge", QueuePurgeRequest{IDs: ids, All: all})
}

// Enqueue submits a maintenance record.
func (c *Client) Enqueue(rec *job.Record) (*EnqueueResponse, error) {
	if rec == nil {
		return nil, errors.New("enqueue requires a record")
	}
	return call[EnqueueResponse](c, "Enqueue", EnqueueRequest{Record: *rec})
}

// AddFile queues a local file for upload.
func (c *Client) AddFile(req AddFileRequest) (*AddFileResponse, error) {
	return call[AddFileResponse](c, "AddFile", req)
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	return call[DatabaseHealthResponse](c, "DatabaseHealth", DatabaseHealthRequest{})
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
