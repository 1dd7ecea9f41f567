package uploadsvc

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/upload"
)

// httpTransport PUTs the file bytes to the signed upload URL handed out
// by the video service.
type httpTransport struct {
	client *http.Client
	log    core.Logger
}

var _ upload.Transport = (*httpTransport)(nil)

// NewHTTPTransport builds the production transport. Uploads can be
// large so no client timeout is set; cancellation comes from ctx.
func NewHTTPTransport(log core.Logger) upload.Transport {
	return &httpTransport{client: &http.Client{}, log: log}
}

func (tr *httpTransport) Upload(ctx context.Context, uploadURL string, src io.Reader, sizeBytes int64, progress upload.ProgressFunc) error {
	body := io.Reader(src)
	if progress != nil {
		body = &progressReader{src: src, total: sizeBytes, report: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		tr.log.Error("building upload request", err)
		return core.NewAPIError(0)
	}
	req.ContentLength = sizeBytes
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := tr.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		tr.log.Error("upload request failed", err)
		return core.NewAPIError(0)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return core.NewAPIError(resp.StatusCode)
	}
	return nil
}

// progressReader reports cumulative bytes as the HTTP client drains it.
type progressReader struct {
	src    io.Reader
	total  int64
	sent   int64
	report upload.ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		r.sent += int64(n)
		r.report(r.sent, r.total)
	}
	return n, err
}

// MemoryTransport keeps uploaded payloads in memory, keyed by upload
// URL. It pairs with the in-memory gateway in tests and dev tooling.
type MemoryTransport struct {
	mu      sync.Mutex
	uploads map[string][]byte

	// Delay slows each upload down, for exercising cancellation.
	Delay time.Duration
}

var _ upload.Transport = (*MemoryTransport)(nil)

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{uploads: make(map[string][]byte)}
}

func (tr *MemoryTransport) Upload(ctx context.Context, uploadURL string, src io.Reader, sizeBytes int64, progress upload.ProgressFunc) error {
	if tr.Delay > 0 {
		select {
		case <-time.After(tr.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	if progress != nil {
		progress(int64(len(data)), sizeBytes)
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.uploads[uploadURL] = data
	return nil
}

// Uploaded returns the payload stored for uploadURL, if any.
func (tr *MemoryTransport) Uploaded(uploadURL string) ([]byte, bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	data, ok := tr.uploads[uploadURL]
	return data, ok
}
