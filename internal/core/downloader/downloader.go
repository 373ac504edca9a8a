package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// DefaultUserAgent is the default User-Agent header used for downloads
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultChunkSize is the read size used when streaming a body to disk
const DefaultChunkSize = 8192

// ProgressFunc receives byte counts while a body is streamed to disk.
// total is <= 0 when the server did not send Content-Length.
type ProgressFunc func(current, total int64)

// StatusError is returned when the server answers with a non-200 status
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// ErrStalled is returned when no body bytes arrive within the read timeout
var ErrStalled = errors.New("read timed out")

// TransferError is returned when the connection fails while the body is
// being read, after the server has answered 200.
type TransferError struct {
	URL     string
	Written int64
	Err     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("download of %s interrupted after %d bytes: %v", e.URL, e.Written, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Result describes a finished download
type Result struct {
	Path string
	// Size is the number of bytes written
	Size int64
	// Total is the advertised Content-Length (<= 0 if unknown)
	Total int64
}

// Downloader streams a URL to a local file with progress reporting
type Downloader struct {
	Client    *http.Client
	UserAgent string
	ChunkSize int
	// ReadTimeout bounds the wait for each body read; 0 disables it
	ReadTimeout time.Duration
	// Started is called once the response headers are accepted, before
	// any body bytes are read. total is <= 0 when unknown.
	Started  func(total int64)
	Progress ProgressFunc
}

// New creates a Downloader whose timeout bounds connecting, waiting for
// response headers and each read of the body, not the whole transfer.
func New(timeout time.Duration) *Downloader {
	dialer := &net.Dialer{Timeout: timeout}
	return &Downloader{
		Client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
			},
		},
		UserAgent:   DefaultUserAgent,
		ChunkSize:   DefaultChunkSize,
		ReadTimeout: timeout,
	}
}

// Download fetches url into dest. The body is written to a temporary
// "<dest>.<id>.part" file that is renamed to dest only after the whole body
// has been read, so a failed transfer never leaves a truncated dest behind.
func (d *Downloader) Download(ctx context.Context, url, dest string) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	total := resp.ContentLength
	if d.Started != nil {
		d.Started(total)
	}

	var body io.Reader = resp.Body
	if d.ReadTimeout > 0 {
		idle := newIdleReader(resp.Body, d.ReadTimeout, cancel)
		defer idle.stop()
		body = idle
	}

	part := fmt.Sprintf("%s.%s.part", dest, uuid.NewString()[:8])
	file, err := os.Create(part)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	written, copyErr := d.copyWithProgress(file, body, total)
	closeErr := file.Close()

	if copyErr == nil && closeErr != nil {
		copyErr = fmt.Errorf("failed to close output file: %w", closeErr)
	}
	if copyErr != nil {
		os.Remove(part)
		var transferErr *TransferError
		if errors.As(copyErr, &transferErr) {
			transferErr.URL = url
		}
		return nil, copyErr
	}

	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return nil, fmt.Errorf("failed to move download into place: %w", err)
	}

	return &Result{Path: dest, Size: written, Total: total}, nil
}

func (d *Downloader) copyWithProgress(w io.Writer, r io.Reader, total int64) (int64, error) {
	size := d.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	buf := make([]byte, size)
	var current int64

	if d.Progress != nil {
		d.Progress(0, total)
	}

	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return current, fmt.Errorf("failed to write file: %w", writeErr)
			}
			current += int64(n)
			if d.Progress != nil {
				d.Progress(current, total)
			}
		}
		if err == io.EOF {
			return current, nil
		}
		if err != nil {
			return current, &TransferError{Written: current, Err: err}
		}
	}
}

// idleReader cancels the request when no Read returns data within timeout
type idleReader struct {
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
	fired   atomic.Bool
}

func newIdleReader(r io.Reader, timeout time.Duration, cancel context.CancelFunc) *idleReader {
	ir := &idleReader{r: r, timeout: timeout}
	ir.timer = time.AfterFunc(timeout, func() {
		ir.fired.Store(true)
		cancel()
	})
	return ir
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if ir.fired.Load() {
		return n, fmt.Errorf("%w: no data for %s", ErrStalled, ir.timeout)
	}
	if n > 0 {
		ir.timer.Reset(ir.timeout)
	}
	return n, err
}

func (ir *idleReader) stop() {
	ir.timer.Stop()
}

func formatBytes(b int64) string {
	if b < 0 {
		b = 0
	}
	return humanize.IBytes(uint64(b))
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return "??:??"
	}
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	if m > 60 {
		h := m / 60
		m = m % 60
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
