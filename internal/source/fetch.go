package source

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	maxAttempts    = 3
	maxBodySize    = 10 << 20
)

// retryBackoff is multiplied by the attempt number between retries.
var retryBackoff = 500 * time.Millisecond

// statusError is returned for non-2xx responses.
type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.url, e.code)
}

// Is makes a 404 match fs.ErrNotExist.
func (e *statusError) Is(target error) bool {
	return target == fs.ErrNotExist && e.code == http.StatusNotFound
}

// fetcher performs GET requests with a per-request timeout and linear
// backoff. Only transport errors and 5xx responses are retried.
type fetcher struct {
	client  *http.Client
	token   string
	header  map[string]string
	timeout time.Duration
	backoff time.Duration
	logger  *slog.Logger
}

func newFetcher(opts Options, token string, timeout time.Duration) *fetcher {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &fetcher{
		client:  client,
		token:   token,
		header:  map[string]string{},
		timeout: timeout,
		backoff: retryBackoff,
		logger:  opts.logger(),
	}
}

func (f *fetcher) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		data, retry, err := f.do(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retry || attempt == maxAttempts {
			break
		}
		f.logger.Debug("retrying request", "url", url, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * f.backoff):
		}
	}
	return nil, lastErr
}

func (f *fetcher) do(ctx context.Context, url string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	for k, v := range f.header {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil || ctx.Err() == context.DeadlineExceeded, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode >= 500, &statusError{url: url, code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, true, err
	}
	return data, false, nil
}
