// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package identity

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/propvault/propvault/internal/platform/constants"
)

// # Upstream Call Discipline
//
// Every call to an external identity collaborator follows the same contract:
// a hard per-attempt deadline, one retry after a transport failure, and an
// apperr.UpstreamAuth surfaced to the caller when both attempts fail. An HTTP
// response, even a 5xx, is NOT retried: only transport errors are transient
// by assumption.

// upstreamClient is the shared HTTP client for identity collaborators.
var upstreamClient = &http.Client{
	Timeout: constants.UpstreamTimeout,
}

// doWithRetry executes the request, retrying transport failures up to the
// upstream retry limit. The caller owns closing the response body.
func doWithRetry(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= constants.UpstreamRetryLimit; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, constants.UpstreamTimeout)

		request, err := build(attemptCtx)
		if err != nil {
			cancel()
			return nil, err
		}

		response, err := upstreamClient.Do(request)
		if err == nil {
			// cancel must not fire before the body is read; tie it to the body.
			response.Body = &cancelOnClose{ReadCloser: response.Body, cancel: cancel}
			return response, nil
		}

		cancel()
		lastErr = err

		// Give the collaborator a moment before the retry.
		if attempt < constants.UpstreamRetryLimit {
			select {
			case <-time.After(200 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, lastErr
}

// cancelOnClose defers the attempt's context cancellation until the response
// body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
