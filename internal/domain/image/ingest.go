package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	apperrors "modelgate-server-go/internal/platform/errors"
	"modelgate-server-go/internal/platform/logging"
)

// DefaultFetchTimeout bounds a remote image download.
const DefaultFetchTimeout = 15 * time.Second

// Ingestor produces normalised image assets from remote URLs or multipart
// uploads.
type Ingestor struct {
	client       *http.Client
	logger       *logging.Logger
	fetchTimeout time.Duration
}

// NewIngestor creates an ingestor. Download deadlines come from per-request
// contexts, not the underlying client.
func NewIngestor(logger *logging.Logger, fetchTimeout time.Duration) *Ingestor {
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Ingestor{
		client:       &http.Client{},
		logger:       logger,
		fetchTimeout: fetchTimeout,
	}
}

// FetchURL downloads an image with the configured deadline and size cap, then
// normalises it. Upstream non-success statuses and oversized payloads are the
// caller's fault; a fired deadline is a timeout; anything else is an
// execution failure.
func (g *Ingestor) FetchURL(ctx context.Context, rawURL string, maxBytes int64) (*Asset, *apperrors.AiRunError) {
	fetchCtx, cancel := context.WithTimeout(ctx, g.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid image url", err)
	}
	req.Header.Set("User-Agent", "modelgate/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, g.classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, apperrors.New(
			apperrors.CodeInvalidInput,
			fmt.Sprintf("image fetch returned status %d", resp.StatusCode),
		)
	}

	if resp.ContentLength > maxBytes {
		return nil, oversizeError(resp.ContentLength, maxBytes)
	}

	limited := &io.LimitedReader{R: resp.Body, N: maxBytes + 1}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, g.classifyTransport(err)
	}
	if limited.N <= 0 {
		return nil, oversizeError(int64(len(data)), maxBytes)
	}

	g.logger.DebugTag("IMAGE", "fetched %d bytes from %s", len(data), rawURL)

	return Normalize(resp.Header.Get("Content-Type"), data)
}

// FromUpload accepts a multipart file part, enforcing the size cap before and
// after reading, then normalises it.
func (g *Ingestor) FromUpload(header *multipart.FileHeader, maxBytes int64) (*Asset, *apperrors.AiRunError) {
	if header == nil {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "file field is required")
	}
	if header.Size > maxBytes {
		return nil, oversizeError(header.Size, maxBytes)
	}

	file, err := header.Open()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "open uploaded file", err)
	}
	defer file.Close()

	limited := &io.LimitedReader{R: file, N: maxBytes + 1}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "read uploaded file", err)
	}
	if limited.N <= 0 {
		return nil, oversizeError(int64(len(data)), maxBytes)
	}

	return Normalize(header.Header.Get("Content-Type"), data)
}

// classifyTransport maps a fired fetch deadline to a timeout and everything
// else to an execution failure.
func (g *Ingestor) classifyTransport(err error) *apperrors.AiRunError {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.New(
			apperrors.CodeRunTimeout,
			fmt.Sprintf("image fetch timed out after %dms", g.fetchTimeout.Milliseconds()),
		)
	}
	return apperrors.Wrap(apperrors.CodeRunException, "image fetch failed", err)
}

func oversizeError(size, maxBytes int64) *apperrors.AiRunError {
	return apperrors.New(
		apperrors.CodeInvalidInput,
		fmt.Sprintf("image size %d exceeds maximum of %d bytes", size, maxBytes),
	)
}
