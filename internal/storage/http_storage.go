package storage

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/internal/logger"
	"github.com/anime-shed/table-inspector-go/internal/preprocess"
	"github.com/anime-shed/table-inspector-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// MaxImageBytes bounds a single downloaded or read image
const MaxImageBytes = 20 << 20

const fetchAttempts = 3

// ImageFetcher loads and decodes an image from a reference (URL or path)
type ImageFetcher interface {
	FetchImage(ctx context.Context, ref string) (image.Image, models.ImageMetadata, error)
}

// HTTPImageFetcher downloads images over HTTP(S), retrying on 5xx and network errors
type HTTPImageFetcher struct {
	client     *http.Client
	retryDelay time.Duration
}

// NewHTTPImageFetcher creates an HTTP image fetcher
func NewHTTPImageFetcher() *HTTPImageFetcher {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		retryDelay: time.Second,
	}
}

// WithRetryDelay sets the base delay between attempts; attempt n waits n*delay
func (h *HTTPImageFetcher) WithRetryDelay(d time.Duration) *HTTPImageFetcher {
	h.retryDelay = d
	return h
}

func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, models.ImageMetadata, error) {
	data, err := h.download(ctx, imageURL)
	if err != nil {
		return nil, models.ImageMetadata{}, err
	}
	return preprocess.DecodeBytes(data)
}

func (h *HTTPImageFetcher) download(ctx context.Context, imageURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperrors.NewTransportError("image download cancelled", ctx.Err())
			case <-time.After(time.Duration(attempt) * h.retryDelay):
			}
		}

		data, retry, err := h.attempt(ctx, imageURL)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}

		logger.WithFields(logrus.Fields{
			"url":     imageURL,
			"attempt": attempt + 1,
		}).WithError(err).Warn("Image download failed, retrying")
	}

	return nil, apperrors.NewTransportError(fmt.Sprintf("failed to fetch image after %d attempts", fetchAttempts), lastErr)
}

// attempt performs one GET. retry is true for network errors and 5xx statuses.
func (h *HTTPImageFetcher) attempt(ctx context.Context, imageURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, false, apperrors.NewValidationError("invalid image URL", err)
	}
	req.Header.Set("Accept", "image/png, image/jpeg, image/gif, image/bmp, */*")
	req.Header.Set("User-Agent", "Table-Inspector/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, apperrors.NewTransportError("image download failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, false, apperrors.NewValidationError(fmt.Sprintf("client error: status code %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, false, apperrors.NewValidationError(fmt.Sprintf("unexpected status code %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, true, apperrors.NewTransportError("failed to read image body", err)
	}
	if len(data) > MaxImageBytes {
		return nil, false, apperrors.NewValidationError(fmt.Sprintf("image exceeds %d bytes", MaxImageBytes), nil)
	}
	return data, false, nil
}
