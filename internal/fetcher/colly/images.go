package collyfetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/JakeFAU/gridscraper/internal/metrics"
)

// Store persists downloaded files by name.
type Store interface {
	Put(ctx context.Context, name string, data io.Reader) (string, error)
}

// ImageFetcher downloads images into a Store.
type ImageFetcher struct {
	fetcher *Fetcher
	store   Store
}

// NewImageFetcher wires a Fetcher to a Store.
func NewImageFetcher(fetcher *Fetcher, store Store) *ImageFetcher {
	metrics.Init()
	return &ImageFetcher{fetcher: fetcher, store: store}
}

// Fetch downloads rawURL and stores it as filename, returning the stored path.
func (i *ImageFetcher) Fetch(ctx context.Context, rawURL, filename string) (string, error) {
	path, err := i.fetch(ctx, rawURL, filename)
	if err != nil {
		metrics.ObserveImageDownload(rawURL, "error")
		return "", err
	}
	metrics.ObserveImageDownload(rawURL, "ok")
	return path, nil
}

func (i *ImageFetcher) fetch(ctx context.Context, rawURL, filename string) (string, error) {
	resp, err := i.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download image: unexpected status %d", resp.StatusCode)
	}
	path, err := i.store.Put(ctx, filename, bytes.NewReader(resp.Body))
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return path, nil
}
