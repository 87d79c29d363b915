// Package blobstore implements the two blob-service interfaces the core
// consumes: a source bucket (GET by storage_path) and a thumbnail bucket
// (POST, falling back to PUT when the object already exists).
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal HTTP blob-store client. It makes one attempt per
// call and does not retry; a failed call is returned to the caller as an
// error. Neither caller retries either: the Fetcher leaves the claimed job
// in indexing, and the Uploader marks the job done without a thumbnail.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient builds a blob-store client against the given endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// GetObject streams an object from bucket/key and returns its body. The
// caller is responsible for closing it.
func (c *Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/%s/%s", c.endpoint, bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build GET request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("GET %s: unexpected status %d: %s", url, resp.StatusCode, body)
	}
	return resp.Body, nil
}

// PutThumbnail uploads a sanitized PNG thumbnail under {hash}.png. It first
// tries POST; if the server answers 400 with an "already exists" body, it
// retries as PUT, matching the original uploader's create-or-replace
// fallback for re-processed (same content_hash) jobs.
func (c *Client) PutThumbnail(ctx context.Context, bucket, hash string, png []byte) error {
	url := fmt.Sprintf("%s/%s/%s.png", c.endpoint, bucket, hash)

	status, body, err := c.doUpload(ctx, http.MethodPost, url, png)
	if err != nil {
		return err
	}
	if status == http.StatusOK || status == http.StatusCreated {
		return nil
	}
	if status == http.StatusBadRequest && strings.Contains(strings.ToLower(string(body)), "already exists") {
		status, body, err = c.doUpload(ctx, http.MethodPut, url, png)
		if err != nil {
			return err
		}
		if status == http.StatusOK || status == http.StatusCreated {
			return nil
		}
		return fmt.Errorf("PUT %s: unexpected status %d: %s", url, status, body)
	}
	return fmt.Errorf("POST %s: unexpected status %d: %s", url, status, body)
}

func (c *Client) doUpload(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "image/png")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, respBody, nil
}
