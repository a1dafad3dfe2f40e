package inference

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"go-image-restorer/internal/imaging"
	"go-image-restorer/internal/logger"
)

const maxAttempts = 3

// RemoteClient talks to an external model server that accepts and returns PNG bodies
type RemoteClient struct {
	baseURL string
	client  *http.Client
	backoff func(attempt int) time.Duration
}

// NewRemoteClient creates a model server client with pooled connections
func NewRemoteClient(baseURL string, timeout time.Duration) *RemoteClient {
	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &RemoteClient{
		baseURL: baseURL,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
	}
}

// Ping checks that the model server is reachable
func (c *RemoteClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("invalid model server URL: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("model server unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server unhealthy: status code %d", resp.StatusCode)
	}
	return nil
}

// process POSTs img as PNG to endpoint and decodes the returned image.
// Transport errors and 5xx are retried up to 3 attempts, 4xx are not.
func (c *RemoteClient) process(ctx context.Context, endpoint string, query url.Values, img image.Image) (image.Image, error) {
	body, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, retryable, err := c.do(ctx, target, body)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retryable {
			break
		}

		if attempt < maxAttempts-1 {
			logger.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"attempt":  attempt + 1,
			}).WithError(err).Warn("model request failed, retrying")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}
	}

	return nil, fmt.Errorf("model request to %s failed: %w", endpoint, lastErr)
}

func (c *RemoteClient) do(ctx context.Context, target string, body []byte) (image.Image, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "image/png")
	req.Header.Set("User-Agent", "Go-Image-Restorer/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, fmt.Errorf("client error: status code %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	out, _, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, false, err
	}
	return out, false, nil
}

// RemoteDeblurrer calls POST /deblur
type RemoteDeblurrer struct {
	client *RemoteClient
}

func NewRemoteDeblurrer(client *RemoteClient) *RemoteDeblurrer {
	return &RemoteDeblurrer{client: client}
}

func (d *RemoteDeblurrer) Deblur(ctx context.Context, img image.Image) (image.Image, error) {
	return d.client.process(ctx, "/deblur", nil, img)
}

// RemoteEnhancer calls POST /enhance?scale=N
type RemoteEnhancer struct {
	client *RemoteClient
}

func NewRemoteEnhancer(client *RemoteClient) *RemoteEnhancer {
	return &RemoteEnhancer{client: client}
}

func (e *RemoteEnhancer) Enhance(ctx context.Context, img image.Image, scale int) (image.Image, error) {
	return e.client.process(ctx, "/enhance", url.Values{"scale": {strconv.Itoa(scale)}}, img)
}
