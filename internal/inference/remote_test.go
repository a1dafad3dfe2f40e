package inference

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func tinyFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{10, 20, 30, 255})
	return img
}

func newTestClient(url string) *RemoteClient {
	c := NewRemoteClient(url, 5*time.Second)
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

// echoPNG decodes the request body and writes it back, doubling its size when scale=2
func echoPNG(w http.ResponseWriter, r *http.Request) {
	img, err := png.Decode(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("scale") == "2" {
		b := img.Bounds()
		img = image.NewRGBA(image.Rect(0, 0, b.Dx()*2, b.Dy()*2))
	}
	w.Header().Set("Content-Type", "image/png")
	png.Encode(w, img)
}

func TestRemoteClient_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int // Status codes to return in sequence
		expectRetries int   // Expected number of requests
		expectError   bool
		errorContains string
	}{
		{
			name:          "Success on first attempt",
			responses:     []int{200},
			expectRetries: 1,
		},
		{
			name:          "Success on second attempt after 5xx",
			responses:     []int{500, 200},
			expectRetries: 2,
		},
		{
			name:          "4xx client error - no retry",
			responses:     []int{422},
			expectRetries: 1,
			expectError:   true,
			errorContains: "client error: status code 422",
		},
		{
			name:          "4xx after 5xx - should retry until 4xx then stop",
			responses:     []int{503, 400},
			expectRetries: 2,
			expectError:   true,
			errorContains: "client error: status code 400",
		},
		{
			name:          "All 5xx errors - retry all attempts",
			responses:     []int{500, 502, 503},
			expectRetries: 3,
			expectError:   true,
			errorContains: "server error: status code 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requestCount int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(atomic.AddInt32(&requestCount, 1)) - 1
				if n >= len(tt.responses) {
					w.WriteHeader(500)
					return
				}
				if tt.responses[n] == 200 {
					echoPNG(w, r)
					return
				}
				w.WriteHeader(tt.responses[n])
				w.Write([]byte(fmt.Sprintf("Error %d", tt.responses[n])))
			}))
			defer server.Close()

			deblurrer := NewRemoteDeblurrer(newTestClient(server.URL))
			_, err := deblurrer.Deblur(context.Background(), tinyFrame())

			if got := int(atomic.LoadInt32(&requestCount)); got != tt.expectRetries {
				t.Errorf("Expected %d requests, got %d", tt.expectRetries, got)
			}

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error, but got none")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', got: %s", tt.errorContains, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error, got: %s", err.Error())
			}
		})
	}
}

func TestRemoteClient_NetworkErrorRetry(t *testing.T) {
	var requestCount int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requestCount, 1) < 3 {
			// Simulate network error by closing connection
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
			}
			return
		}
		echoPNG(w, r)
	}))
	defer server.Close()

	_, err := NewRemoteDeblurrer(newTestClient(server.URL)).Deblur(context.Background(), tinyFrame())
	if err != nil {
		t.Errorf("Expected success after retries, got error: %s", err.Error())
	}
	if got := atomic.LoadInt32(&requestCount); got != 3 {
		t.Errorf("Expected 3 requests, got %d", got)
	}
}

func TestRemoteEnhancer_SendsScale(t *testing.T) {
	var path, scale string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, scale = r.URL.Path, r.URL.Query().Get("scale")
		echoPNG(w, r)
	}))
	defer server.Close()

	out, err := NewRemoteEnhancer(newTestClient(server.URL)).Enhance(context.Background(), tinyFrame(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/enhance" || scale != "2" {
		t.Errorf("Unexpected request %s?scale=%s", path, scale)
	}
	if out.Bounds().Dx() != 4 {
		t.Errorf("Expected 4px wide output, got %d", out.Bounds().Dx())
	}
}

func TestRemoteClient_Ping(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer healthy.Close()

	if err := newTestClient(healthy.URL).Ping(context.Background()); err != nil {
		t.Errorf("Expected healthy server, got %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	if err := newTestClient(down.URL).Ping(context.Background()); err == nil {
		t.Error("Expected error from unhealthy server")
	}
}
