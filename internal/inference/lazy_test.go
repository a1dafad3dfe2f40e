package inference

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"

	"go-image-restorer/internal/restoration"
)

func TestLazyDeblurrer_BuildsOnceUnderConcurrency(t *testing.T) {
	var builds int32
	lazy := NewLazyDeblurrer("test", func() (restoration.Deblurrer, error) {
		atomic.AddInt32(&builds, 1)
		return NewClassicalDeblurrer(), nil
	})

	if atomic.LoadInt32(&builds) != 0 {
		t.Fatal("Expected no build before first use")
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := lazy.Deblur(context.Background(), tinyFrame()); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&builds); got != 1 {
		t.Errorf("Expected exactly 1 build, got %d", got)
	}
}

func TestLazyEnhancer_FailedBuildIsSticky(t *testing.T) {
	buildErr := errors.New("weights not found")
	var builds int32
	lazy := NewLazyEnhancer("test", func() (restoration.Enhancer, error) {
		atomic.AddInt32(&builds, 1)
		return nil, buildErr
	})

	for i := 0; i < 3; i++ {
		_, err := lazy.Enhance(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)), 2)
		if !errors.Is(err, buildErr) {
			t.Errorf("Expected build error, got %v", err)
		}
	}
	if got := atomic.LoadInt32(&builds); got != 1 {
		t.Errorf("Expected exactly 1 build attempt, got %d", got)
	}
}
