package inference

import (
	"context"
	"fmt"
	"image"
	"sync"

	"go-image-restorer/internal/restoration"
)

// lazy builds a value on first use and reuses it afterwards. A failed build
// is remembered and returned to every caller.
type lazy[T any] struct {
	once  sync.Once
	build func() (T, error)
	val   T
	err   error
}

func (l *lazy[T]) get() (T, error) {
	l.once.Do(func() {
		l.val, l.err = l.build()
	})
	return l.val, l.err
}

// LazyDeblurrer defers construction of a deblurrer until the first frame
type LazyDeblurrer struct {
	name  string
	inner lazy[restoration.Deblurrer]
}

func NewLazyDeblurrer(name string, build func() (restoration.Deblurrer, error)) *LazyDeblurrer {
	return &LazyDeblurrer{name: name, inner: lazy[restoration.Deblurrer]{build: build}}
}

func (d *LazyDeblurrer) Deblur(ctx context.Context, img image.Image) (image.Image, error) {
	m, err := d.inner.get()
	if err != nil {
		return nil, fmt.Errorf("%s deblurrer unavailable: %w", d.name, err)
	}
	return m.Deblur(ctx, img)
}

// LazyEnhancer defers construction of an enhancer until the first frame
type LazyEnhancer struct {
	name  string
	inner lazy[restoration.Enhancer]
}

func NewLazyEnhancer(name string, build func() (restoration.Enhancer, error)) *LazyEnhancer {
	return &LazyEnhancer{name: name, inner: lazy[restoration.Enhancer]{build: build}}
}

func (e *LazyEnhancer) Enhance(ctx context.Context, img image.Image, scale int) (image.Image, error) {
	m, err := e.inner.get()
	if err != nil {
		return nil, fmt.Errorf("%s enhancer unavailable: %w", e.name, err)
	}
	return m.Enhance(ctx, img, scale)
}
