package restoration

import (
	"context"
	"image"
)

// Deblurrer removes blur from one frame
type Deblurrer interface {
	Deblur(ctx context.Context, img image.Image) (image.Image, error)
}

// Enhancer upscales one frame by an integer factor
type Enhancer interface {
	Enhance(ctx context.Context, img image.Image, scale int) (image.Image, error)
}

// Models bundles the restoration backends injected into the router
type Models struct {
	Deblurrer Deblurrer
	Enhancer  Enhancer
}
