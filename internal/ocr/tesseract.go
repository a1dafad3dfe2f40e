package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"go-image-restorer/internal/imaging"
)

// ErrEngineClosed is returned after Close
var ErrEngineClosed = errors.New("ocr engine closed")

// TesseractEngine runs Tesseract through a fixed pool of gosseract clients.
// A single gosseract client must not be used from two goroutines at once.
type TesseractEngine struct {
	language string
	pool     *clientPool[*gosseract.Client]
}

// NewTesseractEngine creates size clients configured for language
func NewTesseractEngine(language string, size int) (*TesseractEngine, error) {
	if size <= 0 {
		size = 1
	}
	if language == "" {
		language = "eng"
	}

	e := &TesseractEngine{
		language: language,
		pool:     newClientPool[*gosseract.Client](size),
	}
	for i := 0; i < size; i++ {
		client := gosseract.NewClient()
		if err := client.SetLanguage(language); err != nil {
			client.Close()
			e.Close()
			return nil, fmt.Errorf("failed to set OCR language %q: %w", language, err)
		}
		e.pool.put(client)
	}
	return e, nil
}

// RunOCR returns one region per recognized text line
func (e *TesseractEngine) RunOCR(ctx context.Context, img image.Image) ([]TextRegion, error) {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	client, err := e.pool.get(ctx)
	if err != nil {
		return nil, err
	}
	defer e.pool.put(client)

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to load image into OCR engine: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		regions = append(regions, TextRegion{
			Text:       text,
			Confidence: Round3(box.Confidence / 100),
		})
	}
	return regions, nil
}

// Close releases every pooled client. Clients in use are released when
// their RunOCR call returns.
func (e *TesseractEngine) Close() error {
	e.pool.close()
	return nil
}
