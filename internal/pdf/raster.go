// Package pdf renders PDF pages to images for vision extraction.
package pdf

import (
	"bytes"
	"fmt"
	"image/png"

	fitz "github.com/gen2brain/go-fitz"
)

// Rasterizer renders PDF documents page by page using MuPDF.
type Rasterizer struct{}

// NewRasterizer creates a Rasterizer.
func NewRasterizer() *Rasterizer {
	return &Rasterizer{}
}

// RasterizePages renders every page of the document as a PNG image, in page
// order.
func (r *Rasterizer) RasterizePages(data []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	pages := make([][]byte, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.Image(n)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", n+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", n+1, err)
		}
		pages = append(pages, buf.Bytes())
	}

	return pages, nil
}
