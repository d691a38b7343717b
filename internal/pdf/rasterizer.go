// Package pdf converts PDF documents into page images using go-fitz.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"

	"github.com/pagelens/pdftext/internal/domain"
)

const (
	// jpegQuality is the encoding quality for page images.
	jpegQuality = 85

	// maxPageWidth and maxPageDim bound the rendered page size so a single
	// page stays within what vision endpoints accept.
	maxPageWidth = 1700
	maxPageDim   = 2000
)

// Rasterizer converts in-memory PDF bytes to JPEG page images.
type Rasterizer struct{}

// NewRasterizer creates a new Rasterizer.
func NewRasterizer() *Rasterizer {
	return &Rasterizer{}
}

// Rasterize renders every page of the document at the given DPI, in page
// order with 1-based indices. Page buffers are independent of the source
// bytes; the caller may release them as pages are consumed.
func (r *Rasterizer) Rasterize(ctx context.Context, data []byte, dpi int) ([]domain.PageImage, error) {
	if err := ValidatePDFBytes(data); err != nil {
		return nil, err
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		if errors.Is(err, fitz.ErrNeedsPassword) {
			return nil, domain.RasterizationError("document is password-protected", err)
		}
		return nil, domain.RasterizationError("failed to open PDF", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, domain.RasterizationError("document has no pages", nil)
	}

	images := make([]domain.PageImage, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(pageNum, float64(dpi))
		if err != nil {
			return nil, domain.RasterizationError(fmt.Sprintf("failed to render page %d", pageNum+1), err)
		}

		scaled := downscale(img)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, domain.RasterizationError(fmt.Sprintf("failed to encode page %d", pageNum+1), err)
		}

		bounds := scaled.Bounds()
		images = append(images, domain.PageImage{
			PageNumber: pageNum + 1,
			Data:       buf.Bytes(),
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
		})
	}

	return images, nil
}

// downscale shrinks an image that exceeds the page size bounds, preserving
// aspect ratio. Images within bounds are returned unchanged.
func downscale(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	scale := 1.0
	if w > maxPageWidth {
		scale = float64(maxPageWidth) / float64(w)
	}
	if s := float64(maxPageDim) / float64(max(w, h)); s < scale {
		scale = s
	}
	if scale >= 1.0 {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
