package pdf

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pdftext/internal/domain"
)

// minimalPDF builds a valid n-page PDF with empty pages and a correct
// xref table.
func minimalPDF(t *testing.T, pages int) []byte {
	t.Helper()

	var buf bytes.Buffer
	offsets := make([]int, 0, pages+3)

	write := func(s string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(s)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := ""
	for i := 0; i < pages; i++ {
		if i > 0 {
			kids += " "
		}
		kids += fmt.Sprintf("%d 0 R", i+3)
	}

	write("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	write(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", kids, pages))
	for i := 0; i < pages; i++ {
		write(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n", i+3))
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefStart)

	return buf.Bytes()
}

func TestRasterizeEmptyInput(t *testing.T) {
	r := NewRasterizer()
	_, err := r.Rasterize(context.Background(), nil, 72)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeRasterization, domain.ErrType(err))
}

func TestRasterizeNonPDF(t *testing.T) {
	r := NewRasterizer()
	_, err := r.Rasterize(context.Background(), []byte("just some text"), 72)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeRasterization, domain.ErrType(err))
}

func TestRasterizeCorruptPDF(t *testing.T) {
	r := NewRasterizer()
	_, err := r.Rasterize(context.Background(), []byte("%PDF-1.4\ngarbage"), 72)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeRasterization, domain.ErrType(err))
}

func TestRasterizeSinglePage(t *testing.T) {
	r := NewRasterizer()
	images, err := r.Rasterize(context.Background(), minimalPDF(t, 1), 72)
	require.NoError(t, err)
	require.Len(t, images, 1)

	img := images[0]
	assert.Equal(t, 1, img.PageNumber)
	assert.NotEmpty(t, img.Data)
	assert.Positive(t, img.Width)
	assert.Positive(t, img.Height)
	// JPEG magic
	assert.Equal(t, []byte{0xff, 0xd8}, img.Data[:2])
}

func TestRasterizePreservesPageOrder(t *testing.T) {
	r := NewRasterizer()
	images, err := r.Rasterize(context.Background(), minimalPDF(t, 3), 72)
	require.NoError(t, err)
	require.Len(t, images, 3)

	for i, img := range images {
		assert.Equal(t, i+1, img.PageNumber)
	}
}

func TestRasterizeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRasterizer()
	_, err := r.Rasterize(ctx, minimalPDF(t, 2), 72)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
