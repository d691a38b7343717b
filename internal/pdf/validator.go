package pdf

import (
	"bytes"
	"fmt"

	"github.com/pagelens/pdftext/internal/domain"
)

var pdfMagic = []byte("%PDF-")

// ValidatePDFBytes checks that the buffer plausibly contains a PDF before
// handing it to the rasterizer.
func ValidatePDFBytes(data []byte) error {
	if len(data) == 0 {
		return domain.RasterizationError("document is empty", nil)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return domain.RasterizationError("document is not a PDF", nil)
	}
	return nil
}

// ValidateUpload applies the upload rules the orchestrator enforces before
// any rasterization or network work: non-empty and within the size ceiling.
func ValidateUpload(doc domain.UploadedDocument, maxBytes int64) error {
	if doc.Size() == 0 {
		return domain.ValidationError("uploaded file is empty", nil)
	}
	if int64(doc.Size()) > maxBytes {
		return domain.ValidationError(
			fmt.Sprintf("file size %d exceeds the %d byte limit", doc.Size(), maxBytes), nil)
	}
	return nil
}
