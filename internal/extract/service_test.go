package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pdftext/internal/domain"
)

type stubRasterizer struct {
	pages int
	err   error
	calls atomic.Int32
}

func (r *stubRasterizer) Rasterize(ctx context.Context, data []byte, dpi int) ([]domain.PageImage, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	images := make([]domain.PageImage, r.pages)
	for i := range images {
		images[i] = domain.PageImage{PageNumber: i + 1, Data: []byte{0xff, 0xd8}, Width: 100, Height: 100}
	}
	return images, nil
}

type stubTranscriber struct {
	mu sync.Mutex
	// texts maps page number to transcription; failPages maps page number
	// to the error it returns.
	texts     map[int]string
	failPages map[int]error
	calls     atomic.Int32
}

func (tr *stubTranscriber) Transcribe(ctx context.Context, image domain.PageImage) (string, error) {
	tr.calls.Add(1)
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if err, ok := tr.failPages[image.PageNumber]; ok {
		return "", err
	}
	if text, ok := tr.texts[image.PageNumber]; ok {
		return text, nil
	}
	return fmt.Sprintf("page %d text", image.PageNumber), nil
}

func pdfDoc(size int) domain.UploadedDocument {
	data := append([]byte("%PDF-1.4\n"), make([]byte, size)...)
	return domain.UploadedDocument{Name: "doc.pdf", Data: data}
}

func newTestService(r domain.Rasterizer, tr domain.Transcriber, opts Options) *Service {
	if opts.MaxUploadBytes == 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return NewService(r, tr, opts, nil)
}

func TestExtractJoinsPagesInOrder(t *testing.T) {
	tr := &stubTranscriber{texts: map[int]string{1: "Hello", 2: "World"}}
	svc := newTestService(&stubRasterizer{pages: 2}, tr, Options{ContinueOnPageError: true})

	outcome, err := svc.Extract(context.Background(), pdfDoc(10), nil)
	require.NoError(t, err)

	assert.Equal(t, "Hello\n\nWorld", outcome.Text)
	assert.Equal(t, 2, outcome.PageCount)
	assert.Empty(t, outcome.PageErrors)
	assert.Positive(t, outcome.Duration)
}

func TestExtractCustomSeparator(t *testing.T) {
	tr := &stubTranscriber{texts: map[int]string{1: "a", 2: "b"}}
	svc := newTestService(&stubRasterizer{pages: 2}, tr, Options{
		ContinueOnPageError: true,
		PageSeparator:       "\n---\n",
	})

	outcome, err := svc.Extract(context.Background(), pdfDoc(10), nil)
	require.NoError(t, err)
	assert.Equal(t, "a\n---\nb", outcome.Text)
}

func TestExtractRejectsOversizeUpload(t *testing.T) {
	r := &stubRasterizer{pages: 1}
	tr := &stubTranscriber{}
	svc := newTestService(r, tr, Options{MaxUploadBytes: 100, ContinueOnPageError: true})

	_, err := svc.Extract(context.Background(), pdfDoc(200), nil)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeValidation, domain.ErrType(err))
	// Nothing downstream runs.
	assert.Zero(t, r.calls.Load())
	assert.Zero(t, tr.calls.Load())
}

func TestExtractRejectsEmptyUpload(t *testing.T) {
	tr := &stubTranscriber{}
	svc := newTestService(&stubRasterizer{pages: 1}, tr, Options{ContinueOnPageError: true})

	_, err := svc.Extract(context.Background(), domain.UploadedDocument{Name: "empty.pdf"}, nil)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeValidation, domain.ErrType(err))
	assert.Zero(t, tr.calls.Load())
}

func TestExtractRasterizerErrorPropagates(t *testing.T) {
	rerr := domain.RasterizationError("document is password-protected", nil)
	tr := &stubTranscriber{}
	svc := newTestService(&stubRasterizer{err: rerr}, tr, Options{ContinueOnPageError: true})

	_, err := svc.Extract(context.Background(), pdfDoc(10), nil)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeRasterization, domain.ErrType(err))
	assert.Zero(t, tr.calls.Load())
}

func TestExtractContinuesPastFailedPage(t *testing.T) {
	tr := &stubTranscriber{
		texts:     map[int]string{1: "one", 3: "three"},
		failPages: map[int]error{2: domain.TranscriptionError(domain.TranscriptionKindRemote, "API returned status 500", nil)},
	}
	svc := newTestService(&stubRasterizer{pages: 3}, tr, Options{ContinueOnPageError: true})

	outcome, err := svc.Extract(context.Background(), pdfDoc(10), nil)
	require.NoError(t, err)

	assert.Equal(t, "one\n\nthree", outcome.Text)
	assert.Equal(t, 3, outcome.PageCount)
	require.Len(t, outcome.PageErrors, 1)
	assert.Equal(t, 2, outcome.PageErrors[0].PageNumber)
	assert.Contains(t, outcome.PageErrors[0].Message, "500")
}

func TestExtractAbortsOnFirstFailureWhenConfigured(t *testing.T) {
	tr := &stubTranscriber{
		failPages: map[int]error{1: domain.TranscriptionError(domain.TranscriptionKindAuth, "API returned status 401", nil)},
	}
	svc := newTestService(&stubRasterizer{pages: 3}, tr, Options{ContinueOnPageError: false})

	_, err := svc.Extract(context.Background(), pdfDoc(10), nil)
	require.Error(t, err)
	assert.Equal(t, domain.TranscriptionKindAuth, domain.TranscriptionErrKind(err))
	assert.Contains(t, err.Error(), "page 1")
}

func TestExtractAllPagesFailedIsAnError(t *testing.T) {
	remote := domain.TranscriptionError(domain.TranscriptionKindRemote, "boom", nil)
	tr := &stubTranscriber{failPages: map[int]error{1: remote, 2: remote}}
	svc := newTestService(&stubRasterizer{pages: 2}, tr, Options{ContinueOnPageError: true})

	_, err := svc.Extract(context.Background(), pdfDoc(10), nil)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeTranscription, domain.ErrType(err))
	assert.Contains(t, err.Error(), "all 2 pages failed")
}

func TestExtractConcurrentPreservesOrder(t *testing.T) {
	const pages = 20
	texts := make(map[int]string, pages)
	want := ""
	for i := 1; i <= pages; i++ {
		texts[i] = fmt.Sprintf("p%02d", i)
		if i > 1 {
			want += "\n\n"
		}
		want += texts[i]
	}

	tr := &stubTranscriber{texts: texts}
	svc := newTestService(&stubRasterizer{pages: pages}, tr, Options{
		PageConcurrency:     4,
		ContinueOnPageError: true,
	})

	outcome, err := svc.Extract(context.Background(), pdfDoc(10), nil)
	require.NoError(t, err)
	assert.Equal(t, want, outcome.Text)
	assert.Equal(t, int32(pages), tr.calls.Load())
}

func TestExtractIsRepeatable(t *testing.T) {
	tr := &stubTranscriber{texts: map[int]string{1: "Hello", 2: "World"}}
	svc := newTestService(&stubRasterizer{pages: 2}, tr, Options{ContinueOnPageError: true})

	first, err := svc.Extract(context.Background(), pdfDoc(10), nil)
	require.NoError(t, err)
	second, err := svc.Extract(context.Background(), pdfDoc(10), nil)
	require.NoError(t, err)

	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.PageCount, second.PageCount)
}

func TestExtractEmitsProgressEvents(t *testing.T) {
	tr := &stubTranscriber{
		texts:     map[int]string{1: "one"},
		failPages: map[int]error{2: domain.TranscriptionError(domain.TranscriptionKindRemote, "boom", nil)},
	}
	svc := newTestService(&stubRasterizer{pages: 2}, tr, Options{ContinueOnPageError: true})

	events := make(chan domain.Event, 64)
	_, err := svc.Extract(context.Background(), pdfDoc(10), events)
	require.NoError(t, err)
	close(events)

	var types []domain.EventType
	stages := map[domain.Stage]bool{}
	pageDone, pageFailed := 0, 0
	for ev := range events {
		types = append(types, ev.Type)
		if ev.Type == domain.EventStage {
			stages[ev.Stage] = true
		}
		switch ev.Type {
		case domain.EventPageStart:
			assert.Equal(t, 2, ev.TotalPages)
		case domain.EventPageDone:
			pageDone++
		case domain.EventPageFailed:
			pageFailed++
			assert.Equal(t, 2, ev.PageNumber)
		}
	}

	assert.Equal(t, domain.EventStart, types[0])
	assert.Equal(t, domain.EventComplete, types[len(types)-1])
	for _, stage := range []domain.Stage{
		domain.StageValidating, domain.StageRasterizing,
		domain.StageTranscribing, domain.StageJoining,
	} {
		assert.True(t, stages[stage], "missing stage event: %s", stage)
	}
	assert.Equal(t, 1, pageDone)
	assert.Equal(t, 1, pageFailed)
}

func TestExtractErrorEventOnFailure(t *testing.T) {
	svc := newTestService(&stubRasterizer{pages: 1}, &stubTranscriber{}, Options{
		MaxUploadBytes:      10,
		ContinueOnPageError: true,
	})

	events := make(chan domain.Event, 16)
	_, err := svc.Extract(context.Background(), pdfDoc(100), events)
	require.Error(t, err)
	close(events)

	var sawError bool
	for ev := range events {
		if ev.Type == domain.EventError {
			sawError = true
			assert.Equal(t, domain.StageFailed, ev.Stage)
			assert.NotEmpty(t, ev.Message)
		}
	}
	assert.True(t, sawError)
}

func TestExtractNilEventChannel(t *testing.T) {
	tr := &stubTranscriber{texts: map[int]string{1: "only"}}
	svc := newTestService(&stubRasterizer{pages: 1}, tr, Options{ContinueOnPageError: true})

	outcome, err := svc.Extract(context.Background(), pdfDoc(10), nil)
	require.NoError(t, err)
	assert.Equal(t, "only", outcome.Text)
}

func TestExtractCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := &stubTranscriber{}
	svc := newTestService(&stubRasterizer{err: ctx.Err()}, tr, Options{ContinueOnPageError: true})

	_, err := svc.Extract(ctx, pdfDoc(10), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || domain.ErrType(err) != "")
}

func TestExtractReleasesPageBuffers(t *testing.T) {
	r := &stubRasterizer{pages: 2}
	tr := &stubTranscriber{texts: map[int]string{1: "a", 2: "b"}}
	svc := newTestService(r, tr, Options{ContinueOnPageError: true})

	images, err := r.Rasterize(context.Background(), nil, 0)
	require.NoError(t, err)
	_, err = svc.transcribePages(context.Background(), images, nil)
	require.NoError(t, err)

	for _, img := range images {
		assert.Nil(t, img.Data)
	}
}
