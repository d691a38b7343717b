package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pagelens/pdftext/internal/domain"
	"github.com/pagelens/pdftext/internal/extract"
	"github.com/pagelens/pdftext/internal/llm"
	"github.com/pagelens/pdftext/internal/pdf"
)

var outputPath string

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Extract text from a PDF file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default: <input-name>.txt)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	pdfPath := args[0]
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", pdfPath, err)
	}

	if outputPath == "" {
		base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
		outputPath = base + ".txt"
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transcriber := llm.NewClient(llm.Options{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.RequestTimeout,
	})
	service := extract.NewService(pdf.NewRasterizer(), transcriber, extract.Options{
		RasterDPI:           cfg.RasterDPI,
		MaxUploadBytes:      cfg.MaxUploadBytes,
		PageConcurrency:     cfg.PageConcurrency,
		ContinueOnPageError: cfg.ContinueOnPageError,
		PageSeparator:       cfg.PageSeparator,
	}, logger)

	doc := domain.UploadedDocument{Name: filepath.Base(pdfPath), Data: data}
	events := make(chan domain.Event, 128)

	type result struct {
		outcome *domain.ExtractionOutcome
		err     error
	}
	resultCh := make(chan result, 1)
	go func() {
		outcome, err := service.Extract(ctx, doc, events)
		close(events)
		resultCh <- result{outcome, err}
	}()

	var bar *progressbar.ProgressBar
	for ev := range events {
		switch ev.Type {
		case domain.EventPageStart:
			if bar == nil {
				bar = progressbar.NewOptions(ev.TotalPages,
					progressbar.OptionSetDescription("Transcribing pages"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
				)
			}
		case domain.EventPageDone:
			if bar != nil {
				bar.Add(1)
			}
		case domain.EventPageFailed:
			if bar != nil {
				bar.Add(1)
			}
			fmt.Fprintf(os.Stderr, "\npage %d failed: %s\n", ev.PageNumber, ev.Message)
		}
	}
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	res := <-resultCh
	if res.err != nil {
		return res.err
	}

	if err := os.WriteFile(outputPath, []byte(res.outcome.Text), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	fmt.Printf("Extracted %d pages to %s", res.outcome.PageCount, outputPath)
	if n := len(res.outcome.PageErrors); n > 0 {
		fmt.Printf(" (%d pages failed)", n)
	}
	fmt.Println()
	return nil
}
