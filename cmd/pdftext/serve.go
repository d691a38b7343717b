package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagelens/pdftext/internal/extract"
	"github.com/pagelens/pdftext/internal/llm"
	"github.com/pagelens/pdftext/internal/pdf"
	"github.com/pagelens/pdftext/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interactive upload UI",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	transcriber := llm.NewClient(llm.Options{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.RequestTimeout,
	})

	// Verify the key before accepting any uploads.
	pingCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	err = transcriber.Ping(pingCtx)
	cancel()
	if err != nil {
		logger.Error().Err(err).Msg("API connection check failed, verify DEEPINFRA_API_KEY")
		return err
	}

	service := extract.NewService(pdf.NewRasterizer(), transcriber, extract.Options{
		RasterDPI:           cfg.RasterDPI,
		MaxUploadBytes:      cfg.MaxUploadBytes,
		PageConcurrency:     cfg.PageConcurrency,
		ContinueOnPageError: cfg.ContinueOnPageError,
		PageSeparator:       cfg.PageSeparator,
	}, logger)

	server := web.NewServer(logger, service, cfg.MaxUploadBytes)
	defer server.Close()

	srv := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     server.Router(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("model", cfg.Model).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("server error")
		return err
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return srv.Close()
	}

	logger.Info().Msg("server stopped")
	return nil
}
