package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joelkehle/paper-review/internal/httpapi"
	"github.com/joelkehle/paper-review/internal/logging"
	"github.com/joelkehle/paper-review/internal/render"
)

var serveFlags struct {
	addr     string
	noRender bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review HTTP service",
	Long: `Starts the HTTP service:

  POST /v1/reviews          {"filename": "...", "text": "..."}
  POST /v1/reviews/upload   multipart field "file" (PDF or UTF-8 text)
  POST /v1/render/pdf       review report JSON -> PDF
  GET  /v1/health

Append ?format=markdown to a review request for a Markdown report.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", "", "Listen address (default from config, :8000)")
	f.BoolVar(&serveFlags.noRender, "no-render", false, "Disable PDF rendering")
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := logging.New("serve")
	addr := cfg.ListenAddr
	if serveFlags.addr != "" {
		addr = serveFlags.addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, stopTracing, err := startTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopTracing()

	gen, closeGen, err := buildGenerator(cfg)
	if err != nil {
		return err
	}
	defer closeGen()

	opts := httpapi.Options{
		Reviewer:       newPipeline(cfg, gen, tp),
		MaxUploadBytes: cfg.MaxUploadBytes,
		Version:        version,
	}
	if !serveFlags.noRender {
		opts.Renderer = render.NewPDFRenderer(cfg.ChromePath)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewServer(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "model", cfg.Model, "max_section_concurrency", cfg.MaxSectionConcurrency)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
