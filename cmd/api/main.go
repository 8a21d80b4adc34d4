package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kieran/voicechat/internal/config"
	"github.com/kieran/voicechat/internal/handler"
	"github.com/kieran/voicechat/internal/metrics"
	speechmodel "github.com/kieran/voicechat/internal/model/speech"
	"github.com/kieran/voicechat/internal/service/ai"
	"github.com/kieran/voicechat/internal/service/audio"
	"github.com/kieran/voicechat/internal/service/pipeline"
	"github.com/kieran/voicechat/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	transcriber, err := speech.NewTranscriber(cfg.Speech.Provider, cfg.Speech.ToModel())
	if errors.Is(err, speechmodel.ErrMissingCredentials) {
		log.Fatalf("transcription provider %q has no credentials configured: %v", cfg.Speech.Provider, err)
	}
	if err != nil {
		log.Fatalf("failed to initialize transcription: %v", err)
	}
	log.Printf("transcription via %s (model %s)", transcriber.Name(), transcriber.Model())

	if !cfg.AI.Enabled() {
		log.Fatalf("chat provider %q has no credentials or model configured", cfg.AI.Provider)
	}
	completer, err := ai.NewCompleter(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize chat completion: %v", err)
	}
	log.Printf("chat completion via %s (model %s, max tokens %d)", cfg.AI.Provider, completer.Model(), cfg.AI.MaxTokens)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	converter := audio.NewFFmpegConverter(cfg.Pipeline.FFmpegPath)
	svc := pipeline.NewService(cfg.Pipeline.TempDir, converter, transcriber, completer, m)

	router := handler.NewRouter(cfg.Server, svc, m, reg)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("voicechat server listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
