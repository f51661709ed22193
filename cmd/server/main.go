package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/gnemet/CueForge/internal/catalog"
	"github.com/gnemet/CueForge/internal/config"
	"github.com/gnemet/CueForge/internal/library"
	"github.com/gnemet/CueForge/internal/runner"
)

var (
	cfg     *config.Config
	logger  *zap.Logger
	batch   *runner.Runner
	tplLib  *library.Library
	logFeed chan string
)

func main() {
	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err = zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	fetcher := catalog.NewClient(cfg.Catalog, logger)
	logFeed = make(chan string, 64)
	batch = runner.New(cfg, fetcher, logger)
	batch.LogChan = logFeed

	tplLib = library.New(cfg.Application.Storage.Template, logger)
	ctx := context.Background()
	go func() {
		if err := tplLib.Start(ctx); err != nil {
			logger.Warn("template library stopped", zap.Error(err))
		}
	}()

	http.HandleFunc("/generate", handleGenerate)
	http.HandleFunc("/template", handleTemplate)
	http.HandleFunc("/progress", handleProgress)
	http.HandleFunc("/healthz", handleHealthz)

	addr := fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port)
	fmt.Printf("CueForge starting on http://localhost:%d\n", cfg.Application.Port)
	log.Fatal(http.ListenAndServe(addr, nil))
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleProgress streams runner progress lines as server-sent events so a
// form page can show what the batch is doing.
func handleProgress(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	for {
		select {
		case msg := <-logFeed:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
