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

	"rutext/internal/audit"
	"rutext/internal/config"
	"rutext/internal/lemma"
	"rutext/internal/morph"
	"rutext/internal/ner"
	"rutext/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("rutextd failed: %v", err)
	}
}

func run() error {
	cfgPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if err := config.EnsureConfigDir(cfgPath); err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	auditLogger, err := audit.NewJSONLLogger(cfg.LogFile)
	if err != nil {
		return err
	}

	dict, err := morph.Load(cfg.DictDir)
	if err != nil {
		return err
	}
	defer dict.Close()
	log.Printf("[rutextd] dictionary ready (dir=%s)", cfg.DictDir)

	loader := ner.NewLoader(ner.Config{Backend: cfg.NER.Backend, ModelDir: cfg.NER.ModelDir}, dict)
	srv := server.New(cfg, lemma.New(dict), loader, auditLogger)

	errCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	case err := <-errCh:
		return err
	}
}
