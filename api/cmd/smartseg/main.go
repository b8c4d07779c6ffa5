package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"smartseg/api/internal/app"
	"smartseg/api/internal/config"
	handle "smartseg/api/internal/handle"
	"smartseg/api/internal/httpserver"
	"smartseg/api/internal/storage"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()

	go a.RunJanitor(ctx)

	h := handle.New(a.Service, cfg.MaxUploadBytes, a.PingFunc())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/detect", h.Detect)
	mux.Handle(storage.UploadsPrefix, handle.Static(storage.UploadsPrefix, cfg.UploadDir))
	mux.Handle(storage.OutputPrefix, handle.Static(storage.OutputPrefix, cfg.OutputDir))
	if hist := a.History(); hist != nil {
		mux.HandleFunc("/history", handle.History(hist))
	}

	addr := ":" + cfg.Port
	log.Printf("smartseg: public base %s", cfg.PublicBaseURL)
	if err := httpserver.Run(ctx, addr, handle.CORS(cfg.CORSAllowedOrigins, mux)); err != nil {
		log.Printf("http: %v", err)
	}
}
