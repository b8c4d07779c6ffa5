// Package app собирает конфиг, модели, хранилище и пайплайн,
// общие для HTTP-сервера и Telegram-бота.
package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"smartseg/api/internal/classify"
	"smartseg/api/internal/classify/gemini"
	"smartseg/api/internal/config"
	"smartseg/api/internal/detect"
	"smartseg/api/internal/detect/cvyolo"
	"smartseg/api/internal/detect/ortyolo"
	"smartseg/api/internal/pipeline"
	"smartseg/api/internal/storage"
	"smartseg/api/internal/store"
)

type App struct {
	Cfg     *config.Config
	DB      *sql.DB // nil без DATABASE_URL
	Files   *storage.Files
	Models  *detect.Registry
	Service *pipeline.Service

	gemini     *gemini.Engine
	cache      *store.ClassificationRepo
	detections *store.DetectionRepo
}

// Build поднимает все зависимости. Модели грузятся один раз на процесс.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Cfg: cfg}

	files, err := storage.New(cfg.UploadDir, cfg.OutputDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, err
	}
	a.Files = files

	prompt, err := classify.LoadPrompt(cfg.GeminiPromptFile)
	if err != nil {
		return nil, err
	}
	a.gemini, err = gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, gemini.Options{
		Prompt:     prompt,
		Timeout:    cfg.GeminiTimeout,
		MaxRetries: cfg.GeminiMaxRetries,
	})
	if err != nil {
		return nil, err
	}
	var classifier classify.Classifier = a.gemini

	var history pipeline.History
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.DB = db
		log.Printf("db connected: %s", store.SafeDSNSummary(cfg.DatabaseURL))
		if err := store.Migrate(ctx, db); err != nil {
			a.Close()
			return nil, err
		}
		a.cache = store.NewClassificationRepo(db)
		a.detections = store.NewDetectionRepo(db)
		classifier = classify.NewCached(classifier, a.cache, cfg.ClassifyCacheTTL)
		history = a.detections
	} else {
		log.Printf("db: DATABASE_URL not set, cache and history disabled")
	}

	models, err := loadModels(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Models = models

	a.Service = pipeline.New(classifier, models, files, history)
	return a, nil
}

func loadModels(cfg *config.Config) (*detect.Registry, error) {
	if err := ortyolo.InitEnvironment(cfg.ONNXRuntimeLib); err != nil {
		return nil, err
	}
	reg := &detect.Registry{}

	ew, err := ortyolo.New(ortyolo.Config{
		Name: "ewaste", ModelPath: cfg.EWasteModelPath, LabelsPath: cfg.EWasteLabelsPath, InputSize: cfg.ModelInputSize,
	})
	if err != nil {
		return nil, err
	}
	reg.EWaste = ew

	mx, err := ortyolo.New(ortyolo.Config{
		Name: "mixed", ModelPath: cfg.MixedModelPath, LabelsPath: cfg.MixedLabelsPath, InputSize: cfg.ModelInputSize,
	})
	if err != nil {
		_ = reg.Close()
		return nil, err
	}
	reg.Mixed = mx

	ws, err := cvyolo.New(cvyolo.Config{
		Name: "waste", ModelPath: cfg.WasteModelPath, LabelsPath: cfg.WasteLabelsPath, InputSize: cfg.ModelInputSize,
	})
	if err != nil {
		_ = reg.Close()
		return nil, err
	}
	reg.Waste = ws
	return reg, nil
}

// Ping проверяет БД; без БД всегда ok.
func (a *App) Ping(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.PingContext(ctx)
}

// PingFunc отдаёт Ping для healthz или nil, если БД не настроена.
func (a *App) PingFunc() func(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.Ping
}

// History отдаёт репозиторий истории или nil без БД.
func (a *App) History() *store.DetectionRepo { return a.detections }

// RunJanitor периодически удаляет старые файлы и строки истории/кэша.
// Выключен, пока FILE_RETENTION = 0.
func (a *App) RunJanitor(ctx context.Context) {
	retention := a.Cfg.FileRetention
	if retention <= 0 {
		return
	}
	interval := a.Cfg.FileSweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	log.Printf("janitor: retention %s, every %s", retention, interval)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.sweep(ctx, retention)
		}
	}
}

func (a *App) sweep(ctx context.Context, retention time.Duration) {
	n, err := a.Files.Sweep(retention)
	if err != nil {
		log.Printf("janitor: %v", err)
	}
	if n > 0 {
		log.Printf("janitor: removed %d files older than %s", n, retention)
	}
	if a.detections != nil {
		if rows, err := a.detections.PurgeOlderThan(ctx, retention); err != nil {
			log.Printf("janitor: purge history: %v", err)
		} else if rows > 0 {
			log.Printf("janitor: purged %d history rows", rows)
		}
	}
	if a.cache != nil && a.Cfg.ClassifyCacheTTL > 0 {
		if _, err := a.cache.PurgeOlderThan(ctx, a.Cfg.ClassifyCacheTTL); err != nil {
			log.Printf("janitor: purge cache: %v", err)
		}
	}
}

func (a *App) Close() {
	var errs []error
	if a.Models != nil {
		errs = append(errs, a.Models.Close())
	}
	if a.gemini != nil {
		errs = append(errs, a.gemini.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	errs = append(errs, ortyolo.DestroyEnvironment())
	if err := errors.Join(errs...); err != nil {
		log.Printf("close: %v", err)
	}
}
