package classify

import (
	"context"
	"log"
	"time"

	"smartseg/api/internal/util"
)

// Classifier определяет тип отходов на изображении.
type Classifier interface {
	Name() string
	GetModel() string
	Classify(ctx context.Context, image []byte) (Result, error)
}

// Cache: хранилище успешных ответов по (sha256 изображения, модель).
type Cache interface {
	Find(ctx context.Context, imageHash, model string, maxAge time.Duration) (Result, bool, error)
	Upsert(ctx context.Context, imageHash, model string, r Result) error
}

// Cached оборачивает Classifier кэшем. Ошибки кэша только логируются.
type Cached struct {
	Next   Classifier
	Cache  Cache
	MaxAge time.Duration
}

func NewCached(next Classifier, cache Cache, maxAge time.Duration) *Cached {
	return &Cached{Next: next, Cache: cache, MaxAge: maxAge}
}

func (c *Cached) Name() string     { return c.Next.Name() }
func (c *Cached) GetModel() string { return c.Next.GetModel() }

func (c *Cached) Classify(ctx context.Context, image []byte) (Result, error) {
	hash := util.SHA256Hex(image)
	model := c.Next.GetModel()

	if r, ok, err := c.Cache.Find(ctx, hash, model, c.MaxAge); err != nil {
		log.Printf("classify cache: find %s: %v", hash[:12], err)
	} else if ok {
		return r, nil
	}

	r, err := c.Next.Classify(ctx, image)
	if err != nil {
		return r, err
	}
	if err := c.Cache.Upsert(ctx, hash, model, r); err != nil {
		log.Printf("classify cache: upsert %s: %v", hash[:12], err)
	}
	return r, nil
}
