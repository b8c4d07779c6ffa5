package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"smartseg/api/internal/classify"
	"smartseg/api/internal/util"
)

type Engine struct {
	Model      string
	Prompt     string
	Timeout    time.Duration
	MaxRetries int

	client    *genai.Client
	generate  generateFunc
	retryBase time.Duration
}

// generateFunc: один вызов модели, подменяется в тестах.
type generateFunc func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)

type Options struct {
	Prompt     string
	Timeout    time.Duration
	MaxRetries int
}

// New создаёт клиента Gemini один раз на процесс.
func New(ctx context.Context, apiKey, model string, opt Options) (*Engine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	e := &Engine{
		Model:      strings.TrimSpace(model),
		Prompt:     opt.Prompt,
		Timeout:    opt.Timeout,
		MaxRetries: opt.MaxRetries,
		client:     cl,
	}
	if e.Prompt == "" {
		e.Prompt = classify.DefaultPrompt
	}
	if e.Timeout <= 0 {
		e.Timeout = 60 * time.Second
	}
	e.generate = func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		return e.newModel().GenerateContent(ctx, parts...)
	}
	return e, nil
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

func (e *Engine) newModel() *genai.GenerativeModel {
	m := e.client.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	}
	return m
}

// Classify отправляет изображение и промпт, возвращает разобранный JSON.
// Ошибки разбора не ретраятся.
func (e *Engine) Classify(ctx context.Context, image []byte) (classify.Result, error) {
	if len(image) == 0 {
		return classify.Result{}, errors.New("gemini: empty image")
	}
	parts := []genai.Part{
		genai.Text(e.Prompt),
		&genai.Blob{MIMEType: util.PickImageMIME("", image), Data: image},
	}

	txt, err := e.generateText(ctx, parts)
	if err != nil {
		return classify.Result{}, fmt.Errorf("gemini generate: %w", err)
	}

	log.Printf("gemini raw response: %s", util.Truncate(txt, 500))
	r, err := classify.Parse(txt)
	if err != nil {
		return classify.Result{}, err
	}
	return r, nil
}

// generateText: вызов с таймаутом и ретраями; блокировка и отмена ctx не ретраятся.
func (e *Engine) generateText(ctx context.Context, parts []genai.Part) (string, error) {
	return backoff.RetryWithData(func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.Timeout)
		defer cancel()

		resp, err := e.generate(callCtx, parts...)
		if err != nil {
			var blocked *genai.BlockedError
			if errors.As(err, &blocked) || ctx.Err() != nil {
				return "", backoff.Permanent(err)
			}
			log.Printf("gemini: generate: %v", err)
			return "", err
		}
		return firstText(resp), nil
	}, e.policy(ctx))
}

func (e *Engine) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 300 * time.Millisecond
	if e.retryBase > 0 {
		b.InitialInterval = e.retryBase
	}
	b.MaxInterval = 3 * time.Second
	b.MaxElapsedTime = 0
	retries := e.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"is_waste":        {Type: genai.TypeBoolean, Nullable: true},
			"waste_type":      {Type: genai.TypeString, Nullable: true},
			"description":     {Type: genai.TypeString},
			"disposal_advice": {Type: genai.TypeString},
		},
		Required: []string{"is_waste", "waste_type", "description", "disposal_advice"},
	}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
