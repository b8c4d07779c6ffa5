package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smartseg/api/internal/app"
	"smartseg/api/internal/config"
	handle "smartseg/api/internal/handle"
	"smartseg/api/internal/httpserver"
	"smartseg/api/internal/telegram"
)

func main() {
	cfg := config.Load()
	if strings.TrimSpace(cfg.TelegramBotToken) == "" {
		log.Fatal("missing required env TELEGRAM_BOT_TOKEN")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()

	go a.RunJanitor(ctx)

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false
	log.Printf("authorized as @%s", bot.Self.UserName)

	r := &telegram.Router{Bot: bot, Svc: a.Service, Timeout: cfg.GeminiTimeout * 3}

	h := handle.New(a.Service, cfg.MaxUploadBytes, a.PingFunc())
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Healthz)

	addr := "0.0.0.0:" + cfg.Port

	// --- Choose mode: Webhook vs Polling ---
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL != "" {
		startWebhookMode(ctx, addr, mux, bot, r, webhookURL)
	} else {
		startPollingMode(ctx, addr, mux, bot, r)
	}
}

// ---------------- Modes -----------------

func startWebhookMode(ctx context.Context, addr string, mux *http.ServeMux, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) {
	// секретный путь вебхука
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal(err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal(err)
	}

	updates := make(chan tgbotapi.Update, bot.Buffer)
	mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			log.Printf("webhook: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		select {
		case updates <- *upd:
		case <-req.Context().Done():
		}
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				r.HandleUpdate(ctx, upd)
			}
		}
	}()

	log.Printf("webhook listening on %s%s", addr, path)
	if err := httpserver.Run(ctx, addr, mux); err != nil {
		log.Printf("http: %v", err)
	}
}

func startPollingMode(ctx context.Context, addr string, mux *http.ServeMux, bot *tgbotapi.BotAPI, r *telegram.Router) {
	// healthz; для polling он не обязателен
	go func() {
		if err := httpserver.Run(ctx, addr, mux); err != nil {
			log.Printf("http: %v", err)
		}
	}()

	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Printf("deleteWebhook: %v", err)
	}

	runPolling(ctx, bot, func(upd tgbotapi.Update) {
		r.HandleUpdate(ctx, upd)
	})
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		return time.Duration(tgErr.RetryAfter) * time.Second
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 от Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return 2 * time.Second
		}
	}
	return 1 * time.Second
}

// runPolling: long polling с экспоненциальной паузой после ошибок; 429 ждёт retry_after.
func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 15 * time.Second
	bo.MaxElapsedTime = 0

	for {
		if ctx.Err() != nil {
			log.Printf("polling: context cancelled")
			return
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := max(bo.NextBackOff(), retryDelayFromError(err))
			log.Printf("polling error: %v; retry in %v", err, d)
			sleepCtx(ctx, d)
			continue
		}
		bo.Reset()

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}
		if len(updates) == 0 {
			sleepCtx(ctx, 200*time.Millisecond)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ---------------- Helpers -----------------

func shortHash(s string) string {
	// лёгкий хэш для пути вебхука (не крипто, но стабильно для токена)
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	// 16-символный hex
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
