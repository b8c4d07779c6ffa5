package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smartseg/api/internal/pipeline"
)

// Telegram Bot API не отдаёт файлы больше 20 МБ.
const maxDownload = 20 << 20

func (r *Router) acceptPhoto(ctx context.Context, cid int64, fileID, name string) {
	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		r.SendError(cid, err)
		return
	}
	imgBytes, err := download(ctx, file.Link(r.Bot.Token))
	if err != nil {
		r.SendError(cid, fmt.Errorf("download: %w", err))
		return
	}

	_, _ = r.Bot.Request(tgbotapi.NewChatAction(cid, tgbotapi.ChatUploadPhoto))

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := r.Svc.Run(ctx, pipeline.Input{Filename: name, Data: imgBytes, Source: pipeline.SourceTelegram})
	if err != nil {
		log.Printf("telegram: chat %d: %v", cid, err)
		r.SendError(cid, err)
		return
	}

	caption := FormatCaption(resp)
	if len(resp.Annotated) == 0 {
		r.send(cid, caption)
		return
	}
	photo := tgbotapi.NewPhoto(cid, tgbotapi.FileBytes{Name: "result.jpg", Bytes: resp.Annotated})
	photo.Caption = caption
	if _, err := r.Bot.Send(photo); err != nil {
		log.Printf("telegram: send photo to %d: %v", cid, err)
		r.send(cid, caption)
	}
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownload))
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
