package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smartseg/api/internal/pipeline"
)

// Runner: пайплайн классификации и детекции.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) (pipeline.Response, error)
}

type Router struct {
	Bot     *tgbotapi.BotAPI
	Svc     Runner
	Timeout time.Duration
}

func (r *Router) HandleCommand(upd tgbotapi.Update) {
	cid := upd.Message.Chat.ID
	switch upd.Message.Command() {
	case "start":
		r.send(cid, startText)
	case "health":
		r.send(cid, "✅ OK")
	default:
		r.send(cid, "Unknown command. Try /start")
	}
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	switch {
	case msg.IsCommand():
		r.HandleCommand(upd)
	case len(msg.Photo) > 0:
		ph := msg.Photo[len(msg.Photo)-1]
		r.acceptPhoto(ctx, msg.Chat.ID, ph.FileID, "photo.jpg")
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		r.acceptPhoto(ctx, msg.Chat.ID, msg.Document.FileID, msg.Document.FileName)
	case strings.TrimSpace(msg.Text) != "":
		r.send(msg.Chat.ID, "Send me a photo of the item and I will tell you how to dispose of it.")
	}
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		log.Printf("telegram: send to %d: %v", chatID, err)
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("⚠️ Error: %v", err))
}

const startText = "Send a photo of an item. I will classify the waste type, " +
	"detect the objects on it and reply with disposal advice.\nCommands: /health"
