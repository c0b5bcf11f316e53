package notifier

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CommandHandler answers one bot command. An empty reply sends nothing.
type CommandHandler func(ctx context.Context, command string) string

type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// PollTimeout is the server-side long-poll wait passed to getUpdates.
var PollTimeout = 30 * time.Second

const pollErrorDelay = 5 * time.Second

// StartPolling long-polls for bot commands and replies in the chat that sent
// each one. Plain chat messages are skipped. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	var transport http.RoundTripper
	if t.Client != nil {
		transport = t.Client.Transport
	}
	client := &http.Client{Timeout: PollTimeout + 5*time.Second, Transport: transport}

	offset := 0
	for ctx.Err() == nil {
		var updates []telegramUpdate
		err := t.call(ctx, client, "getUpdates", map[string]any{
			"offset":          offset,
			"timeout":         int(PollTimeout.Seconds()),
			"allowed_updates": []string{"message"},
		}, &updates)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("[WARN] polling request failed: %v", err)
			_ = pause(ctx, retryDelay(err, pollErrorDelay))
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			t.dispatch(ctx, u, handler)
		}
	}
	log.Println("[INFO] Telegram polling stopped")
}

func (t *TelegramNotifier) dispatch(ctx context.Context, u telegramUpdate, handler CommandHandler) {
	if u.Message == nil {
		return
	}
	text := strings.TrimSpace(u.Message.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	chat := strconv.FormatInt(u.Message.Chat.ID, 10)
	if t.ChatID != "" && chat != t.ChatID {
		log.Printf("[WARN] ignoring %q from unauthorized chat %s", text, chat)
		return
	}

	log.Printf("[INFO] received command: %s", text)
	reply := handler(ctx, text)
	if reply == "" {
		return
	}
	if err := t.sendTo(ctx, chat, reply); err != nil {
		log.Printf("[ERROR] send reply: %v", err)
	}
}
