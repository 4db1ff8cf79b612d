package notifier

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// TelegramConfig mirrors the "notifier.telegram" config section.
type TelegramConfig struct {
	Token      string
	ChatID     int64
	ThreadID   int
	RatePerSec int
	Timeout    time.Duration
}

// Telegram posts status lines to a chat (optionally a forum topic).
type Telegram struct {
	bot      *tele.Bot
	to       tele.Recipient
	threadID int
	limiter  *rate.Limiter
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is not set")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	rps := max(1, cfg.RatePerSec)

	// Offline: the bot only sends; no getMe round-trip or polling at startup.
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: true,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:      b,
		to:       &tele.Chat{ID: cfg.ChatID},
		threadID: cfg.ThreadID,
		limiter:  rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, ev Event) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	opts := &tele.SendOptions{DisableWebPagePreview: true, ThreadID: t.threadID}
	_, err := t.bot.Send(t.to, ev.Text(), opts)
	return err
}
