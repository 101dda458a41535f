package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// BotAPI is the subset of the Telegram client used here.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TelegramNotifier posts notifications as chat messages. A notification
// with an ID that was already posted deletes the previous message first,
// so the chat shows at most one message per ID.
type TelegramNotifier struct {
	bot     BotAPI
	chatID  int64
	limiter *rate.Limiter
	logger  *zerolog.Logger
	// retryDelays are waited between attempts after a rate limit or
	// server error. Their count bounds the number of retries.
	retryDelays []time.Duration

	mu   sync.Mutex
	sent map[int]int // notification ID -> message ID
}

func NewTelegramNotifier(bot BotAPI, chatID int64, perSecond float64, burst int, logger *zerolog.Logger) *TelegramNotifier {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &TelegramNotifier{
		bot:     bot,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:  logger,
		sent:    make(map[int]int),

		retryDelays: []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
	}
}

func (t *TelegramNotifier) Notify(ctx context.Context, n Notification) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	t.mu.Lock()
	prev, replacing := t.sent[n.ID]
	t.mu.Unlock()

	if replacing {
		if _, err := t.bot.Request(tgbotapi.NewDeleteMessage(t.chatID, prev)); err != nil {
			t.logger.Warn().Err(err).Int("message_id", prev).Msg("failed to delete previous notification")
		}
	}

	msg := tgbotapi.NewMessage(t.chatID, formatMessage(n))
	msg.DisableNotification = n.Priority == PriorityDefault
	sent, err := t.send(ctx, msg)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}

	t.mu.Lock()
	t.sent[n.ID] = sent.MessageID
	t.mu.Unlock()

	t.logger.Info().Int("notification_id", n.ID).Int("message_id", sent.MessageID).Msg("notification posted to telegram")
	return nil
}

// send retries transient failures: 429 honours the server's retry_after,
// 5xx uses the next configured delay. Any other error is returned at once.
func (t *TelegramNotifier) send(ctx context.Context, msg tgbotapi.MessageConfig) (tgbotapi.Message, error) {
	for attempt := 0; ; attempt++ {
		sent, err := t.bot.Send(msg)
		if err == nil {
			return sent, nil
		}

		var tgErr *tgbotapi.Error
		if attempt >= len(t.retryDelays) || !errors.As(err, &tgErr) {
			return tgbotapi.Message{}, err
		}

		var wait time.Duration
		switch {
		case tgErr.Code == 429:
			wait = time.Duration(tgErr.RetryAfter) * time.Second
			if wait == 0 {
				wait = t.retryDelays[attempt]
			}
		case tgErr.Code >= 500:
			wait = t.retryDelays[attempt]
		default:
			return tgbotapi.Message{}, err
		}

		t.logger.Info().Err(err).Int("attempt", attempt+1).Dur("delay", wait).Msg("retrying telegram send")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return tgbotapi.Message{}, ctx.Err()
		}
	}
}

func formatMessage(n Notification) string {
	var b strings.Builder
	if n.Title != "" {
		b.WriteString("🔔 ")
		b.WriteString(n.Title)
	}
	if n.Body != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(n.Body)
	}
	return b.String()
}
