// Package telegram pushes notable agent decisions to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/silveragent/internal/logger"
	"github.com/rewired-gh/silveragent/internal/models"
)

// sender is the subset of *tgbotapi.BotAPI used for outbound messages.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// StatusFunc renders a one-message status summary for the /status command.
type StatusFunc func() string

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	out            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	limiter        *rate.Limiter
	status         StatusFunc
	wg             sync.WaitGroup
}

// NewClient creates a new Telegram client. At most one notification is sent
// per minInterval; extra notifications are dropped.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase, minInterval time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	c := newClient(bot, chatIDInt, maxRetries, retryDelayBase, minInterval)
	c.bot = bot
	return c, nil
}

func newClient(out sender, chatID int64, maxRetries int, retryDelayBase, minInterval time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	if minInterval <= 0 {
		minInterval = 10 * time.Second
	}
	return &Client{
		out:            out,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		limiter:        rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// SetStatusFunc installs the renderer used by the /status command.
func (c *Client) SetStatusFunc(f StatusFunc) {
	c.status = f
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	if c.bot == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	var text string
	switch msg.Command() {
	case "ping":
		text = "Pong"
	case "status":
		if c.status == nil {
			return
		}
		text = c.status()
	default:
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	c.out.Send(reply) //nolint:errcheck
}

// Record forwards staleness and operator decisions. Sending happens in the
// background so the caller never waits on the network.
func (c *Client) Record(d models.AgentDecision) error {
	if !notable(d) {
		return nil
	}
	if !c.limiter.Allow() {
		logger.Debug("Dropping Telegram notification for decision %s: rate limited", d.ID)
		return nil
	}
	text := formatDecision(d)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.sendMarkdownV2(text); err != nil {
			logger.Warn("Failed to send Telegram notification: %v", err)
		}
	}()
	return nil
}

// Wait blocks until in-flight notifications finish.
func (c *Client) Wait() {
	c.wg.Wait()
}

func notable(d models.AgentDecision) bool {
	switch d.Type {
	case models.DecisionStaleness:
		return true
	case models.DecisionReallocate:
		return d.SourceID != ""
	}
	return false
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.out.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// formatDecision formats a decision into a Telegram MarkdownV2 message.
func formatDecision(d models.AgentDecision) string {
	title := "🔁 *Source status changed*"
	if d.Type == models.DecisionStaleness {
		title = "⏳ *Source went stale*"
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	if d.SourceName != "" {
		fmt.Fprintf(&b, "📡 %s\n", escapeMarkdownV2(d.SourceName))
	}
	fmt.Fprintf(&b, "%s\n", escapeMarkdownV2(d.Reason))
	if d.Details != "" {
		fmt.Fprintf(&b, "_%s_\n", escapeMarkdownV2(d.Details))
	}
	fmt.Fprintf(&b, "\n🕒 %s", escapeMarkdownV2(d.Timestamp.Format("2006-01-02 15:04:05")))
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
