// Package client posts relay status and log lines to one Telegram chat.
// It never polls for updates.
package client

import (
	"context"
	"errors"
	"strings"
	"time"

	"edspec/pkg/logx"

	tele "gopkg.in/telebot.v4"
)

const textLimit = 4000

type Config struct {
	Token    string
	ChatID   int64
	ThreadID int
	// URL overrides the Bot API endpoint (tests).
	URL     string
	Timeout time.Duration
}

// MessageRef points at a sent message so it can be edited later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

type Client struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     cfg.URL,
		Offline: true,
		Client:  newHTTPClient(cfg.Timeout),
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, log: log, bot: b}, nil
}

func (c *Client) chat() *tele.Chat { return &tele.Chat{ID: c.cfg.ChatID} }

func (c *Client) opts() *tele.SendOptions {
	return &tele.SendOptions{DisableWebPagePreview: true, ThreadID: c.cfg.ThreadID}
}

// SendText sends text, split into several messages when it is too long.
// The reference points at the first message.
func (c *Client) SendText(ctx context.Context, text string) (MessageRef, error) {
	var first MessageRef
	for i, chunk := range splitText(text, textLimit) {
		if err := ctx.Err(); err != nil {
			return first, err
		}
		msg, err := c.bot.Send(c.chat(), chunk, c.opts())
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = MessageRef{ChatID: c.cfg.ChatID, MessageID: msg.ID}
		}
	}
	return first, nil
}

// EditText replaces the text of a previously sent message. Only the first
// chunk fits; longer text is truncated.
func (c *Client) EditText(ctx context.Context, ref MessageRef, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := &tele.Message{ID: ref.MessageID, Chat: &tele.Chat{ID: ref.ChatID}}
	_, err := c.bot.Edit(m, splitText(text, textLimit)[0], c.opts())
	if errors.Is(err, tele.ErrSameMessageContent) {
		return nil
	}
	return err
}

// SendLog implements logx.RemoteSink.
func (c *Client) SendLog(ctx context.Context, text string) error {
	_, err := c.SendText(ctx, text)
	return err
}

// splitText cuts s into chunks of at most limit runes, preferring newline
// boundaries. It always returns at least one chunk.
func splitText(s string, limit int) []string {
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}
	out := make([]string, 0, (len(rs)+limit-1)/limit)
	for start := 0; start < len(rs); {
		end := min(start+limit, len(rs))
		if end < len(rs) {
			for i := end - 1; i-start >= limit/3; i-- {
				if rs[i] == '\n' {
					end = i + 1
					break
				}
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
