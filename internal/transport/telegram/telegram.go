// Package telegram implements the transport.Sender boundary over the
// Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"clanwatch/internal/transport"
	"clanwatch/pkg/logx"
)

type Chat struct {
	ID   int64
	Name string
}

type Config struct {
	Token string
	// Chats are the named destinations the directory is built from.
	// Telegram offers no server-side channel listing, so names come from
	// configuration.
	Chats       []Chat
	PollTimeout time.Duration
}

type Sender struct {
	bot *tele.Bot
	log logx.Logger

	mu    sync.Mutex
	chats []transport.ChannelDescriptor
}

func New(cfg Config, log logx.Logger) (*Sender, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Sender{bot: b, log: log, chats: descriptors(cfg.Chats)}, nil
}

func descriptors(chats []Chat) []transport.ChannelDescriptor {
	out := make([]transport.ChannelDescriptor, 0, len(chats))
	for _, c := range chats {
		out = append(out, transport.ChannelDescriptor{
			ID:   transport.Destination(strconv.FormatInt(c.ID, 10)),
			Name: c.Name,
		})
	}
	return out
}

// SetChats replaces the configured destinations. Called on config reload so
// the next directory rebuild sees added, removed or renamed chats.
func (s *Sender) SetChats(chats []Chat) {
	ds := descriptors(chats)
	s.mu.Lock()
	s.chats = ds
	s.mu.Unlock()
	s.log.Debug("chat list updated", logx.Int("chats", len(ds)))
}

func (s *Sender) Channels(ctx context.Context) ([]transport.ChannelDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transport.ChannelDescriptor(nil), s.chats...), nil
}

func (s *Sender) Send(ctx context.Context, to transport.Destination, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := strconv.ParseInt(string(to), 10, 64)
	if err != nil {
		return errors.New("telegram: destination is not a chat id: " + string(to))
	}
	if _, err := s.bot.Send(tele.ChatID(id), text); err != nil {
		s.log.Debug("send failed", logx.String("dest", string(to)), logx.Err(err))
		return err
	}
	s.log.Debug("sent", logx.String("dest", string(to)), logx.Int("bytes", len(text)))
	return nil
}
