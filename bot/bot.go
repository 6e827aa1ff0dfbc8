// Package bot serves the campus consoles over Telegram. Every chat gets its own state
// store; the console, the overlay and the toast are each one message kept in step with it.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"campus-eats/config"
	"campus-eats/docstore"
	"campus-eats/mirror"
	"campus-eats/services"
	"campus-eats/state"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// sender is the part of *tgbotapi.BotAPI the bot writes through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type client struct {
	chatID int64
	once   sync.Once
	st     *state.Store
	mirror *mirror.Mirror
	dirty  chan struct{}

	stopAuth   func()
	stopRender func()

	mu    sync.Mutex // guards form and draft
	form  *form
	draft *bookingDraft

	renderMu   sync.Mutex // guards the message ids below
	consoleID  int
	consoleKey string
	resend     bool
	overlayID  int
	overlayKey string
	toastID    int
	toastSeq   uint64
}

func (c *client) markDirty() {
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

func (c *client) overlayMessage() int {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	return c.overlayID
}

type Bot struct {
	api  sender
	tg   *tgbotapi.BotAPI
	svc  *services.Service
	docs docstore.Store
	reg  *state.Registry
	log  *zap.Logger
	now  func() time.Time

	mu      sync.Mutex
	ctx     context.Context // set by Run; nil means render on demand
	clients map[int64]*client
}

func New(cfg config.TelegramConfig, svc *services.Service, docs docstore.Store, reg *state.Registry, log *zap.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token not set")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	api.Debug = cfg.Debug
	b := newBot(api, svc, docs, reg, log)
	b.tg = api
	return b, nil
}

func newBot(api sender, svc *services.Service, docs docstore.Store, reg *state.Registry, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Bot{
		api:     api,
		svc:     svc,
		docs:    docs,
		reg:     reg,
		log:     log.Named("bot"),
		now:     time.Now,
		clients: make(map[int64]*client),
	}
	reg.OnCreate = b.attach
	return b
}

func (b *Bot) baseContext() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx != nil {
		return b.ctx
	}
	return context.Background()
}

// client returns the chat's client, starting its session on first use.
func (b *Bot) client(chatID int64) *client {
	b.mu.Lock()
	c, ok := b.clients[chatID]
	if !ok {
		c = &client{chatID: chatID, dirty: make(chan struct{}, 1)}
		b.clients[chatID] = c
	}
	b.mu.Unlock()
	c.once.Do(func() { c.st = b.reg.Get(chatID) })
	return c
}

// attach runs once per new store: mirror, renderer, then the anonymous session.
func (b *Bot) attach(chatID int64, st *state.Store) {
	b.mu.Lock()
	c := b.clients[chatID]
	if c == nil {
		c = &client{chatID: chatID, dirty: make(chan struct{}, 1)}
		b.clients[chatID] = c
	}
	runCtx := b.ctx
	b.mu.Unlock()

	ctx := b.baseContext()
	c.st = st
	c.mirror = mirror.Start(ctx, b.docs, st, b.log)
	c.stopRender = st.Subscribe(func(prev, next state.State) { c.markDirty() })
	if runCtx != nil {
		go b.renderLoop(runCtx, c)
	}
	stop, err := b.svc.StartSession(ctx, chatID, st)
	if err != nil {
		b.log.Error("start session", zap.Int64("chat", chatID), zap.Error(err))
	}
	c.stopAuth = stop
	c.markDirty()
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Open the console"},
		tgbotapi.BotCommand{Command: "signin", Description: "Sign in: /signin email password"},
		tgbotapi.BotCommand{Command: "signup", Description: "Sign up: /signup email password"},
		tgbotapi.BotCommand{Command: "guest", Description: "Continue as guest"},
		tgbotapi.BotCommand{Command: "theme", Description: "Toggle light/dark mode"},
		tgbotapi.BotCommand{Command: "cancel", Description: "Stop the current form"},
		tgbotapi.BotCommand{Command: "logout", Description: "Log out"},
	)
	_, err := b.api.Request(cfg)
	return err
}

// Run polls updates until ctx is done. Each update is handled in its own goroutine.
func (b *Bot) Run(ctx context.Context) error {
	if b.tg == nil {
		return errors.New("bot: no telegram client")
	}
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	if err := b.setBotCommands(); err != nil {
		b.log.Warn("set commands", zap.Error(err))
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.log.Info("bot started", zap.String("username", b.tg.Self.UserName))

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.tg.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

// Close tears down every chat's subscriptions and stores.
func (b *Bot) Close() {
	b.mu.Lock()
	clients := b.clients
	b.clients = make(map[int64]*client)
	b.mu.Unlock()
	for _, c := range clients {
		if c.mirror != nil {
			c.mirror.Stop()
		}
		if c.stopRender != nil {
			c.stopRender()
		}
		if c.stopAuth != nil {
			c.stopAuth()
		}
	}
	b.reg.Close()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic handling update", zap.Int("update", update.UpdateID), zap.Any("panic", r))
		}
	}()
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) deleteMessage(chatID int64, msgID int) {
	if msgID == 0 {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, msgID)); err != nil {
		b.log.Debug("delete message", zap.Int64("chat", chatID), zap.Int("message", msgID), zap.Error(err))
	}
}

func (b *Bot) answer(cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.log.Debug("answer callback", zap.Error(err))
	}
}

func markup(rows [][]state.Button) tgbotapi.InlineKeyboardMarkup {
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, btn := range r {
			if btn.URL != "" {
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.CallbackData))
			}
		}
		if len(row) > 0 {
			kb = append(kb, row)
		}
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: kb}
}

// viewKey identifies a rendered view so unchanged messages are not edited again.
func viewKey(v View) string {
	var b strings.Builder
	b.WriteString(v.Text)
	for _, r := range v.Keyboard {
		b.WriteString("\x00")
		for _, btn := range r {
			b.WriteString(btn.Text + "\x01" + btn.CallbackData + "\x01" + btn.URL + "\x02")
		}
	}
	return b.String()
}
