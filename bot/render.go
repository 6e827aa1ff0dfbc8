package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) renderLoop(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.dirty:
			b.render(c)
		}
	}
}

// render brings the chat's console, overlay and toast messages in line with the store.
func (b *Bot) render(c *client) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	s := c.st.State()

	console := Console(s)
	if key := viewKey(console); c.consoleID == 0 || c.resend {
		b.deleteMessage(c.chatID, c.consoleID)
		c.consoleID = b.sendView(c.chatID, console)
		c.consoleKey, c.resend = key, false
	} else if key != c.consoleKey {
		b.editView(c.chatID, c.consoleID, console)
		c.consoleKey = key
	}

	switch {
	case s.Overlay.Open:
		v := overlayView(s.Overlay)
		key := viewKey(v)
		if c.overlayID == 0 {
			c.overlayID = b.sendView(c.chatID, v)
		} else if key != c.overlayKey {
			b.editView(c.chatID, c.overlayID, v)
		}
		c.overlayKey = key
	case c.overlayID != 0:
		b.deleteMessage(c.chatID, c.overlayID)
		c.overlayID, c.overlayKey = 0, ""
	}

	switch {
	case s.Toast != nil && s.Toast.Seq != c.toastSeq:
		b.deleteMessage(c.chatID, c.toastID)
		c.toastID = b.sendView(c.chatID, View{Text: toastText(*s.Toast)})
		c.toastSeq = s.Toast.Seq
	case s.Toast == nil && c.toastID != 0:
		b.deleteMessage(c.chatID, c.toastID)
		c.toastID, c.toastSeq = 0, 0
	}
}

// flush renders c now. Run renders from a loop instead.
func (b *Bot) flush(chatID int64) {
	b.render(b.client(chatID))
}

func (b *Bot) sendView(chatID int64, v View) int {
	msg := tgbotapi.NewMessage(chatID, v.Text)
	if len(v.Keyboard) > 0 {
		msg.ReplyMarkup = markup(v.Keyboard)
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Warn("send", zap.Int64("chat", chatID), zap.Error(err))
		return 0
	}
	return sent.MessageID
}

func (b *Bot) editView(chatID int64, msgID int, v View) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, v.Text, markup(v.Keyboard))
	if _, err := b.api.Send(edit); err != nil {
		b.log.Debug("edit", zap.Int64("chat", chatID), zap.Int("message", msgID), zap.Error(err))
	}
}
