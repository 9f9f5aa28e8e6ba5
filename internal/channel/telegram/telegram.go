package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tutorhub/tutor-gateway/internal/channel"
	"github.com/tutorhub/tutor-gateway/internal/logging"
)

// Adapter bridges the Telegram Bot API to the event pipeline. Photos and
// voice notes are downloaded eagerly so downstream consumers only see bytes.
type Adapter struct {
	bot      *tgbotapi.BotAPI
	token    string
	incoming chan *channel.Event
	stop     chan struct{}
	wg       sync.WaitGroup
	httpc    *http.Client
	logger   *slog.Logger
}

func New(token string) *Adapter {
	return &Adapter{
		token:    token,
		incoming: make(chan *channel.Event, 100),
		stop:     make(chan struct{}),
		httpc:    &http.Client{Timeout: 30 * time.Second},
		logger:   logging.WithComponent("telegram"),
	}
}

func (t *Adapter) Name() string {
	return "telegram"
}

func (t *Adapter) IsEnabled() bool {
	return t.token != ""
}

func (t *Adapter) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return err
	}
	t.bot = bot

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(&update)
			}
		}
	}()
	return nil
}

// Stop ends update polling, waits for the in-flight delivery to finish and
// only then closes the incoming channel.
func (t *Adapter) Stop() error {
	close(t.stop)
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	t.wg.Wait()
	close(t.incoming)
	return nil
}

// deliver hands an event to the consumer unless shutdown has begun
func (t *Adapter) deliver(ev *channel.Event) {
	select {
	case t.incoming <- ev:
	case <-t.stop:
	}
}

func (t *Adapter) Incoming() <-chan *channel.Event {
	return t.incoming
}

func (t *Adapter) handleUpdate(update *tgbotapi.Update) {
	if update.CallbackQuery != nil {
		t.handleCallback(update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}

	msg := update.Message
	ev := &channel.Event{
		ID:        strconv.Itoa(msg.MessageID),
		Channel:   "telegram",
		UserID:    strconv.FormatInt(msg.From.ID, 10),
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		Timestamp: int64(msg.Date),
	}

	switch {
	case msg.IsCommand():
		ev.Kind = channel.KindCommand
		ev.Command = msg.Command()
	case len(msg.Photo) > 0:
		// Telegram sends several sizes; the last is the largest.
		data, err := t.download(msg.Photo[len(msg.Photo)-1].FileID)
		if err != nil {
			t.logger.Error("photo download failed", "error", err)
			return
		}
		ev.Kind = channel.KindPhoto
		ev.Image = data
		ev.Text = msg.Caption
	case msg.Voice != nil:
		data, err := t.download(msg.Voice.FileID)
		if err != nil {
			t.logger.Error("voice download failed", "error", err)
			return
		}
		ev.Kind = channel.KindVoice
		ev.Audio = data
	case msg.Text != "":
		ev.Kind = channel.KindText
		ev.Text = msg.Text
	default:
		return
	}

	t.deliver(ev)
}

func (t *Adapter) handleCallback(cq *tgbotapi.CallbackQuery) {
	// Acknowledge so the client stops showing the spinner.
	if _, err := t.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		t.logger.Warn("callback ack failed", "error", err)
	}
	if cq.Message == nil {
		return
	}

	action, payload, err := decodeCallback(cq.Data)
	if err != nil {
		t.logger.Warn("unrecognized callback data", "data", cq.Data)
		return
	}

	t.deliver(&channel.Event{
		ID:        strconv.Itoa(cq.Message.MessageID),
		Channel:   "telegram",
		UserID:    strconv.FormatInt(cq.From.ID, 10),
		ChatID:    strconv.FormatInt(cq.Message.Chat.ID, 10),
		Kind:      channel.KindButton,
		Action:    action,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	})
}

func (t *Adapter) SendMessage(chatID string, reply *channel.Reply) (string, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	msg := tgbotapi.NewMessage(id, reply.Text)
	if len(reply.Buttons) > 0 {
		msg.ReplyMarkup = buildKeyboard(reply.Buttons)
	}
	sent, err := t.bot.Send(msg)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(sent.MessageID), nil
}

func (t *Adapter) EditMessage(chatID, messageID string, reply *channel.Reply) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	msgID, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("invalid message id %q: %w", messageID, err)
	}

	if len(reply.Buttons) > 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(id, msgID, reply.Text, buildKeyboard(reply.Buttons))
		_, err = t.bot.Send(edit)
		return err
	}
	edit := tgbotapi.NewEditMessageText(id, msgID, reply.Text)
	_, err = t.bot.Send(edit)
	return err
}

// SendTyping shows the "typing..." indicator while an answer is prepared
func (t *Adapter) SendTyping(chatID string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	_, err = t.bot.Request(tgbotapi.NewChatAction(id, tgbotapi.ChatTyping))
	return err
}

func (t *Adapter) download(fileID string) ([]byte, error) {
	url, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}
	resp, err := t.httpc.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func buildKeyboard(rows [][]channel.Button) tgbotapi.InlineKeyboardMarkup {
	var kbRows [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var kbRow []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(b.Label, encodeCallback(b.Action, b.Payload)))
		}
		kbRows = append(kbRows, kbRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...)
}

func encodeCallback(action channel.ButtonAction, payload string) string {
	return string(action) + "|" + payload
}

func decodeCallback(data string) (channel.ButtonAction, string, error) {
	action, payload, ok := strings.Cut(data, "|")
	if !ok {
		return "", "", fmt.Errorf("malformed callback data")
	}
	return channel.ButtonAction(action), payload, nil
}
