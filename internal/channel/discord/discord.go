package discord

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/tutorhub/tutor-gateway/internal/channel"
	"github.com/tutorhub/tutor-gateway/internal/logging"
)

// Adapter bridges Discord to the event pipeline. Only direct messages and
// mentions are handled; image and audio attachments are downloaded eagerly.
type Adapter struct {
	token    string
	session  *discordgo.Session
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
		logger:   logging.WithComponent("discord"),
	}
}

func (d *Adapter) Name() string {
	return "discord"
}

func (d *Adapter) IsEnabled() bool {
	return d.token != ""
}

func (d *Adapter) Start(ctx context.Context) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return err
	}
	d.session = session

	session.AddHandler(d.onMessage)
	session.AddHandler(d.onInteraction)

	if err := session.Open(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		session.Close()
	}()
	return nil
}

// Stop closes the session first so no new handler fires, waits for in-flight
// deliveries and only then closes the incoming channel.
func (d *Adapter) Stop() error {
	if d.session != nil {
		d.session.Close()
	}
	close(d.stop)
	d.wg.Wait()
	close(d.incoming)
	return nil
}

// deliver hands an event to the consumer unless shutdown has begun
func (d *Adapter) deliver(ev *channel.Event) {
	d.wg.Add(1)
	defer d.wg.Done()
	select {
	case d.incoming <- ev:
	case <-d.stop:
	}
}

func (d *Adapter) Incoming() <-chan *channel.Event {
	return d.incoming
}

func (d *Adapter) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot {
		return
	}
	// Guild chatter is ignored unless the bot is mentioned directly.
	if m.GuildID != "" && !d.isMentioned(s.State.User.ID, m.Mentions) {
		return
	}

	ev := &channel.Event{
		ID:        m.ID,
		Channel:   "discord",
		UserID:    m.Author.ID,
		ChatID:    m.ChannelID,
		Timestamp: m.Timestamp.Unix(),
	}

	if att := firstAttachment(m.Attachments, "image/"); att != nil {
		data, err := d.download(att.URL)
		if err != nil {
			d.logger.Error("attachment download failed", "error", err)
			return
		}
		ev.Kind = channel.KindPhoto
		ev.Image = data
		ev.Text = m.Content
	} else if att := firstAttachment(m.Attachments, "audio/"); att != nil {
		data, err := d.download(att.URL)
		if err != nil {
			d.logger.Error("attachment download failed", "error", err)
			return
		}
		ev.Kind = channel.KindVoice
		ev.Audio = data
	} else if cmd, ok := strings.CutPrefix(m.Content, "/"); ok && len(strings.Fields(cmd)) > 0 {
		ev.Kind = channel.KindCommand
		ev.Command = strings.Fields(cmd)[0]
	} else if m.Content != "" {
		ev.Kind = channel.KindText
		ev.Text = m.Content
	} else {
		return
	}

	d.deliver(ev)
}

func (d *Adapter) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	// Acknowledge without posting; the follow-up arrives as an edit.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		d.logger.Warn("interaction ack failed", "error", err)
	}

	action, payload, err := decodeCustomID(i.MessageComponentData().CustomID)
	if err != nil {
		d.logger.Warn("unrecognized component id", "custom_id", i.MessageComponentData().CustomID)
		return
	}

	userID := ""
	if i.User != nil {
		userID = i.User.ID
	} else if i.Member != nil && i.Member.User != nil {
		userID = i.Member.User.ID
	}

	d.deliver(&channel.Event{
		ID:        i.Message.ID,
		Channel:   "discord",
		UserID:    userID,
		ChatID:    i.ChannelID,
		Kind:      channel.KindButton,
		Action:    action,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	})
}

func (d *Adapter) SendMessage(chatID string, reply *channel.Reply) (string, error) {
	msg, err := d.session.ChannelMessageSendComplex(chatID, &discordgo.MessageSend{
		Content:    reply.Text,
		Components: buildComponents(reply.Buttons),
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (d *Adapter) EditMessage(chatID, messageID string, reply *channel.Reply) error {
	components := buildComponents(reply.Buttons)
	_, err := d.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         messageID,
		Channel:    chatID,
		Content:    &reply.Text,
		Components: &components,
	})
	return err
}

// SendTyping shows the typing indicator while an answer is prepared
func (d *Adapter) SendTyping(chatID string) error {
	return d.session.ChannelTyping(chatID)
}

func (d *Adapter) download(url string) ([]byte, error) {
	resp, err := d.httpc.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (d *Adapter) isMentioned(botID string, mentions []*discordgo.User) bool {
	for _, mention := range mentions {
		if mention.ID == botID {
			return true
		}
	}
	return false
}

func firstAttachment(attachments []*discordgo.MessageAttachment, prefix string) *discordgo.MessageAttachment {
	for _, att := range attachments {
		if strings.HasPrefix(att.ContentType, prefix) {
			return att
		}
	}
	return nil
}

func buildComponents(rows [][]channel.Button) []discordgo.MessageComponent {
	var components []discordgo.MessageComponent
	for _, row := range rows {
		var buttons []discordgo.MessageComponent
		for _, b := range row {
			buttons = append(buttons, discordgo.Button{
				Label:    b.Label,
				Style:    discordgo.PrimaryButton,
				CustomID: encodeCustomID(b.Action, b.Payload),
			})
		}
		components = append(components, discordgo.ActionsRow{Components: buttons})
	}
	return components
}

func encodeCustomID(action channel.ButtonAction, payload string) string {
	return string(action) + "|" + payload
}

func decodeCustomID(data string) (channel.ButtonAction, string, error) {
	action, payload, ok := strings.Cut(data, "|")
	if !ok {
		return "", "", fmt.Errorf("malformed custom id")
	}
	return channel.ButtonAction(action), payload, nil
}
