// Package orchestrator sequences the conversation pipeline for every inbound
// event: admission check, input normalization, subject/task gating, completion
// call, translation, reply caching. Every failure is converted into exactly
// one outbound message; nothing propagates past Process.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/tutorhub/tutor-gateway/internal/ai"
	"github.com/tutorhub/tutor-gateway/internal/cache"
	"github.com/tutorhub/tutor-gateway/internal/channel"
	"github.com/tutorhub/tutor-gateway/internal/metrics"
	"github.com/tutorhub/tutor-gateway/internal/normalize"
	"github.com/tutorhub/tutor-gateway/internal/ratelimit"
	"github.com/tutorhub/tutor-gateway/internal/registry"
	"github.com/tutorhub/tutor-gateway/internal/session"
)

// Deps collects the orchestrator's collaborators
type Deps struct {
	Limiter    *ratelimit.Limiter
	Sessions   *session.Store
	Normalizer *normalize.Normalizer
	Gateway    ai.Client
	Replies    *cache.ReplyCache
	Users      registry.Registry

	Subjects      []string
	Tasks         []string
	PrimaryLang   string
	SecondaryLang string

	Logger *slog.Logger
}

// Orchestrator drives the conversation pipeline
type Orchestrator struct {
	limiter    *ratelimit.Limiter
	sessions   *session.Store
	normalizer *normalize.Normalizer
	gateway    ai.Client
	replies    *cache.ReplyCache
	users      registry.Registry

	subjects      []string
	tasks         []string
	primaryLang   string
	secondaryLang string

	logger *slog.Logger
}

// New creates an orchestrator
func New(d Deps) *Orchestrator {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		limiter:       d.Limiter,
		sessions:      d.Sessions,
		normalizer:    d.Normalizer,
		gateway:       d.Gateway,
		replies:       d.Replies,
		users:         d.Users,
		subjects:      d.Subjects,
		tasks:         d.Tasks,
		primaryLang:   d.PrimaryLang,
		secondaryLang: d.SecondaryLang,
		logger:        logger,
	}
}

// Run consumes events from the adapter until the context is cancelled or the
// incoming channel closes. Each event is processed in its own goroutine so a
// slow provider call for one user never delays another user's turn.
func (o *Orchestrator) Run(ctx context.Context, adapter channel.Adapter) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-adapter.Incoming():
			if !ok {
				return
			}
			go o.Process(ctx, ev, adapter)
		}
	}
}

// Process handles one inbound event end to end
func (o *Orchestrator) Process(ctx context.Context, ev *channel.Event, adapter channel.Adapter) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic while processing event", "user_id", ev.UserID, "kind", ev.Kind, "panic", r)
		}
	}()

	switch ev.Kind {
	case channel.KindCommand:
		o.handleCommand(ctx, ev, adapter)
	case channel.KindButton:
		o.handleButton(ctx, ev, adapter)
	case channel.KindText, channel.KindPhoto, channel.KindVoice:
		o.handleQuery(ctx, ev, adapter)
	default:
		o.logger.Warn("unknown event kind", "kind", ev.Kind, "user_id", ev.UserID)
	}
}

func (o *Orchestrator) handleQuery(ctx context.Context, ev *channel.Event, adapter channel.Adapter) {
	log := o.logger.With("user_id", ev.UserID, "channel", ev.Channel, "kind", ev.Kind)

	if !o.limiter.Admit(ev.UserID) {
		metrics.RateLimited.Inc()
		o.count(ev, "rate_limited")
		o.send(adapter, ev.ChatID, &channel.Reply{Text: msgRateLimited})
		return
	}

	o.touch(ctx, ev)

	text, err := o.normalizer.Normalize(ctx, normalize.Input{Text: ev.Text, Image: ev.Image, Audio: ev.Audio})
	if err != nil {
		if errors.Is(err, normalize.ErrEmptyExtraction) {
			o.count(ev, "empty_extraction")
			o.send(adapter, ev.ChatID, &channel.Reply{Text: cantReadMessage(ev.Kind)})
			return
		}
		log.Error("normalizer unavailable", "stage", "normalize", "error", err)
		o.count(ev, "normalizer_error")
		o.send(adapter, ev.ChatID, &channel.Reply{Text: msgFailure})
		return
	}

	// Subject gate: no completion call is made until a subject exists
	sess, ok := o.sessions.Get(ev.UserID)
	if !ok || sess.Subject == "" {
		o.count(ev, "subject_gate")
		o.send(adapter, ev.ChatID, &channel.Reply{Text: msgChooseSubject, Buttons: o.subjectKeyboard()})
		return
	}

	prompt := buildPrompt(sess.Subject, sess.PendingTask, text, ev.Kind)

	if typer, ok := adapter.(channel.Typer); ok {
		if err := typer.SendTyping(ev.ChatID); err != nil {
			log.Debug("typing indicator failed", "error", err)
		}
	}

	start := time.Now()
	primary, err := o.gateway.Complete(ctx, prompt)
	metrics.CompletionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("completion failed", "stage", "complete", "error", err)
		o.count(ev, "provider_error")
		o.send(adapter, ev.ChatID, &channel.Reply{Text: msgFailure})
		return
	}

	// A failed translation degrades to the untranslated answer; the user
	// still gets a reply and the toggle becomes a no-op.
	secondary, err := o.gateway.Translate(ctx, primary, o.secondaryLang)
	if err != nil || strings.TrimSpace(secondary) == "" {
		if err != nil {
			log.Warn("translation failed, serving untranslated answer", "stage", "translate", "error", err)
		}
		metrics.TranslationFailures.Inc()
		secondary = primary
	}

	msgID, err := adapter.SendMessage(ev.ChatID, &channel.Reply{Text: secondary})
	if err != nil {
		log.Error("failed to send reply", "stage", "send", "error", err)
		o.count(ev, "send_error")
		return
	}

	if err := o.replies.Store(msgID, primary, secondary, cache.SideSecondary); err != nil {
		log.Error("failed to cache reply", "stage", "cache", "message_id", msgID, "error", err)
	}
	metrics.CachedReplies.Set(float64(o.replies.Len()))

	// The toggle is keyed by the sent message id, so it can only be
	// attached after the send.
	if err := adapter.EditMessage(ev.ChatID, msgID, &channel.Reply{
		Text:    secondary,
		Buttons: o.replyButtons(msgID, cache.SideSecondary),
	}); err != nil {
		log.Warn("failed to attach toggle", "message_id", msgID, "error", err)
	}

	o.count(ev, "ok")
}

func (o *Orchestrator) handleButton(ctx context.Context, ev *channel.Event, adapter channel.Adapter) {
	log := o.logger.With("user_id", ev.UserID, "channel", ev.Channel, "action", ev.Action)
	o.touch(ctx, ev)

	switch ev.Action {
	case channel.ActionSelectSubject:
		// Payloads arrive from the transport and can be forged; only
		// configured subjects may enter the session and the prompt.
		if !slices.Contains(o.subjects, ev.Payload) {
			log.Warn("rejected unknown subject payload", "payload", ev.Payload)
			o.count(ev, "invalid_payload")
			o.send(adapter, ev.ChatID, &channel.Reply{Text: msgChooseSubject, Buttons: o.subjectKeyboard()})
			return
		}
		o.sessions.SelectSubject(ev.UserID, ev.Payload)
		o.count(ev, "ok")
		o.send(adapter, ev.ChatID, &channel.Reply{
			Text:    "✅ Subject set to " + ev.Payload + ". Pick a task type, or just send your question:",
			Buttons: o.taskKeyboard(),
		})

	case channel.ActionSelectTask:
		if !slices.Contains(o.tasks, ev.Payload) {
			log.Warn("rejected unknown task payload", "payload", ev.Payload)
			o.count(ev, "invalid_payload")
			o.send(adapter, ev.ChatID, &channel.Reply{Text: "Pick a task type:", Buttons: o.taskKeyboard()})
			return
		}
		if err := o.sessions.SelectTask(ev.UserID, ev.Payload); err != nil {
			o.count(ev, "subject_gate")
			o.send(adapter, ev.ChatID, &channel.Reply{Text: msgChooseSubject, Buttons: o.subjectKeyboard()})
			return
		}
		o.count(ev, "ok")
		o.send(adapter, ev.ChatID, &channel.Reply{Text: "✍️ Send your " + ev.Payload + " question."})

	case channel.ActionChangeSubject:
		o.sessions.ResetSubject(ev.UserID)
		o.count(ev, "ok")
		o.send(adapter, ev.ChatID, &channel.Reply{Text: msgChooseNewSubject, Buttons: o.subjectKeyboard()})

	case channel.ActionToggle:
		text, side, err := o.replies.Toggle(ev.Payload)
		if err != nil {
			metrics.ToggleCount.WithLabelValues("not_found").Inc()
			o.count(ev, "not_found")
			o.send(adapter, ev.ChatID, &channel.Reply{Text: msgNotFound})
			return
		}
		metrics.ToggleCount.WithLabelValues("ok").Inc()
		o.count(ev, "ok")
		if err := adapter.EditMessage(ev.ChatID, ev.Payload, &channel.Reply{
			Text:    text,
			Buttons: o.replyButtons(ev.Payload, side),
		}); err != nil {
			log.Error("failed to edit toggled message", "message_id", ev.Payload, "error", err)
		}

	default:
		log.Warn("unknown button action")
	}
}

func (o *Orchestrator) handleCommand(ctx context.Context, ev *channel.Event, adapter channel.Adapter) {
	o.touch(ctx, ev)

	switch ev.Command {
	case "start":
		o.count(ev, "ok")
		o.send(adapter, ev.ChatID, &channel.Reply{Text: msgWelcome, Buttons: o.subjectKeyboard()})
	default:
		o.count(ev, "unknown_command")
		o.send(adapter, ev.ChatID, &channel.Reply{Text: msgChooseSubject, Buttons: o.subjectKeyboard()})
	}
}

// Broadcast fans a message out to every registered user
func (o *Orchestrator) Broadcast(ctx context.Context, adapter channel.Adapter, text string) (int, error) {
	users, err := o.users.List(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, userID := range users {
		if _, err := adapter.SendMessage(userID, &channel.Reply{Text: text}); err != nil {
			o.logger.Warn("broadcast send failed", "user_id", userID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// touch records user activity and keeps the registry current. Registry
// failures are logged, never user-visible.
func (o *Orchestrator) touch(ctx context.Context, ev *channel.Event) {
	o.sessions.Touch(ev.UserID)
	metrics.ActiveSessions.Set(float64(o.sessions.Len()))
	if _, err := o.users.Register(ctx, ev.UserID); err != nil {
		o.logger.Warn("user registration failed", "user_id", ev.UserID, "error", err)
	}
}

func (o *Orchestrator) send(adapter channel.Adapter, chatID string, reply *channel.Reply) {
	if _, err := adapter.SendMessage(chatID, reply); err != nil {
		o.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (o *Orchestrator) count(ev *channel.Event, outcome string) {
	metrics.EventCount.WithLabelValues(ev.Channel, string(ev.Kind), outcome).Inc()
}
