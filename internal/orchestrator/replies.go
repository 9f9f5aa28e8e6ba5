package orchestrator

import (
	"fmt"
	"strings"

	"github.com/tutorhub/tutor-gateway/internal/ai"
	"github.com/tutorhub/tutor-gateway/internal/cache"
	"github.com/tutorhub/tutor-gateway/internal/channel"
)

const (
	msgWelcome          = "👋 Welcome! Choose a subject first:"
	msgChooseSubject    = "⚠️ Please select a subject first:"
	msgChooseNewSubject = "Select a new subject:"
	msgRateLimited      = "⏳ You're sending messages too fast. Please wait a moment and try again."
	msgFailure          = "⚠️ Something went wrong. Please try again."
	msgNotFound         = "⚠️ Message not found."

	changeSubjectLabel = "🔄 Change Subject"
)

func cantReadMessage(kind channel.EventKind) string {
	if kind == channel.KindVoice {
		return "⚠️ Couldn't make out any words in the audio. Please type your question."
	}
	return "⚠️ Couldn't read any text from the image. Please type your question."
}

func (o *Orchestrator) subjectKeyboard() [][]channel.Button {
	row := make([]channel.Button, 0, len(o.subjects))
	for _, s := range o.subjects {
		row = append(row, channel.Button{Label: s, Action: channel.ActionSelectSubject, Payload: s})
	}
	return [][]channel.Button{row}
}

func (o *Orchestrator) taskKeyboard() [][]channel.Button {
	row := make([]channel.Button, 0, len(o.tasks))
	for _, t := range o.tasks {
		row = append(row, channel.Button{Label: t, Action: channel.ActionSelectTask, Payload: t})
	}
	return [][]channel.Button{row}
}

// replyButtons builds the toggle row attached to every answer. The toggle
// keeps the message id as payload so a press can find the cached pair, and
// its label names the language the press would reveal.
func (o *Orchestrator) replyButtons(messageID string, showing cache.Side) [][]channel.Button {
	target := o.secondaryLang
	if showing == cache.SideSecondary {
		target = o.primaryLang
	}
	return [][]channel.Button{
		{{Label: "🌐 Translate to " + ai.LangName(target), Action: channel.ActionToggle, Payload: messageID}},
		{{Label: changeSubjectLabel, Action: channel.ActionChangeSubject}},
	}
}

// buildPrompt annotates the normalized question with the session's subject
// and task context, mirroring the shape the completion provider was tuned on.
func buildPrompt(subject, task, text string, kind channel.EventKind) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Subject: %s] ", subject)
	if task != "" {
		fmt.Fprintf(&b, "[Task: %s] ", task)
	}
	switch kind {
	case channel.KindPhoto:
		b.WriteString("Extracted question:\n")
	case channel.KindVoice:
		b.WriteString("Transcribed question:\n")
	}
	b.WriteString(text)
	return b.String()
}
