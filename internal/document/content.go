package document

import (
	"fmt"
	"strings"

	"github.com/quaystone/threadline/internal/thread"
)

const (
	timestampLayout = "2006-01-02 15:04:05"

	// contextDelimiter separates the injected header from the transcript.
	contextDelimiter = "--- CONVERSATION ---"
)

// Conversation type hints, chosen by simple threshold rules in typeHint.
const (
	hintQA        = "question and answer"
	hintRapid     = "rapid exchange"
	hintExtended  = "extended discussion"
	hintMonologue = "monologue"
	hintCasual    = "casual chat"
)

// Transcript renders one line per message, newline-joined:
// [YYYY-MM-DD HH:MM:SS] sender: content
func Transcript(t thread.Thread) string {
	lines := make([]string, 0, len(t.Messages))
	for _, m := range t.Messages {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format(timestampLayout), m.Sender, m.Text))
	}
	return strings.Join(lines, "\n")
}

// BuildContent returns the document content: the flat transcript, or a
// context-annotated version with a structured preamble when injectContext
// is set.
func BuildContent(t thread.Thread, injectContext bool) string {
	transcript := Transcript(t)
	if !injectContext {
		return transcript
	}
	return contextHeader(t, Summarize(t)) + "\n\n" + contextDelimiter + "\n" + transcript
}

// contextHeader builds the structured preamble injected before the
// transcript when context annotation is enabled.
func contextHeader(t thread.Thread, s Summary) string {
	avgLen := 0
	if t.MessageCount > 0 {
		avgLen = s.CharCount / t.MessageCount
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Conversation between %s\n", strings.Join(t.Participants, ", "))
	fmt.Fprintf(&b, "Time range: %s — %s (%.0f seconds, %d messages)\n",
		t.StartTime.Format(timestampLayout), t.EndTime.Format(timestampLayout),
		s.DurationSeconds, t.MessageCount)
	fmt.Fprintf(&b, "Pattern: %s | Type: %s\n", s.InteractionPattern, typeHint(t, s))
	fmt.Fprintf(&b, "Features: %s\n", strings.Join(featureTags(s), ", "))
	fmt.Fprintf(&b, "Density: %.1f msg/min | Avg message length: %d chars | Senders: %d",
		s.Density, avgLen, s.ParticipantCount)
	return b.String()
}

// featureTags lists the detected content flags as a conjunction of tags.
func featureTags(s Summary) []string {
	var tags []string
	if s.HasQuestions {
		tags = append(tags, "questions")
	}
	if s.HasLinks {
		tags = append(tags, "links")
	}
	if s.HasMentions {
		tags = append(tags, "mentions")
	}
	if s.HasHashtags {
		tags = append(tags, "hashtags")
	}
	if s.HasMedia {
		tags = append(tags, "media")
	}
	if s.HasExclamations {
		tags = append(tags, "exclamations")
	}
	if len(tags) == 0 {
		tags = append(tags, "plain text")
	}
	return tags
}

// typeHint picks a coarse conversation-type label from density, question
// and reply signals, and thread size.
func typeHint(t thread.Thread, s Summary) string {
	switch {
	case s.HasQuestions && s.ReplyCount > 0:
		return hintQA
	case s.Density > 2 && t.MessageCount >= 5:
		return hintRapid
	case t.MessageCount >= 20:
		return hintExtended
	case s.ParticipantCount <= 1:
		return hintMonologue
	default:
		return hintCasual
	}
}
