// Package document derives per-thread metadata summaries and assembles
// the persisted, search-indexed representation of a thread.
package document

import (
	"strings"

	"github.com/quaystone/threadline/internal/telegram"
	"github.com/quaystone/threadline/internal/thread"
)

// Interaction pattern labels, classified purely by participant count.
const (
	PatternSingle   = "single"
	PatternDialogue = "dialogue"
	PatternGroup    = "group"
)

// Summary is a computed bag of statistics over a thread. It is a pure
// function of the thread, recomputed on demand and never cached as
// mutable state. Sentiment, topic and entities are placeholders for
// future semantic analysis and stay at their neutral defaults.
type Summary struct {
	DurationSeconds    float64  `json:"duration_seconds"`
	ParticipantCount   int      `json:"participant_count"`
	WordCount          int      `json:"word_count"`
	CharCount          int      `json:"char_count"`
	ReplyCount         int      `json:"reply_count"`
	Density            float64  `json:"density"` // messages per minute
	InteractionPattern string   `json:"interaction_pattern"`
	HasQuestions       bool     `json:"has_questions"`
	HasLinks           bool     `json:"has_links"`
	HasMentions        bool     `json:"has_mentions"`
	HasHashtags        bool     `json:"has_hashtags"`
	HasMedia           bool     `json:"has_media"`
	HasExclamations    bool     `json:"has_exclamations"`
	MessageTypes       []string `json:"message_types"`
	Sentiment          string   `json:"sentiment"`
	Topic              string   `json:"topic"`
	Entities           []string `json:"entities"`
}

// Summarize computes the metadata summary for a thread. Word and
// character counts are taken from the plain transcript so they stay
// consistent regardless of context injection.
func Summarize(t thread.Thread) Summary {
	s := Summary{
		DurationSeconds:    t.Duration().Seconds(),
		ParticipantCount:   len(t.Participants),
		InteractionPattern: classifyPattern(len(t.Participants)),
		Sentiment:          "neutral",
		Entities:           []string{},
	}

	transcript := Transcript(t)
	s.WordCount = len(strings.Fields(transcript))
	s.CharCount = len([]rune(transcript))

	typeSeen := make(map[string]bool)
	for _, m := range t.Messages {
		if m.ReplyTo != 0 {
			s.ReplyCount++
		}
		if !typeSeen[string(m.Type)] {
			typeSeen[string(m.Type)] = true
			s.MessageTypes = append(s.MessageTypes, string(m.Type))
		}
		if m.HasMedia {
			s.HasMedia = true
		}
		if m.Text == "" {
			continue
		}
		if strings.Contains(m.Text, "?") {
			s.HasQuestions = true
		}
		if strings.Contains(m.Text, "http") {
			s.HasLinks = true
		}
		if strings.Contains(m.Text, "@") {
			s.HasMentions = true
		}
		if strings.Contains(m.Text, "#") {
			s.HasHashtags = true
		}
		if strings.Contains(m.Text, "!") {
			s.HasExclamations = true
		}
	}

	minutes := s.DurationSeconds / 60
	if minutes > 0 {
		s.Density = float64(t.MessageCount) / minutes
	} else {
		// Zero-duration thread: treat the burst as one minute's worth.
		s.Density = float64(t.MessageCount)
	}

	return s
}

func classifyPattern(participants int) string {
	switch {
	case participants <= 1:
		return PatternSingle
	case participants == 2:
		return PatternDialogue
	default:
		return PatternGroup
	}
}

// HasServiceMessages reports whether the summary saw any service records.
func (s Summary) HasServiceMessages() bool {
	for _, t := range s.MessageTypes {
		if t == string(telegram.TypeService) {
			return true
		}
	}
	return false
}
