package document

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/quaystone/threadline/internal/telegram"
	"github.com/quaystone/threadline/internal/thread"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func buildThread(msgs ...telegram.Message) thread.Thread {
	var participants []string
	seen := make(map[string]bool)
	for _, m := range msgs {
		if !seen[m.Sender] {
			seen[m.Sender] = true
			participants = append(participants, m.Sender)
		}
	}
	t := thread.Thread{
		ID:           "thread_20250310_120000_1",
		Messages:     msgs,
		Participants: participants,
		MessageCount: len(msgs),
	}
	if len(msgs) > 0 {
		t.StartTime = msgs[0].Timestamp
		t.EndTime = msgs[len(msgs)-1].Timestamp
	}
	return t
}

func textMsg(id int64, sender, text string, offset time.Duration) telegram.Message {
	return telegram.Message{
		ID:        id,
		Type:      telegram.TypeMessage,
		Sender:    sender,
		Text:      text,
		Timestamp: baseTime.Add(offset),
		Raw:       telegram.RawMessage{ID: id, Type: "message"},
	}
}

func TestSummarizeFlags(t *testing.T) {
	th := buildThread(
		textMsg(1, "alice", "anyone seen the logs?", 0),
		textMsg(2, "bob", "yes, see https://ci.example.dev #incident", time.Minute),
		textMsg(3, "carol", "thanks @bob!", 2*time.Minute),
	)
	s := Summarize(th)

	if !s.HasQuestions || !s.HasLinks || !s.HasMentions || !s.HasHashtags || !s.HasExclamations {
		t.Errorf("content flags incomplete: %+v", s)
	}
	if s.HasMedia {
		t.Error("HasMedia should be false without attachments")
	}
	if s.InteractionPattern != PatternGroup {
		t.Errorf("pattern = %q, want group", s.InteractionPattern)
	}
	if s.ParticipantCount != 3 {
		t.Errorf("participant count = %d, want 3", s.ParticipantCount)
	}
	if s.Sentiment != "neutral" {
		t.Errorf("sentiment = %q, want neutral", s.Sentiment)
	}
}

func TestSummarizeMediaAndReplies(t *testing.T) {
	m1 := textMsg(1, "alice", "look", 0)
	m1.HasMedia = true
	m2 := textMsg(2, "bob", "nice", time.Minute)
	m2.ReplyTo = 1

	s := Summarize(buildThread(m1, m2))
	if !s.HasMedia {
		t.Error("HasMedia should propagate from messages")
	}
	if s.ReplyCount != 1 {
		t.Errorf("reply count = %d, want 1", s.ReplyCount)
	}
	if s.InteractionPattern != PatternDialogue {
		t.Errorf("pattern = %q, want dialogue", s.InteractionPattern)
	}
}

func TestSummarizeDensity(t *testing.T) {
	// 4 messages over 2 minutes.
	th := buildThread(
		textMsg(1, "alice", "a", 0),
		textMsg(2, "alice", "b", 40*time.Second),
		textMsg(3, "alice", "c", 80*time.Second),
		textMsg(4, "alice", "d", 2*time.Minute),
	)
	if s := Summarize(th); s.Density != 2 {
		t.Errorf("density = %f, want 2", s.Density)
	}

	// Zero duration falls back to the raw count.
	burst := buildThread(
		textMsg(1, "alice", "a", 0),
		textMsg(2, "alice", "b", 0),
		textMsg(3, "alice", "c", 0),
	)
	if s := Summarize(burst); s.Density != 3 {
		t.Errorf("zero-duration density = %f, want 3", s.Density)
	}
}

func TestSummarizeCountsFromTranscript(t *testing.T) {
	th := buildThread(textMsg(1, "alice", "one two three", 0))
	s := Summarize(th)

	transcript := Transcript(th)
	if want := len(strings.Fields(transcript)); s.WordCount != want {
		t.Errorf("word count = %d, want %d", s.WordCount, want)
	}
	if want := len([]rune(transcript)); s.CharCount != want {
		t.Errorf("char count = %d, want %d", s.CharCount, want)
	}
}

func TestSummaryHasServiceMessages(t *testing.T) {
	svc := telegram.Message{
		ID: 2, Type: telegram.TypeService, Sender: "bob",
		Text: "bob pinned a message", Timestamp: baseTime.Add(time.Minute),
	}
	s := Summarize(buildThread(textMsg(1, "alice", "hi", 0), svc))
	if !s.HasServiceMessages() {
		t.Error("expected service messages to be reported")
	}
	if len(s.MessageTypes) != 2 {
		t.Errorf("message types = %v, want both kinds", s.MessageTypes)
	}

	plain := Summarize(buildThread(textMsg(1, "alice", "hi", 0)))
	if plain.HasServiceMessages() {
		t.Error("plain thread should not report service messages")
	}
}

func TestTranscriptFormat(t *testing.T) {
	th := buildThread(
		textMsg(1, "alice", "hello", 0),
		textMsg(2, "bob", "hey", 30*time.Second),
	)
	want := "[2025-03-10 12:00:00] alice: hello\n[2025-03-10 12:00:30] bob: hey"
	if got := Transcript(th); got != want {
		t.Errorf("transcript = %q, want %q", got, want)
	}
}

func TestBuildContentPlain(t *testing.T) {
	th := buildThread(textMsg(1, "alice", "hello", 0))
	got := BuildContent(th, false)
	if got != Transcript(th) {
		t.Errorf("plain content should equal transcript, got %q", got)
	}
	if strings.Contains(got, contextDelimiter) {
		t.Error("plain content must not carry the context delimiter")
	}
}

func TestBuildContentWithContext(t *testing.T) {
	th := buildThread(
		textMsg(1, "alice", "deploy done?", 0),
		func() telegram.Message {
			m := textMsg(2, "bob", "yes", time.Minute)
			m.ReplyTo = 1
			return m
		}(),
	)
	got := BuildContent(th, true)

	if !strings.Contains(got, contextDelimiter) {
		t.Fatal("context content must carry the delimiter")
	}
	if !strings.Contains(got, "Conversation between alice, bob") {
		t.Errorf("missing participants line in %q", got)
	}
	if !strings.Contains(got, hintQA) {
		t.Errorf("question+reply thread should hint %q, got %q", hintQA, got)
	}
	if !strings.HasSuffix(got, Transcript(th)) {
		t.Error("content must end with the transcript")
	}
}

func TestTypeHint(t *testing.T) {
	monologue := buildThread(textMsg(1, "alice", "note to self", 0))
	if got := typeHint(monologue, Summarize(monologue)); got != hintMonologue {
		t.Errorf("hint = %q, want %q", got, hintMonologue)
	}

	var rapid []telegram.Message
	for i := 0; i < 6; i++ {
		rapid = append(rapid, textMsg(int64(i+1), "alice", "go", time.Duration(i)*10*time.Second))
	}
	rapid = append(rapid, textMsg(7, "bob", "ok", time.Minute))
	th := buildThread(rapid...)
	if got := typeHint(th, Summarize(th)); got != hintRapid {
		t.Errorf("hint = %q, want %q", got, hintRapid)
	}
}

func TestFeatureTagsFallback(t *testing.T) {
	tags := featureTags(Summary{})
	if len(tags) != 1 || tags[0] != "plain text" {
		t.Errorf("tags = %v, want [plain text]", tags)
	}
}

func TestFromThreadEmpty(t *testing.T) {
	_, err := FromThread(thread.Thread{}, false)
	if !errors.Is(err, ErrEmptyThread) {
		t.Fatalf("expected ErrEmptyThread, got %v", err)
	}
}

func TestFromThread(t *testing.T) {
	th := buildThread(
		textMsg(1, "alice", "hello there", 0),
		textMsg(2, "bob", "hi", time.Minute),
	)
	doc, err := FromThread(th, false)
	if err != nil {
		t.Fatalf("FromThread: %v", err)
	}
	if doc.ThreadID != th.ID {
		t.Errorf("thread id = %q, want %q", doc.ThreadID, th.ID)
	}
	if doc.MessageCount != 2 {
		t.Errorf("message count = %d, want 2", doc.MessageCount)
	}
	if !doc.Timestamp.Equal(th.StartTime) {
		t.Errorf("timestamp = %v, want thread start %v", doc.Timestamp, th.StartTime)
	}
	if len(doc.RawMessages) != 2 {
		t.Errorf("raw messages = %d, want 2", len(doc.RawMessages))
	}
}

func TestFromThreadWordCountIgnoresContext(t *testing.T) {
	th := buildThread(
		textMsg(1, "alice", "the quick brown fox", 0),
		textMsg(2, "bob", "jumps over", time.Minute),
	)
	plain, err := FromThread(th, false)
	if err != nil {
		t.Fatalf("FromThread: %v", err)
	}
	annotated, err := FromThread(th, true)
	if err != nil {
		t.Fatalf("FromThread: %v", err)
	}
	if plain.Summary.WordCount != annotated.Summary.WordCount {
		t.Errorf("word count differs with context injection: %d vs %d",
			plain.Summary.WordCount, annotated.Summary.WordCount)
	}
	if plain.Content == annotated.Content {
		t.Error("content should differ when context is injected")
	}
}
