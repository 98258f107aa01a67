package telegram

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestFromRawPlainMessage(t *testing.T) {
	raw := RawMessage{
		ID:           101,
		Type:         "message",
		DateUnixtime: "1741608000",
		From:         "alice",
		FromID:       "user123",
		Text:         json.RawMessage(`"hello there"`),
	}
	m, err := FromRaw(raw)
	if err != nil {
		t.Fatalf("FromRaw: %v", err)
	}
	if m.Type != TypeMessage {
		t.Errorf("type = %q, want message", m.Type)
	}
	if m.Sender != "alice" || m.SenderID != "user123" {
		t.Errorf("sender = %q/%q, want alice/user123", m.Sender, m.SenderID)
	}
	if m.Text != "hello there" {
		t.Errorf("text = %q", m.Text)
	}
	want := time.Unix(1741608000, 0).UTC()
	if !m.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", m.Timestamp, want)
	}
	if m.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp not in UTC")
	}
}

func TestFromRawValidation(t *testing.T) {
	tests := []struct {
		name string
		raw  RawMessage
	}{
		{"missing id", RawMessage{Type: "message", DateUnixtime: "1741608000"}},
		{"unknown type", RawMessage{ID: 1, Type: "poll", DateUnixtime: "1741608000"}},
		{"bad timestamp", RawMessage{ID: 1, Type: "message", DateUnixtime: "not-a-number"}},
		{"empty timestamp", RawMessage{ID: 1, Type: "message"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromRaw(tt.raw); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestFromRawErrorTypes(t *testing.T) {
	_, err := FromRaw(RawMessage{ID: 1, Type: "poll", DateUnixtime: "1741608000"})
	var ute *UnknownTypeError
	if !errors.As(err, &ute) || ute.Type != "poll" {
		t.Errorf("expected UnknownTypeError{poll}, got %v", err)
	}

	_, err = FromRaw(RawMessage{ID: 1, Type: "message", DateUnixtime: "xyz"})
	var bte *BadTimestampError
	if !errors.As(err, &bte) || bte.Value != "xyz" {
		t.Errorf("expected BadTimestampError{xyz}, got %v", err)
	}
}

func TestFromRawSenderFallbacks(t *testing.T) {
	m, err := FromRaw(RawMessage{ID: 1, Type: "message", DateUnixtime: "1741608000"})
	if err != nil {
		t.Fatalf("FromRaw: %v", err)
	}
	if m.Sender != "Unknown" || m.SenderID != "unknown" {
		t.Errorf("plain fallback = %q/%q, want Unknown/unknown", m.Sender, m.SenderID)
	}

	m, err = FromRaw(RawMessage{ID: 2, Type: "service", DateUnixtime: "1741608000", Action: "pin_message"})
	if err != nil {
		t.Fatalf("FromRaw: %v", err)
	}
	if m.Sender != "System" || m.SenderID != "system" {
		t.Errorf("service fallback = %q/%q, want System/system", m.Sender, m.SenderID)
	}
}

func TestFromRawServiceText(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{"create_channel", "bob created the channel"},
		{"join_channel", "bob joined the channel"},
		{"pin_message", "bob pinned a message"},
		{"invite_members", "bob invited new members"},
		{"set_messages_ttl", "bob performed set_messages_ttl"},
		{"", "bob performed a service action"},
	}
	for _, tt := range tests {
		m, err := FromRaw(RawMessage{
			ID: 1, Type: "service", DateUnixtime: "1741608000",
			Actor: "bob", ActorID: "user9", Action: tt.action,
		})
		if err != nil {
			t.Fatalf("FromRaw(%q): %v", tt.action, err)
		}
		if m.Text != tt.want {
			t.Errorf("action %q: text = %q, want %q", tt.action, m.Text, tt.want)
		}
	}
}

func TestFromRawMediaFlag(t *testing.T) {
	tests := []struct {
		name string
		raw  RawMessage
		want bool
	}{
		{"photo", RawMessage{ID: 1, Type: "message", DateUnixtime: "1", Photo: "photos/p.jpg"}, true},
		{"file", RawMessage{ID: 1, Type: "message", DateUnixtime: "1", File: "files/doc.pdf"}, true},
		{"media type", RawMessage{ID: 1, Type: "message", DateUnixtime: "1", MediaType: "sticker"}, true},
		{"none", RawMessage{ID: 1, Type: "message", DateUnixtime: "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := FromRaw(tt.raw)
			if err != nil {
				t.Fatalf("FromRaw: %v", err)
			}
			if m.HasMedia != tt.want {
				t.Errorf("HasMedia = %v, want %v", m.HasMedia, tt.want)
			}
		})
	}
}

func TestFlattenText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain string", `"hello"`, "hello"},
		{"empty", ``, ""},
		{"string array", `["foo", " bar"]`, "foo bar"},
		{"entities", `[{"type":"link","text":"https://x.dev"}, " rocks"]`, "https://x.dev rocks"},
		{"mixed", `["see ", {"type":"mention","text":"@alice"}, "!"]`, "see @alice!"},
		{"garbage", `42`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flattenText(json.RawMessage(tt.in))
			if got != tt.want {
				t.Errorf("flattenText(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
