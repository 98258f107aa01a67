// Package telegram models messages from a Telegram chat export and loads
// them into typed, chronologically sorted form.
package telegram

import (
	"encoding/json"
	"strconv"
	"time"
)

// MessageType distinguishes regular messages from service records.
type MessageType string

const (
	TypeMessage MessageType = "message"
	TypeService MessageType = "service"
)

// RawMessage mirrors one record of the export's "messages" array. It is
// kept verbatim on the typed Message so documents can carry full-fidelity
// source data for reprocessing.
type RawMessage struct {
	ID               int64           `json:"id"`
	Type             string          `json:"type"`
	Date             string          `json:"date,omitempty"`
	DateUnixtime     string          `json:"date_unixtime"`
	From             string          `json:"from,omitempty"`
	FromID           string          `json:"from_id,omitempty"`
	Text             json.RawMessage `json:"text,omitempty"`
	Actor            string          `json:"actor,omitempty"`
	ActorID          string          `json:"actor_id,omitempty"`
	Action           string          `json:"action,omitempty"`
	ReplyToMessageID int64           `json:"reply_to_message_id,omitempty"`
	Photo            string          `json:"photo,omitempty"`
	File             string          `json:"file,omitempty"`
	MediaType        string          `json:"media_type,omitempty"`
}

// Message is the normalized, immutable form used by the rest of the
// pipeline. Text is never absent: service records get a synthesized
// description, plain messages default to the empty string.
type Message struct {
	ID        int64
	Type      MessageType
	Sender    string
	SenderID  string
	Text      string
	ReplyTo   int64 // 0 means not a reply
	Timestamp time.Time
	HasMedia  bool
	Raw       RawMessage
}

// serviceDescriptions maps known service actions to readable text.
// Unknown actions fall back to "<actor> performed <action>".
var serviceDescriptions = map[string]string{
	"create_channel":   "created the channel",
	"join_channel":     "joined the channel",
	"leave_channel":    "left the channel",
	"edit_group_photo": "changed the group photo",
	"pin_message":      "pinned a message",
	"invite_members":   "invited new members",
}

// FromRaw validates and converts a raw export record. Records with a
// missing id, an unknown type or an unparseable unix time are rejected.
func FromRaw(raw RawMessage) (Message, error) {
	if raw.ID == 0 {
		return Message{}, errMissingID
	}

	var typ MessageType
	switch raw.Type {
	case string(TypeMessage):
		typ = TypeMessage
	case string(TypeService):
		typ = TypeService
	default:
		return Message{}, &UnknownTypeError{Type: raw.Type}
	}

	secs, err := strconv.ParseInt(raw.DateUnixtime, 10, 64)
	if err != nil {
		return Message{}, &BadTimestampError{Value: raw.DateUnixtime}
	}

	m := Message{
		ID:        raw.ID,
		Type:      typ,
		ReplyTo:   raw.ReplyToMessageID,
		Timestamp: time.Unix(secs, 0).UTC(),
		HasMedia:  raw.Photo != "" || raw.File != "" || raw.MediaType != "",
		Raw:       raw,
	}

	if typ == TypeMessage {
		m.Sender = raw.From
		if m.Sender == "" {
			m.Sender = "Unknown"
		}
		m.SenderID = raw.FromID
		if m.SenderID == "" {
			m.SenderID = "unknown"
		}
		m.Text = flattenText(raw.Text)
	} else {
		m.Sender = raw.Actor
		if m.Sender == "" {
			m.Sender = "System"
		}
		m.SenderID = raw.ActorID
		if m.SenderID == "" {
			m.SenderID = "system"
		}
		m.Text = serviceText(m.Sender, raw.Action)
	}

	return m, nil
}

func serviceText(actor, action string) string {
	if desc, ok := serviceDescriptions[action]; ok {
		return actor + " " + desc
	}
	if action == "" {
		return actor + " performed a service action"
	}
	return actor + " performed " + action
}

// flattenText handles the two shapes the export uses for text: a plain
// string, or an array mixing strings and {"type":..., "text":...} entities.
func flattenText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	var out string
	for _, part := range parts {
		var ps string
		if err := json.Unmarshal(part, &ps); err == nil {
			out += ps
			continue
		}
		var entity struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(part, &entity); err == nil {
			out += entity.Text
		}
	}
	return out
}
