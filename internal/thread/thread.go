// Package thread groups chronologically sorted messages into conversation
// threads using a greedy single-pass heuristic over time gaps, reply
// chains and participant continuity.
package thread

import (
	"strconv"
	"time"

	"github.com/quaystone/threadline/internal/telegram"
)

// Thread is a maximal run of contiguous messages grouped into one
// conversational unit. Threads are sealed once by the detector and never
// mutated afterwards.
type Thread struct {
	ID           string
	Messages     []telegram.Message
	StartTime    time.Time
	EndTime      time.Time
	Participants []string
	MessageCount int
}

// Duration returns the elapsed time between the first and last message.
func (t Thread) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}

// seal builds an immutable Thread from accumulated messages. The id is
// derived from the start time at second precision plus the first message
// id, which is stable for a fixed input ordering.
func seal(msgs []telegram.Message) Thread {
	owned := make([]telegram.Message, len(msgs))
	copy(owned, msgs)

	var participants []string
	seen := make(map[string]bool)
	for _, m := range owned {
		if !seen[m.Sender] {
			seen[m.Sender] = true
			participants = append(participants, m.Sender)
		}
	}

	start := owned[0].Timestamp
	return Thread{
		ID:           "thread_" + start.Format("20060102_150405") + "_" + strconv.FormatInt(owned[0].ID, 10),
		Messages:     owned,
		StartTime:    start,
		EndTime:      owned[len(owned)-1].Timestamp,
		Participants: participants,
		MessageCount: len(owned),
	}
}
