package thread

import (
	"sort"

	"github.com/quaystone/threadline/internal/telegram"
)

const (
	minSuggestedWindowMinutes = 2.0
	maxSuggestedWindowMinutes = 30.0
)

// GapAnalysis describes the inter-message gap distribution of an export
// and a suggested time window derived from it. Advisory output only, it
// is never applied automatically.
type GapAnalysis struct {
	MedianGapSeconds       float64
	P75GapSeconds          float64
	SuggestedWindowMinutes float64
	ReplyPercentage        float64
	Participants           int
}

// AnalyzeGaps computes gap statistics over chronologically sorted
// messages. The suggested window is the 75th percentile gap in minutes,
// clamped to [2, 30].
func AnalyzeGaps(messages []telegram.Message) GapAnalysis {
	if len(messages) < 2 {
		return GapAnalysis{Participants: countSenders(messages)}
	}

	gaps := make([]float64, 0, len(messages)-1)
	for i := 1; i < len(messages); i++ {
		gaps = append(gaps, messages[i].Timestamp.Sub(messages[i-1].Timestamp).Seconds())
	}
	sort.Float64s(gaps)

	median := gaps[len(gaps)/2]
	p75 := gaps[int(float64(len(gaps))*0.75)]

	suggested := p75 / 60
	if suggested < minSuggestedWindowMinutes {
		suggested = minSuggestedWindowMinutes
	}
	if suggested > maxSuggestedWindowMinutes {
		suggested = maxSuggestedWindowMinutes
	}

	replies := 0
	for _, m := range messages {
		if m.ReplyTo != 0 {
			replies++
		}
	}

	return GapAnalysis{
		MedianGapSeconds:       median,
		P75GapSeconds:          p75,
		SuggestedWindowMinutes: suggested,
		ReplyPercentage:        float64(replies) / float64(len(messages)) * 100,
		Participants:           countSenders(messages),
	}
}

func countSenders(messages []telegram.Message) int {
	seen := make(map[string]bool)
	for _, m := range messages {
		seen[m.Sender] = true
	}
	return len(seen)
}
