package telegram

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
)

// Export is the top-level shape of a chat export document.
type Export struct {
	Name     string       `json:"name,omitempty"`
	Type     string       `json:"type,omitempty"`
	ID       int64        `json:"id,omitempty"`
	Messages []RawMessage `json:"messages"`
}

// LoadResult holds the parsed messages plus the count of records that
// failed structural validation and were skipped.
type LoadResult struct {
	Messages []Message
	Skipped  int
}

// ParseExport decodes an export document, converts every record and
// stable-sorts the survivors by timestamp ascending. Records that fail
// validation are skipped and counted, never fatal; ties keep export order.
func ParseExport(r io.Reader, logger *slog.Logger) (LoadResult, error) {
	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return LoadResult{}, fmt.Errorf("decode export: %w", err)
	}

	result := LoadResult{Messages: make([]Message, 0, len(export.Messages))}
	for _, raw := range export.Messages {
		msg, err := FromRaw(raw)
		if err != nil {
			result.Skipped++
			continue
		}
		result.Messages = append(result.Messages, msg)
	}

	sort.SliceStable(result.Messages, func(i, j int) bool {
		return result.Messages[i].Timestamp.Before(result.Messages[j].Timestamp)
	})

	if result.Skipped > 0 {
		logger.Warn("skipped unparseable messages", "skipped", result.Skipped, "loaded", len(result.Messages))
	}
	logger.Info("messages loaded", "count", len(result.Messages))

	return result, nil
}

// LoadFile reads and parses an export file from disk.
func LoadFile(path string, logger *slog.Logger) (LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	res, err := ParseExport(f, logger)
	if err != nil {
		return LoadResult{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return res, nil
}

// MergeExports merges incoming raw records into an existing export,
// keeping the existing record when ids collide and restoring chronological
// order by unix time, then id. Used by the upload endpoint's merge mode.
func MergeExports(existing, incoming Export) Export {
	seen := make(map[int64]bool, len(existing.Messages))
	merged := existing
	merged.Messages = append([]RawMessage(nil), existing.Messages...)
	for _, raw := range existing.Messages {
		seen[raw.ID] = true
	}
	for _, raw := range incoming.Messages {
		if seen[raw.ID] {
			continue
		}
		seen[raw.ID] = true
		merged.Messages = append(merged.Messages, raw)
	}

	sort.SliceStable(merged.Messages, func(i, j int) bool {
		a, b := unixOrZero(merged.Messages[i].DateUnixtime), unixOrZero(merged.Messages[j].DateUnixtime)
		if a != b {
			return a < b
		}
		return merged.Messages[i].ID < merged.Messages[j].ID
	})

	return merged
}

func unixOrZero(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
