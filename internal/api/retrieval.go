package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RetrievalSetting carries the retrieval knobs a caller may tune.
type RetrievalSetting struct {
	TopK           int     `json:"top_k"`
	ScoreThreshold float64 `json:"score_threshold"`
}

// RetrievalRequest is the external retrieval contract.
type RetrievalRequest struct {
	KnowledgeID      string           `json:"knowledge_id"`
	Query            string           `json:"query"`
	RetrievalSetting RetrievalSetting `json:"retrieval_setting"`
}

// ContentChunk is one retrieved thread, prefixed with a short context
// line so downstream consumers see who talked and how much.
type ContentChunk struct {
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type RetrievalResponse struct {
	Records []ContentChunk `json:"records"`
}

func (s *Server) retrieval(w http.ResponseWriter, r *http.Request) {
	var req RetrievalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, 1003, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.KnowledgeID != s.deps.KnowledgeID {
		writeError(w, http.StatusNotFound, 2001, "The knowledge base does not exist")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, 1003, "Query cannot be empty")
		return
	}

	topK := req.RetrievalSetting.TopK
	if topK <= 0 {
		topK = 3
	}

	// Over-fetch so the score threshold can drop weak hits without
	// starving the response.
	results, err := s.deps.Retriever.HybridSearch(r.Context(), req.Query, topK*2, s.deps.SearchAlpha)
	if err != nil {
		s.logger.Error("retrieval failed", "error", err)
		writeError(w, http.StatusInternalServerError, 5000, "search failed")
		return
	}

	chunks := make([]ContentChunk, 0, topK)
	for _, res := range results {
		if res.Score < req.RetrievalSetting.ScoreThreshold {
			continue
		}
		participants := res.Participants
		if len(participants) > 3 {
			participants = participants[:3]
		}
		contextLine := fmt.Sprintf("[Thread with %s - %d messages]\n",
			strings.Join(participants, ", "), res.MessageCount)

		chunks = append(chunks, ContentChunk{
			Content: contextLine + res.Content,
			Score:   res.Score,
			Metadata: map[string]any{
				"thread_id":     res.ThreadID,
				"participants":  res.Participants,
				"message_count": res.MessageCount,
				"timestamp":     res.Timestamp.Format(time.RFC3339),
			},
		})
		if len(chunks) == topK {
			break
		}
	}

	s.logger.Info("retrieval served", "results", len(chunks), "top_k", topK)
	writeJSON(w, http.StatusOK, RetrievalResponse{Records: chunks})
}

// AskRequest is the generation contract: retrieval plus an LLM answer.
type AskRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, 1003, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, 1003, "Query cannot be empty")
		return
	}

	ans, err := s.deps.Asker.Ask(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.logger.Error("ask failed", "error", err)
		writeError(w, http.StatusInternalServerError, 5000, "generation failed")
		return
	}
	writeJSON(w, http.StatusOK, ans)
}
