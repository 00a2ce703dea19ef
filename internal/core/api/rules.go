package api

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/solatis/alertkeeper/internal/rules"
	"github.com/solatis/alertkeeper/internal/types"
)

type ruleResponse struct {
	ID         types.RuleID          `json:"id"`
	Priority   int                   `json:"priority"`
	Source     string                `json:"source"`
	Name       string                `json:"name,omitempty"`
	Definition *types.RuleDefinition `json:"definition,omitempty"`
}

// handleListRules returns the rules in evaluation order.
// The ETag changes whenever order or content changes, so pollers can send
// If-None-Match and receive 304 while nothing changed.
func (s *Service) handleListRules(w http.ResponseWriter, r *http.Request) {
	entries := s.deps.Rules.Entries()

	resp := make([]ruleResponse, len(entries))
	for i, e := range entries {
		resp[i] = ruleResponse{ID: e.ID, Priority: e.Priority, Source: e.Source}
		if d, ok := e.Rule.(*rules.DeclarativeRule); ok {
			def := d.Definition()
			resp[i].Name = d.Name()
			resp[i].Definition = &def
		}
	}

	etag := computeETag(resp)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"rules": resp,
		"count": len(resp),
	})
}

// computeETag hashes the rule list in evaluation order.
func computeETag(list []ruleResponse) string {
	h := sha256.New()
	for _, r := range list {
		h.Write([]byte(r.ID))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(r.Priority)))
		h.Write([]byte{0})
		h.Write([]byte(r.Source))
		h.Write([]byte{0})
		if r.Definition != nil {
			// Map keys are sorted by encoding/json, so the encoding is stable.
			b, _ := json.Marshal(r.Definition)
			h.Write(b)
		}
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%q", fmt.Sprintf("%x", h.Sum(nil)))
}

func (s *Service) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := types.RuleID(chi.URLParam(r, "ruleID"))
	if err := s.deps.Rules.Remove(id); err != nil {
		respondError(w, statusFor(err), "failed to remove rule", err)
		return
	}
	s.logger.Info().Str("rule_id", string(id)).Msg("rule removed via API")
	if m := s.deps.Metrics; m != nil {
		m.RulesLoaded.Set(float64(s.deps.Rules.Len()))
	}
	w.WriteHeader(http.StatusNoContent)
}
