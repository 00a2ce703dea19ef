package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Service) handleListHandlers(w http.ResponseWriter, r *http.Request) {
	ids := s.deps.Dispatcher.Handlers()
	respondJSON(w, http.StatusOK, map[string]any{
		"handlers": ids,
		"count":    len(ids),
	})
}

func (s *Service) handleDeleteHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "handlerID")
	if err := s.deps.Dispatcher.Unregister(id); err != nil {
		respondError(w, statusFor(err), "failed to unregister handler", err)
		return
	}
	s.logger.Info().Str("handler_id", id).Msg("handler unregistered via API")
	w.WriteHeader(http.StatusNoContent)
}
