package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/solatis/alertkeeper/internal/engine"
	"github.com/solatis/alertkeeper/internal/types"
)

// MaxBatchSize bounds the records accepted by one batch request.
const MaxBatchSize = 100

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type deliveryResponse struct {
	HandlerID string `json:"handler_id"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

type outcomeResponse struct {
	RecordID   types.RecordID     `json:"record_id"`
	Outcome    engine.Kind        `json:"outcome"`
	Action     *types.Action      `json:"action,omitempty"`
	Deliveries []deliveryResponse `json:"deliveries"`
	Messages   []string           `json:"messages"`
}

type batchResponse struct {
	Dispatched int               `json:"dispatched"`
	Results    []outcomeResponse `json:"results"`
}

// handleProcessAlert classifies one record and dispatches its action.
func (s *Service) handleProcessAlert(w http.ResponseWriter, r *http.Request) {
	var rec types.Record
	if err := decodeBody(w, r, &rec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid record", err)
		return
	}
	respondJSON(w, http.StatusOK, s.process(r.Context(), rec))
}

// handleProcessBatch processes records in order; each gets its own outcome.
func (s *Service) handleProcessBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Records []types.Record `json:"records"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid batch", err)
		return
	}
	if len(req.Records) == 0 {
		respondError(w, http.StatusBadRequest, "records are required", nil)
		return
	}
	if len(req.Records) > MaxBatchSize {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("batch size exceeds maximum of %d records", MaxBatchSize), nil)
		return
	}

	resp := batchResponse{Results: make([]outcomeResponse, len(req.Records))}
	for i, rec := range req.Records {
		resp.Results[i] = s.process(r.Context(), rec)
		if resp.Results[i].Outcome == engine.Dispatched {
			resp.Dispatched++
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Service) process(ctx context.Context, rec types.Record) outcomeResponse {
	if rec.ID == "" {
		rec.ID = types.NewRecordID()
	}
	out := s.deps.Engine.ProcessAlert(ctx, rec)

	resp := outcomeResponse{
		RecordID:   rec.ID,
		Outcome:    out.Kind,
		Deliveries: make([]deliveryResponse, 0, len(out.Report.Results)),
		Messages:   s.deps.Catalog.Lines(out),
	}
	if out.Kind == engine.Dispatched {
		action := out.Action
		resp.Action = &action
	}
	for _, res := range out.Report.Results {
		d := deliveryResponse{HandlerID: res.HandlerID, OK: res.OK()}
		if res.Err != nil {
			d.Error = res.Err.Error()
		}
		resp.Deliveries = append(resp.Deliveries, d)
	}
	return resp
}

// handleListAlerts returns stored history, newest first.
func (s *Service) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		respondError(w, http.StatusNotFound, "alert history is not configured", nil)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer", err)
			return
		}
		limit = n
	}
	ruleID := types.RuleID(r.URL.Query().Get("rule_id"))

	entries, err := s.deps.History.Recent(r.Context(), ruleID, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list alert history")
		respondError(w, http.StatusServiceUnavailable, "failed to list alerts", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"alerts": entries,
		"count":  len(entries),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON body")
	}
	return nil
}
