package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/betbot/transferdesk/internal/session"
)

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

type connectRequest struct {
	Mode session.AccessMode `json:"mode"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	req := connectRequest{Mode: session.AccessInteractive}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
	}
	switch req.Mode {
	case "":
		req.Mode = session.AccessInteractive
	case session.AccessSilent, session.AccessInteractive:
	default:
		writeError(w, http.StatusBadRequest, "mode must be silent or interactive")
		return
	}

	if err := s.session.RequestAccess(r.Context(), req.Mode); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

type draftRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (s *Server) handleDraftUpdate(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := s.session.UpdateDraftField(strings.TrimSpace(req.Field), req.Value); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot().Draft)
}

// handleSubmit blocks until the transfer is recorded and mined.
// With ?async=true it returns 202 once the submission has started.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("async") == "true" {
		s.submitAsync(w)
		return
	}

	ctx := r.Context()
	if s.cfg.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SubmitTimeout)
		defer cancel()
	}
	if err := s.session.SubmitTransfer(ctx); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) submitAsync(w http.ResponseWriter) {
	if s.session.Snapshot().SubmissionStatus.InFlight() {
		writeSessionError(w, &session.Error{Kind: session.KindSubmissionInFlight, Op: "submitTransfer", Err: session.ErrSubmissionInFlight})
		return
	}
	s.goBackground(func(ctx context.Context) {
		if s.cfg.SubmitTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.SubmitTimeout)
			defer cancel()
		}
		if err := s.session.SubmitTransfer(ctx); err != nil {
			serverLog.Warnf("async submit: %v", err)
		}
	})
	writeJSON(w, http.StatusAccepted, s.session.Snapshot())
}

func (s *Server) handleTransfersList(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"transfers":     snap.Transfers,
		"historyStatus": snap.HistoryStatus,
	})
}

func (s *Server) handleTransfersRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RefreshHistory(r.Context()); err != nil {
		writeSessionError(w, err)
		return
	}
	s.handleTransfersList(w, r)
}
