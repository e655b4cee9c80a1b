package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jothamO/prism-admin/internal/models"
)

// maxUploadBytes bounds invoice image and statement CSV payloads.
const maxUploadBytes = 10 << 20

// createSessionRequest is the body of POST /v1/sessions.
type createSessionRequest struct {
	EntityType models.EntityType `json:"entityType"`
}

// messageRequest is the body of POST /v1/sessions/{id}/messages.
type messageRequest struct {
	Text string `json:"text"`
}

// selectionRequest is the body of POST /v1/sessions/{id}/selections.
type selectionRequest struct {
	ButtonID string `json:"buttonId"`
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.createSessionHandler: processing request", "method", r.Method, "path", r.URL.Path)

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.EntityType == "" {
		req.EntityType = models.EntityTypeIndividual
	}

	session, err := s.engine.StartSession(r.Context(), req.EntityType)
	if err != nil {
		if errors.Is(err, models.ErrInvalidEntityType) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		slog.Error("Server.createSessionHandler: failed to create session", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create session"))
		return
	}

	slog.Info("Server.createSessionHandler: session created", "sessionID", session.ID, "entityType", session.EntityType)
	writeJSONResponse(w, http.StatusCreated, models.Success(session))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	session, err := s.engine.Session(r.Context(), id)
	if err != nil {
		s.writeSessionError(w, id, err, "load session")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(session))
}

func (s *Server) resetSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.engine.ResetSession(r.Context(), id); err != nil {
		s.writeSessionError(w, id, err, "reset session")
		return
	}
	slog.Info("Server.resetSessionHandler: session reset", "sessionID", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session reset", nil))
}

func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := r.PathValue("id")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.messageHandler: failed to decode JSON", "sessionID", id, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	responses, err := s.engine.HandleMessage(r.Context(), id, req.Text)
	if err != nil {
		if errors.Is(err, models.ErrEmptyMessage) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		s.writeSessionError(w, id, err, "handle message")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(responses))
}

func (s *Server) selectionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := r.PathValue("id")

	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.selectionHandler: failed to decode JSON", "sessionID", id, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	responses, err := s.engine.HandleSelection(r.Context(), id, req.ButtonID)
	if err != nil {
		if errors.Is(err, models.ErrEmptyMessage) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: buttonId"))
			return
		}
		s.writeSessionError(w, id, err, "handle selection")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(responses))
}

func (s *Server) invoiceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := r.PathValue("id")

	image, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		slog.Warn("Server.invoiceHandler: failed to read body", "sessionID", id, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Failed to read upload"))
		return
	}
	if len(image) == 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Empty upload"))
		return
	}

	responses, err := s.engine.HandleInvoiceUpload(r.Context(), id, image)
	if err != nil {
		s.writeSessionError(w, id, err, "handle invoice upload")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(responses))
}

func (s *Server) statementHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := r.PathValue("id")

	responses, err := s.engine.HandleStatement(r.Context(), id, io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		s.writeSessionError(w, id, err, "handle statement upload")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(responses))
}

func (s *Server) transcriptHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	transcript, err := s.engine.Transcript(r.Context(), id)
	if err != nil {
		s.writeSessionError(w, id, err, "load transcript")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(transcript))
}

// writeSessionError maps engine errors onto HTTP statuses: unknown sessions
// are 404, bad identifiers 400, everything else 500.
func (s *Server) writeSessionError(w http.ResponseWriter, sessionID string, err error, action string) {
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
	case errors.Is(err, models.ErrEmptySessionID):
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	default:
		slog.Error("Server: request failed", "action", action, "sessionID", sessionID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to "+action))
	}
}
