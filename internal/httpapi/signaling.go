// Package httpapi exposes the signaling HTTP surface (begin_recording,
// stop_recording) and the Room Hub's WebSocket channel, grounded on the
// JSON-body handler helpers and gorilla/websocket upgrade pattern the
// native call routes use.
package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/classcore/classcore/internal/apperr"
	"github.com/classcore/classcore/internal/session"
)

// Server wires the session Manager and Room Hub to HTTP handlers.
type Server struct {
	sessions *session.Manager
	log      *zap.Logger
}

// NewServer builds a Server over an already-constructed session Manager.
func NewServer(sessions *session.Manager, log *zap.Logger) *Server {
	return &Server{sessions: sessions, log: log}
}

// Register mounts the signaling routes onto mux.
func (s *Server) Register(mux *http.ServeMux) {
	handlePost(mux, "/begin_recording", s.handleBeginRecording)
	handlePost(mux, "/stop_recording", s.handleStopRecording)
}

type beginRecordingRequest struct {
	SDP        string `json:"sdp"`
	Type       string `json:"type"`
	DivisionID string `json:"division_id"`
}

type beginRecordingResponse struct {
	SDP       string `json:"sdp"`
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// principalFromRequest extracts the bearer token as the caller's
// principal identity. Token verification itself belongs to the
// Authorizer collaborator; this only parses the transport envelope.
func principalFromRequest(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) handleBeginRecording(w http.ResponseWriter, r *http.Request, req beginRecordingRequest) {
	principal, ok := principalFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Message: "missing or malformed bearer token"})
		return
	}
	if req.SDP == "" || req.Type != "offer" || req.DivisionID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "missing or invalid sdp, type, or division_id"})
		return
	}

	sessionID, answerSDP, err := s.sessions.Begin(r.Context(), principal, req.DivisionID, req.SDP)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, beginRecordingResponse{
		SDP:       answerSDP,
		Type:      "answer",
		SessionID: sessionID,
	})
}

type stopRecordingRequest struct {
	SessionID string `json:"session_id"`
}

type stopRecordingResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleStopRecording(w http.ResponseWriter, r *http.Request, req stopRecordingRequest) {
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "missing session_id"})
		return
	}

	if err := s.sessions.End(r.Context(), req.SessionID); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stopRecordingResponse{Message: "recording stopped"})
}

func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if kind == apperr.Authorization {
		s.log.Warn("authorization denied", zap.String("kind", kind.String()))
	} else {
		s.log.Error("signaling request failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody{Message: err.Error()})
}
