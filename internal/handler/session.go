package handler

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"intratel/internal/domain"
	"intratel/internal/service"
)

// maxImportSize bounds uploaded topology documents
const maxImportSize = 1 << 20

// SessionHandler handles session, topology and console requests
type SessionHandler struct {
	svc *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Register adds the session routes to mux
func (h *SessionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.CreateSession)
	mux.HandleFunc("GET /api/sessions", h.ListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", h.GetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.DeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/reset", h.ResetSession)

	mux.HandleFunc("GET /api/sessions/{id}/topology", h.GetTopology)
	mux.HandleFunc("POST /api/sessions/{id}/links", h.CreateLink)
	mux.HandleFunc("DELETE /api/sessions/{id}/links/{link}", h.DeleteLink)
	mux.HandleFunc("PUT /api/sessions/{id}/nodes/{node}", h.MoveNode)
	mux.HandleFunc("PUT /api/sessions/{id}/nodes/{node}/ports/{port}", h.MovePort)

	mux.HandleFunc("POST /api/sessions/{id}/console/{device}", h.Exec)

	mux.HandleFunc("GET /api/sessions/{id}/export", h.Export)
	mux.HandleFunc("POST /api/sessions/{id}/import", h.Import)
}

// CreateSession starts a new session on the seed topology
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.svc.Create()
	writeJSON(w, sess.Info(), http.StatusCreated)
}

// ListSessions returns all sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.List(), http.StatusOK)
}

// GetSession returns a single session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "Failed to get session", err)
		return
	}
	writeJSON(w, sess.Info(), http.StatusOK)
}

// DeleteSession stops and removes a session
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.PathValue("id")); err != nil {
		writeServiceError(w, "Failed to delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetSession returns a session to the seed topology
func (h *SessionHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Reset(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "Failed to reset session", err)
		return
	}
	writeJSON(w, sess.Info(), http.StatusOK)
}

// GetTopology returns the session's nodes and links
func (h *SessionHandler) GetTopology(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Topology(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "Failed to get topology", err)
		return
	}
	writeJSON(w, snap, http.StatusOK)
}

// LinkRequest is the body of a cable request
type LinkRequest struct {
	A domain.Endpoint `json:"a"`
	B domain.Endpoint `json:"b"`
}

// CreateLink cables two ports
func (h *SessionHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if req.A.NodeID == "" || req.B.NodeID == "" {
		writeError(w, "Both endpoints require a node_id", "", http.StatusBadRequest)
		return
	}

	link, err := h.svc.AddLink(r.PathValue("id"), req.A.NodeID, req.A.Port, req.B.NodeID, req.B.Port)
	if err != nil {
		writeServiceError(w, "Failed to create link", err)
		return
	}
	writeJSON(w, link, http.StatusCreated)
}

// DeleteLink removes a cable
func (h *SessionHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveLink(r.PathValue("id"), r.PathValue("link")); err != nil {
		writeServiceError(w, "Failed to delete link", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveNode updates a node's position
func (h *SessionHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	var pos domain.Position
	if err := decodeJSON(r, &pos); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.svc.MoveNode(r.PathValue("id"), r.PathValue("node"), pos); err != nil {
		writeServiceError(w, "Failed to move node", err)
		return
	}
	writeJSON(w, pos, http.StatusOK)
}

// MovePort updates a port's offset from its node
func (h *SessionHandler) MovePort(w http.ResponseWriter, r *http.Request) {
	port, err := strconv.Atoi(r.PathValue("port"))
	if err != nil {
		writeError(w, "Invalid port index", err.Error(), http.StatusBadRequest)
		return
	}

	var offset domain.Position
	if err := decodeJSON(r, &offset); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.svc.MovePort(r.PathValue("id"), r.PathValue("node"), port, offset); err != nil {
		writeServiceError(w, "Failed to move port", err)
		return
	}
	writeJSON(w, offset, http.StatusOK)
}

// ExecRequest is the body of a console request
type ExecRequest struct {
	Line string `json:"line"`
}

// Exec runs one console line. Ping output that follows arrives on the
// session's event stream.
func (h *SessionHandler) Exec(w http.ResponseWriter, r *http.Request) {
	device, err := service.ParseDevice(r.PathValue("device"))
	if err != nil {
		writeServiceError(w, "Unknown device", err)
		return
	}

	var req ExecRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.svc.Exec(r.PathValue("id"), device, req.Line)
	if err != nil {
		writeServiceError(w, "Failed to execute command", err)
		return
	}
	writeJSON(w, result, http.StatusOK)
}

// Export writes the session's topology in the requested format
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "yaml"
	}

	// Buffer so failures still get a JSON error body
	var buf bytes.Buffer
	if err := h.svc.ExportTopology(r.PathValue("id"), format, &buf); err != nil {
		writeServiceError(w, "Failed to export topology", err)
		return
	}

	contentType, ext := "application/x-yaml", "yml"
	if format == "json" {
		contentType, ext = "application/json", "json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=lab."+ext)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Failed to write export: %v", err)
	}
}

// Import replaces the session's cabling and layout with the request body
func (h *SessionHandler) Import(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	body := http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := h.svc.ImportTopology(id, r.URL.Query().Get("format"), body); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, "Failed to import topology", err.Error(), status)
		return
	}

	snap, err := h.svc.Topology(id)
	if err != nil {
		writeServiceError(w, "Failed to get topology", err)
		return
	}
	writeJSON(w, snap, http.StatusOK)
}
