package handler

import (
	"net/http"
	"strings"

	"intratel/internal/service"
)

// LabHandler handles saved lab requests
type LabHandler struct {
	svc *service.SessionService
}

// NewLabHandler creates a new lab handler
func NewLabHandler(svc *service.SessionService) *LabHandler {
	return &LabHandler{svc: svc}
}

// Register adds the lab routes to mux
func (h *LabHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/labs", h.ListLabs)
	mux.HandleFunc("POST /api/labs", h.SaveLab)
	mux.HandleFunc("POST /api/labs/{name}/load", h.LoadLab)
	mux.HandleFunc("DELETE /api/labs/{name}", h.DeleteLab)
}

// SaveLabRequest names the session to save and the lab to save it as
type SaveLabRequest struct {
	Session     string `json:"session"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// LoadLabRequest names the session a lab is loaded into
type LoadLabRequest struct {
	Session string `json:"session"`
}

// ListLabs returns all saved labs
func (h *LabHandler) ListLabs(w http.ResponseWriter, r *http.Request) {
	labs, err := h.svc.ListLabs(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list labs", err)
		return
	}
	writeJSON(w, labs, http.StatusOK)
}

// SaveLab stores a session's topology as a named lab
func (h *LabHandler) SaveLab(w http.ResponseWriter, r *http.Request) {
	var req SaveLabRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Session == "" || req.Name == "" {
		writeError(w, "Session and name are required", "", http.StatusBadRequest)
		return
	}

	lab, err := h.svc.SaveLab(r.Context(), req.Session, req.Name, req.Description)
	if err != nil {
		writeServiceError(w, "Failed to save lab", err)
		return
	}
	writeJSON(w, lab, http.StatusCreated)
}

// LoadLab replaces a session's topology with a saved lab
func (h *LabHandler) LoadLab(w http.ResponseWriter, r *http.Request) {
	var req LoadLabRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Session == "" {
		writeError(w, "Session is required", "", http.StatusBadRequest)
		return
	}

	if err := h.svc.LoadLab(r.Context(), req.Session, r.PathValue("name")); err != nil {
		writeServiceError(w, "Failed to load lab", err)
		return
	}

	snap, err := h.svc.Topology(req.Session)
	if err != nil {
		writeServiceError(w, "Failed to get topology", err)
		return
	}
	writeJSON(w, snap, http.StatusOK)
}

// DeleteLab removes a saved lab
func (h *LabHandler) DeleteLab(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteLab(r.Context(), r.PathValue("name")); err != nil {
		writeServiceError(w, "Failed to delete lab", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
