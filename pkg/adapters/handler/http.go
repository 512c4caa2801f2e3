package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

type HTTPHandler struct {
	service ports.LinkService
}

func NewHTTPHandler(service ports.LinkService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// LinkRequest is the create and update payload.
type LinkRequest struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// List Links
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.ListLinks(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// Create Link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	link, err := h.service.CreateLink(r.Context(), req.Title, req.URL, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// Update Link
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req LinkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	link, err := h.service.UpdateLink(r.Context(), id, req.Title, req.URL, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// Delete Link
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteLink(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Click records a visitor following a link. Unknown ids are acknowledged
// with recorded=false.
func (h *HTTPHandler) Click(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	recorded, err := h.service.RecordClick(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "recorded": recorded})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "Invalid ID")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "Invalid request body")
		return false
	}
	return true
}
