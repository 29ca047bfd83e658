package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listPendingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.returns.ListPending(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]requestResponse, len(requests))
	for i := range requests {
		out[i] = toRequestResponse(&requests[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.returns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(request))
}

func (h *Handler) approveRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	request, err := h.returns.Approve(r.Context(), chi.URLParam(r, "id"), req.Note)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(request))
}

func (h *Handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	request, err := h.returns.Reject(r.Context(), chi.URLParam(r, "id"), req.Note)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(request))
}

func (h *Handler) completeRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.returns.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(request))
}
