package handler

import (
	"net/http"
)

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, userFromContext(r.Context()))
}
