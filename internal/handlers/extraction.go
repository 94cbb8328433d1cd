package handlers

import (
	"net/http"

	"github.com/partsdesk/procurement-app/internal/httpx"
	"github.com/partsdesk/procurement-app/internal/services"
)

// ExtractionHandler triggers a price extraction pass over a quote's threads.
type ExtractionHandler struct {
	Extractor *services.Extractor
}

func NewExtractionHandler(ex *services.Extractor) *ExtractionHandler {
	return &ExtractionHandler{Extractor: ex}
}

// Run handles POST /quotes/extract?id=N and returns the batch summary.
func (h *ExtractionHandler) Run(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	res, err := h.Extractor.Run(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
