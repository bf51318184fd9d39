package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lkpmandiri/backoffice/model"
)

// lookupResponse wraps the resolved options.
type lookupResponse struct {
	Options []model.OptionDescriptor `json:"options"`
}

func handleLookup(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lookupID := chi.URLParam(r, "lookup")
		query := r.URL.Query().Get("q")

		options, err := deps.Lookups.GetOptions(r.Context(), lookupID, query)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, lookupResponse{Options: options})
	}
}
