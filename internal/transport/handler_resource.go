package transport

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lkpmandiri/backoffice/internal/api"
	"github.com/lkpmandiri/backoffice/internal/form"
	"github.com/lkpmandiri/backoffice/model"
)

// resourceFromRequest resolves the {resource} URL parameter against the
// definition registry.
func resourceFromRequest(deps Dependencies, r *http.Request) (*api.Resource, error) {
	id := chi.URLParam(r, "resource")
	def, ok := deps.Registry.GetResource(id)
	if !ok {
		return nil, model.NewNotFoundError(fmt.Sprintf("Resource %q is not defined", id))
	}
	return api.NewResource(deps.Client, def), nil
}

// filtersFromQuery builds the backend filter set from the request query.
// Only filter fields the definition declares (and does not mark client_side)
// are forwarded; everything else is dropped rather than proxied blindly.
func filtersFromQuery(def model.ResourceDefinition, r *http.Request) api.Filters {
	q := r.URL.Query()
	f := api.Filters{
		Search: q.Get("search"),
		Extra:  make(map[string]string),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		f.Page = page
	}
	if perPage, err := strconv.Atoi(q.Get("per_page")); err == nil && perPage > 0 {
		f.PerPage = perPage
	} else {
		f.PerPage = def.PerPage
	}
	for _, fd := range def.Filters {
		if fd.ClientSide {
			continue
		}
		if v := q.Get(fd.Field); v != "" {
			f.Extra[fd.Field] = v
		}
	}
	return f
}

func handleList(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := resourceFromRequest(deps, r)
		if err != nil {
			WriteError(w, err)
			return
		}

		result, err := res.List(r.Context(), filtersFromQuery(res.Definition(), r))
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

// handlePublicList serves the unauthenticated read-only mirror used by the
// marketing pages. Resources not marked public do not exist on this surface.
func handlePublicList(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := resourceFromRequest(deps, r)
		if err != nil {
			WriteError(w, err)
			return
		}

		result, err := res.PublicList(r.Context(), filtersFromQuery(res.Definition(), r))
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

func handleGet(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := resourceFromRequest(deps, r)
		if err != nil {
			WriteError(w, err)
			return
		}

		rec, err := res.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, rec)
	}
}

func handleCreate(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := resourceFromRequest(deps, r)
		if err != nil {
			WriteError(w, err)
			return
		}

		payload, err := normalizedPayload(res.Definition(), r)
		if err != nil {
			WriteError(w, err)
			return
		}

		rec, err := res.Create(r.Context(), payload)
		if err != nil {
			WriteError(w, err)
			return
		}
		deps.Lookups.InvalidateResource(res.Definition().ID)
		WriteJSON(w, http.StatusCreated, rec)
	}
}

func handleUpdate(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := resourceFromRequest(deps, r)
		if err != nil {
			WriteError(w, err)
			return
		}

		payload, err := normalizedPayload(res.Definition(), r)
		if err != nil {
			WriteError(w, err)
			return
		}

		rec, err := res.Update(r.Context(), chi.URLParam(r, "id"), payload)
		if err != nil {
			WriteError(w, err)
			return
		}
		deps.Lookups.InvalidateResource(res.Definition().ID)
		WriteJSON(w, http.StatusOK, rec)
	}
}

// deleteRequest is the confirmation body a delete must carry.
type deleteRequest struct {
	Confirm string `json:"confirm"`
}

// handleDelete removes a record, but only when the confirmation text equals
// the record's name field. The current record is fetched first so the
// comparison is against what the backend holds, not what the frontend cached.
func handleDelete(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := resourceFromRequest(deps, r)
		if err != nil {
			WriteError(w, err)
			return
		}

		var req deleteRequest
		if err := decodeBody(r, &req); err != nil {
			WriteError(w, err)
			return
		}

		id := chi.URLParam(r, "id")
		rec, err := res.Get(r.Context(), id)
		if err != nil {
			WriteError(w, err)
			return
		}

		name := model.RecordString(rec, res.Definition().NameField)
		if req.Confirm != name {
			WriteError(w, model.NewBadRequestError(
				fmt.Sprintf("Type %q to confirm the deletion", name)))
			return
		}

		if err := res.Delete(r.Context(), id); err != nil {
			WriteError(w, err)
			return
		}
		deps.Lookups.InvalidateResource(res.Definition().ID)
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// normalizedPayload runs an incoming document through the form engine, so the
// server applies the same coercions the admin UI does: numbers parsed, blank
// optionals nulled, blank array entries dropped, required fields checked.
func normalizedPayload(def model.ResourceDefinition, r *http.Request) (map[string]any, error) {
	var body model.Record
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}

	draft := form.NewDraftFromRecord(def, body)
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return draft.Payload()
}
