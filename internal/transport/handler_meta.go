package transport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lkpmandiri/backoffice/model"
)

// handleResourceIndex serves the navigation index: every defined resource in
// display order.
func handleResourceIndex(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defs := deps.Registry.AllResources()
		index := make([]model.ResourceSummary, 0, len(defs))
		for _, def := range defs {
			index = append(index, model.ResourceSummary{
				ID:       def.ID,
				Label:    def.Label,
				Singular: def.Singular,
				Route:    "/admin/" + def.Path,
				Order:    def.Order,
			})
		}
		WriteJSON(w, http.StatusOK, map[string]any{"resources": index})
	}
}

// handleListDescriptor serves the resolved list-screen metadata for one
// resource.
func handleListDescriptor(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		def, ok := deps.Registry.GetResource(chi.URLParam(r, "resource"))
		if !ok {
			WriteNotFound(w, "Resource is not defined")
			return
		}

		desc := model.ListDescriptor{
			Resource:     def.ID,
			Title:        def.Label,
			DataEndpoint: "/ui/admin/resources/" + def.ID,
			NameField:    def.NameField,
			PerPage:      def.PerPage,
			Columns:      def.Columns,
			Filters:      resolveFilters(def),
			EmptyMessage: fmt.Sprintf("No %s yet", strings.ToLower(def.Label)),
		}
		WriteJSON(w, http.StatusOK, desc)
	}
}

// handleFormDescriptor serves the resolved create/edit form metadata for one
// resource.
func handleFormDescriptor(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		def, ok := deps.Registry.GetResource(chi.URLParam(r, "resource"))
		if !ok {
			WriteNotFound(w, "Resource is not defined")
			return
		}

		desc := model.FormDescriptor{
			Resource:       def.ID,
			Title:          def.Label,
			SubmitEndpoint: "/ui/admin/resources/" + def.ID,
			SuccessRoute:   "/admin/" + def.Path,
			Fields:         resolveFields(def),
		}
		if def.Upload != nil {
			desc.Upload = &model.UploadDescriptor{
				Endpoint: "/ui/admin/upload",
				Folder:   def.Upload.Folder,
				MaxMB:    def.Upload.MaxMB,
				Accept:   "image/*",
			}
		}
		WriteJSON(w, http.StatusOK, desc)
	}
}

func resolveFilters(def model.ResourceDefinition) []model.FilterDescriptor {
	out := make([]model.FilterDescriptor, 0, len(def.Filters))
	for _, f := range def.Filters {
		out = append(out, model.FilterDescriptor{
			Field:      f.Field,
			Label:      f.Label,
			Kind:       f.Kind,
			ClientSide: f.ClientSide,
			Options:    staticOptions(f.Options),
			LookupID:   f.LookupID,
		})
	}
	return out
}

func resolveFields(def model.ResourceDefinition) []model.FieldDescriptor {
	out := make([]model.FieldDescriptor, 0, len(def.Fields))
	for _, f := range def.Fields {
		out = append(out, model.FieldDescriptor{
			Field:       f.Field,
			Label:       f.Label,
			Kind:        f.Kind,
			Required:    f.Required,
			Default:     f.Default,
			Placeholder: f.Placeholder,
			HelpText:    f.HelpText,
			LookupID:    f.LookupID,
			Folder:      f.Folder,
			Options:     staticOptions(f.Options),
		})
	}
	return out
}

func staticOptions(opts []model.StaticOption) []model.OptionDescriptor {
	if len(opts) == 0 {
		return nil
	}
	out := make([]model.OptionDescriptor, 0, len(opts))
	for _, o := range opts {
		out = append(out, model.OptionDescriptor{Label: o.Label, Value: o.Value})
	}
	return out
}
