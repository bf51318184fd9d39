package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lkpmandiri/backoffice/model"
)

// Filters is the open bag of recognized list query parameters. Unset values
// are omitted from the request rather than sent as empty strings.
type Filters struct {
	Search  string
	Page    int
	PerPage int
	// Extra carries entity-specific filters such as status or category_id.
	Extra map[string]string
}

// Query renders the filters as URL query values, omitting unset entries.
func (f Filters) Query() url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(f.PerPage))
	}
	for k, v := range f.Extra {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// Resource exposes the four CRUD operations plus list for one entity type.
// Every resource returns the same operations with the same error shapes, so
// list and form screens can be written once against any entity.
type Resource struct {
	client *Client
	def    model.ResourceDefinition
}

// NewResource creates a Resource for the given definition.
func NewResource(client *Client, def model.ResourceDefinition) *Resource {
	return &Resource{client: client, def: def}
}

// Definition returns the resource's definition.
func (r *Resource) Definition() model.ResourceDefinition {
	return r.def
}

// List fetches one page of records from the admin endpoint.
func (r *Resource) List(ctx context.Context, f Filters) (model.ListResult, error) {
	return r.list(ctx, r.def.AdminPath(), f)
}

// PublicList fetches one page from the unauthenticated read-only mirror.
func (r *Resource) PublicList(ctx context.Context, f Filters) (model.ListResult, error) {
	if !r.def.Public {
		return model.ListResult{}, model.NewNotFoundError(
			fmt.Sprintf("resource %q has no public mirror", r.def.ID))
	}
	return r.list(ctx, r.def.PublicPath(), f)
}

func (r *Resource) list(ctx context.Context, path string, f Filters) (model.ListResult, error) {
	raw, err := r.client.Do(ctx, http.MethodGet, path, f.Query(), nil)
	if err != nil {
		return model.ListResult{}, err
	}

	var result model.ListResult
	if err := decodeJSON(raw, &result); err != nil {
		return model.ListResult{}, fmt.Errorf("api: decode %s list: %w", r.def.ID, err)
	}
	if result.CurrentPage == 0 {
		result.CurrentPage = 1
	}
	return result, nil
}

// Get fetches a single record by identity. A backend 404 surfaces as
// NOT_FOUND; the caller is responsible for leaving an edit screen it cannot
// populate.
func (r *Resource) Get(ctx context.Context, id string) (model.Record, error) {
	raw, err := r.client.Do(ctx, http.MethodGet, r.itemPath(id), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

// Create posts a normalized payload and returns the stored record with its
// server-assigned identity.
func (r *Resource) Create(ctx context.Context, payload map[string]any) (model.Record, error) {
	raw, err := r.client.Do(ctx, http.MethodPost, r.def.AdminPath(), nil, payload)
	if err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

// Update replaces the full record. The entire form state is resent even for
// single-field changes.
func (r *Resource) Update(ctx context.Context, id string, payload map[string]any) (model.Record, error) {
	raw, err := r.client.Do(ctx, http.MethodPut, r.itemPath(id), nil, payload)
	if err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

// Delete removes a record. The caller must already have confirmed intent;
// there is no undo.
func (r *Resource) Delete(ctx context.Context, id string) error {
	_, err := r.client.Do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
	return err
}

func (r *Resource) itemPath(id string) string {
	return r.def.AdminPath() + "/" + url.PathEscape(id)
}

// decodeRecord unwraps an optional {"data": ...} envelope around a record.
func decodeRecord(raw json.RawMessage) (model.Record, error) {
	if len(raw) == 0 {
		return model.Record{}, nil
	}

	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Data) > 0 && wrapped.Data[0] == '{' {
		raw = wrapped.Data
	}

	var rec model.Record
	if err := decodeJSON(raw, &rec); err != nil {
		return nil, fmt.Errorf("api: decode record: %w", err)
	}
	return rec, nil
}

// decodeJSON decodes with UseNumber so numeric ids survive round trips
// without float formatting loss.
func decodeJSON(raw json.RawMessage, target any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(target)
}
