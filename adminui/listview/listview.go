// Package listview is the headless controller behind every admin list screen.
// One controller instance drives one resource's table: search, filters,
// pagination, and row deletion. Fetches may overlap when the user types
// faster than the API answers; completions carry the sequence number of the
// fetch that produced them and anything older than the newest issued fetch is
// discarded, so the table always shows the response to the latest input.
package listview

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lkpmandiri/backoffice/internal/api"
	"github.com/lkpmandiri/backoffice/model"
)

// State is an immutable snapshot of the screen.
type State struct {
	Records  []model.Record
	Page     int
	LastPage int
	Total    int
	Loading  bool
	Empty    bool
	Err      error
}

// Controller holds the list screen's input state and the latest applied
// fetch result.
type Controller struct {
	res *api.Resource
	def model.ResourceDefinition

	mu            sync.Mutex
	seq           uint64
	search        string
	page          int
	serverFilters map[string]string
	clientFilters map[string]string
	state         State
	closed        bool
}

// NewController creates a controller for one resource. The first page is not
// fetched until Refresh is called.
func NewController(res *api.Resource) *Controller {
	return &Controller{
		res:           res,
		def:           res.Definition(),
		page:          1,
		serverFilters: make(map[string]string),
		clientFilters: make(map[string]string),
		state:         State{Page: 1},
	}
}

// SetSearch replaces the search text and resets to the first page.
func (c *Controller) SetSearch(search string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = search
	c.page = 1
}

// SetFilter sets one filter value; an empty value clears it. Filters declared
// client_side never reach the API; they narrow the current page locally.
// Either way the change resets to the first page. Fields without a filter
// definition are ignored.
func (c *Controller) SetFilter(field, value string) {
	def, ok := c.filterDef(field)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.serverFilters
	if def.ClientSide {
		target = c.clientFilters
	}
	if value == "" {
		delete(target, field)
	} else {
		target[field] = value
	}
	c.page = 1
}

// SetPage moves to the given page, preserving search and filters.
func (c *Controller) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = page
}

// Refresh fetches the page described by the current inputs. It is safe to
// call from multiple goroutines; only the newest fetch's result is applied.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.seq++
	seq := c.seq
	filters := api.Filters{
		Search:  c.search,
		Page:    c.page,
		PerPage: c.def.PerPage,
		Extra:   cloneMap(c.serverFilters),
	}
	c.state.Loading = true
	c.mu.Unlock()

	result, err := c.res.List(ctx, filters)
	return c.apply(seq, result, err)
}

// apply installs a fetch result unless a newer fetch has been issued since,
// or the screen has been closed.
func (c *Controller) apply(seq uint64, result model.ListResult, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.seq {
		return nil // stale completion, drop it
	}

	c.state.Loading = false
	if err != nil {
		c.state.Err = err
		return err
	}

	c.state = State{
		Records:  result.Data,
		Page:     result.CurrentPage,
		LastPage: result.LastPage,
		Total:    result.Total,
		Empty:    result.Total == 0,
	}
	return nil
}

// Snapshot returns the current screen state. Records are filtered by any
// client-side filters, which narrow the fetched page without another request.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.Records = c.applyClientFilters(s.Records)
	return s
}

// Delete removes one record after confirmation. confirmText must equal the
// record's name field exactly; anything else is rejected before any network
// call. On success the current page is refetched.
func (c *Controller) Delete(ctx context.Context, id, confirmText string) error {
	c.mu.Lock()
	var name string
	found := false
	for _, rec := range c.state.Records {
		if model.RecordID(rec) == id {
			name = model.RecordString(rec, c.def.NameField)
			found = true
			break
		}
	}
	c.mu.Unlock()

	if !found {
		return model.NewNotFoundError("The record is no longer on this page")
	}
	if confirmText != name {
		return model.NewBadRequestError(
			fmt.Sprintf("Type %q to confirm the deletion", name))
	}

	if err := c.res.Delete(ctx, id); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// Close marks the screen as left. In-flight completions arriving afterwards
// are discarded without mutating state.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Controller) filterDef(field string) (model.FilterDefinition, bool) {
	for _, f := range c.def.Filters {
		if f.Field == field {
			return f, true
		}
	}
	return model.FilterDefinition{}, false
}

func (c *Controller) applyClientFilters(records []model.Record) []model.Record {
	if len(c.clientFilters) == 0 {
		return records
	}

	out := make([]model.Record, 0, len(records))
	for _, rec := range records {
		match := true
		for field, want := range c.clientFilters {
			if !strings.EqualFold(fieldText(rec, field), want) {
				match = false
				break
			}
		}
		if match {
			out = append(out, rec)
		}
	}
	return out
}

func fieldText(rec model.Record, field string) string {
	if s := model.RecordString(rec, field); s != "" {
		return s
	}
	if v, ok := rec[field]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
