// Package formview is the headless controller behind the create and edit
// forms. It owns the form lifecycle — load the record in edit mode, bind
// field input through the draft, hold the submit while an upload is running,
// and attach server-side validation messages to their fields — leaving
// rendering entirely to the frontend.
package formview

import (
	"context"
	"sync"

	"github.com/lkpmandiri/backoffice/internal/api"
	"github.com/lkpmandiri/backoffice/internal/form"
	"github.com/lkpmandiri/backoffice/model"
)

// Phase is the form lifecycle state.
type Phase int

const (
	// Loading covers the initial record fetch in edit mode.
	Loading Phase = iota
	// Ready accepts input and submission.
	Ready
	// Submitting rejects further submissions until the API answers.
	Submitting
)

// Controller drives one create or edit form.
type Controller struct {
	res *api.Resource

	mu          sync.Mutex
	phase       Phase
	recordID    string
	draft       *form.Draft
	fieldErrors map[string][]string
	loadErr     error
	uploads     int
}

// NewCreate builds a controller for the create form, immediately Ready with
// the definition's defaults.
func NewCreate(res *api.Resource) *Controller {
	return &Controller{
		res:   res,
		phase: Ready,
		draft: form.NewDraft(res.Definition()),
	}
}

// NewEdit builds a controller for the edit form. The caller must Load before
// the form is usable.
func NewEdit(res *api.Resource, recordID string) *Controller {
	return &Controller{
		res:      res,
		phase:    Loading,
		recordID: recordID,
		draft:    form.NewDraft(res.Definition()),
	}
}

// Load fetches the record in edit mode and seeds the draft from it. A
// NOT_FOUND answer is terminal: the error is kept and the caller leaves the
// screen instead of showing an empty form.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	id := c.recordID
	c.mu.Unlock()

	rec, err := c.res.Get(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.loadErr = err
		return err
	}
	c.draft = form.NewDraftFromRecord(c.res.Definition(), rec)
	c.phase = Ready
	return nil
}

// Phase returns the current lifecycle state.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Draft exposes the form state for field binding.
func (c *Controller) Draft() *form.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// FieldErrors returns the messages attached to one field by the last failed
// submission, or nil.
func (c *Controller) FieldErrors(field string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fieldErrors == nil {
		return nil
	}
	return c.fieldErrors[field]
}

// BeginUpload marks an image upload as in flight. Submission is held until
// every started upload has finished, so a record never points at a URL that
// does not exist yet.
func (c *Controller) BeginUpload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploads++
}

// FinishUpload marks one upload as done, successful or not.
func (c *Controller) FinishUpload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uploads > 0 {
		c.uploads--
	}
}

// SetUploadedURL writes an upload result into its image field.
func (c *Controller) SetUploadedURL(field, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Set(field, url)
}

// Submit validates and sends the full document, creating or updating
// depending on how the controller was built. Validation failures — local or
// the API's 422 — attach field messages and leave the form Ready for another
// attempt. On success the saved record is returned and the caller navigates
// back to the list.
func (c *Controller) Submit(ctx context.Context) (model.Record, error) {
	c.mu.Lock()
	if c.phase != Ready {
		c.mu.Unlock()
		return nil, model.NewBadRequestError("The form is not ready to submit")
	}
	if c.uploads > 0 {
		c.mu.Unlock()
		return nil, model.NewBadRequestError("Wait for the image upload to finish")
	}
	draft := c.draft
	c.mu.Unlock()

	if err := draft.Validate(); err != nil {
		c.attachFieldErrors(err)
		return nil, err
	}
	payload, err := draft.Payload()
	if err != nil {
		c.attachFieldErrors(err)
		return nil, err
	}

	c.setPhase(Submitting)

	var rec model.Record
	if c.recordID == "" {
		rec, err = c.res.Create(ctx, payload)
	} else {
		rec, err = c.res.Update(ctx, c.recordID, payload)
	}

	c.mu.Lock()
	c.phase = Ready
	c.mu.Unlock()

	if err != nil {
		c.attachFieldErrors(err)
		return nil, err
	}
	c.clearFieldErrors()
	return rec, nil
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = p
}

func (c *Controller) attachFieldErrors(err error) {
	ee, ok := err.(*model.ErrorEnvelope)

	c.mu.Lock()
	defer c.mu.Unlock()
	if ok && len(ee.Fields) > 0 {
		c.fieldErrors = ee.Fields
	} else {
		c.fieldErrors = nil
	}
}

func (c *Controller) clearFieldErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fieldErrors = nil
}
