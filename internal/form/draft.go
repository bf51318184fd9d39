// Package form implements the create/edit form engine: draft state keyed by
// the resource definition, dynamic string arrays, submit-time normalization
// into an API payload, and required-field validation. The engine is headless;
// the transport layer and the screen controllers drive it.
package form

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/lkpmandiri/backoffice/model"
)

// Draft is the mutable state of one form. Scalar inputs are kept as the raw
// strings the user typed, so an emptied number field stays distinguishable
// from zero until normalization.
type Draft struct {
	def     model.ResourceDefinition
	values  map[string]string
	toggles map[string]bool
	arrays  map[string][]string
}

// NewDraft creates an empty draft seeded with the definition's defaults.
// String-array fields start with a single blank entry so the form always
// shows at least one input row.
func NewDraft(def model.ResourceDefinition) *Draft {
	d := &Draft{
		def:     def,
		values:  make(map[string]string),
		toggles: make(map[string]bool),
		arrays:  make(map[string][]string),
	}
	for _, f := range def.Fields {
		switch f.Kind {
		case model.FieldToggle:
			d.toggles[f.Field] = f.Default == "true"
		case model.FieldStringArray:
			d.arrays[f.Field] = []string{""}
		case model.FieldMultiselect:
			d.arrays[f.Field] = nil
		default:
			d.values[f.Field] = f.Default
		}
	}
	return d
}

// NewDraftFromRecord creates a draft pre-filled from an existing record, for
// the edit form. Unknown record fields are ignored; fields absent from the
// record keep their defaults.
func NewDraftFromRecord(def model.ResourceDefinition, rec model.Record) *Draft {
	d := NewDraft(def)
	for _, f := range def.Fields {
		raw, present := rec[f.Field]
		if !present || raw == nil {
			continue
		}
		switch f.Kind {
		case model.FieldToggle:
			d.toggles[f.Field] = toBool(raw)
		case model.FieldStringArray, model.FieldMultiselect:
			if entries := toStringSlice(raw); entries != nil {
				d.arrays[f.Field] = entries
			}
		default:
			d.values[f.Field] = toScalarString(raw)
		}
	}
	return d
}

// Definition returns the definition this draft was built from.
func (d *Draft) Definition() model.ResourceDefinition {
	return d.def
}

// Set records the raw text of a scalar field.
func (d *Draft) Set(field, value string) {
	d.values[field] = value
}

// Value returns the raw text of a scalar field.
func (d *Draft) Value(field string) string {
	return d.values[field]
}

// SetToggle records a boolean field.
func (d *Draft) SetToggle(field string, on bool) {
	d.toggles[field] = on
}

// Toggle returns a boolean field's state.
func (d *Draft) Toggle(field string) bool {
	return d.toggles[field]
}

// ToggleSelection adds the value to a multiselect field when absent and
// removes it when present, mirroring a checklist click.
func (d *Draft) ToggleSelection(field, value string) {
	entries := d.arrays[field]
	for i, v := range entries {
		if v == value {
			d.arrays[field] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
	d.arrays[field] = append(entries, value)
}

// Selected reports whether a multiselect field contains the value.
func (d *Draft) Selected(field, value string) bool {
	for _, v := range d.arrays[field] {
		if v == value {
			return true
		}
	}
	return false
}

// toScalarString renders a record value as form input text. Numbers keep
// their exact textual form via json.Number.
func toScalarString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toBool(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case json.Number:
		return v.String() != "0"
	case float64:
		return v != 0
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}

func toStringSlice(raw any) []string {
	arr, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		out = append(out, toScalarString(item))
	}
	return out
}
