package form

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/lkpmandiri/backoffice/model"
)

// Validate checks required fields and returns a VALIDATION_ERROR naming every
// missing one, mirroring the shape the API returns for its own 422s so the
// form renders both the same way. Toggles are exempt: false is a valid answer.
func (d *Draft) Validate() error {
	fields := make(map[string][]string)

	for _, f := range d.def.Fields {
		if !f.Required || f.Kind == model.FieldToggle {
			continue
		}

		var err error
		switch f.Kind {
		case model.FieldStringArray, model.FieldMultiselect:
			err = validation.Validate(compact(d.arrays[f.Field]), validation.Required)
		default:
			err = validation.Validate(d.values[f.Field], validation.Required)
		}
		if err != nil {
			fields[f.Field] = []string{fmt.Sprintf("%s is required", f.Label)}
		}
	}

	if len(fields) > 0 {
		return model.NewValidationError(fields)
	}
	return nil
}
