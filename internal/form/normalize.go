package form

import (
	"encoding/json"
	"fmt"

	"github.com/lkpmandiri/backoffice/model"
)

// Payload renders the draft as the full API document. Every defined field is
// present in the result, so updates replace the whole record:
//
//   - number fields parse to JSON numbers; an emptied optional number becomes
//     JSON null, never zero
//   - string-array fields are compacted, dropping blank entries
//   - multiselect fields carry their selected values, numeric when possible
//   - an unselected optional select becomes JSON null
//
// A non-numeric value in a number field is a validation error naming the
// field, raised here because the check depends on parsing, not presence.
func (d *Draft) Payload() (map[string]any, error) {
	payload := make(map[string]any, len(d.def.Fields))
	invalid := make(map[string][]string)

	for _, f := range d.def.Fields {
		switch f.Kind {
		case model.FieldToggle:
			payload[f.Field] = d.toggles[f.Field]

		case model.FieldNumber:
			raw := d.values[f.Field]
			if raw == "" {
				payload[f.Field] = nil
				continue
			}
			n, err := parseNumber(raw)
			if err != nil {
				invalid[f.Field] = append(invalid[f.Field],
					fmt.Sprintf("%s must be a number", f.Label))
				continue
			}
			payload[f.Field] = n

		case model.FieldStringArray:
			payload[f.Field] = compact(d.arrays[f.Field])

		case model.FieldMultiselect:
			payload[f.Field] = coerceValues(compact(d.arrays[f.Field]))

		case model.FieldSelect:
			raw := d.values[f.Field]
			if raw == "" {
				payload[f.Field] = nil
				continue
			}
			payload[f.Field] = coerceValue(raw)

		default:
			payload[f.Field] = d.values[f.Field]
		}
	}

	if len(invalid) > 0 {
		return nil, model.NewValidationError(invalid)
	}
	return payload, nil
}

// parseNumber validates the input and keeps its exact textual form.
func parseNumber(raw string) (json.Number, error) {
	var probe json.Number
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return "", err
	}
	return probe, nil
}

// coerceValue turns a selected option value into a JSON number when it parses
// as one; foreign keys are numeric ids serialized as strings in the form.
func coerceValue(raw string) any {
	if n, err := parseNumber(raw); err == nil {
		return n
	}
	return raw
}

func coerceValues(raws []string) []any {
	out := make([]any, 0, len(raws))
	for _, raw := range raws {
		out = append(out, coerceValue(raw))
	}
	return out
}
